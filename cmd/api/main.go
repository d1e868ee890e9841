package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"mapigator/internal/adapters/browser"
	server "mapigator/internal/adapters/http_server"
	"mapigator/internal/adapters/observability"
	"mapigator/internal/adapters/places"
	"mapigator/internal/app"
	"mapigator/internal/shared"
)

func main() {
	cfg, err := shared.Load(envFile())

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, os.Stdout)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	client, err := places.New(cfg.PlacesURL, cfg.APIKey, cfg.PlacesRPS, cfg.PlacesTimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize places client")
	}
	collector := app.NewSearchCollector(client, app.CollectorOptions{PageDelay: cfg.PageTokenDelay})
	extractor := app.NewReviewExtractor(browser.New(browser.OptionsFrom(cfg)), app.ExtractorOptionsFrom(cfg))

	// one extraction: settle + reveal + scrolls, plus headroom for launch and parsing
	budget := cfg.SettleDelay + cfg.RevealTimeout + cfg.RevealPause +
		time.Duration(cfg.ScrollIterations)*cfg.ScrollPause + time.Minute

	srv := server.New(budget)
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(server.NewHandlers(collector, extractor))

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Mux(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("http shutdown failed")
		}
	}()

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("http server failed")
	}
	log.Info().Msg("API stopped")
}

// envFile is ENV_FILE, or ./.env like the CLI.
func envFile() string {
	if p := os.Getenv("ENV_FILE"); p != "" {
		return p
	}
	return ".env"
}
