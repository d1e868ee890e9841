package main

import (
	"fmt"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"mapigator/internal/adapters/browser"
	"mapigator/internal/adapters/observability"
	"mapigator/internal/adapters/places"
	"mapigator/internal/app"
	"mapigator/internal/domain"
	"mapigator/internal/render"
	"mapigator/internal/shared"
)

type flags struct {
	types   string
	yes     bool
	verbose bool
	envFile string
	debug   bool
}

func newRootCmd() *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:           "mapigator LAT LNG RADIUS",
		Short:         "Fetch places around a coordinate and scrape their Google reviews",
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := parseArgs(args, f.types)
			if err != nil {
				return err
			}
			return run(cmd, q, f)
		},
	}
	cmd.Flags().StringVarP(&f.types, "types", "t", "", "filter places by types (comma-separated, e.g. 'hospital,pharmacy,doctor')")
	cmd.Flags().BoolVarP(&f.yes, "yes", "y", false, "skip confirmation and scrape reviews immediately")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "display raw API responses as JSON")
	cmd.Flags().StringVar(&f.envFile, "env-file", ".env", "environment file to load before reading configuration")
	cmd.Flags().BoolVar(&f.debug, "debug", false, "enable debug logging")
	return cmd
}

func parseArgs(args []string, types string) (domain.SearchQuery, error) {
	lat, err := strconv.ParseFloat(args[0], 64)
	if err != nil || math.Abs(lat) > 90 {
		return domain.SearchQuery{}, fmt.Errorf("invalid latitude %q", args[0])
	}
	lng, err := strconv.ParseFloat(args[1], 64)
	if err != nil || math.Abs(lng) > 180 {
		return domain.SearchQuery{}, fmt.Errorf("invalid longitude %q", args[1])
	}
	radius, err := strconv.Atoi(args[2])
	if err != nil || radius <= 0 {
		return domain.SearchQuery{}, fmt.Errorf("invalid radius %q: want meters (max 50000)", args[2])
	}
	return domain.SearchQuery{
		Center: domain.Location{Lat: lat, Lng: lng},
		Radius: radius,
		Types:  places.SplitTypes(types),
	}, nil
}

func run(cmd *cobra.Command, q domain.SearchQuery, f flags) error {
	ctx := cmd.Context()

	runID := uuid.NewString()
	setLogger := func(env string) {
		// logs go to stderr; stdout only carries the rendered tables
		log.Logger = observability.NewLogger(env, os.Stderr).With().Str("run_id", runID).Logger()
	}
	setLogger(os.Getenv("APP_ENV"))
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if f.debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	cfg, err := shared.Load(f.envFile)
	if err != nil {
		return err
	}
	setLogger(cfg.AppEnv) // APP_ENV may have come from the env file
	observability.Serve(cfg.MetricsAddr, observability.InitRegistry())

	log.Info().
		Float64("lat", q.Center.Lat).
		Float64("lng", q.Center.Lng).
		Int("radius", q.Radius).
		Strs("types", q.Types).
		Msg("mapigator starting")

	client, err := places.New(cfg.PlacesURL, cfg.APIKey, cfg.PlacesRPS, cfg.PlacesTimeout)
	if err != nil {
		return fmt.Errorf("init places client: %w", err)
	}

	console := render.NewConsole(cmd.OutOrStdout(), cmd.InOrStdin(), f.yes)
	copts := app.CollectorOptions{PageDelay: cfg.PageTokenDelay}
	if f.verbose {
		copts.OnPage = console.RawJSON
	}

	pipeline := app.NewPipeline(
		app.NewSearchCollector(client, copts),
		app.NewReviewExtractor(browser.New(browser.OptionsFrom(cfg)), app.ExtractorOptionsFrom(cfg)),
	)

	st, err := pipeline.Run(ctx, q, console)
	if err != nil {
		return err
	}
	log.Info().
		Int("places", st.Places).
		Int("scraped", st.Scraped).
		Int("reviews", st.Reviews).
		Int("failed", st.Failed).
		Bool("declined", st.Declined).
		Msg("done")
	if !st.Declined {
		fmt.Fprintln(cmd.OutOrStdout(), "Done!")
	}
	return nil
}

var numberArg = regexp.MustCompile(`^-\d+(\.\d*)?$|^-\.\d+$`)

// normalizeArgs moves negative numbers (coordinates) behind a "--" so pflag
// does not read "-74.006" as a shorthand flag. Flag values are left in place.
func normalizeArgs(cmd *cobra.Command, args []string) []string {
	var flagArgs, positional []string
	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "--":
			positional = append(positional, args[i+1:]...)
			i = len(args)
		case numberArg.MatchString(a) || !strings.HasPrefix(a, "-"):
			positional = append(positional, a)
		default:
			flagArgs = append(flagArgs, a)
			if takesValue(cmd, a) && i+1 < len(args) {
				i++
				flagArgs = append(flagArgs, args[i])
			}
		}
	}
	return append(append(flagArgs, "--"), positional...)
}

func takesValue(cmd *cobra.Command, a string) bool {
	if strings.Contains(a, "=") {
		return false
	}
	var fl *pflag.Flag
	if strings.HasPrefix(a, "--") {
		fl = cmd.Flags().Lookup(strings.TrimPrefix(a, "--"))
	} else if len(a) == 2 {
		fl = cmd.Flags().ShorthandLookup(a[1:])
	}
	return fl != nil && fl.NoOptDefVal == ""
}
