package shared

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

var ErrMissingAPIKey = errors.New("API_KEY is missing: set it in the environment or the .env file")

// DefaultPlacesURL is the Nearby Search JSON endpoint.
const DefaultPlacesURL = "https://maps.googleapis.com/maps/api/place/nearbysearch/json"

// MinPageTokenDelay is how long a fresh next_page_token takes to become valid upstream.
const MinPageTokenDelay = 2 * time.Second

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string

	APIKey         string
	PlacesURL      string
	PlacesRPS      int
	PlacesTimeout  time.Duration
	PageTokenDelay time.Duration

	ChromePath       string
	Headless         bool
	ViewportWidth    int
	ViewportHeight   int
	SettleDelay      time.Duration
	RevealTimeout    time.Duration
	RevealPause      time.Duration
	ScrollIterations int
	ScrollPause      time.Duration
}

// Load reads configuration from the process environment. When envFile exists
// it is loaded first; variables already set in the environment win.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return Config{}, fmt.Errorf("load %s: %w", envFile, err)
			}
			log.Debug().Str("path", envFile).Msg("loaded env file")
		}
	}

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
			log.Warn().Str("key", k).Str("value", v).Msg("ignoring non-integer value")
		}
		return def
	}
	ms := func(k string, def time.Duration) time.Duration {
		return time.Duration(atoi(k, int(def/time.Millisecond))) * time.Millisecond
	}

	c := Config{
		AppEnv:      env("APP_ENV", "dev"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ""),

		APIKey:         os.Getenv("API_KEY"),
		PlacesURL:      env("PLACES_URL", DefaultPlacesURL),
		PlacesRPS:      atoi("PLACES_RPS", 5),
		PlacesTimeout:  time.Duration(atoi("PLACES_TIMEOUT_SECONDS", 20)) * time.Second,
		PageTokenDelay: ms("PAGE_TOKEN_DELAY_MS", MinPageTokenDelay),

		ChromePath:       os.Getenv("CHROME_PATH"),
		Headless:         env("HEADLESS", "true") != "false",
		ViewportWidth:    atoi("VIEWPORT_WIDTH", 1920),
		ViewportHeight:   atoi("VIEWPORT_HEIGHT", 1080),
		SettleDelay:      ms("SETTLE_DELAY_MS", 5*time.Second),
		RevealTimeout:    ms("REVEAL_TIMEOUT_MS", 10*time.Second),
		RevealPause:      ms("REVEAL_PAUSE_MS", 3*time.Second),
		ScrollIterations: atoi("SCROLL_ITERATIONS", 10),
		ScrollPause:      ms("SCROLL_PAUSE_MS", time.Second),
	}

	if c.PageTokenDelay < MinPageTokenDelay {
		log.Warn().Dur("configured", c.PageTokenDelay).Dur("min", MinPageTokenDelay).
			Msg("PAGE_TOKEN_DELAY_MS below provider minimum, raising it")
		c.PageTokenDelay = MinPageTokenDelay
	}
	if c.APIKey == "" {
		return c, ErrMissingAPIKey
	}
	return c, nil
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
