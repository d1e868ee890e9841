package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"mapigator/internal/adapters/observability"
	"mapigator/internal/domain"
	"mapigator/internal/shared"
)

type CollectorOptions struct {
	// PageDelay is the wait before a continuation token is used.
	PageDelay time.Duration
	// OnPage, when set, receives every raw provider body in arrival order.
	OnPage func(page int, raw []byte)
	// Sleep defaults to shared.SleepCtx.
	Sleep func(ctx context.Context, d time.Duration) bool
}

// SearchCollector walks every result page of one nearby query.
type SearchCollector struct {
	places domain.PlacesProvider
	opts   CollectorOptions
}

func NewSearchCollector(p domain.PlacesProvider, opts CollectorOptions) *SearchCollector {
	if opts.Sleep == nil {
		opts.Sleep = shared.SleepCtx
	}
	return &SearchCollector{places: p, opts: opts}
}

// Collect returns all places across pages in arrival order. On failure the
// places gathered so far are returned together with the error, so callers
// can still work with a partial set.
func (c *SearchCollector) Collect(ctx context.Context, q domain.SearchQuery) ([]domain.Place, error) {
	var (
		out   []domain.Place
		token string
	)
	for page := 1; ; page++ {
		lg := log.With().Int("page", page).Logger()
		lg.Info().Msg("fetching places")

		res, err := c.places.NearbySearch(ctx, q, token)
		// undecodable bodies still carry Raw
		if c.opts.OnPage != nil && (err == nil || len(res.Raw) > 0) {
			c.opts.OnPage(page, res.Raw)
		}
		if err != nil {
			observability.ObservePage("transport_error")
			return out, fmt.Errorf("fetch page %d: %w", page, err)
		}

		if !res.HasResults {
			observability.ObservePage("provider_error")
			return out, &domain.ProviderError{Status: res.Status, Message: res.ErrorMessage, Page: page}
		}
		observability.ObservePage("ok")
		out = append(out, res.Places...)
		lg.Debug().Int("page_results", len(res.Places)).Int("total", len(out)).Msg("page collected")

		if res.NextPageToken == "" {
			return out, nil
		}
		token = res.NextPageToken

		// the token is not valid upstream until some time after issuance
		if !c.opts.Sleep(ctx, c.opts.PageDelay) {
			return out, fmt.Errorf("waiting for page %d: %w", page+1, ctx.Err())
		}
	}
}
