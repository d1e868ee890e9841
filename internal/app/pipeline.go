package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"mapigator/internal/domain"
)

var ErrNoPlaces = errors.New("no places found")

// Sink receives pipeline output. Confirm gates the review stage.
type Sink interface {
	Places(places []domain.Place)
	Confirm(places []domain.Place) bool
	Reviews(place domain.Place, res domain.ExtractionResult)
}

// Searcher and Extractor are the two stages as the pipeline sees them.
type Searcher interface {
	Collect(ctx context.Context, q domain.SearchQuery) ([]domain.Place, error)
}

type Extractor interface {
	Extract(ctx context.Context, placeID string) domain.ExtractionResult
}

type Pipeline struct {
	search  Searcher
	reviews Extractor
}

func NewPipeline(s Searcher, e Extractor) *Pipeline {
	return &Pipeline{search: s, reviews: e}
}

type RunStats struct {
	Places    int
	Scraped   int
	Reviews   int
	Failed    int
	Declined  bool
	SearchErr error // provider failure that left a partial result
}

// Run collects places for q and then scrapes reviews place by place, in the
// order the provider returned them. A provider error is logged and the
// partial set is still processed; only an empty set stops the run.
func (p *Pipeline) Run(ctx context.Context, q domain.SearchQuery, sink Sink) (RunStats, error) {
	var st RunStats

	places, err := p.search.Collect(ctx, q)
	if err != nil {
		st.SearchErr = err
		log.Error().Err(err).Int("partial", len(places)).Msg("error fetching places")
	}
	st.Places = len(places)
	if len(places) == 0 {
		if ctx.Err() != nil {
			return st, ctx.Err()
		}
		return st, ErrNoPlaces
	}
	log.Info().Int("places", len(places)).Msg("places collected")
	sink.Places(places)

	if !sink.Confirm(places) {
		st.Declined = true
		return st, nil
	}

	for i, pl := range places {
		if err := ctx.Err(); err != nil {
			return st, fmt.Errorf("stopped after %d/%d places: %w", i, len(places), err)
		}
		res := p.reviews.Extract(ctx, pl.ID)
		st.Scraped++
		st.Reviews += len(res.Reviews)
		if res.Failed() {
			st.Failed++
		}
		sink.Reviews(pl, res)
	}
	return st, nil
}
