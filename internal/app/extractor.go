package app

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"mapigator/internal/adapters/observability"
	"mapigator/internal/domain"
	"mapigator/internal/shared"
)

const placePageBase = "https://www.google.com/maps/place/"

// PlacePageURL is the Maps page for a place id.
func PlacePageURL(placeID string) string {
	return placePageBase + "?q=place_id:" + url.QueryEscape(placeID)
}

// Selectors locate review data on the place page. The page has no stable
// schema; these are reverse-engineered class names and will drift.
type Selectors struct {
	RevealButton string // XPath
	Panel        string // CSS, scrollable reviews pane
	Container    string // CSS, one per review
	Author       string
	Star         string // one element per rating unit
	Body         string
}

var DefaultSelectors = Selectors{
	RevealButton: `//button[contains(., 'reviews')]`,
	Panel:        `div.m6QErb`,
	Container:    `.jftiEf`,
	Author:       `.d4r55`,
	Star:         `.kvMYJc`,
	Body:         `.wiI7pd`,
}

type ExtractorOptions struct {
	Selectors        Selectors
	SettleDelay      time.Duration
	RevealTimeout    time.Duration
	RevealPause      time.Duration
	ScrollIterations int
	ScrollPause      time.Duration
	// PageURL defaults to PlacePageURL.
	PageURL func(placeID string) string
	// Sleep defaults to shared.SleepCtx.
	Sleep func(ctx context.Context, d time.Duration) bool
}

func ExtractorOptionsFrom(cfg shared.Config) ExtractorOptions {
	return ExtractorOptions{
		Selectors:        DefaultSelectors,
		SettleDelay:      cfg.SettleDelay,
		RevealTimeout:    cfg.RevealTimeout,
		RevealPause:      cfg.RevealPause,
		ScrollIterations: cfg.ScrollIterations,
		ScrollPause:      cfg.ScrollPause,
	}
}

type ReviewExtractor struct {
	browser domain.Browser
	opts    ExtractorOptions
}

func NewReviewExtractor(b domain.Browser, opts ExtractorOptions) *ReviewExtractor {
	if opts.Sleep == nil {
		opts.Sleep = shared.SleepCtx
	}
	if opts.PageURL == nil {
		opts.PageURL = PlacePageURL
	}
	if opts.Selectors == (Selectors{}) {
		opts.Selectors = DefaultSelectors
	}
	return &ReviewExtractor{browser: b, opts: opts}
}

// Extract loads the place page in a fresh session and scrapes its reviews.
// It never fails outright: problems are reported through the result's
// Outcome and Err, with whatever reviews could be read.
func (e *ReviewExtractor) Extract(ctx context.Context, placeID string) domain.ExtractionResult {
	start := time.Now()
	res := e.extract(ctx, placeID)

	lg := log.With().Str("place_id", placeID).Str("outcome", string(res.Outcome)).Logger()
	if res.Failed() {
		lg.Warn().Err(res.Err).Str("cause", observability.LabelErr(res.Err)).Msg("review extraction failed")
	} else {
		lg.Info().Int("reviews", len(res.Reviews)).Int("skipped", res.Skipped).Msg("reviews extracted")
	}
	observability.ObserveExtraction(string(res.Outcome), len(res.Reviews), time.Since(start))
	return res
}

func (e *ReviewExtractor) extract(ctx context.Context, placeID string) (res domain.ExtractionResult) {
	res = domain.ExtractionResult{PlaceID: placeID, Reviews: []domain.Review{}}
	fail := func(o domain.Outcome, err error) domain.ExtractionResult {
		res.Outcome, res.Err = o, err
		return res
	}

	sess, err := e.browser.Launch(ctx)
	if err != nil {
		return fail(domain.OutcomeLaunchFailed, fmt.Errorf("launch browser: %w", err))
	}
	defer func() {
		if err := sess.Close(); err != nil {
			log.Debug().Err(err).Str("place_id", placeID).Msg("close browser session")
		}
	}()
	// a panicking session must not take the whole run down
	defer func() {
		if r := recover(); r != nil {
			res = domain.ExtractionResult{PlaceID: placeID, Reviews: []domain.Review{}}
			res.Outcome, res.Err = domain.OutcomeParseFailed, fmt.Errorf("session panic: %v", r)
		}
	}()

	log.Info().Str("place_id", placeID).Msg("opening place page")
	if err := sess.Navigate(e.opts.PageURL(placeID)); err != nil {
		return fail(domain.OutcomeNavigationFailed, fmt.Errorf("navigate: %w", err))
	}
	if !e.opts.Sleep(ctx, e.opts.SettleDelay) {
		return fail(domain.OutcomeNavigationFailed, ctx.Err())
	}

	sel := e.opts.Selectors
	if err := sess.Click(sel.RevealButton, e.opts.RevealTimeout); err != nil {
		return fail(domain.OutcomeNoRevealControl, fmt.Errorf("reveal reviews: %w", err))
	}
	if !e.opts.Sleep(ctx, e.opts.RevealPause) {
		return fail(domain.OutcomeLoadFailed, ctx.Err())
	}

	log.Debug().Str("place_id", placeID).Int("iterations", e.opts.ScrollIterations).Msg("loading reviews")
	for i := 0; i < e.opts.ScrollIterations; i++ {
		if err := sess.ScrollToBottom(sel.Panel); err != nil {
			return fail(domain.OutcomeLoadFailed, fmt.Errorf("scroll reviews panel (iteration %d): %w", i+1, err))
		}
		if !e.opts.Sleep(ctx, e.opts.ScrollPause) {
			return fail(domain.OutcomeLoadFailed, ctx.Err())
		}
	}

	html, err := sess.HTML()
	if err != nil {
		return fail(domain.OutcomeParseFailed, fmt.Errorf("snapshot page: %w", err))
	}
	reviews, skipped, err := ParseReviews(html, sel)
	if err != nil {
		return fail(domain.OutcomeParseFailed, err)
	}

	res.Reviews = reviews
	res.Skipped = skipped
	res.Outcome = domain.OutcomeOK
	if skipped > 0 {
		res.Outcome = domain.OutcomePartial
		res.Err = fmt.Errorf("%d review container(s) missing author or text", skipped)
	}
	return res
}
