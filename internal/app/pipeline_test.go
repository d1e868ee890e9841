package app_test

import (
	"context"
	"errors"
	"testing"

	"mapigator/internal/app"
	"mapigator/internal/domain"
)

// ---- fakes ----

type fakeSearcher struct {
	places []domain.Place
	err    error
}

func (f *fakeSearcher) Collect(context.Context, domain.SearchQuery) ([]domain.Place, error) {
	return f.places, f.err
}

type fakeExtractor struct {
	calls   []string
	results map[string]domain.ExtractionResult
}

func (f *fakeExtractor) Extract(_ context.Context, id string) domain.ExtractionResult {
	f.calls = append(f.calls, id)
	if r, ok := f.results[id]; ok {
		return r
	}
	return domain.ExtractionResult{PlaceID: id, Outcome: domain.OutcomeOK, Reviews: []domain.Review{{Author: "x", Rating: 3}}}
}

type fakeSink struct {
	confirm bool
	shown   int
	reviews []string
}

func (s *fakeSink) Places(p []domain.Place)                           { s.shown = len(p) }
func (s *fakeSink) Confirm([]domain.Place) bool                       { return s.confirm }
func (s *fakeSink) Reviews(p domain.Place, _ domain.ExtractionResult) { s.reviews = append(s.reviews, p.ID) }

// ---- tests ----

func TestPipeline_ScrapesInSearchOrder(t *testing.T) {
	ex := &fakeExtractor{results: map[string]domain.ExtractionResult{
		"b": {PlaceID: "b", Outcome: domain.OutcomeNoRevealControl, Reviews: []domain.Review{}},
	}}
	sink := &fakeSink{confirm: true}
	p := app.NewPipeline(&fakeSearcher{places: []domain.Place{place("a"), place("b"), place("c")}}, ex)

	st, err := p.Run(context.Background(), domain.SearchQuery{}, sink)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if !equal(ex.calls, []string{"a", "b", "c"}) || !equal(sink.reviews, []string{"a", "b", "c"}) {
		t.Fatalf("calls=%v sink=%v", ex.calls, sink.reviews)
	}
	if st.Places != 3 || st.Scraped != 3 || st.Failed != 1 || st.Reviews != 2 {
		t.Fatalf("unexpected stats: %+v", st)
	}
}

func TestPipeline_NoPlaces(t *testing.T) {
	sink := &fakeSink{confirm: true}
	p := app.NewPipeline(&fakeSearcher{}, &fakeExtractor{})

	_, err := p.Run(context.Background(), domain.SearchQuery{}, sink)
	if !errors.Is(err, app.ErrNoPlaces) {
		t.Fatalf("expected ErrNoPlaces, got %v", err)
	}
	if sink.shown != 0 {
		t.Fatalf("nothing should be rendered")
	}
}

func TestPipeline_Declined(t *testing.T) {
	ex := &fakeExtractor{}
	sink := &fakeSink{confirm: false}
	p := app.NewPipeline(&fakeSearcher{places: []domain.Place{place("a")}}, ex)

	st, err := p.Run(context.Background(), domain.SearchQuery{}, sink)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if !st.Declined || len(ex.calls) != 0 || sink.shown != 1 {
		t.Fatalf("unexpected: stats=%+v calls=%v", st, ex.calls)
	}
}

func TestPipeline_PartialSearchStillScraped(t *testing.T) {
	searchErr := &domain.ProviderError{Status: "INVALID_REQUEST", Page: 2}
	ex := &fakeExtractor{}
	p := app.NewPipeline(&fakeSearcher{places: []domain.Place{place("a")}, err: searchErr}, ex)

	st, err := p.Run(context.Background(), domain.SearchQuery{}, &fakeSink{confirm: true})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if !errors.Is(st.SearchErr, searchErr) || len(ex.calls) != 1 {
		t.Fatalf("unexpected: stats=%+v calls=%v", st, ex.calls)
	}
}

func TestPipeline_StopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ex := &fakeExtractor{}
	p := app.NewPipeline(&fakeSearcher{places: []domain.Place{place("a"), place("b")}}, ex)

	_, err := p.Run(ctx, domain.SearchQuery{}, &fakeSink{confirm: true})
	if !errors.Is(err, context.Canceled) || len(ex.calls) != 0 {
		t.Fatalf("err=%v calls=%v", err, ex.calls)
	}
}
