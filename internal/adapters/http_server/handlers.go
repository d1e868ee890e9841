package httpserver

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"mapigator/internal/adapters/places"
	"mapigator/internal/app"
	"mapigator/internal/domain"
)

const maxRadius = 50000

type Handlers struct {
	Search  app.Searcher
	Reviews app.Extractor

	flights  singleflight.Group
	sessions *semaphore.Weighted
}

func NewHandlers(s app.Searcher, e app.Extractor) *Handlers {
	// one rendering session at a time across all requests
	return &Handlers{Search: s, Reviews: e, sessions: semaphore.NewWeighted(1)}
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

type placesResponse struct {
	Places  []domain.Place `json:"places"`
	Partial bool           `json:"partial"`
	Error   string         `json:"error,omitempty"`
}

type reviewsResponse struct {
	PlaceID string          `json:"place_id"`
	Outcome domain.Outcome  `json:"outcome"`
	Skipped int             `json:"skipped"`
	Reviews []domain.Review `json:"reviews"`
	Error   string          `json:"error,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/v1/places", h.listPlaces)
	s.mux.Get("/v1/places/{id}/reviews", h.listReviews)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	etag, body := calcETagAndBody(v)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write response body")
	}
}

func parseQuery(r *http.Request) (domain.SearchQuery, string) {
	qs := r.URL.Query()
	lat, err := strconv.ParseFloat(qs.Get("lat"), 64)
	if err != nil || lat < -90 || lat > 90 {
		return domain.SearchQuery{}, "lat must be a number between -90 and 90"
	}
	lng, err := strconv.ParseFloat(qs.Get("lng"), 64)
	if err != nil || lng < -180 || lng > 180 {
		return domain.SearchQuery{}, "lng must be a number between -180 and 180"
	}
	radius, err := strconv.Atoi(qs.Get("radius"))
	if err != nil || radius <= 0 || radius > maxRadius {
		return domain.SearchQuery{}, "radius must be an integer between 1 and 50000"
	}
	return domain.SearchQuery{
		Center: domain.Location{Lat: lat, Lng: lng},
		Radius: radius,
		Types:  places.SplitTypes(qs.Get("types")),
	}, ""
}

type collected struct {
	places []domain.Place
	err    error
}

func (h *Handlers) listPlaces(w http.ResponseWriter, r *http.Request) {
	q, msg := parseQuery(r)
	if msg != "" {
		writeProblem(w, http.StatusBadRequest, "Invalid query", msg)
		return
	}

	// identical concurrent searches share one upstream walk; it is detached
	// from any single caller so one disconnect does not fail the others
	key := places.QueryParams(q, "", "").Encode()
	v, _, _ := h.flights.Do(key, func() (any, error) {
		ps, err := h.Search.Collect(context.WithoutCancel(r.Context()), q)
		return collected{places: ps, err: err}, nil
	})
	res := v.(collected)

	out := placesResponse{Places: res.places}
	if out.Places == nil {
		out.Places = []domain.Place{}
	}
	if res.err != nil {
		out.Partial = true
		out.Error = res.err.Error()
		if len(res.places) == 0 {
			var pe *domain.ProviderError
			if errors.As(res.err, &pe) {
				writeProblem(w, http.StatusBadGateway, "Provider error", res.err.Error())
				return
			}
			writeProblem(w, http.StatusBadGateway, "Upstream unavailable", res.err.Error())
			return
		}
		log.Warn().Err(res.err).Int("partial", len(res.places)).Msg("returning partial places")
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (h *Handlers) listReviews(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "place id is required")
		return
	}

	if err := h.sessions.Acquire(r.Context(), 1); err != nil {
		writeProblem(w, http.StatusServiceUnavailable, "Busy", "request cancelled while waiting for a browser session")
		return
	}
	defer h.sessions.Release(1)
	res := h.Reviews.Extract(r.Context(), id)

	out := reviewsResponse{
		PlaceID: id,
		Outcome: res.Outcome,
		Skipped: res.Skipped,
		Reviews: res.Reviews,
	}
	if out.Reviews == nil {
		out.Reviews = []domain.Review{}
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	// extraction problems degrade to an empty list, never to an HTTP error
	writeJSON(w, r, http.StatusOK, out)
}
