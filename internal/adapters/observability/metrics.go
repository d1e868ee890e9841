package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"mapigator/internal/domain"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "mapigator", Name: "http_requests_total", Help: "HTTP requests."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mapigator", Name: "http_request_duration_seconds",
			Help:    "HTTP request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	ExternalRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "mapigator", Name: "external_requests_total", Help: "Outbound requests."},
		[]string{"service", "endpoint", "status"},
	)
	ExternalLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mapigator", Name: "external_request_duration_seconds",
			Help:    "Outbound request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "endpoint"},
	)
	SearchPages = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "mapigator", Name: "search_pages_total", Help: "Search result pages collected."},
		[]string{"result"}, // result: ok|provider_error|transport_error
	)
	Extractions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "mapigator", Name: "review_extractions_total", Help: "Review extractions by outcome."},
		[]string{"outcome"},
	)
	ExtractionLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "mapigator", Name: "review_extraction_duration_seconds",
			Help:    "Wall time of one review extraction, browser launch to teardown.",
			Buckets: []float64{1, 5, 10, 20, 30, 60, 120},
		},
	)
	ReviewsExtracted = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "mapigator", Name: "reviews_extracted_total", Help: "Reviews parsed from place pages."},
	)
)

// Serve exposes reg on addr in the background. Empty addr disables it.
func Serve(addr string, reg *prometheus.Registry) {
	if addr == "" {
		return // disabled
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", MetricsHandler(reg))

	go func() {
		srv := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(HTTPRequests, HTTPLatency, ExternalRequests, ExternalLatency,
		SearchPages, Extractions, ExtractionLatency, ReviewsExtracted)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

func ObserveExternal(service, endpoint string, status int, dur time.Duration) {
	ExternalRequests.WithLabelValues(service, endpoint, strconv.Itoa(status)).Inc()
	ExternalLatency.WithLabelValues(service, endpoint).Observe(dur.Seconds())
}

func ObservePage(result string) { // result: ok|provider_error|transport_error
	SearchPages.WithLabelValues(result).Inc()
}

func ObserveExtraction(outcome string, reviews int, dur time.Duration) {
	Extractions.WithLabelValues(outcome).Inc()
	ExtractionLatency.Observe(dur.Seconds())
	ReviewsExtracted.Add(float64(reviews))
}

// LabelErr names the cause of err: a known sentinel, else the type of the
// innermost wrapped error.
func LabelErr(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, domain.ErrElementNotFound):
		return "element_not_found"
	}
	for next := errors.Unwrap(err); next != nil; next = errors.Unwrap(err) {
		err = next
	}
	return fmt.Sprintf("%T", err)
}
