package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"mapigator/internal/adapters/observability"
	"mapigator/internal/domain"
)

const maxBodyBytes = 8 << 20

var (
	ErrUnauthorized = errors.New("places: unauthorized")
	ErrForbidden    = errors.New("places: forbidden")
	ErrRateLimited  = errors.New("places: rate limited")
)

type Client struct {
	endpoint string
	hc       *http.Client
	key      string
	rl       *rate.Limiter
}

func New(endpoint, key string, rps int, timeout time.Duration) (*Client, error) {
	if key == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if _, err := url.Parse(endpoint); err != nil {
		return nil, fmt.Errorf("invalid places endpoint %q: %w", endpoint, err)
	}
	if rps <= 0 {
		rps = 5
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		endpoint: endpoint,
		hc:       &http.Client{Timeout: timeout},
		key:      key,
		rl:       rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

// NearbySearch issues one Nearby Search request. A response without a
// "results" field is not an error here; callers inspect SearchPage.HasResults.
func (c *Client) NearbySearch(ctx context.Context, q domain.SearchQuery, pageToken string) (domain.SearchPage, error) {
	u := c.endpoint + "?" + QueryParams(q, c.key, pageToken).Encode()

	body, err := c.get(ctx, u)
	if err != nil {
		return domain.SearchPage{}, err
	}

	var resp nearbyResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.SearchPage{Raw: body}, fmt.Errorf("decode nearby search response: %w", err)
	}
	page := mapPage(resp)
	page.Raw = body
	return page, nil
}

// QueryParams builds the Nearby Search query string. Types are pipe-joined.
func QueryParams(q domain.SearchQuery, key, pageToken string) url.Values {
	v := url.Values{}
	v.Set("location", formatCoord(q.Center.Lat)+","+formatCoord(q.Center.Lng))
	v.Set("radius", strconv.Itoa(q.Radius))
	v.Set("key", key)
	if types := cleanTypes(q.Types); len(types) > 0 {
		v.Set("type", strings.Join(types, "|"))
	}
	if pageToken != "" {
		v.Set("pagetoken", pageToken)
	}
	return v
}

// SplitTypes turns a comma-separated category filter into its parts.
func SplitTypes(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	return cleanTypes(strings.Split(csv, ","))
}

func cleanTypes(in []string) []string {
	out := make([]string, 0, len(in))
	for _, t := range in {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func formatCoord(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// get performs a GET with client-side rate limiting and returns the body.
// Failed calls are not retried.
func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	if err := c.rl.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "mapigator/1.0")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal("places", "nearbysearch", 0, time.Since(start))
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// url.Error embeds the full URL, key included
		return nil, fmt.Errorf("nearby search request: %w", redact(err, c.key))
	}
	defer resp.Body.Close()
	observability.ObserveExternal("places", "nearbysearch", resp.StatusCode, time.Since(start))

	switch resp.StatusCode {
	case http.StatusOK:
		return io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	case http.StatusUnauthorized:
		return nil, ErrUnauthorized
	case http.StatusForbidden:
		return nil, ErrForbidden
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	default:
		// read a small error body for diagnostics
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

func redact(err error, key string) error {
	if key == "" || !strings.Contains(err.Error(), key) {
		return err
	}
	return &redactedError{msg: strings.ReplaceAll(err.Error(), key, "REDACTED"), err: err}
}
