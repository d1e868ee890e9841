package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type PlacesProvider interface {
	// NearbySearch fetches one page. pageToken is empty for the first page.
	NearbySearch(ctx context.Context, q SearchQuery, pageToken string) (SearchPage, error)
}

// Browser opens rendering sessions. Every session is isolated from the others
// (no shared profile) and must be closed by whoever launched it.
type Browser interface {
	Launch(ctx context.Context) (Session, error)
}

type Session interface {
	Navigate(url string) error
	// Click activates the first visible node matching the XPath selector,
	// giving up after timeout.
	Click(xpath string, timeout time.Duration) error
	// ScrollToBottom scrolls the element matching the CSS selector to its
	// current scrollHeight. ErrElementNotFound when nothing matches.
	ScrollToBottom(selector string) error
	HTML() (string, error)
	Close() error
}

var (
	ErrElementNotFound = errors.New("element not found")
)

// ProviderError is a provider payload that did not carry a results field.
type ProviderError struct {
	Status  string
	Message string
	Page    int
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("places provider error on page %d: status=%q", e.Page, e.Status)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}
