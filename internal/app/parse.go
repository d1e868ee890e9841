package app

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"mapigator/internal/domain"
)

// ParseReviews reads review containers out of a rendered place page.
// A container without an author or text element is skipped and counted;
// the others are still returned in document order.
func ParseReviews(html string, sel Selectors) ([]domain.Review, int, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, 0, fmt.Errorf("parse page html: %w", err)
	}

	out := []domain.Review{}
	skipped := 0
	doc.Find(sel.Container).Each(func(_ int, c *goquery.Selection) {
		author := c.Find(sel.Author).First()
		body := c.Find(sel.Body).First()
		if author.Length() == 0 || body.Length() == 0 {
			skipped++
			return
		}
		out = append(out, domain.Review{
			Author: strings.TrimSpace(author.Text()),
			Rating: c.Find(sel.Star).Length(),
			Text:   strings.TrimSpace(body.Text()),
		})
	})
	return out, skipped, nil
}
