package render

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"mapigator/internal/domain"
)

var (
	title   = color.New(color.FgCyan, color.Bold)
	good    = color.New(color.FgGreen, color.Bold)
	warn    = color.New(color.FgYellow, color.Bold)
	bad     = color.New(color.FgRed, color.Bold)
	heading = color.New(color.Bold)
)

// Console renders pipeline output for a terminal and asks for confirmation
// before the review stage. It implements app.Sink.
type Console struct {
	out       io.Writer
	in        *bufio.Reader
	assumeYes bool
}

func NewConsole(out io.Writer, in io.Reader, assumeYes bool) *Console {
	return &Console{out: out, in: bufio.NewReader(in), assumeYes: assumeYes}
}

func (c *Console) Places(places []domain.Place) {
	good.Fprintf(c.out, "Found %d places.\n", len(places))
	Places(c.out, places)
}

func (c *Console) Confirm(_ []domain.Place) bool {
	if c.assumeYes {
		return true
	}
	fmt.Fprint(c.out, "Do you want to scrape reviews for these places? (y/N): ")
	// EOF without a newline still yields whatever was typed
	answer, _ := c.in.ReadString('\n')
	if strings.ToLower(strings.TrimSpace(answer)) != "y" {
		warn.Fprintln(c.out, "Exiting without scraping.")
		return false
	}
	title.Fprintln(c.out, "Scraping reviews...")
	return true
}

func (c *Console) Reviews(p domain.Place, res domain.ExtractionResult) {
	Reviews(c.out, p, res)
}

// RawJSON prints one provider response, indented.
func (c *Console) RawJSON(page int, raw []byte) {
	good.Fprintf(c.out, "Raw API Response (page %d):\n", page)
	RawJSON(c.out, raw)
}

// Places writes the place table: name, rating, id, latitude, longitude.
func Places(w io.Writer, places []domain.Place) {
	title.Fprintln(w, "Places Found")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tRATING\tPLACE ID\tLATITUDE\tLONGITUDE")
	for _, p := range places {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			orNA(p.Name), rating(p.Rating), p.ID, Coord(p.Location.Lat), Coord(p.Location.Lng))
	}
	_ = tw.Flush()
}

// Reviews writes the review listing for one place.
func Reviews(w io.Writer, p domain.Place, res domain.ExtractionResult) {
	name := p.Name
	if name == "" {
		name = "Unknown Place"
	}
	fmt.Fprintln(w)
	heading.Fprintf(w, "Reviews for %s\n", name)

	if res.Failed() {
		bad.Fprintf(w, "No reviews scraped (%s): %v\n", res.Outcome, res.Err)
		return
	}
	for _, r := range res.Reviews {
		fmt.Fprintf(w, "★ %d - %s: %s\n", r.Rating, r.Author, r.Text)
	}
	switch {
	case len(res.Reviews) == 0:
		warn.Fprintln(w, "No reviews found.")
	case res.Skipped > 0:
		warn.Fprintf(w, "Scraped %d reviews, %d could not be parsed.\n", len(res.Reviews), res.Skipped)
	default:
		good.Fprintf(w, "Scraped %d reviews!\n", len(res.Reviews))
	}
}

// RawJSON indents a JSON body; anything that is not JSON is written as is.
func RawJSON(w io.Writer, raw []byte) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		_, _ = w.Write(raw)
		fmt.Fprintln(w)
		return
	}
	buf.WriteByte('\n')
	_, _ = buf.WriteTo(w)
}

// Coord formats a coordinate exactly, padded to at least four decimals.
func Coord(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	dot := strings.IndexByte(s, '.')
	if dot < 0 {
		return s + ".0000"
	}
	if decimals := len(s) - dot - 1; decimals < 4 {
		s += strings.Repeat("0", 4-decimals)
	}
	return s
}

func rating(r *float64) string {
	if r == nil {
		return "N/A"
	}
	return strconv.FormatFloat(*r, 'f', -1, 64)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
