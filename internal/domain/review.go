package domain

// Review is one user review scraped from a place page. Reviews carry no
// identity of their own; they are only meaningful as an ordered list for one place.
type Review struct {
	Author string `json:"author"`
	Rating int    `json:"rating"` // number of star markers, 0 when none were found
	Text   string `json:"text"`
}

type Outcome string

const (
	OutcomeOK               Outcome = "ok"
	OutcomePartial          Outcome = "partial" // some containers could not be parsed
	OutcomeLaunchFailed     Outcome = "launch_failed"
	OutcomeNavigationFailed Outcome = "navigation_failed"
	OutcomeNoRevealControl  Outcome = "no_reveal_control"
	OutcomeLoadFailed       Outcome = "load_failed"
	OutcomeParseFailed      Outcome = "parse_failed"
)

// ExtractionResult is what the review stage hands back for one place.
// Reviews is never nil-vs-empty significant: callers only range over it.
type ExtractionResult struct {
	PlaceID string
	Reviews []Review
	Outcome Outcome
	Skipped int   // containers dropped because expected sub-elements were missing
	Err     error // underlying cause for any non-ok outcome
}

func (r ExtractionResult) Failed() bool {
	return r.Outcome != OutcomeOK && r.Outcome != OutcomePartial
}
