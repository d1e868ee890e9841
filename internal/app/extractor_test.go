package app_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"mapigator/internal/app"
	"mapigator/internal/domain"
)

// ---- fakes ----

type fakeSession struct {
	html       string
	navErr     error
	clickErr   error
	scrollErr  error
	htmlErr    error
	panicOn    string
	navigated  []string
	clicks     []string
	scrolls    int
	closeCalls int
}

func (s *fakeSession) Navigate(url string) error {
	s.navigated = append(s.navigated, url)
	return s.navErr
}
func (s *fakeSession) Click(xpath string, _ time.Duration) error {
	s.clicks = append(s.clicks, xpath)
	return s.clickErr
}
func (s *fakeSession) ScrollToBottom(string) error {
	if s.panicOn == "scroll" {
		panic("boom")
	}
	s.scrolls++
	return s.scrollErr
}
func (s *fakeSession) HTML() (string, error) { return s.html, s.htmlErr }
func (s *fakeSession) Close() error          { s.closeCalls++; return nil }

type fakeBrowser struct {
	sess      *fakeSession
	launchErr error
	launches  int
}

func (b *fakeBrowser) Launch(context.Context) (domain.Session, error) {
	b.launches++
	if b.launchErr != nil {
		return nil, b.launchErr
	}
	return b.sess, nil
}

func noWait(ctx context.Context, _ time.Duration) bool { return ctx.Err() == nil }

func newExtractor(b domain.Browser) *app.ReviewExtractor {
	return app.NewReviewExtractor(b, app.ExtractorOptions{ScrollIterations: 10, Sleep: noWait})
}

const oneReviewPage = `<html><body>
<div class="m6QErb">
  <div class="jftiEf">
    <div class="d4r55"> Jane Doe </div>
    <span class="kvMYJc"></span><span class="kvMYJc"></span><span class="kvMYJc"></span><span class="kvMYJc"></span><span class="kvMYJc"></span>
    <span class="wiI7pd">Great place!</span>
  </div>
</div>
</body></html>`

// ---- tests ----

func TestExtract_OneWellFormedReview(t *testing.T) {
	sess := &fakeSession{html: oneReviewPage}
	res := newExtractor(&fakeBrowser{sess: sess}).Extract(context.Background(), "test123")

	if res.Outcome != domain.OutcomeOK || res.Err != nil {
		t.Fatalf("unexpected outcome %s: %v", res.Outcome, res.Err)
	}
	if len(res.Reviews) != 1 {
		t.Fatalf("expected 1 review, got %d", len(res.Reviews))
	}
	r := res.Reviews[0]
	if r.Author != "Jane Doe" || r.Rating != 5 || r.Text != "Great place!" {
		t.Fatalf("unexpected review: %+v", r)
	}
	if sess.closeCalls != 1 {
		t.Fatalf("expected session closed once, got %d", sess.closeCalls)
	}
	if len(sess.navigated) != 1 || sess.navigated[0] != "https://www.google.com/maps/place/?q=place_id:test123" {
		t.Fatalf("unexpected navigation: %v", sess.navigated)
	}
	if sess.scrolls != 10 {
		t.Fatalf("expected 10 scrolls, got %d", sess.scrolls)
	}
}

func TestExtract_NoRevealControl(t *testing.T) {
	sess := &fakeSession{html: oneReviewPage, clickErr: domain.ErrElementNotFound}
	res := newExtractor(&fakeBrowser{sess: sess}).Extract(context.Background(), "p1")

	if res.Reviews == nil || len(res.Reviews) != 0 {
		t.Fatalf("expected empty, non-nil reviews, got %#v", res.Reviews)
	}
	if res.Outcome != domain.OutcomeNoRevealControl || !errors.Is(res.Err, domain.ErrElementNotFound) {
		t.Fatalf("unexpected outcome %s: %v", res.Outcome, res.Err)
	}
	if sess.closeCalls != 1 {
		t.Fatalf("expected session closed once, got %d", sess.closeCalls)
	}
	if sess.scrolls != 0 {
		t.Fatalf("must not scroll without a revealed panel")
	}
}

func TestExtract_ClosesSessionOnEveryPath(t *testing.T) {
	cases := map[domain.Outcome]*fakeSession{
		domain.OutcomeNavigationFailed: {navErr: errors.New("net::ERR_NAME_NOT_RESOLVED")},
		domain.OutcomeLoadFailed:       {scrollErr: domain.ErrElementNotFound},
		domain.OutcomeParseFailed:      {htmlErr: errors.New("target closed")},
	}
	for want, sess := range cases {
		res := newExtractor(&fakeBrowser{sess: sess}).Extract(context.Background(), "p")
		if res.Outcome != want {
			t.Fatalf("want %s, got %s (%v)", want, res.Outcome, res.Err)
		}
		if len(res.Reviews) != 0 {
			t.Fatalf("%s: expected no reviews", want)
		}
		if sess.closeCalls != 1 {
			t.Fatalf("%s: expected session closed once, got %d", want, sess.closeCalls)
		}
	}
}

func TestExtract_PanicIsAbsorbed(t *testing.T) {
	sess := &fakeSession{panicOn: "scroll"}
	res := newExtractor(&fakeBrowser{sess: sess}).Extract(context.Background(), "p")

	if res.Outcome != domain.OutcomeParseFailed || res.Err == nil {
		t.Fatalf("unexpected outcome %s: %v", res.Outcome, res.Err)
	}
	if sess.closeCalls != 1 {
		t.Fatalf("expected session closed once, got %d", sess.closeCalls)
	}
}

func TestExtract_LaunchFailure(t *testing.T) {
	b := &fakeBrowser{launchErr: errors.New("chrome not found")}
	res := newExtractor(b).Extract(context.Background(), "p")

	if res.Outcome != domain.OutcomeLaunchFailed || res.Err == nil || len(res.Reviews) != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if !res.Failed() {
		t.Fatalf("launch failure must count as failed")
	}
}

func TestExtract_SkipsMalformedContainers(t *testing.T) {
	html := `<div>
  <div class="jftiEf"><div class="d4r55">A</div><span class="kvMYJc"></span><span class="wiI7pd">one</span></div>
  <div class="jftiEf"><span class="kvMYJc"></span><span class="wiI7pd">no author</span></div>
  <div class="jftiEf"><div class="d4r55">C</div><span class="wiI7pd"></span></div>
</div>`
	sess := &fakeSession{html: html}
	res := newExtractor(&fakeBrowser{sess: sess}).Extract(context.Background(), "p")

	if res.Outcome != domain.OutcomePartial || res.Skipped != 1 {
		t.Fatalf("unexpected outcome %s skipped=%d", res.Outcome, res.Skipped)
	}
	if res.Failed() {
		t.Fatalf("partial parse must not count as failed")
	}
	if len(res.Reviews) != 2 || res.Reviews[0].Author != "A" || res.Reviews[1].Author != "C" {
		t.Fatalf("unexpected reviews: %+v", res.Reviews)
	}
	// empty text element is present, so the review is kept with an empty body and zero stars
	if res.Reviews[1].Text != "" || res.Reviews[1].Rating != 0 {
		t.Fatalf("unexpected second review: %+v", res.Reviews[1])
	}
}

func TestExtract_CancelledDuringSettle(t *testing.T) {
	sess := &fakeSession{html: oneReviewPage}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := newExtractor(&fakeBrowser{sess: sess}).Extract(ctx, "p")

	if !res.Failed() || !errors.Is(res.Err, context.Canceled) {
		t.Fatalf("unexpected result: %s %v", res.Outcome, res.Err)
	}
	if sess.closeCalls != 1 {
		t.Fatalf("expected session closed once, got %d", sess.closeCalls)
	}
}

func TestPlacePageURL_EscapesID(t *testing.T) {
	got := app.PlacePageURL("a b&c")
	if !strings.HasSuffix(got, "place_id:a+b%26c") {
		t.Fatalf("unexpected url %s", got)
	}
}
