package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"mapigator/internal/domain"
	"mapigator/internal/shared"
)

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"

type Options struct {
	Headless        bool
	ExecPath        string // empty: let chromedp find Chrome
	Width, Height   int
	UserAgent       string
	NavigateTimeout time.Duration
}

func OptionsFrom(cfg shared.Config) Options {
	return Options{
		Headless: cfg.Headless,
		ExecPath: cfg.ChromePath,
		Width:    cfg.ViewportWidth,
		Height:   cfg.ViewportHeight,
	}
}

// Chrome launches one headless Chrome process per session. Each process gets
// its own throwaway profile directory, so nothing carries over between places.
type Chrome struct {
	opts Options
}

func New(opts Options) *Chrome {
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = 1920, 1080
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.NavigateTimeout <= 0 {
		opts.NavigateTimeout = 45 * time.Second
	}
	return &Chrome{opts: opts}
}

func (c *Chrome) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", c.opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-notifications", true),
		chromedp.WindowSize(c.opts.Width, c.opts.Height),
		chromedp.UserAgent(c.opts.UserAgent),
	)
	if c.opts.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(c.opts.ExecPath))
	}
	return opts
}

// Launch starts the browser. The returned session owns the process; Close
// must be called exactly once.
func (c *Chrome) Launch(ctx context.Context) (domain.Session, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, c.allocatorOptions()...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	// an empty Run allocates the browser, so launch errors surface here
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("start chrome: %w", err)
	}
	return &session{
		ctx:         tabCtx,
		navTimeout:  c.opts.NavigateTimeout,
		tabCancel:   tabCancel,
		allocCancel: allocCancel,
	}, nil
}

type session struct {
	ctx         context.Context
	navTimeout  time.Duration
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc
	closeOnce   sync.Once
	closeErr    error
}

func (s *session) Navigate(url string) error {
	ctx, cancel := context.WithTimeout(s.ctx, s.navTimeout)
	defer cancel()
	return chromedp.Run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

func (s *session) Click(xpath string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	err := chromedp.Run(ctx, chromedp.Click(xpath, chromedp.BySearch, chromedp.NodeVisible))
	if errors.Is(err, context.DeadlineExceeded) && s.ctx.Err() == nil {
		return fmt.Errorf("%w: %s (waited %s)", domain.ErrElementNotFound, xpath, timeout)
	}
	return err
}

func (s *session) ScrollToBottom(selector string) error {
	var found bool
	if err := chromedp.Run(s.ctx, chromedp.Evaluate(scrollScript(selector), &found)); err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %s", domain.ErrElementNotFound, selector)
	}
	return nil
}

func (s *session) HTML() (string, error) {
	var html string
	err := chromedp.Run(s.ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

// Close shuts the browser down and removes its profile directory.
func (s *session) Close() error {
	s.closeOnce.Do(func() {
		// graceful close first; cancelling the allocator kills whatever is left
		if err := chromedp.Cancel(s.ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.closeErr = err
		}
		s.tabCancel()
		s.allocCancel()
	})
	return s.closeErr
}

func scrollScript(selector string) string {
	return fmt.Sprintf(`(function() {
    const el = document.querySelector(%q);
    if (!el) {
        return false;
    }
    el.scrollTop = el.scrollHeight;
    return true;
})()`, selector)
}
