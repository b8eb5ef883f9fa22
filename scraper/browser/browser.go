// Package browser owns the chromedp session. One browser, one tab; every
// navigation blocks until readiness heuristics pass.
package browser

import (
	"context"
	"fmt"
	"time"

	"sensortower-scraper/config"
	"sensortower-scraper/utils"

	"github.com/chromedp/chromedp"
)

// Session is a live headless-browser tab implementing page.Page.
type Session struct {
	cfg    *config.Config
	logger utils.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

// NewSession launches a headless Chrome with the flags the target sites
// tolerate and returns a ready session. Callers must Close it on all paths.
func NewSession(cfg *config.Config, logger utils.Logger) (*Session, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("log-level", "3"), // suppress Chrome logs
		chromedp.UserAgent("Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
		chromedp.WindowSize(1920, 1080),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	ctx, cancelCtx := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	// Start the browser process eagerly so failures surface here, not on
	// the first navigation.
	if err := chromedp.Run(ctx); err != nil {
		cancelCtx()
		cancelAlloc()
		return nil, fmt.Errorf("browser launch failed: %w", err)
	}

	return &Session{
		cfg:    cfg,
		logger: logger,
		ctx:    ctx,
		cancel: func() {
			cancelCtx()
			cancelAlloc()
		},
	}, nil
}

// Close releases the browser process. Safe to call more than once.
func (s *Session) Close() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// run executes actions on the tab under a bounded timeout, bailing out early
// when the caller's context is already done.
func (s *Session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	runCtx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

// Navigate loads url and gives client-side rendering time to settle.
func (s *Session) Navigate(ctx context.Context, url string) error {
	err := s.run(ctx, time.Duration(s.cfg.NavTimeoutMs)*time.Millisecond,
		chromedp.Navigate(url),
		chromedp.Sleep(3*time.Second), // give JS time to render
	)
	if err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

// WaitReady polls the rendered body text until it reaches minTextLen or
// maxWait elapses. This is a heuristic, not a completion proof: a timeout is
// not an error, the extractors simply work with whatever rendered.
func (s *Session) WaitReady(ctx context.Context, minTextLen int, maxWait time.Duration) {
	deadline := time.Now().Add(maxWait)
	for time.Now().Before(deadline) {
		text, err := s.Text(ctx)
		if err == nil && len(text) >= minTextLen {
			return
		}
		select {
		case <-time.After(time.Second):
		case <-ctx.Done():
			return
		}
	}
}

// Text implements page.Page.
func (s *Session) Text(ctx context.Context) (string, error) {
	var text string
	err := s.run(ctx, time.Duration(s.cfg.EvalTimeoutMs)*time.Millisecond,
		chromedp.Text("body", &text, chromedp.ByQuery))
	return text, err
}

// HTML implements page.Page.
func (s *Session) HTML(ctx context.Context) (string, error) {
	var html string
	err := s.run(ctx, time.Duration(s.cfg.EvalTimeoutMs)*time.Millisecond,
		chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

// Evaluate implements page.Page.
func (s *Session) Evaluate(ctx context.Context, js string, out interface{}) error {
	return s.run(ctx, time.Duration(s.cfg.EvalTimeoutMs)*time.Millisecond,
		chromedp.Evaluate(js, out))
}

// URL implements page.Page.
func (s *Session) URL(ctx context.Context) (string, error) {
	var loc string
	err := s.run(ctx, time.Duration(s.cfg.EvalTimeoutMs)*time.Millisecond,
		chromedp.Location(&loc))
	return loc, err
}

// Title implements page.Page.
func (s *Session) Title(ctx context.Context) (string, error) {
	var title string
	err := s.run(ctx, time.Duration(s.cfg.EvalTimeoutMs)*time.Millisecond,
		chromedp.Title(&title))
	return title, err
}
