package page

import (
	"context"
	"time"
)

// Browser is a Page that can also be driven to a URL. The chromedp session
// satisfies it; tests use a stub.
type Browser interface {
	Page
	Navigate(ctx context.Context, url string) error
	WaitReady(ctx context.Context, minTextLen int, maxWait time.Duration)
}
