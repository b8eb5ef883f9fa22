// Package page defines the narrow rendered-page surface the extractors work
// against, so extraction logic can be unit-tested with a stub instead of a
// real browser.
package page

import (
	"context"
	"fmt"
)

// Page is a fully rendered browser page.
type Page interface {
	// Text returns the visible text of the document body.
	Text(ctx context.Context) (string, error)
	// HTML returns the current serialized DOM.
	HTML(ctx context.Context) (string, error)
	// Evaluate runs a JavaScript expression and unmarshals its result into out.
	Evaluate(ctx context.Context, js string, out interface{}) error
	// URL returns the page's current location (after redirects).
	URL(ctx context.Context) (string, error)
	// Title returns the document title.
	Title(ctx context.Context) (string, error)
}

// Snapshot is a point-in-time capture of a rendered page. Extraction
// strategies are pure functions over a Snapshot.
type Snapshot struct {
	Text  string
	HTML  string
	URL   string
	Title string
}

// textNodesJS joins every text node in the body. It sees through rendering
// quirks where innerText comes back empty on hydrated pages.
const textNodesJS = `
	(function() {
		function getTextNodes(node) {
			let out = [];
			if (node.nodeType === 3) {
				out.push(node.textContent.trim());
			} else {
				for (let child of node.childNodes) {
					out = out.concat(getTextNodes(child));
				}
			}
			return out;
		}
		return getTextNodes(document.body).filter(t => t.length > 0).join('\n');
	})()
`

// Capture takes a best-effort snapshot of p. Individual field failures are
// tolerated; an error is returned only when neither text nor HTML could be
// read, since the extractors have nothing to work with then.
func Capture(ctx context.Context, p Page) (Snapshot, error) {
	var snap Snapshot

	var joined string
	if err := p.Evaluate(ctx, textNodesJS, &joined); err == nil && joined != "" {
		snap.Text = joined
	} else if text, err := p.Text(ctx); err == nil {
		snap.Text = text
	}

	if html, err := p.HTML(ctx); err == nil {
		snap.HTML = html
	}
	if snap.Text == "" && snap.HTML == "" {
		return snap, fmt.Errorf("page yielded neither text nor html")
	}

	if u, err := p.URL(ctx); err == nil {
		snap.URL = u
	}
	if t, err := p.Title(ctx); err == nil {
		snap.Title = t
	}
	return snap, nil
}
