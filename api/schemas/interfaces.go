package schemas

import (
	"context"
	"time"
)

// BrowserSession is the contract the crawl loop requires from a browser
// driver. Implementations must return distinguishable timeout and not-found
// errors for selector operations.
type BrowserSession interface {
	// Navigate loads the URL, bounded by the driver's navigation timeout.
	Navigate(ctx context.Context, url string) error
	// Click clicks the first element matching selector.
	Click(ctx context.Context, selector string) error
	// Type enters text into the element matching selector.
	Type(ctx context.Context, selector, text string) error
	// PressEnter focuses the element matching selector and sends Enter.
	PressEnter(ctx context.Context, selector string) error
	// WaitVisible blocks until the selector is visible or timeout elapses.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	// ScrollBy applies a signed vertical pixel delta.
	ScrollBy(ctx context.Context, pixels int) error
	// Evaluate runs script in the page and unmarshals the result into out.
	Evaluate(ctx context.Context, script string, out any) error
	// OuterHTML returns the serialized document.
	OuterHTML(ctx context.Context) (string, error)
	// CurrentURL returns the page's current location.
	CurrentURL(ctx context.Context) (string, error)
	// Screenshot captures the viewport as PNG bytes.
	Screenshot(ctx context.Context) ([]byte, error)
	// Close releases the tab and its context.
	Close() error
}

// LLMClient is the outbound text-generation contract. The caller parses
// structured output from the returned free text.
type LLMClient interface {
	GenerateResponse(ctx context.Context, req GenerationRequest) (string, error)
}

// KnowledgeStore forwards derived DBEntry records to long-term storage.
// A store with Enabled() == false accepts Insert calls as no-ops, so the
// crawl loop never needs to special-case missing credentials.
type KnowledgeStore interface {
	Insert(ctx context.Context, entry DBEntry) error
	Enabled() bool
}
