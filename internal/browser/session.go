// internal/browser/session.go
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/lodestar-research/lodestar/api/schemas"
	"github.com/lodestar-research/lodestar/internal/config"
)

// Static assertion.
var _ schemas.BrowserSession = (*Session)(nil)

const (
	clickSettle    = 2 * time.Second
	enterSettle    = 3 * time.Second
	typeWait       = 3 * time.Second
	scrollSettle   = 500 * time.Millisecond
	defaultVisible = 5 * time.Second
)

// Session wraps a single browser tab. All interaction methods honor the
// caller's context in addition to their own operation timeouts.
type Session struct {
	ctx     context.Context
	cancel  context.CancelFunc
	network config.NetworkConfig
	logger  *zap.Logger

	// runActions points at chromedp.Run; tests swap it for a mock.
	runActions func(ctx context.Context, actions ...chromedp.Action) error

	mu     sync.Mutex
	closed bool
}

// run executes the actions against the tab context, bounded by both the
// optional operation timeout and the caller's context. The tab context is
// always cancelable so a caller deadline interrupts an in-flight CDP call
// instead of waiting it out.
func (s *Session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.mu.Unlock()

	var runCtx context.Context
	var cancel context.CancelFunc
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(s.ctx, timeout)
	} else {
		runCtx, cancel = context.WithCancel(s.ctx)
	}
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.runActions(runCtx, actions...) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		cancel()
		<-done
		return ctx.Err()
	}
}

// settleAfter waits for the next page load event or the settle duration,
// whichever comes first. Interactions that trigger a navigation finish as
// soon as the new document loads instead of always paying the full settle.
func (s *Session) settleAfter(settle time.Duration) chromedp.ActionFunc {
	return func(ctx context.Context) error {
		loaded := make(chan struct{}, 1)
		listenCtx, stop := context.WithCancel(ctx)
		defer stop()
		if chromedp.FromContext(listenCtx) != nil {
			chromedp.ListenTarget(listenCtx, func(ev any) {
				if _, ok := ev.(*page.EventLoadEventFired); ok {
					select {
					case loaded <- struct{}{}:
					default:
					}
				}
			})
		}

		timer := time.NewTimer(settle)
		defer timer.Stop()
		select {
		case <-loaded:
			return nil
		case <-timer.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Navigate loads the URL, waits for the load event within the configured
// navigation timeout, then sleeps briefly so late scripts can settle.
func (s *Session) Navigate(ctx context.Context, url string) error {
	err := s.run(ctx, s.network.NavigationTimeout+s.network.PostLoadWait,
		chromedp.Navigate(url),
		chromedp.Sleep(s.network.PostLoadWait),
	)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrNavigation, url, err)
	}
	s.logger.Debug("Navigation complete.", zap.String("url", url))
	return nil
}

// Click clicks the first match for the selector. The element is given a short
// window to appear before the click; the settle is cut short if the click
// triggers a navigation that finishes loading sooner.
func (s *Session) Click(ctx context.Context, selector string) error {
	err := s.run(ctx, clickSettle+s.network.NavigationTimeout,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery),
		s.settleAfter(clickSettle),
	)
	return classifyInteractionError(err, selector)
}

// Type clears the matched field and types the text into it.
func (s *Session) Type(ctx context.Context, selector, text string) error {
	err := s.run(ctx, typeWait+5*time.Second,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Clear(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, text, chromedp.ByQuery),
	)
	return classifyInteractionError(err, selector)
}

// PressEnter submits the focused field via the Enter key and waits for the
// resulting navigation, up to the settle window.
func (s *Session) PressEnter(ctx context.Context, selector string) error {
	err := s.run(ctx, enterSettle+s.network.NavigationTimeout,
		chromedp.SendKeys(selector, "\r", chromedp.ByQuery),
		s.settleAfter(enterSettle),
	)
	return classifyInteractionError(err, selector)
}

// WaitVisible blocks until the selector is visible or the timeout elapses. A
// zero timeout uses the default wait.
func (s *Session) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = defaultVisible
	}
	err := s.run(ctx, timeout, chromedp.WaitVisible(selector, chromedp.ByQuery))
	return classifyInteractionError(err, selector)
}

// ScrollBy scrolls the window vertically by the given pixel delta.
func (s *Session) ScrollBy(ctx context.Context, pixels int) error {
	script := fmt.Sprintf("window.scrollBy(0, %d)", pixels)
	return s.run(ctx, scrollSettle+5*time.Second,
		chromedp.Evaluate(script, nil),
		chromedp.Sleep(scrollSettle),
	)
}

// Evaluate runs the script in the page and unmarshals the result into out.
func (s *Session) Evaluate(ctx context.Context, script string, out any) error {
	return s.run(ctx, 0, chromedp.Evaluate(script, out))
}

// OuterHTML returns the full serialized document.
func (s *Session) OuterHTML(ctx context.Context) (string, error) {
	var html string
	err := s.run(ctx, 10*time.Second, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	if err != nil {
		return "", fmt.Errorf("browser: capture outer HTML: %w", err)
	}
	return html, nil
}

// CurrentURL returns the tab's current location.
func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	var url string
	if err := s.run(ctx, 5*time.Second, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("browser: read location: %w", err)
	}
	return url, nil
}

// Screenshot captures a full-viewport PNG.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	err := s.run(ctx, 10*time.Second, chromedp.CaptureScreenshot(&buf))
	if err != nil {
		return nil, fmt.Errorf("browser: capture screenshot: %w", err)
	}
	return buf, nil
}

// Close releases the tab. Safe to call multiple times.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.cancel()
	return nil
}
