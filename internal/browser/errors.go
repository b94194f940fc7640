// internal/browser/errors.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for interaction failures. Callers use errors.Is to tell a
// slow page apart from a missing element.
var (
	ErrNavigation      = errors.New("browser: navigation failed")
	ErrSelectorTimeout = errors.New("browser: timed out waiting for selector")
	ErrNotFound        = errors.New("browser: element not found")
	ErrSessionClosed   = errors.New("browser: session is closed")
)

// classifyInteractionError wraps a raw chromedp error with the matching
// sentinel so callers get a stable taxonomy.
func classifyInteractionError(err error, selector string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %q", ErrSelectorTimeout, selector)
	}
	msg := err.Error()
	if strings.Contains(msg, "could not find node") || strings.Contains(msg, "no nodes") {
		return fmt.Errorf("%w: %q", ErrNotFound, selector)
	}
	return fmt.Errorf("browser: interaction with %q failed: %w", selector, err)
}
