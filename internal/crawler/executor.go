// internal/crawler/executor.go
package crawler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lodestar-research/lodestar/api/schemas"
	"github.com/lodestar-research/lodestar/internal/page"
)

const (
	defaultWait         = 2 * time.Second
	maxWait             = 30 * time.Second
	defaultScrollPixels = 600
)

// Outcome is the result of executing one action. The executor never persists
// anything itself; the runner records outcomes through the ledger.
type Outcome struct {
	// Text is a short human-readable description for the step record.
	Text string
	// Article is set when the action extracted an article.
	Article *schemas.ArticleRecord
	// Thought is set when the action recorded a thought.
	Thought *schemas.ThoughtEntry
	// Done signals that the source is finished.
	Done bool
	// Summary carries the model's closing summary when Done is set.
	Summary string
}

// Executor applies decided actions to a browser session.
type Executor struct {
	session schemas.BrowserSession
	logger  *zap.Logger
}

// NewExecutor binds an executor to one session.
func NewExecutor(session schemas.BrowserSession, logger *zap.Logger) *Executor {
	return &Executor{session: session, logger: logger.Named("executor")}
}

// Execute dispatches one action. Unknown actions are skipped with a recorded
// outcome rather than an error, so a confused model costs one step, not the
// source.
func (e *Executor) Execute(ctx context.Context, action schemas.Action) (Outcome, error) {
	switch action.Type {
	case schemas.ActionNavigate:
		if action.URL == "" {
			return Outcome{}, fmt.Errorf("crawler: navigate action missing url")
		}
		if err := e.session.Navigate(ctx, action.URL); err != nil {
			return Outcome{}, err
		}
		return Outcome{Text: "navigated to " + action.URL}, nil

	case schemas.ActionTypeText:
		if action.Selector == "" {
			return Outcome{}, fmt.Errorf("crawler: type action missing selector")
		}
		if err := e.session.Type(ctx, action.Selector, action.Text); err != nil {
			return Outcome{}, err
		}
		return Outcome{Text: fmt.Sprintf("typed %q into %s", action.Text, action.Selector)}, nil

	case schemas.ActionPressEnter:
		if action.Selector == "" {
			return Outcome{}, fmt.Errorf("crawler: press_enter action missing selector")
		}
		if err := e.session.PressEnter(ctx, action.Selector); err != nil {
			return Outcome{}, err
		}
		return Outcome{Text: "pressed enter in " + action.Selector}, nil

	case schemas.ActionClick:
		if action.Selector == "" {
			return Outcome{}, fmt.Errorf("crawler: click action missing selector")
		}
		if err := e.session.Click(ctx, action.Selector); err != nil {
			return Outcome{}, err
		}
		return Outcome{Text: "clicked " + action.Selector}, nil

	case schemas.ActionWait:
		if action.Selector != "" {
			// The session applies its default wait when no timeout is given.
			// Selector timeouts surface as execution errors.
			timeout := time.Duration(action.TimeoutMs) * time.Millisecond
			if err := e.session.WaitVisible(ctx, action.Selector, timeout); err != nil {
				return Outcome{}, err
			}
			return Outcome{Text: fmt.Sprintf("waited for %s", action.Selector)}, nil
		}
		d := waitDuration(action.TimeoutMs)
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return Outcome{}, ctx.Err()
		}
		return Outcome{Text: fmt.Sprintf("waited %s", d)}, nil

	case schemas.ActionScroll:
		pixels := action.Pixels
		if pixels <= 0 {
			pixels = defaultScrollPixels
		}
		if action.Direction == "up" {
			pixels = -pixels
		}
		if err := e.session.ScrollBy(ctx, pixels); err != nil {
			return Outcome{}, err
		}
		return Outcome{Text: fmt.Sprintf("scrolled %d pixels", pixels)}, nil

	case schemas.ActionExtractArticle:
		record, err := page.ExtractArticle(ctx, e.session, e.logger)
		if err != nil {
			// A degraded record still comes back; surface it so the runner
			// can keep it while counting the step as failed.
			return Outcome{Text: "article extraction degraded", Article: &record}, err
		}
		return Outcome{Text: "extracted article " + record.URL, Article: &record}, nil

	case schemas.ActionRecordThought:
		if action.Thought == "" {
			return Outcome{}, fmt.Errorf("crawler: record_thought action missing thought")
		}
		thought := schemas.ThoughtEntry{
			Timestamp:  time.Now().UTC(),
			Sentiment:  action.Sentiment,
			Importance: action.Importance,
			Text:       action.Thought,
		}
		return Outcome{Text: "recorded thought", Thought: &thought}, nil

	case schemas.ActionDone:
		return Outcome{Text: "source complete", Done: true, Summary: action.Summary}, nil

	default:
		e.logger.Warn("Skipping unrecognized action.", zap.String("raw", action.Raw))
		return Outcome{Text: "skipped unrecognized action"}, nil
	}
}

func waitDuration(timeoutMs int) time.Duration {
	if timeoutMs <= 0 {
		return defaultWait
	}
	d := time.Duration(timeoutMs) * time.Millisecond
	if d > maxWait {
		return maxWait
	}
	return d
}
