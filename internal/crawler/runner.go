// internal/crawler/runner.go
package crawler

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/lodestar-research/lodestar/api/schemas"
	"github.com/lodestar-research/lodestar/internal/agent"
	"github.com/lodestar-research/lodestar/internal/config"
	"github.com/lodestar-research/lodestar/internal/memory"
	"github.com/lodestar-research/lodestar/internal/page"
)

// Runner executes the decide-act-record loop for single sources.
type Runner struct {
	cfg       config.CrawlerConfig
	session   schemas.BrowserSession
	extractor *page.Extractor
	decider   *agent.Decider
	executor  *Executor
	pipeline  *Pipeline
	ledger    *memory.Ledger
	logger    *zap.Logger
}

// NewRunner wires a runner over an open browser session.
func NewRunner(cfg config.CrawlerConfig, session schemas.BrowserSession, extractor *page.Extractor,
	decider *agent.Decider, pipeline *Pipeline, ledger *memory.Ledger, logger *zap.Logger) *Runner {
	return &Runner{
		cfg:       cfg,
		session:   session,
		extractor: extractor,
		decider:   decider,
		executor:  NewExecutor(session, logger),
		pipeline:  pipeline,
		ledger:    ledger,
		logger:    logger.Named("runner"),
	}
}

// RunSource crawls one source until the model declares it done, the step
// budget runs out, or the context is cancelled. Individual step failures are
// recorded and absorbed with a short backoff; only the initial navigation is
// fatal to the source.
func (r *Runner) RunSource(ctx context.Context, task SourceTask) schemas.SourceOutcome {
	outcome := schemas.SourceOutcome{SourceURL: task.URL}
	log := r.logger.With(zap.Int("source", task.Index), zap.String("url", task.URL))

	if err := r.session.Navigate(ctx, task.URL); err != nil {
		log.Error("Source navigation failed; skipping source.", zap.Error(err))
		outcome.Error = errors.Join(ErrSourceUnreachable, err).Error()
		return outcome
	}

	history := agent.NewHistory(r.cfg.HistoryWindow)
	prevURL := ""
	stuck := 0
	// The arrival at the source page counts as the first transition.
	lastAction := schemas.Action{Type: schemas.ActionNavigate, URL: task.URL}
	lastOutcome := "navigated to source"

	for step := 1; step <= r.cfg.MaxStepsPerSource; step++ {
		if ctx.Err() != nil {
			outcome.Error = ctx.Err().Error()
			return outcome
		}
		outcome.Steps = step

		snap := r.extractor.Snapshot(ctx, r.session)
		if snap.Degraded && snap.URL == "" {
			// Location unreadable: assume the page did not move so neither
			// stuck detection nor the ledger sees a transition.
			snap.URL = prevURL
		}
		stuck = NextStuckCount(prevURL, snap.URL, stuck)
		if snap.URL != prevURL {
			r.pipeline.OnTransition(ctx, task, step, snap, lastAction, lastOutcome)
			prevURL = snap.URL
		}

		action, err := r.decider.Decide(ctx, snap, history, r.ledger.InsightsText(), stuck)
		if err != nil {
			var parseErr *agent.DecisionParseError
			record := schemas.StepRecord{
				Step: step, Timestamp: time.Now().UTC(), Snapshot: snap, Error: err.Error(),
			}
			if errors.As(err, &parseErr) {
				record.Outcome = "decision unparseable"
				record.Action = schemas.Action{Type: schemas.ActionUnknown, Raw: parseErr.Raw}
			} else {
				record.Outcome = "decision failed"
			}
			r.recordStep(log, record)
			log.Warn("Step failed at decision; backing off.", zap.Int("step", step), zap.Error(err))
			if !r.backoff(ctx) {
				outcome.Error = ctx.Err().Error()
				return outcome
			}
			continue
		}
		r.decider.RecordExchange(history, snap, action)

		stepResult, execErr := r.executor.Execute(ctx, action)
		record := schemas.StepRecord{
			Step:      step,
			Timestamp: time.Now().UTC(),
			Snapshot:  snap,
			Action:    action,
			Outcome:   stepResult.Text,
		}
		if execErr != nil {
			record.Error = execErr.Error()
		}

		if stepResult.Article != nil {
			if err := r.ledger.SaveArticle(*stepResult.Article); err != nil {
				log.Error("Failed to persist article.", zap.Error(err))
			}
		}
		if stepResult.Thought != nil {
			if err := r.ledger.RecordThought(*stepResult.Thought); err != nil {
				log.Error("Failed to persist thought.", zap.Error(err))
			}
		}
		if r.cfg.Screenshots {
			if png, err := r.session.Screenshot(ctx); err == nil {
				if ref, err := r.ledger.SaveScreenshot(task.Index, step, png); err == nil {
					record.ScreenshotRef = ref
				}
			}
		}
		r.recordStep(log, record)

		lastAction = action
		lastOutcome = stepResult.Text

		if execErr != nil {
			log.Warn("Step failed at execution; backing off.",
				zap.Int("step", step), zap.String("action", string(action.Type)), zap.Error(execErr))
			if !r.backoff(ctx) {
				outcome.Error = ctx.Err().Error()
				return outcome
			}
			continue
		}

		if stepResult.Done {
			outcome.Completed = true
			outcome.Summary = stepResult.Summary
			log.Info("Source completed.", zap.Int("steps", step))
			return outcome
		}
	}

	outcome.Error = ErrBudgetExhausted.Error()
	log.Info("Source terminated by step budget.", zap.Int("steps", outcome.Steps))
	return outcome
}

func (r *Runner) recordStep(log *zap.Logger, record schemas.StepRecord) {
	if err := r.ledger.RecordStep(record); err != nil {
		log.Error("Failed to persist step record.", zap.Int("step", record.Step), zap.Error(err))
	}
}

// backoff sleeps the configured step backoff. Returns false when the context
// was cancelled instead.
func (r *Runner) backoff(ctx context.Context) bool {
	select {
	case <-time.After(r.cfg.StepBackoff):
		return true
	case <-ctx.Done():
		return false
	}
}
