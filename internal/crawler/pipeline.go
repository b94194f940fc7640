// internal/crawler/pipeline.go
package crawler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lodestar-research/lodestar/api/schemas"
	"github.com/lodestar-research/lodestar/internal/agent"
	"github.com/lodestar-research/lodestar/internal/memory"
)

const summaryFallback = "(summary unavailable)"

const storeInsertTimeout = 20 * time.Second

// Pipeline runs the secondary analysis that fires once per URL transition:
// a context record and a knowledge-store entry. Every failure inside it is
// logged and absorbed; the crawl loop never stops because analysis or
// storage misbehaved.
type Pipeline struct {
	analyst *agent.Analyst
	ledger  *memory.Ledger
	store   schemas.KnowledgeStore
	subject string
	topic   string
	logger  *zap.Logger

	wg sync.WaitGroup
}

// NewPipeline wires the transition pipeline.
func NewPipeline(analyst *agent.Analyst, ledger *memory.Ledger, store schemas.KnowledgeStore, subject, topic string, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		analyst: analyst,
		ledger:  ledger,
		store:   store,
		subject: subject,
		topic:   topic,
		logger:  logger.Named("pipeline"),
	}
}

// OnTransition records the page the crawl just arrived at. Called exactly
// once per observed URL change: the runner keys it on the transition, so a
// page revisited later in the session produces a new pair of records while
// repeated steps on the same page produce none.
func (p *Pipeline) OnTransition(ctx context.Context, task SourceTask, step int, snap schemas.PageSnapshot, action schemas.Action, outcome string) {
	summary, err := p.analyst.Summarize(ctx, p.subject, p.topic, snap.BodyPreview)
	if err != nil {
		p.logger.Warn("Page summary failed; using placeholder.",
			zap.Int("source", task.Index), zap.Int("step", step), zap.Error(err))
		summary = summaryFallback
	}

	record := schemas.ContextRecord{
		Step:     step,
		Source:   task.Index,
		URL:      snap.URL,
		Title:    snap.Title,
		Summary:  summary,
		Links:    snap.Links,
		Snapshot: snap,
		Action:   action,
		Outcome:  outcome,
	}
	if err := p.ledger.SaveContext(task.Index, record); err != nil {
		p.logger.Error("Failed to persist context record.", zap.Error(err))
	}

	entry, err := p.analyst.ClassifyEntry(ctx, p.subject, snap.Title, snap.BodyPreview)
	if err != nil {
		p.logger.Warn("Classification failed; storing neutral entry.",
			zap.Int("source", task.Index), zap.Int("step", step), zap.Error(err))
		body := "Visited " + snap.URL
		if action.Reasoning != "" {
			body += ": " + action.Reasoning
		}
		entry = schemas.DBEntry{
			Ticker: p.subject,
			Signal: schemas.SignalNeutral,
			Title:  snap.Title,
			Body:   body,
		}
		if entry.Title == "" {
			entry.Title = snap.URL
		}
	}
	if entry.Time == "" {
		entry.Time = time.Now().UTC().Format(time.RFC3339)
	}
	if err := p.ledger.SaveDBEntry(task.Index, step, entry); err != nil {
		p.logger.Error("Failed to persist store entry locally.", zap.Error(err))
	}

	if !p.store.Enabled() {
		return
	}
	// Fire and forget: the remote insert rides its own timeout so a slow
	// store cannot hold up the next step.
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		insertCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeInsertTimeout)
		defer cancel()
		if err := p.store.Insert(insertCtx, entry); err != nil {
			p.logger.Warn("Knowledge store insert failed.",
				zap.String("title", entry.Title), zap.Error(err))
		}
	}()
}

// Wait blocks until all in-flight store inserts finish. Called by the
// session finalizer.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}
