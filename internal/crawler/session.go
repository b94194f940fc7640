// internal/crawler/session.go
package crawler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lodestar-research/lodestar/api/schemas"
	"github.com/lodestar-research/lodestar/internal/agent"
	"github.com/lodestar-research/lodestar/internal/config"
	"github.com/lodestar-research/lodestar/internal/memory"
	"github.com/lodestar-research/lodestar/internal/page"
)

// SessionFactory opens a fresh browser session for one source.
type SessionFactory func(ctx context.Context) (schemas.BrowserSession, error)

// RequestMetadata carries optional per-session overrides.
type RequestMetadata struct {
	MaxStepsPerSource int `json:"maxStepsPerSource,omitempty"`
}

// Request describes one crawl session.
type Request struct {
	SessionID string          `json:"sessionId,omitempty"`
	Subject   string          `json:"subject"`
	Topic     string          `json:"topic"`
	Goal      string          `json:"goal"`
	Sources   []string        `json:"sources"`
	Metadata  RequestMetadata `json:"metadata,omitempty"`
}

// Controller runs complete crawl sessions: one ledger, one decision agent,
// and a sequence of sources each crawled in its own browser session.
type Controller struct {
	cfg      config.Config
	sessions SessionFactory
	llm      schemas.LLMClient
	store    schemas.KnowledgeStore
	logger   *zap.Logger
}

// NewController wires a session controller.
func NewController(cfg config.Config, sessions SessionFactory, llm schemas.LLMClient, store schemas.KnowledgeStore, logger *zap.Logger) *Controller {
	return &Controller{
		cfg:      cfg,
		sessions: sessions,
		llm:      llm,
		store:    store,
		logger:   logger.Named("session"),
	}
}

// Run executes the session and returns its aggregate result. The ledger is
// finalized on every exit path, including cancellation and source failures,
// so a session directory always ends with a session.json.
func (c *Controller) Run(ctx context.Context, req Request) (result schemas.SessionResult, err error) {
	if len(req.Sources) == 0 {
		return result, ErrNoSources
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	result = schemas.SessionResult{
		SessionID: req.SessionID,
		Subject:   req.Subject,
		Topic:     req.Topic,
		Goal:      req.Goal,
		StartedAt: time.Now().UTC(),
	}
	log := c.logger.With(zap.String("session_id", req.SessionID), zap.String("subject", req.Subject))

	ledger, err := memory.NewLedger(c.cfg.DataDir, req.Subject, c.logger)
	if err != nil {
		return result, err
	}

	analyst := agent.NewAnalyst(c.llm, c.logger)
	pipeline := NewPipeline(analyst, ledger, c.store, req.Subject, req.Topic, c.logger)
	decider := agent.NewDecider(c.llm, c.cfg.LLM.Temperature, req.Subject, req.Topic, req.Goal, c.logger)
	extractor := page.NewExtractor(c.cfg.Crawler, c.logger)

	defer func() {
		pipeline.Wait()
		result.ArticlesCollected = ledger.ArticleCount()
		result.ThoughtsRecorded = ledger.ThoughtCount()
		result.FinishedAt = time.Now().UTC()
		if err := ledger.Finalize(result); err != nil {
			log.Error("Failed to finalize session ledger.", zap.Error(err))
		}
	}()

	crawlCfg := c.cfg.Crawler
	if req.Metadata.MaxStepsPerSource > 0 {
		crawlCfg.MaxStepsPerSource = req.Metadata.MaxStepsPerSource
	}

	log.Info("Crawl session starting.", zap.Int("sources", len(req.Sources)))

	for i, url := range req.Sources {
		if ctx.Err() != nil {
			result.Error = ctx.Err().Error()
			break
		}
		task := SourceTask{Index: i, URL: url}

		session, err := c.sessions(ctx)
		if err != nil {
			log.Error("Could not open browser session for source.",
				zap.Int("source", i), zap.Error(err))
			result.Sources = append(result.Sources, schemas.SourceOutcome{
				SourceURL: url, Error: err.Error(),
			})
			continue
		}

		runner := NewRunner(crawlCfg, session, extractor, decider, pipeline, ledger, c.logger)
		outcome := runner.RunSource(ctx, task)
		if err := session.Close(); err != nil {
			log.Warn("Browser session close failed.", zap.Int("source", i), zap.Error(err))
		}

		result.Sources = append(result.Sources, outcome)
		result.SourcesProcessed++
	}

	for _, src := range result.Sources {
		if src.Completed {
			result.Success = true
			break
		}
	}

	log.Info("Crawl session finished.",
		zap.Bool("success", result.Success),
		zap.Int("sources_processed", result.SourcesProcessed))
	return result, nil
}
