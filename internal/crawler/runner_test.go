// internal/crawler/runner_test.go
package crawler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/lodestar-research/lodestar/api/schemas"
	"github.com/lodestar-research/lodestar/internal/agent"
	"github.com/lodestar-research/lodestar/internal/config"
	"github.com/lodestar-research/lodestar/internal/memory"
	"github.com/lodestar-research/lodestar/internal/page"
)

// scriptedLLM routes analysis prompts to canned answers and serves decision
// prompts from a queue.
type scriptedLLM struct {
	mu        sync.Mutex
	decisions []string
	calls     int
}

var _ schemas.LLMClient = (*scriptedLLM)(nil)

func (s *scriptedLLM) GenerateResponse(_ context.Context, req schemas.GenerationRequest) (string, error) {
	if strings.HasPrefix(req.UserPrompt, "Summarize") {
		return "A short summary of the page.", nil
	}
	if strings.Contains(req.UserPrompt, "financial news analyst") {
		return `{"signal":"Neutral","title":"Classified","body":"Classified body."}`, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.decisions) == 0 {
		return `{"action":"done","summary":"out of script"}`, nil
	}
	next := s.decisions[0]
	s.decisions = s.decisions[1:]
	s.calls++
	return next, nil
}

func testCrawlerConfig() config.CrawlerConfig {
	return config.CrawlerConfig{
		MaxStepsPerSource: 10,
		HistoryWindow:     8,
		LinkCap:           40,
		BodyPreviewChars:  2000,
		SnapshotTimeout:   time.Second,
		StepBackoff:       time.Millisecond,
	}
}

type runnerFixture struct {
	session *fakeSession
	ledger  *memory.Ledger
	runner  *Runner
}

func newRunnerFixture(t *testing.T, llm schemas.LLMClient, session *fakeSession, cfg config.CrawlerConfig) *runnerFixture {
	t.Helper()
	logger := zaptest.NewLogger(t)

	ledger, err := memory.NewLedger(t.TempDir(), "acme", logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ledger.Finalize(schemas.SessionResult{}) })

	analyst := agent.NewAnalyst(llm, logger)
	pipeline := NewPipeline(analyst, ledger, &countingStore{}, "ACME", "stock outlook", logger)
	t.Cleanup(pipeline.Wait)
	decider := agent.NewDecider(llm, 0.2, "ACME", "stock outlook", "collect news", logger)
	extractor := page.NewExtractor(cfg, logger)

	return &runnerFixture{
		session: session,
		ledger:  ledger,
		runner:  NewRunner(cfg, session, extractor, decider, pipeline, ledger, logger),
	}
}

// countingStore records inserted entries.
type countingStore struct {
	mu      sync.Mutex
	entries []schemas.DBEntry
}

var _ schemas.KnowledgeStore = (*countingStore)(nil)

func (c *countingStore) Insert(_ context.Context, entry schemas.DBEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, entry)
	return nil
}

func (c *countingStore) Enabled() bool { return true }

func (c *countingStore) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func contextFiles(t *testing.T, dir string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "context_source*_step*.json"))
	require.NoError(t, err)
	return matches
}

func TestRunner_CompletesOnDone(t *testing.T) {
	llm := &scriptedLLM{decisions: []string{
		`{"action":"scroll","pixels":400,"reasoning":"look around"}`,
		`{"action":"done","summary":"nothing new here"}`,
	}}
	fx := newRunnerFixture(t, llm, newFakeSession(), testCrawlerConfig())

	outcome := fx.runner.RunSource(context.Background(), SourceTask{Index: 0, URL: "https://example.com"})
	assert.True(t, outcome.Completed)
	assert.Equal(t, "nothing new here", outcome.Summary)
	assert.Equal(t, 2, outcome.Steps)
	assert.Equal(t, []string{"https://example.com"}, fx.session.navigations)
}

func TestRunner_SourceUnreachable(t *testing.T) {
	session := newFakeSession()
	session.navErr["https://down.example.com"] = errors.New("connection refused")
	fx := newRunnerFixture(t, &scriptedLLM{}, session, testCrawlerConfig())

	outcome := fx.runner.RunSource(context.Background(), SourceTask{Index: 0, URL: "https://down.example.com"})
	assert.False(t, outcome.Completed)
	assert.Contains(t, outcome.Error, "source unreachable")
	assert.Zero(t, outcome.Steps)
}

func TestRunner_BudgetTerminatesSource(t *testing.T) {
	// The model never says done; three scroll decisions fill the budget.
	llm := &scriptedLLM{decisions: []string{
		`{"action":"scroll"}`, `{"action":"scroll"}`, `{"action":"scroll"}`,
		`{"action":"scroll"}`, `{"action":"scroll"}`,
	}}
	cfg := testCrawlerConfig()
	cfg.MaxStepsPerSource = 3
	fx := newRunnerFixture(t, llm, newFakeSession(), cfg)

	outcome := fx.runner.RunSource(context.Background(), SourceTask{Index: 0, URL: "https://example.com"})
	assert.False(t, outcome.Completed)
	assert.Equal(t, 3, outcome.Steps)
	assert.Equal(t, ErrBudgetExhausted.Error(), outcome.Error)
}

func TestRunner_StepErrorsAreIsolated(t *testing.T) {
	session := newFakeSession()
	session.clickErr["#broken"] = errors.New("element not found")
	llm := &scriptedLLM{decisions: []string{
		`{"action":"click","selector":"#broken"}`,
		`{"action":"done","summary":"finished despite failure"}`,
	}}
	fx := newRunnerFixture(t, llm, session, testCrawlerConfig())

	outcome := fx.runner.RunSource(context.Background(), SourceTask{Index: 0, URL: "https://example.com"})
	assert.True(t, outcome.Completed)
	assert.Equal(t, 2, outcome.Steps)

	// The failed step is still on the record.
	data, err := os.ReadFile(filepath.Join(fx.ledger.Dir(), "steps.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "element not found")
}

func TestRunner_UnparseableDecisionCostsOneStep(t *testing.T) {
	llm := &scriptedLLM{decisions: []string{
		"I have no idea what to do.",
		`{"action":"done","summary":"recovered"}`,
	}}
	fx := newRunnerFixture(t, llm, newFakeSession(), testCrawlerConfig())

	outcome := fx.runner.RunSource(context.Background(), SourceTask{Index: 0, URL: "https://example.com"})
	assert.True(t, outcome.Completed)
	assert.Equal(t, 2, outcome.Steps)

	data, err := os.ReadFile(filepath.Join(fx.ledger.Dir(), "steps.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "decision unparseable")
}

func TestRunner_TransitionRecordedExactlyOncePerURLChange(t *testing.T) {
	session := newFakeSession()
	session.clickTargets["#story"] = "https://example.com/story"
	llm := &scriptedLLM{decisions: []string{
		`{"action":"scroll"}`,                     // same URL, no new transition
		`{"action":"click","selector":"#story"}`,  // moves to /story
		`{"action":"scroll"}`,                     // still /story
		`{"action":"done","summary":"finished"}`,
	}}
	fx := newRunnerFixture(t, llm, session, testCrawlerConfig())

	outcome := fx.runner.RunSource(context.Background(), SourceTask{Index: 0, URL: "https://example.com"})
	require.True(t, outcome.Completed)

	// Two transitions: arrival at the source and the click to /story.
	files := contextFiles(t, fx.ledger.Dir())
	assert.Len(t, files, 2)

	dbFiles, err := filepath.Glob(filepath.Join(fx.ledger.Dir(), "db_entry_source*_step*.json"))
	require.NoError(t, err)
	assert.Len(t, dbFiles, 2)
}

func TestRunner_UnreadableLocationIsNotATransition(t *testing.T) {
	session := newFakeSession()
	// On step 2 the page script and the location are both unreadable; the
	// page recovers on step 3.
	session.evalErrs[2] = errors.New("page unresponsive")
	session.urlErrs[1] = errors.New("page unresponsive")
	llm := &scriptedLLM{decisions: []string{
		`{"action":"scroll"}`,
		`{"action":"scroll"}`,
		`{"action":"done","summary":"finished"}`,
	}}
	fx := newRunnerFixture(t, llm, session, testCrawlerConfig())

	outcome := fx.runner.RunSource(context.Background(), SourceTask{Index: 0, URL: "https://example.com"})
	require.True(t, outcome.Completed)
	assert.Equal(t, 3, outcome.Steps)

	// Only the arrival transition exists: the blackout step reuses the last
	// observed URL, and recovery lands on the same page.
	assert.Len(t, contextFiles(t, fx.ledger.Dir()), 1)
}

func TestRunner_ArticlePersistedOnExtraction(t *testing.T) {
	llm := &scriptedLLM{decisions: []string{
		`{"action":"extract_article","reasoning":"full story"}`,
		`{"action":"done","summary":"got it"}`,
	}}
	fx := newRunnerFixture(t, llm, newFakeSession(), testCrawlerConfig())

	outcome := fx.runner.RunSource(context.Background(), SourceTask{Index: 0, URL: "https://example.com/story"})
	require.True(t, outcome.Completed)
	assert.Equal(t, 1, fx.ledger.ArticleCount())
}

func TestRunner_ContextCancellationStopsLoop(t *testing.T) {
	llm := &scriptedLLM{decisions: []string{`{"action":"scroll"}`}}
	fx := newRunnerFixture(t, llm, newFakeSession(), testCrawlerConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	outcome := fx.runner.RunSource(ctx, SourceTask{Index: 0, URL: "https://example.com"})
	assert.False(t, outcome.Completed)
}
