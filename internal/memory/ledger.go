// internal/memory/ledger.go
// Package memory persists everything a crawl session learns: step records,
// thoughts, extracted articles, context records, and store entries. All
// writes go to one session directory so a run can be audited afterwards.
package memory

import (
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/lodestar-research/lodestar/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Ledger owns one session directory. All methods are safe for concurrent use.
type Ledger struct {
	dir    string
	logger *zap.Logger

	mu       sync.Mutex
	thoughts []schemas.ThoughtEntry
	steps    []schemas.StepRecord
	articles map[string]struct{}
	insights *os.File
}

// NewLedger creates the session directory under dataDir, named from the
// subject and a timestamp, and opens the insight log.
func NewLedger(dataDir, subject string, logger *zap.Logger) (*Ledger, error) {
	stamp := time.Now().UTC().Format("20060102_150405")
	dir := filepath.Join(dataDir, fmt.Sprintf("%s_%s", slugify(subject), stamp))
	if err := os.MkdirAll(filepath.Join(dir, "articles"), 0o755); err != nil {
		return nil, fmt.Errorf("memory: create session dir: %w", err)
	}

	insights, err := os.OpenFile(filepath.Join(dir, "insights.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("memory: open insight log: %w", err)
	}

	l := &Ledger{
		dir:      dir,
		logger:   logger.Named("ledger"),
		articles: make(map[string]struct{}),
		insights: insights,
	}
	l.logger.Info("Session ledger opened.", zap.String("dir", dir))
	return l, nil
}

// Dir returns the session directory path.
func (l *Ledger) Dir() string { return l.dir }

// RecordStep appends a step record and rewrites steps.json.
func (l *Ledger) RecordStep(record schemas.StepRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.steps = append(l.steps, record)
	return l.writeJSON("steps.json", l.steps)
}

// RecordThought appends a thought to thoughts.json and the human-readable
// insight log.
func (l *Ledger) RecordThought(thought schemas.ThoughtEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.thoughts = append(l.thoughts, thought)
	if err := l.writeJSON("thoughts.json", l.thoughts); err != nil {
		return err
	}
	line := fmt.Sprintf("[%s] (%s, importance %d) %s\n",
		thought.Timestamp.Format(time.RFC3339), thought.Sentiment, thought.Importance, thought.Text)
	if _, err := l.insights.WriteString(line); err != nil {
		return fmt.Errorf("memory: append insight: %w", err)
	}
	return nil
}

// SaveArticle persists an article keyed by the hash of its URL. Saving the
// same URL twice overwrites in place, so repeat extractions stay idempotent.
func (l *Ledger) SaveArticle(record schemas.ArticleRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	hash := HashURL(record.URL)
	l.articles[hash] = struct{}{}
	name := filepath.Join("articles", fmt.Sprintf("article_%s.json", hash))
	return l.writeJSON(name, record)
}

// ArticleCount reports how many distinct URLs have articles saved.
func (l *Ledger) ArticleCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.articles)
}

// SaveContext persists the context record for one URL transition.
func (l *Ledger) SaveContext(sourceIdx int, record schemas.ContextRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	name := fmt.Sprintf("context_source%d_step%d.json", sourceIdx, record.Step)
	return l.writeJSON(name, record)
}

// SaveDBEntry persists the local copy of a knowledge-store entry for one URL
// transition.
func (l *Ledger) SaveDBEntry(sourceIdx, step int, entry schemas.DBEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	name := fmt.Sprintf("db_entry_source%d_step%d.json", sourceIdx, step)
	return l.writeJSON(name, entry)
}

// SaveScreenshot writes a step screenshot and returns its relative path.
func (l *Ledger) SaveScreenshot(sourceIdx, step int, png []byte) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	name := fmt.Sprintf("screenshot_source%d_step%d.png", sourceIdx, step)
	if err := os.WriteFile(filepath.Join(l.dir, name), png, 0o644); err != nil {
		return "", fmt.Errorf("memory: write screenshot: %w", err)
	}
	return name, nil
}

// InsightsText renders the recorded thoughts as a plain-text block for
// inclusion in decision prompts. Empty when nothing has been recorded.
func (l *Ledger) InsightsText() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.thoughts) == 0 {
		return ""
	}
	var b strings.Builder
	for _, thought := range l.thoughts {
		fmt.Fprintf(&b, "- (%s) %s\n", thought.Sentiment, thought.Text)
	}
	return b.String()
}

// ThoughtCount reports how many thoughts have been recorded.
func (l *Ledger) ThoughtCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.thoughts)
}

// Finalize writes the session result and closes the ledger. It is called
// unconditionally at session end, including on failure paths.
func (l *Ledger) Finalize(result schemas.SessionResult) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	err := l.writeJSON("session.json", result)
	if cerr := l.insights.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("memory: close insight log: %w", cerr)
	}
	l.logger.Info("Session ledger finalized.",
		zap.String("dir", l.dir), zap.Bool("success", result.Success))
	return err
}

// writeJSON marshals v and writes it under the session dir. Callers hold the
// lock.
func (l *Ledger) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("memory: marshal %s: %w", name, err)
	}
	if err := os.WriteFile(filepath.Join(l.dir, name), data, 0o644); err != nil {
		return fmt.Errorf("memory: write %s: %w", name, err)
	}
	return nil
}

// HashURL returns the FNV-1a 64-bit hash of the URL in hex. Used to key
// article files so one URL maps to exactly one file.
func HashURL(url string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(url))
	return fmt.Sprintf("%016x", h.Sum64())
}

// slugify reduces a subject to a filesystem-safe directory prefix.
func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_', r == '.':
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "session"
	}
	return b.String()
}
