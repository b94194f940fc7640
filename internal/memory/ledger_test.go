// internal/memory/ledger_test.go
package memory

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/lodestar-research/lodestar/api/schemas"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	ledger, err := NewLedger(t.TempDir(), "ACME Corp", zaptest.NewLogger(t))
	require.NoError(t, err)
	return ledger
}

func TestNewLedger_CreatesSessionLayout(t *testing.T) {
	ledger := newTestLedger(t)

	assert.Contains(t, filepath.Base(ledger.Dir()), "acme_corp_")
	info, err := os.Stat(filepath.Join(ledger.Dir(), "articles"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	_, err = os.Stat(filepath.Join(ledger.Dir(), "insights.log"))
	require.NoError(t, err)
}

func TestLedger_SaveArticle_IdempotentPerURL(t *testing.T) {
	ledger := newTestLedger(t)

	first := schemas.ArticleRecord{URL: "https://example.com/a", Title: "v1", Content: "old"}
	require.NoError(t, ledger.SaveArticle(first))
	second := schemas.ArticleRecord{URL: "https://example.com/a", Title: "v2", Content: "new"}
	require.NoError(t, ledger.SaveArticle(second))
	other := schemas.ArticleRecord{URL: "https://example.com/b", Title: "other"}
	require.NoError(t, ledger.SaveArticle(other))

	entries, err := os.ReadDir(filepath.Join(ledger.Dir(), "articles"))
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, 2, ledger.ArticleCount())

	data, err := os.ReadFile(filepath.Join(ledger.Dir(), "articles",
		"article_"+HashURL("https://example.com/a")+".json"))
	require.NoError(t, err)
	var got schemas.ArticleRecord
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "v2", got.Title)
}

func TestLedger_RecordThought(t *testing.T) {
	ledger := newTestLedger(t)

	require.NoError(t, ledger.RecordThought(schemas.ThoughtEntry{
		Text:       "guidance raised",
		Sentiment:  "positive",
		Importance: 7,
		Timestamp:  time.Now().UTC(),
	}))
	assert.Equal(t, 1, ledger.ThoughtCount())

	log, err := os.ReadFile(filepath.Join(ledger.Dir(), "insights.log"))
	require.NoError(t, err)
	assert.Contains(t, string(log), "guidance raised")
	assert.Contains(t, string(log), "importance 7")

	var thoughts []schemas.ThoughtEntry
	data, err := os.ReadFile(filepath.Join(ledger.Dir(), "thoughts.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &thoughts))
	require.Len(t, thoughts, 1)

	assert.Contains(t, ledger.InsightsText(), "(positive) guidance raised")
}

func TestLedger_InsightsTextEmpty(t *testing.T) {
	ledger := newTestLedger(t)
	assert.Empty(t, ledger.InsightsText())
}

func TestLedger_TransitionFiles(t *testing.T) {
	ledger := newTestLedger(t)

	require.NoError(t, ledger.SaveContext(0, schemas.ContextRecord{Step: 3, URL: "https://example.com"}))
	require.NoError(t, ledger.SaveDBEntry(0, 3, schemas.DBEntry{Ticker: "ACME", Signal: schemas.SignalNeutral}))

	_, err := os.Stat(filepath.Join(ledger.Dir(), "context_source0_step3.json"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(ledger.Dir(), "db_entry_source0_step3.json"))
	require.NoError(t, err)
}

func TestLedger_Finalize(t *testing.T) {
	ledger := newTestLedger(t)
	require.NoError(t, ledger.RecordStep(schemas.StepRecord{Step: 1, Outcome: "navigated"}))

	require.NoError(t, ledger.Finalize(schemas.SessionResult{
		SessionID: "s1",
		Subject:   "ACME Corp",
		Success:   true,
	}))

	data, err := os.ReadFile(filepath.Join(ledger.Dir(), "session.json"))
	require.NoError(t, err)
	var result schemas.SessionResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.True(t, result.Success)
	assert.Equal(t, "ACME Corp", result.Subject)
}

func TestHashURL_StableAndDistinct(t *testing.T) {
	a := HashURL("https://example.com/a")
	assert.Equal(t, a, HashURL("https://example.com/a"))
	assert.NotEqual(t, a, HashURL("https://example.com/b"))
	assert.Len(t, a, 16)
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "acme_corp", slugify("ACME Corp"))
	assert.Equal(t, "btc_usd", slugify("BTC-USD"))
	assert.Equal(t, "session", slugify("!!!"))
}
