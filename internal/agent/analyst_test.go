// internal/agent/analyst_test.go
package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/lodestar-research/lodestar/api/schemas"
)

func TestAnalyst_Summarize(t *testing.T) {
	client := &fakeLLM{responses: []string{"  ACME beat earnings and raised guidance.  "}}
	analyst := NewAnalyst(client, zaptest.NewLogger(t))

	summary, err := analyst.Summarize(context.Background(), "ACME", "stock outlook", "long article body here")
	require.NoError(t, err)
	assert.Equal(t, "ACME beat earnings and raised guidance.", summary)
	assert.Contains(t, client.requests[0].UserPrompt, "ACME")
}

func TestAnalyst_SummarizeEmptyContent(t *testing.T) {
	analyst := NewAnalyst(&fakeLLM{}, zaptest.NewLogger(t))
	_, err := analyst.Summarize(context.Background(), "ACME", "topic", "   ")
	require.Error(t, err)
}

func TestAnalyst_ClassifyEntry(t *testing.T) {
	client := &fakeLLM{responses: []string{
		`Here you go: {"signal":"Positive","title":"ACME beats estimates","body":"Revenue above expectations."}`,
	}}
	analyst := NewAnalyst(client, zaptest.NewLogger(t))

	entry, err := analyst.ClassifyEntry(context.Background(), "ACME", "Earnings report", "body text")
	require.NoError(t, err)
	assert.Equal(t, "ACME", entry.Ticker)
	assert.Equal(t, schemas.SignalPositive, entry.Signal)
	assert.Equal(t, "ACME beats estimates", entry.Title)
	assert.Equal(t, "Revenue above expectations.", entry.Body)
}

func TestAnalyst_ClassifyEntry_SignalFallsBackToNeutral(t *testing.T) {
	client := &fakeLLM{responses: []string{`{"signal":"bullish!!","title":"","body":"b"}`}}
	analyst := NewAnalyst(client, zaptest.NewLogger(t))

	entry, err := analyst.ClassifyEntry(context.Background(), "ACME", "Fallback title", "body")
	require.NoError(t, err)
	assert.Equal(t, schemas.SignalNeutral, entry.Signal)
	assert.Equal(t, "Fallback title", entry.Title)
}

func TestAnalyst_ClassifyEntry_NoJSON(t *testing.T) {
	client := &fakeLLM{responses: []string{"cannot classify"}}
	analyst := NewAnalyst(client, zaptest.NewLogger(t))

	_, err := analyst.ClassifyEntry(context.Background(), "ACME", "t", "b")
	require.Error(t, err)
}

func TestNormalizeSignal(t *testing.T) {
	assert.Equal(t, schemas.SignalPositive, normalizeSignal(" POSITIVE "))
	assert.Equal(t, schemas.SignalNegative, normalizeSignal("negative"))
	assert.Equal(t, schemas.SignalNeutral, normalizeSignal("neutral"))
	assert.Equal(t, schemas.SignalNeutral, normalizeSignal("mixed"))
	assert.Equal(t, schemas.SignalNeutral, normalizeSignal(""))
}
