// internal/agent/analyst.go
package agent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/lodestar-research/lodestar/api/schemas"
	"github.com/lodestar-research/lodestar/internal/llmutil"
)

const summarizePromptTemplate = `Summarize the following web page content in 2-3 sentences, focusing on anything relevant to "%s" (%s). Respond with plain text only.

%s`

const classifyPromptTemplate = `You are a financial news analyst. Classify the following content about "%s".
Respond with EXACTLY ONE JSON object:
{"signal": "Positive|Negative|Neutral", "title": "short headline", "body": "2-3 sentence summary"}

%s`

const maxAnalysisChars = 6000

// Analyst runs the secondary content pipeline: page summaries and stored
// entry classification. Its failures are reported, never fatal.
type Analyst struct {
	client schemas.LLMClient
	logger *zap.Logger
}

// NewAnalyst builds an analyst over the shared decision-service client.
func NewAnalyst(client schemas.LLMClient, logger *zap.Logger) *Analyst {
	return &Analyst{client: client, logger: logger.Named("analyst")}
}

// Summarize condenses page content for the context record.
func (a *Analyst) Summarize(ctx context.Context, subject, topic, content string) (string, error) {
	content = clip(content, maxAnalysisChars)
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("agent: no content to summarize")
	}

	raw, err := a.client.GenerateResponse(ctx, schemas.GenerationRequest{
		UserPrompt: fmt.Sprintf(summarizePromptTemplate, subject, topic, content),
		Options:    schemas.GenerationOptions{Temperature: 0.3},
	})
	if err != nil {
		return "", fmt.Errorf("agent: summarize failed: %w", err)
	}
	return strings.TrimSpace(raw), nil
}

// classification is the strict shape the classify prompt demands.
type classification struct {
	Signal string `json:"signal"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

// ClassifyEntry turns page content into a knowledge-store entry for the
// subject. The signal defaults to neutral when the model returns anything
// outside the allowed set.
func (a *Analyst) ClassifyEntry(ctx context.Context, subject, title, content string) (schemas.DBEntry, error) {
	content = clip(content, maxAnalysisChars)

	raw, err := a.client.GenerateResponse(ctx, schemas.GenerationRequest{
		UserPrompt: fmt.Sprintf(classifyPromptTemplate, subject, title+"\n\n"+content),
		Options:    schemas.GenerationOptions{Temperature: 0.2, ForceJSONFormat: true},
	})
	if err != nil {
		return schemas.DBEntry{}, fmt.Errorf("agent: classification failed: %w", err)
	}

	payload, err := llmutil.ExtractJSONObject(llmutil.StripCodeFences(raw))
	if err != nil {
		return schemas.DBEntry{}, fmt.Errorf("agent: classification returned no JSON: %w", err)
	}
	var parsed classification
	if err := json.UnmarshalFromString(payload, &parsed); err != nil {
		return schemas.DBEntry{}, fmt.Errorf("agent: decode classification: %w", err)
	}

	entry := schemas.DBEntry{
		Ticker: subject,
		Signal: normalizeSignal(parsed.Signal),
		Title:  strings.TrimSpace(parsed.Title),
		Body:   strings.TrimSpace(parsed.Body),
	}
	if entry.Title == "" {
		entry.Title = strings.TrimSpace(title)
	}
	return entry, nil
}

func normalizeSignal(s string) schemas.Signal {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "positive":
		return schemas.SignalPositive
	case "negative":
		return schemas.SignalNegative
	default:
		return schemas.SignalNeutral
	}
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
