// internal/agent/decider.go
package agent

import (
	"context"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/lodestar-research/lodestar/api/schemas"
	"github.com/lodestar-research/lodestar/internal/llmutil"
	"github.com/lodestar-research/lodestar/internal/page"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DecisionParseError reports model output that contained no usable action.
// The raw output is preserved for the step record.
type DecisionParseError struct {
	Raw   string
	Cause error
}

func (e *DecisionParseError) Error() string {
	return fmt.Sprintf("agent: could not parse decision: %v", e.Cause)
}

func (e *DecisionParseError) Unwrap() error { return e.Cause }

const systemPromptTemplate = `You are an autonomous web research agent investigating "%s" with a focus on %s.
Your goal: %s

Each turn you receive the current page state and must respond with EXACTLY ONE JSON object choosing your next action. Respond with the JSON object only.

Available actions:
  {"action": "navigate", "url": "https://...", "reasoning": "..."}
  {"action": "type", "selector": "#q", "text": "query", "reasoning": "..."}
  {"action": "press_enter", "selector": "#q", "reasoning": "..."}
  {"action": "click", "selector": "#link", "reasoning": "..."}
  {"action": "wait", "selector": "#results", "timeoutMs": 5000, "reasoning": "..."}
  {"action": "scroll", "direction": "down", "pixels": 600, "reasoning": "..."}
  {"action": "extract_article", "reasoning": "..."}
  {"action": "record_thought", "thought": "...", "sentiment": "positive|negative|neutral", "importance": 5, "reasoning": "..."}
  {"action": "done", "summary": "...", "reasoning": "..."}

Guidance:
- Prefer extract_article when the page is a full article relevant to the goal.
- Use record_thought to capture notable findings that are not full articles.
- Use done when this source is exhausted or the goal is met for it.`

const stuckNotice = `
IMPORTANT: your recent actions have not changed the page (%d repeats). Do something DIFFERENT: strongly prefer a navigate action to one of the links listed above, or finish with done.`

// Decider asks the decision service for the next action given the current
// page snapshot and recent history.
type Decider struct {
	client  schemas.LLMClient
	temp    float32
	logger  *zap.Logger
	subject string
	topic   string
	goal    string
}

// NewDecider builds a decider for one research assignment.
func NewDecider(client schemas.LLMClient, temperature float32, subject, topic, goal string, logger *zap.Logger) *Decider {
	return &Decider{
		client:  client,
		temp:    temperature,
		logger:  logger.Named("decider"),
		subject: subject,
		topic:   topic,
		goal:    goal,
	}
}

// Decide produces the next action. The snapshot and accumulated insights are
// rendered into the user prompt; stuckCount > 0 adds an explicit instruction
// biasing the model toward navigating to one of the snapshot's links. The
// returned action always carries the raw model output in Raw. Output that
// parses as JSON but names an unrecognized action comes back as
// ActionUnknown rather than an error so the caller can record and skip it.
func (d *Decider) Decide(ctx context.Context, snap schemas.PageSnapshot, history *History, insights string, stuckCount int) (schemas.Action, error) {
	userPrompt := page.DescribeSnapshot(snap)
	if insights != "" {
		userPrompt += "\nInsights recorded so far:\n" + insights
	}
	if stuckCount > 0 {
		userPrompt += fmt.Sprintf(stuckNotice, stuckCount)
	}

	raw, err := d.client.GenerateResponse(ctx, schemas.GenerationRequest{
		SystemPrompt: fmt.Sprintf(systemPromptTemplate, d.subject, d.topic, d.goal),
		History:      history.Turns(),
		UserPrompt:   userPrompt,
		Options: schemas.GenerationOptions{
			Temperature:     d.temp,
			ForceJSONFormat: true,
		},
	})
	if err != nil {
		return schemas.Action{}, fmt.Errorf("agent: decision request failed: %w", err)
	}

	action, err := ParseAction(raw)
	if err != nil {
		return schemas.Action{}, err
	}

	d.logger.Debug("Decision received.",
		zap.String("action", string(action.Type)),
		zap.String("reasoning", action.Reasoning))
	return action, nil
}

// ParseAction extracts and decodes the first JSON object in raw model output.
func ParseAction(raw string) (schemas.Action, error) {
	payload, err := llmutil.ExtractJSONObject(llmutil.StripCodeFences(raw))
	if err != nil {
		return schemas.Action{}, &DecisionParseError{Raw: raw, Cause: err}
	}

	var action schemas.Action
	if err := json.UnmarshalFromString(payload, &action); err != nil {
		return schemas.Action{}, &DecisionParseError{Raw: raw, Cause: err}
	}
	action.Raw = raw

	switch action.Type {
	case schemas.ActionNavigate, schemas.ActionTypeText, schemas.ActionPressEnter,
		schemas.ActionClick, schemas.ActionWait, schemas.ActionScroll,
		schemas.ActionExtractArticle, schemas.ActionRecordThought, schemas.ActionDone:
		return action, nil
	default:
		action.Type = schemas.ActionUnknown
		return action, nil
	}
}

// RecordExchange appends the snapshot summary and the chosen action to the
// history so the next decision sees both sides of the turn.
func (d *Decider) RecordExchange(history *History, snap schemas.PageSnapshot, action schemas.Action) {
	summary := fmt.Sprintf("Page %q (%s)", snap.Title, snap.URL)
	history.Add("user", summary)

	reply := action.Raw
	if strings.TrimSpace(reply) == "" {
		reply = string(action.Type)
	}
	history.Add("assistant", reply)
}
