// internal/agent/history.go
// Package agent houses the decision-making side of the crawler: conversation
// history, the action decider, and the content analyst.
package agent

import (
	"github.com/lodestar-research/lodestar/api/schemas"
)

const defaultHistoryWindow = 8

// History is a bounded window of recent conversation turns. When full, the
// oldest turn is dropped so the decision prompt stays a fixed size.
type History struct {
	window int
	turns  []schemas.ChatTurn
}

// NewHistory creates a history bounded to window entries. Non-positive
// windows fall back to the default.
func NewHistory(window int) *History {
	if window <= 0 {
		window = defaultHistoryWindow
	}
	return &History{window: window}
}

// Add appends a turn, evicting the oldest if the window is full.
func (h *History) Add(role, content string) {
	h.turns = append(h.turns, schemas.ChatTurn{Role: role, Content: content})
	if len(h.turns) > h.window {
		h.turns = h.turns[len(h.turns)-h.window:]
	}
}

// Turns returns a copy of the current window, oldest first.
func (h *History) Turns() []schemas.ChatTurn {
	out := make([]schemas.ChatTurn, len(h.turns))
	copy(out, h.turns)
	return out
}

// Len reports the number of retained turns.
func (h *History) Len() int { return len(h.turns) }

// Reset discards all turns.
func (h *History) Reset() { h.turns = nil }
