// internal/crawler/errors.go
// Package crawler drives the decide-act-record loop over a set of sources
// and aggregates the results into a session.
package crawler

import "errors"

var (
	// ErrSourceUnreachable aborts a source when its initial navigation fails.
	ErrSourceUnreachable = errors.New("crawler: source unreachable")
	// ErrBudgetExhausted terminates a source that used all its steps.
	ErrBudgetExhausted = errors.New("crawler: step budget exhausted")
	// ErrNoSources rejects a session with an empty source list.
	ErrNoSources = errors.New("crawler: no sources to crawl")
)
