package schemas

import "time"

// StepRecord captures one attempted step of the decide-act-record loop. One is
// appended per step regardless of success.
type StepRecord struct {
	Step          int          `json:"step"`
	Timestamp     time.Time    `json:"timestamp"`
	Snapshot      PageSnapshot `json:"snapshot"`
	Action        Action       `json:"action"`
	Outcome       string       `json:"outcome"`
	Error         string       `json:"error,omitempty"`
	ScreenshotRef string       `json:"screenshotRef,omitempty"`
}

// ThoughtEntry is one appended insight from a record_thought action.
type ThoughtEntry struct {
	Timestamp  time.Time `json:"timestamp"`
	Sentiment  string    `json:"sentiment,omitempty"`
	Importance int       `json:"importance,omitempty"`
	Text       string    `json:"text"`
}

// ArticleRecord is the captured main content of a page. Records are keyed by a
// stable hash of URL: extracting the same URL twice overwrites the prior
// record instead of duplicating it.
type ArticleRecord struct {
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Headings  []string  `json:"headings,omitempty"`
	Links     []string  `json:"links,omitempty"`
}

// ContextRecord is written at most once per distinct URL visited within a
// session, keyed by (source index, step index).
type ContextRecord struct {
	Step     int          `json:"step"`
	Source   int          `json:"source"`
	URL      string       `json:"url"`
	Title    string       `json:"title"`
	Summary  string       `json:"summary"`
	Links    []LinkRef    `json:"links,omitempty"`
	Snapshot PageSnapshot `json:"snapshot"`
	Action   Action       `json:"action"`
	Outcome  string       `json:"outcome"`
}

// Signal classifies a page's relevance to the research subject.
type Signal string

const (
	SignalPositive Signal = "Positive"
	SignalNegative Signal = "Negative"
	SignalNeutral  Signal = "Neutral"
)

// DBEntry is the flat record forwarded to the external knowledge store. Field
// names follow the store's "News" object shape.
type DBEntry struct {
	Ticker string `json:"ticker"`
	Signal Signal `json:"signal"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	Time   string `json:"time"`
}

// SourceOutcome summarizes one source after its task runner finished.
type SourceOutcome struct {
	SourceURL string `json:"sourceUrl"`
	Steps     int    `json:"steps"`
	Completed bool   `json:"completed"`
	Summary   string `json:"summary,omitempty"`
	Error     string `json:"error,omitempty"`
}

// SessionResult is the aggregate outcome reported by a crawl session. It is
// serialized by the session finalizer, which runs unconditionally.
type SessionResult struct {
	SessionID         string          `json:"sessionId"`
	Subject           string          `json:"subject"`
	Topic             string          `json:"topic"`
	Goal              string          `json:"goal"`
	Success           bool            `json:"success"`
	Error             string          `json:"error,omitempty"`
	ArticlesCollected int             `json:"articlesCollected"`
	ThoughtsRecorded  int             `json:"thoughtsRecorded"`
	SourcesProcessed  int             `json:"sourcesProcessed"`
	Sources           []SourceOutcome `json:"sources"`
	StartedAt         time.Time       `json:"startedAt"`
	FinishedAt        time.Time       `json:"finishedAt"`
}
