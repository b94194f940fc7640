package schemas

// ActionType enumerates every decision the agent can make. The set is closed:
// the executor dispatches exhaustively over these constants and the decision
// adapter maps any unrecognized tag to ActionUnknown rather than silently
// dropping it.
type ActionType string

const (
	ActionNavigate       ActionType = "navigate"        // Load a URL.
	ActionTypeText       ActionType = "type"            // Enter text into an input.
	ActionPressEnter     ActionType = "press_enter"     // Focus an element and submit.
	ActionClick          ActionType = "click"           // Click an element.
	ActionWait           ActionType = "wait"            // Block until a selector appears.
	ActionScroll         ActionType = "scroll"          // Scroll by a pixel delta.
	ActionExtractArticle ActionType = "extract_article" // Capture the page's main content.
	ActionRecordThought  ActionType = "record_thought"  // Append an insight to the ledger.
	ActionDone           ActionType = "done"            // Finish the current source.
	ActionUnknown        ActionType = "unknown"         // Unrecognized decision; logged no-op.
)

// Action is a single decision produced by the decision adapter. Exactly one
// variant's parameter fields are meaningful for a given Type; Reasoning is
// carried by every variant.
type Action struct {
	Type ActionType `json:"action"`

	// navigate
	URL string `json:"url,omitempty"`

	// type / press_enter / click / wait
	Selector string `json:"selector,omitempty"`
	Text     string `json:"text,omitempty"`

	// wait
	TimeoutMs int `json:"timeoutMs,omitempty"`

	// scroll
	Direction string `json:"direction,omitempty"`
	Pixels    int    `json:"pixels,omitempty"`

	// record_thought
	Thought    string `json:"thought,omitempty"`
	Sentiment  string `json:"sentiment,omitempty"`
	Importance int    `json:"importance,omitempty"`

	// done
	Summary string `json:"summary,omitempty"`

	Reasoning string `json:"reasoning"`

	// Raw preserves the original JSON for ActionUnknown so the step log shows
	// what the model actually asked for.
	Raw string `json:"-"`
}
