package schemas

// PageSnapshot is a bounded, serializable observation of a live page. It is
// recomputed on every step and never mutated afterwards; the extractor caps
// the link list and truncates the body preview so the snapshot stays small
// enough to embed in a decision prompt.
type PageSnapshot struct {
	Title       string      `json:"title"`
	URL         string      `json:"url"`
	Inputs      []InputRef  `json:"inputs"`
	Buttons     []ButtonRef `json:"buttons"`
	Links       []LinkRef   `json:"links"`
	Articles    []string    `json:"articles,omitempty"`
	BodyPreview string      `json:"bodyPreview"`

	// Degraded marks a snapshot produced after an extraction failure
	// (detached frame, navigation race). Collections are empty and the
	// title/body carry sentinel values.
	Degraded bool `json:"degraded,omitempty"`
}

// InputRef describes a typeable element with a resolvable selector.
type InputRef struct {
	Selector    string `json:"selector"`
	Kind        string `json:"type,omitempty"`
	Name        string `json:"name,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
}

// ButtonRef describes a clickable element with a resolvable selector.
type ButtonRef struct {
	Selector string `json:"selector"`
	Text     string `json:"text,omitempty"`
}

// LinkRef is an outgoing anchor, href resolved to an absolute URL.
type LinkRef struct {
	Text string `json:"text"`
	Href string `json:"href"`
}
