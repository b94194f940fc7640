package schemas

// ChatTurn is one entry of the trailing conversation history sent with a
// generation request. Role is "user" or "model".
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerationOptions tune a single text-generation call.
type GenerationOptions struct {
	Temperature     float32 `json:"temperature"`
	ForceJSONFormat bool    `json:"force_json_format"`
}

// GenerationRequest is the provider-agnostic request contract. The caller is
// responsible for bounding History; clients send it verbatim.
type GenerationRequest struct {
	SystemPrompt string            `json:"system_prompt"`
	History      []ChatTurn        `json:"history,omitempty"`
	UserPrompt   string            `json:"user_prompt"`
	Options      GenerationOptions `json:"options"`
}
