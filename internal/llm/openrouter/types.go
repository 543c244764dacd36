package openrouter

// ChatRequest matches the OpenRouter chat/completions request.
type ChatRequest struct {
	// Model is the provider model identifier.
	Model string `json:"model"`
	// Messages is the ordered conversation history.
	Messages []Message `json:"messages"`
	// Temperature controls randomness, if supported by the backend.
	Temperature *float64 `json:"temperature,omitempty"`
	// MaxTokens limits the model output, if supported by the backend.
	MaxTokens *int `json:"max_tokens,omitempty"`
}

// Message represents a chat message.
type Message struct {
	// Role is one of system, user, or assistant.
	Role string `json:"role"`
	// Content carries the message text.
	Content string `json:"content"`
}

// ChatResponse matches the OpenRouter chat/completions response.
type ChatResponse struct {
	// ID is the request id from the provider.
	ID string `json:"id"`
	// Choices contains the assistant messages.
	Choices []ChatChoice `json:"choices"`
	// Usage reports token counts.
	Usage Usage `json:"usage"`
}

// ChatChoice represents a single completion choice.
type ChatChoice struct {
	// Index is the choice index.
	Index int `json:"index"`
	// Message is the assistant response.
	Message Message `json:"message"`
	// FinishReason indicates why generation stopped.
	FinishReason string `json:"finish_reason"`
}

// Usage represents token usage info.
type Usage struct {
	// PromptTokens counts input tokens.
	PromptTokens int `json:"prompt_tokens"`
	// CompletionTokens counts output tokens.
	CompletionTokens int `json:"completion_tokens"`
	// TotalTokens is the sum of prompt and completion tokens.
	TotalTokens int `json:"total_tokens"`
}

// ModelList matches the OpenRouter models listing response.
type ModelList struct {
	// Data contains the available models.
	Data []Model `json:"data"`
}

// Model describes one model available on the provider.
type Model struct {
	// ID is the identifier used in chat requests.
	ID string `json:"id"`
	// Name is the human-readable model name.
	Name string `json:"name"`
	// ContextLength is the maximum context window in tokens.
	ContextLength int `json:"context_length"`
	// Pricing reports per-token costs as decimal strings.
	Pricing ModelPricing `json:"pricing"`
}

// ModelPricing holds per-token prices as reported by the provider.
type ModelPricing struct {
	// Prompt is the input price per token.
	Prompt string `json:"prompt"`
	// Completion is the output price per token.
	Completion string `json:"completion"`
}
