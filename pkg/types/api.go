package types

// ChatMessage is a single message in a chat-style completion request.
type ChatMessage struct {
	// Role of the author: system, user, assistant or tool.
	// example: user
	Role string `json:"role" example:"user"`
	// Message text.
	// example: Write a haiku about the ocean.
	Content string `json:"content" example:"Write a haiku about the ocean."`
}

// ChatCompletionRequest is the OpenAI-compatible request payload accepted by
// POST /v1/chat/completions and forwarded to pool instances or the remote
// provider.
type ChatCompletionRequest struct {
	// Model identifier; routing decides whether it is served locally or remotely.
	// example: meta-llama/Llama-3.1-8B-Instruct
	Model string `json:"model" example:"meta-llama/Llama-3.1-8B-Instruct"`
	// Conversation so far.
	Messages []ChatMessage `json:"messages"`
	// Maximum number of new tokens to generate.
	// example: 256
	MaxTokens int `json:"max_tokens,omitempty" example:"256"`
	// Sampling temperature (higher = more random).
	// example: 0.7
	Temperature float64 `json:"temperature,omitempty" example:"0.7"`
	// Nucleus sampling probability.
	// example: 0.9
	TopP float64 `json:"top_p,omitempty" example:"0.9"`
	// Optional stop sequences.
	Stop []string `json:"stop,omitempty"`
	// Random seed for reproducibility; 0 or omitted lets the server choose.
	// example: 42
	Seed int64 `json:"seed,omitempty" example:"42"`
}

// ChatCompletionChoice is one generated completion.
type ChatCompletionChoice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason,omitempty" example:"stop"`
}

// Usage contains token accounting reported by the serving backend.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatCompletionResponse is the OpenAI-compatible response payload.
type ChatCompletionResponse struct {
	ID      string                 `json:"id,omitempty"`
	Object  string                 `json:"object,omitempty" example:"chat.completion"`
	Created int64                  `json:"created,omitempty"`
	Model   string                 `json:"model"`
	Choices []ChatCompletionChoice `json:"choices"`
	Usage   Usage                  `json:"usage,omitempty"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// ModelsResponse wraps the list of model identifiers returned by GET /v1/models.
type ModelsResponse struct {
	Object string      `json:"object" example:"list"`
	Data   []ModelCard `json:"data"`
}

// ModelCard describes one model visible through the routing layer.
type ModelCard struct {
	// Model identifier.
	// example: meta-llama/Llama-3.1-8B-Instruct
	ID string `json:"id" example:"meta-llama/Llama-3.1-8B-Instruct"`
	// Always "model" for OpenAI compatibility.
	Object string `json:"object" example:"model"`
	// Where requests for this model are served from.
	// example: local
	Target string `json:"target,omitempty" example:"local"`
}
