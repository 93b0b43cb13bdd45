package ollama

// Message is one turn of a chat conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is a chat completion request. Empty Model and zero
// Temperature fall back to the client configuration.
type ChatRequest struct {
	Model        string
	SystemPrompt string
	Messages     []Message
	Temperature  float64
}

// Chunk is one piece of a streamed reply. A chunk with Err set is the last
// one sent on the channel.
type Chunk struct {
	Content string
	Done    bool
	Err     error
}

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []Message      `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  *requestOption `json:"options,omitempty"`
}

type requestOption struct {
	Temperature float64 `json:"temperature,omitempty"`
}

type chatResponse struct {
	Model           string  `json:"model"`
	Message         Message `json:"message"`
	Done            bool    `json:"done"`
	PromptEvalCount int     `json:"prompt_eval_count,omitempty"`
	EvalCount       int     `json:"eval_count,omitempty"`
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}
