package health

import "context"

// ChatState is the chat-state service.
type ChatState interface {
	ValidateState(ctx context.Context) bool
	ResetState(ctx context.Context) error
}

// Streaming is the response-streaming service.
type Streaming interface {
	ValidateStreamingState(ctx context.Context) bool
	ResetStreamingState(ctx context.Context) error
	CancelStreaming(ctx context.Context) error
}

// FileProcessor is the file-ingestion service.
type FileProcessor interface {
	ClearProcessingState(ctx context.Context) error
}

// TitleService is the title-synthesis service.
type TitleService interface {
	ClearAllTitleGenerationState(ctx context.Context) error
}

// Services are the collaborators the coordinator checks and resets. Any
// field may be nil.
type Services struct {
	Chat      ChatState
	Streaming Streaming
	Files     FileProcessor
	Titles    TitleService
}
