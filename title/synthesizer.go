package title

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/kbukum/recoverykit/ollama"
)

const systemPrompt = "Write a short title of at most six words for the conversation below. " +
	"Reply with the title only, without quotes or punctuation at the end."

// Synthesizer produces a title for a conversation.
type Synthesizer interface {
	Synthesize(ctx context.Context, messages []ollama.Message) (string, error)
}

// Completer runs a single non-streaming chat request.
type Completer interface {
	Complete(ctx context.Context, req ollama.ChatRequest) (string, error)
}

// ModelSynthesizer asks the backend model for a title.
type ModelSynthesizer struct {
	Backend Completer
	// Model overrides the backend's default model when set.
	Model string
}

// Synthesize implements Synthesizer.
func (s ModelSynthesizer) Synthesize(ctx context.Context, messages []ollama.Message) (string, error) {
	out, err := s.Backend.Complete(ctx, ollama.ChatRequest{
		Model:        s.Model,
		SystemPrompt: systemPrompt,
		Messages:     messages,
		Temperature:  0.3,
	})
	if err != nil {
		return "", err
	}
	return cleanTitle(out), nil
}

const maxTitleLen = 60

// cleanTitle keeps the first non-empty line, drops surrounding quotes and
// a "Title:" prefix, and caps the length.
func cleanTitle(s string) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if len(line) > 6 && strings.EqualFold(line[:6], "title:") {
			line = strings.TrimSpace(line[6:])
		}
		line = strings.Trim(line, "\"'`*# ")
		line = strings.TrimRight(line, ".!")
		return truncate(line, maxTitleLen)
	}
	return ""
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:n-3])) + "..."
}
