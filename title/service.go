package title

import (
	"context"
	"strings"
	"sync"

	"github.com/kbukum/recoverykit/logger"
	"github.com/kbukum/recoverykit/ollama"
	"github.com/kbukum/recoverykit/recovery"
	"github.com/kbukum/recoverykit/resilience"
)

// DefaultTitle is used when a conversation has no user text to fall back on.
const DefaultTitle = "New Conversation"

const fallbackLen = 50

// Service generates conversation titles.
type Service struct {
	synth    Synthesizer
	registry *recovery.Registry
	guard    *resilience.Guard
	log      *logger.Logger

	mu      sync.Mutex
	next    uint64
	running map[string]generation
}

type generation struct {
	token  uint64
	cancel context.CancelFunc
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithRegistry reports synthesis failures to reg.
func WithRegistry(reg *recovery.Registry) Option {
	return func(s *Service) { s.registry = reg }
}

// NewService creates a title service.
func NewService(synth Synthesizer, opts ...Option) *Service {
	s := &Service{
		synth:   synth,
		guard:   resilience.NewGuard(),
		running: make(map[string]generation),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = logger.ForComponent(s.log, logger.ComponentTitle)
	return s
}

// Generate returns a title for the conversation. If a generation for the
// same conversation is already running, or synthesis fails, it returns the
// fallback title. Title failures never surface as errors; they are
// reported to the registry instead.
func (s *Service) Generate(ctx context.Context, conversationID string, messages []ollama.Message) string {
	fallback := func() string { return FallbackTitle(messages) }

	title, _ := resilience.SingleFlight(s.guard, conversationID, func() (string, error) {
		ctx, cancel := context.WithCancel(ctx)
		token := s.track(conversationID, cancel)
		defer s.untrack(conversationID, token)

		title, err := s.synthesize(ctx, messages)
		if err != nil || title == "" {
			s.log.Debug("title synthesis fell back", logger.Fields(
				"conversation_id", conversationID,
				"synthesis_failed", err != nil,
			))
			return fallback(), nil
		}
		return title, nil
	}, fallback)
	return title
}

// InFlight reports whether a title is being generated for the conversation.
func (s *Service) InFlight(conversationID string) bool {
	return s.guard.InFlight(conversationID)
}

// ClearAllTitleGenerationState cancels every running generation and forgets
// the in-flight keys, so the next request for any conversation starts fresh.
func (s *Service) ClearAllTitleGenerationState(context.Context) error {
	s.mu.Lock()
	running := s.running
	s.running = make(map[string]generation)
	s.mu.Unlock()

	for _, g := range running {
		g.cancel()
	}
	s.guard.Clear()
	s.log.Info("title generation state cleared", logger.Fields("cancelled", len(running)))
	return nil
}

func (s *Service) synthesize(ctx context.Context, messages []ollama.Message) (string, error) {
	if s.synth == nil {
		return "", nil
	}
	op := func(ctx context.Context) (string, error) {
		return s.synth.Synthesize(ctx, messages)
	}
	if s.registry == nil {
		return op(ctx)
	}
	// One attempt: a slow title is worse than the fallback.
	opts := s.registry.OperationOptions()
	opts.MaxRetries = 0
	return recovery.ExecuteServiceOperation(ctx, s.registry, recovery.ServiceTitleGeneration.String(), "generate_title", opts, op)
}

func (s *Service) track(id string, cancel context.CancelFunc) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	s.running[id] = generation{token: s.next, cancel: cancel}
	return s.next
}

// untrack only removes the entry it created: after a clear, a newer
// generation may be registered under the same id.
func (s *Service) untrack(id string, token uint64) {
	s.mu.Lock()
	g, ok := s.running[id]
	if ok && g.token == token {
		delete(s.running, id)
	}
	s.mu.Unlock()
	if ok && g.token == token {
		g.cancel()
	}
}

// FallbackTitle derives a title from the first user message.
func FallbackTitle(messages []ollama.Message) string {
	for _, m := range messages {
		if m.Role != "user" {
			continue
		}
		text := strings.Join(strings.Fields(m.Content), " ")
		if text == "" {
			continue
		}
		return truncate(text, fallbackLen)
	}
	return DefaultTitle
}
