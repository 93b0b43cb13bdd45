package stream

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"

	"github.com/kbukum/recoverykit/errors"
	"github.com/kbukum/recoverykit/logger"
	"github.com/kbukum/recoverykit/ollama"
	"github.com/kbukum/recoverykit/recovery"
	"github.com/kbukum/recoverykit/resilience"
)

// Chatter opens a streamed chat reply.
type Chatter interface {
	Chat(ctx context.Context, req ollama.ChatRequest) (<-chan ollama.Chunk, error)
}

// ErrStale is returned by a stream that was cut off by a reset.
var ErrStale = stderrors.New("stream belongs to a previous generation")

// Config bounds the streaming service.
type Config struct {
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent" validate:"gte=1"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 4
	}
}

type active struct {
	id         uint64
	generation uint64
	cancel     context.CancelFunc
	partial    strings.Builder
}

// Service runs streamed responses.
type Service struct {
	chat     Chatter
	registry *recovery.Registry
	limit    *resilience.Bulkhead
	log      *logger.Logger

	mu         sync.Mutex
	generation uint64
	nextID     uint64
	streams    map[uint64]*active
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithRegistry reports stream failures to reg.
func WithRegistry(reg *recovery.Registry) Option {
	return func(s *Service) { s.registry = reg }
}

// NewService creates a streaming service.
func NewService(chat Chatter, cfg Config, opts ...Option) *Service {
	cfg.ApplyDefaults()
	s := &Service{
		chat:    chat,
		streams: make(map[uint64]*active),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = logger.ForComponent(s.log, logger.ComponentStream)
	s.limit = resilience.NewBulkhead(resilience.BulkheadConfig{
		Name:          "stream",
		MaxConcurrent: cfg.MaxConcurrent,
		OnReject: func(name string) {
			s.log.Warn("stream rejected: concurrency limit reached", logger.Fields("limit", cfg.MaxConcurrent))
		},
	})
	return s
}

// Stream sends req and calls onChunk for every piece of the reply. It
// returns the full reply. A reset while the stream runs cancels it and
// returns ErrStale; chunks received after the reset are never delivered.
func (s *Service) Stream(ctx context.Context, req ollama.ChatRequest, onChunk func(string)) (string, error) {
	release, err := s.limit.Acquire(ctx)
	if err != nil {
		return "", errors.RateLimited().WithCause(err)
	}
	defer release()

	ctx, cancel := context.WithCancel(ctx)
	st := s.register(cancel)
	defer s.unregister(st)

	op := func(ctx context.Context) (string, error) {
		return s.consume(ctx, st, req, onChunk)
	}
	var reply string
	if s.registry == nil {
		reply, err = op(ctx)
	} else {
		// Chunks may already have reached the caller, so a failed stream is
		// never replayed here; the streaming recovery strategy paces the next one.
		opts := s.registry.OperationOptions()
		opts.MaxRetries = 0
		opts.Context = map[string]any{"model": req.Model}
		reply, err = recovery.ExecuteServiceOperation(ctx, s.registry, recovery.ServiceStreaming.String(), "stream_response", opts, op)
	}
	if err != nil && !s.current(st) {
		return "", ErrStale
	}
	return reply, err
}

func (s *Service) consume(ctx context.Context, st *active, req ollama.ChatRequest, onChunk func(string)) (string, error) {
	chunks, err := s.chat.Chat(ctx, req)
	if err != nil {
		return "", err
	}
	for chunk := range chunks {
		if chunk.Err != nil {
			return "", chunk.Err
		}
		if !s.append(st, chunk.Content) {
			st.cancel()
			return "", ErrStale
		}
		if onChunk != nil && chunk.Content != "" {
			onChunk(chunk.Content)
		}
		if chunk.Done {
			break
		}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return st.partial.String(), nil
}

// append records content for st unless a reset retired its generation.
func (s *Service) append(st *active, content string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st.generation != s.generation {
		return false
	}
	st.partial.WriteString(content)
	return true
}

func (s *Service) register(cancel context.CancelFunc) *active {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	st := &active{id: s.nextID, generation: s.generation, cancel: cancel}
	s.streams[st.id] = st
	return st
}

func (s *Service) unregister(st *active) {
	st.cancel()
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.streams[st.id]; ok && cur == st {
		delete(s.streams, st.id)
	}
}

func (s *Service) current(st *active) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return st.generation == s.generation
}

// Active returns the number of streams in flight.
func (s *Service) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.streams)
}

// Generation returns the current generation.
func (s *Service) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// CancelStreaming cancels every stream in flight. The streams stay
// registered until their goroutines return.
func (s *Service) CancelStreaming(context.Context) error {
	s.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(s.streams))
	for _, st := range s.streams {
		cancels = append(cancels, st.cancel)
	}
	s.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	if len(cancels) > 0 {
		s.log.Info("streams cancelled", logger.Fields("count", len(cancels)))
	}
	return nil
}

// ResetStreamingState starts a new generation and drops every stream
// record. Streams still running cannot write afterwards.
func (s *Service) ResetStreamingState(context.Context) error {
	s.mu.Lock()
	s.generation++
	old := s.streams
	s.streams = make(map[uint64]*active)
	gen := s.generation
	s.mu.Unlock()

	for _, st := range old {
		st.cancel()
	}
	s.log.Info("streaming state reset", logger.Fields("generation", gen, "dropped", len(old)))
	return nil
}

// ValidateStreamingState reports whether every tracked stream belongs to
// the current generation and the concurrency limit agrees with the
// tracked count.
func (s *Service) ValidateStreamingState(context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.streams {
		if st.generation != s.generation {
			return false
		}
	}
	return len(s.streams) <= s.limit.InUse()
}
