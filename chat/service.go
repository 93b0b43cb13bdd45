package chat

import (
	"context"
	stderrors "errors"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/kbukum/recoverykit/errors"
	"github.com/kbukum/recoverykit/logger"
	"github.com/kbukum/recoverykit/ollama"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Streamer streams a reply.
type Streamer interface {
	Stream(ctx context.Context, req ollama.ChatRequest, onChunk func(string)) (string, error)
}

// ErrInterrupted is returned by an exchange whose conversation was reset or
// deleted before the reply arrived. Nothing from it is stored.
var ErrInterrupted = stderrors.New("exchange interrupted by a state reset")

// Titler names a conversation.
type Titler interface {
	Generate(ctx context.Context, conversationID string, messages []ollama.Message) string
}

// Conversation is a snapshot of one conversation.
type Conversation struct {
	ID       string
	Title    string
	Model    string
	Messages []ollama.Message
}

// Service stores conversations and runs exchanges.
type Service struct {
	streamer Streamer
	titler   Titler
	log      *logger.Logger

	mu            sync.Mutex
	conversations map[string]*Conversation
	current       string
	// sending holds the conversations with an exchange in flight, keyed to
	// the token of that exchange.
	sending map[string]uint64
	next    uint64
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithTitler names conversations after their first exchange.
func WithTitler(t Titler) Option {
	return func(s *Service) { s.titler = t }
}

// NewService creates a chat service.
func NewService(streamer Streamer, opts ...Option) *Service {
	s := &Service{
		streamer:      streamer,
		conversations: make(map[string]*Conversation),
		sending:       make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = logger.ForComponent(s.log, logger.ComponentChat)
	return s
}

// Start creates a conversation and makes it current.
func (s *Service) Start(model string) string {
	id := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[id] = &Conversation{ID: id, Model: model}
	s.current = id
	return id
}

// Current returns the current conversation id, or "" if none is selected.
func (s *Service) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Select makes id current.
func (s *Service) Select(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conversations[id]; !ok {
		return errors.NotFound("conversation", id)
	}
	s.current = id
	return nil
}

// Get returns a copy of the conversation.
func (s *Service) Get(id string) (Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[id]
	if !ok {
		return Conversation{}, false
	}
	out := *c
	out.Messages = slices.Clone(c.Messages)
	return out, true
}

// Send adds text to the conversation, streams the reply through onChunk
// and stores it. Only one exchange per conversation runs at a time. If the
// reply fails, the user message stays so the exchange can be retried.
func (s *Service) Send(ctx context.Context, id, text string, onChunk func(string)) (string, error) {
	if text == "" {
		return "", errors.MissingField("message")
	}
	history, model, token, err := s.begin(id, text)
	if err != nil {
		return "", err
	}
	defer s.end(id, token)

	reply, err := s.streamer.Stream(ctx, ollama.ChatRequest{Model: model, Messages: history}, onChunk)
	if err != nil {
		return "", err
	}

	firstExchange, live := s.appendReply(id, token, reply)
	if !live {
		s.log.Debug("dropping reply from an interrupted exchange", logger.Fields("conversation", id))
		return "", ErrInterrupted
	}
	if firstExchange && s.titler != nil {
		title := s.titler.Generate(ctx, id, append(history, ollama.Message{Role: RoleAssistant, Content: reply}))
		s.setTitle(id, token, title)
	}
	return reply, nil
}

func (s *Service) begin(id, text string) ([]ollama.Message, string, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[id]
	if !ok {
		return nil, "", 0, errors.NotFound("conversation", id)
	}
	if _, busy := s.sending[id]; busy {
		return nil, "", 0, errors.Conflict("a reply is already being generated for this conversation")
	}
	s.next++
	s.sending[id] = s.next
	c.Messages = append(c.Messages, ollama.Message{Role: RoleUser, Content: text})
	return slices.Clone(c.Messages), c.Model, s.next, nil
}

func (s *Service) end(id string, token uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sending[id] == token {
		delete(s.sending, id)
	}
}

// live reports whether the exchange holding token still owns id. A reset or
// delete drops the token. Callers hold s.mu.
func (s *Service) live(id string, token uint64) (*Conversation, bool) {
	if s.sending[id] != token {
		return nil, false
	}
	c, ok := s.conversations[id]
	return c, ok
}

// appendReply stores the reply and reports whether it completed the first
// exchange. It stores nothing once the exchange was interrupted.
func (s *Service) appendReply(id string, token uint64, reply string) (first, live bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.live(id, token)
	if !ok {
		return false, false
	}
	c.Messages = append(c.Messages, ollama.Message{Role: RoleAssistant, Content: reply})
	return c.Title == "" && countRole(c.Messages, RoleAssistant) == 1, true
}

func (s *Service) setTitle(id string, token uint64, title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.live(id, token); ok {
		c.Title = title
	}
}

// ValidateState reports whether the current selection points at a stored
// conversation and every exchange in flight belongs to one.
func (s *Service) ValidateState(context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != "" {
		if _, ok := s.conversations[s.current]; !ok {
			return false
		}
	}
	for id := range s.sending {
		if _, ok := s.conversations[id]; !ok {
			return false
		}
	}
	for _, c := range s.conversations {
		for _, m := range c.Messages {
			if m.Role != RoleSystem && m.Role != RoleUser && m.Role != RoleAssistant {
				return false
			}
		}
	}
	return true
}

// ResetState drops the in-flight markers and the current selection. Stored
// conversations are kept.
func (s *Service) ResetState(context.Context) error {
	s.mu.Lock()
	dropped := len(s.sending)
	s.sending = make(map[string]uint64)
	s.current = ""
	s.mu.Unlock()

	s.log.Info("chat state reset", logger.Fields("dropped_exchanges", dropped))
	return nil
}

// Delete removes a conversation.
func (s *Service) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conversations, id)
	delete(s.sending, id)
	if s.current == id {
		s.current = ""
	}
}

func countRole(msgs []ollama.Message, role string) int {
	n := 0
	for _, m := range msgs {
		if m.Role == role {
			n++
		}
	}
	return n
}
