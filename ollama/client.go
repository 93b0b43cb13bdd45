package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/kbukum/recoverykit/errors"
	"github.com/kbukum/recoverykit/logger"
	"github.com/kbukum/recoverykit/resilience"
)

// ServiceName identifies the backend in errors and logs.
const ServiceName = "ollama"

// Client talks to an Ollama server over HTTP.
type Client struct {
	cfg     Config
	http    *http.Client
	breaker *resilience.CircuitBreaker
	log     *logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// NewClient creates a client. Zero config fields take their defaults.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg.ApplyDefaults()
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	c := &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = logger.ForComponent(c.log, logger.ComponentOllama)

	c.breaker = resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:        ServiceName,
		MaxFailures: cfg.BreakerFailures,
		Timeout:     cfg.BreakerTimeout,
		IsFailure:   errors.IsRetryable,
		OnStateChange: func(name string, from, to resilience.State) {
			c.log.Warn("circuit breaker state changed", logger.Fields(
				logger.FieldTarget, name,
				"from", from.String(),
				"to", to.String(),
			))
		},
	})
	return c
}

// Model returns the default model name.
func (c *Client) Model() string { return c.cfg.Model }

// BreakerState reports the circuit breaker state.
func (c *Client) BreakerState() resilience.State { return c.breaker.State() }

// TestConnection reports whether the server answers GET /api/tags within the
// connect timeout. It bypasses the breaker so it can observe a recovered server.
func (c *Client) TestConnection(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/api/tags", http.NoBody)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("connection test failed", logger.ErrorFields("test_connection", err))
		return false
	}
	_ = resp.Body.Close()
	ok := resp.StatusCode == http.StatusOK
	if ok {
		// A reachable server closes the breaker without waiting for its timeout.
		c.breaker.Reset()
	}
	return ok
}

// ListModels returns the names of the models installed on the server.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	var names []string
	err := c.execute(ctx, "list_models", func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/api/tags", http.NoBody)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("send request: %w", err)
		}
		defer resp.Body.Close() //nolint:errcheck // read-only body

		if err := checkStatus(resp, "list_models"); err != nil {
			return err
		}
		var tags tagsResponse
		if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		names = make([]string, 0, len(tags.Models))
		for _, m := range tags.Models {
			names = append(names, m.Name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

// Complete runs a non-streaming chat request and returns the reply text.
func (c *Client) Complete(ctx context.Context, req ChatRequest) (string, error) {
	var content string
	err := c.execute(ctx, "complete", func(ctx context.Context) error {
		resp, err := c.post(ctx, "complete", c.buildRequest(req, false))
		if err != nil {
			return err
		}
		defer resp.Body.Close() //nolint:errcheck // read-only body

		var out chatResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		content = out.Message.Content
		return nil
	})
	return content, err
}

// Chat starts a streaming chat request. The returned channel is closed once
// the reply is done, the body fails to decode, or ctx ends.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (<-chan Chunk, error) {
	var resp *http.Response
	err := c.execute(ctx, "chat", func(ctx context.Context) error {
		var err error
		resp, err = c.post(ctx, "chat", c.buildRequest(req, true))
		return err
	})
	if err != nil {
		return nil, err
	}

	ch := make(chan Chunk)
	go func() {
		defer close(ch)
		defer resp.Body.Close() //nolint:errcheck // read-only body

		send := func(chunk Chunk) bool {
			select {
			case ch <- chunk:
				return true
			case <-ctx.Done():
				return false
			}
		}

		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}
			var out chatResponse
			if err := json.Unmarshal(line, &out); err != nil {
				send(Chunk{Err: fmt.Errorf("ollama chat: decode chunk: %w", err)})
				return
			}
			if !send(Chunk{Content: out.Message.Content, Done: out.Done}) || out.Done {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			if ctx.Err() != nil {
				err = ctx.Err()
			}
			send(Chunk{Err: fmt.Errorf("ollama chat: read response: %w", err)})
		}
	}()
	return ch, nil
}

// execute runs fn through the breaker and maps an open circuit to an
// unavailable error the classifier treats as a connection failure.
func (c *Client) execute(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	err := c.breaker.Execute(ctx, fn)
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, resilience.ErrCircuitOpen):
		return errors.ServiceUnavailable(ServiceName).
			WithDetail("operation", operation).
			WithCause(err)
	default:
		var apiErr *errors.APIError
		if stderrors.As(err, &apiErr) {
			return err
		}
		return fmt.Errorf("ollama %s: %w", operation, err)
	}
}

func (c *Client) post(ctx context.Context, operation string, body chatRequest) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	//nolint:bodyclose // closed by the caller
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	if err := checkStatus(resp, operation); err != nil {
		_ = resp.Body.Close()
		return nil, err
	}
	return resp, nil
}

func (c *Client) buildRequest(req ChatRequest, stream bool) chatRequest {
	model := c.cfg.Model
	if req.Model != "" {
		model = req.Model
	}
	temp := c.cfg.Temperature
	if req.Temperature != 0 {
		temp = req.Temperature
	}

	msgs := make([]Message, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		msgs = append(msgs, Message{Role: "system", Content: req.SystemPrompt})
	}
	msgs = append(msgs, req.Messages...)

	out := chatRequest{Model: model, Messages: msgs, Stream: stream}
	if temp != 0 {
		out.Options = &requestOption{Temperature: temp}
	}
	return out
}

func checkStatus(resp *http.Response, operation string) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &errors.APIError{
		Service:    ServiceName,
		Operation:  operation,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
	}
}
