package ollama

import (
	"time"

	"github.com/kbukum/recoverykit/validation"
)

const (
	defaultBaseURL         = "http://localhost:11434"
	defaultModel           = "llama3"
	defaultTimeout         = 120 * time.Second
	defaultConnectTimeout  = 5 * time.Second
	defaultBreakerFailures = 5
	defaultBreakerTimeout  = 30 * time.Second
)

// Config holds configuration for the Ollama client.
type Config struct {
	BaseURL     string        `yaml:"base_url" mapstructure:"base_url" validate:"required,url"`
	Model       string        `yaml:"model" mapstructure:"model" validate:"required"`
	Temperature float64       `yaml:"temperature" mapstructure:"temperature" validate:"gte=0,lte=2"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gt=0"`
	// ConnectTimeout bounds TestConnection.
	ConnectTimeout time.Duration `yaml:"connect_timeout" mapstructure:"connect_timeout" validate:"gt=0"`
	// BreakerFailures is the number of consecutive failures that opens the breaker.
	BreakerFailures int           `yaml:"breaker_failures" mapstructure:"breaker_failures" validate:"min=1"`
	BreakerTimeout  time.Duration `yaml:"breaker_timeout" mapstructure:"breaker_timeout" validate:"gt=0"`
}

// ApplyDefaults fills zero fields.
func (c *Config) ApplyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.Model == "" {
		c.Model = defaultModel
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = defaultConnectTimeout
	}
	if c.BreakerFailures <= 0 {
		c.BreakerFailures = defaultBreakerFailures
	}
	if c.BreakerTimeout <= 0 {
		c.BreakerTimeout = defaultBreakerTimeout
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	return validation.Validate(c)
}
