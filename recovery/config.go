package recovery

import (
	"time"

	"github.com/kbukum/recoverykit/validation"
)

// Config tunes the registry and the strategies the factory builds.
type Config struct {
	// RecencyWindow decides whether a stored error still counts as recent
	// when deriving per-service health.
	RecencyWindow time.Duration `yaml:"recency_window" mapstructure:"recency_window" validate:"gt=0"`
	// MaxRetries and BaseDelay are the defaults for ExecuteServiceOperation.
	// An explicit 0 disables retries; nil means DefaultMaxRetries.
	MaxRetries *int          `yaml:"max_retries" mapstructure:"max_retries" validate:"omitempty,gte=0,lte=10"`
	BaseDelay  time.Duration `yaml:"base_delay" mapstructure:"base_delay" validate:"gte=0"`
	// OperationTimeout bounds all attempts of one operation together.
	OperationTimeout  time.Duration `yaml:"operation_timeout" mapstructure:"operation_timeout" validate:"gt=0"`
	ConnectionTimeout time.Duration `yaml:"connection_timeout" mapstructure:"connection_timeout" validate:"gt=0"`
	StreamingCooldown time.Duration `yaml:"streaming_cooldown" mapstructure:"streaming_cooldown" validate:"gte=0"`
	StateSettle       time.Duration `yaml:"state_settle" mapstructure:"state_settle" validate:"gte=0"`
	ModelAttempts     int           `yaml:"model_attempts" mapstructure:"model_attempts" validate:"gte=1"`
	ModelBaseDelay    time.Duration `yaml:"model_base_delay" mapstructure:"model_base_delay" validate:"gte=0"`
}

// DefaultMaxRetries is used when MaxRetries is unset.
const DefaultMaxRetries = 2

// DefaultConfig returns the defaults.
func DefaultConfig() Config {
	var c Config
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.RecencyWindow == 0 {
		c.RecencyWindow = 5 * time.Minute
	}
	if c.MaxRetries == nil {
		c.MaxRetries = new(DefaultMaxRetries)
	}
	if c.BaseDelay == 0 {
		c.BaseDelay = time.Second
	}
	if c.OperationTimeout == 0 {
		c.OperationTimeout = 30 * time.Second
	}
	if c.ConnectionTimeout == 0 {
		c.ConnectionTimeout = 5 * time.Second
	}
	if c.StreamingCooldown == 0 {
		c.StreamingCooldown = 5 * time.Second
	}
	if c.StateSettle == 0 {
		c.StateSettle = 100 * time.Millisecond
	}
	if c.ModelAttempts == 0 {
		c.ModelAttempts = 2
	}
	if c.ModelBaseDelay == 0 {
		c.ModelBaseDelay = 2 * time.Second
	}
}

// Retries returns MaxRetries, or DefaultMaxRetries when it is unset.
func (c Config) Retries() int {
	if c.MaxRetries == nil {
		return DefaultMaxRetries
	}
	return *c.MaxRetries
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	return validation.Validate(c)
}
