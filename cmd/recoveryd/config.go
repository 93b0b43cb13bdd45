package main

import (
	"fmt"

	"github.com/kbukum/recoverykit/config"
	"github.com/kbukum/recoverykit/files"
	"github.com/kbukum/recoverykit/observability"
	"github.com/kbukum/recoverykit/ollama"
	"github.com/kbukum/recoverykit/recovery"
	"github.com/kbukum/recoverykit/server"
	"github.com/kbukum/recoverykit/stream"
	"github.com/kbukum/recoverykit/version"
)

// Config is the recoveryd configuration.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Recovery      recovery.Config      `yaml:"recovery" mapstructure:"recovery"`
	Ollama        ollama.Config        `yaml:"ollama" mapstructure:"ollama"`
	Server        server.Config        `yaml:"server" mapstructure:"server"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
	Stream        stream.Config        `yaml:"stream" mapstructure:"stream"`
	Files         files.Config         `yaml:"files" mapstructure:"files"`
	// PreloadModels loads the model list once at startup.
	PreloadModels bool `yaml:"preload_models" mapstructure:"preload_models"`
}

// ApplyDefaults fills unset fields across every section.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = serviceName
	}
	if c.Version == "" {
		c.Version = version.Get().Version
	}
	c.ServiceConfig.ApplyDefaults()
	c.Recovery.ApplyDefaults()
	c.Ollama.ApplyDefaults()
	c.Server.ApplyDefaults()
	if c.Observability.ServiceName == "" {
		c.Observability.ServiceName = c.Name
	}
	if c.Observability.Environment == "" {
		c.Observability.Environment = c.Environment
	}
	if c.Observability.ServiceVersion == "" {
		c.Observability.ServiceVersion = c.Version
	}
	c.Observability.ApplyDefaults()
	c.Stream.ApplyDefaults()
	c.Files.ApplyDefaults()
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Recovery.Validate(); err != nil {
		return fmt.Errorf("recovery: %w", err)
	}
	if err := c.Ollama.Validate(); err != nil {
		return fmt.Errorf("ollama: %w", err)
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Observability.Validate(); err != nil {
		return err
	}
	return nil
}
