package main

import (
	"fmt"

	"github.com/kbukum/injector/config"
	"github.com/kbukum/injector/observability"
	"github.com/kbukum/injector/server"
	"github.com/kbukum/injector/validation"
)

// AppConfig is injectord's configuration.
type AppConfig struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Profile string        `yaml:"profile" mapstructure:"profile" validate:"required,oneof=debug release"`
	Server  server.Config `yaml:"server" mapstructure:"server"`
	Tracing TracingConfig `yaml:"tracing" mapstructure:"tracing"`
	// LoggerParams are explicit constructor parameters for the demo Logger.
	LoggerParams map[string]any `yaml:"logger_params" mapstructure:"logger_params"`
}

// TracingConfig switches OTLP export of spans and injector metrics on.
type TracingConfig struct {
	observability.TracerConfig `yaml:",inline" mapstructure:",squash"`

	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// MetricsInterval is the metric export period in seconds.
	MetricsInterval int `yaml:"metrics_interval" mapstructure:"metrics_interval" validate:"gte=0"`
}

// ApplyDefaults fills unset fields. The profile follows the debug flag
// unless set explicitly.
func (c *AppConfig) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	if c.Profile == "" {
		c.Profile = "release"
		if c.Debug {
			c.Profile = "debug"
		}
	}
	c.Server.ApplyDefaults()

	defaults := observability.DefaultTracerConfig(c.Name)
	t := &c.Tracing
	if t.ServiceName == "" {
		t.ServiceName = defaults.ServiceName
	}
	if t.ServiceVersion == "" {
		t.ServiceVersion = c.Version
	}
	if t.Environment == "" {
		t.Environment = c.Environment
	}
	if t.Endpoint == "" {
		t.Endpoint = defaults.Endpoint
	}
	if t.SampleRate == 0 {
		t.SampleRate = defaults.SampleRate
	}
	if t.MetricsInterval == 0 {
		t.MetricsInterval = 15
	}
}

// Validate checks struct tags across every section plus the logging section.
func (c *AppConfig) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}
