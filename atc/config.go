package atc

import (
	"log/slog"
	"time"
)

// Config carries the client's construction parameters. Assemble one with
// NewConfigBuilder.
type Config struct {
	// Dialer opens the transport during New. Required.
	Dialer Dialer
	// PollTimeout bounds each transport read. It is the upper bound on how
	// long Stop waits for the reader to notice it.
	PollTimeout time.Duration
	// Logger receives the client's diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

func (c *Config) validate() error {
	if c.Dialer == nil {
		return ErrNoDialer
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.PollTimeout <= 0 {
		c.PollTimeout = 100 * time.Millisecond
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// ConfigBuilder assembles a Config fluently.
type ConfigBuilder struct {
	config Config
}

func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{}
}

func (b *ConfigBuilder) WithDialer(d Dialer) *ConfigBuilder {
	b.config.Dialer = d
	return b
}

func (b *ConfigBuilder) WithPollTimeout(d time.Duration) *ConfigBuilder {
	b.config.PollTimeout = d
	return b
}

func (b *ConfigBuilder) WithLogger(l *slog.Logger) *ConfigBuilder {
	b.config.Logger = l
	return b
}

// Build applies defaults, validates and returns the Config.
func (b *ConfigBuilder) Build() (Config, error) {
	config := b.config
	config.setDefaults()
	if err := config.validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}
