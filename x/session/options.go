package session

import (
	"github.com/rs/zerolog"

	"github.com/compose-network/wlscanner/x/wire"
)

// Config holds optional session settings.
type Config struct {
	Interfaces []*wire.Interface
	Logger     zerolog.Logger
	Metrics    *Metrics
}

// Option configures a Session.
type Option func(*Config)

// WithInterfaces registers the interfaces this side implements.
func WithInterfaces(ifaces ...*wire.Interface) Option {
	return func(c *Config) {
		c.Interfaces = append(c.Interfaces, ifaces...)
	}
}

// WithLogger sets the session logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// WithMetrics enables metrics recording.
func WithMetrics(m *Metrics) Option {
	return func(c *Config) {
		c.Metrics = m
	}
}
