package api

import (
	"errors"
	"time"
)

// Config defines runtime parameters for the introspection HTTP server.
type Config struct {
	ListenAddr        string        `mapstructure:"listen_addr"         yaml:"listen_addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"        yaml:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"       yaml:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"        yaml:"idle_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"    yaml:"shutdown_timeout"`
	MaxHeaderBytes    int           `mapstructure:"max_header_bytes"    yaml:"max_header_bytes"`
	CORS              bool          `mapstructure:"cors"                yaml:"cors"`
	Compress          bool          `mapstructure:"compress"            yaml:"compress"`
}

// DefaultConfig returns the defaults used by the serve command.
func DefaultConfig() Config {
	return Config{
		ListenAddr:        ":8090",
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		ShutdownTimeout:   10 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
		Compress:          true,
	}
}

// Validate checks the server parameters.
func (c Config) Validate() error {
	if c.ListenAddr == "" {
		return errors.New("api: listen address is required")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("api: shutdown timeout must be positive")
	}
	if c.MaxHeaderBytes < 0 {
		return errors.New("api: max header bytes must not be negative")
	}
	return nil
}
