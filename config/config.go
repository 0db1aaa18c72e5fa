// Package config loads the settings of a CANopen client from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config holds the bus and client settings.
type Config struct {
	Interface      string        `yaml:"interface"`        // SocketCAN interface name
	ReceiveBuffer  int           `yaml:"receive_buffer"`   // frames queued before the reader blocks
	SendAttempts   uint          `yaml:"send_attempts"`    // attempts per frame on a transient send error
	SendRetryDelay time.Duration `yaml:"send_retry_delay"` // delay between send attempts
	SDOTimeout     time.Duration `yaml:"sdo_timeout"`      // default deadline of a request; 0 waits for the caller's context
	LogLevel       string        `yaml:"log_level"`
	LogFrames      bool          `yaml:"log_frames"` // log every frame at trace level
}

// DefaultConfig returns the settings used for keys missing from a file.
func DefaultConfig() *Config {
	return &Config{
		Interface:      "can0",
		ReceiveBuffer:  64,
		SendAttempts:   5,
		SendRetryDelay: 10 * time.Millisecond,
		SDOTimeout:     time.Second,
		LogLevel:       "info",
	}
}

// Load reads configuration from a YAML file. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML on top of the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Interface == "" {
		return fmt.Errorf("interface is required")
	}
	if c.ReceiveBuffer < 0 {
		return fmt.Errorf("receive_buffer must not be negative")
	}
	if c.SendAttempts == 0 {
		return fmt.Errorf("send_attempts must be at least 1")
	}
	if c.SendRetryDelay < 0 || c.SDOTimeout < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}

// Level returns the parsed log level, info if it is invalid.
func (c *Config) Level() log.Level {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return level
}
