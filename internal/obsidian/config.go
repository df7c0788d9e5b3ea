package obsidian

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Supported transport protocols.
const (
	ProtocolHTTP  = "http"
	ProtocolHTTPS = "https"
)

// Config holds the connection settings for the Local REST API plugin.
// It is populated once at startup and never mutated afterwards.
type Config struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	Protocol       string `yaml:"protocol"`
	APIKey         string `yaml:"api_key"`
	VerifySSL      bool   `yaml:"verify_ssl"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Validate validates the connection configuration. A missing API key
// is a startup failure, never a per-call error.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Host, validation.Required),
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.Protocol, validation.Required, validation.In(ProtocolHTTP, ProtocolHTTPS)),
		validation.Field(&c.APIKey, validation.Required.Error("OBSIDIAN_API_KEY must be set")),
		validation.Field(&c.TimeoutSeconds, validation.Min(1)),
	)
}

// BaseURL returns "{protocol}://{host}:{port}".
func (c *Config) BaseURL() string {
	return fmt.Sprintf("%s://%s:%d", c.Protocol, c.Host, c.Port)
}

// Timeout returns the per-request timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// NewDefaultConfig returns the documented defaults: https on
// 127.0.0.1:27124, TLS verification off (the plugin serves a
// self-signed certificate), 10 second timeout.
func NewDefaultConfig() Config {
	return Config{
		Host:           "127.0.0.1",
		Port:           27124,
		Protocol:       ProtocolHTTPS,
		VerifySSL:      false,
		TimeoutSeconds: 10,
	}
}
