package internal

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"obsidian-mcp/internal/obsidian"
)

// Transports the server can listen on.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Config represents the application configuration. It is populated
// once at startup (defaults, optional YAML file, then environment
// overrides) and passed by reference from there on.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Obsidian obsidian.Config   `yaml:"obsidian"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	return c.Obsidian.Validate()
}

// ApplyEnv overlays the OBSIDIAN_* and LOG_LEVEL environment
// variables onto the configuration. Unset variables leave the current
// values in place.
func (c *Config) ApplyEnv() error {
	if v, ok := os.LookupEnv("OBSIDIAN_API_KEY"); ok {
		c.Obsidian.APIKey = v
	}
	if v, ok := os.LookupEnv("OBSIDIAN_HOST"); ok {
		c.Obsidian.Host = v
	}
	if v, ok := os.LookupEnv("OBSIDIAN_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("OBSIDIAN_PORT: %w", err)
		}
		c.Obsidian.Port = port
	}
	if v, ok := os.LookupEnv("OBSIDIAN_PROTOCOL"); ok {
		c.Obsidian.Protocol = strings.ToLower(v)
	}
	if v, ok := os.LookupEnv("OBSIDIAN_VERIFY_SSL"); ok {
		verify, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("OBSIDIAN_VERIFY_SSL: %w", err)
		}
		c.Obsidian.VerifySSL = verify
	}
	if v, ok := os.LookupEnv("OBSIDIAN_TIMEOUT"); ok {
		secs, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("OBSIDIAN_TIMEOUT: %w", err)
		}
		c.Obsidian.TimeoutSeconds = secs
	}
	if v, ok := os.LookupEnv("LOG_LEVEL"); ok {
		var level slog.Level
		if err := level.UnmarshalText([]byte(strings.ToUpper(v))); err != nil {
			return fmt.Errorf("LOG_LEVEL: %w", err)
		}
		c.App.LogLevel = level
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel  slog.Level `yaml:"log_level"`
	Transport string     `yaml:"transport"`
	HTTP      HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Transport, validation.Required, validation.In(TransportStdio, TransportHTTP)),
	); err != nil {
		return err
	}
	if c.Transport == TransportHTTP {
		return c.HTTP.Validate()
	}
	return nil
}

// HTTPConfig holds the listener configuration for the http transport.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns the HTTP listen address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
// The API key has no default; it must come from the config file or
// OBSIDIAN_API_KEY.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel:  slog.LevelInfo,
			Transport: TransportStdio,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Obsidian: obsidian.NewDefaultConfig(),
	}
}
