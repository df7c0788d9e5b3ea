package internal

import (
	"log/slog"
	"strings"
	"testing"

	"obsidian-mcp/internal/obsidian"
)

func TestDefaultConfig_RequiresAPIKey(t *testing.T) {
	cfg := NewDefaultConfig()
	err := cfg.Validate()
	if err == nil {
		t.Fatal("config without API key should fail validation")
	}
	if !strings.Contains(err.Error(), "OBSIDIAN_API_KEY") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestDefaultConfig_ValidWithKey(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Obsidian.APIKey = "secret"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults with key should pass: %v", err)
	}
	if cfg.App.Transport != TransportStdio {
		t.Errorf("transport = %q, want stdio", cfg.App.Transport)
	}
	if got := cfg.Obsidian.BaseURL(); got != "https://127.0.0.1:27124" {
		t.Errorf("base URL = %q", got)
	}
}

func TestConfig_InvalidTransport(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Obsidian.APIKey = "secret"
	cfg.App.Transport = "grpc"
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown transport should fail validation")
	}
}

func TestConfig_HTTPTransportNeedsPort(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Obsidian.APIKey = "secret"
	cfg.App.Transport = TransportHTTP
	if err := cfg.Validate(); err != nil {
		t.Fatalf("http transport with default port should pass: %v", err)
	}
	cfg.App.HTTP.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("http transport without port should fail validation")
	}
}

func TestConfig_InvalidProtocol(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Obsidian.APIKey = "secret"
	cfg.Obsidian.Protocol = "ftp"
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown protocol should fail validation")
	}
}

func TestApplyEnv_Overrides(t *testing.T) {
	t.Setenv("OBSIDIAN_API_KEY", "env-key")
	t.Setenv("OBSIDIAN_HOST", "vault.local")
	t.Setenv("OBSIDIAN_PORT", "27123")
	t.Setenv("OBSIDIAN_PROTOCOL", "HTTP")
	t.Setenv("OBSIDIAN_VERIFY_SSL", "true")
	t.Setenv("OBSIDIAN_TIMEOUT", "30")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := NewDefaultConfig()
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}

	if cfg.Obsidian.APIKey != "env-key" {
		t.Errorf("api key = %q", cfg.Obsidian.APIKey)
	}
	if got := cfg.Obsidian.BaseURL(); got != "http://vault.local:27123" {
		t.Errorf("base URL = %q", got)
	}
	if !cfg.Obsidian.VerifySSL {
		t.Error("verify_ssl should be true")
	}
	if cfg.Obsidian.TimeoutSeconds != 30 {
		t.Errorf("timeout = %d", cfg.Obsidian.TimeoutSeconds)
	}
	if cfg.App.LogLevel != slog.LevelDebug {
		t.Errorf("log level = %v", cfg.App.LogLevel)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("env-built config should validate: %v", err)
	}
}

func TestApplyEnv_BadPort(t *testing.T) {
	t.Setenv("OBSIDIAN_PORT", "not-a-port")
	cfg := NewDefaultConfig()
	if err := cfg.ApplyEnv(); err == nil {
		t.Fatal("bad port should fail")
	}
}

func TestApplyEnv_VerifySSLForms(t *testing.T) {
	for in, want := range map[string]bool{"1": true, "t": true, "TRUE": true, "0": false, "false": false} {
		t.Setenv("OBSIDIAN_VERIFY_SSL", in)
		cfg := NewDefaultConfig()
		if err := cfg.ApplyEnv(); err != nil {
			t.Errorf("ApplyEnv(%q): %v", in, err)
			continue
		}
		if cfg.Obsidian.VerifySSL != want {
			t.Errorf("verify_ssl(%q) = %v, want %v", in, cfg.Obsidian.VerifySSL, want)
		}
	}
}

func TestApplyEnv_BadVerifySSL(t *testing.T) {
	t.Setenv("OBSIDIAN_VERIFY_SSL", "yes please")
	cfg := NewDefaultConfig()
	if err := cfg.ApplyEnv(); err == nil {
		t.Fatal("unparseable verify_ssl should fail")
	}
}

func TestApplyEnv_BadLogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "loud")
	cfg := NewDefaultConfig()
	if err := cfg.ApplyEnv(); err == nil {
		t.Fatal("bad log level should fail")
	}
}

func TestObsidianConfig_Timeout(t *testing.T) {
	cfg := obsidian.NewDefaultConfig()
	if got := cfg.Timeout().Seconds(); got != 10 {
		t.Errorf("default timeout = %vs, want 10s", got)
	}
}
