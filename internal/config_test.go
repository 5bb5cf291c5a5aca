package internal

import (
	"strings"
	"testing"
	"time"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if got := cfg.App.HTTP.Address(); got != "127.0.0.1:8421" {
		t.Errorf("address = %q", got)
	}
}

func TestMonitorConfig_EmptyBackendDefaultsSystem(t *testing.T) {
	cfg := NewDefaultConfig().Monitor
	cfg.Backend = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty backend should default: %v", err)
	}
	if cfg.Backend != BoardSystem {
		t.Errorf("backend = %q, want %q", cfg.Backend, BoardSystem)
	}
}

func TestMonitorConfig_Invalid(t *testing.T) {
	cfg := NewDefaultConfig().Monitor
	cfg.Backend = "x11"
	if err := cfg.Validate(); err == nil {
		t.Error("unknown backend should fail")
	}

	cfg = NewDefaultConfig().Monitor
	cfg.Interval = time.Millisecond
	if err := cfg.Validate(); err == nil {
		t.Error("1ms interval should fail")
	}
}

func TestOllamaConfig_TimeoutRequired(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Ollama.Timeout = 0
	if err := cfg.Validate(); err == nil {
		t.Error("zero timeout should fail")
	}
}
