package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(
		WithoutSystemEnv(),
		WithEnvFile(""),
		WithEnvMap(map[string]string{
			"ORDERKIT_API_BASE": "http://localhost:3000",
		}),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.API.BaseURL != "http://localhost:3000" {
		t.Fatalf("unexpected base URL %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 10*time.Second {
		t.Fatalf("unexpected timeout %v", cfg.API.Timeout)
	}
	if cfg.API.Token != "" {
		t.Fatalf("expected empty token, got %q", cfg.API.Token)
	}
	if cfg.Stub.Addr != ":8090" {
		t.Fatalf("unexpected stub addr %q", cfg.Stub.Addr)
	}
}

func TestLoadReadsAPIToken(t *testing.T) {
	cfg, err := Load(
		WithoutSystemEnv(),
		WithEnvFile(""),
		WithEnvMap(map[string]string{
			"ORDERKIT_API_BASE":  "http://localhost:3000",
			"ORDERKIT_API_TOKEN": "tok-abc",
		}),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.API.Token != "tok-abc" {
		t.Fatalf("unexpected token %q", cfg.API.Token)
	}
}

func TestLoadRequiresBaseURL(t *testing.T) {
	_, err := Load(WithoutSystemEnv(), WithEnvFile(""))
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(validation.Fields()) != 1 || validation.Fields()[0] != "API.BaseURL" {
		t.Fatalf("unexpected fields %v", validation.Fields())
	}
}

func TestLoadRejectsRelativeBaseURL(t *testing.T) {
	_, err := Load(
		WithoutSystemEnv(),
		WithEnvFile(""),
		WithEnvMap(map[string]string{"ORDERKIT_API_BASE": "/just/a/path"}),
	)
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestLoadDotEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	contents := "# local overrides\nexport ORDERKIT_API_BASE=\"http://from-dotenv:3000\"\nORDERKIT_HTTP_TIMEOUT=3s\n"
	if err := os.WriteFile(envFile, []byte(contents), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	cfg, err := Load(
		WithoutSystemEnv(),
		WithEnvFile(envFile),
		WithEnvMap(map[string]string{"ORDERKIT_HTTP_TIMEOUT": "7s"}),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.API.BaseURL != "http://from-dotenv:3000" {
		t.Fatalf("dotenv base URL not applied: %q", cfg.API.BaseURL)
	}
	// Explicit map wins over dotenv.
	if cfg.API.Timeout != 7*time.Second {
		t.Fatalf("explicit map should win, got %v", cfg.API.Timeout)
	}
}

func TestLoadInvalidDurationFallsBack(t *testing.T) {
	cfg, err := Load(
		WithoutSystemEnv(),
		WithEnvFile(""),
		WithEnvMap(map[string]string{
			"ORDERKIT_API_BASE":     "http://localhost:3000",
			"ORDERKIT_HTTP_TIMEOUT": "not-a-duration",
		}),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.API.Timeout != 10*time.Second {
		t.Fatalf("expected fallback timeout, got %v", cfg.API.Timeout)
	}
}
