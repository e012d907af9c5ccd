package config

import (
	"bufio"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	defaultEnvFile     = ".env"
	defaultHTTPTimeout = 10 * time.Second
	defaultStubAddr    = ":8090"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	API  APIConfig
	Stub StubConfig
}

// APIConfig describes how the client reaches the remote order service.
type APIConfig struct {
	// BaseURL is the root of the backend REST API, e.g. "http://10.0.0.5:3000".
	BaseURL string
	// Timeout applies uniformly to every request; expiry is treated the same
	// as a network failure.
	Timeout time.Duration
	// Token is the opaque bearer credential attached to requests when set.
	Token string
}

// StubConfig configures the local development backend.
type StubConfig struct {
	Addr string
}

// ValidationError reports configuration fields that failed validation.
type ValidationError struct {
	FieldErrors map[string]string
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.FieldErrors))
	for field := range e.FieldErrors {
		fields = append(fields, field)
	}
	return fmt.Sprintf("config: invalid configuration (%s)", strings.Join(fields, ", "))
}

// Fields returns the invalid field names.
func (e *ValidationError) Fields() []string {
	out := make([]string, 0, len(e.FieldErrors))
	for field := range e.FieldErrors {
		out = append(out, field)
	}
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups.
// Values in the map take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.Getenv, relying only on provided
// maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the client configuration by combining defaults, .env
// overrides, and environment variables (dotenv < OS env < explicit map).
func Load(opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	values := make(map[string]string)
	merge := func(source map[string]string) {
		for key, value := range source {
			values[key] = value
		}
	}
	merge(dotEnvValues)
	if options.useSystemEnv {
		for _, entry := range os.Environ() {
			parts := strings.SplitN(entry, "=", 2)
			if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" {
				continue
			}
			values[strings.TrimSpace(parts[0])] = parts[1]
		}
	}
	merge(options.envMap)

	lookup := func(key string) (string, bool) {
		value, ok := values[key]
		return strings.TrimSpace(value), ok
	}

	cfg := Config{
		API: APIConfig{
			BaseURL: stringWithDefault(lookup, "ORDERKIT_API_BASE", ""),
			Timeout: durationWithDefault(lookup, "ORDERKIT_HTTP_TIMEOUT", defaultHTTPTimeout),
			Token:   stringWithDefault(lookup, "ORDERKIT_API_TOKEN", ""),
		},
		Stub: StubConfig{
			Addr: stringWithDefault(lookup, "ORDERKIT_STUB_ADDR", defaultStubAddr),
		},
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	fieldErrors := make(map[string]string)

	base := strings.TrimSpace(cfg.API.BaseURL)
	if base == "" {
		fieldErrors["API.BaseURL"] = "base URL is required"
	} else if parsed, err := url.Parse(base); err != nil || parsed.Scheme == "" || parsed.Host == "" {
		fieldErrors["API.BaseURL"] = "base URL must be an absolute http(s) URL"
	}
	if cfg.API.Timeout <= 0 {
		fieldErrors["API.Timeout"] = "timeout must be positive"
	}

	if len(fieldErrors) > 0 {
		return &ValidationError{FieldErrors: fieldErrors}
	}
	return nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "export ") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		if key == "" {
			continue
		}
		values[key] = strings.Trim(strings.TrimSpace(parts[1]), "\"'")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
