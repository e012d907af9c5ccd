package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tabletap/orderkit/internal/platform/httpx"
	"github.com/tabletap/orderkit/internal/platform/observability"
)

const defaultTimeout = 10 * time.Second

// idempotencyKeyHeader carries the per-attempt checkout idempotency key.
const idempotencyKeyHeader = "Idempotency-Key"

// ErrUnreachable wraps transport-level failures: connection errors, DNS
// failures, and timeouts. The server never saw (or never answered) the
// request.
var ErrUnreachable = errors.New("gateway: backend unreachable")

// ErrNotFound is returned when every endpoint candidate answered 404. List
// reads normalize it to an empty result; mutations surface it to the caller.
var ErrNotFound = errors.New("gateway: not found")

// HTTPClient matches the subset of http.Client used by Client.
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

// TokenSource supplies the opaque bearer credential for outbound requests.
// An empty token means no session; the Authorization header is omitted.
type TokenSource interface {
	Token() string
}

// Client issues JSON requests against the remote order service. It owns the
// wire concerns only: base URL resolution, bearer credential attachment, the
// uniform request timeout, endpoint-candidate fallback, and decoding of
// success and error payloads. All caching and optimistic state lives in the
// services layer.
type Client struct {
	base   *url.URL
	http   HTTPClient
	tokens TokenSource
	logger *zap.Logger
}

// ClientDeps bundles collaborators required to construct a Client.
type ClientDeps struct {
	// BaseURL is the root of the backend API and is required.
	BaseURL string
	// HTTPClient overrides the underlying transport; defaults to an
	// http.Client with the uniform timeout applied.
	HTTPClient HTTPClient
	// Timeout applies when HTTPClient is not supplied.
	Timeout time.Duration
	// Tokens supplies the bearer credential; optional.
	Tokens TokenSource
	// Logger is optional and defaults to a no-op logger.
	Logger *zap.Logger
}

// NewClient wires dependencies into a Client.
func NewClient(deps ClientDeps) (*Client, error) {
	base := strings.TrimSpace(deps.BaseURL)
	if base == "" {
		return nil, errors.New("gateway: base URL is required")
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("gateway: parse base URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, errors.New("gateway: base URL must be absolute")
	}
	// Without a trailing slash, resolving a relative candidate against
	// "http://host/api" would drop the "/api" segment.
	if !strings.HasSuffix(parsed.Path, "/") {
		parsed.Path += "/"
	}

	httpClient := deps.HTTPClient
	if httpClient == nil {
		timeout := deps.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		base:   parsed,
		http:   httpClient,
		tokens: deps.Tokens,
		logger: logger,
	}, nil
}

// do performs a single request and decodes the response body into an untyped
// payload for the normalizer. A nil payload with a nil error means the server
// answered with an empty body.
func (c *Client) do(ctx context.Context, operation string, candidate candidate, index int, query url.Values, body any, headers http.Header) (any, error) {
	req, err := c.newRequest(ctx, candidate.method, candidate.path, query, body, headers)
	if err != nil {
		return nil, err
	}

	_, span := observability.StartClientSpan(ctx, operation, candidate.method, candidate.path, index)

	resp, err := c.http.Do(req)
	if err != nil {
		observability.EndClientSpan(span, 0, err)
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		httpErr := httpx.ErrorFromResponse(resp)
		observability.EndClientSpan(span, resp.StatusCode, nil)
		return nil, httpErr
	}
	observability.EndClientSpan(span, resp.StatusCode, nil)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrUnreachable, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}

	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("gateway: decode %s response: %w", operation, err)
	}
	return payload, nil
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, query url.Values, body any, headers http.Header) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(body); err != nil {
			return nil, fmt.Errorf("gateway: encode payload: %w", err)
		}
		reader = &buf
	}

	req, err := http.NewRequestWithContext(ctx, method, c.resolve(endpoint), reader)
	if err != nil {
		return nil, fmt.Errorf("gateway: build request: %w", err)
	}
	if len(query) > 0 {
		req.URL.RawQuery = query.Encode()
	}
	req.Header.Set("Content-Type", "application/json")
	if c.tokens != nil {
		if token := strings.TrimSpace(c.tokens.Token()); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	for key, values := range headers {
		for _, value := range values {
			req.Header.Set(key, value)
		}
	}
	return req, nil
}

func (c *Client) resolve(endpoint string) string {
	trimmed := strings.TrimPrefix(endpoint, "/")
	ref := &url.URL{Path: trimmed}
	return c.base.ResolveReference(ref).String()
}
