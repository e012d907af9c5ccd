package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/tabletap/orderkit/internal/platform/httpx"
)

// candidate is one concrete path spelling for a logical operation. Backend
// deployments drifted between /shop/... and /shops/... conventions, so most
// operations carry an ordered list of candidates tried in sequence until one
// answers.
type candidate struct {
	method string
	path   string
}

func get(path string) candidate   { return candidate{method: http.MethodGet, path: path} }
func post(path string) candidate  { return candidate{method: http.MethodPost, path: path} }
func put(path string) candidate   { return candidate{method: http.MethodPut, path: path} }
func patch(path string) candidate { return candidate{method: http.MethodPatch, path: path} }
func del(path string) candidate   { return candidate{method: http.MethodDelete, path: path} }

// execute walks the candidate list in priority order and returns the first
// authoritative response.
//
// Fallthrough rules:
//   - transport failure or timeout: next candidate (never a blind retry of
//     the same path);
//   - 404: next candidate, and ErrNotFound once every candidate said 404;
//   - 5xx: next candidate, surfacing the last server error on exhaustion;
//   - any other 4xx: terminal for the whole operation, returned immediately.
func (c *Client) execute(ctx context.Context, operation string, candidates []candidate, query url.Values, body any, headers http.Header) (any, error) {
	if len(candidates) == 0 {
		return nil, fmt.Errorf("gateway: %s has no endpoint candidates", operation)
	}

	var lastErr error
	allNotFound := true

	for i, cand := range candidates {
		payload, err := c.do(ctx, operation, cand, i, query, body, headers)
		if err == nil {
			return payload, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}

		var httpErr *httpx.Error
		switch {
		case errors.As(err, &httpErr):
			if !httpErr.Retriable() {
				// Client-side rejection; alternate spellings won't change it.
				return nil, err
			}
			if !httpErr.NotFound() {
				allNotFound = false
			}
		case errors.Is(err, ErrUnreachable):
			allNotFound = false
		default:
			// Decode failures and the like are not path-dependent.
			return nil, err
		}

		lastErr = err
		if i < len(candidates)-1 {
			c.logger.Debug("endpoint candidate failed, trying next",
				zap.String("operation", operation),
				zap.String("path", cand.path),
				zap.Error(err),
			)
		}
	}

	if allNotFound {
		return nil, fmt.Errorf("%w: %w", ErrNotFound, lastErr)
	}
	return nil, lastErr
}

// emptyOnNotFound absorbs all-candidates-404 for list reads, per the rule
// that a missing collection means "not provisioned yet" rather than failure.
func emptyOnNotFound(err error) error {
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}
