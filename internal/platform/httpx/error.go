package httpx

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const maxErrorBodyBytes = 1 << 16

// Error is the canonical JSON error envelope spoken on the wire. The stub
// backend encodes it and the gateway decodes backend failures into it, so a
// single type carries HTTP failure information through the whole client.
type Error struct {
	Code    string
	Message string
	Status  int
}

// NewError constructs a new Error with the provided parameters.
func NewError(code, message string, status int) *Error {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return &Error{
		Code:    sanitize(code, 80),
		Message: sanitize(message, 512),
		Status:  status,
	}
}

// Error renders the envelope as "HTTP <status>: <message>" for display; the
// status is included because user-facing failures must surface it when known.
func (e *Error) Error() string {
	message := e.Message
	if message == "" {
		message = http.StatusText(e.Status)
	}
	if message == "" {
		message = "request failed"
	}
	return fmt.Sprintf("HTTP %d: %s", e.Status, message)
}

// NotFound reports whether the error is an HTTP 404.
func (e *Error) NotFound() bool {
	return e != nil && e.Status == http.StatusNotFound
}

// Retriable reports whether an alternate endpoint candidate may still be
// attempted after this failure. Client errors other than 404 are terminal for
// the whole operation; 404 and every server error fall through to the next
// candidate.
func (e *Error) Retriable() bool {
	if e == nil {
		return false
	}
	if e.Status == http.StatusNotFound {
		return true
	}
	return e.Status >= 500
}

// WriteError writes the structured error as JSON to the provided response writer.
func WriteError(w http.ResponseWriter, err *Error) {
	if err == nil {
		err = NewError("internal", "internal error", http.StatusInternalServerError)
	}
	status := err.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}

	payload := map[string]any{
		"error":   err.Code,
		"message": err.Message,
		"status":  status,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// ErrorFromResponse drains a non-2xx response into an Error. Backends in the
// wild disagree on the envelope shape, so both "error" and "message" keys are
// accepted, with the raw body as a last resort.
func ErrorFromResponse(resp *http.Response) *Error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))

	var payload struct {
		Code     string `json:"code"`
		ErrorKey string `json:"error"`
		Message  string `json:"message"`
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &payload); err == nil {
			code := strings.TrimSpace(payload.Code)
			if code == "" {
				code = strings.TrimSpace(payload.ErrorKey)
			}
			message := strings.TrimSpace(payload.Message)
			if message == "" {
				// Some deployments put the human message under "error".
				message = strings.TrimSpace(payload.ErrorKey)
			}
			if message != "" || code != "" {
				return NewError(code, message, resp.StatusCode)
			}
		}
		if trimmed := strings.TrimSpace(string(body)); trimmed != "" && !strings.HasPrefix(trimmed, "{") {
			return NewError("", trimmed, resp.StatusCode)
		}
	}
	return NewError("", http.StatusText(resp.StatusCode), resp.StatusCode)
}

func sanitize(value string, limit int) string {
	if limit <= 0 {
		limit = 256
	}
	value = strings.ReplaceAll(value, "\n", " ")
	value = strings.ReplaceAll(value, "\r", " ")
	value = strings.TrimSpace(value)
	if len(value) > limit {
		value = value[:limit]
	}
	return value
}
