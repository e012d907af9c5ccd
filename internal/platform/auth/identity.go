package auth

import (
	"encoding/json"
	"strconv"
	"strings"
	"sync"
)

// identityKeys is the fixed priority order used to extract a customer
// identifier from an authentication record.
var identityKeys = []string{"uid", "id", "user_id", "username", "phone", "email"}

// Session carries the authenticated caller's state: the opaque bearer token
// attached to backend requests and the raw record the auth flow produced.
// The record shape varies between deployments (plain id string or a user
// object), so identity resolution goes through ResolveCustomerID.
type Session struct {
	mu     sync.RWMutex
	token  string
	record any
}

// NewSession constructs a session from a token and auth record, either of
// which may be empty.
func NewSession(token string, record any) *Session {
	return &Session{token: strings.TrimSpace(token), record: record}
}

// Token returns the current bearer credential, empty when signed out.
func (s *Session) Token() string {
	if s == nil {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// CustomerID resolves the stable customer identifier for the session.
func (s *Session) CustomerID() string {
	if s == nil {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ResolveCustomerID(s.record)
}

// Update replaces the token and record, e.g. after re-login or sign-out.
func (s *Session) Update(token string, record any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = strings.TrimSpace(token)
	s.record = record
}

// ResolveCustomerID extracts a single stable customer identifier from an
// authentication record that may be a bare string or an object. Object keys
// are consulted in a fixed priority order (uid, id, user_id, username, phone,
// email) so every call site keys cart and order state the same way. Returns
// an empty string when nothing resolves.
func ResolveCustomerID(record any) string {
	switch value := record.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(value)
	case map[string]any:
		for _, key := range identityKeys {
			if id := identifierString(value[key]); id != "" {
				return id
			}
		}
		return ""
	case map[string]string:
		for _, key := range identityKeys {
			if id := strings.TrimSpace(value[key]); id != "" {
				return id
			}
		}
		return ""
	default:
		return ""
	}
}

func identifierString(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case float64:
		// JSON decodes numeric ids as float64; render integers without a
		// fractional part.
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return ""
	}
}
