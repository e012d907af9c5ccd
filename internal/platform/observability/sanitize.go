package observability

import "unicode"

// Request-derived log fields pass through these helpers so a crafted path or
// identifier cannot inject control characters into log output. Customer ids
// in this system are sometimes raw phone numbers or emails, so they are kept
// short as well.

const (
	maxRouteLen  = 160
	maxMethodLen = 8
	maxUserIDLen = 64
)

func clean(value string, max int) string {
	runes := make([]rune, 0, len(value))
	for _, r := range value {
		if unicode.IsControl(r) {
			continue
		}
		runes = append(runes, r)
		if len(runes) == max {
			break
		}
	}
	return string(runes)
}

// SanitizeRoute bounds a request path before it is attached to a log entry
// or span. An empty path reads as the root route.
func SanitizeRoute(route string) string {
	if route == "" {
		return "/"
	}
	return clean(route, maxRouteLen)
}

// SanitizeMethod bounds an HTTP method token.
func SanitizeMethod(method string) string {
	return clean(method, maxMethodLen)
}

// SanitizeUserID bounds a customer identifier before logging.
func SanitizeUserID(uid string) string {
	return clean(uid, maxUserIDLen)
}
