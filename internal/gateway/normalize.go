package gateway

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Kind selects the normalization profile for a payload: which wrapper keys
// may hold the list and which aliases may hold a record's identifier.
type Kind string

const (
	// KindOrders covers active orders and archived history rows.
	KindOrders Kind = "orders"
	// KindMenu covers shop menu entries.
	KindMenu Kind = "menu"
	// KindReservations covers table reservations.
	KindReservations Kind = "reservations"
)

// Record is a single normalized row. Keys retain their server spelling;
// numeric fields named price, qty, total, and people are coerced to float64
// and every record carries a non-empty "id".
type Record map[string]any

// wrapperKeys lists, per kind and in priority order, the object keys that may
// hold the record list when the payload is not a bare array.
var wrapperKeys = map[Kind][]string{
	KindOrders:       {"orders", "history", "items", "data"},
	KindMenu:         {"menu", "items", "data"},
	KindReservations: {"reservations", "history", "items", "data"},
}

// idAliases lists, per kind and in priority order, the keys consulted after
// "id" when assigning a record identifier.
var idAliases = map[Kind][]string{
	KindOrders:       {"ID", "order_id", "orderId", "historyId", "history_id"},
	KindMenu:         {"ID", "menuId", "menu_id", "_id"},
	KindReservations: {"ID", "reservation_id", "reservationId", "_id"},
}

// coercedFields are numeric fields coerced in place on every record.
var coercedFields = []string{"price", "qty", "total", "people"}

// Normalize converts a heterogeneous server payload into an ordered sequence
// of records. The payload may be a bare array, an object wrapping the list
// under a recognized key, or a single-record object. Normalize never fails:
// malformed or unrecognized shapes produce an empty sequence. It is a pure
// function of its input; the returned records are deep-independent copies of
// the payload's maps at the top level.
func Normalize(payload any, kind Kind) []Record {
	rows := extractRows(payload, kind)
	if len(rows) == 0 {
		return nil
	}

	records := make([]Record, 0, len(rows))
	for i, row := range rows {
		obj, ok := row.(map[string]any)
		if !ok {
			continue
		}
		record := make(Record, len(obj)+1)
		for key, value := range obj {
			record[key] = value
		}
		record["id"] = recordID(record, kind, i)
		for _, field := range coercedFields {
			if _, present := record[field]; present {
				record[field] = toNumber(record[field])
			}
		}
		records = append(records, record)
	}
	return records
}

func extractRows(payload any, kind Kind) []any {
	switch value := payload.(type) {
	case nil:
		return nil
	case []any:
		return value
	case map[string]any:
		for _, key := range wrapperKeys[kind] {
			if list, ok := value[key].([]any); ok {
				return list
			}
		}
		// Single-record wrapper: an object that itself looks like a record.
		if looksLikeRecord(value, kind) {
			return []any{value}
		}
		return nil
	default:
		return nil
	}
}

func looksLikeRecord(obj map[string]any, kind Kind) bool {
	if _, ok := obj["id"]; ok {
		return true
	}
	for _, alias := range idAliases[kind] {
		if _, ok := obj[alias]; ok {
			return true
		}
	}
	return false
}

func recordID(record Record, kind Kind, position int) string {
	if id := identifier(record["id"]); id != "" {
		return id
	}
	for _, alias := range idAliases[kind] {
		if id := identifier(record[alias]); id != "" {
			return id
		}
	}
	// Positional fallback keeps every record addressable.
	return strconv.Itoa(position)
}

func identifier(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

// String returns the first non-blank string among the given keys.
func (r Record) String(keys ...string) string {
	for _, key := range keys {
		if s, ok := r[key].(string); ok {
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

// Number returns the first parseable numeric value among the given keys,
// defaulting to 0.
func (r Record) Number(keys ...string) float64 {
	for _, key := range keys {
		if value, ok := r[key]; ok {
			if n, parsed := parseNumber(value); parsed {
				return n
			}
		}
	}
	return 0
}

// Int truncates Number to an int.
func (r Record) Int(keys ...string) int {
	return int(r.Number(keys...))
}

// Time returns the first parseable timestamp among the given keys. It accepts
// RFC 3339 strings, epoch seconds or milliseconds, and Firestore-style
// {seconds|_seconds} objects. The zero time is returned when nothing parses.
func (r Record) Time(keys ...string) time.Time {
	for _, key := range keys {
		if ts, ok := parseTime(r[key]); ok {
			return ts
		}
	}
	return time.Time{}
}

// List returns the first array value among the given keys, descending into a
// "raw" sub-object when present (some deployments nest the original record).
func (r Record) List(keys ...string) []any {
	for _, key := range keys {
		if list, ok := r[key].([]any); ok {
			return list
		}
	}
	if raw, ok := r["raw"].(map[string]any); ok {
		for _, key := range keys {
			if list, ok := raw[key].([]any); ok {
				return list
			}
		}
	}
	return nil
}

// toNumber implements the "parse as number, default 0 on failure" rule.
func toNumber(value any) float64 {
	n, _ := parseNumber(value)
	return n
}

func parseNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f, true
		}
		return 0, false
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f, true
		}
		return 0, false
	case bool, nil:
		return 0, false
	default:
		return 0, false
	}
}

func parseTime(value any) (time.Time, bool) {
	switch v := value.(type) {
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return time.Time{}, false
		}
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
			if ts, err := time.Parse(layout, trimmed); err == nil {
				return ts, true
			}
		}
		return time.Time{}, false
	case float64:
		if v <= 0 {
			return time.Time{}, false
		}
		// Heuristic: values past the year ~33658 in seconds are milliseconds.
		if v > 1e12 {
			return time.UnixMilli(int64(v)).UTC(), true
		}
		return time.Unix(int64(v), 0).UTC(), true
	case map[string]any:
		for _, key := range []string{"seconds", "_seconds"} {
			if seconds, ok := parseNumber(v[key]); ok && seconds > 0 {
				return time.Unix(int64(seconds), 0).UTC(), true
			}
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}
