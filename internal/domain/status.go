package domain

import "strings"

// Status is the canonical lifecycle state of an order. Transitions are
// vendor-initiated except cancellation, which a customer may request while
// the order is still in preparation.
type Status string

const (
	// StatusPrepare indicates the shop is still preparing the order.
	StatusPrepare Status = "prepare"
	// StatusReady indicates the order is ready for pickup or delivery.
	StatusReady Status = "ready"
	// StatusCompleted indicates the order was handed over and archived to history.
	StatusCompleted Status = "completed"
	// StatusCanceled indicates the order was canceled before it became ready.
	StatusCanceled Status = "canceled"
)

// statusAliases maps the spellings observed across backend deployments onto
// canonical statuses.
var statusAliases = map[string]Status{
	"prepare":     StatusPrepare,
	"preparing":   StatusPrepare,
	"processing":  StatusPrepare,
	"ready":       StatusReady,
	"ongoing":     StatusReady,
	"on-going":    StatusReady,
	"on_going":    StatusReady,
	"in-progress": StatusReady,
	"in progress": StatusReady,
	"shipping":    StatusReady,
	"to-deliver":  StatusReady,
	"completed":   StatusCompleted,
	"complete":    StatusCompleted,
	"done":        StatusCompleted,
	"finish":      StatusCompleted,
	"finished":    StatusCompleted,
	"success":     StatusCompleted,
	"delivered":   StatusCompleted,
	"canceled":    StatusCanceled,
	"cancelled":   StatusCanceled,
	"cancel":      StatusCanceled,
}

var statusTransitions = map[Status][]Status{
	StatusPrepare: {StatusReady, StatusCanceled},
	StatusReady:   {StatusCompleted},
}

// ParseStatus normalizes a server-provided status spelling onto the canonical
// set. Unknown or empty values default to StatusPrepare, matching the
// backend's initial state for freshly created orders.
func ParseStatus(raw string) Status {
	key := strings.ToLower(strings.TrimSpace(raw))
	if status, ok := statusAliases[key]; ok {
		return status
	}
	return StatusPrepare
}

// KnownStatus reports whether value is one of the canonical statuses.
func KnownStatus(value Status) bool {
	switch value {
	case StatusPrepare, StatusReady, StatusCompleted, StatusCanceled:
		return true
	}
	return false
}

// Terminal reports whether the status permits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCanceled
}

// CanTransition reports whether an order in status s may move to next.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
