// Package domain holds the visit status state machine. Transitions are
// hard-coded to this domain; the table below is the single source of truth
// for which moves are legal.
package domain

// Status is the lifecycle status of a visit.
type Status string

// Visit lifecycle statuses.
const (
	StatusScheduled Status = "scheduled"
	StatusEnRoute   Status = "en_route"
	StatusStarted   Status = "started"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

var transitions = map[Status][]Status{
	StatusScheduled: {StatusEnRoute, StatusStarted, StatusCancelled},
	StatusEnRoute:   {StatusStarted, StatusCancelled},
	StatusStarted:   {StatusCompleted, StatusCancelled},
	StatusCompleted: {},
	StatusCancelled: {},
}

// IsValid reports whether s is a known visit status.
func IsValid(s Status) bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition reports whether from → to is a legal move.
func CanTransition(from, to Status) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether s has no outbound transitions.
func IsTerminal(s Status) bool {
	return len(transitions[s]) == 0 && IsValid(s)
}

// AllStatuses returns every known status, useful for exhaustive checks.
func AllStatuses() []Status {
	return []Status{StatusScheduled, StatusEnRoute, StatusStarted, StatusCompleted, StatusCancelled}
}
