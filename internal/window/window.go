// Package window classifies a point in time against a sale's
// half-open [start, end) interval. Pure functions, no clock of its own:
// callers pass "now" so both the exposer path and the execution path
// re-check at the moment that matters.
package window

import "time"

type Phase int

const (
	PhaseBefore Phase = iota
	PhaseOpen
	PhaseAfter
)

func (p Phase) String() string {
	switch p {
	case PhaseBefore:
		return "before"
	case PhaseOpen:
		return "open"
	case PhaseAfter:
		return "after"
	default:
		return "unknown"
	}
}

// Classify returns PhaseOpen iff start <= now < end.
func Classify(now, start, end time.Time) Phase {
	if now.Before(start) {
		return PhaseBefore
	}
	if now.Before(end) {
		return PhaseOpen
	}
	return PhaseAfter
}
