package sla

import (
	"math"
	"time"

	"github.com/spec-kit/sla-tracker/internal/domain"
)

// ApplyFirstResponse records the first-response milestone on the ticket.
// The call is a no-op when FirstResponseAt is already set: the write-once
// guard dominates breach recomputation, so a later duplicate call can never
// flip flags or timings computed from the first one. Returns whether the
// milestone was applied.
//
// Elapsed time is wall-clock from CreatedAt. Exact equality with the target
// is not a breach; breach requires strictly greater.
func ApplyFirstResponse(t *domain.Ticket, at time.Time) bool {
	if t.FirstResponseAt != nil {
		return false
	}
	elapsed := at.Sub(t.CreatedAt)
	mins := elapsedMinutes(elapsed)

	stamp := at
	t.FirstResponseAt = &stamp
	t.ResponseTimeMins = &mins
	if elapsed > TargetDuration(t.ResponseTargetHours) {
		t.ResponseBreached = true
	}
	return true
}

// ApplyResolution records the resolution milestone, symmetric with
// ApplyFirstResponse against the resolution target.
func ApplyResolution(t *domain.Ticket, at time.Time) bool {
	if t.ResolvedAt != nil {
		return false
	}
	elapsed := at.Sub(t.CreatedAt)
	mins := elapsedMinutes(elapsed)

	stamp := at
	t.ResolvedAt = &stamp
	t.ResolutionTimeMins = &mins
	if elapsed > TargetDuration(t.ResolutionTargetHours) {
		t.ResolutionBreached = true
	}
	return true
}

// elapsedMinutes rounds a duration to the nearest whole minute.
func elapsedMinutes(d time.Duration) int {
	return int(math.Round(d.Minutes()))
}
