// Package sla implements the SLA computation core: target resolution,
// breach evaluation, at-risk detection and compliance aggregation. All
// functions are pure over domain values; persistence and scheduling live
// in the repository and worker packages.
package sla

import (
	"errors"
	"fmt"
	"time"

	"github.com/spec-kit/sla-tracker/internal/domain"
)

// ErrNoPolicy indicates the team has no SLA policy document. Registration
// always creates one, so hitting this is a setup defect.
var ErrNoPolicy = errors.New("no SLA policy configured")

// Targets are the per-priority response/resolution budgets in hours.
type Targets struct {
	ResponseHours   float64
	ResolutionHours float64
}

// ResolveTargets maps a ticket priority onto the policy's three-tier
// configuration. The result is snapshotted onto the ticket at creation.
func ResolveTargets(policy *domain.SLAPolicy, priority domain.TicketPriority) (Targets, error) {
	if policy == nil {
		return Targets{}, ErrNoPolicy
	}
	switch priority {
	case domain.TicketPriorityP1:
		return Targets{ResponseHours: policy.P1ResponseHours, ResolutionHours: policy.P1ResolutionHours}, nil
	case domain.TicketPriorityP2:
		return Targets{ResponseHours: policy.P2ResponseHours, ResolutionHours: policy.P2ResolutionHours}, nil
	case domain.TicketPriorityP3:
		return Targets{ResponseHours: policy.P3ResponseHours, ResolutionHours: policy.P3ResolutionHours}, nil
	default:
		return Targets{}, fmt.Errorf("unknown priority %q", priority)
	}
}

// TargetDuration converts an hour-denominated target into a duration.
func TargetDuration(hours float64) time.Duration {
	return time.Duration(hours * float64(time.Hour))
}
