package domain

import "time"

// MinTargetHours is the smallest accepted SLA target (15 minutes).
const MinTargetHours = 0.25

// BusinessHours is a daily working window. Stored with the policy but not
// applied to SLA time arithmetic; all elapsed-time math is wall-clock.
type BusinessHours struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// SLAPolicy holds per-team response/resolution targets in hours, one pair
// per priority tier. A team may own several policy rows but only the one
// referenced by Team.PolicyID governs new tickets.
type SLAPolicy struct {
	ID                string
	TeamID            string
	Name              string
	P1ResponseHours   float64
	P2ResponseHours   float64
	P3ResponseHours   float64
	P1ResolutionHours float64
	P2ResolutionHours float64
	P3ResolutionHours float64
	BusinessHoursOnly bool
	BusinessHours     BusinessHours
	Holidays          []time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// DefaultPolicy returns the policy created alongside every new team.
func DefaultPolicy(teamID string) *SLAPolicy {
	return &SLAPolicy{
		TeamID:            teamID,
		Name:              "Default Policy",
		P1ResponseHours:   1,
		P2ResponseHours:   4,
		P3ResponseHours:   24,
		P1ResolutionHours: 2,
		P2ResolutionHours: 8,
		P3ResolutionHours: 48,
		BusinessHoursOnly: false,
		BusinessHours:     BusinessHours{Start: 9, End: 17},
	}
}
