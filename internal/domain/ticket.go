package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusAssigned   TicketStatus = "assigned"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// TicketPriority enumerates SLA urgency tiers.
type TicketPriority string

const (
	TicketPriorityP1 TicketPriority = "P1"
	TicketPriorityP2 TicketPriority = "P2"
	TicketPriorityP3 TicketPriority = "P3"
)

// ValidPriority reports whether p is one of the three supported tiers.
func ValidPriority(p TicketPriority) bool {
	switch p {
	case TicketPriorityP1, TicketPriorityP2, TicketPriorityP3:
		return true
	}
	return false
}

// ValidStatus reports whether s is a known lifecycle state.
func ValidStatus(s TicketStatus) bool {
	switch s {
	case TicketStatusOpen, TicketStatusAssigned, TicketStatusInProgress,
		TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// Ticket is the aggregate for tracked support requests. SLA targets are
// snapshotted from the team's active policy at creation time and never
// re-resolved afterwards; later policy edits do not affect existing tickets.
type Ticket struct {
	ID                    string
	TeamID                string
	TicketNumber          string
	Title                 string
	Description           string
	Priority              TicketPriority
	Status                TicketStatus
	AssignedTo            *string
	PolicyID              string
	ResponseTargetHours   float64
	ResolutionTargetHours float64
	FirstResponseAt       *time.Time
	ResolvedAt            *time.Time
	ResponseBreached      bool
	ResolutionBreached    bool
	ResponseTimeMins      *int
	ResolutionTimeMins    *int
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Open reports whether the ticket still counts against its SLA clocks.
func (t *Ticket) Open() bool {
	return t.Status != TicketStatusResolved && t.Status != TicketStatusClosed
}

// Breached reports whether either SLA target has been missed.
func (t *Ticket) Breached() bool {
	return t.ResponseBreached || t.ResolutionBreached
}
