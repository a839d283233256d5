package events

import (
	"time"

	"github.com/spec-kit/sla-tracker/internal/domain"
	"github.com/spec-kit/sla-tracker/internal/sla"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketAtRisk        EventType = "ticket_at_risk"
	EventSLABreached         EventType = "sla_breached"
	EventDailySummary        EventType = "daily_summary"
)

// Event represents a domain event emitted by services and the alert sweep.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TeamID    string      `json:"team_id"`
	TicketID  string      `json:"ticket_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	TicketNumber        string                `json:"ticket_number"`
	Title               string                `json:"title"`
	Priority            domain.TicketPriority `json:"priority"`
	ResponseTargetHours float64               `json:"response_target_hours"`
	ResolutionTargetHrs float64               `json:"resolution_target_hours"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	TicketNumber string              `json:"ticket_number"`
	OldStatus    domain.TicketStatus `json:"old_status"`
	NewStatus    domain.TicketStatus `json:"new_status"`
}

// TicketAtRiskPayload carries what the notification collaborator needs to
// warn operators before the formal breach.
type TicketAtRiskPayload struct {
	TicketNumber      string                `json:"ticket_number"`
	Title             string                `json:"title"`
	Priority          domain.TicketPriority `json:"priority"`
	PercentageElapsed int                   `json:"percentage_elapsed"`
	MinutesRemaining  int                   `json:"minutes_remaining"`
	RecipientEmail    string                `json:"recipient_email"`
}

// SLABreachedPayload payload.
type SLABreachedPayload struct {
	TicketNumber string                `json:"ticket_number"`
	Priority     domain.TicketPriority `json:"priority"`
	Milestone    string                `json:"milestone"`
	ElapsedMins  int                   `json:"elapsed_minutes"`
}

// DailySummaryPayload carries a team's metrics snapshot.
type DailySummaryPayload struct {
	RecipientEmail string      `json:"recipient_email"`
	Summary        sla.Summary `json:"summary"`
}
