package dto

import (
	"time"

	"github.com/spec-kit/sla-tracker/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Priority    domain.TicketPriority `json:"priority"`
	AssignedTo  *string               `json:"assigned_to"`
}

// UpdateTicketRequest payload. All fields optional; first_response_at and
// resolved_at are milestone timestamps evaluated against the ticket's
// SLA targets when first set.
type UpdateTicketRequest struct {
	Status          *domain.TicketStatus `json:"status"`
	AssignedTo      *string              `json:"assigned_to"`
	FirstResponseAt *time.Time           `json:"first_response_at"`
	ResolvedAt      *time.Time           `json:"resolved_at"`
}

// TicketResponse exposes a ticket with its SLA state.
type TicketResponse struct {
	ID                    string                `json:"id"`
	TicketNumber          string                `json:"ticket_number"`
	Title                 string                `json:"title"`
	Description           string                `json:"description"`
	Priority              domain.TicketPriority `json:"priority"`
	Status                domain.TicketStatus   `json:"status"`
	AssignedTo            *string               `json:"assigned_to"`
	ResponseTargetHours   float64               `json:"response_target_hours"`
	ResolutionTargetHours float64               `json:"resolution_target_hours"`
	FirstResponseAt       *time.Time            `json:"first_response_at"`
	ResolvedAt            *time.Time            `json:"resolved_at"`
	ResponseBreached      bool                  `json:"response_breached"`
	ResolutionBreached    bool                  `json:"resolution_breached"`
	ResponseTimeMins      *int                  `json:"response_time_mins"`
	ResolutionTimeMins    *int                  `json:"resolution_time_mins"`
	CreatedAt             time.Time             `json:"created_at"`
	UpdatedAt             time.Time             `json:"updated_at"`
}

// AtRiskTicketResponse is a ticket annotated with elapsed SLA percentage.
type AtRiskTicketResponse struct {
	TicketResponse
	PercentageElapsed int `json:"percentage_elapsed"`
}

// TicketListResponse is a paginated ticket collection.
type TicketListResponse struct {
	Items    []TicketResponse `json:"items"`
	Total    int              `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
}
