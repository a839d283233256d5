package dto

import (
	"time"

	"github.com/spec-kit/sla-tracker/internal/domain"
)

// RegisterTeamRequest payload.
type RegisterTeamRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TeamResponse describes a team account.
type TeamResponse struct {
	ID          string                  `json:"id"`
	Name        string                  `json:"name"`
	Plan        domain.SubscriptionPlan `json:"plan"`
	PolicyID    *string                 `json:"policy_id"`
	TicketsUsed int                     `json:"tickets_used"`
	TicketLimit int                     `json:"ticket_limit"`
	Members     []MemberResponse        `json:"members"`
	CreatedAt   time.Time               `json:"created_at"`
}

// MemberResponse describes one team member.
type MemberResponse struct {
	Name  string            `json:"name"`
	Email string            `json:"email"`
	Role  domain.MemberRole `json:"role"`
}

// AuthResponse bundles the team with its session token.
type AuthResponse struct {
	Team      TeamResponse `json:"team"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
}
