package domain

import "time"

// MemberRole enumerates membership roles inside a team.
type MemberRole string

const (
	MemberRoleAdmin  MemberRole = "admin"
	MemberRoleMember MemberRole = "member"
	MemberRoleViewer MemberRole = "viewer"
)

// SubscriptionPlan enumerates billing tiers.
type SubscriptionPlan string

const (
	PlanFree       SubscriptionPlan = "free"
	PlanPro        SubscriptionPlan = "pro"
	PlanEnterprise SubscriptionPlan = "enterprise"
)

// TeamMember is an addressable person inside a team.
type TeamMember struct {
	Name  string     `json:"name"`
	Email string     `json:"email"`
	Role  MemberRole `json:"role"`
}

// Team is the tenant boundary. TicketsUsed only moves forward; creation is
// rejected once it reaches TicketLimit.
type Team struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Members      []TeamMember
	PolicyID     *string
	Plan         SubscriptionPlan
	TicketsUsed  int
	TicketLimit  int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AdminEmail returns the first admin member's email, falling back to the
// team contact address.
func (t *Team) AdminEmail() string {
	for _, m := range t.Members {
		if m.Role == MemberRoleAdmin {
			return m.Email
		}
	}
	return t.Email
}
