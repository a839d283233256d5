package dto

import (
	"time"

	"github.com/spec-kit/sla-tracker/internal/domain"
)

// UpdatePolicyRequest payload. Absent fields keep their current values;
// holidays, when present, replaces the whole list.
type UpdatePolicyRequest struct {
	Name              *string  `json:"name"`
	P1ResponseTime    *float64 `json:"p1_response_time"`
	P2ResponseTime    *float64 `json:"p2_response_time"`
	P3ResponseTime    *float64 `json:"p3_response_time"`
	P1ResolutionTime  *float64 `json:"p1_resolution_time"`
	P2ResolutionTime  *float64 `json:"p2_resolution_time"`
	P3ResolutionTime  *float64 `json:"p3_resolution_time"`
	BusinessHoursOnly *bool    `json:"business_hours_only"`
	BusinessStart     *int     `json:"business_start"`
	BusinessEnd       *int     `json:"business_end"`
	Holidays          []string `json:"holidays"`
}

// PolicyResponse describes an SLA policy document.
type PolicyResponse struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	P1ResponseTime    float64   `json:"p1_response_time"`
	P2ResponseTime    float64   `json:"p2_response_time"`
	P3ResponseTime    float64   `json:"p3_response_time"`
	P1ResolutionTime  float64   `json:"p1_resolution_time"`
	P2ResolutionTime  float64   `json:"p2_resolution_time"`
	P3ResolutionTime  float64   `json:"p3_resolution_time"`
	BusinessHoursOnly bool      `json:"business_hours_only"`
	BusinessStart     int       `json:"business_start"`
	BusinessEnd       int       `json:"business_end"`
	Holidays          []string  `json:"holidays"`
	Active            bool      `json:"active"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// PolicyFromDomain maps a policy document onto its transport shape.
func PolicyFromDomain(policy *domain.SLAPolicy, active bool) PolicyResponse {
	holidays := make([]string, 0, len(policy.Holidays))
	for _, h := range policy.Holidays {
		holidays = append(holidays, h.Format("2006-01-02"))
	}
	return PolicyResponse{
		ID:                policy.ID,
		Name:              policy.Name,
		P1ResponseTime:    policy.P1ResponseHours,
		P2ResponseTime:    policy.P2ResponseHours,
		P3ResponseTime:    policy.P3ResponseHours,
		P1ResolutionTime:  policy.P1ResolutionHours,
		P2ResolutionTime:  policy.P2ResolutionHours,
		P3ResolutionTime:  policy.P3ResolutionHours,
		BusinessHoursOnly: policy.BusinessHoursOnly,
		BusinessStart:     policy.BusinessHours.Start,
		BusinessEnd:       policy.BusinessHours.End,
		Holidays:          holidays,
		Active:            active,
		CreatedAt:         policy.CreatedAt,
		UpdatedAt:         policy.UpdatedAt,
	}
}
