package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/sla-tracker/internal/domain"
	"github.com/spec-kit/sla-tracker/internal/repository"
	apperrors "github.com/spec-kit/sla-tracker/pkg/util"
)

// PolicyService manages SLA policy reads and partial updates.
type PolicyService struct {
	policies repository.PolicyRepository
}

// NewPolicyService constructs the service.
func NewPolicyService(policies repository.PolicyRepository) *PolicyService {
	return &PolicyService{policies: policies}
}

// PolicyUpdateInput is a partial update; nil fields are left untouched.
type PolicyUpdateInput struct {
	Name              *string
	P1ResponseHours   *float64
	P2ResponseHours   *float64
	P3ResponseHours   *float64
	P1ResolutionHours *float64
	P2ResolutionHours *float64
	P3ResolutionHours *float64
	BusinessHoursOnly *bool
	BusinessStart     *int
	BusinessEnd       *int
	Holidays          []time.Time
}

// ListPolicies returns all policy documents owned by the team.
func (s *PolicyService) ListPolicies(ctx context.Context, teamID string) ([]domain.SLAPolicy, error) {
	return s.policies.ListByTeam(ctx, teamID)
}

// UpdatePolicy applies a partial update after an ownership check. Every
// numeric field is validated independently before assignment, so a bad
// value rejects the request with the offending field named rather than
// silently skipping it. Updated targets only govern tickets created after
// the update; existing tickets keep their snapshot.
func (s *PolicyService) UpdatePolicy(ctx context.Context, teamID, policyID string, input PolicyUpdateInput) (*domain.SLAPolicy, error) {
	policy, err := s.policies.GetByID(ctx, policyID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("policy", map[string]any{"policy_id": policyID})
		}
		return nil, err
	}
	if policy.TeamID != teamID {
		return nil, apperrors.NewForbidden("policy belongs to another team")
	}

	if input.Name != nil {
		policy.Name = *input.Name
	}

	for _, field := range []struct {
		name  string
		value *float64
		dst   *float64
	}{
		{"p1ResponseTime", input.P1ResponseHours, &policy.P1ResponseHours},
		{"p2ResponseTime", input.P2ResponseHours, &policy.P2ResponseHours},
		{"p3ResponseTime", input.P3ResponseHours, &policy.P3ResponseHours},
		{"p1ResolutionTime", input.P1ResolutionHours, &policy.P1ResolutionHours},
		{"p2ResolutionTime", input.P2ResolutionHours, &policy.P2ResolutionHours},
		{"p3ResolutionTime", input.P3ResolutionHours, &policy.P3ResolutionHours},
	} {
		if field.value == nil {
			continue
		}
		if *field.value < domain.MinTargetHours {
			return nil, apperrors.NewValidationError(
				fmt.Sprintf("%s must be at least 15 minutes", field.name),
				map[string]any{"field": field.name, "value": *field.value})
		}
		*field.dst = *field.value
	}

	if input.BusinessHoursOnly != nil {
		policy.BusinessHoursOnly = *input.BusinessHoursOnly
	}
	if input.BusinessStart != nil {
		if *input.BusinessStart < 0 || *input.BusinessStart > 23 {
			return nil, apperrors.NewValidationError("business hours start must be between 0 and 23",
				map[string]any{"field": "businessHours.start", "value": *input.BusinessStart})
		}
		policy.BusinessHours.Start = *input.BusinessStart
	}
	if input.BusinessEnd != nil {
		if *input.BusinessEnd < 0 || *input.BusinessEnd > 23 {
			return nil, apperrors.NewValidationError("business hours end must be between 0 and 23",
				map[string]any{"field": "businessHours.end", "value": *input.BusinessEnd})
		}
		policy.BusinessHours.End = *input.BusinessEnd
	}
	if input.Holidays != nil {
		policy.Holidays = input.Holidays
	}

	if err := s.policies.Update(ctx, policy); err != nil {
		return nil, err
	}
	return policy, nil
}
