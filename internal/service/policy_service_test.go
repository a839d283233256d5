package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/sla-tracker/internal/domain"
	apperrors "github.com/spec-kit/sla-tracker/pkg/util"
)

func newPolicyServiceFixture(t *testing.T) (*PolicyService, *fakePolicyRepo, *domain.SLAPolicy) {
	t.Helper()
	policies := newFakePolicyRepo()

	policy := domain.DefaultPolicy("team-1")
	policy.ID = "policy-1"
	policies.add(policy, true)

	return NewPolicyService(policies), policies, policy
}

func TestUpdatePolicyPartial(t *testing.T) {
	svc, _, policy := newPolicyServiceFixture(t)
	ctx := context.Background()

	newP1 := 0.5
	name := "After-hours policy"
	updated, err := svc.UpdatePolicy(ctx, "team-1", policy.ID, PolicyUpdateInput{
		Name:            &name,
		P1ResponseHours: &newP1,
	})
	require.NoError(t, err)

	assert.Equal(t, name, updated.Name)
	assert.Equal(t, 0.5, updated.P1ResponseHours)
	// Untouched fields keep their values.
	assert.Equal(t, policy.P2ResponseHours, updated.P2ResponseHours)
	assert.Equal(t, policy.P1ResolutionHours, updated.P1ResolutionHours)
}

func TestUpdatePolicyMinimumTarget(t *testing.T) {
	svc, _, policy := newPolicyServiceFixture(t)
	ctx := context.Background()

	tooSmall := 0.1
	tests := []struct {
		field string
		input PolicyUpdateInput
	}{
		{"p1ResponseTime", PolicyUpdateInput{P1ResponseHours: &tooSmall}},
		{"p2ResponseTime", PolicyUpdateInput{P2ResponseHours: &tooSmall}},
		{"p3ResponseTime", PolicyUpdateInput{P3ResponseHours: &tooSmall}},
		{"p1ResolutionTime", PolicyUpdateInput{P1ResolutionHours: &tooSmall}},
		{"p2ResolutionTime", PolicyUpdateInput{P2ResolutionHours: &tooSmall}},
		{"p3ResolutionTime", PolicyUpdateInput{P3ResolutionHours: &tooSmall}},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			_, err := svc.UpdatePolicy(ctx, "team-1", policy.ID, tt.input)
			var domainErr *apperrors.DomainError
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
			assert.Equal(t, tt.field, domainErr.Details["field"])
		})
	}

	// Exactly 15 minutes is accepted.
	minimum := domain.MinTargetHours
	updated, err := svc.UpdatePolicy(ctx, "team-1", policy.ID, PolicyUpdateInput{P1ResponseHours: &minimum})
	require.NoError(t, err)
	assert.Equal(t, minimum, updated.P1ResponseHours)
}

func TestUpdatePolicyRejectedFieldLeavesPolicyUntouched(t *testing.T) {
	svc, policies, policy := newPolicyServiceFixture(t)
	ctx := context.Background()

	good := 2.0
	bad := 0.01
	_, err := svc.UpdatePolicy(ctx, "team-1", policy.ID, PolicyUpdateInput{
		P1ResponseHours: &good,
		P2ResponseHours: &bad,
	})
	require.Error(t, err)

	stored, err := policies.GetByID(ctx, policy.ID)
	require.NoError(t, err)
	assert.Equal(t, policy.P1ResponseHours, stored.P1ResponseHours)
}

func TestUpdatePolicyBusinessHours(t *testing.T) {
	svc, _, policy := newPolicyServiceFixture(t)
	ctx := context.Background()

	start, end := 8, 18
	enabled := true
	updated, err := svc.UpdatePolicy(ctx, "team-1", policy.ID, PolicyUpdateInput{
		BusinessHoursOnly: &enabled,
		BusinessStart:     &start,
		BusinessEnd:       &end,
	})
	require.NoError(t, err)
	assert.True(t, updated.BusinessHoursOnly)
	assert.Equal(t, 8, updated.BusinessHours.Start)
	assert.Equal(t, 18, updated.BusinessHours.End)

	outOfRange := 24
	_, err = svc.UpdatePolicy(ctx, "team-1", policy.ID, PolicyUpdateInput{BusinessStart: &outOfRange})
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
}

func TestUpdatePolicyHolidaysReplace(t *testing.T) {
	svc, _, policy := newPolicyServiceFixture(t)
	ctx := context.Background()

	first := []time.Time{time.Date(2026, 12, 25, 0, 0, 0, 0, time.UTC)}
	updated, err := svc.UpdatePolicy(ctx, "team-1", policy.ID, PolicyUpdateInput{Holidays: first})
	require.NoError(t, err)
	require.Len(t, updated.Holidays, 1)

	second := []time.Time{
		time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2027, 7, 4, 0, 0, 0, 0, time.UTC),
	}
	updated, err = svc.UpdatePolicy(ctx, "team-1", policy.ID, PolicyUpdateInput{Holidays: second})
	require.NoError(t, err)
	assert.Equal(t, second, updated.Holidays)
}

func TestUpdatePolicyOwnership(t *testing.T) {
	svc, _, policy := newPolicyServiceFixture(t)
	ctx := context.Background()

	name := "hijack"
	_, err := svc.UpdatePolicy(ctx, "other-team", policy.ID, PolicyUpdateInput{Name: &name})
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "FORBIDDEN", domainErr.Code)

	_, err = svc.UpdatePolicy(ctx, "team-1", "missing", PolicyUpdateInput{Name: &name})
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "NOT_FOUND", domainErr.Code)
}
