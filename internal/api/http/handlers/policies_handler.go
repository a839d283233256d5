package handlers

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sla-tracker/internal/api/dto"
	"github.com/spec-kit/sla-tracker/internal/auth"
	"github.com/spec-kit/sla-tracker/internal/service"
	apperrors "github.com/spec-kit/sla-tracker/pkg/util"
)

// PoliciesHandler manages SLA policy endpoints.
type PoliciesHandler struct {
	service *service.PolicyService
}

// NewPoliciesHandler constructs handler.
func NewPoliciesHandler(policyService *service.PolicyService) *PoliciesHandler {
	return &PoliciesHandler{service: policyService}
}

// ListPolicies GET /policies.
func (h *PoliciesHandler) ListPolicies(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Team == nil {
		return apperrors.NewUnauthorized("team required")
	}
	policies, err := h.service.ListPolicies(c.UserContext(), principal.Team.ID)
	if err != nil {
		return err
	}
	items := make([]dto.PolicyResponse, 0, len(policies))
	for i := range policies {
		active := principal.Team.PolicyID != nil && *principal.Team.PolicyID == policies[i].ID
		items = append(items, dto.PolicyFromDomain(&policies[i], active))
	}
	return c.JSON(fiber.Map{"data": items})
}

// UpdatePolicy PATCH /policies/:id.
func (h *PoliciesHandler) UpdatePolicy(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Team == nil {
		return apperrors.NewUnauthorized("team required")
	}
	var req dto.UpdatePolicyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.PolicyUpdateInput{
		Name:              req.Name,
		P1ResponseHours:   req.P1ResponseTime,
		P2ResponseHours:   req.P2ResponseTime,
		P3ResponseHours:   req.P3ResponseTime,
		P1ResolutionHours: req.P1ResolutionTime,
		P2ResolutionHours: req.P2ResolutionTime,
		P3ResolutionHours: req.P3ResolutionTime,
		BusinessHoursOnly: req.BusinessHoursOnly,
		BusinessStart:     req.BusinessStart,
		BusinessEnd:       req.BusinessEnd,
	}
	if req.Holidays != nil {
		holidays, err := parseHolidays(req.Holidays)
		if err != nil {
			return err
		}
		input.Holidays = holidays
	}

	policy, err := h.service.UpdatePolicy(c.UserContext(), principal.Team.ID, c.Params("id"), input)
	if err != nil {
		return err
	}
	active := principal.Team.PolicyID != nil && *principal.Team.PolicyID == policy.ID
	return c.JSON(fiber.Map{"data": dto.PolicyFromDomain(policy, active)})
}

func parseHolidays(values []string) ([]time.Time, error) {
	holidays := make([]time.Time, 0, len(values))
	for _, value := range values {
		day, err := time.Parse("2006-01-02", value)
		if err != nil {
			return nil, apperrors.NewValidationError(fmt.Sprintf("invalid holiday date %q, expected YYYY-MM-DD", value), nil)
		}
		holidays = append(holidays, day)
	}
	return holidays, nil
}
