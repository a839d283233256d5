package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sla-tracker/internal/auth"
	"github.com/spec-kit/sla-tracker/internal/service"
	apperrors "github.com/spec-kit/sla-tracker/pkg/util"
)

const (
	defaultTrendDays = 7
	maxTrendDays     = 30
)

// MetricsHandler serves compliance metrics endpoints.
type MetricsHandler struct {
	service *service.MetricsService
}

// NewMetricsHandler constructs handler.
func NewMetricsHandler(metricsService *service.MetricsService) *MetricsHandler {
	return &MetricsHandler{service: metricsService}
}

// Summary GET /metrics/summary.
func (h *MetricsHandler) Summary(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Team == nil {
		return apperrors.NewUnauthorized("team required")
	}
	summary, err := h.service.Summary(c.UserContext(), principal.Team.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": summary})
}

// DailyTrend GET /metrics/daily-trend.
func (h *MetricsHandler) DailyTrend(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Team == nil {
		return apperrors.NewUnauthorized("team required")
	}
	days := parseInt(c.Query("days"), defaultTrendDays)
	if days > maxTrendDays {
		days = maxTrendDays
	}
	trend, err := h.service.DailyTrend(c.UserContext(), principal.Team.ID, days)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": trend})
}
