package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sla-tracker/internal/api/dto"
	"github.com/spec-kit/sla-tracker/internal/auth"
	"github.com/spec-kit/sla-tracker/internal/domain"
	"github.com/spec-kit/sla-tracker/internal/service"
	apperrors "github.com/spec-kit/sla-tracker/pkg/util"
)

// TicketsHandler manages ticket endpoints.
type TicketsHandler struct {
	tickets *service.TicketService
	metrics *service.MetricsService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService, metricsService *service.MetricsService) *TicketsHandler {
	return &TicketsHandler{tickets: ticketService, metrics: metricsService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Team == nil {
		return apperrors.NewUnauthorized("team required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Title) == "" {
		return apperrors.NewValidationError("title required", nil)
	}

	input := service.TicketCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		AssignedTo:  req.AssignedTo,
	}
	ticket, err := h.tickets.CreateTicket(c.UserContext(), principal.Team.ID, input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Team == nil {
		return apperrors.NewUnauthorized("team required")
	}
	filter, page, pageSize := parseTicketQuery(c)
	tickets, total, err := h.tickets.ListTickets(c.UserContext(), principal.Team.ID, filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketResponse(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": dto.TicketListResponse{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Team == nil {
		return apperrors.NewUnauthorized("team required")
	}
	ticket, err := h.tickets.GetTicket(c.UserContext(), principal.Team.ID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// UpdateTicket PATCH /tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Team == nil {
		return apperrors.NewUnauthorized("team required")
	}
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.TicketUpdateInput{
		Status:          req.Status,
		AssignedTo:      req.AssignedTo,
		FirstResponseAt: req.FirstResponseAt,
		ResolvedAt:      req.ResolvedAt,
	}
	ticket, err := h.tickets.UpdateTicket(c.UserContext(), principal.Team.ID, c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// ListAtRisk GET /tickets/at-risk.
func (h *TicketsHandler) ListAtRisk(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Team == nil {
		return apperrors.NewUnauthorized("team required")
	}
	atRisk, err := h.metrics.AtRiskTickets(c.UserContext(), principal.Team.ID)
	if err != nil {
		return err
	}
	items := make([]dto.AtRiskTicketResponse, 0, len(atRisk))
	for i := range atRisk {
		items = append(items, dto.AtRiskTicketResponse{
			TicketResponse:    ticketResponse(&atRisk[i].Ticket),
			PercentageElapsed: atRisk[i].PercentageElapsed,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

func parseTicketQuery(c *fiber.Ctx) (service.TicketListFilter, int, int) {
	filter := service.TicketListFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.TrimSpace(part)))
		}
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		for _, part := range strings.Split(priorityStr, ",") {
			filter.Priorities = append(filter.Priorities, domain.TicketPriority(strings.TrimSpace(part)))
		}
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter, page, pageSize
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func ticketResponse(ticket *domain.Ticket) dto.TicketResponse {
	return dto.TicketResponse{
		ID:                    ticket.ID,
		TicketNumber:          ticket.TicketNumber,
		Title:                 ticket.Title,
		Description:           ticket.Description,
		Priority:              ticket.Priority,
		Status:                ticket.Status,
		AssignedTo:            ticket.AssignedTo,
		ResponseTargetHours:   ticket.ResponseTargetHours,
		ResolutionTargetHours: ticket.ResolutionTargetHours,
		FirstResponseAt:       ticket.FirstResponseAt,
		ResolvedAt:            ticket.ResolvedAt,
		ResponseBreached:      ticket.ResponseBreached,
		ResolutionBreached:    ticket.ResolutionBreached,
		ResponseTimeMins:      ticket.ResponseTimeMins,
		ResolutionTimeMins:    ticket.ResolutionTimeMins,
		CreatedAt:             ticket.CreatedAt,
		UpdatedAt:             ticket.UpdatedAt,
	}
}
