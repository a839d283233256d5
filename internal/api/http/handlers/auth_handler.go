package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sla-tracker/internal/api/dto"
	"github.com/spec-kit/sla-tracker/internal/domain"
	"github.com/spec-kit/sla-tracker/internal/service"
	apperrors "github.com/spec-kit/sla-tracker/pkg/util"
)

// AuthHandler manages team registration and login.
type AuthHandler struct {
	service *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{service: authService}
}

// Register POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterTeamRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return apperrors.NewValidationError("name, email, password required", nil)
	}

	team, token, expiresAt, err := h.service.RegisterTeam(c.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.AuthResponse{
		Team:      teamResponse(team),
		Token:     token,
		ExpiresAt: expiresAt,
	}})
}

// Login POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email, password required", nil)
	}

	team, token, expiresAt, err := h.service.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AuthResponse{
		Team:      teamResponse(team),
		Token:     token,
		ExpiresAt: expiresAt,
	}})
}

func teamResponse(team *domain.Team) dto.TeamResponse {
	members := make([]dto.MemberResponse, 0, len(team.Members))
	for _, m := range team.Members {
		members = append(members, dto.MemberResponse{Name: m.Name, Email: m.Email, Role: m.Role})
	}
	return dto.TeamResponse{
		ID:          team.ID,
		Name:        team.Name,
		Plan:        team.Plan,
		PolicyID:    team.PolicyID,
		TicketsUsed: team.TicketsUsed,
		TicketLimit: team.TicketLimit,
		Members:     members,
		CreatedAt:   team.CreatedAt,
	}
}
