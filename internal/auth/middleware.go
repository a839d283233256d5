package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/sla-tracker/internal/domain"
	"github.com/spec-kit/sla-tracker/internal/repository"
	apperrors "github.com/spec-kit/sla-tracker/pkg/util"
)

const principalKey = "auth_principal"

// Principal is the authenticated team making the request.
type Principal struct {
	Team *domain.Team
}

// AuthMiddleware validates bearer tokens and loads the team principal.
type AuthMiddleware struct {
	tokens *TokenManager
	teams  repository.TeamRepository
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, teams repository.TeamRepository) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, teams: teams}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	team, err := m.teams.GetByID(c.Context(), claims.TeamID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.NewUnauthorized("team not found")
		}
		return apperrors.MapError(err)
	}

	c.Locals(principalKey, &Principal{Team: team})
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated team.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
