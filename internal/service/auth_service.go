package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/sla-tracker/internal/auth"
	"github.com/spec-kit/sla-tracker/internal/config"
	"github.com/spec-kit/sla-tracker/internal/domain"
	"github.com/spec-kit/sla-tracker/internal/repository"
	apperrors "github.com/spec-kit/sla-tracker/pkg/util"
)

// AuthService coordinates team registration and login flows.
type AuthService struct {
	teams       repository.TeamRepository
	tokenMgr    *auth.TokenManager
	bcryptCost  int
	ticketLimit int
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, teams repository.TeamRepository) *AuthService {
	return &AuthService{
		teams:       teams,
		tokenMgr:    auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost:  cfg.Auth.BcryptCost,
		ticketLimit: cfg.Tickets.DefaultTicketLimit,
	}
}

// RegisterTeam creates a team together with its default SLA policy. Both
// writes commit as one unit; a team must never exist without a policy.
func (s *AuthService) RegisterTeam(ctx context.Context, name, email, password string) (*domain.Team, string, time.Time, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" || password == "" {
		return nil, "", time.Time{}, apperrors.NewValidationError("name, email, and password are required", nil)
	}
	if len(password) < 8 {
		return nil, "", time.Time{}, apperrors.NewValidationError("password must be at least 8 characters", nil)
	}

	if _, err := s.teams.GetByEmail(ctx, email); err == nil {
		return nil, "", time.Time{}, apperrors.NewConflict("email already registered", nil)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, "", time.Time{}, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	team := &domain.Team{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Members: []domain.TeamMember{
			{Name: name, Email: email, Role: domain.MemberRoleAdmin},
		},
		Plan:        domain.PlanFree,
		TicketsUsed: 0,
		TicketLimit: s.ticketLimit,
	}
	policy := domain.DefaultPolicy("")
	if err := s.teams.CreateWithDefaultPolicy(ctx, team, policy); err != nil {
		return nil, "", time.Time{}, err
	}

	token, exp, err := s.tokenMgr.GenerateToken(team.ID, team.Email)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return team, token, exp, nil
}

// Login authenticates a team by contact email and password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.Team, string, time.Time, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	team, err := s.teams.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid email or password")
		}
		return nil, "", time.Time{}, err
	}
	if err := auth.ComparePassword(team.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid email or password")
	}
	token, exp, err := s.tokenMgr.GenerateToken(team.ID, team.Email)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return team, token, exp, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
