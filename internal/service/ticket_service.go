package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/sla-tracker/internal/config"
	"github.com/spec-kit/sla-tracker/internal/domain"
	"github.com/spec-kit/sla-tracker/internal/events"
	"github.com/spec-kit/sla-tracker/internal/repository"
	"github.com/spec-kit/sla-tracker/internal/sla"
	apperrors "github.com/spec-kit/sla-tracker/pkg/util"
)

// TicketService coordinates ticket workflows: creation with SLA target
// snapshotting and quota enforcement, lifecycle updates routed through the
// breach evaluator, and team-scoped listing.
type TicketService struct {
	tickets    repository.TicketRepository
	teams      repository.TeamRepository
	policies   repository.PolicyRepository
	dispatcher events.Dispatcher
	cfg        config.TicketConfig
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	TeamRepo   repository.TeamRepository
	PolicyRepo repository.PolicyRepository
	Dispatcher events.Dispatcher
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	Priority    domain.TicketPriority
	AssignedTo  *string
}

// TicketUpdateInput describes a partial ticket update. FirstResponseAt and
// ResolvedAt are milestone events, not plain field writes: they pass through
// the breach evaluator and are write-once.
type TicketUpdateInput struct {
	Status          *domain.TicketStatus
	AssignedTo      *string
	FirstResponseAt *time.Time
	ResolvedAt      *time.Time
}

// TicketListFilter describes listing filters.
type TicketListFilter struct {
	Statuses   []domain.TicketStatus
	Priorities []domain.TicketPriority
	Limit      int
	Offset     int
}

// NewTicketService constructs the service.
func NewTicketService(cfg config.TicketConfig, deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		teams:      deps.TeamRepo,
		policies:   deps.PolicyRepo,
		dispatcher: deps.Dispatcher,
		cfg:        cfg,
	}
}

// CreateTicket creates a ticket for a team, snapshotting the active
// policy's targets for the requested priority.
func (s *TicketService) CreateTicket(ctx context.Context, teamID string, input TicketCreateInput) (*domain.Ticket, error) {
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" || description == "" {
		return nil, apperrors.NewValidationError("title and description are required", nil)
	}
	if !domain.ValidPriority(input.Priority) {
		return nil, apperrors.NewValidationError("priority must be P1, P2, or P3",
			map[string]any{"priority": input.Priority})
	}

	team, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("team", map[string]any{"team_id": teamID})
		}
		return nil, err
	}

	policy, err := s.policies.GetActiveByTeam(ctx, teamID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewPolicyNotFound(teamID)
		}
		return nil, err
	}

	targets, err := sla.ResolveTargets(policy, input.Priority)
	if err != nil {
		return nil, apperrors.NewPolicyNotFound(teamID)
	}

	ok, err := s.teams.ConsumeTicketQuota(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.NewQuotaExceeded(team.TicketLimit)
	}

	ticket := &domain.Ticket{
		TeamID:                teamID,
		TicketNumber:          generateTicketNumber(),
		Title:                 title,
		Description:           description,
		Priority:              input.Priority,
		Status:                domain.TicketStatusOpen,
		AssignedTo:            input.AssignedTo,
		PolicyID:              policy.ID,
		ResponseTargetHours:   targets.ResponseHours,
		ResolutionTargetHours: targets.ResolutionHours,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TeamID:   teamID,
		TicketID: ticket.ID,
		Payload: events.TicketCreatedPayload{
			TicketNumber:        ticket.TicketNumber,
			Title:               ticket.Title,
			Priority:            ticket.Priority,
			ResponseTargetHours: ticket.ResponseTargetHours,
			ResolutionTargetHrs: ticket.ResolutionTargetHours,
		},
	})
	return ticket, nil
}

// UpdateTicket applies a partial update. Status and assignee are plain
// writes; the two timestamp fields are routed through the breach evaluator
// with write-once semantics enforced by a conditional update in the store,
// so concurrent duplicate submissions resolve to exactly one winner.
func (s *TicketService) UpdateTicket(ctx context.Context, teamID, ticketID string, input TicketUpdateInput) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, err
	}
	if ticket.TeamID != teamID {
		return nil, apperrors.NewForbidden("ticket belongs to another team")
	}

	oldStatus := ticket.Status
	mutated := false

	if input.Status != nil {
		if !domain.ValidStatus(*input.Status) {
			return nil, apperrors.NewValidationError("invalid status",
				map[string]any{"status": *input.Status})
		}
		if s.cfg.EnforceTransitions && !transitionAllowed(ticket.Status, *input.Status) {
			return nil, apperrors.NewValidationError("status transition not allowed",
				map[string]any{"from": ticket.Status, "to": *input.Status})
		}
		ticket.Status = *input.Status
		mutated = true
	}
	if input.AssignedTo != nil {
		ticket.AssignedTo = input.AssignedTo
		mutated = true
	}
	if mutated {
		if err := s.tickets.UpdateMutable(ctx, ticket); err != nil {
			return nil, err
		}
	}

	if input.FirstResponseAt != nil {
		if err := s.recordFirstResponse(ctx, ticket, *input.FirstResponseAt); err != nil {
			return nil, err
		}
	}
	if input.ResolvedAt != nil {
		if err := s.recordResolution(ctx, ticket, *input.ResolvedAt); err != nil {
			return nil, err
		}
	}

	if oldStatus != ticket.Status {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketStatusChanged,
			TeamID:   teamID,
			TicketID: ticket.ID,
			Payload: events.TicketStatusChangedPayload{
				TicketNumber: ticket.TicketNumber,
				OldStatus:    oldStatus,
				NewStatus:    ticket.Status,
			},
		})
	}
	return ticket, nil
}

func (s *TicketService) recordFirstResponse(ctx context.Context, ticket *domain.Ticket, at time.Time) error {
	work := *ticket
	if !sla.ApplyFirstResponse(&work, at) {
		return nil
	}
	applied, err := s.tickets.RecordFirstResponse(ctx, ticket.ID, at, *work.ResponseTimeMins, work.ResponseBreached)
	if err != nil {
		return err
	}
	if !applied {
		// Lost the conditional update; another writer recorded first.
		return nil
	}
	*ticket = work
	if ticket.ResponseBreached {
		s.publishBreach(ctx, ticket, "response", *ticket.ResponseTimeMins)
	}
	return nil
}

func (s *TicketService) recordResolution(ctx context.Context, ticket *domain.Ticket, at time.Time) error {
	work := *ticket
	if !sla.ApplyResolution(&work, at) {
		return nil
	}
	applied, err := s.tickets.RecordResolution(ctx, ticket.ID, at, *work.ResolutionTimeMins, work.ResolutionBreached)
	if err != nil {
		return err
	}
	if !applied {
		return nil
	}
	*ticket = work
	if ticket.ResolutionBreached {
		s.publishBreach(ctx, ticket, "resolution", *ticket.ResolutionTimeMins)
	}
	return nil
}

// GetTicket fetches a ticket ensuring team ownership.
func (s *TicketService) GetTicket(ctx context.Context, teamID, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, err
	}
	if ticket.TeamID != teamID {
		return nil, apperrors.NewForbidden("ticket belongs to another team")
	}
	return ticket, nil
}

// ListTickets returns paginated tickets for a team with the total count.
func (s *TicketService) ListTickets(ctx context.Context, teamID string, filter TicketListFilter) ([]domain.Ticket, int, error) {
	repoFilter := repository.TicketFilter{
		TeamID:     &teamID,
		Statuses:   filter.Statuses,
		Priorities: filter.Priorities,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}
	tickets, err := s.tickets.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, 0, err
	}
	countFilter := repoFilter
	countFilter.Limit = 0
	countFilter.Offset = 0
	total, err := s.tickets.CountWithFilter(ctx, countFilter)
	if err != nil {
		return nil, 0, err
	}
	return tickets, total, nil
}

func (s *TicketService) publishBreach(ctx context.Context, ticket *domain.Ticket, milestone string, elapsedMins int) {
	s.publishEvent(ctx, events.Event{
		Type:     events.EventSLABreached,
		TeamID:   ticket.TeamID,
		TicketID: ticket.ID,
		Payload: events.SLABreachedPayload{
			TicketNumber: ticket.TicketNumber,
			Priority:     ticket.Priority,
			Milestone:    milestone,
			ElapsedMins:  elapsedMins,
		},
	})
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func generateTicketNumber() string {
	return "TKT-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}

// statusRank orders lifecycle states. Used only when transition enforcement
// is enabled: a ticket may move forward but never regress.
var statusRank = map[domain.TicketStatus]int{
	domain.TicketStatusOpen:       0,
	domain.TicketStatusAssigned:   1,
	domain.TicketStatusInProgress: 2,
	domain.TicketStatusResolved:   3,
	domain.TicketStatusClosed:     4,
}

func transitionAllowed(current, next domain.TicketStatus) bool {
	return statusRank[next] > statusRank[current]
}
