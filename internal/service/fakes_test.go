package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/sla-tracker/internal/domain"
	"github.com/spec-kit/sla-tracker/internal/events"
	"github.com/spec-kit/sla-tracker/internal/repository"
)

// In-memory repository fakes backing the service tests. They model the same
// conditional-write guarantees the SQL implementations give (write-once
// milestones, quota check-and-increment).

type fakeTeamRepo struct {
	mu    sync.Mutex
	teams map[string]*domain.Team
	seq   int
}

func newFakeTeamRepo() *fakeTeamRepo {
	return &fakeTeamRepo{teams: make(map[string]*domain.Team)}
}

func (r *fakeTeamRepo) CreateWithDefaultPolicy(ctx context.Context, team *domain.Team, policy *domain.SLAPolicy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	if team.ID == "" {
		team.ID = "team-" + time.Now().Format("150405") + "-" + string(rune('a'+r.seq))
	}
	policy.ID = "policy-for-" + team.ID
	policy.TeamID = team.ID
	policyID := policy.ID
	team.PolicyID = &policyID
	team.CreatedAt = time.Now()
	copied := *team
	r.teams[team.ID] = &copied
	return nil
}

func (r *fakeTeamRepo) GetByID(ctx context.Context, id string) (*domain.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	team, ok := r.teams[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *team
	return &copied, nil
}

func (r *fakeTeamRepo) GetByEmail(ctx context.Context, email string) (*domain.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, team := range r.teams {
		if team.Email == email {
			copied := *team
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeTeamRepo) List(ctx context.Context) ([]domain.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Team, 0, len(r.teams))
	for _, team := range r.teams {
		out = append(out, *team)
	}
	return out, nil
}

func (r *fakeTeamRepo) ConsumeTicketQuota(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	team, ok := r.teams[id]
	if !ok {
		return false, pgx.ErrNoRows
	}
	if team.TicketsUsed >= team.TicketLimit {
		return false, nil
	}
	team.TicketsUsed++
	return true, nil
}

func (r *fakeTeamRepo) add(team *domain.Team) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *team
	r.teams[team.ID] = &copied
}

type fakePolicyRepo struct {
	mu       sync.Mutex
	policies map[string]*domain.SLAPolicy
	// activeByTeam mirrors teams.sla_policy_id.
	activeByTeam map[string]string
}

func newFakePolicyRepo() *fakePolicyRepo {
	return &fakePolicyRepo{
		policies:     make(map[string]*domain.SLAPolicy),
		activeByTeam: make(map[string]string),
	}
}

func (r *fakePolicyRepo) add(policy *domain.SLAPolicy, active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *policy
	r.policies[policy.ID] = &copied
	if active {
		r.activeByTeam[policy.TeamID] = policy.ID
	}
}

func (r *fakePolicyRepo) GetByID(ctx context.Context, id string) (*domain.SLAPolicy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	policy, ok := r.policies[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *policy
	return &copied, nil
}

func (r *fakePolicyRepo) GetActiveByTeam(ctx context.Context, teamID string) (*domain.SLAPolicy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.activeByTeam[teamID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *r.policies[id]
	return &copied, nil
}

func (r *fakePolicyRepo) ListByTeam(ctx context.Context, teamID string) ([]domain.SLAPolicy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.SLAPolicy
	for _, policy := range r.policies {
		if policy.TeamID == teamID {
			out = append(out, *policy)
		}
	}
	return out, nil
}

func (r *fakePolicyRepo) Update(ctx context.Context, policy *domain.SLAPolicy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.policies[policy.ID]; !ok {
		return pgx.ErrNoRows
	}
	copied := *policy
	r.policies[policy.ID] = &copied
	return nil
}

type fakeTicketRepo struct {
	mu      sync.Mutex
	tickets map[string]*domain.Ticket
	seq     int
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: make(map[string]*domain.Ticket)}
}

func (r *fakeTicketRepo) add(ticket *domain.Ticket) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *ticket
	r.tickets[ticket.ID] = &copied
}

func (r *fakeTicketRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	if ticket.ID == "" {
		ticket.ID = "ticket-" + string(rune('0'+r.seq))
	}
	ticket.CreatedAt = time.Now()
	ticket.UpdatedAt = ticket.CreatedAt
	copied := *ticket
	r.tickets[ticket.ID] = &copied
	return nil
}

func (r *fakeTicketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *ticket
	return &copied, nil
}

func (r *fakeTicketRepo) ListWithFilter(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Ticket
	for _, ticket := range r.tickets {
		if matchesFilter(ticket, filter) {
			out = append(out, *ticket)
		}
	}
	// Newest first, same as the SQL repository; tie-break on ID so map
	// iteration order never leaks into the result.
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			out = nil
		} else {
			out = out[filter.Offset:]
		}
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *fakeTicketRepo) CountWithFilter(ctx context.Context, filter repository.TicketFilter) (int, error) {
	filter.Limit = 0
	filter.Offset = 0
	tickets, err := r.ListWithFilter(ctx, filter)
	return len(tickets), err
}

func (r *fakeTicketRepo) UpdateMutable(ctx context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tickets[ticket.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.Status = ticket.Status
	stored.AssignedTo = ticket.AssignedTo
	stored.UpdatedAt = time.Now()
	return nil
}

func (r *fakeTicketRepo) RecordFirstResponse(ctx context.Context, id string, at time.Time, minutes int, breached bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tickets[id]
	if !ok {
		return false, pgx.ErrNoRows
	}
	if stored.FirstResponseAt != nil {
		return false, nil
	}
	stamp := at
	stored.FirstResponseAt = &stamp
	stored.ResponseTimeMins = &minutes
	stored.ResponseBreached = stored.ResponseBreached || breached
	return true, nil
}

func (r *fakeTicketRepo) RecordResolution(ctx context.Context, id string, at time.Time, minutes int, breached bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tickets[id]
	if !ok {
		return false, pgx.ErrNoRows
	}
	if stored.ResolvedAt != nil {
		return false, nil
	}
	stamp := at
	stored.ResolvedAt = &stamp
	stored.ResolutionTimeMins = &minutes
	stored.ResolutionBreached = stored.ResolutionBreached || breached
	return true, nil
}

func matchesFilter(ticket *domain.Ticket, filter repository.TicketFilter) bool {
	if filter.TeamID != nil && ticket.TeamID != *filter.TeamID {
		return false
	}
	if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, ticket.Status) {
		return false
	}
	if containsStatus(filter.ExcludeStatuses, ticket.Status) {
		return false
	}
	if len(filter.Priorities) > 0 && !containsPriority(filter.Priorities, ticket.Priority) {
		return false
	}
	if filter.Unbreached && (ticket.ResponseBreached || ticket.ResolutionBreached) {
		return false
	}
	if filter.CreatedFrom != nil && ticket.CreatedAt.Before(*filter.CreatedFrom) {
		return false
	}
	if filter.CreatedTo != nil && !ticket.CreatedAt.Before(*filter.CreatedTo) {
		return false
	}
	return true
}

func containsStatus(list []domain.TicketStatus, s domain.TicketStatus) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func containsPriority(list []domain.TicketPriority, p domain.TicketPriority) bool {
	for _, item := range list {
		if item == p {
			return true
		}
	}
	return false
}

// recordingDispatcher captures published events for assertions.
type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(ctx context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(eventType events.EventType, handler events.EventHandler) {}

func (d *recordingDispatcher) byType(t events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []events.Event
	for _, e := range d.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
