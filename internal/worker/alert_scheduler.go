package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-tracker/internal/domain"
	"github.com/spec-kit/sla-tracker/internal/events"
	"github.com/spec-kit/sla-tracker/internal/observability"
	"github.com/spec-kit/sla-tracker/internal/repository"
	"github.com/spec-kit/sla-tracker/internal/sla"
)

// Deduper suppresses repeat alerts for the same signal. Claim returns true
// when the caller won the key and should dispatch.
type Deduper interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// AlertScheduler runs the recurring SLA risk sweep. It is an explicit
// object constructed once at the composition root and started/stopped as
// ordinary methods; there is no ambient global instance.
//
// Two states: idle (no timer) and running. Start moves idle to running,
// Stop moves back. Start on a running scheduler is a no-op.
type AlertScheduler struct {
	teams      repository.TeamRepository
	tickets    repository.TicketRepository
	policies   repository.PolicyRepository
	dispatcher events.Dispatcher
	dedup      Deduper
	metrics    *observability.Metrics
	logger     *zap.Logger

	interval        time.Duration
	dedupTTL        time.Duration
	summaryInterval time.Duration
	now             func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// SchedulerDependencies bundles collaborators for the scheduler.
type SchedulerDependencies struct {
	TeamRepo   repository.TeamRepository
	TicketRepo repository.TicketRepository
	PolicyRepo repository.PolicyRepository
	Dispatcher events.Dispatcher
	Dedup      Deduper
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// NewAlertScheduler constructs the scheduler. interval is the sweep cadence,
// dedupTTL how long one dispatched alert suppresses duplicates.
func NewAlertScheduler(deps SchedulerDependencies, interval, dedupTTL time.Duration) *AlertScheduler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if dedupTTL <= 0 {
		dedupTTL = time.Hour
	}
	return &AlertScheduler{
		teams:           deps.TeamRepo,
		tickets:         deps.TicketRepo,
		policies:        deps.PolicyRepo,
		dispatcher:      deps.Dispatcher,
		dedup:           deps.Dedup,
		metrics:         deps.Metrics,
		logger:          deps.Logger,
		interval:        interval,
		dedupTTL:        dedupTTL,
		summaryInterval: 24 * time.Hour,
		now:             time.Now,
	}
}

// Start begins the recurring sweep. No-op if already running.
func (s *AlertScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	s.logger.Info("alert scheduler started",
		zap.Duration("interval", s.interval),
		zap.Duration("dedup_ttl", s.dedupTTL))

	go s.loop(ctx, done)
}

// Stop halts the recurring sweep and waits for an in-flight tick to finish.
// No-op if idle.
func (s *AlertScheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.logger.Info("alert scheduler stopped")
}

// Running reports whether the timer is active.
func (s *AlertScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// loop receives its done channel from Start rather than reading s.done;
// Stop clears the field concurrently, so the goroutine must only touch
// the channel it was handed.
func (s *AlertScheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	sweep := time.NewTicker(s.interval)
	defer sweep.Stop()
	summary := time.NewTicker(s.summaryInterval)
	defer summary.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sweep.C:
			s.RunSweep(ctx)
		case <-summary.C:
			s.RunDailySummaries(ctx)
		}
	}
}

// RunSweep checks every team's open tickets for SLA breach risk and
// dispatches alerts for newly at-risk ones. One team failing never aborts
// the sweep for the others; that isolation is a design requirement, not an
// incidental.
func (s *AlertScheduler) RunSweep(ctx context.Context) {
	s.logger.Debug("running SLA risk sweep")

	teams, err := s.teams.List(ctx)
	if err != nil {
		s.logger.Error("risk sweep: list teams failed", zap.Error(err))
		return
	}

	failures := 0
	for i := range teams {
		if err := s.checkTeam(ctx, &teams[i]); err != nil {
			failures++
			s.logger.Error("risk sweep: team check failed",
				zap.String("team_id", teams[i].ID), zap.Error(err))
		}
	}
	s.metrics.RecordSweep(failures)
}

func (s *AlertScheduler) checkTeam(ctx context.Context, team *domain.Team) error {
	_, err := s.policies.GetActiveByTeam(ctx, team.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// No policy configured; nothing to measure against.
			return nil
		}
		return err
	}

	open, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{
		TeamID:          &team.ID,
		ExcludeStatuses: []domain.TicketStatus{domain.TicketStatusResolved, domain.TicketStatusClosed},
		Unbreached:      true,
	})
	if err != nil {
		return err
	}

	now := s.now()
	for i := range open {
		ticket := &open[i]
		if !sla.IsAtRisk(ticket, now) {
			continue
		}
		if err := s.dispatchAtRiskAlert(ctx, team, ticket, now); err != nil {
			s.logger.Warn("at-risk alert dispatch failed",
				zap.String("ticket_number", ticket.TicketNumber), zap.Error(err))
		}
	}
	return nil
}

func (s *AlertScheduler) dispatchAtRiskAlert(ctx context.Context, team *domain.Team, ticket *domain.Ticket, now time.Time) error {
	key := fmt.Sprintf("at-risk:%s", ticket.ID)
	won, err := s.dedup.Claim(ctx, key, s.dedupTTL)
	if err != nil {
		return err
	}
	if !won {
		return nil
	}

	event := events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventTicketAtRisk,
		TeamID:    team.ID,
		TicketID:  ticket.ID,
		Timestamp: now,
		Payload: events.TicketAtRiskPayload{
			TicketNumber:      ticket.TicketNumber,
			Title:             ticket.Title,
			Priority:          ticket.Priority,
			PercentageElapsed: sla.PercentageElapsed(ticket, now),
			MinutesRemaining:  sla.MinutesRemaining(ticket, now),
			RecipientEmail:    team.AdminEmail(),
		},
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		return err
	}
	s.metrics.RecordAlertSent()
	return nil
}

// RunDailySummaries publishes a metrics summary event per team, consumed
// by the notification collaborator as the daily compliance report.
func (s *AlertScheduler) RunDailySummaries(ctx context.Context) {
	teams, err := s.teams.List(ctx)
	if err != nil {
		s.logger.Error("daily summaries: list teams failed", zap.Error(err))
		return
	}

	now := s.now()
	monthStart, monthEnd := sla.MonthWindow(now)
	for i := range teams {
		team := &teams[i]
		tickets, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{
			TeamID:      &team.ID,
			CreatedFrom: &monthStart,
			CreatedTo:   &monthEnd,
		})
		if err != nil {
			s.logger.Error("daily summaries: team load failed",
				zap.String("team_id", team.ID), zap.Error(err))
			continue
		}

		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventDailySummary,
			TeamID:    team.ID,
			Timestamp: now,
			Payload: events.DailySummaryPayload{
				RecipientEmail: team.AdminEmail(),
				Summary:        sla.Summarize(tickets, now),
			},
		})
	}
}
