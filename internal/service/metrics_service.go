package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-tracker/internal/domain"
	"github.com/spec-kit/sla-tracker/internal/persistence"
	"github.com/spec-kit/sla-tracker/internal/repository"
	"github.com/spec-kit/sla-tracker/internal/sla"
)

// MetricsCache stores serialized summaries; the redis-backed implementation
// lives in persistence. A nil cache disables caching.
type MetricsCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error
}

const summaryCacheTTL = 60 * time.Second

// MetricsService serves compliance aggregations over team ticket sets.
type MetricsService struct {
	tickets  repository.TicketRepository
	policies repository.PolicyRepository
	cache    MetricsCache
	logger   *zap.Logger
	now      func() time.Time
}

// NewMetricsService constructs the service. now defaults to time.Now.
func NewMetricsService(tickets repository.TicketRepository, policies repository.PolicyRepository, cache MetricsCache, logger *zap.Logger) *MetricsService {
	return &MetricsService{
		tickets:  tickets,
		policies: policies,
		cache:    cache,
		logger:   logger,
		now:      time.Now,
	}
}

// Summary composes the current-month metrics for a team. Results are cached
// briefly; dashboards poll this endpoint.
func (s *MetricsService) Summary(ctx context.Context, teamID string) (sla.Summary, error) {
	if s.cache != nil {
		payload, err := s.cache.Get(ctx, "summary:"+teamID)
		switch {
		case err == nil:
			var cached sla.Summary
			if json.Unmarshal(payload, &cached) == nil {
				return cached, nil
			}
		case !persistence.IsMiss(err):
			// A miss is the normal cold path; anything else is redis
			// misbehaving and worth a log line before recomputing.
			s.logger.Warn("summary cache read failed", zap.Error(err))
		}
	}

	now := s.now()
	monthStart, monthEnd := sla.MonthWindow(now)
	tickets, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{
		TeamID:      &teamID,
		CreatedFrom: &monthStart,
		CreatedTo:   &monthEnd,
	})
	if err != nil {
		return sla.Summary{}, err
	}

	summary := sla.Summarize(tickets, now)

	// At-risk counting is only meaningful when the team has a policy;
	// without one the lenient fallback is zero, not an error.
	if _, err := s.policies.GetActiveByTeam(ctx, teamID); err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return sla.Summary{}, err
		}
		summary.AtRiskCount = 0
	}

	if s.cache != nil {
		if payload, err := json.Marshal(summary); err == nil {
			if err := s.cache.Set(ctx, "summary:"+teamID, payload, summaryCacheTTL); err != nil {
				s.logger.Debug("summary cache write failed", zap.Error(err))
			}
		}
	}
	return summary, nil
}

// DailyTrend returns one independently-computed point per calendar day for
// the last days days, oldest first.
func (s *MetricsService) DailyTrend(ctx context.Context, teamID string, days int) ([]sla.TrendPoint, error) {
	now := s.now()
	from := sla.DayStart(now, days-1)
	to := sla.DayStart(now, 0).AddDate(0, 0, 1)

	tickets, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{
		TeamID:      &teamID,
		CreatedFrom: &from,
		CreatedTo:   &to,
	})
	if err != nil {
		return nil, err
	}
	return sla.DailyTrend(tickets, now, days), nil
}

// AtRiskTickets returns the team's open tickets approaching breach, closest
// first. A team without a policy gets an empty set, not an error.
func (s *MetricsService) AtRiskTickets(ctx context.Context, teamID string) ([]sla.AtRiskTicket, error) {
	if _, err := s.policies.GetActiveByTeam(ctx, teamID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return []sla.AtRiskTicket{}, nil
		}
		return nil, err
	}

	open, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{
		TeamID:          &teamID,
		ExcludeStatuses: []domain.TicketStatus{domain.TicketStatusResolved, domain.TicketStatusClosed},
	})
	if err != nil {
		return nil, err
	}
	return sla.RankAtRisk(open, s.now()), nil
}
