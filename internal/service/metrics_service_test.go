package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/sla-tracker/internal/domain"
)

type fakeMetricsCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	getErr  error
	misses  int
	hits    int
}

func newFakeMetricsCache() *fakeMetricsCache {
	return &fakeMetricsCache{entries: make(map[string][]byte)}
}

func (c *fakeMetricsCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	payload, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, redis.Nil
	}
	c.hits++
	return payload, nil
}

func (c *fakeMetricsCache) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = payload
	return nil
}

func seedResolvedTicket(repo *fakeTicketRepo, id, teamID string, created time.Time, priority domain.TicketPriority, mins int, breached bool) {
	resolvedAt := created.Add(time.Duration(mins) * time.Minute)
	repo.add(&domain.Ticket{
		ID:                    id,
		TeamID:                teamID,
		Priority:              priority,
		Status:                domain.TicketStatusResolved,
		ResponseTargetHours:   4,
		ResolutionTargetHours: 8,
		ResolvedAt:            &resolvedAt,
		ResolutionBreached:    breached,
		ResolutionTimeMins:    &mins,
		CreatedAt:             created,
	})
}

func newMetricsServiceFixture(t *testing.T, now time.Time) (*MetricsService, *fakeTicketRepo, *fakePolicyRepo, *fakeMetricsCache) {
	t.Helper()
	tickets := newFakeTicketRepo()
	policies := newFakePolicyRepo()
	cache := newFakeMetricsCache()

	policy := domain.DefaultPolicy("team-1")
	policy.ID = "policy-1"
	policies.add(policy, true)

	svc := NewMetricsService(tickets, policies, cache, zap.NewNop())
	svc.now = func() time.Time { return now }
	return svc, tickets, policies, cache
}

func TestSummaryComposesMonthWindow(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	svc, tickets, _, _ := newMetricsServiceFixture(t, now)
	ctx := context.Background()

	seedResolvedTicket(tickets, "in-1", "team-1", now.Add(-48*time.Hour), domain.TicketPriorityP1, 60, false)
	seedResolvedTicket(tickets, "in-2", "team-1", now.Add(-24*time.Hour), domain.TicketPriorityP2, 600, true)
	// Previous month, outside the window.
	seedResolvedTicket(tickets, "out", "team-1", now.AddDate(0, -1, 0), domain.TicketPriorityP3, 30, false)
	// Another tenant.
	seedResolvedTicket(tickets, "foreign", "team-2", now.Add(-24*time.Hour), domain.TicketPriorityP1, 45, false)

	summary, err := svc.Summary(ctx, "team-1")
	require.NoError(t, err)

	assert.Equal(t, 2, summary.TotalTickets)
	assert.Equal(t, 2, summary.ResolvedTickets)
	assert.Equal(t, float64(50), summary.CompliancePercentage)
	assert.Equal(t, float64(330), summary.MTTR)
}

func TestSummaryServedFromCache(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	svc, tickets, _, cache := newMetricsServiceFixture(t, now)
	ctx := context.Background()

	seedResolvedTicket(tickets, "t-1", "team-1", now.Add(-time.Hour), domain.TicketPriorityP1, 30, false)

	first, err := svc.Summary(ctx, "team-1")
	require.NoError(t, err)
	require.Equal(t, 1, cache.misses)

	// New data arrives; the cached payload still answers within the TTL.
	seedResolvedTicket(tickets, "t-2", "team-1", now.Add(-time.Hour), domain.TicketPriorityP2, 90, false)

	second, err := svc.Summary(ctx, "team-1")
	require.NoError(t, err)
	assert.Equal(t, 1, cache.hits)
	assert.Equal(t, first, second)
}

func TestSummaryCacheFailureLogsAndRecomputes(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	tickets := newFakeTicketRepo()
	policies := newFakePolicyRepo()
	cache := newFakeMetricsCache()

	policy := domain.DefaultPolicy("team-1")
	policy.ID = "policy-1"
	policies.add(policy, true)

	core, logs := observer.New(zap.WarnLevel)
	svc := NewMetricsService(tickets, policies, cache, zap.New(core))
	svc.now = func() time.Time { return now }
	ctx := context.Background()

	seedResolvedTicket(tickets, "t-1", "team-1", now.Add(-time.Hour), domain.TicketPriorityP1, 30, false)

	// A cold miss recomputes quietly.
	summary, err := svc.Summary(ctx, "team-1")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalTickets)
	assert.Zero(t, logs.FilterMessage("summary cache read failed").Len())

	// A redis failure still recomputes, but gets a warning.
	cache.getErr = errors.New("connection refused")
	summary, err = svc.Summary(ctx, "team-1")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalTickets)
	assert.Equal(t, 1, logs.FilterMessage("summary cache read failed").Len())
}

func TestSummaryWithoutPolicyZeroesAtRisk(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	svc, tickets, _, _ := newMetricsServiceFixture(t, now)
	ctx := context.Background()

	// Open ticket deep into its budget for a team with no policy row.
	tickets.add(&domain.Ticket{
		ID:                    "t-1",
		TeamID:                "team-without-policy",
		Priority:              domain.TicketPriorityP1,
		Status:                domain.TicketStatusOpen,
		ResponseTargetHours:   1,
		ResolutionTargetHours: 2,
		CreatedAt:             now.Add(-110 * time.Minute),
	})

	summary, err := svc.Summary(ctx, "team-without-policy")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalTickets)
	assert.Equal(t, 0, summary.AtRiskCount)
}

func TestAtRiskTickets(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	svc, tickets, _, _ := newMetricsServiceFixture(t, now)
	ctx := context.Background()

	tickets.add(&domain.Ticket{
		ID:                    "risky",
		TeamID:                "team-1",
		Priority:              domain.TicketPriorityP1,
		Status:                domain.TicketStatusOpen,
		ResponseTargetHours:   1,
		ResolutionTargetHours: 2,
		CreatedAt:             now.Add(-102 * time.Minute),
	})
	tickets.add(&domain.Ticket{
		ID:                    "fresh",
		TeamID:                "team-1",
		Priority:              domain.TicketPriorityP3,
		Status:                domain.TicketStatusOpen,
		ResponseTargetHours:   24,
		ResolutionTargetHours: 48,
		CreatedAt:             now.Add(-time.Hour),
	})
	seedResolvedTicket(tickets, "done", "team-1", now.Add(-3*time.Hour), domain.TicketPriorityP2, 60, false)

	atRisk, err := svc.AtRiskTickets(ctx, "team-1")
	require.NoError(t, err)
	require.Len(t, atRisk, 1)
	assert.Equal(t, "risky", atRisk[0].ID)
	assert.Equal(t, 85, atRisk[0].PercentageElapsed)
}

func TestAtRiskTicketsWithoutPolicy(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	svc, _, _, _ := newMetricsServiceFixture(t, now)

	atRisk, err := svc.AtRiskTickets(context.Background(), "team-without-policy")
	require.NoError(t, err)
	assert.Empty(t, atRisk)
}

func TestDailyTrendWindowing(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	svc, tickets, _, _ := newMetricsServiceFixture(t, now)
	ctx := context.Background()

	seedResolvedTicket(tickets, "t-1", "team-1", now.AddDate(0, 0, -2), domain.TicketPriorityP1, 60, false)
	seedResolvedTicket(tickets, "old", "team-1", now.AddDate(0, 0, -20), domain.TicketPriorityP1, 60, true)

	trend, err := svc.DailyTrend(ctx, "team-1", 7)
	require.NoError(t, err)
	require.Len(t, trend, 7)
	assert.Equal(t, "2026-03-09", trend[0].Date)
	assert.Equal(t, "2026-03-15", trend[6].Date)
	assert.Equal(t, float64(60), trend[4].MTTR)
}
