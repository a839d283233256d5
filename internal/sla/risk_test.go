package sla

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/sla-tracker/internal/domain"
)

func TestIsAtRisk(t *testing.T) {
	created := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	responded := created.Add(30 * time.Minute)

	tests := []struct {
		name   string
		mutate func(*domain.Ticket)
		now    time.Time
		want   bool
	}{
		{
			name: "below threshold",
			now:  created.Add(2 * time.Hour),
			want: false,
		},
		{
			name: "response budget mostly consumed",
			// 3.5h of a 4h response target is 87.5%.
			now:  created.Add(3*time.Hour + 30*time.Minute),
			want: true,
		},
		{
			name: "exactly at threshold",
			// 80% of the 4h response target.
			now:  created.Add(3*time.Hour + 12*time.Minute),
			want: true,
		},
		{
			name: "responded, resolution budget still healthy",
			mutate: func(tk *domain.Ticket) {
				tk.FirstResponseAt = &responded
			},
			now:  created.Add(5 * time.Hour),
			want: false,
		},
		{
			name: "responded, resolution budget nearly gone",
			mutate: func(tk *domain.Ticket) {
				tk.FirstResponseAt = &responded
			},
			// 7h of an 8h resolution target is 87.5%.
			now:  created.Add(7 * time.Hour),
			want: true,
		},
		{
			name: "response leg silenced once breached",
			mutate: func(tk *domain.Ticket) {
				tk.ResponseBreached = true
			},
			now:  created.Add(5 * time.Hour),
			want: false,
		},
		{
			name: "resolved tickets never at risk",
			mutate: func(tk *domain.Ticket) {
				tk.Status = domain.TicketStatusResolved
			},
			now:  created.Add(7 * time.Hour),
			want: false,
		},
		{
			name: "closed tickets never at risk",
			mutate: func(tk *domain.Ticket) {
				tk.Status = domain.TicketStatusClosed
			},
			now:  created.Add(7 * time.Hour),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ticket := newTicket(created)
			if tt.mutate != nil {
				tt.mutate(&ticket)
			}
			assert.Equal(t, tt.want, IsAtRisk(&ticket, tt.now))
		})
	}
}

func TestIsAtRiskShortTarget(t *testing.T) {
	created := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	ticket := newTicket(created)
	ticket.ResponseTargetHours = 1
	ticket.ResolutionTargetHours = 2

	// 1.7h of a 2h resolution target is 85%; the response leg already
	// breached so only the resolution leg can flag it.
	ticket.ResponseBreached = true
	assert.True(t, IsAtRisk(&ticket, created.Add(102*time.Minute)))

	resolved := created.Add(100 * time.Minute)
	ticket.Status = domain.TicketStatusResolved
	ticket.ResolvedAt = &resolved
	assert.False(t, IsAtRisk(&ticket, created.Add(3*time.Hour)))
}

func TestPercentageElapsed(t *testing.T) {
	created := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	ticket := newTicket(created)

	assert.Equal(t, 50, PercentageElapsed(&ticket, created.Add(4*time.Hour)))
	assert.Equal(t, 88, PercentageElapsed(&ticket, created.Add(7*time.Hour)))
	assert.Equal(t, 113, PercentageElapsed(&ticket, created.Add(9*time.Hour)))

	ticket.ResolutionTargetHours = 0
	assert.Equal(t, 0, PercentageElapsed(&ticket, created.Add(time.Hour)))
}

func TestMinutesRemaining(t *testing.T) {
	created := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	ticket := newTicket(created)

	assert.Equal(t, 60, MinutesRemaining(&ticket, created.Add(7*time.Hour)))
	assert.Equal(t, -30, MinutesRemaining(&ticket, created.Add(8*time.Hour+30*time.Minute)))
}

func TestRankAtRisk(t *testing.T) {
	created := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	now := created.Add(7 * time.Hour)

	healthy := newTicket(created)
	healthy.ID = "healthy"
	healthy.CreatedAt = now.Add(-time.Hour)

	closeToBreach := newTicket(created)
	closeToBreach.ID = "close"

	closer := newTicket(created)
	closer.ID = "closer"
	closer.ResolutionTargetHours = 7.5

	ranked := RankAtRisk([]domain.Ticket{healthy, closeToBreach, closer}, now)

	require.Len(t, ranked, 2)
	assert.Equal(t, "closer", ranked[0].ID)
	assert.Equal(t, "close", ranked[1].ID)
	assert.Greater(t, ranked[0].PercentageElapsed, ranked[1].PercentageElapsed)
}
