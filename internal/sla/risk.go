package sla

import (
	"math"
	"sort"
	"time"

	"github.com/spec-kit/sla-tracker/internal/domain"
)

// AtRiskThreshold is the elapsed-time share at which a ticket is flagged
// as approaching breach. Fixed early warning giving operators a window to
// act before the formal breach.
const AtRiskThreshold = 0.80

// IsAtRisk reports whether an open ticket has consumed at least 80% of its
// budget toward an unbreached target. Two independent checks, either one is
// sufficient:
//
//   - response risk, only while no first response was recorded and the
//     response target is not already breached;
//   - resolution risk, whenever the ticket is open and the resolution
//     target is not already breached.
//
// Returns false once the corresponding breach flag is set; formal breaches
// are reported through breach state, not the risk path.
func IsAtRisk(t *domain.Ticket, now time.Time) bool {
	if !t.Open() {
		return false
	}
	elapsed := now.Sub(t.CreatedAt)

	if t.FirstResponseAt == nil && !t.ResponseBreached {
		if ratio(elapsed, TargetDuration(t.ResponseTargetHours)) >= AtRiskThreshold {
			return true
		}
	}
	if !t.ResolutionBreached {
		if ratio(elapsed, TargetDuration(t.ResolutionTargetHours)) >= AtRiskThreshold {
			return true
		}
	}
	return false
}

// PercentageElapsed is the share of the resolution budget consumed so far,
// rounded to a whole percent.
func PercentageElapsed(t *domain.Ticket, now time.Time) int {
	target := TargetDuration(t.ResolutionTargetHours)
	if target <= 0 {
		return 0
	}
	return int(math.Round(float64(now.Sub(t.CreatedAt)) / float64(target) * 100))
}

// MinutesRemaining is the time left until the resolution target elapses,
// in whole minutes. Negative once the target has passed.
func MinutesRemaining(t *domain.Ticket, now time.Time) int {
	remaining := TargetDuration(t.ResolutionTargetHours) - now.Sub(t.CreatedAt)
	return int(math.Round(remaining.Minutes()))
}

// AtRiskTicket annotates a ticket with its percentage elapsed against the
// resolution target.
type AtRiskTicket struct {
	domain.Ticket
	PercentageElapsed int
}

// RankAtRisk filters open tickets through IsAtRisk and orders them closest
// to breach first.
func RankAtRisk(tickets []domain.Ticket, now time.Time) []AtRiskTicket {
	ranked := make([]AtRiskTicket, 0, len(tickets))
	for i := range tickets {
		if !IsAtRisk(&tickets[i], now) {
			continue
		}
		ranked = append(ranked, AtRiskTicket{
			Ticket:            tickets[i],
			PercentageElapsed: PercentageElapsed(&tickets[i], now),
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].PercentageElapsed > ranked[j].PercentageElapsed
	})
	return ranked
}

func ratio(elapsed, target time.Duration) float64 {
	if target <= 0 {
		return 0
	}
	return float64(elapsed) / float64(target)
}
