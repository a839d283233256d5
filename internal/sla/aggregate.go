package sla

import (
	"math"
	"time"

	"github.com/spec-kit/sla-tracker/internal/domain"
)

// PriorityMTTR breaks mean time to resolution down per priority tier,
// each independently defaulting to 0 when the tier has no resolved work.
type PriorityMTTR struct {
	P1 float64 `json:"P1"`
	P2 float64 `json:"P2"`
	P3 float64 `json:"P3"`
}

// Summary is the composed metrics payload for a team's current month.
type Summary struct {
	TotalTickets         int          `json:"totalTickets"`
	ResolvedTickets      int          `json:"resolvedTickets"`
	OpenTickets          int          `json:"openTickets"`
	BreachedTickets      int          `json:"breachedTickets"`
	CompliancePercentage float64      `json:"compliancePercentage"`
	AtRiskCount          int          `json:"atRiskCount"`
	MTTR                 float64      `json:"mttr"`
	MTTRByPriority       PriorityMTTR `json:"mttrByPriority"`
}

// TrendPoint is one day of the compliance trend series.
type TrendPoint struct {
	Date        string  `json:"date"`
	Compliance  float64 `json:"compliance"`
	OpenTickets int     `json:"openTickets"`
	MTTR        float64 `json:"mttr"`
}

// Compliance is the share of resolved/closed tickets that breached neither
// target, as a percentage rounded to two decimals. An empty resolved set is
// perfect compliance: no resolved work means nothing failed.
func Compliance(tickets []domain.Ticket) float64 {
	resolved, breached := 0, 0
	for i := range tickets {
		if tickets[i].Open() {
			continue
		}
		resolved++
		if tickets[i].Breached() {
			breached++
		}
	}
	if resolved == 0 {
		return 100
	}
	return round2(float64(resolved-breached) / float64(resolved) * 100)
}

// MTTR averages resolution time in minutes over resolved/closed tickets,
// rounded to two decimals; 0 when nothing has been resolved. A resolved
// ticket with no recorded resolution time contributes 0 to the sum but
// still counts in the denominator.
func MTTR(tickets []domain.Ticket) float64 {
	total, count := 0, 0
	for i := range tickets {
		if tickets[i].Open() {
			continue
		}
		count++
		if tickets[i].ResolutionTimeMins != nil {
			total += *tickets[i].ResolutionTimeMins
		}
	}
	if count == 0 {
		return 0
	}
	return round2(float64(total) / float64(count))
}

// MTTRByPriority partitions MTTR by priority tier.
func MTTRByPriority(tickets []domain.Ticket) PriorityMTTR {
	return PriorityMTTR{
		P1: MTTR(filterPriority(tickets, domain.TicketPriorityP1)),
		P2: MTTR(filterPriority(tickets, domain.TicketPriorityP2)),
		P3: MTTR(filterPriority(tickets, domain.TicketPriorityP3)),
	}
}

// Summarize composes the full metrics summary over one ticket set in a
// single pass, with at-risk counting evaluated at now. BreachedTickets
// counts breaches across the whole set; the compliance percentage only
// weighs breaches among resolved work.
func Summarize(tickets []domain.Ticket, now time.Time) Summary {
	s := Summary{TotalTickets: len(tickets)}
	resolved := make([]domain.Ticket, 0, len(tickets))
	for i := range tickets {
		t := &tickets[i]
		if t.Breached() {
			s.BreachedTickets++
		}
		if t.Open() {
			s.OpenTickets++
			if IsAtRisk(t, now) {
				s.AtRiskCount++
			}
			continue
		}
		resolved = append(resolved, tickets[i])
	}
	s.ResolvedTickets = len(resolved)
	s.CompliancePercentage = Compliance(resolved)
	s.MTTR = MTTR(resolved)
	s.MTTRByPriority = MTTRByPriority(resolved)
	return s
}

// DailyTrend computes one independent trend point per calendar day for the
// last days days including today, oldest first. Each point is scoped to the
// tickets created inside that day's local-time window. Callers clamp days
// at the transport boundary; any positive value is accepted here.
func DailyTrend(tickets []domain.Ticket, now time.Time, days int) []TrendPoint {
	points := make([]TrendPoint, 0, days)
	for i := days - 1; i >= 0; i-- {
		dayStart := DayStart(now, i)
		dayEnd := dayStart.AddDate(0, 0, 1)

		var subset []domain.Ticket
		open := 0
		for j := range tickets {
			created := tickets[j].CreatedAt
			if created.Before(dayStart) || !created.Before(dayEnd) {
				continue
			}
			subset = append(subset, tickets[j])
			if tickets[j].Open() {
				open++
			}
		}

		points = append(points, TrendPoint{
			Date:        dayStart.Format("2006-01-02"),
			Compliance:  Compliance(subset),
			OpenTickets: open,
			MTTR:        MTTR(subset),
		})
	}
	return points
}

// MonthWindow returns [first-of-month, first-of-next-month) around now in
// now's location. The default aggregation window.
func MonthWindow(now time.Time) (time.Time, time.Time) {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return start, start.AddDate(0, 1, 0)
}

// DayStart returns local midnight daysAgo days before now.
func DayStart(now time.Time, daysAgo int) time.Time {
	day := now.AddDate(0, 0, -daysAgo)
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, now.Location())
}

func filterPriority(tickets []domain.Ticket, p domain.TicketPriority) []domain.Ticket {
	var out []domain.Ticket
	for i := range tickets {
		if tickets[i].Priority == p {
			out = append(out, tickets[i])
		}
	}
	return out
}

// round2 rounds half away from zero on the second decimal.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
