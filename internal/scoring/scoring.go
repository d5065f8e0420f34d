// Package scoring computes the priority score used to order the open-ticket
// queue. It is a pure function of the ticket, the configured priority model
// and the current time; nothing here mutates or caches.
package scoring

import (
	"math"
	"time"

	"github.com/e1ixyz/ReportSystem-sub000/internal/config"
	"github.com/e1ixyz/ReportSystem-sub000/internal/domain"
)

// Score returns the priority of a ticket under the given model. With the
// model disabled it falls back to legacy count-then-creation ordering.
func Score(t *domain.Ticket, model config.PriorityModel, tieBreak config.TieBreak, now time.Time) float64 {
	if !model.Enabled {
		return legacyScore(t, tieBreak)
	}

	countTerm := math.Log1p(float64(t.Count))
	score := 0.0

	if model.Count.Enabled {
		score += model.Count.Weight * countTerm
	}
	if model.Recency.Enabled {
		idleMs := float64(now.Sub(t.LastActivityAt).Milliseconds())
		if idleMs < 0 {
			idleMs = 0
		}
		tau := float64(model.DecayMs)
		if tau <= 0 {
			tau = float64(config.DefaultDecayMs)
		}
		score += model.Recency.Weight * math.Exp(-idleMs/tau) * countTerm
	}
	if model.Severity.Enabled {
		score += model.Severity.Weight * severityFor(model, t.Classification)
	}
	if model.Evidence.Enabled && len(t.Evidence) > 0 {
		score += model.Evidence.Weight
	}
	if model.Unassigned.Enabled && t.Assignee == nil {
		score += model.Unassigned.Weight
	}
	ageMinutes := now.Sub(t.CreatedAt).Minutes()
	if ageMinutes < 0 {
		ageMinutes = 0
	}
	if model.Aging.Enabled {
		score += model.Aging.Weight * math.Log1p(ageMinutes)
	}
	if model.SLABreach.Enabled {
		if slaMin, ok := model.SLAMinutes[t.Classification.Key()]; ok && ageMinutes >= slaMin {
			score += model.SLABreach.Weight
		}
	}
	return score
}

// Less orders tickets for the open queue: higher score first, ties broken by
// the configured creation-time rule.
func Less(a, b *domain.Ticket, model config.PriorityModel, tieBreak config.TieBreak, now time.Time) bool {
	sa := Score(a, model, tieBreak, now)
	sb := Score(b, model, tieBreak, now)
	if sa != sb {
		return sa > sb
	}
	if tieBreak == config.TieBreakOldest {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.CreatedAt.After(b.CreatedAt)
}

func legacyScore(t *domain.Ticket, tieBreak config.TieBreak) float64 {
	sign := 1.0
	if tieBreak == config.TieBreakOldest {
		sign = -1.0
	}
	return float64(t.Count)*1_000_000 + sign*float64(t.CreatedAt.UnixMilli())
}

func severityFor(model config.PriorityModel, c domain.Classification) float64 {
	if v, ok := model.SeverityBy[c.Key()]; ok {
		return v
	}
	return 1.0
}
