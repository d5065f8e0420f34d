package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/e1ixyz/ReportSystem-sub000/internal/config"
	"github.com/e1ixyz/ReportSystem-sub000/internal/domain"
)

func allFactorsModel() config.PriorityModel {
	return config.PriorityModel{
		Enabled:    true,
		Count:      config.Factor{Enabled: true, Weight: 2.0},
		Recency:    config.Factor{Enabled: true, Weight: 1.5},
		Severity:   config.Factor{Enabled: true, Weight: 1.0},
		Evidence:   config.Factor{Enabled: true, Weight: 0.5},
		Unassigned: config.Factor{Enabled: true, Weight: 0.25},
		Aging:      config.Factor{Enabled: true, Weight: 0.5},
		SLABreach:  config.Factor{Enabled: true, Weight: 3.0},
		DecayMs:    config.DefaultDecayMs,
		SeverityBy: map[string]float64{"chat/slurs": 2.0},
		SLAMinutes: map[string]float64{"chat/slurs": 15},
	}
}

func ticketAt(created time.Time, count int) domain.Ticket {
	return domain.Ticket{
		ID:             1,
		Target:         "player1",
		Classification: domain.Classification{TypeKey: "chat", CategoryKey: "harassment"},
		Count:          count,
		Status:         domain.TicketStatusOpen,
		CreatedAt:      created,
		LastActivityAt: created,
	}
}

func TestLegacyScoreCountAndTieBreak(t *testing.T) {
	model := config.PriorityModel{Enabled: false}
	now := time.Now()

	older := ticketAt(now.Add(-2*time.Hour), 3)
	newer := ticketAt(now.Add(-1*time.Hour), 3)

	// Same count: newest-first makes the newer ticket score higher, and
	// oldest-first inverts that.
	assert.Greater(t, Score(&newer, model, config.TieBreakNewest, now), Score(&older, model, config.TieBreakNewest, now))
	assert.Greater(t, Score(&older, model, config.TieBreakOldest, now), Score(&newer, model, config.TieBreakOldest, now))
}

func TestScoreMonotonicInCount(t *testing.T) {
	model := allFactorsModel()
	now := time.Now()
	created := now.Add(-30 * time.Minute)

	prev := -1.0
	for count := 1; count <= 20; count++ {
		ticket := ticketAt(created, count)
		score := Score(&ticket, model, config.TieBreakNewest, now)
		assert.GreaterOrEqual(t, score, prev, "count %d", count)
		prev = score
	}
}

func TestSLABreachStrictlyIncreasesScore(t *testing.T) {
	now := time.Now()
	ticket := ticketAt(now.Add(-time.Hour), 2)
	ticket.Classification = domain.Classification{TypeKey: "chat", CategoryKey: "slurs"}

	withBreach := allFactorsModel()
	withoutBreach := allFactorsModel()
	withoutBreach.SLABreach.Enabled = false

	assert.Greater(t,
		Score(&ticket, withBreach, config.TieBreakNewest, now),
		Score(&ticket, withoutBreach, config.TieBreakNewest, now))
}

func TestSLANotBreachedBeforeDeadline(t *testing.T) {
	now := time.Now()
	ticket := ticketAt(now.Add(-5*time.Minute), 1)
	ticket.Classification = domain.Classification{TypeKey: "chat", CategoryKey: "slurs"}

	model := config.PriorityModel{
		Enabled:    true,
		SLABreach:  config.Factor{Enabled: true, Weight: 3.0},
		SLAMinutes: map[string]float64{"chat/slurs": 15},
		DecayMs:    config.DefaultDecayMs,
	}
	assert.Zero(t, Score(&ticket, model, config.TieBreakNewest, now))
}

func TestRecencyDecays(t *testing.T) {
	model := config.PriorityModel{
		Enabled: true,
		Recency: config.Factor{Enabled: true, Weight: 1.0},
		DecayMs: config.DefaultDecayMs,
	}
	now := time.Now()

	fresh := ticketAt(now.Add(-time.Hour), 5)
	fresh.LastActivityAt = now.Add(-time.Minute)
	stale := ticketAt(now.Add(-time.Hour), 5)
	stale.LastActivityAt = now.Add(-50 * time.Minute)

	assert.Greater(t,
		Score(&fresh, model, config.TieBreakNewest, now),
		Score(&stale, model, config.TieBreakNewest, now))
}

func TestSeverityDefaultsToOne(t *testing.T) {
	model := config.PriorityModel{
		Enabled:  true,
		Severity: config.Factor{Enabled: true, Weight: 1.0},
		DecayMs:  config.DefaultDecayMs,
		SeverityBy: map[string]float64{
			"chat/slurs": 2.0,
		},
	}
	now := time.Now()

	listed := ticketAt(now, 1)
	listed.Classification = domain.Classification{TypeKey: "chat", CategoryKey: "slurs"}
	unlisted := ticketAt(now, 1)
	unlisted.Classification = domain.Classification{TypeKey: "gameplay", CategoryKey: "griefing"}

	assert.InDelta(t, 2.0, Score(&listed, model, config.TieBreakNewest, now), 1e-9)
	assert.InDelta(t, 1.0, Score(&unlisted, model, config.TieBreakNewest, now), 1e-9)
}

func TestDisabledTermsContributeNothing(t *testing.T) {
	model := allFactorsModel()
	model.Count.Enabled = false
	model.Recency.Enabled = false
	model.Severity.Enabled = false
	model.Evidence.Enabled = false
	model.Unassigned.Enabled = false
	model.Aging.Enabled = false
	model.SLABreach.Enabled = false

	now := time.Now()
	ticket := ticketAt(now.Add(-time.Hour), 10)
	ticket.Evidence = []domain.EvidenceEntry{{Text: "hi"}}

	assert.Zero(t, Score(&ticket, model, config.TieBreakNewest, now))
}

func TestLessBreaksScoreTiesByCreation(t *testing.T) {
	model := config.PriorityModel{Enabled: true} // all terms disabled: every score is 0
	now := time.Now()
	older := ticketAt(now.Add(-2*time.Hour), 1)
	newer := ticketAt(now.Add(-1*time.Hour), 1)

	assert.True(t, Less(&newer, &older, model, config.TieBreakNewest, now))
	assert.True(t, Less(&older, &newer, model, config.TieBreakOldest, now))
}
