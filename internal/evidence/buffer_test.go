package evidence

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/e1ixyz/ReportSystem-sub000/internal/domain"
)

func line(speaker string, at time.Time, text string) domain.EvidenceEntry {
	return domain.EvidenceEntry{Timestamp: at, Speaker: speaker, Channel: "global", Text: text}
}

func TestRecordAndRecent(t *testing.T) {
	b := NewBuffer(10, time.Minute)
	now := time.Now()
	b.now = func() time.Time { return now }

	b.Record(line("mallory", now.Add(-2*time.Second), "one"))
	b.Record(line("mallory", now.Add(-time.Second), "two"))
	b.Record(line("other", now, "unrelated"))

	got := b.Recent("mallory")
	require.Len(t, got, 2)
	assert.Equal(t, "one", got[0].Text)
	assert.Equal(t, "two", got[1].Text)

	// Identity lookup is case-insensitive.
	assert.Len(t, b.Recent("MALLORY"), 2)
	assert.Empty(t, b.Recent("nobody"))
}

func TestCountCapEvictsOldest(t *testing.T) {
	b := NewBuffer(3, time.Hour)
	now := time.Now()
	b.now = func() time.Time { return now }

	for i := 0; i < 5; i++ {
		b.Record(line("mallory", now.Add(time.Duration(i)*time.Second), fmt.Sprintf("msg%d", i)))
	}

	got := b.Recent("mallory")
	require.Len(t, got, 3)
	assert.Equal(t, "msg2", got[0].Text)
	assert.Equal(t, "msg4", got[2].Text)
}

func TestAgeCutoffEvictsStale(t *testing.T) {
	b := NewBuffer(100, 30*time.Second)
	now := time.Now()
	b.now = func() time.Time { return now }

	b.Record(line("mallory", now.Add(-time.Minute), "stale"))
	b.Record(line("mallory", now.Add(-5*time.Second), "fresh"))

	got := b.Recent("mallory")
	require.Len(t, got, 1)
	assert.Equal(t, "fresh", got[0].Text)
}

func TestRecentReturnsCopy(t *testing.T) {
	b := NewBuffer(10, time.Hour)
	now := time.Now()
	b.now = func() time.Time { return now }

	b.Record(line("mallory", now, "original"))
	got := b.Recent("mallory")
	got[0].Text = "mutated"

	assert.Equal(t, "original", b.Recent("mallory")[0].Text)
}
