// Package evidence keeps a per-identity rolling window of recent chat
// lines, independent of any ticket. Its purpose is pre-roll: the moment a
// ticket is filed, recent context for the target is already on hand even
// though no watch was active beforehand.
package evidence

import (
	"strings"
	"sync"
	"time"

	"github.com/e1ixyz/ReportSystem-sub000/internal/domain"
)

const (
	// DefaultMaxEntries caps lines kept per speaker.
	DefaultMaxEntries = 50
	// DefaultMaxAge drops lines older than this at insertion time.
	DefaultMaxAge = 120 * time.Second
)

// Buffer is a bounded per-speaker chat line window. Both eviction rules
// run inline on every insert; there is no background sweep.
type Buffer struct {
	mu         sync.Mutex
	maxEntries int
	maxAge     time.Duration
	bySpeaker  map[string][]domain.EvidenceEntry
	now        func() time.Time
}

// NewBuffer constructs a buffer. Non-positive limits fall back to defaults.
func NewBuffer(maxEntries int, maxAge time.Duration) *Buffer {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Buffer{
		maxEntries: maxEntries,
		maxAge:     maxAge,
		bySpeaker:  map[string][]domain.EvidenceEntry{},
		now:        time.Now,
	}
}

// Record appends one chat line for its speaker, then evicts entries beyond
// the count cap (oldest first) and entries older than the age window
// relative to now.
func (b *Buffer) Record(e domain.EvidenceEntry) {
	key := strings.ToLower(e.Speaker)
	now := b.now()
	cutoff := now.Add(-b.maxAge)

	b.mu.Lock()
	defer b.mu.Unlock()

	lines := append(b.bySpeaker[key], e)

	start := 0
	for start < len(lines) && lines[start].Timestamp.Before(cutoff) {
		start++
	}
	lines = lines[start:]
	if excess := len(lines) - b.maxEntries; excess > 0 {
		lines = lines[excess:]
	}

	if len(lines) == 0 {
		delete(b.bySpeaker, key)
		return
	}
	b.bySpeaker[key] = lines
}

// Recent returns a copy of the identity's current window, oldest first.
func (b *Buffer) Recent(identity string) []domain.EvidenceEntry {
	key := strings.ToLower(identity)

	b.mu.Lock()
	defer b.mu.Unlock()

	lines := b.bySpeaker[key]
	if len(lines) == 0 {
		return nil
	}
	out := make([]domain.EvidenceEntry, len(lines))
	copy(out, lines)
	return out
}
