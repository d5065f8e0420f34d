// Package store holds the authoritative in-memory ticket table. Every
// ticket mutation passes through here; callers only ever receive value
// copies, never references into the table.
package store

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/e1ixyz/ReportSystem-sub000/internal/config"
	"github.com/e1ixyz/ReportSystem-sub000/internal/domain"
	"github.com/e1ixyz/ReportSystem-sub000/internal/events"
	"github.com/e1ixyz/ReportSystem-sub000/internal/scoring"
	"github.com/e1ixyz/ReportSystem-sub000/internal/storage"
)

// NarrativeSeparator joins stacked report reasons inside a ticket narrative.
const NarrativeSeparator = " | "

// Scope restricts search results by ticket status.
type Scope string

const (
	ScopeOpen   Scope = "open"
	ScopeClosed Scope = "closed"
	ScopeAll    Scope = "all"
)

// Summary exposes operational counts.
type Summary struct {
	Open   int   `json:"open"`
	Closed int   `json:"closed"`
	Total  int   `json:"total"`
	NextID int64 `json:"next_id"`
}

// entry pairs a ticket with its own mutex so mutations of different tickets
// never block each other.
type entry struct {
	mu sync.Mutex
	t  domain.Ticket
}

type watchSet struct {
	targets map[string][]int64
}

// Store is the ticket manager. Persistence failures are logged and the
// in-memory state stays authoritative; the resulting window where disk lags
// memory is accepted by design.
type Store struct {
	logger     *zap.Logger
	backend    storage.Backend
	model      *config.ModelStore
	dispatcher events.Dispatcher
	now        func() time.Time

	tickets sync.Map // int64 -> *entry
	lastID  atomic.Int64

	// fileMu serializes FileOrStack and every open-set mutation so two
	// concurrent filings cannot miss each other's candidate, and the watch
	// set rebuild stays inline with the mutation that triggered it.
	fileMu sync.Mutex
	watch  atomic.Pointer[watchSet]
}

// New constructs the store.
func New(backend storage.Backend, model *config.ModelStore, dispatcher events.Dispatcher, logger *zap.Logger) *Store {
	s := &Store{
		logger:     logger,
		backend:    backend,
		model:      model,
		dispatcher: dispatcher,
		now:        time.Now,
	}
	s.watch.Store(&watchSet{targets: map[string][]int64{}})
	return s
}

// LoadAll reads every persisted record and reconstructs in-memory state,
// including the next-id counter as max(loaded id), so the next allocation
// is one greater (minimum 1). Malformed records were already skipped by the
// backend.
func (s *Store) LoadAll(ctx context.Context) error {
	tickets, err := s.backend.LoadAll(ctx)
	if err != nil {
		return err
	}

	s.fileMu.Lock()
	defer s.fileMu.Unlock()

	var maxID int64
	for _, t := range tickets {
		if t.Count < 1 {
			t.Count = 1
		}
		if t.Status != domain.TicketStatusOpen && t.Status != domain.TicketStatusClosed {
			s.logger.Warn("skipping loaded ticket with unknown status",
				zap.Int64("ticket_id", t.ID), zap.String("status", string(t.Status)))
			continue
		}
		if t.LastActivityAt.IsZero() {
			t.LastActivityAt = t.CreatedAt
		}
		s.tickets.Store(t.ID, &entry{t: t})
		if t.ID > maxID {
			maxID = t.ID
		}
	}
	s.lastID.Store(maxID)
	s.rebuildWatchLocked()

	s.logger.Info("tickets loaded", zap.Int("count", len(tickets)), zap.Int64("next_id", maxID+1))
	return nil
}

// ResolveClassification looks up the taxonomy. Invalid keys return ok=false
// rather than an error.
func (s *Store) ResolveClassification(typeKey, categoryKey string) (domain.Classification, bool) {
	return s.model.Snapshot().Resolve(typeKey, categoryKey)
}

// FileOrStack files a new report, merging it into the best eligible open
// ticket for the same target and classification when one exists within the
// stacking window (a zero window means always merge). preRoll seeds a newly
// created ticket's evidence from the rolling chat buffer; it is ignored on
// a merge. The second return is true when the report stacked.
func (s *Store) FileOrStack(ctx context.Context, reporter, target string, cls domain.Classification, reason string, now time.Time, preRoll []domain.EvidenceEntry) (domain.Ticket, bool) {
	reason = strings.TrimSpace(reason)

	s.fileMu.Lock()
	defer s.fileMu.Unlock()

	snap := s.model.Snapshot()
	if best := s.bestCandidateLocked(target, cls); best != nil {
		best.mu.Lock()
		eligible := snap.StackingWindow == 0 || now.Sub(best.t.LastActivityAt) <= snap.StackingWindow
		if eligible {
			best.t.Count++
			if reason != "" {
				if best.t.Narrative == "" {
					best.t.Narrative = reason
				} else {
					best.t.Narrative += NarrativeSeparator + reason
				}
			}
			if now.After(best.t.LastActivityAt) {
				best.t.LastActivityAt = now
			}
			snapshot := best.t.Clone()
			best.mu.Unlock()

			s.persist(ctx, snapshot)
			s.publish(ctx, events.EventReportStacked, snapshot.ID, events.ReportStackedPayload{
				Reporter: reporter,
				Target:   snapshot.Target,
				Count:    snapshot.Count,
			})
			return snapshot, true
		}
		best.mu.Unlock()
	}

	id := s.lastID.Add(1)
	t := domain.Ticket{
		ID:             id,
		Reporter:       reporter,
		Target:         target,
		Classification: cls,
		Narrative:      reason,
		Count:          1,
		Status:         domain.TicketStatusOpen,
		CreatedAt:      now,
		LastActivityAt: now,
	}
	if len(preRoll) > 0 {
		t.Evidence = make([]domain.EvidenceEntry, len(preRoll))
		copy(t.Evidence, preRoll)
	}
	s.tickets.Store(id, &entry{t: t})
	s.rebuildWatchLocked()

	snapshot := t.Clone()
	s.persist(ctx, snapshot)
	s.publish(ctx, events.EventReportFiled, id, events.ReportFiledPayload{
		Reporter:       reporter,
		Target:         target,
		Classification: cls,
	})
	return snapshot, false
}

// bestCandidateLocked selects the open ticket matching target
// (case-insensitive) and classification keys, preferring the highest count
// and then the most recent creation. Caller holds fileMu.
func (s *Store) bestCandidateLocked(target string, cls domain.Classification) *entry {
	var (
		best      *entry
		bestCount int
		bestBorn  time.Time
	)
	s.tickets.Range(func(_, v any) bool {
		e := v.(*entry)
		e.mu.Lock()
		match := e.t.Open() &&
			strings.EqualFold(e.t.Target, target) &&
			e.t.Classification.TypeKey == cls.TypeKey &&
			e.t.Classification.CategoryKey == cls.CategoryKey
		count := e.t.Count
		born := e.t.CreatedAt
		e.mu.Unlock()

		if !match {
			return true
		}
		if best == nil || count > bestCount || (count == bestCount && born.After(bestBorn)) {
			best = e
			bestCount = count
			bestBorn = born
		}
		return true
	})
	return best
}

// AppendEvidence appends one chat line to a ticket's evidence and refreshes
// its activity time. No-op (false) when the id is unknown. Duplicate
// deliveries append duplicate lines; that is tolerated.
func (s *Store) AppendEvidence(ctx context.Context, id int64, ev domain.EvidenceEntry) bool {
	e, ok := s.lookup(id)
	if !ok {
		return false
	}
	now := s.now()

	e.mu.Lock()
	e.t.Evidence = append(e.t.Evidence, ev)
	if now.After(e.t.LastActivityAt) {
		e.t.LastActivityAt = now
	}
	snapshot := e.t.Clone()
	e.mu.Unlock()

	s.persist(ctx, snapshot)
	s.publish(ctx, events.EventEvidenceAppended, id, events.EvidenceAppendedPayload{
		Speaker: ev.Speaker,
		Channel: ev.Channel,
	})
	return true
}

// Assign sets the assignee unconditionally.
func (s *Store) Assign(ctx context.Context, id int64, identity string) bool {
	return s.AssignIfNotConflicting(ctx, id, identity, true)
}

// AssignIfNotConflicting succeeds when the ticket is unassigned, already
// assigned to the same identity, or force is set. A conflicting assignment
// fails without mutating.
func (s *Store) AssignIfNotConflicting(ctx context.Context, id int64, identity string, force bool) bool {
	e, ok := s.lookup(id)
	if !ok {
		return false
	}

	e.mu.Lock()
	if e.t.Assignee != nil && strings.EqualFold(*e.t.Assignee, identity) {
		e.mu.Unlock()
		return true
	}
	if e.t.Assignee != nil && !force {
		e.mu.Unlock()
		return false
	}
	e.t.Assignee = &identity
	snapshot := e.t.Clone()
	e.mu.Unlock()

	s.persist(ctx, snapshot)
	s.publish(ctx, events.EventTicketAssigned, id, events.TicketAssignedPayload{
		Assignee: identity,
		Forced:   force,
	})
	return true
}

// Unassign clears the assignee. Returns false only for unknown ids.
func (s *Store) Unassign(ctx context.Context, id int64) bool {
	e, ok := s.lookup(id)
	if !ok {
		return false
	}

	e.mu.Lock()
	if e.t.Assignee == nil {
		e.mu.Unlock()
		return true
	}
	e.t.Assignee = nil
	snapshot := e.t.Clone()
	e.mu.Unlock()

	s.persist(ctx, snapshot)
	s.publish(ctx, events.EventTicketUnassigned, id, nil)
	return true
}

// Close transitions the ticket to CLOSED and records the close time.
// Closing an already-closed ticket is a safe no-op.
func (s *Store) Close(ctx context.Context, id int64) bool {
	s.fileMu.Lock()
	defer s.fileMu.Unlock()

	e, ok := s.lookup(id)
	if !ok {
		return false
	}

	e.mu.Lock()
	if e.t.Status == domain.TicketStatusClosed {
		e.mu.Unlock()
		return true
	}
	now := s.now()
	e.t.Status = domain.TicketStatusClosed
	e.t.ClosedAt = &now
	snapshot := e.t.Clone()
	e.mu.Unlock()

	s.rebuildWatchLocked()
	s.persist(ctx, snapshot)
	s.publish(ctx, events.EventTicketClosed, id, events.TicketStatusPayload{Status: snapshot.Status})
	return true
}

// Reopen flips a closed ticket back to OPEN, clearing its close time and
// refreshing activity. Reopening an open ticket succeeds without mutation;
// only unknown ids fail.
func (s *Store) Reopen(ctx context.Context, id int64) bool {
	s.fileMu.Lock()
	defer s.fileMu.Unlock()

	e, ok := s.lookup(id)
	if !ok {
		return false
	}

	e.mu.Lock()
	if e.t.Status == domain.TicketStatusOpen {
		e.mu.Unlock()
		return true
	}
	e.t.Status = domain.TicketStatusOpen
	e.t.ClosedAt = nil
	now := s.now()
	if now.After(e.t.LastActivityAt) {
		e.t.LastActivityAt = now
	}
	snapshot := e.t.Clone()
	e.mu.Unlock()

	s.rebuildWatchLocked()
	s.persist(ctx, snapshot)
	s.publish(ctx, events.EventTicketReopened, id, events.TicketStatusPayload{Status: snapshot.Status})
	return true
}

// Get returns a copy of one ticket.
func (s *Store) Get(id int64) (domain.Ticket, bool) {
	e, ok := s.lookup(id)
	if !ok {
		return domain.Ticket{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.t.Clone(), true
}

// EvidenceSnapshot returns a read-only copy of a ticket's evidence list.
func (s *Store) EvidenceSnapshot(id int64) ([]domain.EvidenceEntry, bool) {
	t, ok := s.Get(id)
	if !ok {
		return nil, false
	}
	return t.Evidence, true
}

// OpenDescending returns open tickets ordered by priority score descending,
// ties broken by the configured creation-time rule. Scores are computed at
// call time, never cached.
func (s *Store) OpenDescending() []domain.Ticket {
	snap := s.model.Snapshot()
	now := s.now()
	list := s.collect(func(t *domain.Ticket) bool { return t.Open() })
	sort.SliceStable(list, func(i, j int) bool {
		return scoring.Less(&list[i], &list[j], snap.Priority, snap.TieBreak, now)
	})
	return list
}

// ClosedDescending returns closed tickets ordered by close time descending,
// falling back to creation time for records missing one.
func (s *Store) ClosedDescending() []domain.Ticket {
	list := s.collect(func(t *domain.Ticket) bool { return t.Status == domain.TicketStatusClosed })
	sort.SliceStable(list, func(i, j int) bool {
		return closeSortTime(&list[i]).After(closeSortTime(&list[j]))
	})
	return list
}

func closeSortTime(t *domain.Ticket) time.Time {
	if t.ClosedAt != nil {
		return *t.ClosedAt
	}
	return t.CreatedAt
}

// Search matches the query case-insensitively against the id (exact),
// reporter, target, narrative and both classification display strings,
// restricted by scope, ordered by creation time descending.
func (s *Store) Search(query string, scope Scope) []domain.Ticket {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	list := s.collect(func(t *domain.Ticket) bool {
		switch scope {
		case ScopeOpen:
			if !t.Open() {
				return false
			}
		case ScopeClosed:
			if t.Open() {
				return false
			}
		}
		return matches(t, q)
	})
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list
}

func matches(t *domain.Ticket, q string) bool {
	if strconv.FormatInt(t.ID, 10) == q {
		return true
	}
	for _, field := range []string{
		t.Reporter,
		t.Target,
		t.Narrative,
		t.Classification.TypeDisplay,
		t.Classification.CategoryDisplay,
	} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// Watched reports whether the identity is targeted by at least one open
// ticket. Lock-free read of the current watch set.
func (s *Store) Watched(identity string) bool {
	_, ok := s.watch.Load().targets[strings.ToLower(identity)]
	return ok
}

// OpenIDsTargeting returns the ids of every open ticket whose target
// matches the identity.
func (s *Store) OpenIDsTargeting(identity string) []int64 {
	ids := s.watch.Load().targets[strings.ToLower(identity)]
	out := make([]int64, len(ids))
	copy(out, ids)
	return out
}

// NoteWatchedLogin publishes a watched_login event for an identity that
// just came online while targeted by an open ticket.
func (s *Store) NoteWatchedLogin(ctx context.Context, identity string) {
	s.publish(ctx, events.EventWatchedLogin, 0, events.WatchedLoginPayload{Identity: identity})
}

// DebugSummary returns operational counts.
func (s *Store) DebugSummary() Summary {
	var sum Summary
	s.tickets.Range(func(_, v any) bool {
		e := v.(*entry)
		e.mu.Lock()
		open := e.t.Open()
		e.mu.Unlock()
		sum.Total++
		if open {
			sum.Open++
		} else {
			sum.Closed++
		}
		return true
	})
	sum.NextID = s.lastID.Load() + 1
	return sum
}

func (s *Store) lookup(id int64) (*entry, bool) {
	v, ok := s.tickets.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*entry), true
}

func (s *Store) collect(keep func(*domain.Ticket) bool) []domain.Ticket {
	var list []domain.Ticket
	s.tickets.Range(func(_, v any) bool {
		e := v.(*entry)
		e.mu.Lock()
		if keep(&e.t) {
			list = append(list, e.t.Clone())
		}
		e.mu.Unlock()
		return true
	})
	return list
}

// rebuildWatchLocked recomputes the open-target set from scratch. Caller
// holds fileMu; the open-ticket count is small enough that a full scan per
// mutation is acceptable.
func (s *Store) rebuildWatchLocked() {
	targets := map[string][]int64{}
	s.tickets.Range(func(_, v any) bool {
		e := v.(*entry)
		e.mu.Lock()
		if e.t.Open() {
			key := strings.ToLower(e.t.Target)
			targets[key] = append(targets[key], e.t.ID)
		}
		e.mu.Unlock()
		return true
	})
	s.watch.Store(&watchSet{targets: targets})
}

// persist saves one ticket snapshot. Failure is non-fatal: it is logged and
// the in-memory state remains authoritative until the next successful save.
func (s *Store) persist(ctx context.Context, t domain.Ticket) {
	if err := s.backend.Save(ctx, t); err != nil {
		s.logger.Error("ticket persist failed", zap.Int64("ticket_id", t.ID), zap.Error(err))
	}
}

func (s *Store) publish(ctx context.Context, typ events.EventType, ticketID int64, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      typ,
		TicketID:  ticketID,
		Timestamp: s.now(),
		Payload:   payload,
	})
}
