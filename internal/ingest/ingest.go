// Package ingest consumes the live chat/login event stream. Every chat
// line lands in the rolling evidence buffer; lines from watched identities
// additionally fan out into every open ticket targeting the speaker.
package ingest

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/e1ixyz/ReportSystem-sub000/internal/domain"
	"github.com/e1ixyz/ReportSystem-sub000/internal/evidence"
	"github.com/e1ixyz/ReportSystem-sub000/internal/store"
)

// ChatEvent is one chat line as delivered by the event source. Duplicate
// delivery is tolerated; a redelivered line simply appends again.
type ChatEvent struct {
	Speaker   string
	Channel   string
	Text      string
	Timestamp time.Time
}

// Ingest routes chat and login events into the buffer and the ticket store.
type Ingest struct {
	buffer *evidence.Buffer
	store  *store.Store
	logger *zap.Logger
}

// New constructs the ingest pipeline.
func New(buffer *evidence.Buffer, st *store.Store, logger *zap.Logger) *Ingest {
	return &Ingest{buffer: buffer, store: st, logger: logger}
}

// HandleChat records the line in the speaker's rolling buffer, and for
// watched speakers appends it to every open ticket targeting them.
func (in *Ingest) HandleChat(ctx context.Context, ev ChatEvent) {
	entry := domain.EvidenceEntry{
		Timestamp: ev.Timestamp,
		Speaker:   ev.Speaker,
		Channel:   ev.Channel,
		Text:      ev.Text,
	}
	in.buffer.Record(entry)

	if !in.store.Watched(ev.Speaker) {
		return
	}
	for _, id := range in.store.OpenIDsTargeting(ev.Speaker) {
		in.store.AppendEvidence(ctx, id, entry)
	}
}

// HandleLogin notes a login. Watched identities are surfaced for operator
// visibility; nothing mutates ticket state.
func (in *Ingest) HandleLogin(ctx context.Context, identity string, at time.Time) {
	if !in.store.Watched(identity) {
		return
	}
	in.logger.Info("watched identity logged in",
		zap.String("identity", identity), zap.Time("at", at))
	in.store.NoteWatchedLogin(ctx, identity)
}
