package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen   TicketStatus = "OPEN"
	TicketStatusClosed TicketStatus = "CLOSED"
)

// Classification identifies what kind of report a ticket holds. Keys are
// opaque taxonomy identifiers; display strings are resolved once at filing
// time and never change afterwards.
type Classification struct {
	TypeKey         string `json:"type_key"`
	TypeDisplay     string `json:"type_display"`
	CategoryKey     string `json:"category_key"`
	CategoryDisplay string `json:"category_display"`
}

// Key returns the "type/category" lookup key used by the severity and SLA
// tables.
func (c Classification) Key() string {
	return c.TypeKey + "/" + c.CategoryKey
}

// EvidenceEntry is one captured chat line attached to a ticket or held in
// the rolling pre-roll buffer.
type EvidenceEntry struct {
	Timestamp time.Time `json:"ts"`
	Speaker   string    `json:"speaker"`
	Channel   string    `json:"channel"`
	Text      string    `json:"text"`
}

// Ticket is the aggregate for moderation reports. A single ticket may
// represent multiple stacked filings against the same target and
// classification; Count tracks how many.
type Ticket struct {
	ID             int64          `json:"id"`
	Reporter       string         `json:"reporter"`
	Target         string         `json:"target"`
	Classification Classification `json:"classification"`
	Narrative      string         `json:"narrative"`
	Count          int            `json:"count"`
	Status         TicketStatus   `json:"status"`
	Assignee       *string        `json:"assignee,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	LastActivityAt time.Time      `json:"last_activity_at"`
	ClosedAt       *time.Time     `json:"closed_at,omitempty"`
	Evidence       []EvidenceEntry `json:"evidence"`
}

// Open reports whether the ticket is in the OPEN state.
func (t *Ticket) Open() bool {
	return t.Status == TicketStatusOpen
}

// Clone returns a deep copy so callers never share mutable state with the
// store's authoritative record.
func (t *Ticket) Clone() Ticket {
	out := *t
	if t.Assignee != nil {
		a := *t.Assignee
		out.Assignee = &a
	}
	if t.ClosedAt != nil {
		c := *t.ClosedAt
		out.ClosedAt = &c
	}
	if t.Evidence != nil {
		out.Evidence = make([]EvidenceEntry, len(t.Evidence))
		copy(out.Evidence, t.Evidence)
	}
	return out
}
