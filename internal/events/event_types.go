package events

import (
	"time"

	"github.com/e1ixyz/ReportSystem-sub000/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventReportFiled      EventType = "report_filed"
	EventReportStacked    EventType = "report_stacked"
	EventTicketAssigned   EventType = "ticket_assigned"
	EventTicketUnassigned EventType = "ticket_unassigned"
	EventTicketClosed     EventType = "ticket_closed"
	EventTicketReopened   EventType = "ticket_reopened"
	EventEvidenceAppended EventType = "evidence_appended"
	EventWatchedLogin     EventType = "watched_login"
)

// Event represents a lifecycle event emitted by the ticket store.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  int64       `json:"ticket_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// ReportFiledPayload payload.
type ReportFiledPayload struct {
	Reporter       string                `json:"reporter"`
	Target         string                `json:"target"`
	Classification domain.Classification `json:"classification"`
}

// ReportStackedPayload payload.
type ReportStackedPayload struct {
	Reporter string `json:"reporter"`
	Target   string `json:"target"`
	Count    int    `json:"count"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	Assignee string `json:"assignee"`
	Forced   bool   `json:"forced"`
}

// TicketStatusPayload payload for close/reopen events.
type TicketStatusPayload struct {
	Status domain.TicketStatus `json:"status"`
}

// EvidenceAppendedPayload payload.
type EvidenceAppendedPayload struct {
	Speaker string `json:"speaker"`
	Channel string `json:"channel"`
}

// WatchedLoginPayload payload.
type WatchedLoginPayload struct {
	Identity string `json:"identity"`
}
