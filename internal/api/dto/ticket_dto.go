package dto

import (
	"time"

	"github.com/e1ixyz/ReportSystem-sub000/internal/domain"
)

// FileReportRequest payload.
type FileReportRequest struct {
	Reporter string `json:"reporter"`
	Target   string `json:"target"`
	Type     string `json:"type"`
	Category string `json:"category"`
	Reason   string `json:"reason"`
}

// AssignRequest payload.
type AssignRequest struct {
	Assignee string `json:"assignee"`
	Force    bool   `json:"force"`
}

// TicketSummary response.
type TicketSummary struct {
	ID             int64               `json:"id"`
	Reporter       string              `json:"reporter"`
	Target         string              `json:"target"`
	Type           string              `json:"type"`
	Category       string              `json:"category"`
	Narrative      string              `json:"narrative"`
	Count          int                 `json:"count"`
	Status         domain.TicketStatus `json:"status"`
	Assignee       *string             `json:"assignee,omitempty"`
	EvidenceCount  int                 `json:"evidence_count"`
	CreatedAt      time.Time           `json:"created_at"`
	LastActivityAt time.Time           `json:"last_activity_at"`
	ClosedAt       *time.Time          `json:"closed_at,omitempty"`
}

// TicketDetailResponse provides full ticket info including evidence.
type TicketDetailResponse struct {
	TicketSummary
	Evidence []EvidenceResponse `json:"evidence"`
}

// EvidenceResponse is one captured chat line.
type EvidenceResponse struct {
	Timestamp time.Time `json:"ts"`
	Speaker   string    `json:"speaker"`
	Channel   string    `json:"channel"`
	Text      string    `json:"text"`
}

// FromTicket maps a ticket to its summary shape.
func FromTicket(t *domain.Ticket) TicketSummary {
	return TicketSummary{
		ID:             t.ID,
		Reporter:       t.Reporter,
		Target:         t.Target,
		Type:           t.Classification.TypeDisplay,
		Category:       t.Classification.CategoryDisplay,
		Narrative:      t.Narrative,
		Count:          t.Count,
		Status:         t.Status,
		Assignee:       t.Assignee,
		EvidenceCount:  len(t.Evidence),
		CreatedAt:      t.CreatedAt,
		LastActivityAt: t.LastActivityAt,
		ClosedAt:       t.ClosedAt,
	}
}

// FromTicketDetail maps a ticket including its evidence list.
func FromTicketDetail(t *domain.Ticket) TicketDetailResponse {
	evidence := make([]EvidenceResponse, 0, len(t.Evidence))
	for _, e := range t.Evidence {
		evidence = append(evidence, EvidenceResponse{
			Timestamp: e.Timestamp,
			Speaker:   e.Speaker,
			Channel:   e.Channel,
			Text:      e.Text,
		})
	}
	return TicketDetailResponse{
		TicketSummary: FromTicket(t),
		Evidence:      evidence,
	}
}
