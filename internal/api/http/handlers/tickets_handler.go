package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/e1ixyz/ReportSystem-sub000/internal/api/dto"
	"github.com/e1ixyz/ReportSystem-sub000/internal/config"
	"github.com/e1ixyz/ReportSystem-sub000/internal/domain"
	"github.com/e1ixyz/ReportSystem-sub000/internal/store"
	apperrors "github.com/e1ixyz/ReportSystem-sub000/pkg/util"
)

// TicketsHandler exposes the ticket query and mutation surface.
type TicketsHandler struct {
	store *store.Store
	model *config.ModelStore
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(st *store.Store, model *config.ModelStore) *TicketsHandler {
	return &TicketsHandler{store: st, model: model}
}

// List GET /api/tickets?scope=open|closed&page=N.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	var tickets []domain.Ticket
	switch strings.ToLower(c.Query("scope", "open")) {
	case "open":
		tickets = h.store.OpenDescending()
	case "closed":
		tickets = h.store.ClosedDescending()
	default:
		return apperrors.NewValidationError("scope must be open or closed", nil)
	}

	pageSize := h.model.Snapshot().PageSize
	page, err := strconv.Atoi(c.Query("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	start := (page - 1) * pageSize
	if start > len(tickets) {
		start = len(tickets)
	}
	end := start + pageSize
	if end > len(tickets) {
		end = len(tickets)
	}

	items := make([]dto.TicketSummary, 0, end-start)
	for i := start; i < end; i++ {
		items = append(items, dto.FromTicket(&tickets[i]))
	}
	return c.JSON(fiber.Map{
		"data":  items,
		"page":  page,
		"total": len(tickets),
	})
}

// Search GET /api/tickets/search?q=..&scope=open|closed|all.
func (h *TicketsHandler) Search(c *fiber.Ctx) error {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		return apperrors.NewValidationError("q required", nil)
	}
	scope := store.Scope(strings.ToLower(c.Query("scope", string(store.ScopeAll))))
	switch scope {
	case store.ScopeOpen, store.ScopeClosed, store.ScopeAll:
	default:
		return apperrors.NewValidationError("scope must be open, closed or all", nil)
	}

	tickets := h.store.Search(query, scope)
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.FromTicket(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /api/tickets/:id.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	ticket, ok := h.store.Get(id)
	if !ok {
		return apperrors.NewNotFound("ticket", nil)
	}
	return c.JSON(fiber.Map{"data": dto.FromTicketDetail(&ticket)})
}

// Evidence GET /api/tickets/:id/evidence.
func (h *TicketsHandler) Evidence(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	entries, ok := h.store.EvidenceSnapshot(id)
	if !ok {
		return apperrors.NewNotFound("ticket", nil)
	}
	items := make([]dto.EvidenceResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, dto.EvidenceResponse{
			Timestamp: e.Timestamp,
			Speaker:   e.Speaker,
			Channel:   e.Channel,
			Text:      e.Text,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// Assign POST /api/tickets/:id/assign.
func (h *TicketsHandler) Assign(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req dto.AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	req.Assignee = strings.TrimSpace(req.Assignee)
	if req.Assignee == "" {
		return apperrors.NewValidationError("assignee required", nil)
	}
	if _, ok := h.store.Get(id); !ok {
		return apperrors.NewNotFound("ticket", nil)
	}
	if !h.store.AssignIfNotConflicting(c.Context(), id, req.Assignee, req.Force) {
		return apperrors.NewConflict("ticket already assigned", nil)
	}
	return h.respondWith(c, id)
}

// Unassign POST /api/tickets/:id/unassign.
func (h *TicketsHandler) Unassign(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if !h.store.Unassign(c.Context(), id) {
		return apperrors.NewNotFound("ticket", nil)
	}
	return h.respondWith(c, id)
}

// Close POST /api/tickets/:id/close.
func (h *TicketsHandler) Close(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if !h.store.Close(c.Context(), id) {
		return apperrors.NewNotFound("ticket", nil)
	}
	return h.respondWith(c, id)
}

// Reopen POST /api/tickets/:id/reopen.
func (h *TicketsHandler) Reopen(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if !h.store.Reopen(c.Context(), id) {
		return apperrors.NewNotFound("ticket", nil)
	}
	return h.respondWith(c, id)
}

func (h *TicketsHandler) respondWith(c *fiber.Ctx, id int64) error {
	ticket, ok := h.store.Get(id)
	if !ok {
		return apperrors.NewNotFound("ticket", nil)
	}
	return c.JSON(fiber.Map{"data": dto.FromTicket(&ticket)})
}

func parseID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid ticket id", nil)
	}
	return id, nil
}
