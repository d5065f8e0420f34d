package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/e1ixyz/ReportSystem-sub000/internal/api/dto"
	"github.com/e1ixyz/ReportSystem-sub000/internal/evidence"
	"github.com/e1ixyz/ReportSystem-sub000/internal/store"
	apperrors "github.com/e1ixyz/ReportSystem-sub000/pkg/util"
)

// ReportsHandler accepts incoming report filings.
type ReportsHandler struct {
	store  *store.Store
	buffer *evidence.Buffer
}

// NewReportsHandler constructs handler.
func NewReportsHandler(st *store.Store, buffer *evidence.Buffer) *ReportsHandler {
	return &ReportsHandler{store: st, buffer: buffer}
}

// File POST /api/reports.
func (h *ReportsHandler) File(c *fiber.Ctx) error {
	var req dto.FileReportRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	req.Reporter = strings.TrimSpace(req.Reporter)
	req.Target = strings.TrimSpace(req.Target)
	if req.Reporter == "" || req.Target == "" {
		return apperrors.NewValidationError("reporter and target required", nil)
	}

	cls, ok := h.store.ResolveClassification(req.Type, req.Category)
	if !ok {
		return apperrors.NewValidationError("unknown report type or category", map[string]any{
			"type":     req.Type,
			"category": req.Category,
		})
	}

	preRoll := h.buffer.Recent(req.Target)
	ticket, stacked := h.store.FileOrStack(c.Context(), req.Reporter, req.Target, cls, req.Reason, time.Now(), preRoll)

	status := http.StatusCreated
	if stacked {
		status = http.StatusOK
	}
	return c.Status(status).JSON(fiber.Map{
		"data":    dto.FromTicket(&ticket),
		"stacked": stacked,
	})
}
