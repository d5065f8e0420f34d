package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/e1ixyz/ReportSystem-sub000/internal/config"
	"github.com/e1ixyz/ReportSystem-sub000/internal/store"
	apperrors "github.com/e1ixyz/ReportSystem-sub000/pkg/util"
)

// OpsHandler covers health, debug and admin endpoints.
type OpsHandler struct {
	store  *store.Store
	model  *config.ModelStore
	logger *zap.Logger
}

// NewOpsHandler constructs handler.
func NewOpsHandler(st *store.Store, model *config.ModelStore, logger *zap.Logger) *OpsHandler {
	return &OpsHandler{store: st, model: model, logger: logger}
}

// Live GET /health/live.
func (h *OpsHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Ready GET /health/ready.
func (h *OpsHandler) Ready(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Summary GET /api/debug/summary.
func (h *OpsHandler) Summary(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.store.DebugSummary()})
}

// Reload POST /api/admin/reload re-reads the moderation model file and
// swaps the snapshot wholesale.
func (h *OpsHandler) Reload(c *fiber.Ctx) error {
	if err := h.model.Reload(); err != nil {
		h.logger.Error("model reload failed", zap.Error(err))
		return apperrors.NewValidationError("model reload failed", map[string]any{
			"reason": err.Error(),
		})
	}
	h.logger.Info("model reloaded")
	return c.JSON(fiber.Map{"status": "reloaded"})
}
