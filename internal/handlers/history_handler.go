package handlers

import (
	"github.com/gofiber/fiber/v2"

	"resumematch/scanner-web/internal/services"
)

type HistoryHandler struct{}

func NewHistoryHandler() *HistoryHandler {
	return &HistoryHandler{}
}

// HandleHistoryView handles GET /history
func (h *HistoryHandler) HandleHistoryView(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", services.DefaultHistoryLimit)

	entries, err := currentTab(c).History.List(c.UserContext(), limit)
	if err != nil {
		return respondError(c, err, "Failed to load history")
	}

	return c.JSON(fiber.Map{
		"view":  "history",
		"items": entries,
	})
}

// HandleLoad handles GET /history/:id/load
func (h *HistoryHandler) HandleLoad(c *fiber.Ctx) error {
	entry, err := currentTab(c).History.Find(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err, "Failed to load scan")
	}

	return c.JSON(fiber.Map{
		"view":    "scan",
		"prefill": services.LoadInScanner(*entry),
	})
}
