package handlers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"cryptogram/internal/services"
)

// CoinHandler serves market snapshots and price history.
type CoinHandler struct {
	market *services.MarketService
}

func NewCoinHandler(market *services.MarketService) *CoinHandler {
	return &CoinHandler{market: market}
}

// Data returns the current market snapshot plus stored history, the
// payload the community frontend charts from.
func (h *CoinHandler) Data(c *fiber.Ctx) error {
	hours, err := strconv.Atoi(c.Query("hours", "24"))
	if err != nil || hours <= 0 || hours > 24*30 {
		hours = 24
	}

	snapshot, snapErr := h.market.Snapshot(c.Context())

	history, err := h.market.History(c.Context(), time.Now().UTC().Add(-time.Duration(hours)*time.Hour))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load price history",
		})
	}

	resp := fiber.Map{
		"history": history,
		"hours":   hours,
	}
	if snapErr == nil {
		resp["current"] = snapshot
	} else {
		resp["current"] = nil
		resp["feed_error"] = "Live prices temporarily unavailable"
	}

	return c.JSON(resp)
}
