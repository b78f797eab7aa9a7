package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"cryptogram/internal/database"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	db        *database.DB
	startTime time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db *database.DB) *HealthHandler {
	return &HealthHandler{db: db, startTime: time.Now()}
}

// Handle responds with server health status
func (h *HealthHandler) Handle(c *fiber.Ctx) error {
	dbStatus := "healthy"
	if err := h.db.Ping(); err != nil {
		dbStatus = "unavailable"
	}

	return c.JSON(fiber.Map{
		"status":    "healthy",
		"database":  dbStatus,
		"uptime":    time.Since(h.startTime).Round(time.Second).String(),
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
