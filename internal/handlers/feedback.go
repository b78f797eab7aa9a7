package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"cryptogram/internal/services"
)

// FeedbackHandler ingests Discord engagement events.
type FeedbackHandler struct {
	feedback *services.FeedbackService
}

func NewFeedbackHandler(feedback *services.FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{feedback: feedback}
}

type feedbackRequest struct {
	PostID          int64  `json:"post_id"`
	InteractionType string `json:"interaction_type"`
	UserID          string `json:"user_id"`
	Metadata        string `json:"metadata"`
}

// Record stores one engagement event and returns the recorded row.
func (h *FeedbackHandler) Record(c *fiber.Ctx) error {
	var req feedbackRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.PostID == 0 || req.InteractionType == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "post_id and interaction_type are required",
		})
	}

	fb, err := h.feedback.Record(c.Context(), req.PostID, req.InteractionType, req.UserID, req.Metadata)
	if err != nil {
		status := fiber.StatusInternalServerError
		msg := "Failed to record feedback"
		switch {
		case strings.Contains(err.Error(), "unknown interaction type"):
			status = fiber.StatusBadRequest
			msg = err.Error()
		case strings.Contains(err.Error(), "not found"):
			status = fiber.StatusNotFound
			msg = err.Error()
		}
		return c.Status(status).JSON(fiber.Map{"error": msg})
	}

	return c.Status(fiber.StatusCreated).JSON(fb)
}

// Analytics returns the engagement analytics payload.
func (h *FeedbackHandler) Analytics(c *fiber.Ctx) error {
	days := c.QueryInt("days", 7)

	analytics, err := h.feedback.Analytics(c.Context(), days)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load analytics",
		})
	}
	return c.JSON(analytics)
}
