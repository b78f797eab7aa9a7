package handlers

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"cryptogram/internal/jobs"
	"cryptogram/internal/services"
)

// AdminHandler serves the bot operations dashboard and manual controls.
type AdminHandler struct {
	personas  *services.PersonaService
	errors    *services.ErrorLogger
	feedback  *services.FeedbackService
	poster    *services.PosterService
	selector  *services.PersonaScheduler
	scheduler *jobs.Scheduler
}

func NewAdminHandler(personas *services.PersonaService, errors *services.ErrorLogger, feedback *services.FeedbackService, poster *services.PosterService, selector *services.PersonaScheduler, scheduler *jobs.Scheduler) *AdminHandler {
	return &AdminHandler{
		personas:  personas,
		errors:    errors,
		feedback:  feedback,
		poster:    poster,
		selector:  selector,
		scheduler: scheduler,
	}
}

// PersonaStats returns per-persona posting totals.
func (h *AdminHandler) PersonaStats(c *fiber.Ctx) error {
	stats, err := h.personas.Stats(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load persona stats",
		})
	}
	return c.JSON(fiber.Map{"personas": stats, "count": len(stats)})
}

// Dashboard combines persona stats, engagement analytics and error stats
// into one payload.
func (h *AdminHandler) Dashboard(c *fiber.Ctx) error {
	personaStats, err := h.personas.Stats(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load persona stats",
		})
	}

	analytics, err := h.feedback.Analytics(c.Context(), 7)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load engagement analytics",
		})
	}

	errorStats, err := h.errors.ErrorStats(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load error stats",
		})
	}

	recentPosts, err := h.poster.RecentPosts(c.Context(), 20)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load recent posts",
		})
	}

	recentSelections, err := h.selector.RecentSelections(c.Context(), 20)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load recent selections",
		})
	}

	return c.JSON(fiber.Map{
		"personas":          personaStats,
		"engagement":        analytics,
		"errors":            errorStats,
		"recent_posts":      recentPosts,
		"recent_selections": recentSelections,
		"generated_at":      time.Now().UTC(),
	})
}

// RecentErrors lists errors from the trailing window.
func (h *AdminHandler) RecentErrors(c *fiber.Ctx) error {
	hours, err := strconv.Atoi(c.Query("hours", "24"))
	if err != nil || hours <= 0 {
		hours = 24
	}
	limit, _ := strconv.Atoi(c.Query("limit", "50"))

	errs, err := h.errors.RecentErrors(c.Context(), time.Duration(hours)*time.Hour, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load errors",
		})
	}
	return c.JSON(fiber.Map{"errors": errs, "count": len(errs), "hours": hours})
}

// ErrorStats returns 7-day error counts grouped by type.
func (h *AdminHandler) ErrorStats(c *fiber.Ctx) error {
	stats, err := h.errors.ErrorStats(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load error stats",
		})
	}
	return c.JSON(fiber.Map{"stats": stats})
}

// RunBot triggers one posting cycle outside the schedule.
func (h *AdminHandler) RunBot(c *fiber.Ctx) error {
	if err := h.scheduler.RunNow(c.Context(), jobs.PersonaPosterJobName); err != nil {
		if errors.Is(err, jobs.ErrJobLocked) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "A posting cycle is already running",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"status": "triggered", "job": jobs.PersonaPosterJobName})
}
