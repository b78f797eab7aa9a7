package handlers

import (
	"database/sql"
	"errors"
	"log"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"cryptogram/internal/services"
	"cryptogram/pkg/auth"
)

// AuthHandler handles local email/password login for the admin API.
type AuthHandler struct {
	jwtAuth   *auth.LocalJWTAuth
	community *services.CommunityService
}

func NewAuthHandler(jwtAuth *auth.LocalJWTAuth, community *services.CommunityService) *AuthHandler {
	return &AuthHandler{jwtAuth: jwtAuth, community: community}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login verifies credentials and issues an access token.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	if h.jwtAuth == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Authentication not configured",
		})
	}

	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "email and password are required",
		})
	}

	user, err := h.community.GetUserByEmail(c.Context(), req.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid credentials"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Login failed"})
	}
	if user.PasswordHash == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid credentials"})
	}

	valid, err := auth.VerifyPassword(user.PasswordHash, req.Password)
	if err != nil || !valid {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid credentials"})
	}

	token, err := h.jwtAuth.GenerateToken(strconv.FormatInt(user.UserID, 10), user.Email, user.Role)
	if err != nil {
		log.Printf("❌ Failed to generate token for %s: %v", user.Email, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Login failed"})
	}

	h.community.TouchLastLogin(c.Context(), user.UserID)

	return c.JSON(fiber.Map{
		"access_token": token,
		"token_type":   "Bearer",
		"user": fiber.Map{
			"user_id": user.UserID,
			"email":   user.Email,
			"name":    user.Name,
			"role":    user.Role,
		},
	})
}
