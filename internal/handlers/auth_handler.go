package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"resumematch/scanner-web/internal/models"
	"resumematch/scanner-web/internal/services"
)

type AuthHandler struct{}

func NewAuthHandler() *AuthHandler {
	return &AuthHandler{}
}

// HandleLoginView handles GET /login
func (h *AuthHandler) HandleLoginView(c *fiber.Ctx) error {
	tab := currentTab(c)
	return c.JSON(fiber.Map{
		"view":  "login",
		"from":  c.Query("from"),
		"state": tab.Auth.State(),
	})
}

// HandleRegisterView handles GET /register
func (h *AuthHandler) HandleRegisterView(c *fiber.Ctx) error {
	tab := currentTab(c)
	return c.JSON(fiber.Map{
		"view":  "register",
		"state": tab.Auth.State(),
	})
}

// HandleLogin handles POST /api/login
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req models.LoginRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request payload",
			"code":  fiber.StatusBadRequest,
		})
	}

	tab := currentTab(c)
	if err := tab.Auth.Login(c.UserContext(), req.Username, req.Password); err != nil {
		return respondError(c, err, "Login failed")
	}

	return c.JSON(fiber.Map{
		"redirect": services.ReturnPath(req.From),
	})
}

// HandleRegister handles POST /api/register
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var req models.Credentials

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request payload",
			"code":  fiber.StatusBadRequest,
		})
	}

	tab := currentTab(c)
	message, err := tab.Accounts.Register(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return respondError(c, err, "Registration failed")
	}

	return c.Status(fiber.StatusCreated).JSON(models.RegisterResponse{
		Message:  message,
		Redirect: services.LoginRoute,
	})
}

// HandleLogout handles POST /api/logout
func (h *AuthHandler) HandleLogout(c *fiber.Ctx) error {
	currentTab(c).Auth.Logout(c.UserContext())
	return c.JSON(fiber.Map{
		"redirect": services.LoginRoute,
	})
}

// HandleSession handles GET /api/session
func (h *AuthHandler) HandleSession(c *fiber.Ctx) error {
	snap := currentTab(c).Auth.Snapshot()

	response := models.SessionResponse{
		State: string(snap.State),
		User:  snap.User,
	}

	info := services.DescribeToken(snap.Token)
	response.Subject = info.Subject
	if info.ExpiresAt != nil {
		expires := info.ExpiresAt.UTC().Format(time.RFC3339)
		response.ExpiresAt = &expires
	}

	return c.JSON(response)
}
