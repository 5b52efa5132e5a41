package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"

	"resumematch/scanner-web/internal/services"
)

const (
	TabHeader = "X-Tab-ID"
	TabCookie = "tab_id"

	tabLocal = "tab"
)

// TabMiddleware resolves the caller's tab, opens it in the registry and
// rehydrates its auth context before any handler runs.
func TabMiddleware(registry *services.TabRegistry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Header and cookie values point into the request buffer.
		id := utils.CopyString(c.Get(TabHeader))
		if id == "" {
			id = utils.CopyString(c.Cookies(TabCookie))
		}
		if id == "" {
			id = uuid.New().String()
		}

		tab, err := registry.Open(id)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid tab id")
		}

		// Session cookie: no expiry, so it dies with the browser session.
		c.Cookie(&fiber.Cookie{
			Name:     TabCookie,
			Value:    id,
			Path:     "/",
			HTTPOnly: true,
			SameSite: "Lax",
		})
		c.Set(TabHeader, id)

		ctx := c.UserContext()
		if err := tab.Auth.Rehydrate(ctx); err != nil {
			log.Printf("⚠️  Tab %s could not be rehydrated: %v\n", id, err)
		}
		if err := tab.Session.Touch(ctx); err != nil {
			log.Printf("⚠️  Tab %s could not be touched: %v\n", id, err)
		}
		if _, err := tab.Auth.Sync(ctx); err != nil {
			log.Printf("⚠️  Tab %s could not be synced: %v\n", id, err)
		}

		c.Locals(tabLocal, tab)
		return c.Next()
	}
}

func currentTab(c *fiber.Ctx) *services.Tab {
	tab, _ := c.Locals(tabLocal).(*services.Tab)
	return tab
}

// RequireAuth applies the route guard to protected routes. Page navigations
// are redirected to the login page; API calls get a 401 carrying the same
// redirect target.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tab := currentTab(c)
		if tab == nil {
			return fiber.NewError(fiber.StatusInternalServerError, "tab middleware missing")
		}

		decision := services.Guard(tab.Auth.State(), c.OriginalURL())
		switch decision.Kind {
		case services.DecisionRender:
			return c.Next()

		case services.DecisionRedirect:
			if c.Method() == fiber.MethodGet {
				return c.Redirect(decision.RedirectTo, fiber.StatusFound)
			}
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error":    "Not signed in",
				"code":     fiber.StatusUnauthorized,
				"redirect": decision.RedirectTo,
			})

		default:
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"view": "loading",
			})
		}
	}
}
