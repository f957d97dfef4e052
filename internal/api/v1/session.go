package api

import (
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"

	"github.com/JesusOliveto/CalCalculator/internal/conf"
	"github.com/JesusOliveto/CalCalculator/internal/nutrition"
)

const (
	sessionName = "nutriapp"
	goalKey     = "daily_goal"

	sessionMaxAge = 30 * 24 * 60 * 60 // seconds
)

func newCookieStore(secret string) *sessions.CookieStore {
	if secret == "" {
		// Sessions then last until the process restarts.
		secret = conf.GenerateRandomSecret()
	}
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// session returns the caller's tracking session. A missing or unreadable
// cookie yields a fresh session with the default goal.
func (c *Controller) session(ctx echo.Context) (nutrition.Session, *sessions.Session) {
	raw, err := c.sessions.Get(ctx.Request(), sessionName)
	if err != nil {
		c.logger.Debug("discarding unreadable session cookie", "error", err)
	}
	goal := c.goal
	if raw != nil {
		if v, ok := raw.Values[goalKey].(int); ok {
			goal = v
		}
	}
	return nutrition.NewSession(goal), raw
}

func (c *Controller) saveGoal(ctx echo.Context, raw *sessions.Session, goal int) error {
	if raw == nil {
		raw = sessions.NewSession(c.sessions, sessionName)
	}
	raw.Values[goalKey] = goal
	return raw.Save(ctx.Request(), ctx.Response())
}
