package server

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/tkanok/slidewall/internal/errors"
)

const (
	sessionName    = "slidewall-session"
	sessionKeyAuth = "authenticated"
)

// requireAuth gates the admin surface on an authenticated session. The admin
// API is JSON-only, so failures are 401s rather than redirects.
func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		session, err := s.sessionStore.Get(c.Request(), sessionName)
		if err != nil {
			return apperrors.UnauthorizedError("invalid session")
		}

		authenticated, ok := session.Values[sessionKeyAuth].(bool)
		if !ok || !authenticated {
			return apperrors.UnauthorizedError("authentication required")
		}

		return next(c)
	}
}

type loginRequest struct {
	Password string `json:"password" validate:"required"`
}

func (s *Server) handleLogin(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(s.config.AdminPasswordHash), []byte(req.Password)); err != nil {
		slog.Warn("Rejected login attempt", "remote", c.RealIP())
		return apperrors.UnauthorizedError("invalid password")
	}

	session, err := s.sessionStore.Get(c.Request(), sessionName)
	if err != nil {
		// A stale or tampered cookie decodes to an error; start fresh.
		session, _ = s.sessionStore.New(c.Request(), sessionName)
	}
	session.Values[sessionKeyAuth] = true
	if err := session.Save(c.Request(), c.Response().Writer); err != nil {
		return apperrors.InternalError("failed to save session", err)
	}

	return c.JSON(200, map[string]string{"status": "ok"})
}

func (s *Server) handleLogout(c echo.Context) error {
	session, err := s.sessionStore.Get(c.Request(), sessionName)
	if err != nil {
		session, _ = s.sessionStore.New(c.Request(), sessionName)
	}
	session.Options.MaxAge = -1

	if err := session.Save(c.Request(), c.Response().Writer); err != nil {
		return apperrors.InternalError("failed to clear session", err)
	}

	return c.JSON(200, map[string]string{"status": "ok"})
}
