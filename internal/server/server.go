package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/tkanok/slidewall/internal/config"
	"github.com/tkanok/slidewall/internal/domain"
	apperrors "github.com/tkanok/slidewall/internal/errors"
	"github.com/tkanok/slidewall/internal/hub"
)

const sessionMaxAgeDays = 7

// pinger is the minimal health-check surface of a backing store.
type pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies carries the collaborators the server routes requests to.
type Dependencies struct {
	Events    domain.EventRepository
	Groups    domain.GroupRepository
	Media     domain.MediaRepository
	Store     domain.MediaStore
	Publisher domain.EventPublisher
	Hub       *hub.Hub

	// PostgresPing is required; RedisPing is nil when running without Redis.
	PostgresPing pinger
	RedisPing    pinger
}

type Server struct {
	echo         *echo.Echo
	config       *config.Config
	deps         Dependencies
	sessionStore *sessions.CookieStore
	startTime    time.Time
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// requestValidator adapts go-playground/validator to echo's Validator
// interface, translating failures into 400s.
type requestValidator struct {
	validate *validator.Validate
}

func (v *requestValidator) Validate(i any) error {
	if err := v.validate.Struct(i); err != nil {
		return apperrors.ValidationError(err.Error())
	}
	return nil
}

func newRequestValidator() (*requestValidator, error) {
	v := validator.New()
	err := v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugPattern.MatchString(fl.Field().String())
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register slug validation: %w", err)
	}
	return &requestValidator{validate: v}, nil
}

func NewServer(cfg *config.Config, deps Dependencies) (*Server, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	rv, err := newRequestValidator()
	if err != nil {
		return nil, err
	}
	e.Validator = rv
	e.HTTPErrorHandler = errorHandler

	sessionStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	sessionStore.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * sessionMaxAgeDays,
		HttpOnly: true,
		Secure:   cfg.AppEnv == "production",
		SameSite: http.SameSiteLaxMode,
	}

	srv := &Server{
		echo:         e,
		config:       cfg,
		deps:         deps,
		sessionStore: sessionStore,
		startTime:    time.Now(),
	}

	srv.registerRoutes()

	return srv, nil
}

// errorHandler maps structured errors to JSON responses with the matching
// status code. Echo's own errors (404, 405) pass through untouched.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	if httpErr, ok := err.(*echo.HTTPError); ok {
		_ = c.JSON(httpErr.Code, map[string]any{"error": fmt.Sprintf("%v", httpErr.Message)})
		return
	}

	structured := apperrors.AsStructuredError(err)
	if structured.Type == apperrors.TypeInternal || structured.Type == apperrors.TypeExternal {
		slog.Error("Request failed", "path", c.Request().URL.Path, "error", err)
	}
	_ = c.JSON(structured.HTTPStatus(), structured.ToResponse())
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
