package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability endpoints (no auth required)
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Auth routes
	s.echo.POST("/auth/login", s.handleLogin)
	s.echo.POST("/auth/logout", s.handleLogout, s.requireAuth)

	// Admin API (authenticated)
	admin := s.echo.Group("/api/admin", s.requireAuth)
	admin.GET("/events", s.handleListEvents)
	admin.POST("/events", s.handleCreateEvent)
	admin.PATCH("/events/:id", s.handleRenameEvent)
	admin.DELETE("/events/:id", s.handleDeactivateEvent)

	admin.GET("/events/:id/groups", s.handleListGroups)
	admin.POST("/events/:id/groups", s.handleCreateGroup)
	admin.PATCH("/groups/:id", s.handleUpdateGroup)
	admin.DELETE("/groups/:id", s.handleDeleteGroup)

	admin.GET("/groups/:id/media", s.handleListMedia)
	admin.POST("/groups/:id/media", s.handleUploadMedia)
	admin.PATCH("/groups/:id/duration", s.handleApplyDuration)
	admin.PATCH("/media/:id", s.handleUpdateMedia)
	admin.DELETE("/media/:id", s.handleDeleteMedia)

	// Public display routes (no auth: unattended screens carry no credentials)
	s.echo.GET("/api/groups/:slug/media", s.handleBootstrap)
	s.echo.GET("/ws", s.handleWebSocket)
}
