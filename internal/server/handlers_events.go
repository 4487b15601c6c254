package server

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	apperrors "github.com/tkanok/slidewall/internal/errors"
)

type createEventRequest struct {
	Name string `json:"name" validate:"required,max=200"`
	Slug string `json:"slug" validate:"required,max=100,slug"`
}

type renameRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

func (s *Server) handleListEvents(c echo.Context) error {
	events, err := s.deps.Events.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(200, events)
}

func (s *Server) handleCreateEvent(c echo.Context) error {
	var req createEventRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	event, err := s.deps.Events.Create(c.Request().Context(), req.Name, req.Slug)
	if err != nil {
		return err
	}
	return c.JSON(201, event)
}

func (s *Server) handleRenameEvent(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	var req renameRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	event, err := s.deps.Events.Rename(c.Request().Context(), id, req.Name)
	if err != nil {
		return err
	}
	return c.JSON(200, event)
}

func (s *Server) handleDeactivateEvent(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	if err := s.deps.Events.Deactivate(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(204)
}

func parseIDParam(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperrors.ValidationError("invalid id")
	}
	return id, nil
}
