package server

import (
	"github.com/labstack/echo/v4"

	apperrors "github.com/tkanok/slidewall/internal/errors"
)

type createGroupRequest struct {
	Name string `json:"name" validate:"required,max=200"`
	Slug string `json:"slug" validate:"required,max=100,slug"`
}

type updateGroupRequest struct {
	Name   *string `json:"name" validate:"omitempty,max=200"`
	IsLive *bool   `json:"isLive"`
}

func (s *Server) handleListGroups(c echo.Context) error {
	eventID, err := parseIDParam(c)
	if err != nil {
		return err
	}

	groups, err := s.deps.Groups.ListByEvent(c.Request().Context(), eventID)
	if err != nil {
		return err
	}
	return c.JSON(200, groups)
}

func (s *Server) handleCreateGroup(c echo.Context) error {
	eventID, err := parseIDParam(c)
	if err != nil {
		return err
	}

	var req createGroupRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	group, err := s.deps.Groups.Create(c.Request().Context(), eventID, req.Name, req.Slug)
	if err != nil {
		return err
	}
	return c.JSON(201, group)
}

func (s *Server) handleUpdateGroup(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	var req updateGroupRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if req.Name == nil && req.IsLive == nil {
		return apperrors.ValidationError("nothing to update")
	}

	group, err := s.deps.Groups.Update(c.Request().Context(), id, req.Name, req.IsLive)
	if err != nil {
		return err
	}
	return c.JSON(200, group)
}

func (s *Server) handleDeleteGroup(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	if err := s.deps.Groups.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(204)
}
