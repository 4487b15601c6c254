package server

import (
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/tkanok/slidewall/internal/domain"
	apperrors "github.com/tkanok/slidewall/internal/errors"
	"github.com/tkanok/slidewall/internal/logging"
	"github.com/tkanok/slidewall/internal/metrics"
)

const maxUploadBytes = 100 << 20 // per request, all files combined

func (s *Server) handleListMedia(c echo.Context) error {
	groupID, err := parseIDParam(c)
	if err != nil {
		return err
	}

	items, err := s.deps.Media.ListActive(c.Request().Context(), groupID)
	if err != nil {
		return err
	}
	return c.JSON(200, items)
}

// handleUploadMedia accepts one or more files in a multipart form ("files"),
// stores each on the CDN, appends it to the group, and publishes a single
// media-added notification carrying every item that made it through. A file
// that fails to upload is skipped, not fatal to its siblings.
func (s *Server) handleUploadMedia(c echo.Context) error {
	groupID, err := parseIDParam(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	group, err := s.deps.Groups.Get(ctx, groupID)
	if err != nil {
		return err
	}

	c.Request().Body = http.MaxBytesReader(c.Response().Writer, c.Request().Body, maxUploadBytes)
	form, err := c.MultipartForm()
	if err != nil {
		return apperrors.ValidationError("invalid multipart form")
	}
	files := form.File["files"]
	if len(files) == 0 {
		return apperrors.ValidationError("no files provided")
	}

	duration := s.config.DefaultSlideSeconds
	if raw := c.FormValue("duration"); raw != "" {
		duration, err = strconv.Atoi(raw)
		if err != nil || duration < 1 {
			return apperrors.ValidationError("duration must be a positive integer")
		}
	}

	var created []domain.MediaItem
	for _, fh := range files {
		item, err := s.storeUpload(c, fh, group, duration)
		if err != nil {
			logging.WithGroup(group.Slug).Warn("Skipping failed upload", "filename", fh.Filename, "error", err)
			metrics.MediaUploads.WithLabelValues("unknown", "error").Inc()
			continue
		}
		metrics.MediaUploads.WithLabelValues(string(item.Kind), "ok").Inc()
		created = append(created, *item)
	}

	if len(created) == 0 {
		return apperrors.ExternalError("all uploads failed", nil)
	}

	s.deps.Publisher.Publish(ctx, domain.MediaAdded(group.Slug, created))

	return c.JSON(201, created)
}

func (s *Server) storeUpload(c echo.Context, fh *multipart.FileHeader, group *domain.Group, duration int) (*domain.MediaItem, error) {
	file, err := fh.Open()
	if err != nil {
		return nil, apperrors.ValidationError("failed to open uploaded file")
	}
	defer file.Close()

	ctx := c.Request().Context()
	result, err := s.deps.Store.Upload(ctx, fh.Filename, fh.Header.Get("Content-Type"), file)
	if err != nil {
		return nil, err
	}

	item := &domain.MediaItem{
		GroupID:         group.ID,
		PublicID:        result.PublicID,
		URL:             result.URL,
		Kind:            result.Kind,
		DurationSeconds: duration,
	}
	if err := s.deps.Media.Create(ctx, item); err != nil {
		// Storage rejected the row; drop the orphaned asset best-effort.
		if derr := s.deps.Store.Destroy(ctx, result.PublicID); derr != nil {
			slog.Warn("Failed to clean up orphaned asset", "public_id", result.PublicID, "error", derr)
		}
		return nil, err
	}
	return item, nil
}

// handleUpdateMedia replaces the file and/or the duration of one item. The
// form carries an optional "file" and an optional "duration"; at least one
// must be present. The published item reflects the committed row, bumped
// version included, so displays re-render the replaced asset.
func (s *Server) handleUpdateMedia(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	item, err := s.deps.Media.Get(ctx, id)
	if err != nil {
		return err
	}
	group, err := s.deps.Groups.Get(ctx, item.GroupID)
	if err != nil {
		return err
	}

	c.Request().Body = http.MaxBytesReader(c.Response().Writer, c.Request().Body, maxUploadBytes)

	changed := false
	oldPublicID := ""

	if fh, err := c.FormFile("file"); err == nil {
		file, err := fh.Open()
		if err != nil {
			return apperrors.ValidationError("failed to open uploaded file")
		}
		result, uploadErr := s.deps.Store.Upload(ctx, fh.Filename, fh.Header.Get("Content-Type"), file)
		file.Close()
		if uploadErr != nil {
			return uploadErr
		}
		oldPublicID = item.PublicID
		item.PublicID = result.PublicID
		item.URL = result.URL
		item.Kind = result.Kind
		changed = true
	}

	if raw := c.FormValue("duration"); raw != "" {
		duration, err := strconv.Atoi(raw)
		if err != nil || duration < 1 {
			return apperrors.ValidationError("duration must be a positive integer")
		}
		item.DurationSeconds = duration
		changed = true
	}

	if !changed {
		return apperrors.ValidationError("nothing to update")
	}

	if err := s.deps.Media.Update(ctx, item); err != nil {
		return err
	}

	if oldPublicID != "" {
		if err := s.deps.Store.Destroy(ctx, oldPublicID); err != nil {
			logging.WithMedia(item.ID.String()).Warn("Failed to destroy replaced asset", "public_id", oldPublicID, "error", err)
		}
	}

	s.deps.Publisher.Publish(ctx, domain.MediaUpdated(group.Slug, *item))

	return c.JSON(200, item)
}

func (s *Server) handleDeleteMedia(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	item, err := s.deps.Media.Get(ctx, id)
	if err != nil {
		return err
	}
	group, err := s.deps.Groups.Get(ctx, item.GroupID)
	if err != nil {
		return err
	}

	if err := s.deps.Media.Delete(ctx, id); err != nil {
		return err
	}

	// The row is gone; the asset is best-effort cleanup.
	if err := s.deps.Store.Destroy(ctx, item.PublicID); err != nil {
		logging.WithMedia(item.ID.String()).Warn("Failed to destroy deleted asset", "public_id", item.PublicID, "error", err)
	}

	s.deps.Publisher.Publish(ctx, domain.MediaDeleted(group.Slug, id))

	return c.NoContent(204)
}

type applyDurationRequest struct {
	DurationSeconds int `json:"durationSeconds" validate:"required,min=1,max=3600"`
}

// handleApplyDuration overwrites the duration of every active item in the
// group with a single value.
func (s *Server) handleApplyDuration(c echo.Context) error {
	groupID, err := parseIDParam(c)
	if err != nil {
		return err
	}

	var req applyDurationRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	group, err := s.deps.Groups.Get(ctx, groupID)
	if err != nil {
		return err
	}

	updated, err := s.deps.Media.ApplyDuration(ctx, groupID, req.DurationSeconds)
	if err != nil {
		return err
	}

	s.deps.Publisher.Publish(ctx, domain.DurationApplied(group.Slug, req.DurationSeconds))

	return c.JSON(200, map[string]any{"updated": updated})
}
