package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tkanok/slidewall/internal/domain"
	apperrors "github.com/tkanok/slidewall/internal/errors"
)

const mediaColumns = `id, group_id, public_id, url, kind, duration_seconds, position, is_active, created_at, updated_at`

// MediaRepo implements domain.MediaRepository backed by PostgreSQL.
type MediaRepo struct {
	pool *pgxpool.Pool
}

func NewMediaRepo(pool *pgxpool.Pool) *MediaRepo {
	return &MediaRepo{pool: pool}
}

func scanMediaItem(row pgx.Row) (*domain.MediaItem, error) {
	var m domain.MediaItem
	err := row.Scan(&m.ID, &m.GroupID, &m.PublicID, &m.URL, &m.Kind,
		&m.DurationSeconds, &m.Position, &m.IsActive, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	// Displays cache-bust replaced assets by version.
	m.Version = m.UpdatedAt.UnixMilli()
	return &m, nil
}

// ListActive returns the active items of a group, position ascending with
// ties broken by creation time. Positions may be non-contiguous; consumers
// only rely on the total order.
func (r *MediaRepo) ListActive(ctx context.Context, groupID uuid.UUID) ([]domain.MediaItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+mediaColumns+` FROM media
		 WHERE group_id = $1 AND is_active
		 ORDER BY position ASC, created_at ASC`,
		groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list media: %w", err)
	}
	defer rows.Close()

	items := make([]domain.MediaItem, 0)
	for rows.Next() {
		item, err := scanMediaItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan media item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func (r *MediaRepo) Get(ctx context.Context, id uuid.UUID) (*domain.MediaItem, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+mediaColumns+` FROM media WHERE id = $1 AND is_active`, id)

	item, err := scanMediaItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFoundError("media not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get media item: %w", err)
	}
	return item, nil
}

// Create persists the item at the end of the group's sequence.
func (r *MediaRepo) Create(ctx context.Context, item *domain.MediaItem) error {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO media (group_id, public_id, url, kind, duration_seconds, position)
		 VALUES ($1, $2, $3, $4, $5, (SELECT COUNT(*) FROM media WHERE group_id = $1 AND is_active))
		 RETURNING `+mediaColumns,
		item.GroupID, item.PublicID, item.URL, item.Kind, item.DurationSeconds)

	created, err := scanMediaItem(row)
	if err != nil {
		return fmt.Errorf("failed to create media item: %w", err)
	}
	*item = *created
	return nil
}

func (r *MediaRepo) Update(ctx context.Context, item *domain.MediaItem) error {
	row := r.pool.QueryRow(ctx,
		`UPDATE media
		 SET public_id = $2, url = $3, kind = $4, duration_seconds = $5, updated_at = NOW()
		 WHERE id = $1 AND is_active
		 RETURNING `+mediaColumns,
		item.ID, item.PublicID, item.URL, item.Kind, item.DurationSeconds)

	updated, err := scanMediaItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NotFoundError("media not found")
	}
	if err != nil {
		return fmt.Errorf("failed to update media item: %w", err)
	}
	*item = *updated
	return nil
}

func (r *MediaRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM media WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete media item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFoundError("media not found")
	}
	return nil
}

// ApplyDuration overwrites the duration of every active item in the group.
func (r *MediaRepo) ApplyDuration(ctx context.Context, groupID uuid.UUID, seconds int) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE media SET duration_seconds = $2, updated_at = NOW()
		 WHERE group_id = $1 AND is_active`,
		groupID, seconds)
	if err != nil {
		return 0, fmt.Errorf("failed to apply duration: %w", err)
	}
	return tag.RowsAffected(), nil
}
