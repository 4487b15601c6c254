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

const groupColumns = `id, event_id, name, slug, position, is_active, is_live, created_at, updated_at`

// GroupRepo implements domain.GroupRepository backed by PostgreSQL.
type GroupRepo struct {
	pool *pgxpool.Pool
}

func NewGroupRepo(pool *pgxpool.Pool) *GroupRepo {
	return &GroupRepo{pool: pool}
}

func scanGroup(row pgx.Row) (*domain.Group, error) {
	var g domain.Group
	err := row.Scan(&g.ID, &g.EventID, &g.Name, &g.Slug, &g.Position,
		&g.IsActive, &g.IsLive, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *GroupRepo) Create(ctx context.Context, eventID uuid.UUID, name, slug string) (*domain.Group, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO groups (event_id, name, slug, position)
		 VALUES ($1, $2, $3, (SELECT COUNT(*) FROM groups WHERE event_id = $1 AND is_active))
		 RETURNING `+groupColumns,
		eventID, name, slug)

	group, err := scanGroup(row)
	if isUniqueViolation(err) {
		return nil, apperrors.ConflictError("group slug already exists")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create group: %w", err)
	}
	return group, nil
}

func (r *GroupRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Group, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+groupColumns+` FROM groups WHERE id = $1 AND is_active`, id)

	group, err := scanGroup(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFoundError("group not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return group, nil
}

func (r *GroupRepo) GetBySlug(ctx context.Context, slug string) (*domain.Group, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+groupColumns+` FROM groups WHERE slug = $1 AND is_active`, slug)

	group, err := scanGroup(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFoundError("group not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group by slug: %w", err)
	}
	return group, nil
}

func (r *GroupRepo) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]domain.Group, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+groupColumns+` FROM groups
		 WHERE event_id = $1 AND is_active
		 ORDER BY position ASC, created_at ASC`,
		eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	groups := make([]domain.Group, 0)
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, *group)
	}
	return groups, rows.Err()
}

func (r *GroupRepo) Update(ctx context.Context, id uuid.UUID, name *string, isLive *bool) (*domain.Group, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE groups
		 SET name = COALESCE($2, name), is_live = COALESCE($3, is_live), updated_at = NOW()
		 WHERE id = $1 AND is_active
		 RETURNING `+groupColumns,
		id, name, isLive)

	group, err := scanGroup(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFoundError("group not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update group: %w", err)
	}
	return group, nil
}

func (r *GroupRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM groups WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFoundError("group not found")
	}
	return nil
}
