package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tkanok/slidewall/internal/domain"
	apperrors "github.com/tkanok/slidewall/internal/errors"
)

const eventColumns = `id, name, slug, is_active, created_at, updated_at`

// uniqueViolation is the PostgreSQL error code for unique constraint violations.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// EventRepo implements domain.EventRepository backed by PostgreSQL.
type EventRepo struct {
	pool *pgxpool.Pool
}

func NewEventRepo(pool *pgxpool.Pool) *EventRepo {
	return &EventRepo{pool: pool}
}

func scanEvent(row pgx.Row) (*domain.Event, error) {
	var e domain.Event
	err := row.Scan(&e.ID, &e.Name, &e.Slug, &e.IsActive, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *EventRepo) Create(ctx context.Context, name, slug string) (*domain.Event, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO events (name, slug) VALUES ($1, $2) RETURNING `+eventColumns,
		name, slug)

	event, err := scanEvent(row)
	if isUniqueViolation(err) {
		return nil, apperrors.ConflictError("event slug already exists")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}
	return event, nil
}

func (r *EventRepo) GetBySlug(ctx context.Context, slug string) (*domain.Event, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE slug = $1 AND is_active`, slug)

	event, err := scanEvent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFoundError("event not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event by slug: %w", err)
	}
	return event, nil
}

func (r *EventRepo) List(ctx context.Context) ([]domain.Event, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+eventColumns+` FROM events WHERE is_active ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	events := make([]domain.Event, 0)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, *event)
	}
	return events, rows.Err()
}

func (r *EventRepo) Rename(ctx context.Context, id uuid.UUID, name string) (*domain.Event, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE events SET name = $2, updated_at = NOW() WHERE id = $1 AND is_active RETURNING `+eventColumns,
		id, name)

	event, err := scanEvent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFoundError("event not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to rename event: %w", err)
	}
	return event, nil
}

func (r *EventRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE events SET is_active = FALSE, updated_at = NOW() WHERE id = $1 AND is_active`, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFoundError("event not found")
	}
	return nil
}
