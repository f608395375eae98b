package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mantralabs/japa-api/internal/models"
)

// CounterRepository handles the lifetime tap counter rows.
type CounterRepository struct {
	db *DB
}

// NewCounterRepository creates a new counter repository.
func NewCounterRepository(db *DB) *CounterRepository {
	return &CounterRepository{db: db}
}

// Get retrieves the counter row for a user. A missing row is not an
// error: new users start from zero, so (nil, nil) is returned.
func (r *CounterRepository) Get(ctx context.Context, userID uuid.UUID) (*models.Counter, error) {
	counter := &models.Counter{}
	query := `
		SELECT user_id, count, today_count, last_date, updated_at
		FROM counters
		WHERE user_id = $1
	`

	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&counter.UserID,
		&counter.Count,
		&counter.TodayCount,
		&counter.LastDate,
		&counter.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get counter: %w", err)
	}

	return counter, nil
}

// Upsert writes the counter row for a user, overwriting any previous
// value. The caller owns the optimistic in-memory state; this write
// is the authoritative copy other devices will eventually observe.
func (r *CounterRepository) Upsert(ctx context.Context, counter *models.Counter) error {
	query := `
		INSERT INTO counters (user_id, count, today_count, last_date, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			count = EXCLUDED.count,
			today_count = EXCLUDED.today_count,
			last_date = EXCLUDED.last_date,
			updated_at = EXCLUDED.updated_at
	`

	counter.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query,
		counter.UserID,
		counter.Count,
		counter.TodayCount,
		counter.LastDate,
		counter.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert counter: %w", err)
	}

	return nil
}
