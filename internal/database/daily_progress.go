package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mantralabs/japa-api/internal/dates"
	"github.com/mantralabs/japa-api/internal/models"
)

// DailyProgressRepository handles the per-day progress log rows.
// One row exists per (user, date); upserts overwrite, never
// accumulate, so replaying a write is harmless.
type DailyProgressRepository struct {
	db *DB
}

// NewDailyProgressRepository creates a new daily progress repository.
func NewDailyProgressRepository(db *DB) *DailyProgressRepository {
	return &DailyProgressRepository{db: db}
}

// Upsert writes one day's entry for a user.
func (r *DailyProgressRepository) Upsert(ctx context.Context, entry *models.DailyProgressEntry) error {
	query := `
		INSERT INTO daily_progress (user_id, date, jap_count, malas_completed, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, date) DO UPDATE SET
			jap_count = EXCLUDED.jap_count,
			malas_completed = EXCLUDED.malas_completed,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		entry.UserID,
		entry.Date,
		entry.JapCount,
		entry.MalasCompleted,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert daily progress: %w", err)
	}

	return nil
}

// GetRange retrieves entries for a user between two calendar dates
// inclusive, ordered by date.
func (r *DailyProgressRepository) GetRange(ctx context.Context, userID uuid.UUID, startDate, endDate string) ([]*models.DailyProgressEntry, error) {
	query := `
		SELECT user_id, date, jap_count, malas_completed
		FROM daily_progress
		WHERE user_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily progress: %w", err)
	}
	defer rows.Close()

	var entries []*models.DailyProgressEntry
	for rows.Next() {
		entry := &models.DailyProgressEntry{}
		err := rows.Scan(
			&entry.UserID,
			&entry.Date,
			&entry.JapCount,
			&entry.MalasCompleted,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan daily progress entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily progress: %w", err)
	}

	return entries, nil
}

// GetMonth retrieves all entries for one calendar month.
func (r *DailyProgressRepository) GetMonth(ctx context.Context, userID uuid.UUID, year int, month time.Month) ([]*models.DailyProgressEntry, error) {
	first, last := dates.MonthBounds(year, month)
	return r.GetRange(ctx, userID, first, last)
}
