package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mantralabs/japa-api/internal/models"
)

// StreakRepository handles streak record rows.
type StreakRepository struct {
	db *DB
}

// NewStreakRepository creates a new streak repository.
func NewStreakRepository(db *DB) *StreakRepository {
	return &StreakRepository{db: db}
}

// Get retrieves the streak record for a user. Missing rows mean the
// user has no history yet and are returned as (nil, nil).
func (r *StreakRepository) Get(ctx context.Context, userID uuid.UUID) (*models.StreakRecord, error) {
	rec := &models.StreakRecord{}
	var lastJap, lastShare sql.NullString

	query := `
		SELECT user_id, current_streak, longest_streak, last_jap_date, last_share_date, total_malas, updated_at
		FROM streaks
		WHERE user_id = $1
	`

	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&rec.UserID,
		&rec.CurrentStreak,
		&rec.LongestStreak,
		&lastJap,
		&lastShare,
		&rec.TotalMalas,
		&rec.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get streak: %w", err)
	}

	if lastJap.Valid {
		rec.LastJapDate = lastJap.String
	}
	if lastShare.Valid {
		rec.LastShareDate = lastShare.String
	}

	return rec, nil
}

// Upsert writes the streak record for a user, overwriting any
// previous value. Records are never deleted.
func (r *StreakRepository) Upsert(ctx context.Context, rec *models.StreakRecord) error {
	query := `
		INSERT INTO streaks (user_id, current_streak, longest_streak, last_jap_date, last_share_date, total_malas, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE SET
			current_streak = EXCLUDED.current_streak,
			longest_streak = EXCLUDED.longest_streak,
			last_jap_date = EXCLUDED.last_jap_date,
			last_share_date = EXCLUDED.last_share_date,
			total_malas = EXCLUDED.total_malas,
			updated_at = EXCLUDED.updated_at
	`

	var lastJap, lastShare sql.NullString
	if rec.LastJapDate != "" {
		lastJap = sql.NullString{String: rec.LastJapDate, Valid: true}
	}
	if rec.LastShareDate != "" {
		lastShare = sql.NullString{String: rec.LastShareDate, Valid: true}
	}

	rec.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query,
		rec.UserID,
		rec.CurrentStreak,
		rec.LongestStreak,
		lastJap,
		lastShare,
		rec.TotalMalas,
		rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert streak: %w", err)
	}

	return nil
}
