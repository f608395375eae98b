package models

import (
	"time"

	"github.com/google/uuid"
)

// StreakRecord tracks consecutive days of devotional activity for one
// user. Two signals qualify a day: counting japs, or sharing content.
// Invariant: LongestStreak >= CurrentStreak at all times. Records are
// never deleted; a missed day only resets CurrentStreak to zero.
type StreakRecord struct {
	UserID        uuid.UUID `json:"user_id"`
	CurrentStreak int64     `json:"current_streak"`
	LongestStreak int64     `json:"longest_streak"`
	LastJapDate   string    `json:"last_jap_date,omitempty"`
	LastShareDate string    `json:"last_share_date,omitempty"`
	TotalMalas    int64     `json:"total_malas"`
	UpdatedAt     time.Time `json:"updated_at"`
}
