package models

import (
	"github.com/google/uuid"
)

// DailyProgressEntry is one calendar day of activity for one user.
// At most one entry exists per (user, date); upserts overwrite rather
// than accumulate. Two physical copies may exist (remote row, local
// month cache) and are merged at read time by progresslog.
type DailyProgressEntry struct {
	UserID         uuid.UUID `json:"user_id"`
	Date           string    `json:"date"`
	JapCount       int64     `json:"jap_count"`
	MalasCompleted int64     `json:"malas_completed"`
}

// LocalDayEntry is the shape of one day inside the locally cached
// month log. JapCount is a pointer because older cache entries only
// recorded completed malas; a missing jap count must not clobber the
// remote value during merge.
type LocalDayEntry struct {
	JapCount       *int64 `json:"jap_count,omitempty"`
	MalasCompleted int64  `json:"malas_completed"`
}

// MonthLog is the locally cached progress log for one month, keyed by
// calendar date. Stored under the per-month cache key.
type MonthLog map[string]LocalDayEntry
