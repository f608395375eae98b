package models

import (
	"time"

	"github.com/google/uuid"
)

// Counter is the lifetime tap counter for one user. Count only ever
// grows; TodayCount resets to zero the first time the counter is
// touched on a new calendar day (LastDate != today).
type Counter struct {
	UserID     uuid.UUID `json:"user_id"`
	Count      int64     `json:"count"`
	TodayCount int64     `json:"today_count"`
	LastDate   string    `json:"last_date"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// RollDay resets the daily tally when the counter was last touched on
// a different calendar day. Lifetime count is untouched.
func (c *Counter) RollDay(today string) {
	if c.LastDate != today {
		c.TodayCount = 0
		c.LastDate = today
	}
}
