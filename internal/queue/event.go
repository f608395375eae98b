package queue

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Table identifies which logical table a change event belongs to.
type Table string

const (
	// TableCounters carries lifetime counter changes.
	TableCounters Table = "counters"
	// TableStreaks carries streak record changes.
	TableStreaks Table = "streaks"
	// TableDailyProgress carries per-day progress log changes.
	TableDailyProgress Table = "daily_progress"
)

// RowChange is one remote change notification: the new row for a
// user-scoped table, delivered to whoever subscribes. Consumers must
// treat events as possibly stale echoes of their own writes and apply
// last-write-wins by OccurredAt.
type RowChange struct {
	ID         uuid.UUID       `json:"id"`
	Table      Table           `json:"table"`
	UserID     uuid.UUID       `json:"user_id"`
	NewRow     json.RawMessage `json:"new_row"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// NewRowChange creates a change event for a row, marshaling it as the
// event payload.
func NewRowChange(table Table, userID uuid.UUID, row any) (*RowChange, error) {
	payload, err := json.Marshal(row)
	if err != nil {
		return nil, err
	}
	return &RowChange{
		ID:         uuid.New(),
		Table:      table,
		UserID:     userID,
		NewRow:     payload,
		OccurredAt: time.Now(),
	}, nil
}

// DecodeRow unmarshals the event payload into v.
func (c *RowChange) DecodeRow(v any) error {
	return json.Unmarshal(c.NewRow, v)
}
