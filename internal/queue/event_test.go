package queue

import (
	"testing"

	"github.com/google/uuid"
	"github.com/mantralabs/japa-api/internal/models"
)

func TestNewRowChange_RoundTrip(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	counter := models.Counter{
		UserID:     userID,
		Count:      324,
		TodayCount: 108,
		LastDate:   "2025-03-15",
	}

	change, err := NewRowChange(TableCounters, userID, counter)
	if err != nil {
		t.Fatalf("NewRowChange failed: %v", err)
	}
	if change.Table != TableCounters {
		t.Errorf("Table = %s, want %s", change.Table, TableCounters)
	}
	if change.UserID != userID {
		t.Errorf("UserID = %s, want %s", change.UserID, userID)
	}
	if change.ID == uuid.Nil {
		t.Error("event ID is nil")
	}
	if change.OccurredAt.IsZero() {
		t.Error("OccurredAt is zero")
	}

	var decoded models.Counter
	if err := change.DecodeRow(&decoded); err != nil {
		t.Fatalf("DecodeRow failed: %v", err)
	}
	if decoded.Count != counter.Count || decoded.TodayCount != counter.TodayCount || decoded.LastDate != counter.LastDate {
		t.Errorf("decoded row %+v does not match original %+v", decoded, counter)
	}
}

func TestNewRowChange_UnmarshalableRow(t *testing.T) {
	t.Parallel()

	_, err := NewRowChange(TableStreaks, uuid.New(), func() {})
	if err == nil {
		t.Fatal("expected error for unmarshalable row, got nil")
	}
}
