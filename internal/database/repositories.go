package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mantralabs/japa-api/internal/models"
)

// CounterRepositoryInterface defines the interface for counter repository operations
// This interface enables better testability by allowing mock implementations
type CounterRepositoryInterface interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.Counter, error)
	Upsert(ctx context.Context, counter *models.Counter) error
}

// StreakRepositoryInterface defines the interface for streak repository operations
type StreakRepositoryInterface interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.StreakRecord, error)
	Upsert(ctx context.Context, rec *models.StreakRecord) error
}

// DailyProgressRepositoryInterface defines the interface for daily progress repository operations
type DailyProgressRepositoryInterface interface {
	Upsert(ctx context.Context, entry *models.DailyProgressEntry) error
	GetRange(ctx context.Context, userID uuid.UUID, startDate, endDate string) ([]*models.DailyProgressEntry, error)
	GetMonth(ctx context.Context, userID uuid.UUID, year int, month time.Month) ([]*models.DailyProgressEntry, error)
}

// Ensure concrete types implement the interfaces
var (
	_ CounterRepositoryInterface       = (*CounterRepository)(nil)
	_ StreakRepositoryInterface        = (*StreakRepository)(nil)
	_ DailyProgressRepositoryInterface = (*DailyProgressRepository)(nil)
)
