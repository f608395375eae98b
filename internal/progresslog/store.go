package progresslog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mantralabs/japa-api/internal/cache"
	"github.com/mantralabs/japa-api/internal/dates"
	"github.com/mantralabs/japa-api/internal/database"
	"github.com/mantralabs/japa-api/internal/models"
	"github.com/mantralabs/japa-api/internal/progress"
	"go.uber.org/zap"
)

// LiveCounter exposes the in-memory counter for "today". The merged
// calendar always prefers this over anything persisted, so the cell
// for today can never lag behind the taps the user just made.
type LiveCounter interface {
	LiveToday(ctx context.Context, userID uuid.UUID) (japCount int64, date string, ok bool)
}

// Clock abstracts time for tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }

// Store reconciles the remote per-day progress log with the local
// month cache into a single merged view, and writes updates to both.
// Remote is authoritative for past months; the local cache wins for
// the current month because it reflects taps not yet synced.
type Store struct {
	remote database.DailyProgressRepositoryInterface
	local  cache.Store
	live   LiveCounter
	clock  Clock
	logger *zap.Logger
}

// New creates a progress log store. live may be nil when no live
// counter exists (the worker process); the today override is then
// skipped.
func New(remote database.DailyProgressRepositoryInterface, local cache.Store, live LiveCounter, clock Clock, logger *zap.Logger) *Store {
	if clock == nil {
		clock = SystemClock()
	}
	return &Store{
		remote: remote,
		local:  local,
		live:   live,
		clock:  clock,
		logger: logger,
	}
}

// Upsert writes one day's entry to the remote log and folds it into
// the local month cache. Idempotent: repeated upserts for the same
// date overwrite, they never accumulate. The remote write failing is
// the caller's error; the local cache failing only degrades freshness
// and is logged.
func (s *Store) Upsert(ctx context.Context, entry *models.DailyProgressEntry) error {
	if err := s.remote.Upsert(ctx, entry); err != nil {
		return err
	}

	day, err := dates.Parse(entry.Date)
	if err != nil {
		// Should not happen for validated input; remote accepted it, so
		// just skip the cache fold.
		s.logger.Warn("daily_progress_date_unparseable",
			zap.String("date", entry.Date),
			zap.Error(err),
		)
		return nil
	}

	key := cache.MonthLogKey(entry.UserID, day.Year(), day.Month())
	log := models.MonthLog{}
	if _, err := s.local.GetJSON(ctx, key, &log); err != nil {
		s.logger.Warn("month_log_cache_read_failed",
			zap.String("key", key),
			zap.Error(err),
		)
		log = models.MonthLog{}
	}
	jap := entry.JapCount
	log[entry.Date] = models.LocalDayEntry{
		JapCount:       &jap,
		MalasCompleted: entry.MalasCompleted,
	}
	if err := s.local.SetJSON(ctx, key, log); err != nil {
		s.logger.Warn("month_log_cache_write_failed",
			zap.String("key", key),
			zap.Error(err),
		)
	}
	return nil
}

// GetRange returns remote entries only, ordered by date.
func (s *Store) GetRange(ctx context.Context, userID uuid.UUID, startDate, endDate string) ([]*models.DailyProgressEntry, error) {
	return s.remote.GetRange(ctx, userID, startDate, endDate)
}

// GetMergedMonth is the calendar-facing read path. Merge order:
//
//  1. remote entries for the month;
//  2. local cache entries overlay them (malas always, japs when the
//     local value is present), or synthesize days remote never saw;
//  3. for the current month, today's cell is overridden by the live
//     in-memory counter regardless of what either store reported.
//
// Degradation: remote fetch failure falls back to local-only; if the
// local read also fails the result is empty, never an error. The
// calendar renders zero data rather than breaking.
func (s *Store) GetMergedMonth(ctx context.Context, userID uuid.UUID, year int, month time.Month) map[string]models.DailyProgressEntry {
	merged := make(map[string]models.DailyProgressEntry)

	remoteEntries, remoteErr := s.remote.GetMonth(ctx, userID, year, month)
	if remoteErr != nil {
		s.logger.Warn("remote_month_fetch_failed",
			zap.String("user_id", userID.String()),
			zap.Int("year", year),
			zap.Int("month", int(month)),
			zap.Error(remoteErr),
		)
		remoteEntries = nil
	}
	for _, e := range remoteEntries {
		merged[e.Date] = *e
	}

	// The local overlay wins only for the current month, where it holds
	// taps not yet synced. For past months the remote log is
	// authoritative and the cache is only a fallback when the remote
	// fetch failed; disagreement there is not an error.
	now := s.clock.Now()
	useLocal := dates.SameMonth(now, year, month) || remoteErr != nil
	localLog := models.MonthLog{}
	if useLocal {
		if _, err := s.local.GetJSON(ctx, cache.MonthLogKey(userID, year, month), &localLog); err != nil {
			s.logger.Warn("month_log_cache_read_failed",
				zap.String("user_id", userID.String()),
				zap.Error(err),
			)
			localLog = models.MonthLog{}
		}
	}
	for date, local := range localLog {
		if existing, ok := merged[date]; ok {
			existing.MalasCompleted = local.MalasCompleted
			if local.JapCount != nil {
				existing.JapCount = *local.JapCount
			}
			merged[date] = existing
			continue
		}
		entry := models.DailyProgressEntry{
			UserID:         userID,
			Date:           date,
			MalasCompleted: local.MalasCompleted,
		}
		if local.JapCount != nil {
			entry.JapCount = *local.JapCount
		}
		merged[date] = entry
	}

	s.overrideToday(ctx, userID, year, month, merged)

	return merged
}

// overrideToday replaces today's cell with the live counter when the
// requested month is the current one.
func (s *Store) overrideToday(ctx context.Context, userID uuid.UUID, year int, month time.Month, merged map[string]models.DailyProgressEntry) {
	if s.live == nil {
		return
	}
	now := s.clock.Now()
	if !dates.SameMonth(now, year, month) {
		return
	}
	japCount, date, ok := s.live.LiveToday(ctx, userID)
	if !ok || date != dates.Format(now) {
		return
	}
	merged[date] = models.DailyProgressEntry{
		UserID:         userID,
		Date:           date,
		JapCount:       japCount,
		MalasCompleted: japCount / progress.DefaultGoal,
	}
}

// MonthTotal sums completed malas over the merged month. Today's cell
// has already been replaced by the live value in the merge, which is
// exactly the "subtract the recorded value, re-add the live one"
// correction: the recorded value never enters the sum twice.
func (s *Store) MonthTotal(ctx context.Context, userID uuid.UUID, year int, month time.Month) int64 {
	var total int64
	for _, entry := range s.GetMergedMonth(ctx, userID, year, month) {
		total += entry.MalasCompleted
	}
	return total
}
