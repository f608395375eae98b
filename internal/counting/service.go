package counting

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mantralabs/japa-api/internal/ads"
	"github.com/mantralabs/japa-api/internal/database"
	"github.com/mantralabs/japa-api/internal/dates"
	"github.com/mantralabs/japa-api/internal/models"
	"github.com/mantralabs/japa-api/internal/progress"
	"github.com/mantralabs/japa-api/internal/progresslog"
	"github.com/mantralabs/japa-api/internal/queue"
	"github.com/mantralabs/japa-api/internal/streak"
	"go.uber.org/zap"
)

// Clock abstracts time for tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }

// TapResult is the outcome of one tap. When the authoritative write
// failed, Reverted is true and Counter holds the last known-good
// snapshot rather than the attempted one, so callers can render the
// reverted state deterministically instead of unwinding exceptions.
type TapResult struct {
	Counter     models.Counter       `json:"counter"`
	Progress    progress.Progress    `json:"progress"`
	Milestone   progress.Milestone   `json:"milestone"`
	Streak      *models.StreakRecord `json:"streak,omitempty"`
	AdPermitted bool                 `json:"ad_permitted"`
	Reverted    bool                 `json:"reverted"`
	Reason      string               `json:"reason,omitempty"`
}

// ShareResult is the outcome of a share event.
type ShareResult struct {
	Streak models.StreakRecord `json:"streak"`
}

// Service orchestrates taps and shares: progress math, the optimistic
// counter update, streak recomputation, the daily progress upsert,
// change-event publishing, and the ad admission query. Counter state
// is cached in memory per user and applied optimistically before the
// remote write resolves.
type Service struct {
	counters database.CounterRepositoryInterface
	streaks  database.StreakRepositoryInterface
	log      *progresslog.Store
	events   queue.Publisher
	ads      *ads.Controller
	clock    Clock
	logger   *zap.Logger

	mu   sync.Mutex
	live map[uuid.UUID]models.Counter
}

// NewService creates a counting service. events and adController may
// be nil; publishing and ad decisions are then skipped.
func NewService(
	counters database.CounterRepositoryInterface,
	streaks database.StreakRepositoryInterface,
	log *progresslog.Store,
	events queue.Publisher,
	adController *ads.Controller,
	clock Clock,
	logger *zap.Logger,
) *Service {
	if clock == nil {
		clock = SystemClock()
	}
	return &Service{
		counters: counters,
		streaks:  streaks,
		log:      log,
		events:   events,
		ads:      adController,
		clock:    clock,
		logger:   logger,
		live:     make(map[uuid.UUID]models.Counter),
	}
}

var _ progresslog.LiveCounter = (*Service)(nil)

// SetProgressLog wires the daily progress store after construction.
// The store needs the service as its live counter, so the two are
// linked in two steps.
func (s *Service) SetProgressLog(log *progresslog.Store) {
	s.log = log
}

// LiveToday reports the in-memory jap count for today, feeding the
// calendar's today override.
func (s *Service) LiveToday(ctx context.Context, userID uuid.UUID) (int64, string, bool) {
	s.mu.Lock()
	counter, ok := s.live[userID]
	s.mu.Unlock()
	if !ok {
		loaded, err := s.counters.Get(ctx, userID)
		if err != nil || loaded == nil {
			return 0, "", false
		}
		counter = *loaded
		s.mu.Lock()
		s.live[userID] = counter
		s.mu.Unlock()
	}
	today := dates.Format(s.clock.Now())
	if counter.LastDate != today {
		return 0, today, true
	}
	return counter.TodayCount, today, true
}

// Counter returns the current counter snapshot for a user, loading it
// from the repository on first touch. A new user gets a zero counter.
func (s *Service) Counter(ctx context.Context, userID uuid.UUID) (models.Counter, error) {
	s.mu.Lock()
	counter, ok := s.live[userID]
	s.mu.Unlock()
	if ok {
		return counter, nil
	}

	loaded, err := s.counters.Get(ctx, userID)
	if err != nil {
		return models.Counter{}, err
	}
	if loaded == nil {
		return models.Counter{UserID: userID}, nil
	}

	s.mu.Lock()
	s.live[userID] = *loaded
	s.mu.Unlock()
	return *loaded, nil
}

// ApplyRemote folds a remote counter notification into the live
// snapshot. Last write observed wins, with the local optimistic write
// always considered more recent than a remote echo of a stale value:
// the lifetime count never moves backward.
func (s *Service) ApplyRemote(userID uuid.UUID, remote models.Counter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.live[userID]
	if ok && remote.Count < current.Count {
		return
	}
	s.live[userID] = remote
}

// Tap processes one tap. The in-memory counter is updated before the
// remote upsert; if that write fails the snapshot is reverted and the
// result carries the previous state with Reverted set. Streak and
// daily-progress updates on a completed mala are deliberately not
// atomic with the counter write: milestones are recomputed from
// count mod 108 on every read, so a crash between the steps heals on
// the next event.
func (s *Service) Tap(ctx context.Context, userID uuid.UUID) (TapResult, error) {
	now := s.clock.Now()
	today := dates.Format(now)

	prev, err := s.Counter(ctx, userID)
	if err != nil {
		// Nothing was applied, so there is nothing to revert.
		return TapResult{Reason: "counter unavailable"}, err
	}

	next := prev
	next.UserID = userID
	next.RollDay(today)
	next.Count++
	next.TodayCount++

	prog := progress.Calculate(next.Count, progress.DefaultGoal)
	milestone := progress.Classify(next.Count)

	// Optimistic: the snapshot moves first, the write follows.
	s.mu.Lock()
	s.live[userID] = next
	s.mu.Unlock()

	if err := s.counters.Upsert(ctx, &next); err != nil {
		s.mu.Lock()
		s.live[userID] = prev
		s.mu.Unlock()
		s.logger.Warn("counter_upsert_failed_reverting",
			zap.String("user_id", userID.String()),
			zap.Int64("attempted_count", next.Count),
			zap.Error(err),
		)
		return TapResult{
			Counter:  prev,
			Progress: progress.Calculate(prev.Count, progress.DefaultGoal),
			Reverted: true,
			Reason:   "counter write failed",
		}, err
	}

	s.publish(ctx, queue.TableCounters, userID, next)

	result := TapResult{
		Counter:   next,
		Progress:  prog,
		Milestone: milestone,
	}

	if milestone == progress.MilestoneComplete {
		s.onMalaCompleted(ctx, userID, &next, now, &result)
	}

	return result, nil
}

// onMalaCompleted recomputes the streak, upserts today's progress
// entry and asks the admission controller about a milestone ad.
// Failures here are logged and tolerated; the counter write already
// succeeded and the next event recomputes everything from it.
func (s *Service) onMalaCompleted(ctx context.Context, userID uuid.UUID, counter *models.Counter, now time.Time, result *TapResult) {
	rec, err := s.updateStreak(ctx, userID, counter.TodayCount, false, now)
	if err != nil {
		s.logger.Warn("streak_update_failed",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
	} else {
		result.Streak = rec
	}

	if s.log != nil {
		entry := &models.DailyProgressEntry{
			UserID:         userID,
			Date:           counter.LastDate,
			JapCount:       counter.TodayCount,
			MalasCompleted: counter.TodayCount / progress.DefaultGoal,
		}
		if err := s.log.Upsert(ctx, entry); err != nil {
			s.logger.Warn("daily_progress_upsert_failed",
				zap.String("user_id", userID.String()),
				zap.Error(err),
			)
		} else {
			s.publish(ctx, queue.TableDailyProgress, userID, entry)
		}
	}

	if s.ads != nil {
		s.ads.NoteMalaCompleted(userID)
		result.AdPermitted = s.ads.CanShow(ctx, userID, ads.OriginCounterMilestone)
	}
}

// Share processes a content share, the second activity signal that
// can extend a streak.
func (s *Service) Share(ctx context.Context, userID uuid.UUID) (ShareResult, error) {
	now := s.clock.Now()

	japToday, _, _ := s.LiveToday(ctx, userID)
	rec, err := s.updateStreak(ctx, userID, japToday, true, now)
	if err != nil {
		return ShareResult{}, err
	}
	return ShareResult{Streak: *rec}, nil
}

// Streak returns the persisted streak record, zero-valued for new users.
func (s *Service) Streak(ctx context.Context, userID uuid.UUID) (models.StreakRecord, error) {
	rec, err := s.streaks.Get(ctx, userID)
	if err != nil {
		return models.StreakRecord{}, err
	}
	if rec == nil {
		return models.StreakRecord{UserID: userID}, nil
	}
	return *rec, nil
}

// updateStreak runs the streak engine against the stored record and
// persists the result. TotalMalas is accumulated from the lifetime
// counter rounds rather than the engine's per-call report, which only
// covers today.
func (s *Service) updateStreak(ctx context.Context, userID uuid.UUID, japToday int64, shared bool, now time.Time) (*models.StreakRecord, error) {
	stored, err := s.streaks.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	rec := models.StreakRecord{UserID: userID}
	if stored != nil {
		rec = *stored
	}

	res := streak.Calculate(rec, japToday, shared, now)
	next := res.Record
	next.UserID = userID

	counter, err := s.Counter(ctx, userID)
	if err == nil {
		if rounds := progress.Calculate(counter.Count, progress.DefaultGoal).Rounds; rounds > next.TotalMalas {
			next.TotalMalas = rounds
		}
	}

	if err := s.streaks.Upsert(ctx, &next); err != nil {
		return nil, err
	}
	s.publish(ctx, queue.TableStreaks, userID, next)

	if res.Lapsed {
		s.logger.Info("streak_lapsed",
			zap.String("user_id", userID.String()),
			zap.Int64("new_streak", next.CurrentStreak),
		)
	}

	return &next, nil
}

// publish emits a change event, best effort. The authoritative row is
// already written; a lost notification only delays cache freshness.
func (s *Service) publish(ctx context.Context, table queue.Table, userID uuid.UUID, row any) {
	if s.events == nil {
		return
	}
	change, err := queue.NewRowChange(table, userID, row)
	if err != nil {
		s.logger.Warn("row_change_marshal_failed",
			zap.String("table", string(table)),
			zap.Error(err),
		)
		return
	}
	if err := s.events.Publish(ctx, change); err != nil {
		s.logger.Warn("row_change_publish_failed",
			zap.String("table", string(table)),
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
	}
}
