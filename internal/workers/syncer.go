package workers

import (
	"context"
	"errors"
	"fmt"

	"github.com/mantralabs/japa-api/internal/cache"
	"github.com/mantralabs/japa-api/internal/dates"
	"github.com/mantralabs/japa-api/internal/models"
	"github.com/mantralabs/japa-api/internal/queue"
	"go.uber.org/zap"
)

// errBadPayload marks events that can never be applied; they go to
// the DLQ instead of being requeued forever.
var errBadPayload = errors.New("bad change payload")

// CacheSyncer consumes row change notifications and folds them into
// the Redis cache, so devices reading through the cache converge on
// the authoritative rows. Merge rule is last write observed wins; a
// counter echo that would move the lifetime count backward is stale
// and dropped.
type CacheSyncer struct {
	bus    queue.Bus
	cache  cache.Store
	logger *zap.Logger
}

// NewCacheSyncer creates a cache syncer.
func NewCacheSyncer(bus queue.Bus, cacheStore cache.Store, logger *zap.Logger) *CacheSyncer {
	return &CacheSyncer{
		bus:    bus,
		cache:  cacheStore,
		logger: logger,
	}
}

// Run consumes change events until the context is cancelled.
func (s *CacheSyncer) Run(ctx context.Context, prefetch int) error {
	msgs, errs, err := s.bus.Consume(ctx, prefetch)
	if err != nil {
		return fmt.Errorf("failed to start consuming changes: %w", err)
	}

	s.logger.Info("cache_syncer_started", zap.Int("prefetch", prefetch))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("cache_syncer_stopping")
			return ctx.Err()
		case err, ok := <-errs:
			if !ok {
				return nil
			}
			s.logger.Error("change_consumer_error", zap.Error(err))
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			s.handle(ctx, msg)
		}
	}
}

// handle applies one change event and acknowledges it. Transient
// cache failures requeue the message; undecodable payloads dead-letter.
func (s *CacheSyncer) handle(ctx context.Context, msg *queue.Message) {
	change := msg.Change
	var err error

	switch change.Table {
	case queue.TableCounters:
		err = s.applyCounter(ctx, change)
	case queue.TableStreaks:
		err = s.applyStreak(ctx, change)
	case queue.TableDailyProgress:
		err = s.applyDailyProgress(ctx, change)
	default:
		s.logger.Warn("unknown_change_table", zap.String("table", string(change.Table)))
		if nackErr := msg.Nack(false); nackErr != nil {
			s.logger.Warn("nack_failed", zap.Error(nackErr))
		}
		return
	}

	if err != nil {
		s.logger.Warn("change_apply_failed",
			zap.String("table", string(change.Table)),
			zap.String("user_id", change.UserID.String()),
			zap.Error(err),
		)
		// Requeue transient failures; dead-letter hopeless payloads.
		if nackErr := msg.Nack(!errors.Is(err, errBadPayload)); nackErr != nil {
			s.logger.Warn("nack_failed", zap.Error(nackErr))
		}
		return
	}

	if ackErr := msg.Ack(); ackErr != nil {
		s.logger.Warn("ack_failed", zap.Error(ackErr))
	}
}

// applyCounter folds a counter change into the cache unless it is a
// stale echo: the cached lifetime count never decreases.
func (s *CacheSyncer) applyCounter(ctx context.Context, change *queue.RowChange) error {
	var incoming models.Counter
	if err := change.DecodeRow(&incoming); err != nil {
		return fmt.Errorf("%w: decode counter row: %v", errBadPayload, err)
	}

	key := cache.CounterKey(change.UserID)
	var cached models.Counter
	found, err := s.cache.GetJSON(ctx, key, &cached)
	if err != nil {
		return err
	}
	if found && incoming.Count < cached.Count {
		s.logger.Debug("stale_counter_echo_dropped",
			zap.String("user_id", change.UserID.String()),
			zap.Int64("incoming", incoming.Count),
			zap.Int64("cached", cached.Count),
		)
		return nil
	}
	return s.cache.SetJSON(ctx, key, incoming)
}

// applyStreak folds a streak change into the cache, dropping echoes
// older than the cached record.
func (s *CacheSyncer) applyStreak(ctx context.Context, change *queue.RowChange) error {
	var incoming models.StreakRecord
	if err := change.DecodeRow(&incoming); err != nil {
		return fmt.Errorf("%w: decode streak row: %v", errBadPayload, err)
	}

	key := cache.StreakKey(change.UserID)
	var cached models.StreakRecord
	found, err := s.cache.GetJSON(ctx, key, &cached)
	if err != nil {
		return err
	}
	if found && incoming.UpdatedAt.Before(cached.UpdatedAt) {
		return nil
	}
	return s.cache.SetJSON(ctx, key, incoming)
}

// applyDailyProgress folds one day into the cached month log.
func (s *CacheSyncer) applyDailyProgress(ctx context.Context, change *queue.RowChange) error {
	var incoming models.DailyProgressEntry
	if err := change.DecodeRow(&incoming); err != nil {
		return fmt.Errorf("%w: decode daily progress row: %v", errBadPayload, err)
	}

	day, err := dates.Parse(incoming.Date)
	if err != nil {
		return fmt.Errorf("%w: daily progress date: %v", errBadPayload, err)
	}

	key := cache.MonthLogKey(change.UserID, day.Year(), day.Month())
	log := models.MonthLog{}
	if _, err := s.cache.GetJSON(ctx, key, &log); err != nil {
		return err
	}
	jap := incoming.JapCount
	log[incoming.Date] = models.LocalDayEntry{
		JapCount:       &jap,
		MalasCompleted: incoming.MalasCompleted,
	}
	return s.cache.SetJSON(ctx, key, log)
}
