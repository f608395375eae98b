package ads

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mantralabs/japa-api/internal/cache"
	"github.com/mantralabs/japa-api/internal/dates"
	"github.com/mantralabs/japa-api/internal/models"
	"go.uber.org/zap"
)

// Suppression window for rapid mala completions: if more than one
// completion landed within this window, the milestone ad is skipped.
const (
	completionWindowSize = 3
	completionWindow     = 10 * time.Second
	sdkRetryDelay        = 2 * time.Second
)

// Clock abstracts time for tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }

// session holds the in-process, per-user counters that intentionally
// do not survive a restart: a "session" ends with the process.
type session struct {
	shownByOrigin  map[Origin]int64
	rewardedShown  int64
	lastTimerAdAt  time.Time
	lastRewardedAt time.Time
	completions    []time.Time // rolling window, newest last
}

// Controller decides whether interruption-style advertising may fire,
// combining a persisted daily cap and cooldown with in-process session
// caps. It is explicitly constructed with its storage collaborator;
// there is no package-level state.
type Controller struct {
	store    cache.Store
	policy   Policy
	clock    Clock
	provider Provider
	logger   *zap.Logger
	sleep    func(time.Duration)

	mu       sync.Mutex
	sessions map[uuid.UUID]*session
}

// NewController creates an admission controller. provider may be nil
// when the caller only needs admission decisions, not ad display.
func NewController(store cache.Store, policy Policy, clock Clock, provider Provider, logger *zap.Logger) *Controller {
	if clock == nil {
		clock = SystemClock()
	}
	if policy.SessionCaps == nil {
		policy.SessionCaps = DefaultSessionCaps()
	}
	return &Controller{
		store:    store,
		policy:   policy,
		clock:    clock,
		provider: provider,
		logger:   logger,
		sleep:    time.Sleep,
		sessions: make(map[uuid.UUID]*session),
	}
}

func (c *Controller) sessionFor(userID uuid.UUID) *session {
	s, ok := c.sessions[userID]
	if !ok {
		s = &session{shownByOrigin: make(map[Origin]int64)}
		c.sessions[userID] = s
	}
	return s
}

// loadState reads the persisted frequency blob. A missing blob is a
// fresh state; a read failure is reported so callers can deny (the
// worst failure outcome here is always "no ad shown").
func (c *Controller) loadState(ctx context.Context, userID uuid.UUID) (*models.AdFrequencyState, error) {
	state := &models.AdFrequencyState{}
	found, err := c.store.GetJSON(ctx, cache.AdFrequencyKey(userID), state)
	if err != nil {
		return nil, err
	}
	if !found {
		return &models.AdFrequencyState{}, nil
	}
	return state, nil
}

func (c *Controller) saveState(ctx context.Context, userID uuid.UUID, state *models.AdFrequencyState) {
	if err := c.store.SetJSON(ctx, cache.AdFrequencyKey(userID), state); err != nil {
		c.logger.Warn("ad_frequency_state_persist_failed",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
	}
}

// NoteMalaCompleted records a mala completion timestamp in the
// rolling window used for rapid-completion suppression.
func (c *Controller) NoteMalaCompleted(userID uuid.UUID) {
	now := c.clock.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.sessionFor(userID)
	s.completions = append(s.completions, now)
	if len(s.completions) > completionWindowSize {
		s.completions = s.completions[len(s.completions)-completionWindowSize:]
	}
}

// CanShow decides whether an interstitial triggered by origin may be
// shown now. The day-boundary check and the cap reads happen inside
// one synchronous call so a rollover can never race the decision.
// Every deny path is just "no ad"; errors are logged, never surfaced.
func (c *Controller) CanShow(ctx context.Context, userID uuid.UUID, origin Origin) bool {
	now := c.clock.Now()

	state, err := c.loadState(ctx, userID)
	if err != nil {
		c.logger.Warn("ad_frequency_state_load_failed",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		return false
	}
	state.RollDay(dates.Format(now))

	if state.InterstitialShownToday >= c.policy.MaxPerDay {
		return false
	}
	if state.LastInterstitialAt > 0 {
		last := time.UnixMilli(state.LastInterstitialAt)
		if now.Sub(last) < c.policy.Cooldown {
			return false
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.sessionFor(userID)

	if limit, ok := c.policy.SessionCaps[origin]; ok && s.shownByOrigin[origin] >= limit {
		return false
	}
	if origin == OriginTimerSessionEnd && !s.lastTimerAdAt.IsZero() && now.Sub(s.lastTimerAdAt) < c.policy.TimerGap {
		return false
	}
	if origin == OriginCounterMilestone && c.rapidCompletionLocked(s, now) {
		return false
	}

	return true
}

// rapidCompletionLocked reports whether more than one completion in
// the rolling window happened within the last 10 seconds. Counting
// quickly should not be punished with an interstitial per mala.
func (c *Controller) rapidCompletionLocked(s *session, now time.Time) bool {
	recent := 0
	for _, at := range s.completions {
		if now.Sub(at) <= completionWindow {
			recent++
		}
	}
	return recent > 1
}

// RecordShown registers that an interstitial was actually displayed:
// bumps the daily counter, stamps the cooldown and placement history,
// bumps the per-origin session counter, and persists the blob.
func (c *Controller) RecordShown(ctx context.Context, userID uuid.UUID, origin Origin, placementID string) {
	now := c.clock.Now()

	state, err := c.loadState(ctx, userID)
	if err != nil {
		c.logger.Warn("ad_frequency_state_load_failed",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		state = &models.AdFrequencyState{}
	}
	state.RollDay(dates.Format(now))
	state.InterstitialShownToday++
	state.LastInterstitialAt = now.UnixMilli()
	if placementID != "" {
		if state.PlacementHistory == nil {
			state.PlacementHistory = make(map[string]int64)
		}
		state.PlacementHistory[placementID] = now.UnixMilli()
	}
	c.saveState(ctx, userID, state)

	c.mu.Lock()
	s := c.sessionFor(userID)
	s.shownByOrigin[origin]++
	if origin == OriginTimerSessionEnd {
		s.lastTimerAdAt = now
	}
	c.mu.Unlock()

	c.logger.Info("interstitial_recorded",
		zap.String("user_id", userID.String()),
		zap.String("origin", string(origin)),
		zap.String("placement_id", placementID),
		zap.Int64("shown_today", state.InterstitialShownToday),
	)
}

// CanShowRewarded is the simpler gate for user-initiated rewarded
// ads: a minimum gap and a session-total cap, no daily cap and no
// per-origin distinction.
func (c *Controller) CanShowRewarded(userID uuid.UUID) bool {
	now := c.clock.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.sessionFor(userID)
	if s.rewardedShown >= c.policy.RewardedSessionCap {
		return false
	}
	if !s.lastRewardedAt.IsZero() && now.Sub(s.lastRewardedAt) < c.policy.RewardedGap {
		return false
	}
	return true
}

// RecordRewarded registers a displayed rewarded ad.
func (c *Controller) RecordRewarded(userID uuid.UUID) {
	now := c.clock.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.sessionFor(userID)
	s.rewardedShown++
	s.lastRewardedAt = now
}

// ShowInterstitial runs the full admission-then-display path: if the
// gates pass, the SDK is asked to show; SDK failure gets at most one
// delayed retry and is otherwise swallowed. Returns whether an ad was
// shown.
func (c *Controller) ShowInterstitial(ctx context.Context, userID uuid.UUID, origin Origin, placementID string) bool {
	if c.provider == nil {
		return false
	}
	if !c.CanShow(ctx, userID, origin) {
		return false
	}

	shown, err := c.provider.ShowInterstitial(ctx, placementID)
	if err != nil {
		c.logger.Warn("ad_sdk_interstitial_failed",
			zap.String("placement_id", placementID),
			zap.Error(err),
		)
		c.sleep(sdkRetryDelay)
		shown, err = c.provider.ShowInterstitial(ctx, placementID)
		if err != nil {
			c.logger.Warn("ad_sdk_interstitial_retry_failed",
				zap.String("placement_id", placementID),
				zap.Error(err),
			)
			return false
		}
	}
	if shown {
		c.RecordShown(ctx, userID, origin, placementID)
	}
	return shown
}

// ShowRewarded runs the rewarded-ad path. Returns whether the user
// completed the ad.
func (c *Controller) ShowRewarded(ctx context.Context, userID uuid.UUID, placementID string) bool {
	if c.provider == nil {
		return false
	}
	if !c.CanShowRewarded(userID) {
		return false
	}

	completed, err := c.provider.ShowRewarded(ctx, placementID)
	if err != nil {
		c.logger.Warn("ad_sdk_rewarded_failed",
			zap.String("placement_id", placementID),
			zap.Error(err),
		)
		return false
	}
	c.RecordRewarded(userID)
	return completed
}
