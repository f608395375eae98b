package ads

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mantralabs/japa-api/internal/cache"
	"github.com/mantralabs/japa-api/internal/models"
	"go.uber.org/zap"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time         { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type memStore struct {
	data map[string][]byte
	fail bool
}

func newMemStore() *memStore { return &memStore{data: make(map[string][]byte)} }

func (m *memStore) GetJSON(ctx context.Context, key string, v any) (bool, error) {
	if m.fail {
		return false, fmt.Errorf("store unavailable")
	}
	raw, ok := m.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, v)
}

func (m *memStore) SetJSON(ctx context.Context, key string, v any) error {
	if m.fail {
		return fmt.Errorf("store unavailable")
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.data[key] = raw
	return nil
}

func (m *memStore) Delete(ctx context.Context, key string) error {
	delete(m.data, key)
	return nil
}

type mockProvider struct {
	interstitialShown bool
	interstitialErr   error
	failOnce          bool
	rewardedCompleted bool
	rewardedErr       error

	interstitialCalls int
	rewardedCalls     int
}

func (p *mockProvider) ShowInterstitial(ctx context.Context, placementID string) (bool, error) {
	p.interstitialCalls++
	if p.failOnce && p.interstitialCalls == 1 {
		return false, fmt.Errorf("sdk timeout")
	}
	return p.interstitialShown, p.interstitialErr
}

func (p *mockProvider) ShowRewarded(ctx context.Context, placementID string) (bool, error) {
	p.rewardedCalls++
	return p.rewardedCompleted, p.rewardedErr
}

func testPolicy() Policy {
	return Policy{
		MaxPerDay:          3,
		Cooldown:           3 * time.Minute,
		TimerGap:           5 * time.Minute,
		SessionCaps:        map[Origin]int64{OriginCounterMilestone: 10, OriginTimerSessionEnd: 10, OriginContentExit: 2, OriginStatsScreen: 1},
		RewardedGap:        time.Minute,
		RewardedSessionCap: 2,
	}
}

func newTestController(store cache.Store, clock Clock, provider Provider) *Controller {
	c := NewController(store, testPolicy(), clock, provider, zap.NewNop())
	c.sleep = func(time.Duration) {}
	return c
}

func TestCanShow_DailyCap(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)}
	ctrl := newTestController(newMemStore(), clock, nil)
	userID := uuid.New()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if !ctrl.CanShow(ctx, userID, OriginCounterMilestone) {
			t.Fatalf("show %d: expected permit", i)
		}
		ctrl.RecordShown(ctx, userID, OriginCounterMilestone, "p1")
		clock.Advance(10 * time.Minute) // clear the cooldown between shows
	}

	for _, origin := range []Origin{OriginCounterMilestone, OriginTimerSessionEnd, OriginContentExit, OriginStatsScreen} {
		if ctrl.CanShow(ctx, userID, origin) {
			t.Errorf("origin %s permitted past the daily cap", origin)
		}
	}

	// Next calendar day: the cap resets.
	clock.Advance(24 * time.Hour)
	if !ctrl.CanShow(ctx, userID, OriginCounterMilestone) {
		t.Error("expected permit after day rollover")
	}
}

func TestCanShow_Cooldown(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)}
	ctrl := newTestController(newMemStore(), clock, nil)
	userID := uuid.New()
	ctx := context.Background()

	ctrl.RecordShown(ctx, userID, OriginStatsScreen, "p1")
	if ctrl.CanShow(ctx, userID, OriginCounterMilestone) {
		t.Error("permitted immediately after a show, inside the cooldown")
	}

	clock.Advance(3*time.Minute + time.Second)
	if !ctrl.CanShow(ctx, userID, OriginCounterMilestone) {
		t.Error("denied after the cooldown elapsed")
	}
}

func TestCanShow_PerOriginSessionCap(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)}
	store := newMemStore()
	ctrl := newTestController(store, clock, nil)
	userID := uuid.New()
	ctx := context.Background()

	// Stats screen cap is 1 in the test policy.
	ctrl.RecordShown(ctx, userID, OriginStatsScreen, "p1")
	clock.Advance(10 * time.Minute)
	if ctrl.CanShow(ctx, userID, OriginStatsScreen) {
		t.Error("stats origin permitted past its session cap")
	}
	if !ctrl.CanShow(ctx, userID, OriginContentExit) {
		t.Error("other origin should still be permitted")
	}

	// Session caps are process memory only: a fresh controller over the
	// same persisted blob starts the session counters at zero.
	restarted := newTestController(store, clock, nil)
	if !restarted.CanShow(ctx, userID, OriginStatsScreen) {
		t.Error("session cap survived a restart; it must not")
	}
}

func TestCanShow_TimerOriginExtraGap(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)}
	ctrl := newTestController(newMemStore(), clock, nil)
	userID := uuid.New()
	ctx := context.Background()

	ctrl.RecordShown(ctx, userID, OriginTimerSessionEnd, "p1")

	// Past the global cooldown (3m) but inside the timer gap (5m):
	// only the timer origin stays blocked.
	clock.Advance(4 * time.Minute)
	if ctrl.CanShow(ctx, userID, OriginTimerSessionEnd) {
		t.Error("timer origin permitted inside its extra gap")
	}
	if !ctrl.CanShow(ctx, userID, OriginContentExit) {
		t.Error("non-timer origin blocked by the timer gap")
	}

	clock.Advance(2 * time.Minute)
	if !ctrl.CanShow(ctx, userID, OriginTimerSessionEnd) {
		t.Error("timer origin denied after its gap elapsed")
	}
}

func TestCanShow_RapidCompletionSuppression(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)}
	ctrl := newTestController(newMemStore(), clock, nil)
	userID := uuid.New()
	ctx := context.Background()

	// A single completion does not suppress.
	ctrl.NoteMalaCompleted(userID)
	if !ctrl.CanShow(ctx, userID, OriginCounterMilestone) {
		t.Error("single completion should not suppress")
	}

	// A second completion 5s later: two within 10s, suppress.
	clock.Advance(5 * time.Second)
	ctrl.NoteMalaCompleted(userID)
	if ctrl.CanShow(ctx, userID, OriginCounterMilestone) {
		t.Error("rapid completions should suppress the milestone ad")
	}
	// Other origins are unaffected.
	if !ctrl.CanShow(ctx, userID, OriginContentExit) {
		t.Error("rapid completion suppressed a non-milestone origin")
	}

	// Once the window has drained, milestones are permitted again.
	clock.Advance(15 * time.Second)
	if !ctrl.CanShow(ctx, userID, OriginCounterMilestone) {
		t.Error("suppression should lift after the window passes")
	}
}

func TestCanShow_StoreFailureDenies(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)}
	store := newMemStore()
	store.fail = true
	ctrl := newTestController(store, clock, nil)

	if ctrl.CanShow(context.Background(), uuid.New(), OriginCounterMilestone) {
		t.Error("expected deny when the frequency blob cannot be loaded")
	}
}

func TestRecordShown_PersistsBlob(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)}
	store := newMemStore()
	ctrl := newTestController(store, clock, nil)
	userID := uuid.New()

	ctrl.RecordShown(context.Background(), userID, OriginCounterMilestone, "mala_complete")

	var state models.AdFrequencyState
	found, err := store.GetJSON(context.Background(), cache.AdFrequencyKey(userID), &state)
	if err != nil || !found {
		t.Fatalf("frequency blob not persisted: found=%v err=%v", found, err)
	}
	if state.InterstitialShownToday != 1 {
		t.Errorf("InterstitialShownToday = %d, want 1", state.InterstitialShownToday)
	}
	if state.LastDate != "2025-03-15" {
		t.Errorf("LastDate = %s, want 2025-03-15", state.LastDate)
	}
	if state.LastInterstitialAt != clock.now.UnixMilli() {
		t.Errorf("LastInterstitialAt = %d, want %d", state.LastInterstitialAt, clock.now.UnixMilli())
	}
	if state.PlacementHistory["mala_complete"] != clock.now.UnixMilli() {
		t.Errorf("placement history not stamped: %+v", state.PlacementHistory)
	}
}

func TestRewardedGate(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)}
	ctrl := newTestController(newMemStore(), clock, nil)
	userID := uuid.New()

	if !ctrl.CanShowRewarded(userID) {
		t.Fatal("fresh session should permit a rewarded ad")
	}
	ctrl.RecordRewarded(userID)

	// Inside the minimum gap.
	if ctrl.CanShowRewarded(userID) {
		t.Error("permitted inside the rewarded gap")
	}
	clock.Advance(61 * time.Second)
	if !ctrl.CanShowRewarded(userID) {
		t.Error("denied after the rewarded gap elapsed")
	}

	// Session-total cap is 2.
	ctrl.RecordRewarded(userID)
	clock.Advance(10 * time.Minute)
	if ctrl.CanShowRewarded(userID) {
		t.Error("permitted past the rewarded session cap")
	}
}

func TestShowInterstitial_SDKFailureRetriesOnce(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)}
	provider := &mockProvider{interstitialShown: true, failOnce: true}
	ctrl := newTestController(newMemStore(), clock, provider)
	userID := uuid.New()

	shown := ctrl.ShowInterstitial(context.Background(), userID, OriginContentExit, "exit")
	if !shown {
		t.Error("expected the retry to succeed and report shown")
	}
	if provider.interstitialCalls != 2 {
		t.Errorf("SDK called %d times, want 2 (one retry)", provider.interstitialCalls)
	}
}

func TestShowInterstitial_SDKFailureSwallowed(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)}
	provider := &mockProvider{interstitialErr: fmt.Errorf("sdk down")}
	store := newMemStore()
	ctrl := newTestController(store, clock, provider)
	userID := uuid.New()

	if ctrl.ShowInterstitial(context.Background(), userID, OriginContentExit, "exit") {
		t.Error("reported shown despite SDK failure")
	}
	if provider.interstitialCalls != 2 {
		t.Errorf("SDK called %d times, want 2 (initial + one retry, never more)", provider.interstitialCalls)
	}
	// Nothing was shown, so nothing may be recorded.
	var state models.AdFrequencyState
	found, _ := store.GetJSON(context.Background(), cache.AdFrequencyKey(userID), &state)
	if found && state.InterstitialShownToday != 0 {
		t.Errorf("recorded a show that never happened: %+v", state)
	}
}

func TestDayRollover_ResetsOnlyDailyCounter(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Date(2025, 3, 15, 23, 59, 0, 0, time.UTC)}
	store := newMemStore()
	ctrl := newTestController(store, clock, nil)
	userID := uuid.New()
	ctx := context.Background()

	ctrl.RecordShown(ctx, userID, OriginContentExit, "exit")
	shownAt := clock.now.UnixMilli()

	// Two minutes later it is a new day: daily counter resets but the
	// cooldown keeps running across midnight.
	clock.Advance(2 * time.Minute)
	if ctrl.CanShow(ctx, userID, OriginCounterMilestone) {
		t.Error("cooldown must apply across the day boundary")
	}

	clock.Advance(5 * time.Minute)
	if !ctrl.CanShow(ctx, userID, OriginCounterMilestone) {
		t.Error("expected permit on the new day after the cooldown")
	}

	ctrl.RecordShown(ctx, userID, OriginCounterMilestone, "mala")
	var state models.AdFrequencyState
	if _, err := store.GetJSON(ctx, cache.AdFrequencyKey(userID), &state); err != nil {
		t.Fatalf("read blob: %v", err)
	}
	if state.InterstitialShownToday != 1 {
		t.Errorf("InterstitialShownToday = %d, want 1 after rollover", state.InterstitialShownToday)
	}
	if state.LastDate != "2025-03-16" {
		t.Errorf("LastDate = %s, want 2025-03-16", state.LastDate)
	}
	if state.PlacementHistory["exit"] != shownAt {
		t.Error("placement history must survive the day rollover")
	}
}
