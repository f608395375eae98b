package progresslog

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mantralabs/japa-api/internal/cache"
	"github.com/mantralabs/japa-api/internal/models"
	"go.uber.org/zap"
)

var testNow = time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

// mockRemote implements database.DailyProgressRepositoryInterface
// over an in-memory map, with switchable failure.
type mockRemote struct {
	entries map[string]*models.DailyProgressEntry // date -> entry
	fail    bool

	upsertCalls int
}

func newMockRemote() *mockRemote {
	return &mockRemote{entries: make(map[string]*models.DailyProgressEntry)}
}

func (m *mockRemote) Upsert(ctx context.Context, entry *models.DailyProgressEntry) error {
	m.upsertCalls++
	if m.fail {
		return fmt.Errorf("remote unavailable")
	}
	cp := *entry
	m.entries[entry.Date] = &cp
	return nil
}

func (m *mockRemote) GetRange(ctx context.Context, userID uuid.UUID, startDate, endDate string) ([]*models.DailyProgressEntry, error) {
	if m.fail {
		return nil, fmt.Errorf("remote unavailable")
	}
	var out []*models.DailyProgressEntry
	for date, e := range m.entries {
		if date >= startDate && date <= endDate {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockRemote) GetMonth(ctx context.Context, userID uuid.UUID, year int, month time.Month) ([]*models.DailyProgressEntry, error) {
	prefix := fmt.Sprintf("%04d-%02d", year, int(month))
	return m.GetRange(ctx, userID, prefix+"-01", prefix+"-31")
}

// mockCache implements cache.Store over an in-memory map.
type mockCache struct {
	data map[string][]byte
	fail bool
}

func newMockCache() *mockCache {
	return &mockCache{data: make(map[string][]byte)}
}

func (m *mockCache) GetJSON(ctx context.Context, key string, v any) (bool, error) {
	if m.fail {
		return false, fmt.Errorf("cache unavailable")
	}
	raw, ok := m.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, v)
}

func (m *mockCache) SetJSON(ctx context.Context, key string, v any) error {
	if m.fail {
		return fmt.Errorf("cache unavailable")
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.data[key] = raw
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	delete(m.data, key)
	return nil
}

// mockLive is a fixed live counter.
type mockLive struct {
	japCount int64
	date     string
	ok       bool
}

func (m *mockLive) LiveToday(ctx context.Context, userID uuid.UUID) (int64, string, bool) {
	return m.japCount, m.date, m.ok
}

func int64Ptr(v int64) *int64 { return &v }

func newTestStore(remote *mockRemote, local *mockCache, live LiveCounter) *Store {
	return New(remote, local, live, &fakeClock{now: testNow}, zap.NewNop())
}

func TestGetMergedMonth_LocalOverlaysRemoteForCurrentMonth(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	remote := newMockRemote()
	remote.entries["2025-03-10"] = &models.DailyProgressEntry{UserID: userID, Date: "2025-03-10", JapCount: 108, MalasCompleted: 1}
	remote.entries["2025-03-12"] = &models.DailyProgressEntry{UserID: userID, Date: "2025-03-12", JapCount: 216, MalasCompleted: 2}

	local := newMockCache()
	monthLog := models.MonthLog{
		// Local has newer taps for the 12th, and a day remote never saw.
		"2025-03-12": {JapCount: int64Ptr(324), MalasCompleted: 3},
		"2025-03-13": {MalasCompleted: 1},
	}
	if err := local.SetJSON(context.Background(), cache.MonthLogKey(userID, 2025, time.March), monthLog); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	store := newTestStore(remote, local, &mockLive{ok: false})
	merged := store.GetMergedMonth(context.Background(), userID, 2025, time.March)

	if got := merged["2025-03-10"]; got.JapCount != 108 || got.MalasCompleted != 1 {
		t.Errorf("untouched remote day changed: %+v", got)
	}
	if got := merged["2025-03-12"]; got.JapCount != 324 || got.MalasCompleted != 3 {
		t.Errorf("local overlay not applied: %+v", got)
	}
	if got := merged["2025-03-13"]; got.JapCount != 0 || got.MalasCompleted != 1 {
		t.Errorf("local-only day not synthesized: %+v", got)
	}
}

func TestGetMergedMonth_LocalJapCountAbsentKeepsRemote(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	remote := newMockRemote()
	remote.entries["2025-03-12"] = &models.DailyProgressEntry{UserID: userID, Date: "2025-03-12", JapCount: 216, MalasCompleted: 2}

	local := newMockCache()
	monthLog := models.MonthLog{
		// Older cache format: malas only, no jap count.
		"2025-03-12": {MalasCompleted: 3},
	}
	if err := local.SetJSON(context.Background(), cache.MonthLogKey(userID, 2025, time.March), monthLog); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	store := newTestStore(remote, local, &mockLive{ok: false})
	merged := store.GetMergedMonth(context.Background(), userID, 2025, time.March)

	got := merged["2025-03-12"]
	if got.MalasCompleted != 3 {
		t.Errorf("MalasCompleted = %d, want local 3", got.MalasCompleted)
	}
	if got.JapCount != 216 {
		t.Errorf("JapCount = %d, want remote 216 (local had none)", got.JapCount)
	}
}

func TestGetMergedMonth_RemoteWinsForPastMonth(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	remote := newMockRemote()
	remote.entries["2025-02-10"] = &models.DailyProgressEntry{UserID: userID, Date: "2025-02-10", JapCount: 108, MalasCompleted: 1}

	local := newMockCache()
	monthLog := models.MonthLog{
		"2025-02-10": {JapCount: int64Ptr(999), MalasCompleted: 9},
	}
	if err := local.SetJSON(context.Background(), cache.MonthLogKey(userID, 2025, time.February), monthLog); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	store := newTestStore(remote, local, &mockLive{ok: false})
	merged := store.GetMergedMonth(context.Background(), userID, 2025, time.February)

	got := merged["2025-02-10"]
	if got.JapCount != 108 || got.MalasCompleted != 1 {
		t.Errorf("remote should win for past months, got %+v", got)
	}
}

func TestGetMergedMonth_TodayOverriddenByLiveCounter(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	remote := newMockRemote()
	// Both stores carry a stale value for today.
	remote.entries["2025-03-15"] = &models.DailyProgressEntry{UserID: userID, Date: "2025-03-15", JapCount: 50, MalasCompleted: 0}
	local := newMockCache()
	monthLog := models.MonthLog{"2025-03-15": {JapCount: int64Ptr(100), MalasCompleted: 0}}
	if err := local.SetJSON(context.Background(), cache.MonthLogKey(userID, 2025, time.March), monthLog); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	live := &mockLive{japCount: 250, date: "2025-03-15", ok: true}
	store := newTestStore(remote, local, live)
	merged := store.GetMergedMonth(context.Background(), userID, 2025, time.March)

	got := merged["2025-03-15"]
	if got.JapCount != 250 {
		t.Errorf("JapCount = %d, want live 250", got.JapCount)
	}
	if got.MalasCompleted != 2 {
		t.Errorf("MalasCompleted = %d, want floor(250/108) = 2", got.MalasCompleted)
	}
}

func TestGetMergedMonth_Idempotent(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	remote := newMockRemote()
	remote.entries["2025-03-10"] = &models.DailyProgressEntry{UserID: userID, Date: "2025-03-10", JapCount: 108, MalasCompleted: 1}
	local := newMockCache()
	monthLog := models.MonthLog{"2025-03-11": {JapCount: int64Ptr(54), MalasCompleted: 0}}
	if err := local.SetJSON(context.Background(), cache.MonthLogKey(userID, 2025, time.March), monthLog); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	store := newTestStore(remote, local, &mockLive{japCount: 250, date: "2025-03-15", ok: true})
	first := store.GetMergedMonth(context.Background(), userID, 2025, time.March)
	second := store.GetMergedMonth(context.Background(), userID, 2025, time.March)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("merge not idempotent:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestGetMergedMonth_RemoteFailureFallsBackToLocal(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	remote := newMockRemote()
	remote.fail = true
	local := newMockCache()
	monthLog := models.MonthLog{"2025-03-10": {JapCount: int64Ptr(108), MalasCompleted: 1}}
	if err := local.SetJSON(context.Background(), cache.MonthLogKey(userID, 2025, time.March), monthLog); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	store := newTestStore(remote, local, &mockLive{ok: false})
	merged := store.GetMergedMonth(context.Background(), userID, 2025, time.March)

	if len(merged) != 1 {
		t.Fatalf("expected 1 local entry, got %d", len(merged))
	}
	if got := merged["2025-03-10"]; got.MalasCompleted != 1 {
		t.Errorf("local fallback entry = %+v", got)
	}
}

func TestGetMergedMonth_BothFailReturnsEmpty(t *testing.T) {
	t.Parallel()

	remote := newMockRemote()
	remote.fail = true
	local := newMockCache()
	local.fail = true

	store := newTestStore(remote, local, &mockLive{ok: false})
	merged := store.GetMergedMonth(context.Background(), uuid.New(), 2025, time.March)

	if len(merged) != 0 {
		t.Errorf("expected empty merge when both stores fail, got %d entries", len(merged))
	}
}

func TestMonthTotal_LiveValueNotDoubleCounted(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	remote := newMockRemote()
	remote.entries["2025-03-10"] = &models.DailyProgressEntry{UserID: userID, Date: "2025-03-10", JapCount: 216, MalasCompleted: 2}
	// Stale persisted value for today: 1 mala. Live says 3.
	remote.entries["2025-03-15"] = &models.DailyProgressEntry{UserID: userID, Date: "2025-03-15", JapCount: 108, MalasCompleted: 1}
	local := newMockCache()

	live := &mockLive{japCount: 350, date: "2025-03-15", ok: true}
	store := newTestStore(remote, local, live)

	// 2 (the 10th) + 3 (live today), the stale 1 must not be added.
	if got := store.MonthTotal(context.Background(), userID, 2025, time.March); got != 5 {
		t.Errorf("MonthTotal = %d, want 5", got)
	}
}

func TestUpsert_WritesRemoteAndFoldsIntoCache(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	remote := newMockRemote()
	local := newMockCache()
	store := newTestStore(remote, local, nil)

	entry := &models.DailyProgressEntry{UserID: userID, Date: "2025-03-15", JapCount: 216, MalasCompleted: 2}
	if err := store.Upsert(context.Background(), entry); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	// Overwrite, not accumulate.
	entry2 := &models.DailyProgressEntry{UserID: userID, Date: "2025-03-15", JapCount: 324, MalasCompleted: 3}
	if err := store.Upsert(context.Background(), entry2); err != nil {
		t.Fatalf("second Upsert failed: %v", err)
	}

	if got := remote.entries["2025-03-15"]; got.MalasCompleted != 3 || got.JapCount != 324 {
		t.Errorf("remote entry = %+v, want overwrite to 324/3", got)
	}

	var log models.MonthLog
	found, err := local.GetJSON(context.Background(), cache.MonthLogKey(userID, 2025, time.March), &log)
	if err != nil || !found {
		t.Fatalf("month log cache missing: found=%v err=%v", found, err)
	}
	day := log["2025-03-15"]
	if day.JapCount == nil || *day.JapCount != 324 || day.MalasCompleted != 3 {
		t.Errorf("cached day = %+v, want 324/3", day)
	}
}

func TestUpsert_RemoteFailureSurfaces(t *testing.T) {
	t.Parallel()

	remote := newMockRemote()
	remote.fail = true
	store := newTestStore(remote, newMockCache(), nil)

	entry := &models.DailyProgressEntry{UserID: uuid.New(), Date: "2025-03-15", JapCount: 108, MalasCompleted: 1}
	if err := store.Upsert(context.Background(), entry); err == nil {
		t.Fatal("expected error when remote upsert fails")
	}
}
