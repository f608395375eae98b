package streak

import (
	"time"

	"github.com/mantralabs/japa-api/internal/dates"
	"github.com/mantralabs/japa-api/internal/models"
	"github.com/mantralabs/japa-api/internal/progress"
)

// Result is the outcome of one streak evaluation. MalasToday is the
// number of malas completed by today's jap count for THIS call only;
// callers own the lifetime accumulation (Record.TotalMalas), since
// the engine never sees more than a single day of activity.
type Result struct {
	Record     models.StreakRecord
	MalasToday int64
	Extended   bool // the streak grew on this call
	Lapsed     bool // a prior streak was zeroed on this call
}

// Calculate computes the next streak state from today's activity and
// the previous record. It is evaluated lazily, only when a qualifying
// event occurs; a user who disappears for N days sees the lapse
// applied at the next event, not as N separate decrements.
//
// Rules, evaluated against the record's calendar dates:
//
//   - counting today (todayJapCount > 0) OR sharing today extends or
//     starts a streak;
//   - a day already credited (last jap or share date == today) is not
//     credited twice;
//   - with activity today, the streak continues (+1) only when there
//     was activity yesterday, otherwise it restarts at 1;
//   - with no activity today and none yesterday, a positive streak is
//     zeroed now (the lazy lapse);
//   - LongestStreak never decreases and always covers CurrentStreak.
func Calculate(rec models.StreakRecord, todayJapCount int64, sharedToday bool, now time.Time) Result {
	today := dates.Format(now)
	yesterday := dates.Yesterday(now)

	didJapToday := todayJapCount > 0
	didToday := didJapToday || sharedToday
	creditedToday := rec.LastJapDate == today || rec.LastShareDate == today
	didYesterday := rec.LastJapDate == yesterday || rec.LastShareDate == yesterday

	next := rec
	res := Result{MalasToday: todayJapCount / progress.DefaultGoal}

	switch {
	case didToday && creditedToday:
		// Second qualifying event on the same day; streak already counts it.
	case didToday && didYesterday:
		next.CurrentStreak++
		res.Extended = true
	case didToday:
		// Covers both "no streak yet" and "streak broken": they collapse
		// to the same fresh start.
		if next.CurrentStreak > 0 {
			res.Lapsed = true
		}
		next.CurrentStreak = 1
		res.Extended = true
	case !didYesterday && next.CurrentStreak > 0:
		// A full day of inactivity has passed; the lapse lands now.
		next.CurrentStreak = 0
		res.Lapsed = true
	}

	if next.CurrentStreak > next.LongestStreak {
		next.LongestStreak = next.CurrentStreak
	}
	if didJapToday {
		next.LastJapDate = today
	}
	if sharedToday {
		next.LastShareDate = today
	}
	next.UpdatedAt = now

	res.Record = next
	return res
}
