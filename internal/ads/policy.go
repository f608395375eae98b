package ads

import (
	"time"

	"github.com/mantralabs/japa-api/internal/models"
)

// Origin identifies what triggered an interstitial request. Each
// origin carries its own in-process session cap on top of the global
// daily cap and cooldown.
type Origin string

const (
	OriginCounterMilestone Origin = "counter_milestone"
	OriginTimerSessionEnd  Origin = "timer_session_end"
	OriginContentExit      Origin = "content_exit"
	OriginStatsScreen      Origin = "stats_screen"
)

// ValidOrigin reports whether o names a known trigger origin.
func ValidOrigin(o Origin) bool {
	switch o {
	case OriginCounterMilestone, OriginTimerSessionEnd, OriginContentExit, OriginStatsScreen:
		return true
	}
	return false
}

// Policy is the fully resolved admission policy the controller runs
// with. The DB row supplies the tunable knobs; per-origin session
// caps are fixed because a "session" is bounded by process lifetime
// and not worth operator tuning.
type Policy struct {
	MaxPerDay          int64
	Cooldown           time.Duration
	TimerGap           time.Duration
	SessionCaps        map[Origin]int64
	RewardedGap        time.Duration
	RewardedSessionCap int64
}

// DefaultSessionCaps returns the per-origin session caps.
func DefaultSessionCaps() map[Origin]int64 {
	return map[Origin]int64{
		OriginCounterMilestone: 3,
		OriginTimerSessionEnd:  2,
		OriginContentExit:      2,
		OriginStatsScreen:      1,
	}
}

// PolicyFromConfig resolves a stored config row into a runtime policy.
func PolicyFromConfig(c *models.AdPolicyConfig) Policy {
	return Policy{
		MaxPerDay:          c.MaxPerDay,
		Cooldown:           c.Cooldown(),
		TimerGap:           c.TimerGap(),
		SessionCaps:        DefaultSessionCaps(),
		RewardedGap:        c.RewardedGap(),
		RewardedSessionCap: c.RewardedSessionCap,
	}
}
