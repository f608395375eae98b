package models

import "time"

// AdPolicyConfig is the operator-tunable part of the ad admission
// policy, stored as a single row in the database and managed with the
// configure CLI. Per-origin session caps are compiled-in defaults.
type AdPolicyConfig struct {
	ConfigKey          string    `json:"config_key"`
	MaxPerDay          int64     `json:"max_per_day"`
	CooldownSeconds    int64     `json:"cooldown_seconds"`
	TimerGapSeconds    int64     `json:"timer_gap_seconds"`
	RewardedGapSeconds int64     `json:"rewarded_gap_seconds"`
	RewardedSessionCap int64     `json:"rewarded_session_cap"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Cooldown returns the global interstitial cooldown as a duration.
func (c *AdPolicyConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownSeconds) * time.Second
}

// TimerGap returns the extra gap applied to timer-origin ads.
func (c *AdPolicyConfig) TimerGap() time.Duration {
	return time.Duration(c.TimerGapSeconds) * time.Second
}

// RewardedGap returns the minimum gap between rewarded ads.
func (c *AdPolicyConfig) RewardedGap() time.Duration {
	return time.Duration(c.RewardedGapSeconds) * time.Second
}
