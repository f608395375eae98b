package models

// AdFrequencyState is the persisted ad throttling blob for one user.
// Loaded at startup, reset (InterstitialShownToday = 0) whenever
// LastDate falls behind today, and persisted after every mutation.
// Session-scoped counters are intentionally NOT part of this blob;
// they live in process memory and die with the process.
type AdFrequencyState struct {
	InterstitialShownToday int64            `json:"interstitial_shown_today"`
	LastInterstitialAt     int64            `json:"last_interstitial_shown_at"` // epoch ms
	LastDate               string           `json:"last_date"`
	PlacementHistory       map[string]int64 `json:"placement_history,omitempty"` // placement id -> epoch ms
}

// RollDay zeroes the daily counter when the blob was last written on
// a different calendar day. Returns true if a rollover happened.
func (s *AdFrequencyState) RollDay(today string) bool {
	if s.LastDate == today {
		return false
	}
	s.InterstitialShownToday = 0
	s.LastDate = today
	return true
}
