package progress

// DefaultGoal is the number of repetitions in one mala.
const DefaultGoal = 108

// Progress is the mala-relative view of a lifetime tap count.
type Progress struct {
	Percentage       int   `json:"percentage"`
	Rounds           int64 `json:"rounds"`
	Remaining        int   `json:"remaining"`
	CurrentMalaCount int   `json:"current_mala_count"`
}

// Calculate converts a lifetime tap count into progress within the
// current mala. Total over all non-negative counts; a non-positive
// goal falls back to DefaultGoal. CurrentMalaCount is always in
// [0, goal-1] and Percentage in [0, 99]: the instant a mala completes
// the in-cycle position wraps to zero, so the bar never shows 100.
func Calculate(count int64, goal int) Progress {
	if goal <= 0 {
		goal = DefaultGoal
	}
	if count < 0 {
		count = 0
	}
	current := int(count % int64(goal))
	return Progress{
		Percentage:       current * 100 / goal,
		Rounds:           count / int64(goal),
		Remaining:        goal - current,
		CurrentMalaCount: current,
	}
}

// Milestone is a named checkpoint within a mala cycle, used to drive
// haptic, audio and ad cues.
type Milestone string

const (
	MilestoneNone     Milestone = "none"
	MilestoneMinor    Milestone = "minor"
	MilestoneMajor    Milestone = "major"
	MilestoneComplete Milestone = "complete"
)

// Classify returns the milestone reached at the given lifetime count.
// It is recomputed from count mod 108 every time rather than from any
// stored flag, so replaying a count yields the same answer.
func Classify(count int64) Milestone {
	if count <= 0 {
		return MilestoneNone
	}
	switch pos := count % DefaultGoal; pos {
	case 0:
		return MilestoneComplete
	case 27, 54, 81:
		return MilestoneMajor
	case 9, 21, 36, 63, 99:
		return MilestoneMinor
	default:
		return MilestoneNone
	}
}
