package progress

import "testing"

func TestCalculate_Ranges(t *testing.T) {
	t.Parallel()

	// Sweep a few cycles plus the boundaries around each wrap.
	for count := int64(0); count <= 5*DefaultGoal; count++ {
		p := Calculate(count, DefaultGoal)
		if p.CurrentMalaCount < 0 || p.CurrentMalaCount > DefaultGoal-1 {
			t.Fatalf("count %d: CurrentMalaCount %d out of [0,%d]", count, p.CurrentMalaCount, DefaultGoal-1)
		}
		if p.Percentage < 0 || p.Percentage > 99 {
			t.Fatalf("count %d: Percentage %d out of [0,99]", count, p.Percentage)
		}
		if p.Remaining < 1 || p.Remaining > DefaultGoal {
			t.Fatalf("count %d: Remaining %d out of [1,%d]", count, p.Remaining, DefaultGoal)
		}
		if want := count / DefaultGoal; p.Rounds != want {
			t.Fatalf("count %d: Rounds = %d, want %d", count, p.Rounds, want)
		}
	}
}

func TestCalculate_Periodicity(t *testing.T) {
	t.Parallel()

	for count := int64(0); count < 3*DefaultGoal; count++ {
		a := Calculate(count, DefaultGoal)
		b := Calculate(count+DefaultGoal, DefaultGoal)
		if a.CurrentMalaCount != b.CurrentMalaCount {
			t.Fatalf("count %d: CurrentMalaCount %d != %d at count+108", count, a.CurrentMalaCount, b.CurrentMalaCount)
		}
		if a.Percentage != b.Percentage {
			t.Fatalf("count %d: Percentage %d != %d at count+108", count, a.Percentage, b.Percentage)
		}
	}
}

func TestCalculate_Values(t *testing.T) {
	t.Parallel()

	tests := []struct {
		count int64
		goal  int
		want  Progress
	}{
		{0, 108, Progress{Percentage: 0, Rounds: 0, Remaining: 108, CurrentMalaCount: 0}},
		{1, 108, Progress{Percentage: 0, Rounds: 0, Remaining: 107, CurrentMalaCount: 1}},
		{54, 108, Progress{Percentage: 50, Rounds: 0, Remaining: 54, CurrentMalaCount: 54}},
		{107, 108, Progress{Percentage: 99, Rounds: 0, Remaining: 1, CurrentMalaCount: 107}},
		{108, 108, Progress{Percentage: 0, Rounds: 1, Remaining: 108, CurrentMalaCount: 0}},
		{216, 108, Progress{Percentage: 0, Rounds: 2, Remaining: 108, CurrentMalaCount: 0}},
		{250, 108, Progress{Percentage: 31, Rounds: 2, Remaining: 74, CurrentMalaCount: 34}},
		// Degenerate goal falls back to the default.
		{54, 0, Progress{Percentage: 50, Rounds: 0, Remaining: 54, CurrentMalaCount: 54}},
	}
	for _, tt := range tests {
		if got := Calculate(tt.count, tt.goal); got != tt.want {
			t.Errorf("Calculate(%d, %d) = %+v, want %+v", tt.count, tt.goal, got, tt.want)
		}
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		count int64
		want  Milestone
	}{
		{0, MilestoneNone},
		{1, MilestoneNone},
		{9, MilestoneMinor},
		{21, MilestoneMinor},
		{27, MilestoneMajor},
		{36, MilestoneMinor},
		{54, MilestoneMajor},
		{63, MilestoneMinor},
		{81, MilestoneMajor},
		{99, MilestoneMinor},
		{107, MilestoneNone},
		{108, MilestoneComplete},
		{109, MilestoneNone},
		{135, MilestoneMajor}, // 108 + 27
		{216, MilestoneComplete},
	}
	for _, tt := range tests {
		if got := Classify(tt.count); got != tt.want {
			t.Errorf("Classify(%d) = %s, want %s", tt.count, got, tt.want)
		}
	}
}

func TestClassify_IdempotentUnderReplay(t *testing.T) {
	t.Parallel()

	for count := int64(0); count <= 2*DefaultGoal; count++ {
		first := Classify(count)
		for i := 0; i < 3; i++ {
			if got := Classify(count); got != first {
				t.Fatalf("Classify(%d) changed between calls: %s then %s", count, first, got)
			}
		}
	}
}
