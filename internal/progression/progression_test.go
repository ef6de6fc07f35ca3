package progression

import "testing"

func TestXPForLevel(t *testing.T) {
	tests := []struct {
		n    int
		want int
	}{
		{0, 69},
		{1, 110},
		{2, 139},
		{8, 230},
	}
	for _, tt := range tests {
		if got := XPForLevel(tt.n); got != tt.want {
			t.Errorf("XPForLevel(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}
}

func TestLevelRoundTrip(t *testing.T) {
	for n := 0; n <= 50; n++ {
		if got := LevelFromXP(TotalXPForLevel(n)); got != n {
			t.Errorf("LevelFromXP(TotalXPForLevel(%d)) = %d, want %d", n, got, n)
		}
	}
}

func TestLevelJustBelowBoundary(t *testing.T) {
	for n := 1; n <= 50; n++ {
		if got := LevelFromXP(TotalXPForLevel(n) - 1); got != n-1 {
			t.Errorf("LevelFromXP(total(%d)-1) = %d, want %d", n, got, n-1)
		}
	}
}

func TestXPForLevelPositive(t *testing.T) {
	for n := 0; n <= 200; n++ {
		if XPForLevel(n) <= 0 {
			t.Errorf("XPForLevel(%d) = %d, want > 0", n, XPForLevel(n))
		}
	}
}

func TestLevelFromXPMonotonic(t *testing.T) {
	prev := 0
	for xp := 0; xp <= 20000; xp += 7 {
		level := LevelFromXP(xp)
		if level < prev {
			t.Fatalf("LevelFromXP(%d) = %d, below previous %d", xp, level, prev)
		}
		prev = level
	}
}

func TestLevelFromXPNegative(t *testing.T) {
	if got := LevelFromXP(-10); got != 0 {
		t.Errorf("LevelFromXP(-10) = %d, want 0", got)
	}
}

func TestSnapshot(t *testing.T) {
	p := Snapshot(100)
	if p.Level != 1 {
		t.Errorf("Level = %d, want 1", p.Level)
	}
	if p.XPIntoLevel != 31 {
		t.Errorf("XPIntoLevel = %d, want 31", p.XPIntoLevel)
	}
	if p.XPToNextLevel != 79 {
		t.Errorf("XPToNextLevel = %d, want 79", p.XPToNextLevel)
	}
}
