// Package progression maps accumulated XP to skill levels on a logarithmic
// curve. Each level costs a little more than the one before it.
package progression

import "math"

// Base scales the curve.
const Base = 100

// XPForLevel returns the additional XP needed to go from level n to n+1.
func XPForLevel(n int) int {
	return int(math.Round(Base * math.Log(float64(n+2))))
}

// TotalXPForLevel returns the cumulative XP needed to reach level n.
func TotalXPForLevel(n int) int {
	total := 0
	for i := 0; i < n; i++ {
		total += XPForLevel(i)
	}
	return total
}

// LevelFromXP returns the highest level reachable with totalXP.
func LevelFromXP(totalXP int) int {
	level := 0
	needed := 0
	for needed+XPForLevel(level) <= totalXP {
		needed += XPForLevel(level)
		level++
	}
	return level
}

// Progress describes where a total sits on the curve.
type Progress struct {
	Level         int `json:"level"`
	XPIntoLevel   int `json:"xp_into_level"`
	XPToNextLevel int `json:"xp_to_next_level"`
}

func Snapshot(totalXP int) Progress {
	if totalXP < 0 {
		totalXP = 0
	}
	level := LevelFromXP(totalXP)
	into := totalXP - TotalXPForLevel(level)
	return Progress{
		Level:         level,
		XPIntoLevel:   into,
		XPToNextLevel: XPForLevel(level) - into,
	}
}
