// Package leveling contains the pure progression math: the XP threshold
// ladder, its inverse, and the per-event reward table. No I/O, no state.
package leveling

import "strings"

// DefaultEventXP is the baseline reward weight per event type. A rule set may
// override individual entries via Rewards.
var DefaultEventXP = map[string]int64{
	"KILL":     100,
	"HEADSHOT": 25,
	"SURVIVE":  150,
	"EXTRACT":  75,
	"DOGTAG":   30,
	"DEATH":    0,
}

// XPForLevel returns the total XP required to hold the given level.
// Level 1 (and below) costs nothing; above that the ladder is
// 100*(level-1)^2 + 100, which is strictly increasing for level >= 1.
func XPForLevel(level int) int64 {
	if level <= 1 {
		return 0
	}
	n := int64(level - 1)
	return 100*n*n + 100
}

// LevelFromXP returns the greatest level L >= 1 such that xp >= XPForLevel(L).
// xp must be non-negative.
func LevelFromXP(xp int64) int {
	lvl := 1
	for xp >= XPForLevel(lvl+1) {
		lvl++
	}
	return lvl
}

// XPForEvent returns the reward weight for an event type, using the override
// table first and the default table second. Unknown types are worth nothing.
// The payload is accepted as an extension point but the baseline table
// ignores it.
func XPForEvent(eventType string, payload map[string]any, overrides map[string]int64) int64 {
	key := strings.ToUpper(eventType)
	if overrides != nil {
		if xp, ok := overrides[key]; ok {
			return xp
		}
	}
	return DefaultEventXP[key]
}
