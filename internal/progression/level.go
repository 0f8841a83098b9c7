package progression

import "math"

const (
	// StartLevel and StartXP are the state of a newly created player.
	StartLevel = 1
	StartXP    = 0

	baseRequirement = 20
	growth          = 1.2
	cachedLevels    = 100

	// Requirements at or above this no longer fit in an int.
	maxRequirement = float64(math.MaxInt)
)

// requirements[l] is the XP needed to advance from level l.
var requirements = buildRequirements(cachedLevels)

func buildRequirements(n int) []int {
	out := make([]int, n+1)
	req := float64(baseRequirement)
	out[0] = baseRequirement
	out[1] = baseRequirement
	for level := 2; level <= n; level++ {
		req = nextRequirement(req)
		out[level] = int(req)
	}
	return out
}

// Each step rounds up on its own; rounding does not commute with the power.
func nextRequirement(req float64) float64 {
	return math.Ceil(req * growth)
}

// XPToNextLevel returns the XP required to advance from level.
func XPToNextLevel(level int) int {
	if level <= 1 {
		return baseRequirement
	}
	if level < len(requirements) {
		return requirements[level]
	}
	req := float64(requirements[len(requirements)-1])
	for l := len(requirements); l <= level; l++ {
		req = nextRequirement(req)
		if req >= maxRequirement {
			return math.MaxInt
		}
	}
	return int(req)
}

// ApplyXP adds delta to xp and rolls over as many levels as it covers.
func ApplyXP(level, xp, delta int) (newLevel, newXP int) {
	newLevel = max(level, StartLevel)
	newXP = max(xp+delta, 0)
	needed := XPToNextLevel(newLevel)
	for newXP >= needed {
		newXP -= needed
		newLevel++
		needed = XPToNextLevel(newLevel)
	}
	return newLevel, newXP
}
