// Package progression implements the XP award formula and the level curve.
package progression

import (
	"math"

	"github.com/verte-zerg/typerpg/internal/model"
)

type modeRules struct {
	base        float64
	targetWPM   float64
	wpmFloor    float64
	wpmCap      float64
	stepPenalty bool
}

var rules = map[model.Mode]modeRules{
	model.ModeEndless: {base: 100, targetWPM: 60, wpmFloor: 0.5, wpmCap: 1.25, stepPenalty: true},
	// Daily mistakes are gated by the completion failure threshold instead.
	model.ModeDaily: {base: 500, targetWPM: 60, wpmFloor: 0.5, wpmCap: 1.5, stepPenalty: false},
}

// CalculateXPDelta returns the XP awarded for a session. Unknown modes earn
// nothing.
func CalculateXPDelta(mode model.Mode, incorrectWords, wpm int) int {
	r, ok := rules[mode]
	if !ok {
		return 0
	}
	amount := r.base
	if r.stepPenalty {
		amount *= mistakeMultiplier(incorrectWords)
	}
	mult := clamp(float64(wpm)/r.targetWPM, r.wpmFloor, r.wpmCap)
	return int(math.Floor(amount * mult))
}

func mistakeMultiplier(incorrect int) float64 {
	switch {
	case incorrect > 8:
		return 0
	case incorrect >= 7:
		return 0.2
	case incorrect >= 5:
		return 0.4
	case incorrect >= 3:
		return 0.6
	case incorrect >= 1:
		return 0.8
	default:
		return 1
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// WPMTitle maps a WPM to the label shown on the completion screen.
func WPMTitle(wpm int) string {
	switch {
	case wpm < 40:
		return "cool"
	case wpm < 60:
		return "great"
	case wpm < 80:
		return "FAST"
	case wpm < 100:
		return "SUPER FAST"
	case wpm < 120:
		return "INSANELY FAST"
	default:
		return "GODLIKE"
	}
}
