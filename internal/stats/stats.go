package stats

import (
	"math"
	"strings"

	"github.com/verte-zerg/typerpg/internal/model"
)

const sparkChars = " .:-=+*#%@"

// Summary aggregates stored sessions for reporting.
type Summary struct {
	Sessions  int
	AvgWPM    float64
	BestWPM   int
	Accuracy  float64
	TotalXP   int
	DailyRuns int
}

// Accuracy returns the share of correct words in a session.
func Accuracy(correctWords, incorrectWords int) float64 {
	den := correctWords + incorrectWords
	if den <= 0 {
		return 0
	}
	return float64(correctWords) / float64(den)
}

// Summarize computes averages and bests over sessions.
func Summarize(sessions []model.GameSession) Summary {
	var out Summary
	if len(sessions) == 0 {
		return out
	}
	var totalWPM float64
	var correct, incorrect int
	for _, s := range sessions {
		totalWPM += float64(s.WPM)
		if s.WPM > out.BestWPM {
			out.BestWPM = s.WPM
		}
		correct += s.CorrectWords
		incorrect += s.IncorrectWords
		out.TotalXP += s.XPDelta
		if s.Mode == model.ModeDaily {
			out.DailyRuns++
		}
	}
	out.Sessions = len(sessions)
	out.AvgWPM = totalWPM / float64(len(sessions))
	out.Accuracy = Accuracy(correct, incorrect)
	return out
}

// WPMSeries returns session WPMs oldest first; sessions arrive newest first.
func WPMSeries(sessions []model.GameSession) []float64 {
	out := make([]float64, len(sessions))
	for i, s := range sessions {
		out[len(sessions)-1-i] = float64(s.WPM)
	}
	return out
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal, maxVal := values[0], values[0]
	for _, v := range values[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		idx = max(0, min(idx, len(sparkChars)-1))
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}
