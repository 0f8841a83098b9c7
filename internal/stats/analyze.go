// Package stats derives typing performance from engine state and summarises
// stored sessions.
package stats

import (
	"math"
	"time"
	"unicode"

	"github.com/verte-zerg/typerpg/internal/engine"
)

// charsPerWord is the standard WPM word length, spaces included.
const charsPerWord = 5.0

// WordAnalysis holds word-level correctness counts for a passage.
type WordAnalysis struct {
	CorrectWords              int
	IncorrectWords            int
	TotalCharsIncludingSpaces int
}

// TotalWords returns the number of words in the passage.
func (a WordAnalysis) TotalWords() int {
	return a.CorrectWords + a.IncorrectWords
}

// PerformanceStats is the final measurement of a completed session.
type PerformanceStats struct {
	CorrectWords              int
	IncorrectWords            int
	TotalCharsIncludingSpaces int
	ElapsedMinutes            float64
	FinalWPM                  int
}

// TotalWords returns the number of words in the passage.
func (p PerformanceStats) TotalWords() int {
	return p.CorrectWords + p.IncorrectWords
}

// AnalyzeWords counts correct and incorrect words. A word is correct when
// all its characters are Correct or Locked; correct words add their length,
// plus one for a directly following space, to the throughput count.
func AnalyzeWords(text []rune, status []engine.CharStatus) WordAnalysis {
	return analyze(text, status, func(s engine.CharStatus) bool {
		return s == engine.Correct || s == engine.Locked
	})
}

func analyze(text []rune, status []engine.CharStatus, accept func(engine.CharStatus) bool) WordAnalysis {
	var out WordAnalysis
	for i := 0; i < len(text); {
		if unicode.IsSpace(text[i]) {
			i++
			continue
		}
		start := i
		for i < len(text) && !unicode.IsSpace(text[i]) {
			i++
		}
		if !spanAccepted(status, start, i, accept) {
			out.IncorrectWords++
			continue
		}
		out.CorrectWords++
		out.TotalCharsIncludingSpaces += i - start
		if i < len(text) && text[i] == ' ' {
			out.TotalCharsIncludingSpaces++
		}
	}
	return out
}

func spanAccepted(status []engine.CharStatus, start, end int, accept func(engine.CharStatus) bool) bool {
	for i := start; i < end; i++ {
		if i >= len(status) || !accept(status[i]) {
			return false
		}
	}
	return true
}

// CalculateFinalStats measures a finished session at now. It returns false
// when the session never started or the text is empty.
func CalculateFinalStats(s *engine.Session, now time.Time) (PerformanceStats, bool) {
	if s == nil || !s.Started() || s.Len() == 0 {
		return PerformanceStats{}, false
	}
	elapsed := now.Sub(s.StartedAt()).Minutes()
	words := AnalyzeWords(s.Runes(), s.Statuses())
	return PerformanceStats{
		CorrectWords:              words.CorrectWords,
		IncorrectWords:            words.IncorrectWords,
		TotalCharsIncludingSpaces: words.TotalCharsIncludingSpaces,
		ElapsedMinutes:            elapsed,
		FinalWPM:                  wpm(words.TotalCharsIncludingSpaces, elapsed),
	}, true
}

// CalculateCurrentWPM is the live WPM shown while typing. Only words locked
// with the space bar count.
func CalculateCurrentWPM(s *engine.Session, now time.Time) int {
	if s == nil || !s.Started() {
		return 0
	}
	words := analyze(s.Runes(), s.Statuses(), func(st engine.CharStatus) bool {
		return st == engine.Locked
	})
	return wpm(words.TotalCharsIncludingSpaces, now.Sub(s.StartedAt()).Minutes())
}

func wpm(chars int, minutes float64) int {
	if minutes <= 0 || math.IsNaN(minutes) || math.IsInf(minutes, 0) {
		return 0
	}
	return int(math.Round(float64(chars) / charsPerWord / minutes))
}
