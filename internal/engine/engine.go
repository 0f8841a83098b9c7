// Package engine implements per-keystroke state for a typing session.
//
// A Session owns fixed-length status and typed-rune buffers for one target
// text. Every operation is a no-op when it does not apply (cursor at either
// end, locked characters) so stray or repeated key events are harmless.
package engine

import (
	"time"
	"unicode"
)

// CharStatus is the state of a single character of the target text.
type CharStatus uint8

// Character states.
const (
	Pending CharStatus = iota
	Correct
	Incorrect
	Skipped
	Locked
)

func (s CharStatus) String() string {
	switch s {
	case Pending:
		return "pending"
	case Correct:
		return "correct"
	case Incorrect:
		return "incorrect"
	case Skipped:
		return "skipped"
	case Locked:
		return "locked"
	default:
		return "unknown"
	}
}

// Session is the mutable state of one passage being typed.
type Session struct {
	target []rune
	status []CharStatus
	typed  []rune
	cursor int

	startedAt time.Time
	completed bool
	clock     func() time.Time

	// OnWordCompleted fires once per word locked with the space bar.
	OnWordCompleted func()
}

// NewSession returns a session for text with every character pending.
func NewSession(text string) *Session {
	s := &Session{clock: time.Now}
	s.Reset(text)
	return s
}

// SetClock replaces the time source used to stamp the first keystroke.
func (s *Session) SetClock(clock func() time.Time) {
	if clock == nil {
		clock = time.Now
	}
	s.clock = clock
}

// Reset discards all progress and starts over with text.
func (s *Session) Reset(text string) {
	s.target = []rune(text)
	s.status = make([]CharStatus, len(s.target))
	s.typed = make([]rune, len(s.target))
	s.cursor = 0
	s.startedAt = time.Time{}
	s.completed = false
}

// Text returns the target text.
func (s *Session) Text() string { return string(s.target) }

// Runes returns the target text as runes. The slice must not be modified.
func (s *Session) Runes() []rune { return s.target }

// Len returns the number of characters in the target text.
func (s *Session) Len() int { return len(s.target) }

// Cursor returns the index of the next character to be typed.
func (s *Session) Cursor() int { return s.cursor }

// Status returns the status of character i, or Pending when out of range.
func (s *Session) Status(i int) CharStatus {
	if i < 0 || i >= len(s.status) {
		return Pending
	}
	return s.status[i]
}

// Statuses returns a copy of all character statuses.
func (s *Session) Statuses() []CharStatus {
	out := make([]CharStatus, len(s.status))
	copy(out, s.status)
	return out
}

// Typed returns the rune recorded at i and whether one was recorded.
func (s *Session) Typed(i int) (rune, bool) {
	if i < 0 || i >= len(s.typed) || s.status[i] == Pending || s.status[i] == Skipped {
		return 0, false
	}
	return s.typed[i], true
}

// Started reports whether the first character has been accepted.
func (s *Session) Started() bool { return !s.startedAt.IsZero() }

// StartedAt returns the time of the first accepted character.
func (s *Session) StartedAt() time.Time { return s.startedAt }

// Done reports whether the cursor reached the end of the text.
func (s *Session) Done() bool { return s.Started() && s.cursor >= len(s.target) }

// Complete marks the session as completed. It returns true only the first
// time it is called on a finished session, so completion handling runs once
// per passage no matter how often it is triggered.
func (s *Session) Complete() bool {
	if !s.Done() || s.completed {
		return false
	}
	s.completed = true
	return true
}

// Completed reports whether Complete has already succeeded.
func (s *Session) Completed() bool { return s.completed }

// InputCharacter records key at the cursor and advances it.
func (s *Session) InputCharacter(key rune) {
	if s.cursor >= len(s.target) {
		return
	}
	if s.startedAt.IsZero() {
		s.startedAt = s.clock()
	}
	if key == s.target[s.cursor] {
		s.status[s.cursor] = Correct
	} else {
		s.status[s.cursor] = Incorrect
	}
	s.typed[s.cursor] = key
	s.cursor++
}

// Backspace clears the previous character unless it is locked.
func (s *Session) Backspace() {
	if s.cursor <= 0 || s.cursor > len(s.target) {
		return
	}
	prev := s.cursor - 1
	if s.status[prev] == Locked {
		return
	}
	s.clear(prev)
	s.cursor = prev
}

// DeleteWord clears back to the start of the current or previous word.
// Nothing happens when the span would include a locked character.
func (s *Session) DeleteWord() {
	if s.cursor <= 0 || s.cursor > len(s.target) {
		return
	}
	pos := s.cursor - 1
	for pos >= 0 && isSpace(s.target[pos]) {
		pos--
	}
	for pos >= 0 && !isSpace(s.target[pos]) {
		pos--
	}
	start := pos + 1
	for i := start; i < s.cursor; i++ {
		if s.status[i] == Locked {
			return
		}
	}
	for i := start; i < s.cursor; i++ {
		s.clear(i)
	}
	s.cursor = start
}

// SpaceBar locks the word before the cursor when it was typed correctly,
// then either types the space, records a mistake, or skips the rest of the
// current word.
func (s *Session) SpaceBar() {
	if s.cursor >= len(s.target) {
		return
	}
	start := s.wordStart(s.cursor)
	locked := false
	if start < s.cursor && s.allCorrect(start, s.cursor) {
		for i := start; i < s.cursor; i++ {
			s.status[i] = Locked
		}
		locked = true
	}

	if s.target[s.cursor] == ' ' {
		pos := s.cursor
		s.InputCharacter(' ')
		if locked {
			s.status[pos] = Locked
			if s.OnWordCompleted != nil {
				s.OnWordCompleted()
			}
		}
		return
	}
	if !locked {
		s.InputCharacter(' ')
		return
	}

	i := s.cursor
	for i < len(s.target) && !isSpace(s.target[i]) {
		if s.status[i] == Pending {
			s.status[i] = Skipped
		}
		i++
	}
	for i < len(s.target) && isSpace(s.target[i]) {
		i++
	}
	s.cursor = i
}

func (s *Session) wordStart(end int) int {
	start := end
	for start > 0 && !isSpace(s.target[start-1]) {
		start--
	}
	return start
}

func (s *Session) allCorrect(start, end int) bool {
	for i := start; i < end; i++ {
		if s.status[i] != Correct {
			return false
		}
	}
	return true
}

func (s *Session) clear(i int) {
	s.status[i] = Pending
	s.typed[i] = 0
}

func isSpace(r rune) bool {
	return unicode.IsSpace(r)
}
