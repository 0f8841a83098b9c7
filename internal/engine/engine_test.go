package engine

import (
	"testing"
	"time"
)

func typeString(s *Session, text string) {
	for _, r := range text {
		if r == ' ' {
			s.SpaceBar()
			continue
		}
		s.InputCharacter(r)
	}
}

func assertStatuses(t *testing.T, s *Session, want ...CharStatus) {
	t.Helper()
	got := s.Statuses()
	if len(got) != len(want) {
		t.Fatalf("expected %d statuses, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("status %d: expected %s, got %s (all: %v)", i, want[i], got[i], got)
		}
	}
}

func TestInputCharacterMarksCorrectAndIncorrect(t *testing.T) {
	s := NewSession("ab")
	s.InputCharacter('a')
	s.InputCharacter('x')
	assertStatuses(t, s, Correct, Incorrect)
	if s.Cursor() != 2 {
		t.Fatalf("expected cursor 2, got %d", s.Cursor())
	}
	if r, ok := s.Typed(1); !ok || r != 'x' {
		t.Fatalf("expected typed x at 1, got %q %v", r, ok)
	}

	s.InputCharacter('c')
	if s.Cursor() != 2 {
		t.Fatalf("input past end must be ignored, cursor %d", s.Cursor())
	}
}

func TestStartTimeSetOnFirstAcceptedCharacter(t *testing.T) {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	calls := 0
	s := NewSession("a")
	s.SetClock(func() time.Time {
		calls++
		return start.Add(time.Duration(calls) * time.Second)
	})
	if s.Started() {
		t.Fatalf("session must not start before input")
	}
	s.InputCharacter('a')
	s.InputCharacter('b')
	if calls != 1 {
		t.Fatalf("expected clock to be read once, got %d", calls)
	}
	if !s.StartedAt().Equal(start.Add(time.Second)) {
		t.Fatalf("unexpected start time %v", s.StartedAt())
	}
}

func TestExactTypingLocksWords(t *testing.T) {
	s := NewSession("cat dog")
	completed := 0
	s.OnWordCompleted = func() { completed++ }

	typeString(s, "cat")
	assertStatuses(t, s, Correct, Correct, Correct, Pending, Pending, Pending, Pending)

	s.SpaceBar()
	assertStatuses(t, s, Locked, Locked, Locked, Locked, Pending, Pending, Pending)
	if completed != 1 {
		t.Fatalf("expected one completed word, got %d", completed)
	}

	typeString(s, "dog")
	if !s.Done() {
		t.Fatalf("expected session to be done")
	}
	assertStatuses(t, s, Locked, Locked, Locked, Locked, Correct, Correct, Correct)
}

func TestBackspaceRefusedOnLocked(t *testing.T) {
	s := NewSession("cat dog")
	typeString(s, "cat ")
	s.Backspace()
	if s.Cursor() != 4 {
		t.Fatalf("backspace into locked word must be refused, cursor %d", s.Cursor())
	}

	s.InputCharacter('x')
	s.Backspace()
	if s.Cursor() != 4 || s.Status(4) != Pending {
		t.Fatalf("expected unlocked char to be cleared, cursor %d status %s", s.Cursor(), s.Status(4))
	}
	if _, ok := s.Typed(4); ok {
		t.Fatalf("expected typed rune to be cleared")
	}
}

func TestBackspaceAtStartIsNoop(t *testing.T) {
	s := NewSession("a")
	s.Backspace()
	if s.Cursor() != 0 {
		t.Fatalf("expected cursor 0, got %d", s.Cursor())
	}
}

func TestDeleteWordClearsCurrentWord(t *testing.T) {
	s := NewSession("cat dog")
	typeString(s, "cat ")
	s.InputCharacter('d')
	s.InputCharacter('x')
	s.DeleteWord()
	if s.Cursor() != 4 {
		t.Fatalf("expected cursor at word start 4, got %d", s.Cursor())
	}
	if s.Status(4) != Pending || s.Status(5) != Pending {
		t.Fatalf("expected cleared word, got %v", s.Statuses())
	}
}

func TestDeleteWordRefusedWhenTouchingLocked(t *testing.T) {
	s := NewSession("cat dog")
	typeString(s, "cat ")
	s.DeleteWord()
	if s.Cursor() != 4 {
		t.Fatalf("delete word into locked word must be refused, cursor %d", s.Cursor())
	}
	assertStatuses(t, s, Locked, Locked, Locked, Locked, Pending, Pending, Pending)
}

func TestDeleteWordSkipsTrailingWhitespace(t *testing.T) {
	s := NewSession("ab cd")
	s.InputCharacter('a')
	s.InputCharacter('x')
	s.SpaceBar()
	if s.Status(2) != Correct {
		t.Fatalf("space on wrong word should still type the space, got %s", s.Status(2))
	}
	s.DeleteWord()
	if s.Cursor() != 0 {
		t.Fatalf("expected cursor 0, got %d", s.Cursor())
	}
	assertStatuses(t, s, Pending, Pending, Pending, Pending, Pending)
}

func TestSpaceOnIncorrectWordMidWordIsMistake(t *testing.T) {
	s := NewSession("abc de")
	s.InputCharacter('x')
	s.SpaceBar()
	assertStatuses(t, s, Incorrect, Incorrect, Pending, Pending, Pending, Pending)
	if r, _ := s.Typed(1); r != ' ' {
		t.Fatalf("expected space recorded, got %q", r)
	}
	if s.Cursor() != 2 {
		t.Fatalf("expected cursor 2, got %d", s.Cursor())
	}
}

func TestSpaceMidWordAfterCorrectPrefixSkips(t *testing.T) {
	s := NewSession("hello  world")
	completed := 0
	s.OnWordCompleted = func() { completed++ }
	typeString(s, "hel")
	s.SpaceBar()

	if s.Cursor() != 7 {
		t.Fatalf("expected cursor at next word start 7, got %d", s.Cursor())
	}
	for i := 0; i < 3; i++ {
		if s.Status(i) != Locked {
			t.Fatalf("expected prefix locked at %d, got %s", i, s.Status(i))
		}
	}
	if s.Status(3) != Skipped || s.Status(4) != Skipped {
		t.Fatalf("expected rest of word skipped, got %v", s.Statuses())
	}
	if completed != 0 {
		t.Fatalf("skip must not report a completed word")
	}
}

func TestSpaceWithEmptyWordIsMistake(t *testing.T) {
	s := NewSession("a")
	s.SpaceBar()
	if s.Status(0) != Incorrect {
		t.Fatalf("expected incorrect, got %s", s.Status(0))
	}
	s.SpaceBar()
	if s.Cursor() != 1 {
		t.Fatalf("space at end must be ignored, cursor %d", s.Cursor())
	}
}

func TestCompleteFiresOnce(t *testing.T) {
	s := NewSession("ab")
	if s.Complete() {
		t.Fatalf("unfinished session must not complete")
	}
	typeString(s, "ab")
	if !s.Complete() {
		t.Fatalf("expected first completion to succeed")
	}
	if s.Complete() {
		t.Fatalf("expected duplicate completion to be refused")
	}
	s.Reset("cd")
	if s.Completed() || s.Cursor() != 0 || s.Started() {
		t.Fatalf("reset must clear completion state")
	}
}

func TestStatusLengthMatchesRunes(t *testing.T) {
	s := NewSession("héllo wörld")
	if len(s.Statuses()) != 11 {
		t.Fatalf("expected 11 statuses, got %d", len(s.Statuses()))
	}
	typeString(s, "héllo ")
	if s.Status(5) != Locked {
		t.Fatalf("expected non-ascii word to lock, got %v", s.Statuses())
	}
}
