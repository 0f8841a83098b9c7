package daily

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/verte-zerg/typerpg/internal/model"
)

const keyPrefix = "daily_progress_"

// QuoteStat records a finished quote of the daily challenge.
type QuoteStat struct {
	Difficulty model.Difficulty `json:"difficulty"`
	WPM        int              `json:"wpm"`
	Attempts   int              `json:"attempts"`
}

// ProgressState is the player's progress through today's challenge.
type ProgressState struct {
	CurrentDifficulty  model.Difficulty `json:"currentQuote"`
	CompletedCount     int              `json:"completedQuotes"`
	IsCompleted        bool             `json:"isCompleted"`
	LastCompletionDate string           `json:"lastCompletionDate"`
	QuoteStats         []QuoteStat      `json:"quoteStats"`
}

// NewProgressState returns the state at the start of a day.
func NewProgressState() ProgressState {
	return ProgressState{CurrentDifficulty: model.Easy}
}

// RecordQuote stores the result for the current difficulty and advances to
// the next one. A difficulty already recorded is ignored and false returned.
func (p *ProgressState) RecordQuote(wpm, attempts int, now time.Time) bool {
	if p.hasDifficulty(p.CurrentDifficulty) {
		return false
	}
	p.QuoteStats = append(p.QuoteStats, QuoteStat{
		Difficulty: p.CurrentDifficulty,
		WPM:        wpm,
		Attempts:   attempts,
	})
	p.CompletedCount = len(p.QuoteStats)
	p.CurrentDifficulty = p.CurrentDifficulty.Next()
	if p.CompletedCount >= len(model.Difficulties) {
		p.IsCompleted = true
		p.CurrentDifficulty = model.Hard
		p.LastCompletionDate = DateKey(now)
	}
	return true
}

func (p *ProgressState) hasDifficulty(d model.Difficulty) bool {
	for _, q := range p.QuoteStats {
		if q.Difficulty == d {
			return true
		}
	}
	return false
}

// AverageWPM returns the mean WPM over recorded quotes.
func (p *ProgressState) AverageWPM() float64 {
	if len(p.QuoteStats) == 0 {
		return 0
	}
	total := 0
	for _, q := range p.QuoteStats {
		total += q.WPM
	}
	return float64(total) / float64(len(p.QuoteStats))
}

// RoundedAverageWPM is AverageWPM rounded half away from zero.
func (p *ProgressState) RoundedAverageWPM() int {
	return int(math.Round(p.AverageWPM()))
}

// Reconcile aligns the local cache with the server's completed-today flag.
// The server is authoritative in both directions: a completion the server
// never recorded is discarded so the challenge can be played again.
func (p *ProgressState) Reconcile(completedToday bool, now time.Time) {
	switch {
	case completedToday && !p.IsCompleted:
		p.IsCompleted = true
		p.CurrentDifficulty = model.Hard
		p.LastCompletionDate = DateKey(now)
	case !completedToday && p.IsCompleted:
		*p = NewProgressState()
	}
}

// dedupe drops repeated difficulties, keeping the first entry.
func (p *ProgressState) dedupe() {
	seen := make(map[model.Difficulty]struct{}, len(p.QuoteStats))
	cleaned := p.QuoteStats[:0]
	for _, q := range p.QuoteStats {
		if _, ok := seen[q.Difficulty]; ok {
			continue
		}
		seen[q.Difficulty] = struct{}{}
		cleaned = append(cleaned, q)
	}
	p.QuoteStats = cleaned
	p.CompletedCount = len(cleaned)
	if p.CurrentDifficulty == "" {
		p.CurrentDifficulty = model.Easy
	}
}

// KV is the storage the daily progress is persisted in.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// Key returns the storage key for the progress of now's UTC day.
func Key(now time.Time) string {
	return keyPrefix + DateKey(now)
}

// LoadProgress reads today's progress. Entries of other days are removed and
// a missing or unreadable entry yields a fresh state.
func LoadProgress(ctx context.Context, kv KV, now time.Time) (ProgressState, error) {
	key := Key(now)
	raw, ok, err := kv.Get(ctx, key)
	if err != nil {
		return NewProgressState(), fmt.Errorf("failed to read daily progress: %w", err)
	}
	if !ok {
		if err := purgeOtherDays(ctx, kv, key); err != nil {
			return NewProgressState(), err
		}
		return NewProgressState(), nil
	}
	var state ProgressState
	if err := json.Unmarshal(raw, &state); err != nil {
		slog.Warn("discarding unreadable daily progress", "key", key, "err", err)
		return NewProgressState(), nil
	}
	state.dedupe()
	return state, nil
}

// SaveProgress writes today's progress.
func SaveProgress(ctx context.Context, kv KV, now time.Time, state ProgressState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode daily progress: %w", err)
	}
	if err := kv.Put(ctx, Key(now), raw); err != nil {
		return fmt.Errorf("failed to write daily progress: %w", err)
	}
	return nil
}

func purgeOtherDays(ctx context.Context, kv KV, keep string) error {
	keys, err := kv.Keys(ctx, keyPrefix)
	if err != nil {
		return fmt.Errorf("failed to list daily progress: %w", err)
	}
	for _, k := range keys {
		if k == keep || !strings.HasPrefix(k, keyPrefix) {
			continue
		}
		if err := kv.Delete(ctx, k); err != nil {
			return fmt.Errorf("failed to delete %s: %w", k, err)
		}
	}
	return nil
}
