package daily

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/typerpg/internal/model"
	"github.com/verte-zerg/typerpg/internal/stats"
)

var noon = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func TestDayWindowIsUTCAligned(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	// 2024-03-11 02:00 local is 2024-03-10 17:00 UTC.
	start, end := DayWindow(time.Date(2024, 3, 11, 2, 0, 0, 0, loc))
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, 24*time.Hour, end.Sub(start))
}

func TestTimeUntilReset(t *testing.T) {
	assert.EqualValues(t, 12*3600, TimeUntilReset(noon))
	assert.EqualValues(t, 1, TimeUntilReset(time.Date(2024, 3, 10, 23, 59, 59, 500_000_000, time.UTC)))
	assert.EqualValues(t, 86400, TimeUntilReset(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)))
}

func TestCheckOnce(t *testing.T) {
	require.NoError(t, CheckOnce(time.Time{}, noon))
	require.NoError(t, CheckOnce(noon.Add(-13*time.Hour), noon), "yesterday's run does not block")

	err := CheckOnce(noon.Add(-time.Hour), noon)
	var done *AlreadyCompletedError
	require.True(t, errors.As(err, &done))
	assert.EqualValues(t, 12*3600, done.TimeUntilResetSeconds)
}

func TestRecordQuoteAdvancesAndIgnoresDuplicates(t *testing.T) {
	state := NewProgressState()
	assert.True(t, state.RecordQuote(50, 1, noon))
	assert.Equal(t, model.Medium, state.CurrentDifficulty)

	state.CurrentDifficulty = model.Easy
	assert.False(t, state.RecordQuote(99, 1, noon))
	assert.Equal(t, 1, state.CompletedCount)

	state.CurrentDifficulty = model.Medium
	state.RecordQuote(60, 2, noon)
	state.RecordQuote(71, 1, noon)
	assert.True(t, state.IsCompleted)
	assert.Equal(t, model.Hard, state.CurrentDifficulty)
	assert.Equal(t, "2024-03-10", state.LastCompletionDate)
	assert.Equal(t, 60, state.RoundedAverageWPM())
}

func TestReconcileFollowsServer(t *testing.T) {
	state := NewProgressState()
	state.Reconcile(true, noon)
	assert.True(t, state.IsCompleted)
	assert.Equal(t, model.Hard, state.CurrentDifficulty)

	state.Reconcile(false, noon)
	assert.Equal(t, NewProgressState(), state)
}

func TestProgressRoundTripAndPurge(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	yesterday := noon.Add(-24 * time.Hour)
	require.NoError(t, SaveProgress(ctx, kv, yesterday, NewProgressState()))

	state, err := LoadProgress(ctx, kv, noon)
	require.NoError(t, err)
	assert.Equal(t, NewProgressState(), state)
	keys, _ := kv.Keys(ctx, "")
	assert.Empty(t, keys, "previous days are purged")

	state.RecordQuote(40, 1, noon)
	require.NoError(t, SaveProgress(ctx, kv, noon, state))
	loaded, err := LoadProgress(ctx, kv, noon)
	require.NoError(t, err)
	assert.Equal(t, state, loaded)
}

func TestLoadProgressDedupesQuoteStats(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	raw := `{"currentQuote":"hard","completedQuotes":3,"quoteStats":[` +
		`{"difficulty":"easy","wpm":40,"attempts":1},` +
		`{"difficulty":"easy","wpm":45,"attempts":1},` +
		`{"difficulty":"medium","wpm":50,"attempts":2}]}`
	require.NoError(t, kv.Put(ctx, Key(noon), []byte(raw)))

	state, err := LoadProgress(ctx, kv, noon)
	require.NoError(t, err)
	assert.Equal(t, 2, state.CompletedCount)
	assert.Equal(t, 40, state.QuoteStats[0].WPM)
}

func TestLoadProgressDiscardsGarbage(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	require.NoError(t, kv.Put(ctx, Key(noon), []byte("{not json")))
	state, err := LoadProgress(ctx, kv, noon)
	require.NoError(t, err)
	assert.Equal(t, NewProgressState(), state)
}

type recorder struct {
	calls []model.SessionSubmission
	err   error
}

func (r *recorder) submit(_ context.Context, sub model.SessionSubmission) (model.SessionResult, error) {
	r.calls = append(r.calls, sub)
	if r.err != nil {
		return model.SessionResult{}, r.err
	}
	return model.SessionResult{Session: model.GameSession{XPDelta: 123}}, nil
}

func perf(wpm, correct, incorrect int) stats.PerformanceStats {
	return stats.PerformanceStats{FinalWPM: wpm, CorrectWords: correct, IncorrectWords: incorrect}
}

func TestDailyFailureRetries(t *testing.T) {
	rec := &recorder{}
	state := NewProgressState()
	res := HandleCompletion(context.Background(), model.ModeDaily, perf(60, 10, 5), &state, Attempt{Number: 1}, rec.submit, noon)

	assert.Equal(t, ActionRetry, res.Action)
	assert.Equal(t, 2, res.Attempt)
	assert.Contains(t, res.Message, "Monster")
	assert.Empty(t, state.QuoteStats)
	assert.Empty(t, rec.calls)
}

func TestDailySuccessAdvances(t *testing.T) {
	rec := &recorder{}
	state := NewProgressState()
	res := HandleCompletion(context.Background(), model.ModeDaily, perf(60, 10, 4), &state, Attempt{Number: 3}, rec.submit, noon)

	assert.Equal(t, ActionNextQuote, res.Action)
	assert.Equal(t, 1, res.Attempt)
	assert.Equal(t, model.Medium, state.CurrentDifficulty)
	require.Len(t, state.QuoteStats, 1)
	assert.Equal(t, 3, state.QuoteStats[0].Attempts)
	assert.Empty(t, rec.calls)
}

func TestDailyThirdQuoteSubmitsOnce(t *testing.T) {
	rec := &recorder{}
	state := NewProgressState()
	ctx := context.Background()

	HandleCompletion(ctx, model.ModeDaily, perf(40, 10, 0), &state, Attempt{Number: 1}, rec.submit, noon)
	HandleCompletion(ctx, model.ModeDaily, perf(50, 10, 1), &state, Attempt{Number: 1}, rec.submit, noon)
	res := HandleCompletion(ctx, model.ModeDaily, perf(61, 8, 2), &state, Attempt{Number: 2}, rec.submit, noon)

	assert.Equal(t, ActionShowModal, res.Action)
	assert.True(t, res.Submitted)
	assert.Equal(t, 123, res.XPDelta)
	require.Len(t, rec.calls, 1)
	assert.Equal(t, model.SessionSubmission{
		Mode: model.ModeDaily, WPM: 50, TotalWords: 10, CorrectWords: 8, IncorrectWords: 2,
	}, rec.calls[0])

	again := HandleCompletion(ctx, model.ModeDaily, perf(70, 10, 0), &state, Attempt{Number: 1, HasShownCompletion: true}, rec.submit, noon)
	assert.Equal(t, ActionNextQuote, again.Action)
	assert.Len(t, rec.calls, 1)
}

func TestDailyCompletedStateIgnoresFurtherQuotes(t *testing.T) {
	rec := &recorder{}
	state := NewProgressState()
	ctx := context.Background()
	for _, wpm := range []int{40, 50, 60} {
		HandleCompletion(ctx, model.ModeDaily, perf(wpm, 10, 0), &state, Attempt{Number: 1}, rec.submit, noon)
	}
	require.Len(t, rec.calls, 1)
	require.True(t, state.IsCompleted)

	res := HandleCompletion(ctx, model.ModeDaily, perf(90, 10, 0), &state, Attempt{Number: 1}, rec.submit, noon)
	assert.Equal(t, ActionNextQuote, res.Action)
	assert.False(t, res.Submitted)
	assert.Len(t, rec.calls, 1)
	assert.Len(t, state.QuoteStats, 3)
	assert.Equal(t, 50, state.RoundedAverageWPM())
}

func TestEndlessSubmitsEveryRound(t *testing.T) {
	rec := &recorder{}
	state := NewProgressState()
	res := HandleCompletion(context.Background(), model.ModeEndless, perf(72, 20, 5), &state, Attempt{}, rec.submit, noon)

	assert.Equal(t, ActionLoadNewText, res.Action)
	require.Len(t, rec.calls, 1)
	assert.Equal(t, 25, rec.calls[0].TotalWords)
	assert.Equal(t, model.ModeEndless, rec.calls[0].Mode)
	assert.Equal(t, 123, res.XPDelta)
}

func TestEndlessSubmissionFailureIsNonFatal(t *testing.T) {
	rec := &recorder{err: errors.New("offline")}
	state := NewProgressState()
	res := HandleCompletion(context.Background(), model.ModeEndless, perf(72, 20, 0), &state, Attempt{}, rec.submit, noon)

	assert.Equal(t, ActionLoadNewText, res.Action)
	assert.Error(t, res.Err)
	assert.Zero(t, res.XPDelta)
	assert.Contains(t, res.Message, "not saved")
}

func TestOpponentNames(t *testing.T) {
	assert.Equal(t, "Monster", Opponent(model.Easy))
	assert.Equal(t, "Mini Boss", Opponent(model.Medium))
	assert.Equal(t, "Boss", Opponent(model.Hard))
}
