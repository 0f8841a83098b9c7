package daily

import (
	"context"
	"fmt"
	"time"

	"github.com/verte-zerg/typerpg/internal/model"
	"github.com/verte-zerg/typerpg/internal/stats"
)

// FailureThreshold is the number of incorrect words that fails a daily quote.
const FailureThreshold = 5

// Action tells the game what to do after a passage is finished.
type Action string

// Completion actions.
const (
	ActionRetry       Action = "retry"
	ActionNextQuote   Action = "nextQuote"
	ActionShowModal   Action = "showModal"
	ActionLoadNewText Action = "loadNewText"
)

var opponents = map[model.Difficulty]string{
	model.Easy:   "Monster",
	model.Medium: "Mini Boss",
	model.Hard:   "Boss",
}

// Opponent names the enemy fought at difficulty d.
func Opponent(d model.Difficulty) string {
	if name, ok := opponents[d]; ok {
		return name
	}
	return "Monster"
}

// Attempt carries the per-quote state the game keeps between completions.
type Attempt struct {
	Number             int
	HasShownCompletion bool
}

// Result is the outcome of HandleCompletion.
type Result struct {
	Action Action
	// Attempt is the attempt number to use for the next passage.
	Attempt int
	Message string
	// Submitted is set when a session was sent to the backend.
	Submitted bool
	// Recorded holds the backend's answer when the submission succeeded.
	Recorded *model.SessionResult
	XPDelta  int
	// Err is a non-fatal submission failure. Play continues regardless.
	Err error
}

// SubmitFunc records a completed session.
type SubmitFunc func(ctx context.Context, sub model.SessionSubmission) (model.SessionResult, error)

// HandleCompletion applies the completion policy for a finished passage.
// The daily state is updated in place.
func HandleCompletion(ctx context.Context, mode model.Mode, perf stats.PerformanceStats, state *ProgressState, at Attempt, submit SubmitFunc, now time.Time) Result {
	attempt := at.Number
	if attempt < 1 {
		attempt = 1
	}
	if mode != model.ModeDaily {
		res := Result{Action: ActionLoadNewText, Attempt: 1}
		res.submit(ctx, submit, model.SessionSubmission{
			Mode:           model.ModeEndless,
			WPM:            perf.FinalWPM,
			TotalWords:     perf.TotalWords(),
			CorrectWords:   perf.CorrectWords,
			IncorrectWords: perf.IncorrectWords,
		})
		if res.Err != nil {
			res.Message = fmt.Sprintf("%d WPM. Session not saved: %v", perf.FinalWPM, res.Err)
		} else {
			res.Message = fmt.Sprintf("%d WPM. +%d XP", perf.FinalWPM, res.XPDelta)
		}
		return res
	}

	opponent := Opponent(state.CurrentDifficulty)
	if perf.IncorrectWords >= FailureThreshold {
		return Result{
			Action:  ActionRetry,
			Attempt: attempt + 1,
			Message: fmt.Sprintf("Attempt %d: the %s defeated you with %d incorrect words (max %d). Try again!",
				attempt, opponent, perf.IncorrectWords, FailureThreshold-1),
		}
	}

	recorded := state.RecordQuote(perf.FinalWPM, attempt, now)
	if !recorded || !state.IsCompleted || at.HasShownCompletion {
		return Result{
			Action:  ActionNextQuote,
			Attempt: 1,
			Message: fmt.Sprintf("%s defeated at %d WPM on attempt %d!", opponent, perf.FinalWPM, attempt),
		}
	}

	avg := state.RoundedAverageWPM()
	res := Result{Action: ActionShowModal, Attempt: 1}
	res.submit(ctx, submit, model.SessionSubmission{
		Mode:           model.ModeDaily,
		WPM:            avg,
		TotalWords:     perf.TotalWords(),
		CorrectWords:   perf.CorrectWords,
		IncorrectWords: perf.IncorrectWords,
	})
	if res.Err != nil {
		res.Message = fmt.Sprintf("Daily challenge complete at %d WPM average. Result not saved: %v", avg, res.Err)
	} else {
		res.Message = fmt.Sprintf("Daily challenge complete at %d WPM average. +%d XP", avg, res.XPDelta)
	}
	return res
}

func (r *Result) submit(ctx context.Context, submit SubmitFunc, sub model.SessionSubmission) {
	if submit == nil {
		return
	}
	r.Submitted = true
	recorded, err := submit(ctx, sub)
	if err != nil {
		r.Err = err
		return
	}
	r.Recorded = &recorded
	r.XPDelta = recorded.Session.XPDelta
}
