package stats

import (
	"context"

	"github.com/verte-zerg/typerpg/internal/model"
	"github.com/verte-zerg/typerpg/internal/progression"
)

// Source provides the data a report is built from.
type Source interface {
	GetProgress(ctx context.Context, userID string) (model.PlayerProgress, error)
	ListSessions(ctx context.Context, userID string, limit int) ([]model.GameSession, error)
}

// Report contains precomputed data for profile rendering.
type Report struct {
	Progress      model.PlayerProgress
	XPToNextLevel int
	Sessions      []model.GameSession
	Summary       Summary
	Trend         []float64
}

// BuildReport loads a player's progress and recent sessions.
func BuildReport(ctx context.Context, src Source, userID string, limit, window int) (Report, error) {
	progress, err := src.GetProgress(ctx, userID)
	if err != nil {
		return Report{}, err
	}
	sessions, err := src.ListSessions(ctx, userID, limit)
	if err != nil {
		return Report{}, err
	}
	return Report{
		Progress:      progress,
		XPToNextLevel: progression.XPToNextLevel(progress.Level),
		Sessions:      sessions,
		Summary:       Summarize(sessions),
		Trend:         MovingAverage(WPMSeries(sessions), window),
	}, nil
}

// LevelProgress returns the fraction of the current level already earned.
func (r Report) LevelProgress() float64 {
	if r.XPToNextLevel <= 0 {
		return 0
	}
	return float64(r.Progress.XP) / float64(r.XPToNextLevel)
}
