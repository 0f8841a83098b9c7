// Package service records game sessions and serves player progress and
// leaderboards on top of the store.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/verte-zerg/typerpg/internal/daily"
	"github.com/verte-zerg/typerpg/internal/model"
	"github.com/verte-zerg/typerpg/internal/progression"
	"github.com/verte-zerg/typerpg/internal/store"
)

// Errors returned by the service.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("player not found")
)

// Page size limits.
const (
	DefaultSessionLimit     = 20
	DefaultLeaderboardLimit = 50
	MaxLimit                = 100
)

// Service implements the game backend.
type Service struct {
	store *store.Store
	now   func() time.Time
}

// New returns a Service using now as its clock. A nil now uses time.Now.
func New(st *store.Store, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: st, now: now}
}

// Validate checks a session submission.
func Validate(sub model.SessionSubmission) error {
	if _, err := model.ParseMode(string(sub.Mode)); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if sub.WPM < 0 || sub.TotalWords < 0 || sub.CorrectWords < 0 || sub.IncorrectWords < 0 {
		return fmt.Errorf("%w: counts must be non-negative", ErrValidation)
	}
	return nil
}

// CreateSession records a finished session and awards XP. Daily sessions are
// accepted once per UTC day; a repeat fails with *daily.AlreadyCompletedError.
func (s *Service) CreateSession(ctx context.Context, userID, username string, sub model.SessionSubmission) (model.SessionResult, error) {
	if err := Validate(sub); err != nil {
		return model.SessionResult{}, err
	}
	now := s.now().UTC()
	var result model.SessionResult
	err := s.store.InTx(ctx, func(tx *store.Tx) error {
		if sub.Mode == model.ModeDaily {
			last, err := tx.LatestDailyAt(ctx, userID)
			if err != nil {
				return err
			}
			if err := daily.CheckOnce(last, now); err != nil {
				return err
			}
		}
		player, err := tx.EnsurePlayer(ctx, userID, username, progression.StartLevel, progression.StartXP, now)
		if err != nil {
			return err
		}
		delta := progression.CalculateXPDelta(sub.Mode, sub.IncorrectWords, sub.WPM)
		sess, err := tx.InsertSession(ctx, model.GameSession{
			UserID:         userID,
			Mode:           sub.Mode,
			WPM:            sub.WPM,
			TotalWords:     sub.TotalWords,
			CorrectWords:   sub.CorrectWords,
			IncorrectWords: sub.IncorrectWords,
			XPDelta:        delta,
			CreatedAt:      now,
		})
		if errors.Is(err, store.ErrDuplicateDaily) {
			return &daily.AlreadyCompletedError{TimeUntilResetSeconds: daily.TimeUntilReset(now)}
		}
		if err != nil {
			return err
		}
		player.Level, player.XP = progression.ApplyXP(player.Level, player.XP, delta)
		if err := tx.UpdateProgress(ctx, userID, player.Level, player.XP, now); err != nil {
			return err
		}
		player.UpdatedAt = now
		result = model.SessionResult{Session: sess, Progress: player}
		return nil
	})
	if err != nil {
		return model.SessionResult{}, err
	}
	slog.Info("session recorded",
		"user", userID,
		"mode", sub.Mode,
		"wpm", sub.WPM,
		"xp_delta", result.Session.XPDelta,
		"level", result.Progress.Level,
	)
	return result, nil
}

// EnsurePlayer returns the player's progress, creating the player on first use.
func (s *Service) EnsurePlayer(ctx context.Context, userID, username string) (model.PlayerProgress, error) {
	var player model.PlayerProgress
	err := s.store.InTx(ctx, func(tx *store.Tx) error {
		var err error
		player, err = tx.EnsurePlayer(ctx, userID, username, progression.StartLevel, progression.StartXP, s.now())
		return err
	})
	return player, err
}

// GetProgress returns the player's progress or ErrNotFound.
func (s *Service) GetProgress(ctx context.Context, userID string) (model.PlayerProgress, error) {
	p, err := s.store.GetProgress(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return model.PlayerProgress{}, ErrNotFound
	}
	return p, err
}

// GetDailyStatus reports whether the player already finished today's
// challenge and how long until it resets.
func (s *Service) GetDailyStatus(ctx context.Context, userID string) (model.DailyStatus, error) {
	now := s.now()
	last, err := s.store.LatestDailyAt(ctx, userID)
	if err != nil {
		return model.DailyStatus{}, err
	}
	return model.DailyStatus{
		CompletedToday:        daily.CompletedToday(last, now),
		TimeUntilResetSeconds: daily.TimeUntilReset(now),
	}, nil
}

// ListSessions returns the player's recent sessions, newest first.
func (s *Service) ListSessions(ctx context.Context, userID string, limit int) ([]model.GameSession, error) {
	return s.store.ListSessions(ctx, userID, ClampLimit(limit, DefaultSessionLimit))
}

// LevelLeaderboard returns a page of the levels leaderboard.
func (s *Service) LevelLeaderboard(ctx context.Context, limit, offset int) ([]model.LevelEntry, error) {
	return s.store.LevelLeaderboard(ctx, ClampLimit(limit, DefaultLeaderboardLimit), max(offset, 0))
}

// TodayWPMLeaderboard returns a page of today's daily WPM leaderboard.
func (s *Service) TodayWPMLeaderboard(ctx context.Context, limit, offset int) ([]model.WPMEntry, error) {
	return s.store.DailyWPMLeaderboard(ctx, daily.DateKey(s.now()), ClampLimit(limit, DefaultLeaderboardLimit), max(offset, 0))
}

// ClampLimit maps a requested page size into [1, MaxLimit]. Zero or negative
// requests use def.
func ClampLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	return min(limit, MaxLimit)
}

// Player binds the service to one player for in-process play.
type Player struct {
	svc      *Service
	userID   string
	username string
}

// Player returns a handle acting as userID.
func (s *Service) Player(userID, username string) *Player {
	return &Player{svc: s, userID: userID, username: username}
}

// EnsurePlayer creates the player if needed and returns its progress.
func (p *Player) EnsurePlayer(ctx context.Context) (model.PlayerProgress, error) {
	return p.svc.EnsurePlayer(ctx, p.userID, p.username)
}

// DailyStatus reports whether today's daily challenge is done.
func (p *Player) DailyStatus(ctx context.Context) (model.DailyStatus, error) {
	return p.svc.GetDailyStatus(ctx, p.userID)
}

// Submit records a completed session.
func (p *Player) Submit(ctx context.Context, sub model.SessionSubmission) (model.SessionResult, error) {
	return p.svc.CreateSession(ctx, p.userID, p.username, sub)
}
