package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/verte-zerg/typerpg/internal/model"
)

const playerColumns = `user_id, username, level, xp, created_at, updated_at`

// GetProgress returns the player's level state or ErrNotFound.
func (s *Store) GetProgress(ctx context.Context, userID string) (model.PlayerProgress, error) {
	return getPlayer(ctx, s.db, userID)
}

// GetPlayer returns the player's level state or ErrNotFound.
func (t *Tx) GetPlayer(ctx context.Context, userID string) (model.PlayerProgress, error) {
	return getPlayer(ctx, t.tx, userID)
}

// EnsurePlayer returns the player, creating it at the starting level when
// it does not exist yet.
func (t *Tx) EnsurePlayer(ctx context.Context, userID, username string, level, xp int, now time.Time) (model.PlayerProgress, error) {
	if username == "" {
		username = userID
	}
	ts := formatTime(now)
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO players (user_id, username, level, xp, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO NOTHING`,
		userID, username, level, xp, ts, ts,
	)
	if err != nil {
		return model.PlayerProgress{}, fmt.Errorf("failed to create player: %w", err)
	}
	return getPlayer(ctx, t.tx, userID)
}

// UpdateProgress stores a new level and XP for the player.
func (t *Tx) UpdateProgress(ctx context.Context, userID string, level, xp int, now time.Time) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE players SET level = ?, xp = ?, updated_at = ? WHERE user_id = ?`,
		level, xp, formatTime(now), userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update progress: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update progress: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func getPlayer(ctx context.Context, q querier, userID string) (model.PlayerProgress, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+playerColumns+` FROM players WHERE user_id = ?`, userID)
	p, err := scanPlayer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.PlayerProgress{}, ErrNotFound
	}
	if err != nil {
		return model.PlayerProgress{}, fmt.Errorf("failed to load player: %w", err)
	}
	return p, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPlayer(sc scanner) (model.PlayerProgress, error) {
	var p model.PlayerProgress
	var createdAt, updatedAt string
	if err := sc.Scan(&p.UserID, &p.Username, &p.Level, &p.XP, &createdAt, &updatedAt); err != nil {
		return model.PlayerProgress{}, err
	}
	var err error
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return model.PlayerProgress{}, err
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return model.PlayerProgress{}, err
	}
	return p, nil
}
