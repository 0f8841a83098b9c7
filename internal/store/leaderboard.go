package store

import (
	"context"
	"fmt"

	"github.com/verte-zerg/typerpg/internal/model"
)

// LevelLeaderboard ranks players by level, then XP, then user id.
func (s *Store) LevelLeaderboard(ctx context.Context, limit, offset int) ([]model.LevelEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, username, level, xp, updated_at
		 FROM players
		 ORDER BY level DESC, xp DESC, user_id ASC
		 LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to load level leaderboard: %w", err)
	}
	defer closeRows(rows)

	var entries []model.LevelEntry
	for rows.Next() {
		var e model.LevelEntry
		var updatedAt string
		if err := rows.Scan(&e.UserID, &e.Username, &e.Level, &e.XP, &updatedAt); err != nil {
			return nil, err
		}
		ts, err := parseTime(updatedAt)
		if err != nil {
			return nil, err
		}
		e.UpdatedAt = &ts
		e.Rank = offset + len(entries) + 1
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// DailyWPMLeaderboard ranks the latest daily session of each player on the
// given UTC day (YYYY-MM-DD) by WPM, earlier finishers first on ties.
func (s *Store) DailyWPMLeaderboard(ctx context.Context, day string, limit, offset int) ([]model.WPMEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`WITH latest AS (
			SELECT user_id, wpm, created_at,
				ROW_NUMBER() OVER (PARTITION BY user_id ORDER BY created_at DESC, id DESC) AS rn
			FROM game_sessions
			WHERE mode = 'daily' AND day = ?
		)
		SELECT l.user_id, COALESCE(p.username, l.user_id), l.wpm
		FROM latest l
		LEFT JOIN players p ON p.user_id = l.user_id
		WHERE l.rn = 1
		ORDER BY l.wpm DESC, l.created_at ASC
		LIMIT ? OFFSET ?`, day, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to load daily leaderboard: %w", err)
	}
	defer closeRows(rows)

	var entries []model.WPMEntry
	for rows.Next() {
		var e model.WPMEntry
		if err := rows.Scan(&e.UserID, &e.Username, &e.WPM); err != nil {
			return nil, err
		}
		e.Rank = offset + len(entries) + 1
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
