package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/verte-zerg/typerpg/internal/model"
)

const sessionColumns = `id, user_id, mode, wpm, total_words, correct_words, incorrect_words, xp_delta, created_at`

// InsertSession appends a completed session and returns it with its id.
// A second daily session for the same user and UTC day fails with
// ErrDuplicateDaily.
func (t *Tx) InsertSession(ctx context.Context, sess model.GameSession) (model.GameSession, error) {
	created := sess.CreatedAt.UTC()
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO game_sessions (user_id, mode, wpm, total_words, correct_words, incorrect_words, xp_delta, day, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.UserID,
		string(sess.Mode),
		sess.WPM,
		sess.TotalWords,
		sess.CorrectWords,
		sess.IncorrectWords,
		sess.XPDelta,
		created.Format("2006-01-02"),
		formatTime(created),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.GameSession{}, ErrDuplicateDaily
		}
		return model.GameSession{}, fmt.Errorf("failed to insert session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.GameSession{}, fmt.Errorf("failed to insert session: %w", err)
	}
	sess.ID = id
	sess.CreatedAt = created
	return sess, nil
}

// LatestDailyAt returns the creation time of the player's most recent daily
// session, or the zero time when there is none.
func (t *Tx) LatestDailyAt(ctx context.Context, userID string) (time.Time, error) {
	return latestDailyAt(ctx, t.tx, userID)
}

// LatestDailyAt returns the creation time of the player's most recent daily
// session, or the zero time when there is none.
func (s *Store) LatestDailyAt(ctx context.Context, userID string) (time.Time, error) {
	return latestDailyAt(ctx, s.db, userID)
}

func latestDailyAt(ctx context.Context, q querier, userID string) (time.Time, error) {
	var createdAt string
	err := q.QueryRowContext(ctx,
		`SELECT created_at FROM game_sessions
		 WHERE user_id = ? AND mode = 'daily'
		 ORDER BY created_at DESC, id DESC
		 LIMIT 1`, userID).Scan(&createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to load latest daily session: %w", err)
	}
	return parseTime(createdAt)
}

// ListSessions returns the player's sessions, newest first.
func (s *Store) ListSessions(ctx context.Context, userID string, limit int) ([]model.GameSession, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM game_sessions
		 WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer closeRows(rows)

	var sessions []model.GameSession
	for rows.Next() {
		var sess model.GameSession
		var mode, createdAt string
		if err := rows.Scan(&sess.ID, &sess.UserID, &mode, &sess.WPM, &sess.TotalWords,
			&sess.CorrectWords, &sess.IncorrectWords, &sess.XPDelta, &createdAt); err != nil {
			return nil, err
		}
		sess.Mode = model.Mode(mode)
		if sess.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}
