package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/typerpg/internal/model"
)

var day = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "typerpg.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func addPlayer(t *testing.T, s *Store, id, name string, level, xp int) {
	t.Helper()
	require.NoError(t, s.InTx(context.Background(), func(tx *Tx) error {
		if _, err := tx.EnsurePlayer(context.Background(), id, name, 1, 0, day); err != nil {
			return err
		}
		return tx.UpdateProgress(context.Background(), id, level, xp, day)
	}))
}

func addSession(t *testing.T, s *Store, sess model.GameSession) error {
	t.Helper()
	return s.InTx(context.Background(), func(tx *Tx) error {
		_, err := tx.InsertSession(context.Background(), sess)
		return err
	})
}

func TestEnsurePlayerCreatesOnce(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.GetProgress(ctx, "u1")
	require.ErrorIs(t, err, ErrNotFound)

	var first model.PlayerProgress
	require.NoError(t, s.InTx(ctx, func(tx *Tx) error {
		var err error
		first, err = tx.EnsurePlayer(ctx, "u1", "", 1, 0, day)
		return err
	}))
	assert.Equal(t, "u1", first.Username, "username falls back to the id")
	assert.Equal(t, 1, first.Level)
	assert.Equal(t, day, first.CreatedAt)

	require.NoError(t, s.InTx(ctx, func(tx *Tx) error {
		_, err := tx.EnsurePlayer(ctx, "u1", "other", 1, 0, day.Add(time.Hour))
		return err
	}))
	got, err := s.GetProgress(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, first, got)
}

func TestUpdateProgressMissingPlayer(t *testing.T) {
	s := openTestStore(t)
	err := s.InTx(context.Background(), func(tx *Tx) error {
		return tx.UpdateProgress(context.Background(), "ghost", 2, 3, day)
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInTxRollsBack(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")
	err := s.InTx(ctx, func(tx *Tx) error {
		if _, err := tx.EnsurePlayer(ctx, "u1", "ana", 1, 0, day); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	_, err = s.GetProgress(ctx, "u1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDailySessionUniquePerDay(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	daily := model.GameSession{UserID: "u1", Mode: model.ModeDaily, WPM: 50, TotalWords: 10, CorrectWords: 10, XPDelta: 416, CreatedAt: day}

	require.NoError(t, addSession(t, s, daily))
	later := daily
	later.CreatedAt = day.Add(10 * time.Hour)
	assert.ErrorIs(t, addSession(t, s, later), ErrDuplicateDaily)

	tomorrow := daily
	tomorrow.CreatedAt = day.Add(24 * time.Hour)
	require.NoError(t, addSession(t, s, tomorrow))

	endless := daily
	endless.Mode = model.ModeEndless
	require.NoError(t, addSession(t, s, endless))
	require.NoError(t, addSession(t, s, endless))

	last, err := s.LatestDailyAt(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, tomorrow.CreatedAt, last)

	none, err := s.LatestDailyAt(ctx, "u2")
	require.NoError(t, err)
	assert.True(t, none.IsZero())
}

func TestListSessionsNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, addSession(t, s, model.GameSession{
			UserID: "u1", Mode: model.ModeEndless, WPM: 40 + i, CreatedAt: day.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, addSession(t, s, model.GameSession{UserID: "u2", Mode: model.ModeEndless, WPM: 99, CreatedAt: day}))

	sessions, err := s.ListSessions(ctx, "u1", 3)
	require.NoError(t, err)
	require.Len(t, sessions, 3)
	assert.Equal(t, []int{44, 43, 42}, []int{sessions[0].WPM, sessions[1].WPM, sessions[2].WPM})
	assert.Equal(t, model.ModeEndless, sessions[0].Mode)
	assert.NotZero(t, sessions[0].ID)

	empty, err := s.ListSessions(ctx, "u1", 0)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestLevelLeaderboardOrdering(t *testing.T) {
	s := openTestStore(t)
	addPlayer(t, s, "c", "cleo", 3, 5)
	addPlayer(t, s, "a", "ana", 3, 5)
	addPlayer(t, s, "b", "bob", 4, 0)
	addPlayer(t, s, "d", "dan", 3, 9)

	entries, err := s.LevelLeaderboard(context.Background(), 10, 0)
	require.NoError(t, err)
	var ids []string
	for _, e := range entries {
		ids = append(ids, e.UserID)
	}
	assert.Equal(t, []string{"b", "d", "a", "c"}, ids)
	assert.Equal(t, 1, entries[0].Rank)
	require.NotNil(t, entries[0].UpdatedAt)

	page, err := s.LevelLeaderboard(context.Background(), 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "a", page[0].UserID)
	assert.Equal(t, 3, page[0].Rank)
}

func TestDailyWPMLeaderboard(t *testing.T) {
	s := openTestStore(t)
	addPlayer(t, s, "a", "ana", 1, 0)
	addPlayer(t, s, "b", "bob", 1, 0)
	require.NoError(t, addSession(t, s, model.GameSession{UserID: "a", Mode: model.ModeDaily, WPM: 70, CreatedAt: day.Add(time.Hour)}))
	require.NoError(t, addSession(t, s, model.GameSession{UserID: "b", Mode: model.ModeDaily, WPM: 70, CreatedAt: day}))
	require.NoError(t, addSession(t, s, model.GameSession{UserID: "c", Mode: model.ModeDaily, WPM: 90, CreatedAt: day}))
	require.NoError(t, addSession(t, s, model.GameSession{UserID: "a", Mode: model.ModeEndless, WPM: 200, CreatedAt: day}))
	require.NoError(t, addSession(t, s, model.GameSession{UserID: "d", Mode: model.ModeDaily, WPM: 150, CreatedAt: day.Add(-24 * time.Hour)}))

	entries, err := s.DailyWPMLeaderboard(context.Background(), "2024-05-01", 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, model.WPMEntry{Rank: 1, UserID: "c", Username: "c", WPM: 90}, entries[0])
	assert.Equal(t, "bob", entries[1].Username, "earlier finisher wins the tie")
	assert.Equal(t, "ana", entries[2].Username)
}

func TestKVNamespaces(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	a, b := s.KV("a"), s.KV("b")

	require.NoError(t, a.Put(ctx, "daily_progress_2024-05-01", []byte("one")))
	require.NoError(t, a.Put(ctx, "daily_progress_2024-05-01", []byte("two")))
	require.NoError(t, a.Put(ctx, "other", []byte("x")))

	v, ok, err := a.Get(ctx, "daily_progress_2024-05-01")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("two"), v)

	_, ok, err = b.Get(ctx, "daily_progress_2024-05-01")
	require.NoError(t, err)
	assert.False(t, ok)

	keys, err := a.Keys(ctx, "daily_progress_")
	require.NoError(t, err)
	assert.Equal(t, []string{"daily_progress_2024-05-01"}, keys)

	require.NoError(t, a.Delete(ctx, "daily_progress_2024-05-01"))
	require.NoError(t, a.Delete(ctx, "missing"))
	keys, err = a.Keys(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"other"}, keys)
}
