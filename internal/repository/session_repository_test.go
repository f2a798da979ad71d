package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ctchen222/minimax-tic-tac-toe/internal/game"
	"ctchen222/minimax-tic-tac-toe/internal/session"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

var errAbort = errors.New("abort")

// runRepositoryContract exercises the behavior every session.Repository shares.
func runRepositoryContract(t *testing.T, repo session.Repository) {
	ctx := context.Background()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("Create and FindByID round trip", func(t *testing.T) {
		s := session.New("round-trip", now)
		s.UseAI = true
		require.NoError(t, repo.Create(ctx, s))

		got, err := repo.FindByID(ctx, "round-trip")
		require.NoError(t, err)
		assert.Equal(t, s.ID, got.ID)
		assert.True(t, got.UseAI)
		assert.Equal(t, game.NewGame(), got.Game)
		assert.True(t, now.Equal(got.CreatedAt))
	})

	t.Run("Create rejects duplicate ids", func(t *testing.T) {
		require.NoError(t, repo.Create(ctx, session.New("duplicate", now)))
		assert.ErrorIs(t, repo.Create(ctx, session.New("duplicate", now)), ErrSessionExists)
	})

	t.Run("FindByID of unknown session", func(t *testing.T) {
		_, err := repo.FindByID(ctx, "missing")
		assert.ErrorIs(t, err, session.ErrSessionNotFound)
	})

	t.Run("Update persists changes", func(t *testing.T) {
		require.NoError(t, repo.Create(ctx, session.New("update", now)))

		updated, err := repo.Update(ctx, "update", func(s *session.Session) error {
			_, err := s.Game.Place(4)
			return err
		})
		require.NoError(t, err)
		assert.Equal(t, game.PlayerX, updated.Game.Board[4])

		got, err := repo.FindByID(ctx, "update")
		require.NoError(t, err)
		assert.Equal(t, game.PlayerX, got.Game.Board[4])
		assert.Equal(t, game.PlayerO, got.Game.Turn)
	})

	t.Run("Update discards changes when fn fails", func(t *testing.T) {
		require.NoError(t, repo.Create(ctx, session.New("abort", now)))

		_, err := repo.Update(ctx, "abort", func(s *session.Session) error {
			s.UseAI = true
			return errAbort
		})
		assert.ErrorIs(t, err, errAbort)

		got, err := repo.FindByID(ctx, "abort")
		require.NoError(t, err)
		assert.False(t, got.UseAI)
	})

	t.Run("Update of unknown session", func(t *testing.T) {
		_, err := repo.Update(ctx, "missing", func(*session.Session) error { return nil })
		assert.ErrorIs(t, err, session.ErrSessionNotFound)
	})

	t.Run("Concurrent updates are not lost", func(t *testing.T) {
		require.NoError(t, repo.Create(ctx, session.New("concurrent", now)))

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			succeeded int
		)
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := repo.Update(ctx, "concurrent", func(s *session.Session) error {
					s.Scores.X++
					return nil
				})
				if err == nil {
					mu.Lock()
					succeeded++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		got, err := repo.FindByID(ctx, "concurrent")
		require.NoError(t, err)
		assert.Positive(t, succeeded)
		assert.Equal(t, succeeded, got.Scores.X)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, repo.Create(ctx, session.New("delete", now)))
		require.NoError(t, repo.Delete(ctx, "delete"))

		_, err := repo.FindByID(ctx, "delete")
		assert.ErrorIs(t, err, session.ErrSessionNotFound)
		assert.ErrorIs(t, repo.Delete(ctx, "delete"), session.ErrSessionNotFound)
	})
}

func TestMemorySessionRepository(t *testing.T) {
	runRepositoryContract(t, NewMemorySessionRepository(time.Hour))
}

func TestMemorySessionRepository_Expiry(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	repo := NewMemorySessionRepository(time.Minute).(*memorySessionRepository)
	repo.now = func() time.Time { return clock }

	require.NoError(t, repo.Create(ctx, session.New("expiring", clock)))

	clock = clock.Add(50 * time.Second)
	_, err := repo.FindByID(ctx, "expiring")
	require.NoError(t, err, "access before the ttl refreshes the session")

	clock = clock.Add(50 * time.Second)
	_, err = repo.FindByID(ctx, "expiring")
	require.NoError(t, err)

	clock = clock.Add(time.Minute)
	_, err = repo.FindByID(ctx, "expiring")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
	assert.Empty(t, repo.sessions)
}

func TestMemorySessionRepository_CreateSweepsAbandonedSessions(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	repo := NewMemorySessionRepository(2 * time.Minute).(*memorySessionRepository)
	repo.now = func() time.Time { return clock }

	for _, id := range []string{"abandoned-1", "abandoned-2", "abandoned-3"} {
		require.NoError(t, repo.Create(ctx, session.New(id, clock)))
	}

	clock = clock.Add(90 * time.Second)
	require.NoError(t, repo.Create(ctx, session.New("recent", clock)))
	require.Len(t, repo.sessions, 4)

	// Expired now, but the last sweep was too recent.
	clock = clock.Add(30 * time.Second)
	require.NoError(t, repo.Create(ctx, session.New("early", clock)))
	require.Len(t, repo.sessions, 5)

	clock = clock.Add(memorySweepInterval)
	require.NoError(t, repo.Create(ctx, session.New("fresh", clock)))

	assert.Len(t, repo.sessions, 3)
	for _, id := range []string{"recent", "early", "fresh"} {
		assert.Contains(t, repo.sessions, id)
	}
}

func TestRedisSessionRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("starts a redis container")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	opts, err := redis.ParseURL(uri)
	require.NoError(t, err)

	rdb := redis.NewClient(opts)
	t.Cleanup(func() { _ = rdb.Close() })

	repo := NewRedisSessionRepository(rdb, time.Hour)
	runRepositoryContract(t, repo)

	t.Run("Sessions carry a ttl", func(t *testing.T) {
		require.NoError(t, repo.Create(ctx, session.New("ttl", time.Now())))
		ttl, err := rdb.TTL(ctx, sessionKey("ttl")).Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, 59*time.Minute)
	})
}
