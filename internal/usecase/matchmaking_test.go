package usecase

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/arena-backend/internal/apperror"
	"github.com/rocketscienceinc/arena-backend/internal/entity"
)

func entry(identity, connID string) queueEntry {
	return queueEntry{identity: identity, connID: connID, displayName: identity}
}

func TestMatchmaking_Pair(t *testing.T) {
	t.Run("First joiner waits, second is paired with it", func(t *testing.T) {
		queue := NewMatchmaking(entity.TicTacToe, entity.Caro)

		_, paired, err := queue.Pair(entity.TicTacToe, entry("alice", "c1"))
		require.NoError(t, err)
		assert.False(t, paired)
		assert.Equal(t, 1, queue.Len(entity.TicTacToe))

		opponent, paired, err := queue.Pair(entity.TicTacToe, entry("bob", "c2"))
		require.NoError(t, err)
		assert.True(t, paired)
		assert.Equal(t, "alice", opponent.identity)
		assert.Equal(t, 0, queue.Len(entity.TicTacToe))
	})

	t.Run("Queues never mix game types", func(t *testing.T) {
		queue := NewMatchmaking(entity.TicTacToe, entity.Caro)

		_, _, err := queue.Pair(entity.TicTacToe, entry("alice", "c1"))
		require.NoError(t, err)

		_, paired, err := queue.Pair(entity.Caro, entry("bob", "c2"))
		require.NoError(t, err)
		assert.False(t, paired)
		assert.Equal(t, 1, queue.Len(entity.TicTacToe))
		assert.Equal(t, 1, queue.Len(entity.Caro))
	})

	t.Run("Same identity is never paired with itself", func(t *testing.T) {
		// Given: alice waits on one connection
		queue := NewMatchmaking(entity.TicTacToe)
		_, _, err := queue.Pair(entity.TicTacToe, entry("alice", "c1"))
		require.NoError(t, err)

		// When: alice joins again from another tab
		_, paired, err := queue.Pair(entity.TicTacToe, entry("alice", "c2"))

		// Then: no pair, the new connection waits instead
		require.ErrorIs(t, err, apperror.ErrSelfMatch)
		assert.False(t, paired)
		assert.Equal(t, 1, queue.Len(entity.TicTacToe))

		opponent, paired, err := queue.Pair(entity.TicTacToe, entry("bob", "c3"))
		require.NoError(t, err)
		require.True(t, paired)
		assert.Equal(t, "c2", opponent.connID)
	})

	t.Run("Pairing is first in first out", func(t *testing.T) {
		queue := NewMatchmaking(entity.Caro)
		_, _, _ = queue.Pair(entity.Caro, entry("alice", "c1"))

		first, _, err := queue.Pair(entity.Caro, entry("bob", "c2"))
		require.NoError(t, err)
		assert.Equal(t, "alice", first.identity)

		_, paired, err := queue.Pair(entity.Caro, entry("carol", "c3"))
		require.NoError(t, err)
		assert.False(t, paired)
	})

	t.Run("Unknown game type", func(t *testing.T) {
		queue := NewMatchmaking(entity.TicTacToe)

		_, _, err := queue.Pair(entity.Caro, entry("alice", "c1"))

		assert.ErrorIs(t, err, apperror.ErrUnsupportedGame)
	})

	t.Run("Concurrent joins never share a waiting entry", func(t *testing.T) {
		queue := NewMatchmaking(entity.TicTacToe)

		var (
			wg    sync.WaitGroup
			pairs atomic.Int32
			mu    sync.Mutex
			taken = map[string]int{}
		)

		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()

				opponent, paired, err := queue.Pair(entity.TicTacToe, entry(fmt.Sprintf("p%d", i), fmt.Sprintf("c%d", i)))
				if err != nil || !paired {
					return
				}

				pairs.Add(1)
				mu.Lock()
				taken[opponent.connID]++
				mu.Unlock()
			}(i)
		}
		wg.Wait()

		assert.Equal(t, int32(50), pairs.Load())
		for connID, times := range taken {
			assert.Equal(t, 1, times, connID)
		}
	})
}

func TestMatchmaking_Cancel(t *testing.T) {
	queue := NewMatchmaking(entity.TicTacToe, entity.Caro)
	_, _, _ = queue.Pair(entity.TicTacToe, entry("alice", "c1"))
	_, _, _ = queue.Pair(entity.Caro, entry("alice", "c1"))

	assert.Equal(t, 2, queue.Cancel("c1"))
	assert.Equal(t, 0, queue.Cancel("c1"))

	_, paired, err := queue.Pair(entity.TicTacToe, entry("bob", "c2"))
	require.NoError(t, err)
	assert.False(t, paired)
}

func TestConnectionTracker(t *testing.T) {
	t.Run("Only open connections can be bound", func(t *testing.T) {
		tracker := NewConnectionTracker()

		require.ErrorIs(t, tracker.Bind("c1", "room"), apperror.ErrUnknownConnection)

		tracker.Register("c1")
		require.NoError(t, tracker.Bind("c1", "room"))

		roomID, ok := tracker.Room("c1")
		assert.True(t, ok)
		assert.Equal(t, "room", roomID)
	})

	t.Run("Release ignores a different room", func(t *testing.T) {
		tracker := NewConnectionTracker()
		tracker.Register("c1")
		require.NoError(t, tracker.Bind("c1", "new"))

		tracker.Release("c1", "old")
		_, ok := tracker.Room("c1")
		assert.True(t, ok)

		tracker.Release("c1", "new")
		_, ok = tracker.Room("c1")
		assert.False(t, ok)
		assert.True(t, tracker.IsOpen("c1"))
	})

	t.Run("Unregister returns the room once", func(t *testing.T) {
		tracker := NewConnectionTracker()
		tracker.Register("c1")
		require.NoError(t, tracker.Bind("c1", "room"))

		roomID, ok := tracker.Unregister("c1")
		assert.True(t, ok)
		assert.Equal(t, "room", roomID)

		_, ok = tracker.Unregister("c1")
		assert.False(t, ok)
		assert.False(t, tracker.IsOpen("c1"))
	})
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry()
	session := newRankedSession()

	registry.Add(session)
	got, ok := registry.Get(session.ID())
	require.True(t, ok)
	assert.Same(t, session, got)
	assert.Equal(t, 1, registry.Len())

	assert.True(t, registry.Remove(session.ID()))
	assert.False(t, registry.Remove(session.ID()))
	_, ok = registry.Get(session.ID())
	assert.False(t, ok)
}
