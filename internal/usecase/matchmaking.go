package usecase

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/rocketscienceinc/arena-backend/internal/apperror"
	"github.com/rocketscienceinc/arena-backend/internal/entity"
)

type queueEntry struct {
	identity    string
	connID      string
	displayName string
	seq         uint64
}

type waitingQueue struct {
	mu      sync.Mutex
	entries []queueEntry
}

// Matchmaking keeps one FIFO queue per game type, each behind its own lock.
type Matchmaking struct {
	queues map[entity.GameType]*waitingQueue
	seq    atomic.Uint64
}

func NewMatchmaking(gameTypes ...entity.GameType) *Matchmaking {
	queues := make(map[entity.GameType]*waitingQueue, len(gameTypes))
	for _, gameType := range gameTypes {
		queues[gameType] = &waitingQueue{}
	}

	return &Matchmaking{queues: queues}
}

// Pair pops the head of the queue for the joiner in one step. It returns the
// opponent when a pair was made; otherwise the joiner is waiting. A head with
// the joiner's own identity is replaced by the joiner and ErrSelfMatch is returned.
func (that *Matchmaking) Pair(gameType entity.GameType, joiner queueEntry) (queueEntry, bool, error) {
	queue, ok := that.queues[gameType]
	if !ok {
		return queueEntry{}, false, apperror.ErrUnsupportedGame
	}

	queue.mu.Lock()
	defer queue.mu.Unlock()

	joiner.seq = that.seq.Add(1)

	if len(queue.entries) == 0 {
		queue.entries = append(queue.entries, joiner)
		return queueEntry{}, false, nil
	}

	head := queue.entries[0]
	queue.entries = queue.entries[1:]

	if head.identity == joiner.identity {
		queue.entries = append(queue.entries, joiner)
		return queueEntry{}, false, apperror.ErrSelfMatch
	}

	return head, true, nil
}

// Cancel drops every waiting entry of the connection and reports how many were removed.
func (that *Matchmaking) Cancel(connID string) int {
	removed := 0

	for _, queue := range that.queues {
		queue.mu.Lock()
		before := len(queue.entries)
		queue.entries = slices.DeleteFunc(queue.entries, func(entry queueEntry) bool {
			return entry.connID == connID
		})
		removed += before - len(queue.entries)
		queue.mu.Unlock()
	}

	return removed
}

func (that *Matchmaking) Len(gameType entity.GameType) int {
	queue, ok := that.queues[gameType]
	if !ok {
		return 0
	}

	queue.mu.Lock()
	defer queue.mu.Unlock()

	return len(queue.entries)
}
