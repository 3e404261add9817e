package schedule

import (
	"sync"

	"github.com/google/uuid"
)

// channelLocks hands out one mutex per channel id so calculate-then-persist,
// rebalance and re-anchor are serialized per channel. Operations on different
// channels never contend.
type channelLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newChannelLocks() *channelLocks {
	return &channelLocks{locks: make(map[uuid.UUID]*sync.Mutex)}
}

// get returns the mutex for a channel, creating it on first use.
// Locks are never removed; the map grows with the channel count, which is
// small for any realistic lineup.
func (l *channelLocks) get(id uuid.UUID) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	if m, ok := l.locks[id]; ok {
		return m
	}
	m := &sync.Mutex{}
	l.locks[id] = m
	return m
}
