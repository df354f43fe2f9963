package connector

import (
	"sync"

	"github.com/secmon-lab/briareus/pkg/domain/types"
)

// channelLocker is a keyed try-lock pool guaranteeing at most one sync in
// flight per channel. Locks are tracked as map entries rather than allocated
// per call, so acquisition never blocks: a held channel reports busy.
type channelLocker struct {
	mu   sync.Mutex
	held map[types.ChannelID]struct{}
}

func newChannelLocker() *channelLocker {
	return &channelLocker{
		held: make(map[types.ChannelID]struct{}),
	}
}

// TryAcquire takes the channel's lock if free. Returns false when another
// sync holds it.
func (l *channelLocker) TryAcquire(channelID types.ChannelID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.held[channelID]; ok {
		return false
	}
	l.held[channelID] = struct{}{}
	return true
}

// Release frees the channel's lock. Releasing an unheld lock is a no-op.
func (l *channelLocker) Release(channelID types.ChannelID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, channelID)
}

// ReleaseAll frees every held lock, used on connector shutdown
func (l *channelLocker) ReleaseAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	clear(l.held)
}
