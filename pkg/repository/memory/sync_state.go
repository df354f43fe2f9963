package memory

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/briareus/pkg/domain/interfaces"
	"github.com/secmon-lab/briareus/pkg/domain/model"
	"github.com/secmon-lab/briareus/pkg/domain/types"
)

type syncStateRepository struct {
	mu     sync.RWMutex
	states map[types.ChannelID]*model.SyncState
}

var _ interfaces.SyncStateRepository = &syncStateRepository{}

func newSyncStateRepository() *syncStateRepository {
	return &syncStateRepository{
		states: make(map[types.ChannelID]*model.SyncState),
	}
}

// Get retrieves the sync state for a channel
func (r *syncStateRepository) Get(ctx context.Context, channelID types.ChannelID) (*model.SyncState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.states[channelID]
	if !ok {
		return nil, goerr.Wrap(interfaces.ErrSyncStateNotFound, "no sync state", goerr.V("channel_id", channelID))
	}

	// Return a copy to prevent external modifications
	stateCopy := *state
	return &stateCopy, nil
}

// Upsert applies a partial update, creating the row on first use
func (r *syncStateRepository) Upsert(ctx context.Context, channelID types.ChannelID, update *model.SyncStateUpdate) error {
	if update == nil {
		return goerr.New("update is nil", goerr.V("channel_id", channelID))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.states[channelID]
	if !ok {
		state = &model.SyncState{
			ChannelID: channelID,
			Status:    types.SyncStatusNotSynced,
			IsActive:  true,
		}
		r.states[channelID] = state
	}

	update.Apply(state, time.Now())
	return nil
}

// ListAll returns sync states matching the filter
func (r *syncStateRepository) ListAll(ctx context.Context, filter interfaces.SyncStateFilter) ([]*model.SyncState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	states := make([]*model.SyncState, 0, len(r.states))
	for _, state := range r.states {
		if filter.Status != "" && state.Status != filter.Status {
			continue
		}
		if filter.IsActive != nil && state.IsActive != *filter.IsActive {
			continue
		}
		stateCopy := *state
		states = append(states, &stateCopy)
	}

	return states, nil
}
