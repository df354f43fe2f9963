package interfaces

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/briareus/pkg/domain/model"
	"github.com/secmon-lab/briareus/pkg/domain/types"
)

// ErrSyncStateNotFound is returned when no sync state exists for a channel
var ErrSyncStateNotFound = goerr.New("sync state not found")

// SyncStateFilter narrows ListSyncStates results. Zero value matches all.
type SyncStateFilter struct {
	Status   types.SyncStatus
	IsActive *bool
}

// SyncStateRepository is the transactional per-channel sync state store.
// Each channel's row is updated independently; no cross-channel
// serializability is assumed.
type SyncStateRepository interface {
	// Get retrieves the sync state for a channel.
	// Returns ErrSyncStateNotFound when the channel has never been synced.
	Get(ctx context.Context, channelID types.ChannelID) (*model.SyncState, error)

	// Upsert applies a partial update, creating the row on first use
	Upsert(ctx context.Context, channelID types.ChannelID, update *model.SyncStateUpdate) error

	// ListAll returns sync states matching the filter
	ListAll(ctx context.Context, filter SyncStateFilter) ([]*model.SyncState, error)
}
