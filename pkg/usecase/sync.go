package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/briareus/pkg/domain/interfaces"
	"github.com/secmon-lab/briareus/pkg/domain/model"
	"github.com/secmon-lab/briareus/pkg/domain/types"
	"github.com/secmon-lab/briareus/pkg/service/connector"
)

// SyncUseCase exposes the sync engine to the transport layer
type SyncUseCase struct {
	repo     interfaces.Repository
	registry *connector.Registry
}

func NewSyncUseCase(repo interfaces.Repository, registry *connector.Registry) *SyncUseCase {
	return &SyncUseCase{
		repo:     repo,
		registry: registry,
	}
}

// StartSync runs a sync pass for the workspace
func (u *SyncUseCase) StartSync(ctx context.Context, workspaceID types.WorkspaceID, opts model.SyncOptions) ([]*model.ChannelOutcome, error) {
	conn, err := u.registry.Get(workspaceID)
	if err != nil {
		return nil, err
	}
	return conn.StartSync(ctx, opts)
}

// SyncChannel runs one channel sync for the workspace
func (u *SyncUseCase) SyncChannel(ctx context.Context, workspaceID types.WorkspaceID, channelID types.ChannelID, opts model.SyncOptions) (*model.ChannelOutcome, error) {
	if err := channelID.Validate(); err != nil {
		return nil, err
	}

	conn, err := u.registry.Get(workspaceID)
	if err != nil {
		return nil, err
	}
	return conn.SyncChannel(ctx, channelID, opts)
}

// Status returns the workspace connector's status snapshot
func (u *SyncUseCase) Status(ctx context.Context, workspaceID types.WorkspaceID) (*connector.Status, error) {
	conn, err := u.registry.Get(workspaceID)
	if err != nil {
		return nil, err
	}
	return conn.Status(ctx)
}

// ChannelStatus returns one channel's persisted state with derived health
func (u *SyncUseCase) ChannelStatus(ctx context.Context, workspaceID types.WorkspaceID, channelID types.ChannelID) (*connector.ChannelStatus, error) {
	conn, err := u.registry.Get(workspaceID)
	if err != nil {
		return nil, err
	}
	return conn.ChannelState(ctx, channelID)
}

// Workspaces returns the registered workspace IDs
func (u *SyncUseCase) Workspaces() []types.WorkspaceID {
	return u.registry.Workspaces()
}

// SetChannelActive flips whether full sync passes include the channel
func (u *SyncUseCase) SetChannelActive(ctx context.Context, channelID types.ChannelID, active bool) error {
	if err := channelID.Validate(); err != nil {
		return err
	}

	if err := u.repo.SyncState().Upsert(ctx, channelID, &model.SyncStateUpdate{
		IsActive: &active,
	}); err != nil {
		return goerr.Wrap(err, "failed to update channel activity",
			goerr.V("channel_id", channelID), goerr.V("active", active))
	}
	return nil
}

// RecentMessages returns the latest stored messages for a channel
func (u *SyncUseCase) RecentMessages(ctx context.Context, channelID types.ChannelID, limit int) ([]*model.Message, error) {
	if err := channelID.Validate(); err != nil {
		return nil, err
	}
	return u.repo.Message().ListMessages(ctx, channelID, limit)
}
