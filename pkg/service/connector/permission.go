package connector

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/briareus/pkg/domain/interfaces"
	"github.com/secmon-lab/briareus/pkg/domain/model"
	"github.com/secmon-lab/briareus/pkg/domain/types"
	"github.com/secmon-lab/briareus/pkg/utils/logging"
)

// DefaultPermissionTTL is how long a resolved channel set stays fresh
const DefaultPermissionTTL = 5 * time.Minute

// PermissionResolver computes and caches the set of channels the credential
// may access. The cache is read-mostly; refreshes swap it atomically so
// readers never observe a partial list.
type PermissionResolver struct {
	client interfaces.MessagingClient
	ttl    time.Duration

	mu          sync.RWMutex
	workspaceID types.WorkspaceID
	channels    []model.Channel
	fetchedAt   time.Time
}

// PermissionOption is a functional option for PermissionResolver
type PermissionOption func(*PermissionResolver)

// WithPermissionTTL sets the cache TTL
func WithPermissionTTL(ttl time.Duration) PermissionOption {
	return func(r *PermissionResolver) {
		r.ttl = ttl
	}
}

// NewPermissionResolver creates a resolver bound to one upstream client
func NewPermissionResolver(client interfaces.MessagingClient, workspaceID types.WorkspaceID, opts ...PermissionOption) *PermissionResolver {
	r := &PermissionResolver{
		client:      client,
		ttl:         DefaultPermissionTTL,
		workspaceID: workspaceID,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AccessibleChannels returns the channels the credential is a member of.
// Serves the cached list while fresh; on refresh failure the last good cache
// is served stale rather than failing the caller.
func (r *PermissionResolver) AccessibleChannels(ctx context.Context) ([]model.Channel, error) {
	r.mu.RLock()
	cached, fetchedAt := r.channels, r.fetchedAt
	r.mu.RUnlock()

	if cached != nil && time.Since(fetchedAt) < r.ttl {
		return cached, nil
	}

	channels, err := r.refresh(ctx)
	if err != nil {
		if cached != nil {
			logging.From(ctx).Warn("channel list refresh failed, serving stale cache",
				"workspace_id", r.WorkspaceID(), "age", time.Since(fetchedAt).String(), "error", err.Error())
			return cached, nil
		}
		return nil, goerr.Wrap(err, "failed to resolve accessible channels",
			goerr.V("workspace_id", r.WorkspaceID()), goerr.T(model.TagPermission))
	}

	return channels, nil
}

// CanAccess reports whether the channel is in the accessible set. An unknown
// channel triggers a refresh when the cache is stale.
func (r *PermissionResolver) CanAccess(ctx context.Context, channelID types.ChannelID) (bool, error) {
	channels, err := r.AccessibleChannels(ctx)
	if err != nil {
		return false, err
	}

	for _, ch := range channels {
		if ch.ID == channelID {
			return true, nil
		}
	}

	// Unknown channel: the cache may predate the channel, force one refresh
	r.mu.RLock()
	stale := time.Since(r.fetchedAt) >= r.ttl
	r.mu.RUnlock()
	if stale {
		channels, err = r.refresh(ctx)
		if err != nil {
			return false, goerr.Wrap(err, "failed to refresh channel cache",
				goerr.V("channel_id", channelID), goerr.T(model.TagPermission))
		}
		for _, ch := range channels {
			if ch.ID == channelID {
				return true, nil
			}
		}
	}

	return false, nil
}

// ClearCache drops the cached channel list, forcing a refetch on next read
func (r *PermissionResolver) ClearCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels = nil
	r.fetchedAt = time.Time{}
}

// UpdateWorkspaceID rebinds the resolver to a workspace and drops the cache
func (r *PermissionResolver) UpdateWorkspaceID(workspaceID types.WorkspaceID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.workspaceID = workspaceID
	r.channels = nil
	r.fetchedAt = time.Time{}
}

// WorkspaceID returns the workspace the resolver is bound to
func (r *PermissionResolver) WorkspaceID() types.WorkspaceID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.workspaceID
}

// refresh refetches the channel list and swaps the cache atomically
func (r *PermissionResolver) refresh(ctx context.Context) ([]model.Channel, error) {
	all, err := r.client.ListChannels(ctx)
	if err != nil {
		return nil, err
	}

	accessible := make([]model.Channel, 0, len(all))
	for _, ch := range all {
		if ch.IsMember && !ch.IsArchived {
			accessible = append(accessible, ch)
		}
	}

	r.mu.Lock()
	r.channels = accessible
	r.fetchedAt = time.Now()
	r.mu.Unlock()

	return accessible, nil
}
