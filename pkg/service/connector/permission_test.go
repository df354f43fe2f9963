package connector_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/briareus/pkg/domain/model"
	"github.com/secmon-lab/briareus/pkg/domain/types"
	"github.com/secmon-lab/briareus/pkg/service/connector"
)

func TestPermissionResolver(t *testing.T) {
	ctx := context.Background()

	t.Run("filters to joined unarchived channels", func(t *testing.T) {
		client := &mockClient{}
		client.listFn = func(ctx context.Context) ([]model.Channel, error) {
			return []model.Channel{
				{ID: "C001", IsMember: true},
				{ID: "C002", IsMember: false},
				{ID: "C003", IsMember: true, IsArchived: true},
				{ID: "C004", IsMember: true, Kind: types.ChannelKindPrivate},
			}, nil
		}

		r := connector.NewPermissionResolver(client, "T001")
		channels, err := r.AccessibleChannels(ctx)
		gt.NoError(t, err).Required()
		gt.Array(t, channels).Length(2)

		ok, err := r.CanAccess(ctx, "C001")
		gt.NoError(t, err).Required()
		gt.Bool(t, ok).True()

		ok, err = r.CanAccess(ctx, "C003")
		gt.NoError(t, err).Required()
		gt.Bool(t, ok).False()
	})

	t.Run("serves cache within TTL", func(t *testing.T) {
		var calls int
		client := &mockClient{}
		client.listFn = func(ctx context.Context) ([]model.Channel, error) {
			calls++
			return []model.Channel{{ID: "C001", IsMember: true}}, nil
		}

		r := connector.NewPermissionResolver(client, "T001",
			connector.WithPermissionTTL(time.Hour))

		for i := 0; i < 5; i++ {
			_, err := r.AccessibleChannels(ctx)
			gt.NoError(t, err).Required()
		}
		gt.Value(t, calls).Equal(1)
	})

	t.Run("expired cache refetches", func(t *testing.T) {
		var calls int
		client := &mockClient{}
		client.listFn = func(ctx context.Context) ([]model.Channel, error) {
			calls++
			return []model.Channel{{ID: "C001", IsMember: true}}, nil
		}

		// Zero TTL: every read is stale
		r := connector.NewPermissionResolver(client, "T001",
			connector.WithPermissionTTL(0))

		_, err := r.AccessibleChannels(ctx)
		gt.NoError(t, err).Required()
		_, err = r.AccessibleChannels(ctx)
		gt.NoError(t, err).Required()
		gt.Value(t, calls).Equal(2)
	})

	t.Run("serves stale cache when refresh fails", func(t *testing.T) {
		var fail bool
		var mu sync.Mutex
		client := &mockClient{}
		client.listFn = func(ctx context.Context) ([]model.Channel, error) {
			mu.Lock()
			defer mu.Unlock()
			if fail {
				return nil, goerr.New("upstream down", goerr.T(model.TagTransient))
			}
			return []model.Channel{{ID: "C001", IsMember: true}}, nil
		}

		r := connector.NewPermissionResolver(client, "T001",
			connector.WithPermissionTTL(0))

		channels, err := r.AccessibleChannels(ctx)
		gt.NoError(t, err).Required()
		gt.Array(t, channels).Length(1)

		mu.Lock()
		fail = true
		mu.Unlock()

		channels, err = r.AccessibleChannels(ctx)
		gt.NoError(t, err).Required()
		gt.Array(t, channels).Length(1)
	})

	t.Run("refresh failure with no cache is a permission error", func(t *testing.T) {
		client := &mockClient{}
		client.listFn = func(ctx context.Context) ([]model.Channel, error) {
			return nil, goerr.New("upstream down")
		}

		r := connector.NewPermissionResolver(client, "T001")
		_, err := r.AccessibleChannels(ctx)
		gt.Error(t, err)
		gt.Bool(t, goerr.HasTag(err, model.TagPermission)).True()
	})

	t.Run("ClearCache forces a refetch", func(t *testing.T) {
		var calls int
		client := &mockClient{}
		client.listFn = func(ctx context.Context) ([]model.Channel, error) {
			calls++
			return []model.Channel{{ID: "C001", IsMember: true}}, nil
		}

		r := connector.NewPermissionResolver(client, "T001",
			connector.WithPermissionTTL(time.Hour))

		_, err := r.AccessibleChannels(ctx)
		gt.NoError(t, err).Required()
		r.ClearCache()
		_, err = r.AccessibleChannels(ctx)
		gt.NoError(t, err).Required()
		gt.Value(t, calls).Equal(2)
	})

	t.Run("UpdateWorkspaceID rebinds and drops cache", func(t *testing.T) {
		client := &mockClient{}
		r := connector.NewPermissionResolver(client, "T001")
		r.UpdateWorkspaceID("T002")
		gt.Value(t, r.WorkspaceID()).Equal(types.WorkspaceID("T002"))
	})

	t.Run("unknown channel triggers one refresh when stale", func(t *testing.T) {
		var calls int
		client := &mockClient{}
		client.listFn = func(ctx context.Context) ([]model.Channel, error) {
			calls++
			if calls == 1 {
				return []model.Channel{{ID: "C001", IsMember: true}}, nil
			}
			// The channel appears upstream after the first fetch
			return []model.Channel{
				{ID: "C001", IsMember: true},
				{ID: "C002", IsMember: true},
			}, nil
		}

		r := connector.NewPermissionResolver(client, "T001",
			connector.WithPermissionTTL(0))

		ok, err := r.CanAccess(ctx, "C002")
		gt.NoError(t, err).Required()
		gt.Bool(t, ok).True()
	})
}
