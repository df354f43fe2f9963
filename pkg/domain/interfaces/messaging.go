package interfaces

import (
	"context"

	"github.com/secmon-lab/briareus/pkg/domain/model"
	"github.com/secmon-lab/briareus/pkg/domain/types"
)

// HistoryParams constrains a paginated history fetch
type HistoryParams struct {
	// Oldest, when set, limits the fetch to messages newer than this timestamp
	Oldest string
	// Cursor is the upstream pagination cursor for subsequent pages
	Cursor string
	// Limit is the page size
	Limit int
}

// MessagingClient is the upstream workspace API. Implementations must return
// errors tagged with model.TagRateLimit or model.TagTransient so the sync
// worker can distinguish retryable failures.
type MessagingClient interface {
	// AuthTest performs a live capability check and returns the credential's
	// identity and granted scopes
	AuthTest(ctx context.Context) (*model.TokenInfo, error)

	// ListChannels returns all conversations visible to the credential
	ListChannels(ctx context.Context) ([]model.Channel, error)

	// GetChannelInfo fetches metadata for one channel
	GetChannelInfo(ctx context.Context, channelID types.ChannelID) (*model.Channel, error)

	// FetchHistory returns one page of channel history
	FetchHistory(ctx context.Context, channelID types.ChannelID, params HistoryParams) (*model.HistoryPage, error)
}
