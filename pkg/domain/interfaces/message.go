package interfaces

import (
	"context"

	"github.com/secmon-lab/briareus/pkg/domain/model"
	"github.com/secmon-lab/briareus/pkg/domain/types"
)

// MessageRepository stores transformed messages and extracted attachments
// for downstream search/indexing
type MessageRepository interface {
	// PutMessage stores one transformed message
	PutMessage(ctx context.Context, msg *model.Message) error

	// PutAttachment stores one extracted attachment
	PutAttachment(ctx context.Context, att *model.Attachment) error

	// ListMessages returns up to limit stored messages for a channel,
	// newest first
	ListMessages(ctx context.Context, channelID types.ChannelID, limit int) ([]*model.Message, error)
}
