package interfaces

import (
	"context"

	"github.com/secmon-lab/briareus/pkg/domain/model"
	"github.com/secmon-lab/briareus/pkg/domain/types"
)

// MessageProcessor transforms a raw upstream message into its storable form.
// Failures are recorded per message by the caller, never fatal to the page.
type MessageProcessor interface {
	ProcessMessage(ctx context.Context, channelID types.ChannelID, raw *model.RawMessage) (*model.Message, error)
}

// FileExtractor extracts searchable content from message attachments
type FileExtractor interface {
	Initialize(ctx context.Context) error
	ProcessFile(ctx context.Context, channelID types.ChannelID, ref *model.FileRef) (*model.Attachment, error)
	Close() error
}
