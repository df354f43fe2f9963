package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/briareus/pkg/domain/interfaces"
	"github.com/secmon-lab/briareus/pkg/domain/model"
	"github.com/secmon-lab/briareus/pkg/domain/types"
)

type messageRepository struct {
	mu          sync.RWMutex
	messages    map[types.ChannelID]map[string]*model.Message
	attachments map[string]*model.Attachment
}

var _ interfaces.MessageRepository = &messageRepository{}

func newMessageRepository() *messageRepository {
	return &messageRepository{
		messages:    make(map[types.ChannelID]map[string]*model.Message),
		attachments: make(map[string]*model.Attachment),
	}
}

// PutMessage stores one transformed message keyed by channel and timestamp
func (r *messageRepository) PutMessage(ctx context.Context, msg *model.Message) error {
	if msg == nil {
		return goerr.New("message is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	channel, ok := r.messages[msg.ChannelID]
	if !ok {
		channel = make(map[string]*model.Message)
		r.messages[msg.ChannelID] = channel
	}

	msgCopy := *msg
	channel[msg.Timestamp] = &msgCopy
	return nil
}

// PutAttachment stores one extracted attachment keyed by file ID
func (r *messageRepository) PutAttachment(ctx context.Context, att *model.Attachment) error {
	if att == nil {
		return goerr.New("attachment is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	attCopy := *att
	r.attachments[att.FileID] = &attCopy
	return nil
}

// ListMessages returns up to limit stored messages for a channel, newest first
func (r *messageRepository) ListMessages(ctx context.Context, channelID types.ChannelID, limit int) ([]*model.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	msgs := make([]*model.Message, 0, len(r.messages[channelID]))
	for _, msg := range r.messages[channelID] {
		msgCopy := *msg
		msgs = append(msgs, &msgCopy)
	}

	sort.Slice(msgs, func(i, j int) bool {
		return model.CompareCursors(msgs[i].Timestamp, msgs[j].Timestamp) > 0
	})

	if limit > 0 && len(msgs) > limit {
		msgs = msgs[:limit]
	}
	return msgs, nil
}
