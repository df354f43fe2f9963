package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/briareus/pkg/domain/interfaces"
	"github.com/secmon-lab/briareus/pkg/domain/model"
	"github.com/secmon-lab/briareus/pkg/domain/types"
	"google.golang.org/api/iterator"
)

const (
	channelsCollection    = "channels"
	messagesCollection    = "messages"
	attachmentsCollection = "attachments"
)

type messageRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

var _ interfaces.MessageRepository = &messageRepository{}

func newMessageRepository(client *firestore.Client) *messageRepository {
	return &messageRepository{
		client: client,
	}
}

// messageDoc is the Firestore persistence model for a transformed message
type messageDoc struct {
	ChannelID     string    `firestore:"channel_id"`
	WorkspaceID   string    `firestore:"workspace_id"`
	Timestamp     string    `firestore:"ts"`
	ThreadTS      string    `firestore:"thread_ts"`
	UserID        string    `firestore:"user_id"`
	Text          string    `firestore:"text"`
	SearchContent string    `firestore:"search_content"`
	CreatedAt     time.Time `firestore:"created_at"`
}

// attachmentDoc is the Firestore persistence model for an extracted attachment
type attachmentDoc struct {
	FileID      string    `firestore:"file_id"`
	ChannelID   string    `firestore:"channel_id"`
	MessageTS   string    `firestore:"message_ts"`
	Name        string    `firestore:"name"`
	MimeType    string    `firestore:"mime_type"`
	Content     string    `firestore:"content"`
	ContentSize int64     `firestore:"content_size"`
	ExtractedAt time.Time `firestore:"extracted_at"`
}

func (r *messageRepository) channelsCollection() *firestore.CollectionRef {
	name := channelsCollection
	if r.collectionPrefix != "" {
		name = r.collectionPrefix + name
	}
	return r.client.Collection(name)
}

func (r *messageRepository) messagesCollection(channelID types.ChannelID) *firestore.CollectionRef {
	return r.channelsCollection().Doc(channelID.String()).Collection(messagesCollection)
}

func (r *messageRepository) attachmentsCollectionRef() *firestore.CollectionRef {
	name := attachmentsCollection
	if r.collectionPrefix != "" {
		name = r.collectionPrefix + name
	}
	return r.client.Collection(name)
}

// PutMessage stores one transformed message in the channel's subcollection,
// keyed by message timestamp so re-syncs are idempotent
func (r *messageRepository) PutMessage(ctx context.Context, msg *model.Message) error {
	if msg == nil {
		return goerr.New("message is nil")
	}

	doc := &messageDoc{
		ChannelID:     msg.ChannelID.String(),
		WorkspaceID:   msg.WorkspaceID.String(),
		Timestamp:     msg.Timestamp,
		ThreadTS:      msg.ThreadTS,
		UserID:        msg.UserID,
		Text:          msg.Text,
		SearchContent: msg.SearchContent,
		CreatedAt:     msg.CreatedAt,
	}

	ref := r.messagesCollection(msg.ChannelID).Doc(msg.Timestamp)
	if _, err := ref.Set(ctx, doc); err != nil {
		return goerr.Wrap(err, "failed to save message",
			goerr.V("channel_id", msg.ChannelID), goerr.V("ts", msg.Timestamp),
			goerr.T(model.TagPersistence))
	}

	return nil
}

// PutAttachment stores one extracted attachment keyed by file ID
func (r *messageRepository) PutAttachment(ctx context.Context, att *model.Attachment) error {
	if att == nil {
		return goerr.New("attachment is nil")
	}

	doc := &attachmentDoc{
		FileID:      att.FileID,
		ChannelID:   att.ChannelID.String(),
		MessageTS:   att.MessageTS,
		Name:        att.Name,
		MimeType:    att.MimeType,
		Content:     att.Content,
		ContentSize: att.ContentSize,
		ExtractedAt: att.ExtractedAt,
	}

	ref := r.attachmentsCollectionRef().Doc(att.FileID)
	if _, err := ref.Set(ctx, doc); err != nil {
		return goerr.Wrap(err, "failed to save attachment",
			goerr.V("file_id", att.FileID), goerr.V("channel_id", att.ChannelID),
			goerr.T(model.TagPersistence))
	}

	return nil
}

// ListMessages returns up to limit stored messages for a channel, newest first
func (r *messageRepository) ListMessages(ctx context.Context, channelID types.ChannelID, limit int) ([]*model.Message, error) {
	query := r.messagesCollection(channelID).OrderBy("ts", firestore.Desc)
	if limit > 0 {
		query = query.Limit(limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var msgs []*model.Message
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list messages",
				goerr.V("channel_id", channelID), goerr.T(model.TagPersistence))
		}

		var doc messageDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to decode message",
				goerr.V("channel_id", channelID), goerr.T(model.TagPersistence))
		}

		msgs = append(msgs, &model.Message{
			ChannelID:     types.ChannelID(doc.ChannelID),
			WorkspaceID:   types.WorkspaceID(doc.WorkspaceID),
			Timestamp:     doc.Timestamp,
			ThreadTS:      doc.ThreadTS,
			UserID:        doc.UserID,
			Text:          doc.Text,
			SearchContent: doc.SearchContent,
			CreatedAt:     doc.CreatedAt,
		})
	}

	return msgs, nil
}
