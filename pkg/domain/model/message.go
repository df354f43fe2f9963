package model

import (
	"time"

	"github.com/secmon-lab/briareus/pkg/domain/types"
)

// RawMessage is one message as returned by the upstream history fetch,
// before transformation
type RawMessage struct {
	Timestamp string
	ThreadTS  string
	UserID    string
	Text      string
	SubType   string
	Files     []FileRef
}

// FileRef identifies an attachment within a message
type FileRef struct {
	ID       string
	Name     string
	MimeType string
	Size     int64
	// URLPrivate is the authenticated download URL provided by Slack
	URLPrivate string
}

// Message is the transformed, storable form of a message
type Message struct {
	ChannelID     types.ChannelID   `json:"channel_id"`
	WorkspaceID   types.WorkspaceID `json:"workspace_id"`
	Timestamp     string            `json:"ts"`
	ThreadTS      string            `json:"thread_ts,omitempty"`
	UserID        string            `json:"user_id"`
	Text          string            `json:"text"`
	SearchContent string            `json:"search_content"`
	CreatedAt     time.Time         `json:"created_at"`
}

// Attachment is the extracted, storable form of a file reference
type Attachment struct {
	FileID      string
	ChannelID   types.ChannelID
	MessageTS   string
	Name        string
	MimeType    string
	Content     string
	ContentSize int64
	ExtractedAt time.Time
}

// HistoryPage is one page of a paginated history fetch
type HistoryPage struct {
	Messages   []RawMessage
	HasMore    bool
	NextCursor string
}
