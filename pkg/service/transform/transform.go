package transform

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/briareus/pkg/domain/interfaces"
	"github.com/secmon-lab/briareus/pkg/domain/model"
	"github.com/secmon-lab/briareus/pkg/domain/types"
)

// Message subtypes that carry no searchable content
var skippedSubTypes = map[string]struct{}{
	"channel_join":    {},
	"channel_leave":   {},
	"channel_archive": {},
	"bot_add":         {},
	"bot_remove":      {},
}

// Processor is the default message transform collaborator. It normalizes a
// raw upstream message into its storable form and builds the search content
// downstream indexers consume.
type Processor struct{}

var _ interfaces.MessageProcessor = &Processor{}

func New() *Processor {
	return &Processor{}
}

// ProcessMessage transforms one raw message. Returns nil for subtypes that
// carry no content (joins, leaves and the like).
func (p *Processor) ProcessMessage(ctx context.Context, channelID types.ChannelID, raw *model.RawMessage) (*model.Message, error) {
	if raw == nil {
		return nil, goerr.New("raw message is nil")
	}
	if raw.Timestamp == "" {
		return nil, goerr.New("raw message has no timestamp", goerr.V("channel_id", channelID))
	}
	if _, ok := skippedSubTypes[raw.SubType]; ok {
		return nil, nil
	}

	createdAt, err := timestampToTime(raw.Timestamp)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid message timestamp",
			goerr.V("channel_id", channelID), goerr.V("ts", raw.Timestamp))
	}

	return &model.Message{
		ChannelID:     channelID,
		Timestamp:     raw.Timestamp,
		ThreadTS:      raw.ThreadTS,
		UserID:        raw.UserID,
		Text:          raw.Text,
		SearchContent: buildSearchContent(raw),
		CreatedAt:     createdAt,
	}, nil
}

// buildSearchContent flattens the message text and attachment names into a
// single lowercased string for indexing
func buildSearchContent(raw *model.RawMessage) string {
	parts := []string{raw.Text}
	for _, f := range raw.Files {
		parts = append(parts, f.Name)
	}
	return strings.ToLower(strings.TrimSpace(strings.Join(parts, " ")))
}

// timestampToTime converts a Slack timestamp ("1712345678.000100") to time.Time
func timestampToTime(ts string) (time.Time, error) {
	sec := ts
	frac := ""
	if idx := strings.IndexByte(ts, '.'); idx >= 0 {
		sec, frac = ts[:idx], ts[idx+1:]
	}

	secN, err := strconv.ParseInt(sec, 10, 64)
	if err != nil {
		return time.Time{}, err
	}

	var microN int64
	if frac != "" {
		microN, err = strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return time.Time{}, err
		}
	}

	return time.Unix(secN, microN*int64(time.Microsecond)), nil
}
