package transform_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/briareus/pkg/domain/model"
	"github.com/secmon-lab/briareus/pkg/service/transform"
)

func TestProcessMessage(t *testing.T) {
	p := transform.New()
	ctx := context.Background()

	t.Run("transforms a plain message", func(t *testing.T) {
		raw := &model.RawMessage{
			Timestamp: "1712345678.000100",
			ThreadTS:  "1712345600.000001",
			UserID:    "U001",
			Text:      "Deployment Finished",
		}

		msg, err := p.ProcessMessage(ctx, "C001", raw)
		gt.NoError(t, err).Required()
		gt.Value(t, msg).NotNil()
		gt.Value(t, msg.ChannelID.String()).Equal("C001")
		gt.Value(t, msg.Timestamp).Equal("1712345678.000100")
		gt.Value(t, msg.ThreadTS).Equal("1712345600.000001")
		gt.Value(t, msg.UserID).Equal("U001")
		gt.Value(t, msg.Text).Equal("Deployment Finished")
		gt.Value(t, msg.CreatedAt).Equal(time.Unix(1712345678, 100*int64(time.Microsecond)))
	})

	t.Run("skips content-free subtypes", func(t *testing.T) {
		for _, subType := range []string{"channel_join", "channel_leave", "channel_archive", "bot_add", "bot_remove"} {
			raw := &model.RawMessage{
				Timestamp: "1712345678.000100",
				SubType:   subType,
			}
			msg, err := p.ProcessMessage(ctx, "C001", raw)
			gt.NoError(t, err)
			gt.Value(t, msg).Nil()
		}
	})

	t.Run("search content includes lowercased text and file names", func(t *testing.T) {
		raw := &model.RawMessage{
			Timestamp: "1712345678.000100",
			Text:      "Incident Report",
			Files: []model.FileRef{
				{ID: "F001", Name: "Postmortem.PDF"},
			},
		}

		msg, err := p.ProcessMessage(ctx, "C001", raw)
		gt.NoError(t, err).Required()
		gt.Value(t, msg.SearchContent).Equal("incident report postmortem.pdf")
	})

	t.Run("rejects nil and malformed input", func(t *testing.T) {
		_, err := p.ProcessMessage(ctx, "C001", nil)
		gt.Error(t, err)

		_, err = p.ProcessMessage(ctx, "C001", &model.RawMessage{Text: "no ts"})
		gt.Error(t, err)

		_, err = p.ProcessMessage(ctx, "C001", &model.RawMessage{Timestamp: "not-a-ts"})
		gt.Error(t, err)
	})
}
