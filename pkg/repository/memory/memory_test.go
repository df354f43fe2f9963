package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/briareus/pkg/domain/interfaces"
	"github.com/secmon-lab/briareus/pkg/domain/model"
	"github.com/secmon-lab/briareus/pkg/domain/types"
	"github.com/secmon-lab/briareus/pkg/repository/memory"
)

func TestSyncStateRepository(t *testing.T) {
	t.Run("Get returns not found for unknown channel", func(t *testing.T) {
		repo := memory.New()
		_, err := repo.SyncState().Get(context.Background(), "C404")
		gt.Error(t, err)
		gt.Bool(t, errors.Is(err, interfaces.ErrSyncStateNotFound)).True()
	})

	t.Run("Upsert creates row lazily with defaults", func(t *testing.T) {
		repo := memory.New()
		ctx := context.Background()

		running := types.SyncStatusRunning
		err := repo.SyncState().Upsert(ctx, "C001", &model.SyncStateUpdate{Status: &running})
		gt.NoError(t, err).Required()

		state, err := repo.SyncState().Get(ctx, "C001")
		gt.NoError(t, err).Required()
		gt.Value(t, state.ChannelID).Equal(types.ChannelID("C001"))
		gt.Value(t, state.Status).Equal(types.SyncStatusRunning)
		gt.Bool(t, state.IsActive).True()
		gt.Bool(t, state.UpdatedAt.IsZero()).False()
	})

	t.Run("Upsert accumulates counters across invocations", func(t *testing.T) {
		repo := memory.New()
		ctx := context.Background()

		gt.NoError(t, repo.SyncState().Upsert(ctx, "C001", &model.SyncStateUpdate{AddMessageCount: 10})).Required()
		gt.NoError(t, repo.SyncState().Upsert(ctx, "C001", &model.SyncStateUpdate{AddMessageCount: 5, AddAttachmentCount: 2})).Required()

		state, err := repo.SyncState().Get(ctx, "C001")
		gt.NoError(t, err).Required()
		gt.Value(t, state.MessageCount).Equal(int64(15))
		gt.Value(t, state.AttachmentCount).Equal(int64(2))
	})

	t.Run("Upsert rejects nil update", func(t *testing.T) {
		repo := memory.New()
		gt.Error(t, repo.SyncState().Upsert(context.Background(), "C001", nil))
	})

	t.Run("Get returns a copy", func(t *testing.T) {
		repo := memory.New()
		ctx := context.Background()

		gt.NoError(t, repo.SyncState().Upsert(ctx, "C001", &model.SyncStateUpdate{AddMessageCount: 1})).Required()

		state, err := repo.SyncState().Get(ctx, "C001")
		gt.NoError(t, err).Required()
		state.MessageCount = 999

		again, err := repo.SyncState().Get(ctx, "C001")
		gt.NoError(t, err).Required()
		gt.Value(t, again.MessageCount).Equal(int64(1))
	})

	t.Run("ListAll filters by status and active flag", func(t *testing.T) {
		repo := memory.New()
		ctx := context.Background()

		success := types.SyncStatusSuccess
		errored := types.SyncStatusError
		inactive := false

		gt.NoError(t, repo.SyncState().Upsert(ctx, "C001", &model.SyncStateUpdate{Status: &success})).Required()
		gt.NoError(t, repo.SyncState().Upsert(ctx, "C002", &model.SyncStateUpdate{Status: &errored})).Required()
		gt.NoError(t, repo.SyncState().Upsert(ctx, "C003", &model.SyncStateUpdate{Status: &success, IsActive: &inactive})).Required()

		all, err := repo.SyncState().ListAll(ctx, interfaces.SyncStateFilter{})
		gt.NoError(t, err).Required()
		gt.Array(t, all).Length(3)

		succeeded, err := repo.SyncState().ListAll(ctx, interfaces.SyncStateFilter{Status: types.SyncStatusSuccess})
		gt.NoError(t, err).Required()
		gt.Array(t, succeeded).Length(2)

		active := true
		activeSuccess, err := repo.SyncState().ListAll(ctx, interfaces.SyncStateFilter{
			Status:   types.SyncStatusSuccess,
			IsActive: &active,
		})
		gt.NoError(t, err).Required()
		gt.Array(t, activeSuccess).Length(1)
		gt.Value(t, activeSuccess[0].ChannelID).Equal(types.ChannelID("C001"))
	})
}

func TestMessageRepository(t *testing.T) {
	t.Run("PutMessage is idempotent per timestamp", func(t *testing.T) {
		repo := memory.New()
		ctx := context.Background()

		msg := &model.Message{
			ChannelID: "C001",
			Timestamp: "1712345678.000100",
			Text:      "first version",
			CreatedAt: time.Now(),
		}
		gt.NoError(t, repo.Message().PutMessage(ctx, msg)).Required()

		msg2 := *msg
		msg2.Text = "second version"
		gt.NoError(t, repo.Message().PutMessage(ctx, &msg2)).Required()

		msgs, err := repo.Message().ListMessages(ctx, "C001", 0)
		gt.NoError(t, err).Required()
		gt.Array(t, msgs).Length(1)
		gt.Value(t, msgs[0].Text).Equal("second version")
	})

	t.Run("PutMessage rejects nil", func(t *testing.T) {
		repo := memory.New()
		gt.Error(t, repo.Message().PutMessage(context.Background(), nil))
	})

	t.Run("ListMessages returns newest first with limit", func(t *testing.T) {
		repo := memory.New()
		ctx := context.Background()

		for _, ts := range []string{"1712345678.000100", "1712345680.000000", "1712345679.000500"} {
			gt.NoError(t, repo.Message().PutMessage(ctx, &model.Message{
				ChannelID: "C001",
				Timestamp: ts,
			})).Required()
		}

		msgs, err := repo.Message().ListMessages(ctx, "C001", 2)
		gt.NoError(t, err).Required()
		gt.Array(t, msgs).Length(2)
		gt.Value(t, msgs[0].Timestamp).Equal("1712345680.000000")
		gt.Value(t, msgs[1].Timestamp).Equal("1712345679.000500")
	})

	t.Run("PutAttachment keyed by file ID", func(t *testing.T) {
		repo := memory.New()
		ctx := context.Background()

		att := &model.Attachment{
			FileID:    "F001",
			ChannelID: "C001",
			MessageTS: "1712345678.000100",
			Name:      "report.txt",
		}
		gt.NoError(t, repo.Message().PutAttachment(ctx, att)).Required()
		gt.NoError(t, repo.Message().PutAttachment(ctx, att)).Required()
		gt.Error(t, repo.Message().PutAttachment(ctx, nil))
	})
}
