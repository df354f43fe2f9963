package model_test

import (
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/briareus/pkg/domain/model"
	"github.com/secmon-lab/briareus/pkg/domain/types"
)

func TestSyncState_Health(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("nil state is unknown", func(t *testing.T) {
		var state *model.SyncState
		gt.Value(t, state.Health(now)).Equal(types.HealthUnknown)
	})

	t.Run("recent successful sync is healthy", func(t *testing.T) {
		state := &model.SyncState{
			Status:     types.SyncStatusSuccess,
			LastSyncAt: now.Add(-10 * time.Minute),
		}
		gt.Value(t, state.Health(now)).Equal(types.HealthHealthy)
	})

	t.Run("sync older than an hour is stale", func(t *testing.T) {
		state := &model.SyncState{
			Status:     types.SyncStatusSuccess,
			LastSyncAt: now.Add(-2 * time.Hour),
		}
		gt.Value(t, state.Health(now)).Equal(types.HealthStale)
	})

	t.Run("never synced is stale", func(t *testing.T) {
		state := &model.SyncState{Status: types.SyncStatusNotSynced}
		gt.Value(t, state.Health(now)).Equal(types.HealthStale)
	})

	t.Run("any recorded error is warning even when recently synced", func(t *testing.T) {
		state := &model.SyncState{
			Status:     types.SyncStatusSuccess,
			ErrorCount: 2,
			LastSyncAt: now.Add(-5 * time.Minute),
		}
		gt.Value(t, state.Health(now)).Equal(types.HealthWarning)
	})

	t.Run("three consecutive errors is critical", func(t *testing.T) {
		state := &model.SyncState{
			Status:            types.SyncStatusError,
			ErrorCount:        3,
			ConsecutiveErrors: 3,
		}
		gt.Value(t, state.Health(now)).Equal(types.HealthCritical)
	})

	t.Run("critical takes precedence over recent sync", func(t *testing.T) {
		state := &model.SyncState{
			ConsecutiveErrors: 5,
			LastSyncAt:        now.Add(-time.Minute),
		}
		gt.Value(t, state.Health(now)).Equal(types.HealthCritical)
	})
}

func TestCompareCursors(t *testing.T) {
	cases := []struct {
		name string
		a, b string
		want int
	}{
		{"equal", "1712345678.000100", "1712345678.000100", 0},
		{"both empty", "", "", 0},
		{"empty sorts first", "", "1712345678.000100", -1},
		{"empty sorts first reversed", "1712345678.000100", "", 1},
		{"later second wins", "1712345679.000100", "1712345678.999999", 1},
		{"fraction breaks tie", "1712345678.000200", "1712345678.000100", 1},
		{"longer seconds means larger", "10000000000.000000", "9999999999.999999", 1},
		{"missing fraction sorts before", "1712345678", "1712345678.000001", -1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gt.Value(t, model.CompareCursors(tc.a, tc.b)).Equal(tc.want)
			if tc.want != 0 {
				gt.Value(t, model.CompareCursors(tc.b, tc.a)).Equal(-tc.want)
			}
		})
	}
}

func TestSyncStateUpdate_Apply(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("nil fields leave state untouched", func(t *testing.T) {
		state := &model.SyncState{
			ChannelID:    "C001",
			Status:       types.SyncStatusSuccess,
			Cursor:       "1712345678.000100",
			MessageCount: 42,
			IsActive:     true,
		}

		(&model.SyncStateUpdate{}).Apply(state, now)

		gt.Value(t, state.Status).Equal(types.SyncStatusSuccess)
		gt.Value(t, state.Cursor).Equal("1712345678.000100")
		gt.Value(t, state.MessageCount).Equal(int64(42))
		gt.Bool(t, state.IsActive).True()
		gt.Value(t, state.UpdatedAt).Equal(now)
	})

	t.Run("counters accumulate", func(t *testing.T) {
		state := &model.SyncState{MessageCount: 10, AttachmentCount: 2, ErrorCount: 1}

		update := &model.SyncStateUpdate{
			AddMessageCount:    5,
			AddAttachmentCount: 3,
			AddErrorCount:      1,
		}
		update.Apply(state, now)

		gt.Value(t, state.MessageCount).Equal(int64(15))
		gt.Value(t, state.AttachmentCount).Equal(int64(5))
		gt.Value(t, state.ErrorCount).Equal(int64(2))
	})

	t.Run("cursor only advances", func(t *testing.T) {
		state := &model.SyncState{Cursor: "1712345678.000200"}

		older := "1712345678.000100"
		(&model.SyncStateUpdate{Cursor: &older}).Apply(state, now)
		gt.Value(t, state.Cursor).Equal("1712345678.000200")

		newer := "1712345679.000000"
		(&model.SyncStateUpdate{Cursor: &newer}).Apply(state, now)
		gt.Value(t, state.Cursor).Equal(newer)
	})

	t.Run("consecutive errors reset on success", func(t *testing.T) {
		state := &model.SyncState{ConsecutiveErrors: 4, ErrorCount: 4}

		zero := int64(0)
		success := types.SyncStatusSuccess
		(&model.SyncStateUpdate{Status: &success, ConsecutiveErrors: &zero}).Apply(state, now)

		gt.Value(t, state.ConsecutiveErrors).Equal(int64(0))
		// Total error count is historical and never reset
		gt.Value(t, state.ErrorCount).Equal(int64(4))
	})
}

func TestSyncResult_Status(t *testing.T) {
	t.Run("no errors is success", func(t *testing.T) {
		r := &model.SyncResult{MessagesSynced: 10}
		gt.Value(t, r.Status()).Equal(model.OutcomeSuccess)
	})

	t.Run("errors with progress is partial", func(t *testing.T) {
		r := &model.SyncResult{MessagesSynced: 3, Errors: []string{"boom"}}
		gt.Value(t, r.Status()).Equal(model.OutcomePartial)
	})

	t.Run("errors without progress is error", func(t *testing.T) {
		r := &model.SyncResult{Errors: []string{"boom"}}
		gt.Value(t, r.Status()).Equal(model.OutcomeError)
	})

	t.Run("warnings alone do not degrade the outcome", func(t *testing.T) {
		r := &model.SyncResult{MessagesSynced: 1, Warnings: []string{"persist lagged"}}
		gt.Value(t, r.Status()).Equal(model.OutcomeSuccess)
	})
}

func TestSyncOptions_Normalize(t *testing.T) {
	t.Run("zero values get defaults", func(t *testing.T) {
		opts := model.SyncOptions{}.Normalize()
		gt.Value(t, opts.BatchSize).Equal(model.DefaultBatchSize)
		gt.Value(t, opts.MaxPages).Equal(model.DefaultMaxPages)
	})

	t.Run("oversized batch is clamped", func(t *testing.T) {
		opts := model.SyncOptions{BatchSize: 1000}.Normalize()
		gt.Value(t, opts.BatchSize).Equal(model.DefaultBatchSize)
	})

	t.Run("explicit values survive", func(t *testing.T) {
		opts := model.SyncOptions{BatchSize: 50, MaxPages: 3}.Normalize()
		gt.Value(t, opts.BatchSize).Equal(50)
		gt.Value(t, opts.MaxPages).Equal(3)
	})
}
