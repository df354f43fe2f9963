package cli_test

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/briareus/pkg/cli"
	"github.com/secmon-lab/briareus/pkg/domain/model"
)

func TestRunHelp(t *testing.T) {
	gt.NoError(t, cli.Run(context.Background(), []string{"briareus", "--help"}, "test"))
}

func TestLogOutcomes(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	outcomes := []*model.ChannelOutcome{
		{
			ChannelID: "C001",
			Status:    model.OutcomeSuccess,
			Result: &model.SyncResult{
				MessagesSynced: 3,
				Duration:       2 * time.Second,
			},
		},
		{
			ChannelID: "C002",
			Status:    model.OutcomeError,
			Error:     "history fetch retries exhausted",
		},
		{
			ChannelID: "C003",
			Status:    model.OutcomeAlreadyRunning,
		},
	}

	failed := cli.LogOutcomes(logger, outcomes)
	gt.Value(t, failed).Equal(1)

	out := buf.String()
	gt.Bool(t, strings.Contains(out, "history fetch retries exhausted")).True()
	gt.Bool(t, strings.Contains(out, "channel sync failed")).True()
	gt.Bool(t, strings.Contains(out, "channel sync finished")).True()
}
