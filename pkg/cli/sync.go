package cli

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"

	"github.com/secmon-lab/briareus/pkg/cli/config"
	"github.com/secmon-lab/briareus/pkg/domain/model"
	"github.com/secmon-lab/briareus/pkg/domain/types"
	"github.com/secmon-lab/briareus/pkg/service/archive"
	"github.com/secmon-lab/briareus/pkg/service/connector"
	"github.com/secmon-lab/briareus/pkg/service/transform"
	"github.com/secmon-lab/briareus/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// cmdSync runs a single sync pass and exits, for cron-style deployments
// without a long-lived server
func cmdSync() *cli.Command {
	var channelIDs []string
	var full bool
	var appCfg config.AppConfig
	var repoCfg config.Repository
	var slackCfg config.Slack
	var syncCfg config.Sync

	flags := []cli.Flag{
		&cli.StringSliceFlag{
			Name:        "channel-id",
			Usage:       "Channel IDs to sync (repeatable, default: all accessible channels)",
			Sources:     cli.EnvVars("BRIAREUS_CHANNEL_ID"),
			Destination: &channelIDs,
		},
		&cli.BoolFlag{
			Name:        "full",
			Usage:       "Ignore stored cursors and re-fetch history from the beginning",
			Destination: &full,
		},
	}
	flags = append(flags, appCfg.Flags()...)
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, slackCfg.Flags()...)
	flags = append(flags, syncCfg.Flags()...)

	return &cli.Command{
		Name:  "sync",
		Usage: "Run one sync pass and exit",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()

			if err := appCfg.Load(); err != nil {
				return goerr.Wrap(err, "failed to load app configuration")
			}

			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logger.Error("failed to close repository", "error", err.Error())
				}
			}()

			if err := appCfg.Apply(ctx, repo); err != nil {
				return goerr.Wrap(err, "failed to apply channel overrides")
			}

			client, err := slackCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to configure slack client")
			}

			archiver := archive.New(client.Token(),
				archive.WithBucket(syncCfg.ArchiveBucket()),
			)

			conn, err := connector.New(
				slackCfg.BotToken(),
				client,
				repo,
				transform.New(),
				archiver,
				connector.WithRateLimitTier(slackCfg.RateLimitTier()),
				connector.WithChannelCacheTTL(syncCfg.ChannelCacheTTL()),
			)
			if err != nil {
				return goerr.Wrap(err, "failed to create workspace connector")
			}
			defer func() {
				if err := conn.Close(); err != nil {
					logger.Error("failed to close connector", "error", err.Error())
				}
			}()

			if err := conn.Initialize(ctx); err != nil {
				return goerr.Wrap(err, "failed to initialize workspace connector")
			}

			opts := syncCfg.Options()
			opts.Incremental = !full
			for _, id := range channelIDs {
				opts.ChannelIDs = append(opts.ChannelIDs, types.ChannelID(id))
			}

			outcomes, err := conn.StartSync(ctx, opts)
			if err != nil {
				return goerr.Wrap(err, "sync failed")
			}

			failed := logOutcomes(logger, outcomes)

			if failed > 0 {
				return goerr.New("sync completed with failures",
					goerr.V("failed", failed), goerr.V("total", len(outcomes)))
			}

			logger.Info("sync completed", "channels", len(outcomes))
			return nil
		},
	}
}

// logOutcomes logs one line per channel outcome and returns the number of
// channels that ended in error
func logOutcomes(logger *slog.Logger, outcomes []*model.ChannelOutcome) int {
	var failed int
	for _, o := range outcomes {
		attrs := []any{
			"channel_id", o.ChannelID,
			"status", o.Status,
		}
		if o.Result != nil {
			attrs = append(attrs,
				"messages", o.Result.MessagesSynced,
				"attachments", o.Result.AttachmentsSynced,
				"duration", o.Result.Duration.String(),
			)
		}
		switch o.Status {
		case model.OutcomeError:
			failed++
			if o.Error != "" {
				attrs = append(attrs, "error", o.Error)
			}
			logger.Error("channel sync failed", attrs...)
		default:
			logger.Info("channel sync finished", attrs...)
		}
	}
	return failed
}
