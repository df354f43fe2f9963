package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/secmon-lab/briareus/pkg/cli/config"
	httpctrl "github.com/secmon-lab/briareus/pkg/controller/http"
	"github.com/secmon-lab/briareus/pkg/service/archive"
	"github.com/secmon-lab/briareus/pkg/service/connector"
	"github.com/secmon-lab/briareus/pkg/service/transform"
	"github.com/secmon-lab/briareus/pkg/service/worker"
	"github.com/secmon-lab/briareus/pkg/usecase"
	"github.com/secmon-lab/briareus/pkg/utils/async"
	"github.com/secmon-lab/briareus/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdServe(version string) *cli.Command {
	var addr string
	var appCfg config.AppConfig
	var repoCfg config.Repository
	var slackCfg config.Slack
	var syncCfg config.Sync
	var sentryCfg config.Sentry

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("BRIAREUS_ADDR"),
			Destination: &addr,
		},
	}

	// Add shared config flags
	flags = append(flags, appCfg.Flags()...)
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, slackCfg.Flags()...)
	flags = append(flags, syncCfg.Flags()...)
	flags = append(flags, sentryCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server and background sync",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			flush, err := sentryCfg.Configure(version)
			if err != nil {
				return goerr.Wrap(err, "failed to configure error reporting")
			}
			defer flush()

			if err := appCfg.Load(); err != nil {
				return goerr.Wrap(err, "failed to load app configuration")
			}

			// Initialize repository based on backend type
			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logging.Default().Error("failed to close repository", "error", err.Error())
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
			if syncCfg.ArchiveBucket() != "" {
				logging.Default().Info("Attachment archival enabled", "bucket", syncCfg.ArchiveBucket())
			}

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

			if err := conn.Initialize(ctx); err != nil {
				return goerr.Wrap(err, "failed to initialize workspace connector")
			}

			registry := connector.NewRegistry()
			registry.Register(conn.WorkspaceID(), conn)
			defer func() {
				if err := registry.Close(); err != nil {
					logging.Default().Error("failed to close connectors", "error", err.Error())
				}
			}()

			uc := usecase.New(repo, registry)

			// Start periodic sync unless disabled
			var scheduler *worker.SyncScheduler
			if syncCfg.Interval() > 0 {
				scheduler = worker.NewSyncScheduler(registry, syncCfg.Interval(), syncCfg.Options())
				if err := scheduler.Start(ctx); err != nil {
					return goerr.Wrap(err, "failed to start sync scheduler")
				}
			} else {
				logging.Default().Info("Sync scheduler disabled, sync runs only on demand")
			}

			server := &http.Server{
				Addr:              addr,
				Handler:           httpctrl.New(uc),
				ReadHeaderTimeout: 30 * time.Second,
			}

			// Setup signal handling for graceful shutdown
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error, 1)
			async.Dispatch(ctx, func(ctx context.Context) error {
				logging.From(ctx).Info("Starting HTTP server", "addr", addr)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
				return nil
			})

			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)

				// Stop the scheduler before the connectors it drives
				if scheduler != nil {
					scheduler.Stop()
				}

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				logging.Default().Info("Server shutdown completed")
				return nil
			}
		},
	}
}
