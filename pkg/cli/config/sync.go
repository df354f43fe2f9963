package config

import (
	"time"

	"github.com/secmon-lab/briareus/pkg/domain/model"
	"github.com/urfave/cli/v3"
)

// Sync holds CLI flags for sync engine tuning
type Sync struct {
	interval        time.Duration
	batchSize       int
	maxPages        int
	channelCacheTTL time.Duration
	archiveBucket   string
}

func (x *Sync) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.DurationFlag{
			Name:        "sync-interval",
			Usage:       "Interval between scheduled incremental syncs (0 disables the scheduler)",
			Category:    "Sync",
			Value:       10 * time.Minute,
			Sources:     cli.EnvVars("BRIAREUS_SYNC_INTERVAL"),
			Destination: &x.interval,
		},
		&cli.IntFlag{
			Name:        "sync-batch-size",
			Usage:       "History page size per request (max 200)",
			Category:    "Sync",
			Value:       model.DefaultBatchSize,
			Sources:     cli.EnvVars("BRIAREUS_SYNC_BATCH_SIZE"),
			Destination: &x.batchSize,
		},
		&cli.IntFlag{
			Name:        "sync-max-pages",
			Usage:       "Page limit per channel invocation, bounds a single run's duration",
			Category:    "Sync",
			Value:       model.DefaultMaxPages,
			Sources:     cli.EnvVars("BRIAREUS_SYNC_MAX_PAGES"),
			Destination: &x.maxPages,
		},
		&cli.DurationFlag{
			Name:        "channel-cache-ttl",
			Usage:       "TTL of the accessible channel cache",
			Category:    "Sync",
			Value:       5 * time.Minute,
			Sources:     cli.EnvVars("BRIAREUS_CHANNEL_CACHE_TTL"),
			Destination: &x.channelCacheTTL,
		},
		&cli.StringFlag{
			Name:        "archive-bucket",
			Usage:       "GCS bucket for raw attachment archival (optional)",
			Category:    "Sync",
			Sources:     cli.EnvVars("BRIAREUS_ARCHIVE_BUCKET"),
			Destination: &x.archiveBucket,
		},
	}
}

// Interval returns the scheduler interval, zero when disabled
func (x *Sync) Interval() time.Duration {
	return x.interval
}

// ChannelCacheTTL returns the accessible channel cache TTL
func (x *Sync) ChannelCacheTTL() time.Duration {
	return x.channelCacheTTL
}

// ArchiveBucket returns the GCS bucket name, empty when archival is disabled
func (x *Sync) ArchiveBucket() string {
	return x.archiveBucket
}

// Options builds the default sync options from the flags
func (x *Sync) Options() model.SyncOptions {
	return model.SyncOptions{
		BatchSize: x.batchSize,
		MaxPages:  x.maxPages,
	}.Normalize()
}
