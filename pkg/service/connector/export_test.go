package connector

import (
	"context"
	"time"
)

// SetSleep replaces the sync worker's backoff sleeper so tests can observe
// retry delays without waiting them out
func (c *Connector) SetSleep(f func(ctx context.Context, d time.Duration) error) {
	c.worker.sleep = f
}
