package model

import (
	"strings"
	"time"

	"github.com/secmon-lab/briareus/pkg/domain/types"
)

const (
	// healthyWindow is how recent the last successful sync must be for a
	// channel to be classified healthy
	healthyWindow = time.Hour

	// criticalErrorThreshold is the consecutive error count at which a
	// channel is classified critical
	criticalErrorThreshold = 3
)

// SyncState is the persisted per-channel sync bookkeeping. One row per
// channel, created lazily on first sync attempt and never deleted by the
// engine. Field semantics are part of the compatibility surface with the
// storage backend.
type SyncState struct {
	ChannelID         types.ChannelID  `json:"channel_id"`
	Status            types.SyncStatus `json:"status"`
	Cursor            string           `json:"cursor"`
	MessageCount      int64            `json:"message_count"`
	AttachmentCount   int64            `json:"attachment_count"`
	ErrorCount        int64            `json:"error_count"`
	ConsecutiveErrors int64            `json:"consecutive_errors"`
	IsActive          bool             `json:"is_active"`
	LastError         string           `json:"last_error,omitempty"`
	LastErrorAt       time.Time        `json:"last_error_at"`
	LastSyncAt        time.Time        `json:"last_sync_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// Health classifies the channel's sync freshness at read time.
// Classification is a pure function of the counters and now.
func (x *SyncState) Health(now time.Time) types.HealthStatus {
	if x == nil {
		return types.HealthUnknown
	}

	switch {
	case x.ConsecutiveErrors >= criticalErrorThreshold:
		return types.HealthCritical
	case x.ErrorCount > 0:
		return types.HealthWarning
	case !x.LastSyncAt.IsZero() && now.Sub(x.LastSyncAt) <= healthyWindow:
		return types.HealthHealthy
	default:
		return types.HealthStale
	}
}

// SyncStateUpdate is a partial update applied by Upsert. Nil fields are left
// untouched so concurrent channels never clobber each other's counters.
type SyncStateUpdate struct {
	Status             *types.SyncStatus
	Cursor             *string
	AddMessageCount    int64
	AddAttachmentCount int64
	AddErrorCount      int64
	ConsecutiveErrors  *int64
	IsActive           *bool
	LastError          *string
	LastErrorAt        *time.Time
	LastSyncAt         *time.Time
}

// Apply merges the update into the state. The cursor only ever advances.
func (u *SyncStateUpdate) Apply(state *SyncState, now time.Time) {
	if u.Status != nil {
		state.Status = *u.Status
	}
	if u.Cursor != nil && CompareCursors(*u.Cursor, state.Cursor) > 0 {
		state.Cursor = *u.Cursor
	}
	state.MessageCount += u.AddMessageCount
	state.AttachmentCount += u.AddAttachmentCount
	state.ErrorCount += u.AddErrorCount
	if u.ConsecutiveErrors != nil {
		state.ConsecutiveErrors = *u.ConsecutiveErrors
	}
	if u.IsActive != nil {
		state.IsActive = *u.IsActive
	}
	if u.LastError != nil {
		state.LastError = *u.LastError
	}
	if u.LastErrorAt != nil {
		state.LastErrorAt = *u.LastErrorAt
	}
	if u.LastSyncAt != nil {
		state.LastSyncAt = *u.LastSyncAt
	}
	state.UpdatedAt = now
}

// CompareCursors compares two Slack message timestamps ("1712345678.000100")
// numerically. Empty cursors sort before any real cursor. Returns -1, 0 or 1.
func CompareCursors(a, b string) int {
	if a == b {
		return 0
	}
	if a == "" {
		return -1
	}
	if b == "" {
		return 1
	}

	aSec, aFrac := splitTimestamp(a)
	bSec, bFrac := splitTimestamp(b)

	// Seconds are decimal without leading zeros: longer means larger
	if len(aSec) != len(bSec) {
		if len(aSec) < len(bSec) {
			return -1
		}
		return 1
	}
	if c := strings.Compare(aSec, bSec); c != 0 {
		return c
	}
	return strings.Compare(aFrac, bFrac)
}

func splitTimestamp(ts string) (sec, frac string) {
	if idx := strings.IndexByte(ts, '.'); idx >= 0 {
		return ts[:idx], ts[idx+1:]
	}
	return ts, ""
}
