package model

import (
	"time"

	"github.com/secmon-lab/briareus/pkg/domain/types"
)

// OutcomeStatus summarizes one channel's sync invocation
type OutcomeStatus string

const (
	OutcomeSuccess        OutcomeStatus = "success"
	OutcomePartial        OutcomeStatus = "partial"
	OutcomeError          OutcomeStatus = "error"
	OutcomeAlreadyRunning OutcomeStatus = "already_running"
	OutcomeSkipped        OutcomeStatus = "skipped"
	OutcomeCancelled      OutcomeStatus = "cancelled"
)

// SyncResult is the ephemeral return value of one channel sync invocation.
// Never persisted; the orchestrator folds it into the aggregate response.
type SyncResult struct {
	MessagesSynced    int64         `json:"messages_synced"`
	AttachmentsSynced int64         `json:"attachments_synced"`
	Cursor            string        `json:"cursor,omitempty"`
	Errors            []string      `json:"errors,omitempty"`
	Warnings          []string      `json:"warnings,omitempty"`
	Duration          time.Duration `json:"duration_ns"`
}

// Status derives the outcome status from the accumulated errors
func (x *SyncResult) Status() OutcomeStatus {
	switch {
	case len(x.Errors) == 0:
		return OutcomeSuccess
	case x.MessagesSynced > 0 || x.AttachmentsSynced > 0:
		return OutcomePartial
	default:
		return OutcomeError
	}
}

// ChannelOutcome is one entry in the aggregate StartSync response
type ChannelOutcome struct {
	ChannelID types.ChannelID `json:"channel_id"`
	Status    OutcomeStatus   `json:"status"`
	Result    *SyncResult     `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// SyncOptions controls one sync pass
type SyncOptions struct {
	// Incremental restricts the fetch to messages newer than the stored cursor
	Incremental bool
	// BatchSize is the page size for history fetches (upstream max 200)
	BatchSize int
	// MaxPages bounds a single invocation's duration
	MaxPages int
	// ChannelIDs, when set, limits the sync to exactly these channels
	ChannelIDs []types.ChannelID
}

const (
	DefaultBatchSize = 200
	DefaultMaxPages  = 10
)

// Normalize fills in defaults for zero values
func (x SyncOptions) Normalize() SyncOptions {
	if x.BatchSize <= 0 || x.BatchSize > DefaultBatchSize {
		x.BatchSize = DefaultBatchSize
	}
	if x.MaxPages <= 0 {
		x.MaxPages = DefaultMaxPages
	}
	return x
}
