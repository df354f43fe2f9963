package connector

import (
	"context"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/briareus/pkg/domain/interfaces"
	"github.com/secmon-lab/briareus/pkg/domain/model"
	"github.com/secmon-lab/briareus/pkg/domain/types"
	"github.com/secmon-lab/briareus/pkg/utils/logging"
	"golang.org/x/time/rate"
)

const (
	// maxFetchAttempts bounds retries of a single history page
	maxFetchAttempts = 3

	// baseBackoff is the initial retry delay, doubled on each attempt
	baseBackoff = time.Second
)

// channelSyncWorker performs one channel's incremental or full history
// fetch: pagination, batching, backoff on transient failure and sync state
// bookkeeping. One worker is shared across channels; per-channel exclusion
// comes from the locker.
type channelSyncWorker struct {
	client      interfaces.MessagingClient
	repo        interfaces.Repository
	processor   interfaces.MessageProcessor
	extractor   interfaces.FileExtractor
	limiter     *rate.Limiter
	locker      *channelLocker
	workspaceID types.WorkspaceID

	// test hook, defaults to real sleeping
	sleep func(ctx context.Context, d time.Duration) error
}

func newChannelSyncWorker(
	client interfaces.MessagingClient,
	repo interfaces.Repository,
	processor interfaces.MessageProcessor,
	extractor interfaces.FileExtractor,
	limiter *rate.Limiter,
	locker *channelLocker,
	workspaceID types.WorkspaceID,
) *channelSyncWorker {
	return &channelSyncWorker{
		client:      client,
		repo:        repo,
		processor:   processor,
		extractor:   extractor,
		limiter:     limiter,
		locker:      locker,
		workspaceID: workspaceID,
		sleep:       sleepCtx,
	}
}

// Run executes one sync invocation for the channel. It never returns an
// error: every failure mode is folded into the outcome so that partial
// failure across channels cannot abort a whole sync pass.
func (w *channelSyncWorker) Run(ctx context.Context, channelID types.ChannelID, opts model.SyncOptions) *model.ChannelOutcome {
	opts = opts.Normalize()

	if !w.locker.TryAcquire(channelID) {
		return &model.ChannelOutcome{
			ChannelID: channelID,
			Status:    model.OutcomeAlreadyRunning,
		}
	}
	defer w.locker.Release(channelID)

	logger := logging.From(ctx)
	started := time.Now()
	result := &model.SyncResult{}

	state, err := w.loadState(ctx, channelID)
	if err != nil {
		return w.errorOutcome(ctx, channelID, result, err, state)
	}

	running := types.SyncStatusRunning
	w.persist(ctx, channelID, &model.SyncStateUpdate{Status: &running}, result)

	oldest := ""
	if opts.Incremental && state != nil && state.Cursor != "" {
		oldest = state.Cursor
	}

	maxTS := ""
	pageCursor := ""
	for page := 0; page < opts.MaxPages; page++ {
		history, err := w.fetchPage(ctx, channelID, interfaces.HistoryParams{
			Oldest: oldest,
			Cursor: pageCursor,
			Limit:  opts.BatchSize,
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return w.cancelledOutcome(ctx, channelID, result, state, started)
			}
			return w.errorOutcome(ctx, channelID, result, err, state)
		}

		for i := range history.Messages {
			msg := &history.Messages[i]
			w.processMessage(ctx, channelID, msg, result)
			if model.CompareCursors(msg.Timestamp, maxTS) > 0 {
				maxTS = msg.Timestamp
			}
		}

		if !history.HasMore || history.NextCursor == "" {
			break
		}
		pageCursor = history.NextCursor
	}

	// Every fetch succeeded, so the channel's persisted status and
	// consecutive_errors track fetch-level health only. Message-level
	// transform failures stay in the result's error list and shape the
	// outcome status, not the channel state.
	zero := int64(0)
	success := types.SyncStatusSuccess
	now := time.Now()
	update := &model.SyncStateUpdate{
		Status:             &success,
		ConsecutiveErrors:  &zero,
		AddMessageCount:    result.MessagesSynced,
		AddAttachmentCount: result.AttachmentsSynced,
		LastSyncAt:         &now,
	}
	if maxTS != "" {
		update.Cursor = &maxTS
		result.Cursor = maxTS
	}
	w.persist(ctx, channelID, update, result)

	result.Duration = time.Since(started)
	logger.Debug("channel sync completed",
		"channel_id", channelID,
		"messages", result.MessagesSynced,
		"attachments", result.AttachmentsSynced,
		"errors", len(result.Errors),
		"duration", result.Duration.String())

	return &model.ChannelOutcome{
		ChannelID: channelID,
		Status:    result.Status(),
		Result:    result,
	}
}

// loadState reads the channel's sync state; a missing row is not an error
func (w *channelSyncWorker) loadState(ctx context.Context, channelID types.ChannelID) (*model.SyncState, error) {
	state, err := w.repo.SyncState().Get(ctx, channelID)
	if err != nil {
		if errors.Is(err, interfaces.ErrSyncStateNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return state, nil
}

// fetchPage fetches one history page, throttled by the credential's rate
// budget and retried with exponential backoff on transient failure
func (w *channelSyncWorker) fetchPage(ctx context.Context, channelID types.ChannelID, params interfaces.HistoryParams) (*model.HistoryPage, error) {
	var lastErr error

	for attempt := 0; attempt < maxFetchAttempts; attempt++ {
		if attempt > 0 {
			delay := baseBackoff << (attempt - 1)
			logging.From(ctx).Warn("retrying history fetch",
				"channel_id", channelID, "attempt", attempt+1, "delay", delay.String())
			if err := w.sleep(ctx, delay); err != nil {
				return nil, err
			}
		}

		if err := w.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		page, err := w.client.FetchHistory(ctx, channelID, params)
		if err == nil {
			return page, nil
		}
		if !model.IsTransient(err) {
			return nil, err
		}
		lastErr = err
	}

	return nil, goerr.Wrap(lastErr, "history fetch retries exhausted",
		goerr.V("channel_id", channelID), goerr.V("attempts", maxFetchAttempts))
}

// processMessage forwards one message to the transform collaborator and its
// files to the extraction collaborator. Failures are recorded in the result,
// never fatal to the page.
func (w *channelSyncWorker) processMessage(ctx context.Context, channelID types.ChannelID, raw *model.RawMessage, result *model.SyncResult) {
	msg, err := w.processor.ProcessMessage(ctx, channelID, raw)
	if err != nil {
		result.Errors = append(result.Errors, goerr.Wrap(err, "message transform failed",
			goerr.V("ts", raw.Timestamp)).Error())
		return
	}
	if msg == nil {
		// Transform chose to skip this message (e.g. join/leave events)
		return
	}

	msg.WorkspaceID = w.workspaceID
	if err := w.putWithRetry(ctx, func() error {
		return w.repo.Message().PutMessage(ctx, msg)
	}); err != nil {
		result.Warnings = append(result.Warnings, goerr.Wrap(err, "message persist failed",
			goerr.V("ts", raw.Timestamp)).Error())
	}
	result.MessagesSynced++

	for i := range raw.Files {
		w.processFile(ctx, channelID, raw.Timestamp, &raw.Files[i], result)
	}
}

func (w *channelSyncWorker) processFile(ctx context.Context, channelID types.ChannelID, messageTS string, ref *model.FileRef, result *model.SyncResult) {
	att, err := w.extractor.ProcessFile(ctx, channelID, ref)
	if err != nil {
		result.Errors = append(result.Errors, goerr.Wrap(err, "attachment extraction failed",
			goerr.V("file_id", ref.ID)).Error())
		return
	}
	if att == nil {
		return
	}

	att.MessageTS = messageTS
	if err := w.putWithRetry(ctx, func() error {
		return w.repo.Message().PutAttachment(ctx, att)
	}); err != nil {
		result.Warnings = append(result.Warnings, goerr.Wrap(err, "attachment persist failed",
			goerr.V("file_id", ref.ID)).Error())
	}
	result.AttachmentsSynced++
}

// errorOutcome records a failed invocation in the sync state and folds the
// error into the outcome
func (w *channelSyncWorker) errorOutcome(ctx context.Context, channelID types.ChannelID, result *model.SyncResult, err error, state *model.SyncState) *model.ChannelOutcome {
	errStatus := types.SyncStatusError
	now := time.Now()
	msg := err.Error()

	consecutive := int64(1)
	if state != nil {
		consecutive = state.ConsecutiveErrors + 1
	}

	w.persist(ctx, channelID, &model.SyncStateUpdate{
		Status:            &errStatus,
		AddErrorCount:     1,
		ConsecutiveErrors: &consecutive,
		LastError:         &msg,
		LastErrorAt:       &now,
	}, result)

	result.Errors = append(result.Errors, msg)
	logging.From(ctx).Error("channel sync failed",
		"channel_id", channelID, "consecutive_errors", consecutive, "error", msg)

	return &model.ChannelOutcome{
		ChannelID: channelID,
		Status:    model.OutcomeError,
		Result:    result,
		Error:     msg,
	}
}

// cancelledOutcome reports a promptly-cancelled invocation. Durable writes
// made before cancellation stay valid; no rollback. The running marker is
// reverted to the prior status so the store does not report a sync that is
// no longer in flight.
func (w *channelSyncWorker) cancelledOutcome(ctx context.Context, channelID types.ChannelID, result *model.SyncResult, state *model.SyncState, started time.Time) *model.ChannelOutcome {
	prev := types.SyncStatusNotSynced
	if state != nil && state.Status != "" {
		prev = state.Status
	}
	// The caller's context is already dead; the bookkeeping write must survive it
	w.persist(context.WithoutCancel(ctx), channelID, &model.SyncStateUpdate{Status: &prev}, result)

	result.Duration = time.Since(started)
	return &model.ChannelOutcome{
		ChannelID: channelID,
		Status:    model.OutcomeCancelled,
		Result:    result,
		Error:     context.Canceled.Error(),
	}
}

// persist applies a sync state update, retrying once. A second failure is
// surfaced as a warning in the result rather than dropped.
func (w *channelSyncWorker) persist(ctx context.Context, channelID types.ChannelID, update *model.SyncStateUpdate, result *model.SyncResult) {
	err := w.putWithRetry(ctx, func() error {
		return w.repo.SyncState().Upsert(ctx, channelID, update)
	})
	if err != nil {
		result.Warnings = append(result.Warnings, goerr.Wrap(err, "sync state persist failed",
			goerr.V("channel_id", channelID), goerr.T(model.TagPersistence)).Error())
		logging.From(ctx).Warn("sync state persist failed, counters may lag",
			"channel_id", channelID, "error", err.Error())
	}
}

func (w *channelSyncWorker) putWithRetry(ctx context.Context, put func() error) error {
	err := put()
	if err == nil {
		return nil
	}
	return put()
}

// sleepCtx sleeps for d unless the context is cancelled first
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
