package connector

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/briareus/pkg/domain/interfaces"
	"github.com/secmon-lab/briareus/pkg/domain/model"
	"github.com/secmon-lab/briareus/pkg/domain/types"
	"github.com/secmon-lab/briareus/pkg/utils/logging"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// State is the connector lifecycle state
type State string

const (
	StateUninitialized State = "uninitialized"
	StateInitializing  State = "initializing"
	StateReady         State = "ready"
	StateSyncing       State = "syncing"
	StateClosed        State = "closed"
)

// Connector is the top-level sync orchestrator bound to one workspace
// credential. It validates the credential, resolves the accessible channel
// set and fans out per-channel sync workers under a concurrency cap.
type Connector struct {
	client    interfaces.MessagingClient
	repo      interfaces.Repository
	processor interfaces.MessageProcessor
	extractor interfaces.FileExtractor

	tier        int
	permTTL     time.Duration
	concurrency int
	limiter     *rate.Limiter
	validator   *TokenValidator
	resolver    *PermissionResolver
	worker      *channelSyncWorker
	locker      *channelLocker

	// baseCtx is cancelled by Close so in-flight syncs return promptly
	baseCtx    context.Context
	baseCancel context.CancelFunc

	mu        sync.Mutex
	state     State
	tokenInfo *model.TokenInfo
	closeOnce sync.Once
}

// Option is a functional option for Connector configuration
type Option func(*Connector)

// WithRateLimitTier sets the credential's rate-limit tier, which drives both
// the request throttle and the channel fan-out cap
func WithRateLimitTier(tier int) Option {
	return func(c *Connector) {
		c.tier = tier
	}
}

// WithChannelCacheTTL sets the permission resolver's cache TTL
func WithChannelCacheTTL(ttl time.Duration) Option {
	return func(c *Connector) {
		c.permTTL = ttl
	}
}

// New creates a Connector for one workspace credential. The token shape is
// validated here; scope and identity checks happen in Initialize.
func New(
	token string,
	client interfaces.MessagingClient,
	repo interfaces.Repository,
	processor interfaces.MessageProcessor,
	extractor interfaces.FileExtractor,
	opts ...Option,
) (*Connector, error) {
	validator := NewTokenValidator(client)
	if err := validator.ValidateFormat(token); err != nil {
		return nil, goerr.Wrap(err, "invalid credential", goerr.T(model.TagAuth))
	}

	baseCtx, baseCancel := context.WithCancel(context.Background())

	c := &Connector{
		client:     client,
		repo:       repo,
		processor:  processor,
		extractor:  extractor,
		tier:       DefaultRateLimitTier,
		permTTL:    DefaultPermissionTTL,
		validator:  validator,
		locker:     newChannelLocker(),
		baseCtx:    baseCtx,
		baseCancel: baseCancel,
		state:      StateUninitialized,
	}

	for _, opt := range opts {
		opt(c)
	}

	c.concurrency = ConcurrencyForTier(c.tier)
	c.limiter = rate.NewLimiter(RateLimitForTier(c.tier), 1)
	c.resolver = NewPermissionResolver(client, "", WithPermissionTTL(c.permTTL))
	c.worker = newChannelSyncWorker(client, repo, processor, extractor, c.limiter, c.locker, "")

	return c, nil
}

// Initialize validates the token and required scopes against the upstream
// API. Only callable from uninitialized; a failure reverts to uninitialized
// so the caller may fix credentials and retry.
func (c *Connector) Initialize(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateUninitialized {
		state := c.state
		c.mu.Unlock()
		return goerr.New("connector is not uninitialized", goerr.V("state", state))
	}
	c.state = StateInitializing
	c.mu.Unlock()

	ctx, stop := c.bindLifetime(ctx)
	defer stop()

	info, err := c.validator.ValidateToken(ctx)
	if err != nil {
		c.mu.Lock()
		c.state = StateUninitialized
		c.mu.Unlock()
		return goerr.Wrap(err, "initialize failed", goerr.T(model.TagAuth))
	}

	if err := c.extractor.Initialize(ctx); err != nil {
		c.mu.Lock()
		c.state = StateUninitialized
		c.mu.Unlock()
		return goerr.Wrap(err, "failed to initialize file extractor")
	}

	c.mu.Lock()
	c.tokenInfo = info
	c.state = StateReady
	c.mu.Unlock()

	c.resolver.UpdateWorkspaceID(info.WorkspaceID)
	c.worker.workspaceID = info.WorkspaceID

	logging.From(ctx).Info("connector initialized",
		"workspace", info.Workspace,
		"workspace_id", info.WorkspaceID,
		"bot_id", info.BotID,
		"scopes", len(info.Scopes))

	return nil
}

// StartSync syncs the requested channels, or the full accessible set when
// none are given. Channels run in parallel under the concurrency cap; each
// channel's failure is isolated. Always returns one outcome per channel.
func (c *Connector) StartSync(ctx context.Context, opts model.SyncOptions) ([]*model.ChannelOutcome, error) {
	if err := c.enterSyncing(); err != nil {
		return nil, err
	}
	defer c.leaveSyncing()

	ctx, stop := c.bindLifetime(ctx)
	defer stop()

	runID := uuid.New().String()
	logger := logging.From(ctx).With("sync_run", runID)
	ctx = logging.With(ctx, logger)

	channelIDs := opts.ChannelIDs
	if len(channelIDs) == 0 {
		channels, err := c.resolver.AccessibleChannels(ctx)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to resolve channels", goerr.T(model.TagPermission))
		}
		inactive := c.inactiveChannels(ctx)
		channelIDs = make([]types.ChannelID, 0, len(channels))
		for _, ch := range channels {
			// Channels marked inactive stay out of full passes; explicit
			// channel_ids requests still reach them
			if _, ok := inactive[ch.ID]; ok {
				continue
			}
			channelIDs = append(channelIDs, ch.ID)
		}
	}

	logger.Info("starting sync",
		"channels", len(channelIDs),
		"incremental", opts.Incremental,
		"concurrency", c.concurrency)

	outcomes := make([]*model.ChannelOutcome, len(channelIDs))
	eg := &errgroup.Group{}
	eg.SetLimit(c.concurrency)

	for i, channelID := range channelIDs {
		eg.Go(func() error {
			outcomes[i] = c.worker.Run(ctx, channelID, opts)
			return nil
		})
	}

	// Workers never return errors; failures live inside the outcomes
	_ = eg.Wait()

	logger.Info("sync finished", "channels", len(outcomes))
	return outcomes, nil
}

// inactiveChannels returns the set of channels whose sync state has
// is_active=false. A store failure yields an empty set; the pass proceeds.
func (c *Connector) inactiveChannels(ctx context.Context) map[types.ChannelID]struct{} {
	active := false
	states, err := c.repo.SyncState().ListAll(ctx, interfaces.SyncStateFilter{IsActive: &active})
	if err != nil {
		logging.From(ctx).Warn("failed to list inactive channels", "error", err.Error())
		return nil
	}

	inactive := make(map[types.ChannelID]struct{}, len(states))
	for _, s := range states {
		inactive[s.ChannelID] = struct{}{}
	}
	return inactive
}

// SyncChannel runs exactly one sync invocation for the channel. Reports
// already_running when the channel's lock is held.
func (c *Connector) SyncChannel(ctx context.Context, channelID types.ChannelID, opts model.SyncOptions) (*model.ChannelOutcome, error) {
	if err := c.requireReady(); err != nil {
		return nil, err
	}

	ctx, stop := c.bindLifetime(ctx)
	defer stop()

	return c.worker.Run(ctx, channelID, opts), nil
}

// Status is the connector's status snapshot
type Status struct {
	State         State                      `json:"state"`
	Initialized   bool                       `json:"initialized"`
	WorkspaceID   types.WorkspaceID          `json:"workspace_id,omitempty"`
	Workspace     string                     `json:"workspace,omitempty"`
	BotID         string                     `json:"bot_id,omitempty"`
	Channels      []*ChannelStatus           `json:"channels,omitempty"`
	HealthSummary map[types.HealthStatus]int `json:"health_summary,omitempty"`
}

// ChannelStatus pairs a channel's persisted state with its derived health
type ChannelStatus struct {
	State  *model.SyncState   `json:"state"`
	Health types.HealthStatus `json:"health"`
}

// Status reads in-memory state plus the sync state store. Never touches the
// network.
func (c *Connector) Status(ctx context.Context) (*Status, error) {
	c.mu.Lock()
	status := &Status{
		State:       c.state,
		Initialized: c.tokenInfo != nil && c.state != StateClosed,
	}
	if c.tokenInfo != nil {
		status.WorkspaceID = c.tokenInfo.WorkspaceID
		status.Workspace = c.tokenInfo.Workspace
		status.BotID = c.tokenInfo.BotID
	}
	c.mu.Unlock()

	states, err := c.repo.SyncState().ListAll(ctx, interfaces.SyncStateFilter{})
	if err != nil {
		// Best-known snapshot: report in-memory state even when the store
		// is unavailable
		logging.From(ctx).Warn("failed to read sync states for status", "error", err.Error())
		return status, nil
	}

	now := time.Now()
	status.Channels = make([]*ChannelStatus, 0, len(states))
	status.HealthSummary = make(map[types.HealthStatus]int)
	for _, state := range states {
		health := state.Health(now)
		status.Channels = append(status.Channels, &ChannelStatus{
			State:  state,
			Health: health,
		})
		status.HealthSummary[health]++
	}

	return status, nil
}

// ChannelState returns one channel's persisted state with derived health
func (c *Connector) ChannelState(ctx context.Context, channelID types.ChannelID) (*ChannelStatus, error) {
	state, err := c.repo.SyncState().Get(ctx, channelID)
	if err != nil {
		return nil, err
	}
	return &ChannelStatus{
		State:  state,
		Health: state.Health(time.Now()),
	}, nil
}

// Close tears down the connector: cancels in-flight syncs, releases channel
// locks and closes the file extractor. Idempotent; callable from any state.
func (c *Connector) Close() error {
	var closeErr error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.state = StateClosed
		c.mu.Unlock()

		c.baseCancel()
		c.locker.ReleaseAll()

		if c.extractor != nil {
			closeErr = c.extractor.Close()
		}
	})
	return closeErr
}

// Resolver exposes the permission resolver for cache invalidation hooks
func (c *Connector) Resolver() *PermissionResolver {
	return c.resolver
}

// WorkspaceID returns the workspace identity resolved during Initialize,
// empty before the connector is initialized
func (c *Connector) WorkspaceID() types.WorkspaceID {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tokenInfo == nil {
		return ""
	}
	return c.tokenInfo.WorkspaceID
}

// TokenInfo returns the identity resolved during Initialize, nil before
func (c *Connector) TokenInfo() *model.TokenInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tokenInfo
}

// CurrentState returns the lifecycle state
func (c *Connector) CurrentState() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// bindLifetime derives a context cancelled by either the caller or Close
func (c *Connector) bindLifetime(ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(c.baseCtx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (c *Connector) enterSyncing() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateReady {
		return goerr.New("connector is not ready", goerr.V("state", c.state))
	}
	c.state = StateSyncing
	return nil
}

func (c *Connector) leaveSyncing() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateSyncing {
		c.state = StateReady
	}
}

func (c *Connector) requireReady() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateReady && c.state != StateSyncing {
		return goerr.New("connector is not ready", goerr.V("state", c.state))
	}
	return nil
}
