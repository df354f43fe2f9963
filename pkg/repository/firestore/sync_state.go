package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/briareus/pkg/domain/interfaces"
	"github.com/secmon-lab/briareus/pkg/domain/model"
	"github.com/secmon-lab/briareus/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const syncStatesCollection = "sync_states"

type syncStateRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

var _ interfaces.SyncStateRepository = &syncStateRepository{}

func newSyncStateRepository(client *firestore.Client) *syncStateRepository {
	return &syncStateRepository{
		client: client,
	}
}

// syncStateDoc is the Firestore persistence model. Field names are part of
// the compatibility surface with the storage collaborator.
type syncStateDoc struct {
	ChannelID         string    `firestore:"channel_id"`
	Status            string    `firestore:"status"`
	Cursor            string    `firestore:"cursor"`
	MessageCount      int64     `firestore:"message_count"`
	AttachmentCount   int64     `firestore:"attachment_count"`
	ErrorCount        int64     `firestore:"error_count"`
	ConsecutiveErrors int64     `firestore:"consecutive_errors"`
	IsActive          bool      `firestore:"is_active"`
	LastError         string    `firestore:"last_error"`
	LastErrorAt       time.Time `firestore:"last_error_at"`
	LastSyncAt        time.Time `firestore:"last_sync_at"`
	UpdatedAt         time.Time `firestore:"updated_at"`
}

func toDoc(state *model.SyncState) *syncStateDoc {
	return &syncStateDoc{
		ChannelID:         state.ChannelID.String(),
		Status:            state.Status.String(),
		Cursor:            state.Cursor,
		MessageCount:      state.MessageCount,
		AttachmentCount:   state.AttachmentCount,
		ErrorCount:        state.ErrorCount,
		ConsecutiveErrors: state.ConsecutiveErrors,
		IsActive:          state.IsActive,
		LastError:         state.LastError,
		LastErrorAt:       state.LastErrorAt,
		LastSyncAt:        state.LastSyncAt,
		UpdatedAt:         state.UpdatedAt,
	}
}

func (d *syncStateDoc) toModel() *model.SyncState {
	return &model.SyncState{
		ChannelID:         types.ChannelID(d.ChannelID),
		Status:            types.SyncStatus(d.Status),
		Cursor:            d.Cursor,
		MessageCount:      d.MessageCount,
		AttachmentCount:   d.AttachmentCount,
		ErrorCount:        d.ErrorCount,
		ConsecutiveErrors: d.ConsecutiveErrors,
		IsActive:          d.IsActive,
		LastError:         d.LastError,
		LastErrorAt:       d.LastErrorAt,
		LastSyncAt:        d.LastSyncAt,
		UpdatedAt:         d.UpdatedAt,
	}
}

func (r *syncStateRepository) collection() *firestore.CollectionRef {
	name := syncStatesCollection
	if r.collectionPrefix != "" {
		name = r.collectionPrefix + name
	}
	return r.client.Collection(name)
}

// Get retrieves the sync state for a channel
func (r *syncStateRepository) Get(ctx context.Context, channelID types.ChannelID) (*model.SyncState, error) {
	snap, err := r.collection().Doc(channelID.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(interfaces.ErrSyncStateNotFound, "no sync state",
				goerr.V("channel_id", channelID))
		}
		return nil, goerr.Wrap(err, "failed to get sync state",
			goerr.V("channel_id", channelID), goerr.T(model.TagPersistence))
	}

	var doc syncStateDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode sync state",
			goerr.V("channel_id", channelID), goerr.T(model.TagPersistence))
	}

	return doc.toModel(), nil
}

// Upsert applies a partial update inside a transaction so that concurrent
// updates to the same channel never clobber counters
func (r *syncStateRepository) Upsert(ctx context.Context, channelID types.ChannelID, update *model.SyncStateUpdate) error {
	if update == nil {
		return goerr.New("update is nil", goerr.V("channel_id", channelID))
	}

	ref := r.collection().Doc(channelID.String())
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		state := &model.SyncState{
			ChannelID: channelID,
			Status:    types.SyncStatusNotSynced,
			IsActive:  true,
		}

		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) != codes.NotFound {
				return err
			}
		} else {
			var doc syncStateDoc
			if err := snap.DataTo(&doc); err != nil {
				return err
			}
			state = doc.toModel()
		}

		update.Apply(state, time.Now())
		return tx.Set(ref, toDoc(state))
	})
	if err != nil {
		return goerr.Wrap(err, "failed to upsert sync state",
			goerr.V("channel_id", channelID), goerr.T(model.TagPersistence))
	}

	return nil
}

// ListAll returns sync states matching the filter
func (r *syncStateRepository) ListAll(ctx context.Context, filter interfaces.SyncStateFilter) ([]*model.SyncState, error) {
	query := r.collection().Query
	if filter.Status != "" {
		query = query.Where("status", "==", filter.Status.String())
	}
	if filter.IsActive != nil {
		query = query.Where("is_active", "==", *filter.IsActive)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var states []*model.SyncState
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list sync states", goerr.T(model.TagPersistence))
		}

		var doc syncStateDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to decode sync state", goerr.T(model.TagPersistence))
		}
		states = append(states, doc.toModel())
	}

	return states, nil
}
