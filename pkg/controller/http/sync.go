package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/briareus/pkg/domain/interfaces"
	"github.com/secmon-lab/briareus/pkg/domain/model"
	"github.com/secmon-lab/briareus/pkg/domain/types"
	"github.com/secmon-lab/briareus/pkg/service/connector"
	"github.com/secmon-lab/briareus/pkg/usecase"
	"github.com/secmon-lab/briareus/pkg/utils/errutil"
)

// syncRequest is the JSON body of sync trigger endpoints
type syncRequest struct {
	Incremental bool     `json:"incremental"`
	BatchSize   int      `json:"batch_size"`
	MaxPages    int      `json:"max_pages"`
	ChannelIDs  []string `json:"channel_ids"`
}

func (r *syncRequest) toOptions() model.SyncOptions {
	opts := model.SyncOptions{
		Incremental: r.Incremental,
		BatchSize:   r.BatchSize,
		MaxPages:    r.MaxPages,
	}
	for _, id := range r.ChannelIDs {
		opts.ChannelIDs = append(opts.ChannelIDs, types.ChannelID(id))
	}
	return opts
}

func workspacesHandler(uc *usecase.SyncUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"workspaces": uc.Workspaces(),
		})
	}
}

func statusHandler(uc *usecase.SyncUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workspaceID := types.WorkspaceID(chi.URLParam(r, "workspaceID"))

		status, err := uc.Status(r.Context(), workspaceID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, status)
	}
}

func startSyncHandler(uc *usecase.SyncUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workspaceID := types.WorkspaceID(chi.URLParam(r, "workspaceID"))

		var req syncRequest
		if err := decodeBody(r, &req); err != nil {
			errutil.HandleHTTP(r.Context(), w, err, http.StatusBadRequest)
			return
		}

		outcomes, err := uc.StartSync(r.Context(), workspaceID, req.toOptions())
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, map[string]any{
			"outcomes": outcomes,
		})
	}
}

func syncChannelHandler(uc *usecase.SyncUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workspaceID := types.WorkspaceID(chi.URLParam(r, "workspaceID"))
		channelID := types.ChannelID(chi.URLParam(r, "channelID"))

		var req syncRequest
		if err := decodeBody(r, &req); err != nil {
			errutil.HandleHTTP(r.Context(), w, err, http.StatusBadRequest)
			return
		}

		outcome, err := uc.SyncChannel(r.Context(), workspaceID, channelID, req.toOptions())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, outcome)
	}
}

func channelStatusHandler(uc *usecase.SyncUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workspaceID := types.WorkspaceID(chi.URLParam(r, "workspaceID"))
		channelID := types.ChannelID(chi.URLParam(r, "channelID"))

		status, err := uc.ChannelStatus(r.Context(), workspaceID, channelID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, status)
	}
}

func channelMessagesHandler(uc *usecase.SyncUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		channelID := types.ChannelID(chi.URLParam(r, "channelID"))

		limit := 50
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				errutil.HandleHTTP(r.Context(), w, goerr.New("invalid limit", goerr.V("limit", raw)), http.StatusBadRequest)
				return
			}
			limit = n
		}

		msgs, err := uc.RecentMessages(r.Context(), channelID, limit)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, map[string]any{
			"messages": msgs,
		})
	}
}

func channelActiveHandler(uc *usecase.SyncUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		channelID := types.ChannelID(chi.URLParam(r, "channelID"))

		var req struct {
			Active bool `json:"active"`
		}
		if err := decodeBody(r, &req); err != nil {
			errutil.HandleHTTP(r.Context(), w, err, http.StatusBadRequest)
			return
		}

		if err := uc.SetChannelActive(r.Context(), channelID, req.Active); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, map[string]any{
			"channel_id": channelID,
			"active":     req.Active,
		})
	}
}

func decodeBody(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return goerr.Wrap(err, "invalid request body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, connector.ErrConnectorNotFound),
		errors.Is(err, interfaces.ErrSyncStateNotFound):
		status = http.StatusNotFound
	case goerr.HasTag(err, model.TagAuth):
		status = http.StatusUnauthorized
	case goerr.HasTag(err, model.TagPermission):
		status = http.StatusForbidden
	}
	errutil.HandleHTTP(r.Context(), w, err, status)
}
