package connector

import (
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/briareus/pkg/domain/types"
)

// ErrConnectorNotFound is returned when no connector is registered for a
// workspace
var ErrConnectorNotFound = goerr.New("connector not found")

// Registry is an explicit, dependency-injected store of connectors keyed by
// workspace ID. It is owned by the serve command and closed on shutdown; no
// package-level singleton exists.
type Registry struct {
	mu         sync.RWMutex
	connectors map[types.WorkspaceID]*Connector
	order      []types.WorkspaceID
}

// NewRegistry creates an empty Registry
func NewRegistry() *Registry {
	return &Registry{
		connectors: make(map[types.WorkspaceID]*Connector),
	}
}

// Register adds a connector for a workspace, replacing and closing any
// previous one
func (r *Registry) Register(workspaceID types.WorkspaceID, conn *Connector) {
	r.mu.Lock()
	prev, existed := r.connectors[workspaceID]
	if !existed {
		r.order = append(r.order, workspaceID)
	}
	r.connectors[workspaceID] = conn
	r.mu.Unlock()

	if existed && prev != nil {
		_ = prev.Close()
	}
}

// Get retrieves the connector for a workspace
func (r *Registry) Get(workspaceID types.WorkspaceID) (*Connector, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.connectors[workspaceID]
	if !ok {
		return nil, goerr.Wrap(ErrConnectorNotFound, "no connector for workspace",
			goerr.V("workspace_id", workspaceID))
	}
	return conn, nil
}

// List returns all registered connectors in registration order
func (r *Registry) List() []*Connector {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]*Connector, 0, len(r.order))
	for _, id := range r.order {
		conns = append(conns, r.connectors[id])
	}
	return conns
}

// Workspaces returns the registered workspace IDs in registration order
func (r *Registry) Workspaces() []types.WorkspaceID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]types.WorkspaceID(nil), r.order...)
}

// Close closes every registered connector. The registry stays usable for
// reads but all connectors report closed.
func (r *Registry) Close() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var firstErr error
	for _, conn := range r.connectors {
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
