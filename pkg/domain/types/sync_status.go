package types

import "github.com/m-mizutani/goerr/v2"

// SyncStatus represents the persisted sync state of a channel
type SyncStatus string

const (
	SyncStatusNotSynced SyncStatus = "not_synced"
	SyncStatusRunning   SyncStatus = "running"
	SyncStatusSuccess   SyncStatus = "success"
	SyncStatusError     SyncStatus = "error"
)

// Validate checks if the SyncStatus is a known value
func (x SyncStatus) Validate() error {
	switch x {
	case SyncStatusNotSynced, SyncStatusRunning, SyncStatusSuccess, SyncStatusError:
		return nil
	}
	return goerr.New("invalid sync status", goerr.V("status", x))
}

// String returns the string representation of SyncStatus
func (x SyncStatus) String() string {
	return string(x)
}
