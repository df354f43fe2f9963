package interfaces

// Repository defines the interface for data persistence
type Repository interface {
	SyncState() SyncStateRepository
	Message() MessageRepository

	Close() error
}
