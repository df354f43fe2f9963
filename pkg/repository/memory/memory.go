package memory

import (
	"github.com/secmon-lab/briareus/pkg/domain/interfaces"
)

// Memory is an in-memory Repository for development and tests
type Memory struct {
	syncState *syncStateRepository
	message   *messageRepository
}

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	return &Memory{
		syncState: newSyncStateRepository(),
		message:   newMessageRepository(),
	}
}

func (m *Memory) SyncState() interfaces.SyncStateRepository {
	return m.syncState
}

func (m *Memory) Message() interfaces.MessageRepository {
	return m.message
}

func (m *Memory) Close() error {
	return nil
}
