package usecase

import (
	"github.com/secmon-lab/briareus/pkg/domain/interfaces"
	"github.com/secmon-lab/briareus/pkg/service/connector"
)

// UseCases bundles the application's use case layer
type UseCases struct {
	repo interfaces.Repository
	Sync *SyncUseCase
}

// Option is a functional option for UseCases
type Option func(*UseCases)

func New(repo interfaces.Repository, registry *connector.Registry, opts ...Option) *UseCases {
	uc := &UseCases{
		repo: repo,
	}

	for _, opt := range opts {
		opt(uc)
	}

	uc.Sync = NewSyncUseCase(repo, registry)

	return uc
}
