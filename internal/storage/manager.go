// Package storage provides the top-level StorageManager that coordinates
// the 2 storage areas: internaldb (key-values) and findb (finance entities).
package storage

import (
	"github.com/rjmcleod/finch/internal/common"
	"github.com/rjmcleod/finch/internal/interfaces"
	"github.com/rjmcleod/finch/internal/storage/findb"
	"github.com/rjmcleod/finch/internal/storage/internaldb"
)

// Manager implements interfaces.StorageManager using 2 storage areas.
type Manager struct {
	internal *internaldb.Store
	finance  *findb.Store
	logger   *common.Logger
}

// NewManager creates a new StorageManager with the 2 storage areas.
func NewManager(logger *common.Logger, config *common.Config) (*Manager, error) {
	internalStore, err := internaldb.NewStore(logger, config.Storage.Internal.Path)
	if err != nil {
		return nil, err
	}

	financeStore, err := findb.NewStore(logger, config.Storage.Finance.Path)
	if err != nil {
		internalStore.Close()
		return nil, err
	}

	logger.Info().
		Str("internal", config.Storage.Internal.Path).
		Str("finance", config.Storage.Finance.Path).
		Msg("Storage manager initialized (2 areas)")

	return &Manager{
		internal: internalStore,
		finance:  financeStore,
		logger:   logger,
	}, nil
}

func (m *Manager) KeyValueStore() interfaces.KeyValueStore {
	return m.internal
}

func (m *Manager) LedgerStore() interfaces.LedgerStore {
	return m.finance
}

func (m *Manager) HoldingStore() interfaces.HoldingStore {
	return m.finance
}

func (m *Manager) PlanStore() interfaces.PlanStore {
	return m.finance
}

func (m *Manager) Close() error {
	var firstErr error
	if err := m.internal.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := m.finance.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Compile-time check
var _ interfaces.StorageManager = (*Manager)(nil)
