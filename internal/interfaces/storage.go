// Package interfaces defines service contracts for Finch
package interfaces

import (
	"context"

	"github.com/rjmcleod/finch/internal/models"
)

// StorageManager coordinates the storage areas: an internal key-value
// area and the finance entity store (ledger, holdings, plan entities).
type StorageManager interface {
	KeyValueStore() KeyValueStore
	LedgerStore() LedgerStore
	HoldingStore() HoldingStore
	PlanStore() PlanStore

	// Lifecycle
	Close() error
}

// KeyValueStore manages system- and user-scoped key-value configuration.
type KeyValueStore interface {
	GetSystemKV(ctx context.Context, key string) (string, error)
	SetSystemKV(ctx context.Context, key, value string) error
	GetUserKV(ctx context.Context, userID, key string) (string, error)
	SetUserKV(ctx context.Context, userID, key, value string) error
	Close() error
}

// LedgerStore manages transaction (lot) records. Transactions are the
// append-only source of truth the reconciler derives holdings from.
type LedgerStore interface {
	GetTransaction(ctx context.Context, userID, id string) (*models.Transaction, error)
	PutTransaction(ctx context.Context, tx *models.Transaction) error
	DeleteTransaction(ctx context.Context, userID, id string) error
	ListTransactions(ctx context.Context, userID string) ([]*models.Transaction, error)

	// ListForAsset returns all transactions (buys and sells) for a
	// (ticker, account) pair under null-normalized account matching.
	ListForAsset(ctx context.Context, userID, ticker, accountID string) ([]*models.Transaction, error)

	// ListForAccount returns all transactions for an account.
	ListForAccount(ctx context.Context, userID, accountID string) ([]*models.Transaction, error)
}

// HoldingStore manages derived holding records. Get returns (nil, nil)
// when no matching holding exists — absence is an expected state the
// reconciler reasons about, not an error.
type HoldingStore interface {
	GetHolding(ctx context.Context, userID, ticker, accountID string) (*models.Holding, error)
	PutHolding(ctx context.Context, h *models.Holding) error
	ListHoldings(ctx context.Context, userID string) ([]*models.Holding, error)
}

// PlanStore manages the projection input entities: liabilities, life
// events, goals, and user settings.
type PlanStore interface {
	ListLiabilities(ctx context.Context, userID string) ([]*models.Liability, error)
	GetLiability(ctx context.Context, userID, id string) (*models.Liability, error)
	PutLiability(ctx context.Context, l *models.Liability) error
	DeleteLiability(ctx context.Context, userID, id string) error

	ListLifeEvents(ctx context.Context, userID string) ([]*models.LifeEvent, error)
	GetLifeEvent(ctx context.Context, userID, id string) (*models.LifeEvent, error)
	PutLifeEvent(ctx context.Context, e *models.LifeEvent) error
	DeleteLifeEvent(ctx context.Context, userID, id string) error

	ListGoals(ctx context.Context, userID string) ([]*models.Goal, error)
	GetGoal(ctx context.Context, userID, id string) (*models.Goal, error)
	PutGoal(ctx context.Context, g *models.Goal) error
	DeleteGoal(ctx context.Context, userID, id string) error

	// GetSettings returns stored settings, or defaults when none exist.
	GetSettings(ctx context.Context, userID string) (*models.UserSettings, error)
	PutSettings(ctx context.Context, s *models.UserSettings) error
}
