// Package findb implements the finance entity store using BadgerHold:
// transactions (lots), holdings, liabilities, life events, goals, and
// user settings. This is the list/filter/update store the reconciler and
// projection loaders sit on.
package findb

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/timshannon/badgerhold/v4"

	"github.com/rjmcleod/finch/internal/common"
	"github.com/rjmcleod/finch/internal/models"
)

// Store implements interfaces.LedgerStore, interfaces.HoldingStore, and
// interfaces.PlanStore on a single BadgerHold database.
type Store struct {
	db     *badgerhold.Store
	logger *common.Logger
}

// keySep is the composite key separator. Using a null byte prevents
// collisions when userID or record IDs contain ":" characters.
const keySep = "\x00"

// NewStore creates a new finance store backed by BadgerHold.
func NewStore(logger *common.Logger, path string) (*Store, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create finance db path %s: %w", path, err)
	}
	opts := badgerhold.DefaultOptions
	opts.Dir = path
	opts.ValueDir = path
	opts.Logger = nil
	db, err := badgerhold.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open finance db at %s: %w", path, err)
	}
	logger.Info().Str("path", path).Msg("FinanceDB opened")
	return &Store{db: db, logger: logger}, nil
}

func compositeKey(userID, id string) string {
	return userID + keySep + id
}

// --- Transactions ---

func (s *Store) GetTransaction(_ context.Context, userID, id string) (*models.Transaction, error) {
	var tx models.Transaction
	if err := s.db.Get(compositeKey(userID, id), &tx); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("transaction '%s' not found", id)
		}
		return nil, fmt.Errorf("failed to get transaction '%s': %w", id, err)
	}
	return &tx, nil
}

func (s *Store) PutTransaction(_ context.Context, tx *models.Transaction) error {
	now := time.Now()
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = now
	}
	tx.UpdatedAt = now
	tx.AccountID = models.NormalizeAccountID(tx.AccountID)
	if err := s.db.Upsert(compositeKey(tx.UserID, tx.ID), tx); err != nil {
		return fmt.Errorf("failed to put transaction '%s': %w", tx.ID, err)
	}
	return nil
}

func (s *Store) DeleteTransaction(_ context.Context, userID, id string) error {
	err := s.db.Delete(compositeKey(userID, id), models.Transaction{})
	if err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete transaction '%s': %w", id, err)
	}
	return nil
}

func (s *Store) ListTransactions(_ context.Context, userID string) ([]*models.Transaction, error) {
	var txs []models.Transaction
	if err := s.db.Find(&txs, badgerhold.Where("UserID").Eq(userID)); err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return sortTransactions(txs), nil
}

func (s *Store) ListForAsset(_ context.Context, userID, ticker, accountID string) ([]*models.Transaction, error) {
	var txs []models.Transaction
	query := badgerhold.Where("UserID").Eq(userID).And("AssetTicker").Eq(ticker)
	if err := s.db.Find(&txs, query); err != nil {
		return nil, fmt.Errorf("failed to list transactions for %s: %w", ticker, err)
	}
	account := models.NormalizeAccountID(accountID)
	filtered := txs[:0]
	for _, tx := range txs {
		if models.NormalizeAccountID(tx.AccountID) == account {
			filtered = append(filtered, tx)
		}
	}
	return sortTransactions(filtered), nil
}

func (s *Store) ListForAccount(_ context.Context, userID, accountID string) ([]*models.Transaction, error) {
	var txs []models.Transaction
	if err := s.db.Find(&txs, badgerhold.Where("UserID").Eq(userID)); err != nil {
		return nil, fmt.Errorf("failed to list transactions for account: %w", err)
	}
	account := models.NormalizeAccountID(accountID)
	filtered := txs[:0]
	for _, tx := range txs {
		if models.NormalizeAccountID(tx.AccountID) == account {
			filtered = append(filtered, tx)
		}
	}
	return sortTransactions(filtered), nil
}

// sortTransactions orders by date ascending, then ID for a stable order.
func sortTransactions(txs []models.Transaction) []*models.Transaction {
	sort.Slice(txs, func(i, j int) bool {
		if txs[i].Date.Equal(txs[j].Date) {
			return txs[i].ID < txs[j].ID
		}
		return txs[i].Date.Before(txs[j].Date)
	})
	result := make([]*models.Transaction, len(txs))
	for i := range txs {
		tx := txs[i]
		result[i] = &tx
	}
	return result
}

// --- Holdings ---

func (s *Store) GetHolding(_ context.Context, userID, ticker, accountID string) (*models.Holding, error) {
	var holdings []models.Holding
	query := badgerhold.Where("UserID").Eq(userID).And("Ticker").Eq(ticker)
	if err := s.db.Find(&holdings, query); err != nil {
		return nil, fmt.Errorf("failed to find holding for %s: %w", ticker, err)
	}
	account := models.NormalizeAccountID(accountID)
	for i := range holdings {
		if models.NormalizeAccountID(holdings[i].AccountID) == account {
			h := holdings[i]
			return &h, nil
		}
	}
	return nil, nil // absent, not an error
}

func (s *Store) PutHolding(_ context.Context, h *models.Holding) error {
	now := time.Now()
	if h.CreatedAt.IsZero() {
		h.CreatedAt = now
	}
	h.UpdatedAt = now
	h.AccountID = models.NormalizeAccountID(h.AccountID)
	if err := s.db.Upsert(compositeKey(h.UserID, h.ID), h); err != nil {
		return fmt.Errorf("failed to put holding '%s': %w", h.ID, err)
	}
	return nil
}

func (s *Store) ListHoldings(_ context.Context, userID string) ([]*models.Holding, error) {
	var holdings []models.Holding
	if err := s.db.Find(&holdings, badgerhold.Where("UserID").Eq(userID)); err != nil {
		return nil, fmt.Errorf("failed to list holdings: %w", err)
	}
	sort.Slice(holdings, func(i, j int) bool {
		if holdings[i].Ticker == holdings[j].Ticker {
			return holdings[i].AccountID < holdings[j].AccountID
		}
		return holdings[i].Ticker < holdings[j].Ticker
	})
	result := make([]*models.Holding, len(holdings))
	for i := range holdings {
		h := holdings[i]
		result[i] = &h
	}
	return result, nil
}

// --- Liabilities ---

func (s *Store) ListLiabilities(_ context.Context, userID string) ([]*models.Liability, error) {
	var items []models.Liability
	if err := s.db.Find(&items, badgerhold.Where("UserID").Eq(userID)); err != nil {
		return nil, fmt.Errorf("failed to list liabilities: %w", err)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.Before(items[j].CreatedAt) })
	result := make([]*models.Liability, len(items))
	for i := range items {
		l := items[i]
		result[i] = &l
	}
	return result, nil
}

func (s *Store) GetLiability(_ context.Context, userID, id string) (*models.Liability, error) {
	var l models.Liability
	if err := s.db.Get(compositeKey(userID, id), &l); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("liability '%s' not found", id)
		}
		return nil, fmt.Errorf("failed to get liability '%s': %w", id, err)
	}
	return &l, nil
}

func (s *Store) PutLiability(_ context.Context, l *models.Liability) error {
	now := time.Now()
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now
	}
	l.UpdatedAt = now
	if err := s.db.Upsert(compositeKey(l.UserID, l.ID), l); err != nil {
		return fmt.Errorf("failed to put liability '%s': %w", l.ID, err)
	}
	return nil
}

func (s *Store) DeleteLiability(_ context.Context, userID, id string) error {
	err := s.db.Delete(compositeKey(userID, id), models.Liability{})
	if err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete liability '%s': %w", id, err)
	}
	return nil
}

// --- Life events ---

func (s *Store) ListLifeEvents(_ context.Context, userID string) ([]*models.LifeEvent, error) {
	var items []models.LifeEvent
	if err := s.db.Find(&items, badgerhold.Where("UserID").Eq(userID)); err != nil {
		return nil, fmt.Errorf("failed to list life events: %w", err)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Year == items[j].Year {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return items[i].Year < items[j].Year
	})
	result := make([]*models.LifeEvent, len(items))
	for i := range items {
		e := items[i]
		result[i] = &e
	}
	return result, nil
}

func (s *Store) GetLifeEvent(_ context.Context, userID, id string) (*models.LifeEvent, error) {
	var e models.LifeEvent
	if err := s.db.Get(compositeKey(userID, id), &e); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("life event '%s' not found", id)
		}
		return nil, fmt.Errorf("failed to get life event '%s': %w", id, err)
	}
	return &e, nil
}

func (s *Store) PutLifeEvent(_ context.Context, e *models.LifeEvent) error {
	now := time.Now()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now
	if err := s.db.Upsert(compositeKey(e.UserID, e.ID), e); err != nil {
		return fmt.Errorf("failed to put life event '%s': %w", e.ID, err)
	}
	return nil
}

func (s *Store) DeleteLifeEvent(_ context.Context, userID, id string) error {
	err := s.db.Delete(compositeKey(userID, id), models.LifeEvent{})
	if err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete life event '%s': %w", id, err)
	}
	return nil
}

// --- Goals ---

func (s *Store) ListGoals(_ context.Context, userID string) ([]*models.Goal, error) {
	var items []models.Goal
	if err := s.db.Find(&items, badgerhold.Where("UserID").Eq(userID)); err != nil {
		return nil, fmt.Errorf("failed to list goals: %w", err)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.Before(items[j].CreatedAt) })
	result := make([]*models.Goal, len(items))
	for i := range items {
		g := items[i]
		result[i] = &g
	}
	return result, nil
}

func (s *Store) GetGoal(_ context.Context, userID, id string) (*models.Goal, error) {
	var g models.Goal
	if err := s.db.Get(compositeKey(userID, id), &g); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("goal '%s' not found", id)
		}
		return nil, fmt.Errorf("failed to get goal '%s': %w", id, err)
	}
	return &g, nil
}

func (s *Store) PutGoal(_ context.Context, g *models.Goal) error {
	now := time.Now()
	if g.CreatedAt.IsZero() {
		g.CreatedAt = now
	}
	g.UpdatedAt = now
	if err := s.db.Upsert(compositeKey(g.UserID, g.ID), g); err != nil {
		return fmt.Errorf("failed to put goal '%s': %w", g.ID, err)
	}
	return nil
}

func (s *Store) DeleteGoal(_ context.Context, userID, id string) error {
	err := s.db.Delete(compositeKey(userID, id), models.Goal{})
	if err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete goal '%s': %w", id, err)
	}
	return nil
}

// --- Settings ---

// settingsKey is the fixed record ID for a user's settings document.
const settingsKey = "settings"

func (s *Store) GetSettings(_ context.Context, userID string) (*models.UserSettings, error) {
	var st models.UserSettings
	if err := s.db.Get(compositeKey(userID, settingsKey), &st); err != nil {
		if err == badgerhold.ErrNotFound {
			return &models.UserSettings{UserID: userID}, nil
		}
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	return &st, nil
}

func (s *Store) PutSettings(_ context.Context, st *models.UserSettings) error {
	st.UpdatedAt = time.Now()
	if err := s.db.Upsert(compositeKey(st.UserID, settingsKey), st); err != nil {
		return fmt.Errorf("failed to put settings: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
