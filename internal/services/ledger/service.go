// Package ledger owns all transaction mutations. Buys create lots, sells
// consume them oldest-first, and every mutation reconciles the affected
// (ticker, account) pair before it is considered complete.
package ledger

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rjmcleod/finch/internal/common"
	"github.com/rjmcleod/finch/internal/interfaces"
	"github.com/rjmcleod/finch/internal/models"
)

// Compile-time interface check
var _ interfaces.LedgerService = (*Service)(nil)

// Service implements LedgerService
type Service struct {
	storage  interfaces.StorageManager
	holdings interfaces.HoldingsService
	logger   *common.Logger
}

// NewService creates a new ledger service
func NewService(storage interfaces.StorageManager, holdings interfaces.HoldingsService, logger *common.Logger) *Service {
	return &Service{
		storage:  storage,
		holdings: holdings,
		logger:   logger,
	}
}

// generateTransactionID returns an ID like "tx_1a2b3c4d".
func generateTransactionID() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		// Fallback should never happen in practice
		return "tx_00000000"
	}
	return "tx_" + hex.EncodeToString(b)
}

// RecordBuy creates a new buy lot, creates the holding record for the pair
// if none exists yet, and reconciles the pair.
func (s *Service) RecordBuy(ctx context.Context, userID string, req models.BuyRequest) (*models.Transaction, error) {
	if err := validateTradeInput(req.AssetTicker, req.Quantity, req.PricePerUnit, req.Fees); err != nil {
		return nil, err
	}

	now := time.Now()
	date := req.Date
	if date.IsZero() {
		date = now
	}

	tx := &models.Transaction{
		ID:           generateTransactionID(),
		UserID:       userID,
		Type:         models.TransactionBuy,
		AssetTicker:  strings.ToUpper(strings.TrimSpace(req.AssetTicker)),
		AccountID:    models.NormalizeAccountID(req.AccountID),
		Quantity:     req.Quantity,
		PricePerUnit: req.PricePerUnit,
		Fees:         req.Fees,
		CostBasis:    req.Quantity*req.PricePerUnit + req.Fees,
		Date:         date,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.storage.LedgerStore().PutTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to store buy transaction: %w", err)
	}

	// Holding creation belongs here, not in the reconciler.
	if err := s.ensureHolding(ctx, userID, tx.AssetTicker, tx.AccountID); err != nil {
		return nil, err
	}

	if _, err := s.holdings.Reconcile(ctx, userID, tx.AssetTicker, tx.AccountID); err != nil {
		return nil, fmt.Errorf("failed to reconcile after buy: %w", err)
	}

	s.logger.Info().
		Str("id", tx.ID).
		Str("ticker", tx.AssetTicker).
		Float64("quantity", tx.Quantity).
		Float64("cost_basis", tx.CostBasis).
		Msg("Buy recorded")
	return tx, nil
}

// RecordSell records a sell and consumes the pair's buy lots oldest-first.
// The sell is rejected when the requested quantity exceeds the total
// remaining across lots.
func (s *Service) RecordSell(ctx context.Context, userID string, req models.SellRequest) (*models.Transaction, error) {
	if err := validateTradeInput(req.AssetTicker, req.Quantity, req.PricePerUnit, req.Fees); err != nil {
		return nil, err
	}

	ticker := strings.ToUpper(strings.TrimSpace(req.AssetTicker))
	account := models.NormalizeAccountID(req.AccountID)

	lots, err := s.holdings.LotsFor(ctx, userID, ticker, account)
	if err != nil {
		return nil, err
	}
	sort.Slice(lots, func(i, j int) bool {
		if lots[i].Date.Equal(lots[j].Date) {
			return lots[i].ID < lots[j].ID
		}
		return lots[i].Date.Before(lots[j].Date)
	})

	available := 0.0
	for _, lot := range lots {
		available += lot.Remaining()
	}
	if req.Quantity > available+models.QuantityEpsilon {
		return nil, fmt.Errorf("insufficient holdings: selling %.8f %s but only %.8f remaining", req.Quantity, ticker, available)
	}

	// Consume lots oldest-first.
	toConsume := req.Quantity
	for _, lot := range lots {
		if toConsume <= models.QuantityEpsilon {
			break
		}
		remaining := lot.Remaining()
		if remaining <= models.QuantityEpsilon {
			continue
		}
		take := math.Min(remaining, toConsume)
		newRemaining := remaining - take
		lot.RemainingQuantity = &newRemaining
		lot.UpdatedAt = time.Now()
		if err := s.storage.LedgerStore().PutTransaction(ctx, lot); err != nil {
			return nil, fmt.Errorf("failed to update lot %s: %w", lot.ID, err)
		}
		toConsume -= take
	}

	now := time.Now()
	date := req.Date
	if date.IsZero() {
		date = now
	}
	tx := &models.Transaction{
		ID:           generateTransactionID(),
		UserID:       userID,
		Type:         models.TransactionSell,
		AssetTicker:  ticker,
		AccountID:    account,
		Quantity:     req.Quantity,
		PricePerUnit: req.PricePerUnit,
		Fees:         req.Fees,
		Date:         date,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.storage.LedgerStore().PutTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to store sell transaction: %w", err)
	}

	if _, err := s.holdings.Reconcile(ctx, userID, ticker, account); err != nil {
		return nil, fmt.Errorf("failed to reconcile after sell: %w", err)
	}

	s.logger.Info().
		Str("id", tx.ID).
		Str("ticker", ticker).
		Float64("quantity", req.Quantity).
		Msg("Sell recorded")
	return tx, nil
}

// UpdateTransaction merges non-zero fields of update into an existing
// transaction and reconciles both the old and new (ticker, account) pairs,
// since an edit can move a lot between pairs.
func (s *Service) UpdateTransaction(ctx context.Context, userID, id string, update models.Transaction) (*models.Transaction, error) {
	existing, err := s.storage.LedgerStore().GetTransaction(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("transaction %s not found: %w", id, err)
	}

	oldTicker := existing.AssetTicker
	oldAccount := models.NormalizeAccountID(existing.AccountID)

	if update.AssetTicker != "" {
		existing.AssetTicker = strings.ToUpper(strings.TrimSpace(update.AssetTicker))
	}
	if update.AccountID != "" {
		existing.AccountID = models.NormalizeAccountID(update.AccountID)
	}
	if update.Quantity > 0 {
		existing.Quantity = update.Quantity
	}
	if update.PricePerUnit > 0 {
		existing.PricePerUnit = update.PricePerUnit
	}
	if update.Fees > 0 {
		existing.Fees = update.Fees
	}
	if !update.Date.IsZero() {
		existing.Date = update.Date
	}
	if update.RemainingQuantity != nil {
		existing.RemainingQuantity = update.RemainingQuantity
	}
	if existing.IsBuy() {
		existing.CostBasis = existing.Quantity*existing.PricePerUnit + existing.Fees
	}
	// An edit can shrink the lot below what sells have already consumed.
	// Remaining must stay within [0, Quantity] or the proportional cost
	// basis overstates the position.
	if existing.RemainingQuantity != nil {
		r := *existing.RemainingQuantity
		if r < 0 {
			r = 0
		}
		if r > existing.Quantity {
			r = existing.Quantity
		}
		existing.RemainingQuantity = &r
	}
	existing.UpdatedAt = time.Now()

	if err := s.storage.LedgerStore().PutTransaction(ctx, existing); err != nil {
		return nil, fmt.Errorf("failed to update transaction: %w", err)
	}

	if _, err := s.holdings.Reconcile(ctx, userID, oldTicker, oldAccount); err != nil {
		return nil, fmt.Errorf("failed to reconcile after update: %w", err)
	}
	newAccount := models.NormalizeAccountID(existing.AccountID)
	if existing.AssetTicker != oldTicker || newAccount != oldAccount {
		if _, err := s.holdings.Reconcile(ctx, userID, existing.AssetTicker, newAccount); err != nil {
			return nil, fmt.Errorf("failed to reconcile after update: %w", err)
		}
	}

	s.logger.Info().Str("id", id).Msg("Transaction updated")
	return existing, nil
}

// DeleteTransaction removes a transaction and reconciles its pair.
//
// Deleting a sell does not restore the remaining quantity it consumed from
// buy lots: the sell does not record which lots it drew down, and lot state
// may have been edited since. Restoring the position means re-editing the
// lots (or re-importing) and letting reconciliation converge.
func (s *Service) DeleteTransaction(ctx context.Context, userID, id string) error {
	existing, err := s.storage.LedgerStore().GetTransaction(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("transaction %s not found: %w", id, err)
	}

	if err := s.storage.LedgerStore().DeleteTransaction(ctx, userID, id); err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}

	if _, err := s.holdings.Reconcile(ctx, userID, existing.AssetTicker, existing.AccountID); err != nil {
		return fmt.Errorf("failed to reconcile after delete: %w", err)
	}

	s.logger.Info().Str("id", id).Str("ticker", existing.AssetTicker).Msg("Transaction deleted")
	return nil
}

// ListTransactions returns the user's transactions sorted by date.
func (s *Service) ListTransactions(ctx context.Context, userID string) ([]*models.Transaction, error) {
	return s.storage.LedgerStore().ListTransactions(ctx, userID)
}

// ensureHolding creates an empty holding record for a pair if none exists.
// The reconciler fills in quantity and cost basis.
func (s *Service) ensureHolding(ctx context.Context, userID, ticker, accountID string) error {
	existing, err := s.storage.HoldingStore().GetHolding(ctx, userID, ticker, accountID)
	if err != nil {
		return fmt.Errorf("failed to read holding for %s: %w", ticker, err)
	}
	if existing != nil {
		return nil
	}

	now := time.Now()
	h := &models.Holding{
		ID:        generateHoldingID(),
		UserID:    userID,
		Ticker:    ticker,
		AccountID: models.NormalizeAccountID(accountID),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.storage.HoldingStore().PutHolding(ctx, h); err != nil {
		return fmt.Errorf("failed to create holding for %s: %w", ticker, err)
	}
	return nil
}

// generateHoldingID returns an ID like "hl_1a2b3c4d".
func generateHoldingID() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "hl_00000000"
	}
	return "hl_" + hex.EncodeToString(b)
}

// validateTradeInput checks the shared buy/sell constraints.
func validateTradeInput(ticker string, quantity, price, fees float64) error {
	if strings.TrimSpace(ticker) == "" {
		return fmt.Errorf("asset ticker is required")
	}
	if quantity <= 0 || math.IsNaN(quantity) || math.IsInf(quantity, 0) {
		return fmt.Errorf("quantity must be a positive number")
	}
	if price < 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return fmt.Errorf("price per unit must be a non-negative number")
	}
	if fees < 0 || math.IsNaN(fees) || math.IsInf(fees, 0) {
		return fmt.Errorf("fees must be a non-negative number")
	}
	return nil
}
