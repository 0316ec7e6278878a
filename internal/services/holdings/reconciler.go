// Package holdings derives holding state from the transaction ledger.
// Holdings are a pure function of their backing buy lots: the reconciler
// recomputes the target quantity and cost basis for a (ticker, account)
// pair and writes only the delta needed to converge.
package holdings

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/rjmcleod/finch/internal/common"
	"github.com/rjmcleod/finch/internal/interfaces"
	"github.com/rjmcleod/finch/internal/models"
)

// Compile-time interface check
var _ interfaces.HoldingsService = (*Service)(nil)

// Service implements HoldingsService
type Service struct {
	storage interfaces.StorageManager
	logger  *common.Logger

	// Per-pair locks: at most one in-flight reconciliation per
	// (ticker, account) key, so concurrent ledger mutations cannot race
	// and leave a holding transiently inconsistent.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService creates a new holdings service
func NewService(storage interfaces.StorageManager, logger *common.Logger) *Service {
	return &Service{
		storage: storage,
		logger:  logger,
		locks:   make(map[string]*sync.Mutex),
	}
}

// lockPair acquires the mutex for a (user, ticker, account) key and
// returns its unlock function.
func (s *Service) lockPair(userID, ticker, accountID string) func() {
	key := userID + "\x00" + ticker + "\x00" + models.NormalizeAccountID(accountID)
	s.mu.Lock()
	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}
	s.mu.Unlock()
	lock.Lock()
	return lock.Unlock
}

// LotsFor returns the buy-type lots backing a (ticker, account) pair.
// Account matching is null-normalized: a missing account on either side
// lands in the same "unassigned" bucket. Read-only.
func (s *Service) LotsFor(ctx context.Context, userID, ticker, accountID string) ([]*models.Transaction, error) {
	txs, err := s.storage.LedgerStore().ListForAsset(ctx, userID, ticker, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger for %s: %w", ticker, err)
	}
	var lots []*models.Transaction
	for _, tx := range txs {
		if tx.IsBuy() {
			lots = append(lots, tx)
		}
	}
	return lots, nil
}

// Reconcile recomputes the holding for one (ticker, account) pair from its
// backing lots and writes only when the stored state diverges beyond
// tolerance. Ledger read failures propagate unchanged; a missing holding
// with a nonzero derived quantity is reported as a data-integrity gap, not
// repaired, since holding creation belongs to the buy path.
func (s *Service) Reconcile(ctx context.Context, userID, ticker, accountID string) (*models.ReconcileResult, error) {
	unlock := s.lockPair(userID, ticker, accountID)
	defer unlock()

	lots, err := s.LotsFor(ctx, userID, ticker, accountID)
	if err != nil {
		return nil, err
	}

	targetQuantity := 0.0
	targetCostBasis := 0.0
	for _, lot := range lots {
		targetQuantity += lot.Remaining()
		targetCostBasis += lot.RemainingCostBasis()
	}

	holding, err := s.storage.HoldingStore().GetHolding(ctx, userID, ticker, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to read holding for %s: %w", ticker, err)
	}

	result := &models.ReconcileResult{
		Ticker:    ticker,
		AccountID: models.NormalizeAccountID(accountID),
		Quantity:  targetQuantity,
		CostBasis: targetCostBasis,
		Lots:      len(lots),
	}
	if holding != nil {
		result.PreviousQuantity = holding.Quantity
		result.PreviousCostBasis = holding.CostBasisTotal
	}

	if targetQuantity > models.QuantityEpsilon {
		switch {
		case holding == nil:
			result.Status = models.ReconcileMissingHolding
			s.logger.Warn().
				Str("ticker", ticker).
				Str("account", result.AccountID).
				Float64("quantity", targetQuantity).
				Msg("Lots exist but no holding record found")

		case math.Abs(targetQuantity-holding.Quantity) > models.QuantityEpsilon:
			holding.Quantity = targetQuantity
			holding.CostBasisTotal = targetCostBasis
			holding.ReconciledAt = time.Now()
			if err := s.storage.HoldingStore().PutHolding(ctx, holding); err != nil {
				return nil, fmt.Errorf("failed to update holding for %s: %w", ticker, err)
			}
			result.Status = models.ReconcileUpdated
			s.logger.Info().
				Str("ticker", ticker).
				Str("account", result.AccountID).
				Float64("quantity", targetQuantity).
				Float64("cost_basis", targetCostBasis).
				Msg("Holding reconciled")

		default:
			result.Status = models.ReconcileConverged
		}
		return result, nil
	}

	// Derived quantity is effectively zero.
	if holding != nil && math.Abs(holding.Quantity) > models.QuantityEpsilon {
		holding.Quantity = 0
		holding.CostBasisTotal = 0
		holding.ReconciledAt = time.Now()
		if err := s.storage.HoldingStore().PutHolding(ctx, holding); err != nil {
			return nil, fmt.Errorf("failed to zero holding for %s: %w", ticker, err)
		}
		result.Status = models.ReconcileZeroed
		s.logger.Info().
			Str("ticker", ticker).
			Str("account", result.AccountID).
			Msg("Holding zeroed")
		return result, nil
	}

	if holding != nil {
		result.Status = models.ReconcileConverged
	} else {
		result.Status = models.ReconcileEmpty
	}
	return result, nil
}

// ReconcileAccount reconciles every distinct ticker present in the
// account's transactions, strictly sequentially. A store failure aborts
// the remaining queue; prior pairs stay corrected.
func (s *Service) ReconcileAccount(ctx context.Context, userID, accountID string) ([]models.ReconcileResult, error) {
	txs, err := s.storage.LedgerStore().ListForAccount(ctx, userID, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger for account: %w", err)
	}

	tickers := distinctTickers(txs)
	results := make([]models.ReconcileResult, 0, len(tickers))
	for _, ticker := range tickers {
		res, err := s.Reconcile(ctx, userID, ticker, accountID)
		if err != nil {
			return results, err
		}
		results = append(results, *res)
	}
	return results, nil
}

// ReconcileAll reconciles every distinct (ticker, account) pair across the
// user's ledger, strictly sequentially.
func (s *Service) ReconcileAll(ctx context.Context, userID string) ([]models.ReconcileResult, error) {
	txs, err := s.storage.LedgerStore().ListTransactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}

	type pair struct{ ticker, account string }
	seen := make(map[pair]bool)
	var pairs []pair
	for _, tx := range txs {
		p := pair{tx.AssetTicker, models.NormalizeAccountID(tx.AccountID)}
		if !seen[p] {
			seen[p] = true
			pairs = append(pairs, p)
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].ticker == pairs[j].ticker {
			return pairs[i].account < pairs[j].account
		}
		return pairs[i].ticker < pairs[j].ticker
	})

	results := make([]models.ReconcileResult, 0, len(pairs))
	for _, p := range pairs {
		res, err := s.Reconcile(ctx, userID, p.ticker, p.account)
		if err != nil {
			return results, err
		}
		results = append(results, *res)
	}
	return results, nil
}

// ListHoldings returns the user's holding records.
func (s *Service) ListHoldings(ctx context.Context, userID string) ([]*models.Holding, error) {
	return s.storage.HoldingStore().ListHoldings(ctx, userID)
}

// distinctTickers returns the sorted set of tickers present in txs.
func distinctTickers(txs []*models.Transaction) []string {
	seen := make(map[string]bool)
	var tickers []string
	for _, tx := range txs {
		if !seen[tx.AssetTicker] {
			seen[tx.AssetTicker] = true
			tickers = append(tickers, tx.AssetTicker)
		}
	}
	sort.Strings(tickers)
	return tickers
}
