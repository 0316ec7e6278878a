package models

import (
	"strings"
	"time"
)

// Transaction types.
const (
	TransactionBuy  = "buy"
	TransactionSell = "sell"
)

// QuantityEpsilon is the tolerance below which a quantity is treated as
// zero. Monetary/quantity comparisons across the ledger and reconciler
// all use this constant.
const QuantityEpsilon = 1e-8

// PayoffTolerance is the residual balance below which a liability counts
// as paid off (fractional-cent rounding in amortization).
const PayoffTolerance = 0.01

// Transaction is a ledger entry. Buy transactions are lots: they carry a
// cost basis fixed at purchase time and a remaining quantity that sells
// consume. Lots are the source of truth; holdings are derived from them.
type Transaction struct {
	ID                string    `json:"id"`
	UserID            string    `json:"user_id"`
	Type              string    `json:"type"` // buy, sell
	AssetTicker       string    `json:"asset_ticker"`
	AccountID         string    `json:"account_id,omitempty"` // empty = unassigned bucket
	Quantity          float64   `json:"quantity"`
	PricePerUnit      float64   `json:"price_per_unit"`
	Fees              float64   `json:"fees,omitempty"`
	CostBasis         float64   `json:"cost_basis,omitempty"`         // buys only, set at purchase
	RemainingQuantity *float64  `json:"remaining_quantity,omitempty"` // buys only; nil means untouched
	Date              time.Time `json:"date"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// IsBuy reports whether the transaction is a buy lot.
func (t Transaction) IsBuy() bool {
	return strings.EqualFold(t.Type, TransactionBuy)
}

// Remaining returns the unconsumed quantity of a lot: the tracked
// remaining quantity when present, otherwise the full original quantity.
func (t Transaction) Remaining() float64 {
	if t.RemainingQuantity != nil {
		return *t.RemainingQuantity
	}
	return t.Quantity
}

// RemainingCostBasis returns the cost basis scaled by the unconsumed
// fraction of the lot. Lots with zero original quantity contribute nothing.
func (t Transaction) RemainingCostBasis() float64 {
	if t.Quantity <= 0 {
		return 0
	}
	return t.CostBasis * t.Remaining() / t.Quantity
}

// NormalizeAccountID collapses the "unassigned" representations (empty or
// whitespace) to the empty string so a missing account on either side of a
// comparison lands in the same bucket.
func NormalizeAccountID(accountID string) string {
	return strings.TrimSpace(accountID)
}

// Holding is the derived per-account aggregate position in an asset.
// Quantity and cost basis are pure derivations from the backing lots;
// only the reconciler writes them.
type Holding struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Ticker         string    `json:"ticker"`
	AccountID      string    `json:"account_id,omitempty"`
	Quantity       float64   `json:"quantity"`
	CostBasisTotal float64   `json:"cost_basis_total"`
	ReconciledAt   time.Time `json:"reconciled_at,omitempty"` // last reconciler write
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// BuyRequest is the input for recording a buy lot.
type BuyRequest struct {
	AssetTicker  string    `json:"asset_ticker"`
	AccountID    string    `json:"account_id,omitempty"`
	Quantity     float64   `json:"quantity"`
	PricePerUnit float64   `json:"price_per_unit"`
	Fees         float64   `json:"fees,omitempty"`
	Date         time.Time `json:"date"`
}

// SellRequest is the input for recording a sell against existing lots.
type SellRequest struct {
	AssetTicker  string    `json:"asset_ticker"`
	AccountID    string    `json:"account_id,omitempty"`
	Quantity     float64   `json:"quantity"`
	PricePerUnit float64   `json:"price_per_unit"`
	Fees         float64   `json:"fees,omitempty"`
	Date         time.Time `json:"date"`
}

// ImportSummary reports the outcome of a CSV ledger import.
type ImportSummary struct {
	Imported   int      `json:"imported"`
	Skipped    int      `json:"skipped"`
	Reconciled int      `json:"reconciled"`
	Errors     []string `json:"errors,omitempty"`
}
