package models

// ReconcileStatus classifies the outcome of one reconciliation pass.
type ReconcileStatus string

const (
	// ReconcileUpdated — holding existed and was rewritten to the derived state.
	ReconcileUpdated ReconcileStatus = "updated"
	// ReconcileConverged — holding already matched within tolerance; no write.
	ReconcileConverged ReconcileStatus = "converged"
	// ReconcileZeroed — lots are fully consumed; holding driven to zero.
	ReconcileZeroed ReconcileStatus = "zeroed"
	// ReconcileMissingHolding — lots exist but no holding record does.
	// Holding creation belongs to the buy path, so this is reported as a
	// data-integrity gap rather than repaired here.
	ReconcileMissingHolding ReconcileStatus = "missing_holding"
	// ReconcileEmpty — no lots and nothing to zero; nothing done.
	ReconcileEmpty ReconcileStatus = "empty"
)

// Wrote reports whether the status implies a holding write.
func (s ReconcileStatus) Wrote() bool {
	return s == ReconcileUpdated || s == ReconcileZeroed
}

// ReconcileResult is the structured outcome of reconciling one
// (ticker, account) pair. Callers and tests assert on it directly; log
// lines remain informational only.
type ReconcileResult struct {
	Ticker            string          `json:"ticker"`
	AccountID         string          `json:"account_id,omitempty"`
	Status            ReconcileStatus `json:"status"`
	Quantity          float64         `json:"quantity"` // derived target quantity
	CostBasis         float64         `json:"cost_basis"`
	PreviousQuantity  float64         `json:"previous_quantity,omitempty"`
	PreviousCostBasis float64         `json:"previous_cost_basis,omitempty"`
	Lots              int             `json:"lots"`
}
