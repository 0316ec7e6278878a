// Package interfaces defines service contracts for Finch
package interfaces

import (
	"context"
	"io"

	"github.com/rjmcleod/finch/internal/models"
)

// ProjectionService produces the multi-year cash-flow forecast.
type ProjectionService interface {
	// Project runs the pure simulation over the supplied snapshots. The
	// returned series is deterministic: identical inputs always produce an
	// identical series.
	Project(input models.ProjectionInput) []models.ProjectionYear

	// ProjectForUser loads the user's liabilities, life events, goals, and
	// settings and projects with the supplied income/budget scalars.
	ProjectForUser(ctx context.Context, userID string, monthlyIncome, monthlyBudgetExpenses float64) ([]models.ProjectionYear, error)

	// RenderChart renders the series as a PNG.
	RenderChart(series []models.ProjectionYear) ([]byte, error)

	// DebtSummary computes the current-month and remainder-of-year debt
	// payment summary across the user's liabilities.
	DebtSummary(ctx context.Context, userID string) (*models.DebtSummary, error)
}

// LedgerService owns all ledger mutations. Every mutation triggers
// reconciliation for the affected (ticker, account) pair(s) before it is
// considered complete.
type LedgerService interface {
	RecordBuy(ctx context.Context, userID string, req models.BuyRequest) (*models.Transaction, error)
	RecordSell(ctx context.Context, userID string, req models.SellRequest) (*models.Transaction, error)
	UpdateTransaction(ctx context.Context, userID, id string, update models.Transaction) (*models.Transaction, error)
	DeleteTransaction(ctx context.Context, userID, id string) error
	ListTransactions(ctx context.Context, userID string) ([]*models.Transaction, error)

	// ImportCSV ingests lots from a CSV stream and reconciles every
	// affected pair.
	ImportCSV(ctx context.Context, userID string, r io.Reader) (*models.ImportSummary, error)
}

// HoldingsService derives holding state from the transaction ledger.
type HoldingsService interface {
	// LotsFor returns the buy-type lots backing a (ticker, account) pair.
	LotsFor(ctx context.Context, userID, ticker, accountID string) ([]*models.Transaction, error)

	// Reconcile recomputes one pair's holding and writes only the delta
	// needed to converge.
	Reconcile(ctx context.Context, userID, ticker, accountID string) (*models.ReconcileResult, error)

	// ReconcileAccount reconciles every ticker present in the account.
	ReconcileAccount(ctx context.Context, userID, accountID string) ([]models.ReconcileResult, error)

	// ReconcileAll reconciles every (ticker, account) pair in the ledger.
	ReconcileAll(ctx context.Context, userID string) ([]models.ReconcileResult, error)

	ListHoldings(ctx context.Context, userID string) ([]*models.Holding, error)
}

// PlanService manages the projection input entities.
type PlanService interface {
	ListLiabilities(ctx context.Context, userID string) ([]*models.Liability, error)
	AddLiability(ctx context.Context, userID string, l *models.Liability) (*models.Liability, error)
	UpdateLiability(ctx context.Context, userID, id string, update models.Liability) (*models.Liability, error)
	DeleteLiability(ctx context.Context, userID, id string) error

	ListLifeEvents(ctx context.Context, userID string) ([]*models.LifeEvent, error)
	AddLifeEvent(ctx context.Context, userID string, e *models.LifeEvent) (*models.LifeEvent, error)
	UpdateLifeEvent(ctx context.Context, userID, id string, update models.LifeEvent) (*models.LifeEvent, error)
	DeleteLifeEvent(ctx context.Context, userID, id string) error

	ListGoals(ctx context.Context, userID string) ([]*models.Goal, error)
	AddGoal(ctx context.Context, userID string, g *models.Goal) (*models.Goal, error)
	UpdateGoal(ctx context.Context, userID, id string, update models.Goal) (*models.Goal, error)
	DeleteGoal(ctx context.Context, userID, id string) error

	GetSettings(ctx context.Context, userID string) (*models.UserSettings, error)
	SaveSettings(ctx context.Context, userID string, s models.UserSettings) (*models.UserSettings, error)
}
