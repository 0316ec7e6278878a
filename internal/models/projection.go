package models

import "time"

// ProjectionHorizonYears is the fixed forecast horizon. The emitted series
// has HorizonYears+1 entries; entry 0 is the current (partial) year.
const ProjectionHorizonYears = 10

// ProjectionInput bundles the snapshots the projection engine consumes.
// The engine performs no loading itself; callers supply already-loaded
// entity lists. Start anchors the simulation — the first year runs from
// Start's calendar month. A zero Start is resolved to "now" by the caller.
type ProjectionInput struct {
	MonthlyIncome         float64
	MonthlyBudgetExpenses float64
	LifeEvents            []LifeEvent
	Goals                 []Goal
	Liabilities           []Liability
	Settings              UserSettings
	Start                 time.Time
}

// ProjectionYear is one emitted year of the forecast series. The JSON
// field names are contractual — chart and table collaborators key off
// them directly. All monetary fields are rounded to the nearest whole
// unit at emission; internal accumulation stays unrounded.
type ProjectionYear struct {
	Year              int      `json:"year"`
	TotalIncome       float64  `json:"totalIncome"`
	TotalExpenses     float64  `json:"totalExpenses"`
	BaseExpenses      float64  `json:"baseExpenses"`
	DebtPayments      float64  `json:"debtPayments"`
	LifeEventExpenses float64  `json:"lifeEventExpenses"`
	GoalExpenses      float64  `json:"goalExpenses"`
	NetCashFlow       float64  `json:"netCashFlow"`
	HasEvents         bool     `json:"hasEvents"`
	EventNames        []string `json:"eventNames"`
}

// DebtSummary gives the current-month and remainder-of-year debt payment
// picture across all liabilities, for dashboard display.
type DebtSummary struct {
	ActiveLiabilities    int      `json:"active_liabilities"`
	MonthlyPayment       float64  `json:"monthly_payment"`
	MonthlyInterest      float64  `json:"monthly_interest"`
	MonthlyPrincipal     float64  `json:"monthly_principal"`
	YearProjectedPayment float64  `json:"year_projected_payment"` // current month through December
	TotalBalance         float64  `json:"total_balance"`
	PaidOffThisYear      []string `json:"paid_off_this_year,omitempty"`
}
