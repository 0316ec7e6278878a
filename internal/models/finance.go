// Package models defines data structures for Finch
package models

import "time"

// LifeEvent routing targets — which projection line an event's amount lands on.
const (
	AffectsIncome   = "income"
	AffectsExpenses = "expenses"
	AffectsAssets   = "assets"
)

// EventTypeIncomeChange marks events whose amount grows with income
// regardless of routing (e.g. a raise recorded against expenses).
const EventTypeIncomeChange = "income_change"

// GoalTypeDebtPayoff marks goals that accelerate a linked liability.
const GoalTypeDebtPayoff = "debt_payoff"

// DefaultIncomeGrowthRate is the assumed annual income growth (percent)
// when the user has not set one.
const DefaultIncomeGrowthRate = 3.0

// Liability represents a debt obligation (loan, mortgage, card balance).
// Balances here are the stored snapshot; projection simulates forward
// balances without writing them back.
type Liability struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Name           string    `json:"name"`
	CurrentBalance float64   `json:"current_balance"`
	MonthlyPayment float64   `json:"monthly_payment,omitempty"`
	InterestRate   float64   `json:"interest_rate,omitempty"` // annual, percent
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// LifeEvent is a one-off or recurring financial occurrence (raise,
// relocation, windfall) with a defined activation window.
type LifeEvent struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Name           string    `json:"name"`
	EventType      string    `json:"event_type,omitempty"`
	Affects        string    `json:"affects"` // income, expenses, assets
	Year           int       `json:"year"`
	IsRecurring    bool      `json:"is_recurring,omitempty"`
	RecurringYears int       `json:"recurring_years,omitempty"`
	Amount         float64   `json:"amount"` // signed
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Span returns the recurrence window length in years, minimum 1.
func (e LifeEvent) Span() int {
	if e.RecurringYears > 1 {
		return e.RecurringYears
	}
	return 1
}

// ActiveIn reports whether the event applies to the given calendar year:
// the origin year always, plus the recurrence window when recurring.
func (e LifeEvent) ActiveIn(year int) bool {
	if year == e.Year {
		return true
	}
	return e.IsRecurring && year >= e.Year && year < e.Year+e.Span()
}

// Goal is a funding target: either a lump-sum spend or an accelerated
// payoff of a linked liability.
type Goal struct {
	ID                string    `json:"id"`
	UserID            string    `json:"user_id"`
	Name              string    `json:"name"`
	GoalType          string    `json:"goal_type,omitempty"`
	TargetDate        string    `json:"target_date,omitempty"` // "2006-01-02", optional
	TargetAmount      float64   `json:"target_amount"`
	WillBeSpent       bool      `json:"will_be_spent,omitempty"`
	LinkedLiabilityID string    `json:"linked_liability_id,omitempty"`
	PayoffYears       int       `json:"payoff_years,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// goalDateLayouts are the accepted target date formats.
var goalDateLayouts = []string{"2006-01-02", "2006-01-02T15:04:05"}

// TargetYear returns the year of the goal's target date, or fallback when
// no parseable date is set.
func (g Goal) TargetYear(fallback int) int {
	if g.TargetDate != "" {
		for _, layout := range goalDateLayouts {
			if t, err := time.Parse(layout, g.TargetDate); err == nil {
				return t.Year()
			}
		}
	}
	return fallback
}

// HasTargetDate reports whether the goal carries a parseable target date.
func (g Goal) HasTargetDate() bool {
	for _, layout := range goalDateLayouts {
		if _, err := time.Parse(layout, g.TargetDate); err == nil {
			return true
		}
	}
	return false
}

// UserSettings holds projection assumptions for a user.
type UserSettings struct {
	UserID           string    `json:"user_id"`
	InflationRate    float64   `json:"inflation_rate,omitempty"`     // annual, percent
	IncomeGrowthRate *float64  `json:"income_growth_rate,omitempty"` // annual, percent; nil means default
	UpdatedAt        time.Time `json:"updated_at"`
}

// IncomeGrowthPct returns the configured income growth rate, or the
// default when unset.
func (s UserSettings) IncomeGrowthPct() float64 {
	if s.IncomeGrowthRate != nil {
		return *s.IncomeGrowthRate
	}
	return DefaultIncomeGrowthRate
}
