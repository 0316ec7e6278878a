package projection

import (
	"math"

	"github.com/rjmcleod/finch/internal/models"
)

// eventImpact evaluates an active life event for one projection year and
// returns the income and expense deltas it contributes.
//
// The nominal amount is scaled by the income growth multiplier only for
// income-routed events and explicit income-change events; everything else
// keeps its nominal value. Routing: income events carry their sign through
// to the income line; expense events contribute their magnitude to
// expenses; asset events land on income when positive (windfall) and on
// expenses when negative (one-off cost).
func eventImpact(e models.LifeEvent, year int, incomeGrowthPct float64) (income, expense float64) {
	amount := e.Amount
	if e.Affects == models.AffectsIncome || e.EventType == models.EventTypeIncomeChange {
		yearsOut := year - e.Year
		if yearsOut < 0 {
			yearsOut = 0
		}
		amount *= math.Pow(1+incomeGrowthPct/100, float64(yearsOut))
	}

	switch e.Affects {
	case models.AffectsIncome:
		return amount, 0
	case models.AffectsExpenses:
		return 0, math.Abs(amount)
	case models.AffectsAssets:
		if amount > 0 {
			return amount, 0
		}
		return 0, -amount
	}
	return 0, 0
}
