package projection

import "github.com/rjmcleod/finch/internal/models"

// extraPaymentLabel is appended to debt-payoff goal names so their expense
// entries are distinguishable from lump-sum goal labels.
const extraPaymentLabel = " (extra payment)"

// payoffWindow returns the active span of a debt-payoff goal as
// [start, start+payoffYears), anchored at the target date's year or, when
// absent, the current year. ok is false for goals that are not
// debt-payoff-shaped.
func payoffWindow(g models.Goal, currentYear int) (start, end int, ok bool) {
	if g.GoalType != models.GoalTypeDebtPayoff || g.PayoffYears <= 0 {
		return 0, 0, false
	}
	start = g.TargetYear(currentYear)
	return start, start + g.PayoffYears, true
}

// extraPayments resolves the goal-driven extra monthly payments for one
// projection year, keyed by linked liability ID. A debt-payoff goal
// spreads its target amount evenly across its payoff window:
// target / payoffYears / 12 per month.
func extraPayments(goals []models.Goal, year, currentYear int) map[string]float64 {
	extras := make(map[string]float64)
	for _, g := range goals {
		start, end, ok := payoffWindow(g, currentYear)
		if !ok || g.LinkedLiabilityID == "" {
			continue
		}
		if year >= start && year < end {
			extras[g.LinkedLiabilityID] += g.TargetAmount / float64(g.PayoffYears) / monthsPerYear
		}
	}
	return extras
}

// goalExpenses resolves goal-driven expenses for one projection year:
// lump-sum goals spend their full target amount in the target date's
// year; debt-payoff goals contribute their annualized amount across the
// payoff window. The two paths are evaluated independently, and the
// payoff amount intentionally appears both here and in the amortizer's
// payment total — callers reconcile which line item they want.
func goalExpenses(goals []models.Goal, year, currentYear int) (total float64, names []string) {
	for _, g := range goals {
		if g.WillBeSpent && g.HasTargetDate() && g.TargetYear(currentYear) == year {
			total += g.TargetAmount
			names = append(names, g.Name)
		}
		if start, end, ok := payoffWindow(g, currentYear); ok && year >= start && year < end {
			total += g.TargetAmount / float64(g.PayoffYears)
			names = append(names, g.Name+extraPaymentLabel)
		}
	}
	return total, names
}
