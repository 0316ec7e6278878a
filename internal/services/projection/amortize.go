package projection

import (
	"github.com/rjmcleod/finch/internal/models"
)

// monthsPerYear is the number of simulated months in a full calendar year.
const monthsPerYear = 12

// yearResult is the outcome of simulating one liability over part of a
// calendar year.
type yearResult struct {
	EndingBalance float64
	TotalPaid     float64
	PaidOff       bool
}

// simulateDebtYear runs a liability's month-by-month balance evolution over
// the (startMonth, endMonth] range of one calendar year. Months are
// 0-based; a full year is (0, 12].
//
// With a payment in play, each month accrues interest first, then applies
// the base + extra payment; the attempted full payment accumulates into
// TotalPaid even when it overshoots the balance (overpayment is not
// tracked as residual credit). Once the balance reaches zero the remaining
// months are skipped. With no payment but a positive rate, the balance
// grows by simple annual interest pro-rated to the range — no monthly
// compounding. With neither, the balance is unchanged.
func simulateDebtYear(balance, monthlyPayment, annualRate, extraMonthly float64, startMonth, endMonth int) yearResult {
	start := balance
	payment := monthlyPayment + extraMonthly

	switch {
	case payment > 0:
		monthlyRate := 0.0
		if annualRate > 0 {
			monthlyRate = annualRate / 100 / monthsPerYear
		}
		totalPaid := 0.0
		for m := startMonth; m < endMonth; m++ {
			if balance <= 0 {
				break
			}
			if monthlyRate > 0 {
				balance += balance * monthlyRate
			}
			balance -= payment
			if balance < 0 {
				balance = 0
			}
			totalPaid += payment
		}
		return yearResult{
			EndingBalance: balance,
			TotalPaid:     totalPaid,
			PaidOff:       start > 0 && balance <= models.PayoffTolerance,
		}

	case annualRate > 0:
		months := endMonth - startMonth
		balance += balance * (annualRate / 100) * float64(months) / monthsPerYear
		return yearResult{EndingBalance: balance}

	default:
		return yearResult{EndingBalance: balance}
	}
}

// BuildDebtSummary computes the current-month and remainder-of-year debt
// payment picture across the given liabilities. currentMonth is 0-based
// (January = 0); the year projection simulates from currentMonth through
// December with no extra payments.
func BuildDebtSummary(liabilities []*models.Liability, currentMonth int) *models.DebtSummary {
	summary := &models.DebtSummary{}

	for _, l := range liabilities {
		if l.CurrentBalance <= 0 {
			continue
		}
		summary.ActiveLiabilities++
		summary.TotalBalance += l.CurrentBalance
		summary.MonthlyPayment += l.MonthlyPayment

		interest := 0.0
		if l.InterestRate > 0 {
			interest = l.CurrentBalance * l.InterestRate / 100 / monthsPerYear
		}
		summary.MonthlyInterest += interest
		if principal := l.MonthlyPayment - interest; principal > 0 {
			summary.MonthlyPrincipal += principal
		}

		res := simulateDebtYear(l.CurrentBalance, l.MonthlyPayment, l.InterestRate, 0, currentMonth, monthsPerYear)
		summary.YearProjectedPayment += res.TotalPaid
		if res.PaidOff {
			summary.PaidOffThisYear = append(summary.PaidOffThisYear, l.Name)
		}
	}

	return summary
}
