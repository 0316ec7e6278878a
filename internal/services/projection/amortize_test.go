package projection

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rjmcleod/finch/internal/models"
)

func TestSimulateDebtYearZeroInterest(t *testing.T) {
	// No interest: balance declines linearly and clears in exactly 12 payments.
	res := simulateDebtYear(12000, 1000, 0, 0, 0, 12)
	assert.Zero(t, res.EndingBalance)
	assert.Equal(t, 12000.0, res.TotalPaid)
	assert.True(t, res.PaidOff)
}

func TestSimulateDebtYearAmortizesWithinYear(t *testing.T) {
	// 12,000 at 5% with a 1,073 payment converges inside the year.
	res := simulateDebtYear(12000, 1073, 5, 0, 0, 12)
	assert.LessOrEqual(t, res.EndingBalance, models.PayoffTolerance)
	assert.True(t, res.PaidOff)
}

func TestSimulateDebtYearAccruesBeforePayment(t *testing.T) {
	// 12% annual = 1% monthly. Interest accrues before the payment lands,
	// so a payment equal to the starting balance leaves the accrued
	// interest behind.
	res := simulateDebtYear(1200, 1200, 12, 0, 0, 1)
	assert.InDelta(t, 12.0, res.EndingBalance, 1e-9)
	assert.Equal(t, 1200.0, res.TotalPaid)
	assert.False(t, res.PaidOff, "accrued interest remains outstanding")

	// Second month clears the residual.
	res = simulateDebtYear(1200, 1200, 12, 0, 0, 2)
	assert.Zero(t, res.EndingBalance)
	assert.Equal(t, 2400.0, res.TotalPaid, "attempted payments accumulate unclamped")
	assert.True(t, res.PaidOff)
}

func TestSimulateDebtYearStopsAfterPayoff(t *testing.T) {
	// Paid off in month 1; the remaining 11 months contribute nothing.
	res := simulateDebtYear(100, 1000, 0, 0, 0, 12)
	assert.Zero(t, res.EndingBalance)
	assert.Equal(t, 1000.0, res.TotalPaid)
	assert.True(t, res.PaidOff)
}

func TestSimulateDebtYearExtraPayment(t *testing.T) {
	base := simulateDebtYear(12000, 500, 0, 0, 0, 12)
	extra := simulateDebtYear(12000, 500, 0, 500, 0, 12)
	assert.InDelta(t, 6000.0, base.EndingBalance, 1e-9)
	assert.Zero(t, extra.EndingBalance)
	assert.True(t, extra.PaidOff)
	assert.False(t, base.PaidOff)
}

func TestSimulateDebtYearNoPaymentSimpleInterest(t *testing.T) {
	// No payment: simple annual interest pro-rated to the range, no
	// monthly compounding.
	res := simulateDebtYear(10000, 0, 12, 0, 0, 12)
	assert.InDelta(t, 11200.0, res.EndingBalance, 1e-9)
	assert.Zero(t, res.TotalPaid)
	assert.False(t, res.PaidOff)

	half := simulateDebtYear(10000, 0, 12, 0, 6, 12)
	assert.InDelta(t, 10600.0, half.EndingBalance, 1e-9)
}

func TestSimulateDebtYearInert(t *testing.T) {
	res := simulateDebtYear(5000, 0, 0, 0, 0, 12)
	assert.Equal(t, 5000.0, res.EndingBalance)
	assert.Zero(t, res.TotalPaid)
	assert.False(t, res.PaidOff)
}

func TestSimulateDebtYearPartialYearRange(t *testing.T) {
	// Starting in November leaves two simulated months.
	res := simulateDebtYear(12000, 1000, 0, 0, 10, 12)
	assert.InDelta(t, 10000.0, res.EndingBalance, 1e-9)
	assert.Equal(t, 2000.0, res.TotalPaid)
}

func TestBuildDebtSummary(t *testing.T) {
	liabilities := []*models.Liability{
		{ID: "l1", Name: "Mortgage", CurrentBalance: 12000, MonthlyPayment: 400, InterestRate: 12},
		{ID: "l2", Name: "Paid card", CurrentBalance: 0, MonthlyPayment: 100, InterestRate: 20},
	}

	// July (month index 6): six months remain in the year.
	summary := BuildDebtSummary(liabilities, 6)
	assert.Equal(t, 1, summary.ActiveLiabilities, "zero-balance liabilities excluded")
	assert.Equal(t, 12000.0, summary.TotalBalance)
	assert.Equal(t, 400.0, summary.MonthlyPayment)
	assert.InDelta(t, 120.0, summary.MonthlyInterest, 1e-9) // 12000 * 12% / 12
	assert.InDelta(t, 280.0, summary.MonthlyPrincipal, 1e-9)
	assert.InDelta(t, 2400.0, summary.YearProjectedPayment, 1e-9)
	assert.Empty(t, summary.PaidOffThisYear)
}

func TestBuildDebtSummaryPayoffWithinYear(t *testing.T) {
	liabilities := []*models.Liability{
		{ID: "l1", Name: "Car loan", CurrentBalance: 1500, MonthlyPayment: 800, InterestRate: 0},
	}

	summary := BuildDebtSummary(liabilities, 0)
	assert.Equal(t, []string{"Car loan"}, summary.PaidOffThisYear)
	assert.InDelta(t, 1600.0, summary.YearProjectedPayment, 1e-9)
}

func TestPayoffToleranceConstant(t *testing.T) {
	// A residual of exactly one cent still counts as paid off.
	res := simulateDebtYear(1000.01, 1000, 0, 0, 0, 1)
	assert.InDelta(t, 0.01, res.EndingBalance, 1e-9)
	assert.True(t, res.PaidOff)
	assert.LessOrEqual(t, res.EndingBalance, models.PayoffTolerance)
}
