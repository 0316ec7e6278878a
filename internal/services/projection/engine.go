// Package projection implements the deterministic financial state engine:
// a multi-year cash-flow forecast composed from income growth, budget
// inflation, month-granular debt amortization, life event windows, and
// goal funding.
package projection

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rjmcleod/finch/internal/common"
	"github.com/rjmcleod/finch/internal/interfaces"
	"github.com/rjmcleod/finch/internal/models"
)

// Compile-time interface check
var _ interfaces.ProjectionService = (*Service)(nil)

// Service implements ProjectionService
type Service struct {
	storage interfaces.StorageManager
	config  *common.Config
	logger  *common.Logger
}

// NewService creates a new projection service
func NewService(storage interfaces.StorageManager, config *common.Config, logger *common.Logger) *Service {
	return &Service{
		storage: storage,
		config:  config,
		logger:  logger,
	}
}

// Project runs the simulation over the supplied snapshots. It is pure:
// no I/O, no randomness, and all running debt state is local to one call.
func (s *Service) Project(input models.ProjectionInput) []models.ProjectionYear {
	start := input.Start
	if start.IsZero() {
		start = time.Now()
	}
	currentYear := start.Year()
	currentMonth := int(start.Month()) - 1 // 0-based
	growth := input.Settings.IncomeGrowthPct()
	inflation := input.Settings.InflationRate

	// Running balances, carried forward across years. Owned by this call.
	running := make(map[string]float64, len(input.Liabilities))
	for _, l := range input.Liabilities {
		running[l.ID] = l.CurrentBalance
	}

	series := make([]models.ProjectionYear, 0, models.ProjectionHorizonYears+1)

	for i := 0; i <= models.ProjectionHorizonYears; i++ {
		year := currentYear + i

		yearIncome := input.MonthlyIncome * monthsPerYear * math.Pow(1+growth/100, float64(i))
		baseExpenses := input.MonthlyBudgetExpenses * monthsPerYear * math.Pow(1+inflation/100, float64(i))

		extras := extraPayments(input.Goals, year, currentYear)

		// Debt: the first year runs from the current calendar month,
		// later years run the full 12 months.
		startMonth := 0
		if i == 0 {
			startMonth = currentMonth
		}
		debtPayments := 0.0
		var payoffNotes []string
		for _, l := range input.Liabilities {
			balance := running[l.ID]
			if balance <= 0 {
				continue
			}
			res := simulateDebtYear(balance, l.MonthlyPayment, l.InterestRate, extras[l.ID], startMonth, monthsPerYear)
			running[l.ID] = res.EndingBalance
			debtPayments += res.TotalPaid
			if res.PaidOff {
				payoffNotes = append(payoffNotes, fmt.Sprintf("%s paid off", l.Name))
			}
		}

		lifeEventIncome := 0.0
		lifeEventExpenses := 0.0
		var names []string
		for _, e := range input.LifeEvents {
			if !e.ActiveIn(year) {
				continue
			}
			income, expense := eventImpact(e, year, growth)
			lifeEventIncome += income
			lifeEventExpenses += expense
			names = append(names, e.Name)
		}

		goalTotal, goalNames := goalExpenses(input.Goals, year, currentYear)
		names = append(names, goalNames...)
		names = append(names, payoffNotes...)

		// Round components at emission only; totals are sums of the
		// rounded components so the conservation identities hold exactly.
		rIncome := math.Round(yearIncome + lifeEventIncome)
		rBase := math.Round(baseExpenses)
		rDebt := math.Round(debtPayments)
		rLifeExp := math.Round(lifeEventExpenses)
		rGoal := math.Round(goalTotal)
		rExpenses := rBase + rDebt + rLifeExp + rGoal

		series = append(series, models.ProjectionYear{
			Year:              year,
			TotalIncome:       rIncome,
			TotalExpenses:     rExpenses,
			BaseExpenses:      rBase,
			DebtPayments:      rDebt,
			LifeEventExpenses: rLifeExp,
			GoalExpenses:      rGoal,
			NetCashFlow:       rIncome - rExpenses,
			HasEvents:         len(names) > 0,
			EventNames:        names,
		})
	}

	return series
}

// ProjectForUser loads the user's projection entities and runs the
// simulation with the supplied income/budget scalars.
func (s *Service) ProjectForUser(ctx context.Context, userID string, monthlyIncome, monthlyBudgetExpenses float64) ([]models.ProjectionYear, error) {
	plans := s.storage.PlanStore()

	liabilities, err := plans.ListLiabilities(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load liabilities: %w", err)
	}
	events, err := plans.ListLifeEvents(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load life events: %w", err)
	}
	goals, err := plans.ListGoals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load goals: %w", err)
	}
	settings, err := plans.GetSettings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	input := models.ProjectionInput{
		MonthlyIncome:         monthlyIncome,
		MonthlyBudgetExpenses: monthlyBudgetExpenses,
		Settings:              *settings,
	}
	for _, l := range liabilities {
		input.Liabilities = append(input.Liabilities, *l)
	}
	for _, e := range events {
		input.LifeEvents = append(input.LifeEvents, *e)
	}
	for _, g := range goals {
		input.Goals = append(input.Goals, *g)
	}

	series := s.Project(input)

	s.logger.Debug().
		Str("user", userID).
		Int("years", len(series)).
		Int("liabilities", len(liabilities)).
		Int("events", len(events)).
		Int("goals", len(goals)).
		Msg("Projection computed")

	return series, nil
}

// DebtSummary computes the current-month and remainder-of-year payment
// summary across the user's liabilities.
func (s *Service) DebtSummary(ctx context.Context, userID string) (*models.DebtSummary, error) {
	liabilities, err := s.storage.PlanStore().ListLiabilities(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load liabilities: %w", err)
	}
	currentMonth := int(time.Now().Month()) - 1
	return BuildDebtSummary(liabilities, currentMonth), nil
}
