// Package plan manages the projection input entities: liabilities, life
// events, goals, and the user's projection settings.
package plan

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rjmcleod/finch/internal/common"
	"github.com/rjmcleod/finch/internal/interfaces"
	"github.com/rjmcleod/finch/internal/models"
)

// Compile-time interface check
var _ interfaces.PlanService = (*Service)(nil)

// Service implements PlanService
type Service struct {
	storage interfaces.StorageManager
	logger  *common.Logger
}

// NewService creates a new plan service
func NewService(storage interfaces.StorageManager, logger *common.Logger) *Service {
	return &Service{
		storage: storage,
		logger:  logger,
	}
}

func generateID(prefix string) string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return prefix + "_00000000"
	}
	return prefix + "_" + hex.EncodeToString(b)
}

// ---------------------------------------------------------------------------
// Liabilities

func (s *Service) ListLiabilities(ctx context.Context, userID string) ([]*models.Liability, error) {
	return s.storage.PlanStore().ListLiabilities(ctx, userID)
}

func (s *Service) AddLiability(ctx context.Context, userID string, l *models.Liability) (*models.Liability, error) {
	if err := validateLiability(l); err != nil {
		return nil, err
	}

	now := time.Now()
	l.ID = generateID("li")
	l.UserID = userID
	l.CreatedAt = now
	l.UpdatedAt = now

	if err := s.storage.PlanStore().PutLiability(ctx, l); err != nil {
		return nil, fmt.Errorf("failed to store liability: %w", err)
	}
	s.logger.Info().Str("id", l.ID).Str("name", l.Name).Msg("Liability added")
	return l, nil
}

func (s *Service) UpdateLiability(ctx context.Context, userID, id string, update models.Liability) (*models.Liability, error) {
	existing, err := s.storage.PlanStore().GetLiability(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("liability %s not found: %w", id, err)
	}

	if update.Name != "" {
		existing.Name = update.Name
	}
	if update.CurrentBalance != 0 {
		existing.CurrentBalance = update.CurrentBalance
	}
	if update.MonthlyPayment != 0 {
		existing.MonthlyPayment = update.MonthlyPayment
	}
	if update.InterestRate != 0 {
		existing.InterestRate = update.InterestRate
	}
	existing.UpdatedAt = time.Now()

	if err := validateLiability(existing); err != nil {
		return nil, err
	}
	if err := s.storage.PlanStore().PutLiability(ctx, existing); err != nil {
		return nil, fmt.Errorf("failed to update liability: %w", err)
	}
	return existing, nil
}

func (s *Service) DeleteLiability(ctx context.Context, userID, id string) error {
	if _, err := s.storage.PlanStore().GetLiability(ctx, userID, id); err != nil {
		return fmt.Errorf("liability %s not found: %w", id, err)
	}
	if err := s.storage.PlanStore().DeleteLiability(ctx, userID, id); err != nil {
		return fmt.Errorf("failed to delete liability: %w", err)
	}
	s.logger.Info().Str("id", id).Msg("Liability deleted")
	return nil
}

func validateLiability(l *models.Liability) error {
	if strings.TrimSpace(l.Name) == "" {
		return fmt.Errorf("liability name is required")
	}
	if l.CurrentBalance < 0 || !isFinite(l.CurrentBalance) {
		return fmt.Errorf("current balance must be a non-negative number")
	}
	if l.MonthlyPayment < 0 || !isFinite(l.MonthlyPayment) {
		return fmt.Errorf("monthly payment must be a non-negative number")
	}
	if l.InterestRate < 0 || !isFinite(l.InterestRate) {
		return fmt.Errorf("interest rate must be a non-negative number")
	}
	return nil
}

// ---------------------------------------------------------------------------
// Life events

func (s *Service) ListLifeEvents(ctx context.Context, userID string) ([]*models.LifeEvent, error) {
	return s.storage.PlanStore().ListLifeEvents(ctx, userID)
}

func (s *Service) AddLifeEvent(ctx context.Context, userID string, e *models.LifeEvent) (*models.LifeEvent, error) {
	if err := validateLifeEvent(e); err != nil {
		return nil, err
	}

	now := time.Now()
	e.ID = generateID("le")
	e.UserID = userID
	e.CreatedAt = now
	e.UpdatedAt = now

	if err := s.storage.PlanStore().PutLifeEvent(ctx, e); err != nil {
		return nil, fmt.Errorf("failed to store life event: %w", err)
	}
	s.logger.Info().Str("id", e.ID).Str("name", e.Name).Int("year", e.Year).Msg("Life event added")
	return e, nil
}

func (s *Service) UpdateLifeEvent(ctx context.Context, userID, id string, update models.LifeEvent) (*models.LifeEvent, error) {
	existing, err := s.storage.PlanStore().GetLifeEvent(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("life event %s not found: %w", id, err)
	}

	if update.Name != "" {
		existing.Name = update.Name
	}
	if update.EventType != "" {
		existing.EventType = update.EventType
	}
	if update.Affects != "" {
		existing.Affects = update.Affects
	}
	if update.Year != 0 {
		existing.Year = update.Year
	}
	if update.Amount != 0 {
		existing.Amount = update.Amount
	}
	if update.RecurringYears != 0 {
		existing.RecurringYears = update.RecurringYears
	}
	existing.IsRecurring = update.IsRecurring || existing.IsRecurring
	existing.UpdatedAt = time.Now()

	if err := validateLifeEvent(existing); err != nil {
		return nil, err
	}
	if err := s.storage.PlanStore().PutLifeEvent(ctx, existing); err != nil {
		return nil, fmt.Errorf("failed to update life event: %w", err)
	}
	return existing, nil
}

func (s *Service) DeleteLifeEvent(ctx context.Context, userID, id string) error {
	if _, err := s.storage.PlanStore().GetLifeEvent(ctx, userID, id); err != nil {
		return fmt.Errorf("life event %s not found: %w", id, err)
	}
	if err := s.storage.PlanStore().DeleteLifeEvent(ctx, userID, id); err != nil {
		return fmt.Errorf("failed to delete life event: %w", err)
	}
	s.logger.Info().Str("id", id).Msg("Life event deleted")
	return nil
}

func validateLifeEvent(e *models.LifeEvent) error {
	if strings.TrimSpace(e.Name) == "" {
		return fmt.Errorf("life event name is required")
	}
	switch e.Affects {
	case models.AffectsIncome, models.AffectsExpenses, models.AffectsAssets:
	default:
		return fmt.Errorf("invalid affects %q: must be income, expenses, or assets", e.Affects)
	}
	if e.Year < 1900 || e.Year > 3000 {
		return fmt.Errorf("year %d out of range", e.Year)
	}
	if !isFinite(e.Amount) {
		return fmt.Errorf("amount must be a finite number")
	}
	if e.RecurringYears < 0 {
		return fmt.Errorf("recurring years must be non-negative")
	}
	return nil
}

// ---------------------------------------------------------------------------
// Goals

func (s *Service) ListGoals(ctx context.Context, userID string) ([]*models.Goal, error) {
	return s.storage.PlanStore().ListGoals(ctx, userID)
}

func (s *Service) AddGoal(ctx context.Context, userID string, g *models.Goal) (*models.Goal, error) {
	if err := s.validateGoal(ctx, userID, g); err != nil {
		return nil, err
	}

	now := time.Now()
	g.ID = generateID("gl")
	g.UserID = userID
	g.CreatedAt = now
	g.UpdatedAt = now

	if err := s.storage.PlanStore().PutGoal(ctx, g); err != nil {
		return nil, fmt.Errorf("failed to store goal: %w", err)
	}
	s.logger.Info().Str("id", g.ID).Str("name", g.Name).Msg("Goal added")
	return g, nil
}

func (s *Service) UpdateGoal(ctx context.Context, userID, id string, update models.Goal) (*models.Goal, error) {
	existing, err := s.storage.PlanStore().GetGoal(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("goal %s not found: %w", id, err)
	}

	if update.Name != "" {
		existing.Name = update.Name
	}
	if update.GoalType != "" {
		existing.GoalType = update.GoalType
	}
	if update.TargetDate != "" {
		existing.TargetDate = update.TargetDate
	}
	if update.TargetAmount != 0 {
		existing.TargetAmount = update.TargetAmount
	}
	if update.LinkedLiabilityID != "" {
		existing.LinkedLiabilityID = update.LinkedLiabilityID
	}
	if update.PayoffYears != 0 {
		existing.PayoffYears = update.PayoffYears
	}
	existing.WillBeSpent = update.WillBeSpent || existing.WillBeSpent
	existing.UpdatedAt = time.Now()

	if err := s.validateGoal(ctx, userID, existing); err != nil {
		return nil, err
	}
	if err := s.storage.PlanStore().PutGoal(ctx, existing); err != nil {
		return nil, fmt.Errorf("failed to update goal: %w", err)
	}
	return existing, nil
}

func (s *Service) DeleteGoal(ctx context.Context, userID, id string) error {
	if _, err := s.storage.PlanStore().GetGoal(ctx, userID, id); err != nil {
		return fmt.Errorf("goal %s not found: %w", id, err)
	}
	if err := s.storage.PlanStore().DeleteGoal(ctx, userID, id); err != nil {
		return fmt.Errorf("failed to delete goal: %w", err)
	}
	s.logger.Info().Str("id", id).Msg("Goal deleted")
	return nil
}

func (s *Service) validateGoal(ctx context.Context, userID string, g *models.Goal) error {
	if strings.TrimSpace(g.Name) == "" {
		return fmt.Errorf("goal name is required")
	}
	if g.TargetAmount < 0 || !isFinite(g.TargetAmount) {
		return fmt.Errorf("target amount must be a non-negative number")
	}
	if g.TargetDate != "" && !g.HasTargetDate() {
		return fmt.Errorf("invalid target date %q: use YYYY-MM-DD", g.TargetDate)
	}
	if g.GoalType == models.GoalTypeDebtPayoff {
		if g.LinkedLiabilityID == "" {
			return fmt.Errorf("debt payoff goal requires a linked liability")
		}
		if g.PayoffYears <= 0 {
			return fmt.Errorf("debt payoff goal requires positive payoff years")
		}
		if _, err := s.storage.PlanStore().GetLiability(ctx, userID, g.LinkedLiabilityID); err != nil {
			return fmt.Errorf("linked liability %s not found: %w", g.LinkedLiabilityID, err)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Settings

// GetSettings returns the user's settings, with defaults when none are stored.
func (s *Service) GetSettings(ctx context.Context, userID string) (*models.UserSettings, error) {
	return s.storage.PlanStore().GetSettings(ctx, userID)
}

// SaveSettings validates and stores the settings wholesale.
func (s *Service) SaveSettings(ctx context.Context, userID string, settings models.UserSettings) (*models.UserSettings, error) {
	if settings.InflationRate < 0 || !isFinite(settings.InflationRate) {
		return nil, fmt.Errorf("inflation rate must be a non-negative number")
	}
	if settings.IncomeGrowthRate != nil {
		if *settings.IncomeGrowthRate < 0 || !isFinite(*settings.IncomeGrowthRate) {
			return nil, fmt.Errorf("income growth rate must be a non-negative number")
		}
	}

	settings.UserID = userID
	settings.UpdatedAt = time.Now()
	if err := s.storage.PlanStore().PutSettings(ctx, &settings); err != nil {
		return nil, fmt.Errorf("failed to store settings: %w", err)
	}
	s.logger.Info().Str("user", userID).Msg("Settings saved")
	return &settings, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
