package plan

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rjmcleod/finch/internal/common"
	"github.com/rjmcleod/finch/internal/interfaces"
	"github.com/rjmcleod/finch/internal/models"
)

// mockPlanStore is an in-memory PlanStore for plan service tests.
type mockPlanStore struct {
	liabilities map[string]*models.Liability
	events      map[string]*models.LifeEvent
	goals       map[string]*models.Goal
	settings    *models.UserSettings
}

func newMockPlanStore() *mockPlanStore {
	return &mockPlanStore{
		liabilities: make(map[string]*models.Liability),
		events:      make(map[string]*models.LifeEvent),
		goals:       make(map[string]*models.Goal),
	}
}

var errNotFound = errors.New("not found")

func (m *mockPlanStore) ListLiabilities(_ context.Context, _ string) ([]*models.Liability, error) {
	var out []*models.Liability
	for _, l := range m.liabilities {
		out = append(out, l)
	}
	return out, nil
}

func (m *mockPlanStore) GetLiability(_ context.Context, _, id string) (*models.Liability, error) {
	l, ok := m.liabilities[id]
	if !ok {
		return nil, errNotFound
	}
	return l, nil
}

func (m *mockPlanStore) PutLiability(_ context.Context, l *models.Liability) error {
	m.liabilities[l.ID] = l
	return nil
}

func (m *mockPlanStore) DeleteLiability(_ context.Context, _, id string) error {
	delete(m.liabilities, id)
	return nil
}

func (m *mockPlanStore) ListLifeEvents(_ context.Context, _ string) ([]*models.LifeEvent, error) {
	var out []*models.LifeEvent
	for _, e := range m.events {
		out = append(out, e)
	}
	return out, nil
}

func (m *mockPlanStore) GetLifeEvent(_ context.Context, _, id string) (*models.LifeEvent, error) {
	e, ok := m.events[id]
	if !ok {
		return nil, errNotFound
	}
	return e, nil
}

func (m *mockPlanStore) PutLifeEvent(_ context.Context, e *models.LifeEvent) error {
	m.events[e.ID] = e
	return nil
}

func (m *mockPlanStore) DeleteLifeEvent(_ context.Context, _, id string) error {
	delete(m.events, id)
	return nil
}

func (m *mockPlanStore) ListGoals(_ context.Context, _ string) ([]*models.Goal, error) {
	var out []*models.Goal
	for _, g := range m.goals {
		out = append(out, g)
	}
	return out, nil
}

func (m *mockPlanStore) GetGoal(_ context.Context, _, id string) (*models.Goal, error) {
	g, ok := m.goals[id]
	if !ok {
		return nil, errNotFound
	}
	return g, nil
}

func (m *mockPlanStore) PutGoal(_ context.Context, g *models.Goal) error {
	m.goals[g.ID] = g
	return nil
}

func (m *mockPlanStore) DeleteGoal(_ context.Context, _, id string) error {
	delete(m.goals, id)
	return nil
}

func (m *mockPlanStore) GetSettings(_ context.Context, userID string) (*models.UserSettings, error) {
	if m.settings == nil {
		return &models.UserSettings{UserID: userID}, nil
	}
	return m.settings, nil
}

func (m *mockPlanStore) PutSettings(_ context.Context, s *models.UserSettings) error {
	m.settings = s
	return nil
}

// mockStorage wraps the plan store as a StorageManager.
type mockStorage struct {
	plan *mockPlanStore
}

func (m *mockStorage) KeyValueStore() interfaces.KeyValueStore { return nil }
func (m *mockStorage) LedgerStore() interfaces.LedgerStore     { return nil }
func (m *mockStorage) HoldingStore() interfaces.HoldingStore   { return nil }
func (m *mockStorage) PlanStore() interfaces.PlanStore         { return m.plan }
func (m *mockStorage) Close() error                            { return nil }

func newTestService() (*Service, *mockPlanStore) {
	store := newMockPlanStore()
	return NewService(&mockStorage{plan: store}, common.NewSilentLogger()), store
}

func TestAddLiability(t *testing.T) {
	svc, store := newTestService()

	l, err := svc.AddLiability(context.Background(), "u1", &models.Liability{
		Name:           "Home loan",
		CurrentBalance: 450000,
		MonthlyPayment: 2500,
		InterestRate:   5.5,
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(l.ID, "li_"))
	assert.Equal(t, "u1", l.UserID)
	assert.False(t, l.CreatedAt.IsZero())
	assert.Contains(t, store.liabilities, l.ID)
}

func TestAddLiabilityValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.AddLiability(ctx, "u1", &models.Liability{Name: "", CurrentBalance: 100})
	assert.Error(t, err)

	_, err = svc.AddLiability(ctx, "u1", &models.Liability{Name: "Loan", CurrentBalance: -1})
	assert.Error(t, err)

	_, err = svc.AddLiability(ctx, "u1", &models.Liability{Name: "Loan", CurrentBalance: 100, InterestRate: -2})
	assert.Error(t, err)
}

func TestUpdateLiabilityMergesFields(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	l, err := svc.AddLiability(ctx, "u1", &models.Liability{
		Name: "Car loan", CurrentBalance: 12000, MonthlyPayment: 400, InterestRate: 7,
	})
	require.NoError(t, err)

	updated, err := svc.UpdateLiability(ctx, "u1", l.ID, models.Liability{CurrentBalance: 9000})
	require.NoError(t, err)
	assert.Equal(t, "Car loan", updated.Name)
	assert.Equal(t, 9000.0, updated.CurrentBalance)
	assert.Equal(t, 400.0, updated.MonthlyPayment)
}

func TestDeleteLiabilityUnknownID(t *testing.T) {
	svc, _ := newTestService()
	err := svc.DeleteLiability(context.Background(), "u1", "li_missing")
	assert.Error(t, err)
}

func TestAddLifeEventValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.AddLifeEvent(ctx, "u1", &models.LifeEvent{
		Name: "Sabbatical", Affects: "retirement", Year: 2027, Amount: -20000,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid affects")

	e, err := svc.AddLifeEvent(ctx, "u1", &models.LifeEvent{
		Name: "Raise", Affects: models.AffectsIncome, EventType: models.EventTypeIncomeChange,
		Year: 2026, Amount: 10000, IsRecurring: true, RecurringYears: 5,
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(e.ID, "le_"))
}

func TestAddGoalDebtPayoffRequiresLinkedLiability(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.AddGoal(ctx, "u1", &models.Goal{
		Name: "Kill the mortgage", GoalType: models.GoalTypeDebtPayoff,
		TargetAmount: 100000, PayoffYears: 5,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "linked liability")

	l, err := svc.AddLiability(ctx, "u1", &models.Liability{Name: "Mortgage", CurrentBalance: 100000})
	require.NoError(t, err)

	g, err := svc.AddGoal(ctx, "u1", &models.Goal{
		Name: "Kill the mortgage", GoalType: models.GoalTypeDebtPayoff,
		TargetAmount: 100000, PayoffYears: 5, LinkedLiabilityID: l.ID,
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(g.ID, "gl_"))
}

func TestAddGoalRejectsBadTargetDate(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.AddGoal(context.Background(), "u1", &models.Goal{
		Name: "Holiday", TargetAmount: 8000, TargetDate: "next year",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid target date")
}

func TestSaveSettings(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	growth := 4.5
	saved, err := svc.SaveSettings(ctx, "u1", models.UserSettings{
		InflationRate:    2.5,
		IncomeGrowthRate: &growth,
	})
	require.NoError(t, err)
	assert.Equal(t, "u1", saved.UserID)
	assert.Equal(t, 4.5, saved.IncomeGrowthPct())
	assert.NotNil(t, store.settings)

	negative := -1.0
	_, err = svc.SaveSettings(ctx, "u1", models.UserSettings{IncomeGrowthRate: &negative})
	assert.Error(t, err)
}

func TestGetSettingsDefaults(t *testing.T) {
	svc, _ := newTestService()

	settings, err := svc.GetSettings(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultIncomeGrowthRate, settings.IncomeGrowthPct())
}
