package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rjmcleod/finch/internal/app"
	"github.com/rjmcleod/finch/internal/common"
	"github.com/rjmcleod/finch/internal/interfaces"
	"github.com/rjmcleod/finch/internal/models"
	"github.com/rjmcleod/finch/internal/services/holdings"
	"github.com/rjmcleod/finch/internal/services/ledger"
	"github.com/rjmcleod/finch/internal/services/plan"
	"github.com/rjmcleod/finch/internal/services/projection"
)

// memStore is an in-memory StorageManager backing the handler tests, so
// the full service stack runs under httptest without a database on disk.
type memStore struct {
	txs         map[string]*models.Transaction
	holdings    map[string]*models.Holding
	liabilities map[string]*models.Liability
	events      map[string]*models.LifeEvent
	goals       map[string]*models.Goal
	settings    *models.UserSettings
	kv          map[string]string
}

func newMemStore() *memStore {
	return &memStore{
		txs:         make(map[string]*models.Transaction),
		holdings:    make(map[string]*models.Holding),
		liabilities: make(map[string]*models.Liability),
		events:      make(map[string]*models.LifeEvent),
		goals:       make(map[string]*models.Goal),
		kv:          make(map[string]string),
	}
}

var errNotFound = errors.New("not found")

func (m *memStore) KeyValueStore() interfaces.KeyValueStore { return m }
func (m *memStore) LedgerStore() interfaces.LedgerStore     { return m }
func (m *memStore) HoldingStore() interfaces.HoldingStore   { return m }
func (m *memStore) PlanStore() interfaces.PlanStore         { return m }
func (m *memStore) Close() error                            { return nil }

func (m *memStore) GetSystemKV(_ context.Context, key string) (string, error) {
	val, ok := m.kv["system/"+key]
	if !ok {
		return "", errNotFound
	}
	return val, nil
}

func (m *memStore) SetSystemKV(_ context.Context, key, value string) error {
	m.kv["system/"+key] = value
	return nil
}

func (m *memStore) GetUserKV(_ context.Context, userID, key string) (string, error) {
	val, ok := m.kv[userID+"/"+key]
	if !ok {
		return "", errNotFound
	}
	return val, nil
}

func (m *memStore) SetUserKV(_ context.Context, userID, key, value string) error {
	m.kv[userID+"/"+key] = value
	return nil
}

func (m *memStore) GetTransaction(_ context.Context, _, id string) (*models.Transaction, error) {
	tx, ok := m.txs[id]
	if !ok {
		return nil, errNotFound
	}
	return tx, nil
}

func (m *memStore) PutTransaction(_ context.Context, tx *models.Transaction) error {
	m.txs[tx.ID] = tx
	return nil
}

func (m *memStore) DeleteTransaction(_ context.Context, _, id string) error {
	delete(m.txs, id)
	return nil
}

func (m *memStore) ListTransactions(_ context.Context, userID string) ([]*models.Transaction, error) {
	var out []*models.Transaction
	for _, tx := range m.txs {
		if tx.UserID == userID {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *memStore) ListForAsset(_ context.Context, userID, ticker, accountID string) ([]*models.Transaction, error) {
	account := models.NormalizeAccountID(accountID)
	var out []*models.Transaction
	for _, tx := range m.txs {
		if tx.UserID == userID && tx.AssetTicker == ticker && models.NormalizeAccountID(tx.AccountID) == account {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (m *memStore) ListForAccount(_ context.Context, userID, accountID string) ([]*models.Transaction, error) {
	account := models.NormalizeAccountID(accountID)
	var out []*models.Transaction
	for _, tx := range m.txs {
		if tx.UserID == userID && models.NormalizeAccountID(tx.AccountID) == account {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (m *memStore) GetHolding(_ context.Context, userID, ticker, accountID string) (*models.Holding, error) {
	account := models.NormalizeAccountID(accountID)
	for _, h := range m.holdings {
		if h.UserID == userID && h.Ticker == ticker && models.NormalizeAccountID(h.AccountID) == account {
			return h, nil
		}
	}
	return nil, nil
}

func (m *memStore) PutHolding(_ context.Context, h *models.Holding) error {
	m.holdings[h.ID] = h
	return nil
}

func (m *memStore) ListHoldings(_ context.Context, userID string) ([]*models.Holding, error) {
	var out []*models.Holding
	for _, h := range m.holdings {
		if h.UserID == userID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (m *memStore) ListLiabilities(_ context.Context, _ string) ([]*models.Liability, error) {
	var out []*models.Liability
	for _, l := range m.liabilities {
		out = append(out, l)
	}
	return out, nil
}

func (m *memStore) GetLiability(_ context.Context, _, id string) (*models.Liability, error) {
	l, ok := m.liabilities[id]
	if !ok {
		return nil, errNotFound
	}
	return l, nil
}

func (m *memStore) PutLiability(_ context.Context, l *models.Liability) error {
	m.liabilities[l.ID] = l
	return nil
}

func (m *memStore) DeleteLiability(_ context.Context, _, id string) error {
	delete(m.liabilities, id)
	return nil
}

func (m *memStore) ListLifeEvents(_ context.Context, _ string) ([]*models.LifeEvent, error) {
	var out []*models.LifeEvent
	for _, e := range m.events {
		out = append(out, e)
	}
	return out, nil
}

func (m *memStore) GetLifeEvent(_ context.Context, _, id string) (*models.LifeEvent, error) {
	e, ok := m.events[id]
	if !ok {
		return nil, errNotFound
	}
	return e, nil
}

func (m *memStore) PutLifeEvent(_ context.Context, e *models.LifeEvent) error {
	m.events[e.ID] = e
	return nil
}

func (m *memStore) DeleteLifeEvent(_ context.Context, _, id string) error {
	delete(m.events, id)
	return nil
}

func (m *memStore) ListGoals(_ context.Context, _ string) ([]*models.Goal, error) {
	var out []*models.Goal
	for _, g := range m.goals {
		out = append(out, g)
	}
	return out, nil
}

func (m *memStore) GetGoal(_ context.Context, _, id string) (*models.Goal, error) {
	g, ok := m.goals[id]
	if !ok {
		return nil, errNotFound
	}
	return g, nil
}

func (m *memStore) PutGoal(_ context.Context, g *models.Goal) error {
	m.goals[g.ID] = g
	return nil
}

func (m *memStore) DeleteGoal(_ context.Context, _, id string) error {
	delete(m.goals, id)
	return nil
}

func (m *memStore) GetSettings(_ context.Context, userID string) (*models.UserSettings, error) {
	if m.settings == nil {
		return &models.UserSettings{UserID: userID}, nil
	}
	return m.settings, nil
}

func (m *memStore) PutSettings(_ context.Context, s *models.UserSettings) error {
	m.settings = s
	return nil
}

// newTestServer builds a Server over in-memory storage with real services.
func newTestServer(t *testing.T) (*Server, *memStore) {
	t.Helper()

	store := newMemStore()
	config := common.NewDefaultConfig()
	logger := common.NewSilentLogger()

	holdingsService := holdings.NewService(store, logger)
	a := &app.App{
		Config:            config,
		Logger:            logger,
		Storage:           store,
		ProjectionService: projection.NewService(store, config, logger),
		LedgerService:     ledger.NewService(store, holdingsService, logger),
		HoldingsService:   holdingsService,
		PlanService:       plan.NewService(store, logger),
		StartupTime:       time.Now(),
	}
	return NewServer(a), store
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
	assert.NotEmpty(t, rec.Header().Get("X-Correlation-ID"))
}

func TestVersionEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/version", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body, "version")
}

func TestDiagnosticsIncludesSchemaVersion(t *testing.T) {
	srv, store := newTestServer(t)

	require.NoError(t, store.SetSystemKV(context.Background(), app.SchemaVersionKey, app.SchemaVersion))

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/diagnostics", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, app.SchemaVersion, body["schema_version"])
	assert.Contains(t, body, "uptime")
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/health", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Contains(t, rec.Header().Get("Allow"), http.MethodGet)
}

func TestBuySellFlow(t *testing.T) {
	srv, store := newTestServer(t)
	h := srv.Handler()

	rec := doJSON(t, h, http.MethodPost, "/api/transactions/buy", models.BuyRequest{
		AssetTicker:  "VAS",
		AccountID:    "brokerage",
		Quantity:     10,
		PricePerUnit: 95,
		Date:         time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var tx models.Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tx))
	assert.True(t, strings.HasPrefix(tx.ID, "tx_"))
	assert.Equal(t, "default", tx.UserID, "single-tenant fallback user")

	rec = doJSON(t, h, http.MethodPost, "/api/transactions/sell", models.SellRequest{
		AssetTicker:  "VAS",
		AccountID:    "brokerage",
		Quantity:     4,
		PricePerUnit: 100,
		Date:         time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// Overdraw is a conflict, not a bad request.
	rec = doJSON(t, h, http.MethodPost, "/api/transactions/sell", models.SellRequest{
		AssetTicker:  "VAS",
		AccountID:    "brokerage",
		Quantity:     100,
		PricePerUnit: 100,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Holding converged at 6 units.
	rec = doJSON(t, h, http.MethodGet, "/api/holdings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var holdingsBody struct {
		Holdings []models.Holding `json:"holdings"`
		Count    int              `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &holdingsBody))
	require.Equal(t, 1, holdingsBody.Count)
	assert.InDelta(t, 6.0, holdingsBody.Holdings[0].Quantity, 1e-9)

	assert.Len(t, store.txs, 2)
}

func TestTransactionUserHeaderScoping(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(models.BuyRequest{
		AssetTicker: "VGS", Quantity: 1, PricePerUnit: 100,
	}))
	req := httptest.NewRequest(http.MethodPost, "/api/transactions/buy", &buf)
	req.Header.Set("X-Finch-User-ID", "alice")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	// Default user sees nothing.
	rec = doJSON(t, h, http.MethodGet, "/api/transactions", nil)
	var body struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Zero(t, body.Count)

	// alice sees the lot.
	req = httptest.NewRequest(http.MethodGet, "/api/transactions", nil)
	req.Header.Set("X-Finch-User-ID", "alice")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
}

func TestCSVImportEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	csv := "type,ticker,account_id,quantity,price_per_unit,fees,date\n" +
		"buy,VAS,brokerage,10,95.50,9.95,2024-06-01\n" +
		"buy,VGS,,5,120,0,2024-07-01\n"
	req := httptest.NewRequest(http.MethodPost, "/api/transactions/import", strings.NewReader(csv))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var summary models.ImportSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 2, summary.Imported)
	assert.Zero(t, summary.Skipped)
}

func TestReconcileEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	rec := doJSON(t, h, http.MethodPost, "/api/transactions/buy", models.BuyRequest{
		AssetTicker: "VAS", AccountID: "brokerage", Quantity: 5, PricePerUnit: 100,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/holdings/VAS/reconcile?account_id=brokerage", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result models.ReconcileResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, models.ReconcileConverged, result.Status)
	assert.InDelta(t, 5.0, result.Quantity, 1e-9)

	rec = doJSON(t, h, http.MethodPost, "/api/holdings/reconcile", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var batch struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &batch))
	assert.Equal(t, 1, batch.Count)
}

func TestPlanCRUDEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	rec := doJSON(t, h, http.MethodPost, "/api/plan/liabilities", models.Liability{
		Name: "Mortgage", CurrentBalance: 480000, MonthlyPayment: 2700, InterestRate: 5.5,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var liability models.Liability
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &liability))

	rec = doJSON(t, h, http.MethodPatch, "/api/plan/liabilities/"+liability.ID, models.Liability{CurrentBalance: 470000})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodPatch, "/api/plan/liabilities/li_missing", models.Liability{CurrentBalance: 1})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/plan/events", models.LifeEvent{
		Name: "Raise", Affects: models.AffectsIncome, Year: 2027, Amount: 10000,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/plan/goals", models.Goal{
		Name: "Clear mortgage", GoalType: models.GoalTypeDebtPayoff,
		TargetAmount: 60000, PayoffYears: 3, LinkedLiabilityID: liability.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, h, http.MethodDelete, "/api/plan/liabilities/"+liability.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestSettingsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	rec := doJSON(t, h, http.MethodGet, "/api/plan/settings", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	growth := 4.0
	rec = doJSON(t, h, http.MethodPut, "/api/plan/settings", models.UserSettings{
		InflationRate: 2.5, IncomeGrowthRate: &growth,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/plan/settings", nil)
	var settings models.UserSettings
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &settings))
	assert.Equal(t, 4.0, settings.IncomeGrowthPct())
}

func TestProjectionEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	rec := doJSON(t, h, http.MethodPost, "/api/plan/liabilities", models.Liability{
		Name: "Car loan", CurrentBalance: 24000, MonthlyPayment: 600, InterestRate: 7,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/projection?monthly_income=5000&monthly_expenses=2000", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Years []models.ProjectionYear `json:"years"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Years, models.ProjectionHorizonYears+1)
	for _, y := range body.Years {
		assert.Equal(t, y.TotalIncome-y.TotalExpenses, y.NetCashFlow)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/projection?monthly_income=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProjectionChartEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/projection/chart?monthly_income=5000&monthly_expenses=2000", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	body := rec.Body.Bytes()
	require.Greater(t, len(body), 8)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, body[:4])
}

func TestDebtSummaryEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	rec := doJSON(t, h, http.MethodPost, "/api/plan/liabilities", models.Liability{
		Name: "Card", CurrentBalance: 3000, MonthlyPayment: 300, InterestRate: 20,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/projection/debt-summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var summary models.DebtSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 1, summary.ActiveLiabilities)
	assert.Equal(t, 3000.0, summary.TotalBalance)
	assert.InDelta(t, 50.0, summary.MonthlyInterest, 1e-9)
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/transactions", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
