package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/lotfolio/backend/src/config"
	"github.com/username/lotfolio/backend/src/ledger"
	"github.com/username/lotfolio/backend/src/logger"
	"github.com/username/lotfolio/backend/src/models"
	"github.com/username/lotfolio/backend/src/services"
	"github.com/username/lotfolio/backend/src/store"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	config.Cfg = &config.AppConfig{DefaultUSDPLNRate: 4.0}
	os.Exit(m.Run())
}

type fixedRates struct{ rate float64 }

func (f fixedRates) USDPLNRate(context.Context, time.Time) (float64, error) {
	return f.rate, nil
}

// newTestRouter wires the API the same way main does, minus the price
// service and the NBP-backed endpoints.
func newTestRouter(t *testing.T) (*chi.Mux, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	locks := ledger.NewSecurityLocks()
	lots := ledger.NewLotService(st, locks)
	reservations := ledger.NewReservationService(st, locks)
	taxService := ledger.NewTaxService(st, fixedRates{rate: 4.0})

	stockService := services.NewStockService(st)
	txService := services.NewTransactionService(st, lots, fixedRates{rate: 4.0})
	optionService := services.NewOptionService(st, reservations, fixedRates{rate: 4.0})

	stockHandler := NewStockHandler(stockService, nil)
	txHandler := NewTransactionHandler(txService)
	lotHandler := NewLotHandler(lots, reservations)
	taxHandler := NewTaxHandler(taxService)
	optionHandler := NewOptionHandler(optionService)

	r := chi.NewRouter()
	r.Use(ContextualLoggerMiddleware)
	r.Route("/api", func(r chi.Router) {
		r.Get("/stocks", stockHandler.HandleListStocks)
		r.Post("/stocks", stockHandler.HandleCreateStock)
		r.Get("/stocks/{id}", stockHandler.HandleGetStock)
		r.Post("/transactions", txHandler.HandleAddTransaction)
		r.Get("/lots", lotHandler.HandleListLots)
		r.Get("/lots/preview-sale", lotHandler.HandlePreviewSale)
		r.Get("/lots/availability", lotHandler.HandleCheckAvailability)
		r.Get("/tax-summary", taxHandler.HandleTaxSummary)
		r.Get("/capital-gains-tax", taxHandler.HandleCapitalGainsTax)
		r.Get("/option-premium-tax", taxHandler.HandleOptionPremiumTax)
		r.Post("/options", optionHandler.HandleOpenOption)
	})
	return r, st
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func createStock(t *testing.T, r http.Handler) int64 {
	t.Helper()
	rec := doJSON(t, r, http.MethodPost, "/api/stocks", map[string]string{"symbol": "xyz", "name": "XYZ Corp"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var stock models.Stock
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stock))
	return stock.ID
}

func TestCreateStockNormalizesSymbol(t *testing.T) {
	r, _ := newTestRouter(t)
	rec := doJSON(t, r, http.MethodPost, "/api/stocks", map[string]string{"symbol": " xyz ", "name": "XYZ Corp"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var stock models.Stock
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stock))
	assert.Equal(t, "XYZ", stock.Symbol)

	rec = doJSON(t, r, http.MethodPost, "/api/stocks", map[string]string{"symbol": "XYZ", "name": "dup"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetUnknownStockReturns404(t *testing.T) {
	r, _ := newTestRouter(t)
	rec := doJSON(t, r, http.MethodGet, "/api/stocks/42", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBuyThenListLots(t *testing.T) {
	r, _ := newTestRouter(t)
	stockID := createStock(t, r)

	rec := doJSON(t, r, http.MethodPost, "/api/transactions", services.AddTransactionInput{
		StockID: stockID, TransactionType: "BUY", Quantity: 100,
		PriceUSD: 50.00, TransactionDate: "2024-03-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/lots?stock_id=%d", stockID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var lots []models.Lot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &lots))
	require.Len(t, lots, 1)
	assert.Equal(t, 100, lots[0].RemainingQuantity)
}

func TestOversellReturnsConflict(t *testing.T) {
	r, _ := newTestRouter(t)
	stockID := createStock(t, r)

	rec := doJSON(t, r, http.MethodPost, "/api/transactions", services.AddTransactionInput{
		StockID: stockID, TransactionType: "BUY", Quantity: 10,
		PriceUSD: 50.00, TransactionDate: "2024-03-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/api/transactions", services.AddTransactionInput{
		StockID: stockID, TransactionType: "SELL", Quantity: 20,
		PriceUSD: 60.00, TransactionDate: "2024-06-03",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestPreviewSaleEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)
	stockID := createStock(t, r)

	for _, date := range []string{"2024-01-02", "2024-02-02"} {
		rec := doJSON(t, r, http.MethodPost, "/api/transactions", services.AddTransactionInput{
			StockID: stockID, TransactionType: "BUY", Quantity: 10,
			PriceUSD: 50.00, TransactionDate: date,
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/lots/preview-sale?stock_id=%d&quantity=15", stockID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var plan []models.PlannedAllocation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &plan))
	require.Len(t, plan, 2)
	assert.Equal(t, 10, plan[0].QuantityToSell)
	assert.Equal(t, 5, plan[1].QuantityToSell)

	rec = doJSON(t, r, http.MethodGet, "/api/lots/preview-sale?quantity=15", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAvailabilityReflectsCoveredCall(t *testing.T) {
	r, _ := newTestRouter(t)
	stockID := createStock(t, r)

	rec := doJSON(t, r, http.MethodPost, "/api/transactions", services.AddTransactionInput{
		StockID: stockID, TransactionType: "BUY", Quantity: 150,
		PriceUSD: 50.00, TransactionDate: "2024-03-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/api/options", services.OpenOptionInput{
		StockID: stockID, OptionType: "CALL", StrikePrice: 55,
		ExpiryDate: "2024-09-20", PremiumReceived: 1.20, Quantity: 1,
		OpenDate: "2024-06-03",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/lots/availability?stock_id=%d&quantity=60", stockID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var avail models.Availability
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &avail))
	assert.Equal(t, 50, avail.AvailableShares)
	assert.False(t, avail.CanSell)
}

func TestTaxSummaryRequiresYear(t *testing.T) {
	r, _ := newTestRouter(t)
	rec := doJSON(t, r, http.MethodGet, "/api/tax-summary", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTaxSummaryCoversAllCategories(t *testing.T) {
	r, st := newTestRouter(t)
	stockID := createStock(t, r)
	ctx := context.Background()

	rec := doJSON(t, r, http.MethodPost, "/api/transactions", services.AddTransactionInput{
		StockID: stockID, TransactionType: "BUY", Quantity: 100,
		PriceUSD: 50.00, TransactionDate: "2024-03-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = doJSON(t, r, http.MethodPost, "/api/transactions", services.AddTransactionInput{
		StockID: stockID, TransactionType: "SELL", Quantity: 60,
		PriceUSD: 60.00, TransactionDate: "2024-06-03",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	_, err := st.InsertDividend(ctx, &models.Dividend{
		StockID: stockID, DividendPerShare: 1.00, Quantity: 100,
		TotalAmountUSD: 100.00, TaxWithheldUSD: 15.00,
		ExDate: "2024-05-01", PayDate: "2024-05-15",
	})
	require.NoError(t, err)
	_, err = st.InsertOption(ctx, &models.Option{
		StockID: stockID, OptionType: models.OptionPut, StrikePrice: 45.00,
		ExpiryDate: "2024-09-20", PremiumReceived: 1.20, Quantity: 1,
		Status: models.OptionStatusOpen, OpenDate: "2024-06-03",
	})
	require.NoError(t, err)

	rec = doJSON(t, r, http.MethodGet, "/api/tax-summary?year=2024", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var report ledger.AnnualReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	require.NotNil(t, report.Stocks)
	assert.Equal(t, 1, report.Stocks.TotalSales)
	assert.Equal(t, 1, report.DividendCount)
	assert.Equal(t, 1, report.OptionCount)
	assert.InDelta(t, 480.00, report.TotalOptionPremiumPLN, 1e-9)
	assert.InDelta(t,
		report.Stocks.TotalTaxDuePLN+report.DividendTaxToPayPLN+report.OptionPremiumTaxDuePLN,
		report.TotalTaxDuePLN, 1e-9)
}

func TestCapitalGainsTaxEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodGet, "/api/capital-gains-tax?gain_usd=600&date=2024-06-03", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var calc ledger.TaxCalculation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &calc))
	assert.InDelta(t, 2400.00, calc.AmountPLN, 1e-9)
	assert.InDelta(t, 456.00, calc.TaxDuePLN, 1e-9)

	rec = doJSON(t, r, http.MethodGet, "/api/capital-gains-tax?gain_usd=600", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOptionPremiumTaxEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodGet, "/api/option-premium-tax?premium_usd=120&date=2024-06-03", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var calc ledger.TaxCalculation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &calc))
	assert.InDelta(t, 480.00, calc.AmountPLN, 1e-9)
	assert.InDelta(t, 91.20, calc.TaxDuePLN, 1e-9)

	rec = doJSON(t, r, http.MethodGet, "/api/option-premium-tax?date=2024-06-03", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInvalidJSONBodyReturns400(t *testing.T) {
	r, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/api/stocks", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
