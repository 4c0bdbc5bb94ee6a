package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/lotfolio/backend/src/ledger"
	"github.com/username/lotfolio/backend/src/models"
	"github.com/username/lotfolio/backend/src/store"
)

func TestAddDividendDerivesGrossAndLogsCashflow(t *testing.T) {
	st := store.NewMemoryStore()
	svc := NewDividendService(st)
	ctx := context.Background()

	stockID, err := st.CreateStock(ctx, "XYZ", "XYZ Corp")
	require.NoError(t, err)

	div, err := svc.AddDividend(ctx, AddDividendInput{
		StockID:          stockID,
		DividendPerShare: 0.50,
		Quantity:         100,
		TaxWithheldUSD:   7.50,
		ExDate:           "2024-05-01",
		PayDate:          "2024-05-15",
	})
	require.NoError(t, err)
	assert.InDelta(t, 50.00, div.TotalAmountUSD, 1e-9)

	flows, err := st.ListCashflows(ctx, models.CashflowDividend)
	require.NoError(t, err)
	require.Len(t, flows, 1)
	assert.InDelta(t, 42.50, flows[0].AmountUSD, 1e-9)
	assert.Equal(t, "2024-05-15", flows[0].Date)
	assert.NotZero(t, flows[0].ID)
	require.NotNil(t, flows[0].RelatedStockID)
	assert.Equal(t, stockID, *flows[0].RelatedStockID)
}

func TestAddDividendValidation(t *testing.T) {
	st := store.NewMemoryStore()
	svc := NewDividendService(st)
	ctx := context.Background()

	stockID, err := st.CreateStock(ctx, "XYZ", "XYZ Corp")
	require.NoError(t, err)

	cases := []AddDividendInput{
		{StockID: stockID, DividendPerShare: 0, Quantity: 100, ExDate: "2024-05-01", PayDate: "2024-05-15"},
		{StockID: stockID, DividendPerShare: 0.5, Quantity: 0, ExDate: "2024-05-01", PayDate: "2024-05-15"},
		{StockID: stockID, DividendPerShare: 0.5, Quantity: 100, TaxWithheldUSD: -1, ExDate: "2024-05-01", PayDate: "2024-05-15"},
		{StockID: stockID, DividendPerShare: 0.5, Quantity: 100, ExDate: "bad", PayDate: "2024-05-15"},
	}
	for _, in := range cases {
		_, err := svc.AddDividend(ctx, in)
		assert.ErrorIs(t, err, ledger.ErrInvalidInput)
	}
}

func TestDividendSummaryFiltersByYear(t *testing.T) {
	st := store.NewMemoryStore()
	svc := NewDividendService(st)
	ctx := context.Background()

	stockID, err := st.CreateStock(ctx, "XYZ", "XYZ Corp")
	require.NoError(t, err)

	for _, payDate := range []string{"2023-05-15", "2024-05-15", "2024-08-15"} {
		_, err := svc.AddDividend(ctx, AddDividendInput{
			StockID: stockID, DividendPerShare: 0.50, Quantity: 100,
			ExDate: "2024-05-01", PayDate: payDate,
		})
		require.NoError(t, err)
	}

	summary, err := svc.Summary(ctx, 2024)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalPayments)
	assert.InDelta(t, 100.00, summary.TotalDividendsUSD, 1e-9)

	all, err := svc.Summary(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, all.TotalPayments)
}
