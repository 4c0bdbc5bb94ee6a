package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/lotfolio/backend/src/models"
	"github.com/username/lotfolio/backend/src/store"
)

type fixedRate struct {
	rate  float64
	calls int
}

func (f *fixedRate) USDPLNRate(_ context.Context, _ time.Time) (float64, error) {
	f.calls++
	return f.rate, nil
}

func TestCapitalGainsTax(t *testing.T) {
	svc := NewTaxService(store.NewMemoryStore(), &fixedRate{rate: 4.10})

	calc, err := svc.CapitalGainsTax(context.Background(), 600.00, "2024-06-03")
	require.NoError(t, err)
	assert.InDelta(t, 2460.00, calc.AmountPLN, 1e-9)
	assert.InDelta(t, 467.40, calc.TaxDuePLN, 1e-9)
	assert.InDelta(t, 4.10, calc.ExchangeRate, 1e-9)
}

func TestCapitalGainsTaxOnLossSkipsRateLookup(t *testing.T) {
	rates := &fixedRate{rate: 4.0}
	svc := NewTaxService(store.NewMemoryStore(), rates)

	calc, err := svc.CapitalGainsTax(context.Background(), -250.00, "2024-06-03")
	require.NoError(t, err)
	assert.Zero(t, calc.TaxDuePLN)
	assert.Zero(t, rates.calls)
}

func TestDividendTaxWithWithholdingCredit(t *testing.T) {
	svc := NewTaxService(store.NewMemoryStore(), &fixedRate{rate: 4.00})

	calc, err := svc.DividendTax(context.Background(), 100.00, 15.00, "2024-05-15")
	require.NoError(t, err)
	assert.InDelta(t, 400.00, calc.DividendPLN, 1e-9)
	assert.InDelta(t, 60.00, calc.USTaxWithheldPLN, 1e-9)
	assert.InDelta(t, 76.00, calc.TaxDuePLN, 1e-9)
	assert.InDelta(t, 16.00, calc.TaxToPayPLN, 1e-9)
}

func TestDividendTaxFlooredAtZero(t *testing.T) {
	svc := NewTaxService(store.NewMemoryStore(), &fixedRate{rate: 4.00})

	// Withholding above 19% leaves nothing to pay, never a refund.
	calc, err := svc.DividendTax(context.Background(), 100.00, 30.00, "2024-05-15")
	require.NoError(t, err)
	assert.Zero(t, calc.TaxToPayPLN)
}

func TestOptionPremiumTax(t *testing.T) {
	svc := NewTaxService(store.NewMemoryStore(), &fixedRate{rate: 4.00})

	calc, err := svc.OptionPremiumTax(context.Background(), 250.00, "2024-04-01")
	require.NoError(t, err)
	assert.InDelta(t, 1000.00, calc.AmountPLN, 1e-9)
	assert.InDelta(t, 190.00, calc.TaxDuePLN, 1e-9)
}

func TestTaxCalculatorsRejectBadDates(t *testing.T) {
	svc := NewTaxService(store.NewMemoryStore(), &fixedRate{rate: 4.00})
	ctx := context.Background()

	_, err := svc.CapitalGainsTax(ctx, 100, "03-06-2024")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.DividendTax(ctx, 100, 15, "not-a-date")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.OptionPremiumTax(ctx, 100, "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestTaxSummaryAggregatesYear(t *testing.T) {
	st := store.NewMemoryStore()
	locks := NewSecurityLocks()
	lots := NewLotService(st, locks)
	svc := NewTaxService(st, &fixedRate{rate: 4.0})
	ctx := context.Background()

	stockID, err := st.CreateStock(ctx, "XYZ", "XYZ Corp")
	require.NoError(t, err)

	_, err = lots.CreateLot(ctx, CreateLotInput{
		StockID: stockID, Quantity: 100, PriceUSD: 50.00,
		PurchaseDate: "2024-03-01", USDPLNRate: 4.00,
	})
	require.NoError(t, err)

	_, err = lots.ProcessSale(ctx, ProcessSaleInput{
		StockID: stockID, Quantity: 60, SalePriceUSD: 60.00,
		SaleDate: "2024-06-03", USDPLNRate: 4.10,
	})
	require.NoError(t, err)

	summary, err := svc.Summary(ctx, 2024)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalSales)
	assert.Equal(t, 60, summary.TotalSharesSold)
	assert.InDelta(t, 2760.00, summary.TotalGainLossPLN, 1e-9)
	assert.InDelta(t, 2760.00, summary.TotalGainsPLN, 1e-9)
	assert.Zero(t, summary.TotalLossesPLN)
	assert.InDelta(t, 524.40, summary.TotalTaxDuePLN, 1e-9)

	// Other years stay empty rather than erroring.
	empty, err := svc.Summary(ctx, 2023)
	require.NoError(t, err)
	assert.Zero(t, empty.TotalSales)

	gains, err := svc.RealizedGains(ctx, 2024)
	require.NoError(t, err)
	require.Len(t, gains, 1)
	assert.Equal(t, "XYZ", gains[0].Symbol)
}

func TestYearReportCombinesCategories(t *testing.T) {
	st := store.NewMemoryStore()
	locks := NewSecurityLocks()
	lots := NewLotService(st, locks)
	svc := NewTaxService(st, &fixedRate{rate: 4.00})
	ctx := context.Background()

	stockID, err := st.CreateStock(ctx, "XYZ", "XYZ Corp")
	require.NoError(t, err)

	_, err = lots.CreateLot(ctx, CreateLotInput{
		StockID: stockID, Quantity: 100, PriceUSD: 50.00,
		PurchaseDate: "2024-03-01", USDPLNRate: 4.00,
	})
	require.NoError(t, err)
	_, err = lots.ProcessSale(ctx, ProcessSaleInput{
		StockID: stockID, Quantity: 60, SalePriceUSD: 60.00,
		SaleDate: "2024-06-03", USDPLNRate: 4.10,
	})
	require.NoError(t, err)

	_, err = st.InsertDividend(ctx, &models.Dividend{
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
	// Opened the year before, must not leak into the 2024 report.
	_, err = st.InsertOption(ctx, &models.Option{
		StockID: stockID, OptionType: models.OptionPut, StrikePrice: 40.00,
		ExpiryDate: "2023-12-15", PremiumReceived: 2.00, Quantity: 1,
		Status: models.OptionStatusExpired, OpenDate: "2023-11-01",
	})
	require.NoError(t, err)

	report, err := svc.YearReport(ctx, 2024)
	require.NoError(t, err)
	assert.InDelta(t, 524.40, report.Stocks.TotalTaxDuePLN, 1e-9)

	assert.Equal(t, 1, report.DividendCount)
	assert.InDelta(t, 400.00, report.TotalDividendsPLN, 1e-9)
	assert.InDelta(t, 16.00, report.DividendTaxToPayPLN, 1e-9)

	assert.Equal(t, 1, report.OptionCount)
	assert.InDelta(t, 120.00, report.TotalOptionPremiumUSD, 1e-9)
	assert.InDelta(t, 480.00, report.TotalOptionPremiumPLN, 1e-9)
	assert.InDelta(t, 91.20, report.OptionPremiumTaxDuePLN, 1e-9)

	assert.InDelta(t, 524.40+16.00+91.20, report.TotalTaxDuePLN, 1e-9)
}
