package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/lotfolio/backend/src/models"
)

func seedLot(t *testing.T, st *MemoryStore, stockID int64, lotNumber, qty int, date string) int64 {
	t.Helper()
	id, err := st.InsertLot(context.Background(), &models.Lot{
		StockID:           stockID,
		LotNumber:         lotNumber,
		PurchaseDate:      date,
		Quantity:          qty,
		RemainingQuantity: qty,
		PurchasePriceUSD:  50,
		PurchasePricePLN:  200,
		USDPLNRate:        4,
		Status:            models.LotStatusOpen,
	})
	require.NoError(t, err)
	return id
}

func TestOpenLotsFIFOOrdering(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	stockID, err := st.CreateStock(ctx, "XYZ", "XYZ Corp")
	require.NoError(t, err)

	// Insert out of order, including a date tie.
	l3 := seedLot(t, st, stockID, 3, 10, "2024-02-01")
	l2 := seedLot(t, st, stockID, 2, 10, "2024-01-15")
	l1 := seedLot(t, st, stockID, 1, 10, "2024-01-15")

	lots, err := st.OpenLotsFIFO(ctx, stockID)
	require.NoError(t, err)
	require.Len(t, lots, 3)
	assert.Equal(t, []int64{l1, l2, l3}, []int64{lots[0].ID, lots[1].ID, lots[2].ID})
}

func TestApplySaleIsAllOrNothing(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	stockID, err := st.CreateStock(ctx, "XYZ", "XYZ Corp")
	require.NoError(t, err)
	lotID := seedLot(t, st, stockID, 1, 10, "2024-01-15")

	err = st.ApplySale(ctx,
		[]models.SaleAllocation{
			{LotID: lotID, QuantitySold: 5, SaleDate: "2024-06-03", SalePriceUSD: 60, USDPLNRate: 4},
			{LotID: 9999, QuantitySold: 5, SaleDate: "2024-06-03", SalePriceUSD: 60, USDPLNRate: 4},
		},
		[]LotQuantityUpdate{
			{LotID: lotID, NewRemaining: 5, NewStatus: models.LotStatusPartial},
			{LotID: 9999, NewRemaining: 0, NewStatus: models.LotStatusClosed},
		})
	require.Error(t, err)

	// The valid half must not have been applied.
	lot, err := st.GetLotByID(ctx, lotID)
	require.NoError(t, err)
	assert.Equal(t, 10, lot.RemainingQuantity)
	sales, err := st.AllocationsByLot(ctx, lotID)
	require.NoError(t, err)
	assert.Empty(t, sales)
}

func TestInsertReservationsAllOrNothing(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	stockID, err := st.CreateStock(ctx, "XYZ", "XYZ Corp")
	require.NoError(t, err)
	lotID := seedLot(t, st, stockID, 1, 10, "2024-01-15")

	err = st.InsertReservations(ctx, []models.Reservation{
		{OptionID: 1, LotID: lotID, ReservedQuantity: 5},
		{OptionID: 1, LotID: 9999, ReservedQuantity: 5},
	})
	require.Error(t, err)

	reserved, err := st.ReservedByLot(ctx, stockID)
	require.NoError(t, err)
	assert.Empty(t, reserved)
}

func TestLastRateAtOrBefore(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	for date, rate := range map[string]float64{
		"2024-05-28": 3.98,
		"2024-05-20": 3.95,
		"2024-06-03": 4.10,
	} {
		require.NoError(t, st.UpsertRate(ctx, &models.ExchangeRate{
			CurrencyPair: models.PairUSDPLN, Rate: rate, Date: date,
		}))
	}

	entry, err := st.LastRateAtOrBefore(ctx, models.PairUSDPLN, "2024-06-01")
	require.NoError(t, err)
	assert.Equal(t, "2024-05-28", entry.Date)

	entry, err = st.LastRateAtOrBefore(ctx, models.PairUSDPLN, "2024-06-03")
	require.NoError(t, err)
	assert.Equal(t, "2024-06-03", entry.Date)

	_, err = st.LastRateAtOrBefore(ctx, models.PairUSDPLN, "2024-05-01")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpsertRateOverwrites(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, st.UpsertRate(ctx, &models.ExchangeRate{
		CurrencyPair: models.PairUSDPLN, Rate: 4.00, Date: "2024-06-03",
	}))
	require.NoError(t, st.UpsertRate(ctx, &models.ExchangeRate{
		CurrencyPair: models.PairUSDPLN, Rate: 4.05, Date: "2024-06-03",
	}))

	entry, err := st.GetRate(ctx, models.PairUSDPLN, "2024-06-03")
	require.NoError(t, err)
	assert.InDelta(t, 4.05, entry.Rate, 1e-9)
}

func TestNextLotNumberStartsAtOne(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	stockID, err := st.CreateStock(ctx, "XYZ", "XYZ Corp")
	require.NoError(t, err)

	n, err := st.NextLotNumber(ctx, stockID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	seedLot(t, st, stockID, 1, 10, "2024-01-15")
	seedLot(t, st, stockID, 2, 10, "2024-01-16")

	n, err = st.NextLotNumber(ctx, stockID)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
