package ledger

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReserveExcludesSharesFromSale(t *testing.T) {
	_, lots, reservations, stockID := newTestLedger(t)
	ctx := context.Background()

	mustCreateLot(t, lots, stockID, 10, 50, "2024-03-01", 4.0)

	_, err := reservations.Reserve(ctx, 1, stockID, 5)
	require.NoError(t, err)

	sellable, err := lots.SellableQuantity(ctx, stockID)
	require.NoError(t, err)
	assert.Equal(t, 5, sellable)

	// Physical shares unchanged, only sellability shrinks.
	physical, err := lots.AvailableQuantity(ctx, stockID)
	require.NoError(t, err)
	assert.Equal(t, 10, physical)

	_, err = lots.ProcessSale(ctx, ProcessSaleInput{
		StockID:      stockID,
		Quantity:     10,
		SalePriceUSD: 60,
		SaleDate:     "2024-06-03",
		USDPLNRate:   4.0,
	})
	assert.ErrorIs(t, err, ErrInsufficientShares)

	_, err = lots.ProcessSale(ctx, ProcessSaleInput{
		StockID:      stockID,
		Quantity:     5,
		SalePriceUSD: 60,
		SaleDate:     "2024-06-03",
		USDPLNRate:   4.0,
	})
	assert.NoError(t, err)
}

func TestReserveInsufficientSharesReservesNothing(t *testing.T) {
	st, lots, reservations, stockID := newTestLedger(t)
	ctx := context.Background()

	mustCreateLot(t, lots, stockID, 10, 50, "2024-03-01", 4.0)

	_, err := reservations.Reserve(ctx, 1, stockID, 15)
	assert.ErrorIs(t, err, ErrInsufficientShares)

	reserved, err := st.ReservedByLot(ctx, stockID)
	require.NoError(t, err)
	assert.Empty(t, reserved)
}

func TestReserveSpansLotsInFIFOOrder(t *testing.T) {
	_, lots, reservations, stockID := newTestLedger(t)
	ctx := context.Background()

	older := mustCreateLot(t, lots, stockID, 10, 50, "2024-01-02", 4.0)
	newer := mustCreateLot(t, lots, stockID, 10, 55, "2024-02-02", 4.0)

	rows, err := reservations.Reserve(ctx, 1, stockID, 14)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, older, rows[0].LotID)
	assert.Equal(t, 10, rows[0].ReservedQuantity)
	assert.Equal(t, newer, rows[1].LotID)
	assert.Equal(t, 4, rows[1].ReservedQuantity)
}

func TestMultipleOptionsShareOneLot(t *testing.T) {
	_, lots, reservations, stockID := newTestLedger(t)
	ctx := context.Background()

	mustCreateLot(t, lots, stockID, 10, 50, "2024-03-01", 4.0)

	_, err := reservations.Reserve(ctx, 1, stockID, 4)
	require.NoError(t, err)
	_, err = reservations.Reserve(ctx, 2, stockID, 4)
	require.NoError(t, err)

	sellable, err := lots.SellableQuantity(ctx, stockID)
	require.NoError(t, err)
	assert.Equal(t, 2, sellable)

	_, err = reservations.Reserve(ctx, 3, stockID, 4)
	assert.ErrorIs(t, err, ErrInsufficientShares)
}

func TestReleaseRestoresSellability(t *testing.T) {
	_, lots, reservations, stockID := newTestLedger(t)
	ctx := context.Background()

	mustCreateLot(t, lots, stockID, 10, 50, "2024-03-01", 4.0)

	_, err := reservations.Reserve(ctx, 7, stockID, 10)
	require.NoError(t, err)

	sellable, err := lots.SellableQuantity(ctx, stockID)
	require.NoError(t, err)
	assert.Zero(t, sellable)

	require.NoError(t, reservations.Release(ctx, 7))

	sellable, err = lots.SellableQuantity(ctx, stockID)
	require.NoError(t, err)
	assert.Equal(t, 10, sellable)
}

func TestReleaseOnlyTouchesOwnOption(t *testing.T) {
	_, lots, reservations, stockID := newTestLedger(t)
	ctx := context.Background()

	mustCreateLot(t, lots, stockID, 10, 50, "2024-03-01", 4.0)

	_, err := reservations.Reserve(ctx, 1, stockID, 3)
	require.NoError(t, err)
	_, err = reservations.Reserve(ctx, 2, stockID, 3)
	require.NoError(t, err)

	require.NoError(t, reservations.Release(ctx, 1))

	sellable, err := lots.SellableQuantity(ctx, stockID)
	require.NoError(t, err)
	assert.Equal(t, 7, sellable)
}

func TestCheckAvailabilityBreakdown(t *testing.T) {
	_, lots, reservations, stockID := newTestLedger(t)
	ctx := context.Background()

	mustCreateLot(t, lots, stockID, 10, 50, "2024-01-02", 4.0)
	mustCreateLot(t, lots, stockID, 20, 55, "2024-02-02", 4.0)

	_, err := reservations.Reserve(ctx, 1, stockID, 10)
	require.NoError(t, err)

	avail, err := reservations.CheckAvailability(ctx, stockID, 15)
	require.NoError(t, err)
	assert.True(t, avail.CanSell)
	assert.Equal(t, 20, avail.AvailableShares)
	require.Len(t, avail.Lots, 2)
	assert.Equal(t, 0, avail.Lots[0].AvailableForSale)
	assert.Equal(t, 20, avail.Lots[1].AvailableForSale)

	avail, err = reservations.CheckAvailability(ctx, stockID, 21)
	require.NoError(t, err)
	assert.False(t, avail.CanSell)
}

func TestReserveRejectsNonPositiveQuantity(t *testing.T) {
	_, _, reservations, stockID := newTestLedger(t)

	_, err := reservations.Reserve(context.Background(), 1, stockID, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

// Reserve and ProcessSale on the same security serialize on the keyed
// mutex: 100 shares can cover at most ten 10-share claims no matter how
// the goroutines interleave, and the lot ledger stays consistent.
func TestConcurrentReserveAndSellNeverOverclaim(t *testing.T) {
	st, lots, reservations, stockID := newTestLedger(t)
	ctx := context.Background()

	mustCreateLot(t, lots, stockID, 100, 50.00, "2024-03-01", 4.0)

	const workers = 10
	var reserveOK, sellOK atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(2)
		optionID := int64(i + 1)
		go func() {
			defer wg.Done()
			if _, err := reservations.Reserve(ctx, optionID, stockID, 10); err == nil {
				reserveOK.Add(1)
			}
		}()
		go func() {
			defer wg.Done()
			_, err := lots.ProcessSale(ctx, ProcessSaleInput{
				StockID: stockID, Quantity: 10, SalePriceUSD: 60.00,
				SaleDate: "2024-06-03", USDPLNRate: 4.10,
			})
			if err == nil {
				sellOK.Add(1)
			}
		}()
	}
	wg.Wait()

	reserved := int(reserveOK.Load())
	sold := int(sellOK.Load())
	assert.Equal(t, 10, reserved+sold)

	open, err := lots.ListLots(ctx, stockID, true)
	require.NoError(t, err)
	remaining := 0
	for _, lot := range open {
		remaining += lot.RemainingQuantity
	}
	assert.Equal(t, 100-sold*10, remaining)

	byLot, err := st.ReservedByLot(ctx, stockID)
	require.NoError(t, err)
	totalReserved := 0
	for _, q := range byLot {
		totalReserved += q
	}
	assert.Equal(t, reserved*10, totalReserved)
	assert.LessOrEqual(t, totalReserved, remaining)
}
