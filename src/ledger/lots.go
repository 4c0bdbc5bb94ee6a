// Package ledger implements the FIFO tax-lot engine: purchase lots,
// FIFO sale matching with per-lot realized gain/loss in USD and PLN,
// covered-call share reservations, and the per-year tax rollups.
//
// All mutating operations are atomic (the storage port commits them in
// one transaction) and serialize per security through SecurityLocks.
// Exchange rates are resolved by callers before any lock is taken, so a
// slow NBP call can never stall the lot set.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/username/lotfolio/backend/src/models"
	"github.com/username/lotfolio/backend/src/store"
)

// CapitalGainsTaxRate is the Polish flat tax on capital gains ("podatek
// Belki"). Applied to gains only; losses never produce negative tax.
const CapitalGainsTaxRate = 0.19

// LotService owns the purchase lots of every security: creation from
// buys, FIFO consumption on sells, and share availability checks.
type LotService struct {
	store store.Store
	locks *SecurityLocks
}

// NewLotService creates a lot service. The locks instance must be the
// same one handed to the ReservationService.
func NewLotService(st store.Store, locks *SecurityLocks) *LotService {
	return &LotService{store: st, locks: locks}
}

// CreateLotInput carries one purchase event into the ledger. The
// exchange rate is resolved by the caller (NBP, previous business day
// convention) before the ledger is touched.
type CreateLotInput struct {
	StockID       int64
	TransactionID int64
	Quantity      int
	PriceUSD      float64
	CommissionUSD float64
	PurchaseDate  string
	USDPLNRate    float64
}

func (in *CreateLotInput) validate() error {
	if in.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive, got %d", ErrInvalidInput, in.Quantity)
	}
	if in.PriceUSD <= 0 {
		return fmt.Errorf("%w: price must be positive, got %g", ErrInvalidInput, in.PriceUSD)
	}
	if in.CommissionUSD < 0 {
		return fmt.Errorf("%w: commission must not be negative, got %g", ErrInvalidInput, in.CommissionUSD)
	}
	if in.USDPLNRate <= 0 {
		return fmt.Errorf("%w: exchange rate must be positive, got %g", ErrInvalidInput, in.USDPLNRate)
	}
	if _, err := time.Parse(models.DateLayout, in.PurchaseDate); err != nil {
		return fmt.Errorf("%w: purchase date %q: %v", ErrInvalidInput, in.PurchaseDate, err)
	}
	return nil
}

// CreateLot records a new purchase lot and returns its ID. The lot
// number is the next in sequence for the stock, starting at 1.
func (s *LotService) CreateLot(ctx context.Context, in CreateLotInput) (int64, error) {
	if err := in.validate(); err != nil {
		return 0, err
	}

	mu := s.locks.forStock(in.StockID)
	mu.Lock()
	defer mu.Unlock()

	lotNumber, err := s.store.NextLotNumber(ctx, in.StockID)
	if err != nil {
		return 0, fmt.Errorf("assign lot number: %w", err)
	}

	lot := &models.Lot{
		StockID:           in.StockID,
		TransactionID:     in.TransactionID,
		LotNumber:         lotNumber,
		PurchaseDate:      in.PurchaseDate,
		Quantity:          in.Quantity,
		RemainingQuantity: in.Quantity,
		PurchasePriceUSD:  in.PriceUSD,
		PurchasePricePLN:  in.PriceUSD * in.USDPLNRate,
		CommissionUSD:     in.CommissionUSD,
		CommissionPLN:     in.CommissionUSD * in.USDPLNRate,
		USDPLNRate:        in.USDPLNRate,
		Status:            models.LotStatusOpen,
	}
	return s.store.InsertLot(ctx, lot)
}

// AvailableQuantity is the total remaining shares across the stock's
// open lots, ignoring reservations.
func (s *LotService) AvailableQuantity(ctx context.Context, stockID int64) (int, error) {
	lots, err := s.store.OpenLotsFIFO(ctx, stockID)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, lot := range lots {
		total += lot.RemainingQuantity
	}
	return total, nil
}

// SellableQuantity is AvailableQuantity minus shares reserved against
// open option contracts.
func (s *LotService) SellableQuantity(ctx context.Context, stockID int64) (int, error) {
	avail, err := availabilityFor(ctx, s.store, stockID)
	if err != nil {
		return 0, err
	}
	return avail.AvailableShares, nil
}

// ProcessSaleInput carries one sell event into the ledger.
type ProcessSaleInput struct {
	StockID           int64
	SaleTransactionID int64
	Quantity          int
	SalePriceUSD      float64
	SaleDate          string
	USDPLNRate        float64
}

func (in *ProcessSaleInput) validate() error {
	if in.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive, got %d", ErrInvalidInput, in.Quantity)
	}
	if in.SalePriceUSD <= 0 {
		return fmt.Errorf("%w: sale price must be positive, got %g", ErrInvalidInput, in.SalePriceUSD)
	}
	if in.USDPLNRate <= 0 {
		return fmt.Errorf("%w: exchange rate must be positive, got %g", ErrInvalidInput, in.USDPLNRate)
	}
	if _, err := time.Parse(models.DateLayout, in.SaleDate); err != nil {
		return fmt.Errorf("%w: sale date %q: %v", ErrInvalidInput, in.SaleDate, err)
	}
	return nil
}

// ProcessSale consumes open lots oldest-first to satisfy a sale,
// recording one allocation per lot touched with realized gain/loss in
// USD and PLN and the 19% tax on gains. Reservations are respected: a
// sale that would dip into reserved shares is rejected outright, never
// partially honored. All lot decrements and allocation rows commit
// atomically or not at all.
func (s *LotService) ProcessSale(ctx context.Context, in ProcessSaleInput) ([]models.SaleAllocation, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	mu := s.locks.forStock(in.StockID)
	mu.Lock()
	defer mu.Unlock()

	avail, err := availabilityFor(ctx, s.store, in.StockID)
	if err != nil {
		return nil, err
	}
	if avail.AvailableShares < in.Quantity {
		return nil, fmt.Errorf("%w: available %d, requested %d",
			ErrInsufficientShares, avail.AvailableShares, in.Quantity)
	}

	lots, err := s.store.OpenLotsFIFO(ctx, in.StockID)
	if err != nil {
		return nil, err
	}

	salePricePLN := in.SalePriceUSD * in.USDPLNRate
	remaining := in.Quantity
	var allocations []models.SaleAllocation
	var updates []store.LotQuantityUpdate

	for _, lot := range lots {
		if remaining <= 0 {
			break
		}
		consumed := min(remaining, lot.RemainingQuantity)

		gainLossUSD := (in.SalePriceUSD - lot.PurchasePriceUSD) * float64(consumed)
		gainLossPLN := (salePricePLN - lot.PurchasePricePLN) * float64(consumed)
		taxDuePLN := 0.0
		if gainLossPLN > 0 {
			taxDuePLN = gainLossPLN * CapitalGainsTaxRate
		}

		allocations = append(allocations, models.SaleAllocation{
			LotID:             lot.ID,
			SaleTransactionID: in.SaleTransactionID,
			QuantitySold:      consumed,
			SaleDate:          in.SaleDate,
			SalePriceUSD:      in.SalePriceUSD,
			SalePricePLN:      salePricePLN,
			GainLossUSD:       gainLossUSD,
			GainLossPLN:       gainLossPLN,
			TaxDuePLN:         taxDuePLN,
			USDPLNRate:        in.USDPLNRate,
			Symbol:            lot.Symbol,
			LotNumber:         lot.LotNumber,
			PurchaseDate:      lot.PurchaseDate,
			PurchasePriceUSD:  lot.PurchasePriceUSD,
			PurchasePricePLN:  lot.PurchasePricePLN,
		})

		newRemaining := lot.RemainingQuantity - consumed
		updates = append(updates, store.LotQuantityUpdate{
			LotID:        lot.ID,
			NewRemaining: newRemaining,
			NewStatus:    models.LotStatusFor(newRemaining, lot.Quantity),
		})
		remaining -= consumed
	}

	if remaining > 0 {
		// The availability check passed, so the walk must always finish.
		return nil, fmt.Errorf("%w: FIFO walk short by %d shares for stock %d",
			ErrInconsistent, remaining, in.StockID)
	}

	if err := s.store.ApplySale(ctx, allocations, updates); err != nil {
		return nil, fmt.Errorf("commit sale: %w", err)
	}
	return allocations, nil
}

// PreviewSale runs the same FIFO walk as ProcessSale without mutating
// anything. The ordering and tie-break are identical, so a preview
// followed immediately by the sale matches lot for lot.
func (s *LotService) PreviewSale(ctx context.Context, stockID int64, quantity int) ([]models.PlannedAllocation, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive, got %d", ErrInvalidInput, quantity)
	}

	mu := s.locks.forStock(stockID)
	mu.Lock()
	defer mu.Unlock()

	lots, err := s.store.OpenLotsFIFO(ctx, stockID)
	if err != nil {
		return nil, err
	}

	remaining := quantity
	var planned []models.PlannedAllocation
	for _, lot := range lots {
		if remaining <= 0 {
			break
		}
		consumed := min(remaining, lot.RemainingQuantity)
		planned = append(planned, models.PlannedAllocation{
			LotID:              lot.ID,
			LotNumber:          lot.LotNumber,
			PurchaseDate:       lot.PurchaseDate,
			QuantityToSell:     consumed,
			PurchasePriceUSD:   lot.PurchasePriceUSD,
			PurchasePricePLN:   lot.PurchasePricePLN,
			RemainingAfterSale: lot.RemainingQuantity - consumed,
		})
		remaining -= consumed
	}
	return planned, nil
}

// ListLots returns lots with their stock join fields; stockID 0 = all.
func (s *LotService) ListLots(ctx context.Context, stockID int64, includeClosed bool) ([]models.Lot, error) {
	return s.store.ListLots(ctx, stockID, includeClosed)
}

// LotSales returns every allocation carved out of one lot.
func (s *LotService) LotSales(ctx context.Context, lotID int64) ([]models.SaleAllocation, error) {
	return s.store.AllocationsByLot(ctx, lotID)
}

// Summary aggregates lot counts and remaining value; stockID 0 = all.
func (s *LotService) Summary(ctx context.Context, stockID int64) (*models.LotsSummary, error) {
	return s.store.LotsSummary(ctx, stockID)
}
