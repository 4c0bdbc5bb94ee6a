package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/username/lotfolio/backend/src/config"
	"github.com/username/lotfolio/backend/src/ledger"
	"github.com/username/lotfolio/backend/src/logger"
	"github.com/username/lotfolio/backend/src/models"
	"github.com/username/lotfolio/backend/src/store"
)

// TransactionService records buys and sells. A buy opens a new tax lot;
// a sell runs the FIFO engine. The transaction row and its ledger effect
// stay consistent: when the ledger rejects a sell, the already-inserted
// transaction row is deleted again.
type TransactionService struct {
	store store.Store
	lots  *ledger.LotService
	rates RateSource
}

// NewTransactionService creates a transaction service.
func NewTransactionService(st store.Store, lots *ledger.LotService, rates RateSource) *TransactionService {
	return &TransactionService{store: st, lots: lots, rates: rates}
}

// AddTransactionInput carries one buy or sell into the service.
type AddTransactionInput struct {
	StockID         int64   `json:"stock_id"`
	TransactionType string  `json:"transaction_type"`
	Quantity        int     `json:"quantity"`
	PriceUSD        float64 `json:"price_usd"`
	CommissionUSD   float64 `json:"commission_usd"`
	TransactionDate string  `json:"transaction_date"`
	Notes           string  `json:"notes,omitempty"`
}

func (in *AddTransactionInput) validate() error {
	switch in.TransactionType {
	case models.TransactionBuy, models.TransactionSell:
	default:
		return fmt.Errorf("%w: transaction type must be BUY or SELL, got %q", ledger.ErrInvalidInput, in.TransactionType)
	}
	if in.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive, got %d", ledger.ErrInvalidInput, in.Quantity)
	}
	if in.PriceUSD <= 0 {
		return fmt.Errorf("%w: price must be positive, got %g", ledger.ErrInvalidInput, in.PriceUSD)
	}
	if in.CommissionUSD < 0 {
		return fmt.Errorf("%w: commission cannot be negative, got %g", ledger.ErrInvalidInput, in.CommissionUSD)
	}
	if _, err := time.Parse(models.DateLayout, in.TransactionDate); err != nil {
		return fmt.Errorf("%w: transaction date %q is not YYYY-MM-DD", ledger.ErrInvalidInput, in.TransactionDate)
	}
	return nil
}

// AddTransaction records one buy or sell and applies it to the lot
// ledger. The returned transaction carries the resolved exchange rate
// and the derived PLN amounts.
func (s *TransactionService) AddTransaction(ctx context.Context, in AddTransactionInput) (*models.StockTransaction, error) {
	in.TransactionType = strings.ToUpper(strings.TrimSpace(in.TransactionType))
	if err := in.validate(); err != nil {
		return nil, err
	}
	if _, err := s.store.GetStockByID(ctx, in.StockID); err != nil {
		return nil, fmt.Errorf("stock %d: %w", in.StockID, err)
	}

	rate, fallback := s.resolveRate(ctx, in.TransactionDate)

	tx := &models.StockTransaction{
		StockID:         in.StockID,
		TransactionType: in.TransactionType,
		Quantity:        in.Quantity,
		PriceUSD:        in.PriceUSD,
		CommissionUSD:   in.CommissionUSD,
		TransactionDate: in.TransactionDate,
		USDPLNRate:      rate,
		PricePLN:        in.PriceUSD * rate,
		CommissionPLN:   in.CommissionUSD * rate,
		RateFallback:    fallback,
		Notes:           in.Notes,
	}
	txID, err := s.store.InsertTransaction(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}
	tx.ID = txID

	switch in.TransactionType {
	case models.TransactionBuy:
		_, err = s.lots.CreateLot(ctx, ledger.CreateLotInput{
			StockID:       in.StockID,
			TransactionID: txID,
			Quantity:      in.Quantity,
			PriceUSD:      in.PriceUSD,
			CommissionUSD: in.CommissionUSD,
			PurchaseDate:  in.TransactionDate,
			USDPLNRate:    rate,
		})
	case models.TransactionSell:
		_, err = s.lots.ProcessSale(ctx, ledger.ProcessSaleInput{
			StockID:           in.StockID,
			SaleTransactionID: txID,
			Quantity:          in.Quantity,
			SalePriceUSD:      in.PriceUSD,
			SaleDate:          in.TransactionDate,
			USDPLNRate:        rate,
		})
	}
	if err != nil {
		// Roll the orphaned transaction row back; the ledger refused it.
		if delErr := s.store.DeleteTransaction(ctx, txID); delErr != nil {
			logger.L.Error("Failed to roll back transaction after ledger rejection",
				"transactionID", txID, "error", delErr)
		}
		return nil, err
	}

	if err := s.recomputePosition(ctx, in.StockID); err != nil {
		logger.L.Warn("Failed to recompute stock position", "stockID", in.StockID, "error", err)
	}

	logger.FromContext(ctx).Info("Transaction recorded",
		"transactionID", txID, "stockID", in.StockID, "type", in.TransactionType,
		"quantity", in.Quantity, "rate", rate, "rateFallback", fallback)
	return tx, nil
}

// ListTransactions returns transactions newest first; stockID 0 = all.
func (s *TransactionService) ListTransactions(ctx context.Context, stockID int64) ([]models.StockTransaction, error) {
	return s.store.ListTransactions(ctx, stockID)
}

// UpdateNotes replaces the free-form notes on one transaction.
func (s *TransactionService) UpdateNotes(ctx context.Context, id int64, notes string) error {
	return s.store.UpdateTransactionNotes(ctx, id, notes)
}

// resolveRate applies the collaborator's bookkeeping convention: the
// preceding business day's rate, then the transaction date's rate, then
// the configured default. The default is flagged so the rows can be
// reviewed before filing.
func (s *TransactionService) resolveRate(ctx context.Context, date string) (float64, bool) {
	day, _ := time.Parse(models.DateLayout, date)

	prev := previousBusinessDay(day)
	if rate, err := s.rates.USDPLNRate(ctx, prev); err == nil {
		return rate, false
	}
	if rate, err := s.rates.USDPLNRate(ctx, day); err == nil {
		return rate, false
	}

	rate := config.Cfg.DefaultUSDPLNRate
	logger.L.Warn("No exchange rate available, using configured default",
		"date", date, "defaultRate", rate)
	return rate, true
}

// previousBusinessDay steps back one day, skipping weekends.
func previousBusinessDay(day time.Time) time.Time {
	prev := day.AddDate(0, 0, -1)
	for {
		if wd := prev.Weekday(); wd != time.Saturday && wd != time.Sunday {
			return prev
		}
		prev = prev.AddDate(0, 0, -1)
	}
}

// recomputePosition refreshes the display-only running position from the
// open lots. The lot ledger stays authoritative.
func (s *TransactionService) recomputePosition(ctx context.Context, stockID int64) error {
	lots, err := s.store.OpenLotsFIFO(ctx, stockID)
	if err != nil {
		return err
	}
	var quantity int
	var costUSD float64
	for _, lot := range lots {
		quantity += lot.RemainingQuantity
		costUSD += float64(lot.RemainingQuantity) * lot.PurchasePriceUSD
	}
	var avgPrice float64
	if quantity > 0 {
		avgPrice = costUSD / float64(quantity)
	}
	return s.store.UpdateStockPosition(ctx, stockID, quantity, avgPrice)
}
