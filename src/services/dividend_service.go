package services

import (
	"context"
	"fmt"
	"time"

	"github.com/username/lotfolio/backend/src/ledger"
	"github.com/username/lotfolio/backend/src/logger"
	"github.com/username/lotfolio/backend/src/models"
	"github.com/username/lotfolio/backend/src/store"
)

// DividendService records dividend payments and mirrors them into the
// cashflow log net of US withholding.
type DividendService struct {
	store store.Store
}

// NewDividendService creates a dividend service.
func NewDividendService(st store.Store) *DividendService {
	return &DividendService{store: st}
}

// AddDividendInput carries one dividend payment.
type AddDividendInput struct {
	StockID          int64   `json:"stock_id"`
	DividendPerShare float64 `json:"dividend_per_share"`
	Quantity         int     `json:"quantity"`
	TaxWithheldUSD   float64 `json:"tax_withheld_usd"`
	ExDate           string  `json:"ex_date"`
	PayDate          string  `json:"pay_date"`
}

func (in *AddDividendInput) validate() error {
	if in.DividendPerShare <= 0 {
		return fmt.Errorf("%w: dividend per share must be positive, got %g", ledger.ErrInvalidInput, in.DividendPerShare)
	}
	if in.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive, got %d", ledger.ErrInvalidInput, in.Quantity)
	}
	if in.TaxWithheldUSD < 0 {
		return fmt.Errorf("%w: withheld tax cannot be negative, got %g", ledger.ErrInvalidInput, in.TaxWithheldUSD)
	}
	for _, d := range []string{in.ExDate, in.PayDate} {
		if _, err := time.Parse(models.DateLayout, d); err != nil {
			return fmt.Errorf("%w: date %q is not YYYY-MM-DD", ledger.ErrInvalidInput, d)
		}
	}
	return nil
}

// AddDividend records one payment. The gross USD amount is derived from
// per-share amount and quantity; the cashflow entry is net of the US
// withholding already taken at source.
func (s *DividendService) AddDividend(ctx context.Context, in AddDividendInput) (*models.Dividend, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if _, err := s.store.GetStockByID(ctx, in.StockID); err != nil {
		return nil, fmt.Errorf("stock %d: %w", in.StockID, err)
	}

	div := &models.Dividend{
		StockID:          in.StockID,
		DividendPerShare: in.DividendPerShare,
		Quantity:         in.Quantity,
		TotalAmountUSD:   in.DividendPerShare * float64(in.Quantity),
		TaxWithheldUSD:   in.TaxWithheldUSD,
		ExDate:           in.ExDate,
		PayDate:          in.PayDate,
	}
	id, err := s.store.InsertDividend(ctx, div)
	if err != nil {
		return nil, fmt.Errorf("insert dividend: %w", err)
	}
	div.ID = id

	if _, err := s.store.InsertCashflow(ctx, &models.Cashflow{
		TransactionType: models.CashflowDividend,
		AmountUSD:       div.TotalAmountUSD - div.TaxWithheldUSD,
		Description:     fmt.Sprintf("Dividend %g x %d shares", in.DividendPerShare, in.Quantity),
		Date:            in.PayDate,
		RelatedStockID:  &in.StockID,
	}); err != nil {
		logger.L.Warn("Failed to record dividend cashflow", "dividendID", id, "error", err)
	}

	logger.FromContext(ctx).Info("Dividend recorded",
		"dividendID", id, "stockID", in.StockID, "grossUSD", div.TotalAmountUSD)
	return div, nil
}

// ListDividends returns payments newest first; stockID 0 = all,
// year 0 = all years.
func (s *DividendService) ListDividends(ctx context.Context, stockID int64, year int) ([]models.Dividend, error) {
	return s.store.ListDividends(ctx, stockID, year)
}

// Summary aggregates dividend payments for one year (0 = all).
func (s *DividendService) Summary(ctx context.Context, year int) (*models.DividendSummary, error) {
	return s.store.DividendSummary(ctx, year)
}
