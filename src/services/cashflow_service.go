package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/username/lotfolio/backend/src/ledger"
	"github.com/username/lotfolio/backend/src/models"
	"github.com/username/lotfolio/backend/src/store"
)

var cashflowTypes = map[string]bool{
	models.CashflowDeposit:       true,
	models.CashflowWithdrawal:    true,
	models.CashflowDividend:      true,
	models.CashflowOptionPremium: true,
	models.CashflowCommission:    true,
	models.CashflowTax:           true,
}

// CashflowService tracks cash moving in and out of the account.
// Dividend and option-premium entries are created by their own services;
// this one handles the manual entries and the read side.
type CashflowService struct {
	store store.Store
}

// NewCashflowService creates a cashflow service.
func NewCashflowService(st store.Store) *CashflowService {
	return &CashflowService{store: st}
}

// AddCashflowInput carries one manual cash movement.
type AddCashflowInput struct {
	TransactionType string  `json:"transaction_type"`
	AmountUSD       float64 `json:"amount_usd"`
	Description     string  `json:"description,omitempty"`
	Date            string  `json:"date"`
	RelatedStockID  *int64  `json:"related_stock_id,omitempty"`
}

// AddCashflow records one movement. Withdrawals, commissions and taxes
// are stored as the sign the caller supplies; the summary nets them.
func (s *CashflowService) AddCashflow(ctx context.Context, in AddCashflowInput) (*models.Cashflow, error) {
	in.TransactionType = strings.ToUpper(strings.TrimSpace(in.TransactionType))
	if !cashflowTypes[in.TransactionType] {
		return nil, fmt.Errorf("%w: unknown cashflow type %q", ledger.ErrInvalidInput, in.TransactionType)
	}
	if in.AmountUSD == 0 {
		return nil, fmt.Errorf("%w: amount cannot be zero", ledger.ErrInvalidInput)
	}
	if _, err := time.Parse(models.DateLayout, in.Date); err != nil {
		return nil, fmt.Errorf("%w: date %q is not YYYY-MM-DD", ledger.ErrInvalidInput, in.Date)
	}

	cf := &models.Cashflow{
		TransactionType: in.TransactionType,
		AmountUSD:       in.AmountUSD,
		Description:     in.Description,
		Date:            in.Date,
		RelatedStockID:  in.RelatedStockID,
	}
	id, err := s.store.InsertCashflow(ctx, cf)
	if err != nil {
		return nil, fmt.Errorf("insert cashflow: %w", err)
	}
	cf.ID = id
	return cf, nil
}

// ListCashflows returns movements newest first; cfType "" = all.
func (s *CashflowService) ListCashflows(ctx context.Context, cfType string) ([]models.Cashflow, error) {
	if cfType != "" && !cashflowTypes[cfType] {
		return nil, fmt.Errorf("%w: unknown cashflow type %q", ledger.ErrInvalidInput, cfType)
	}
	return s.store.ListCashflows(ctx, cfType)
}

// Summary aggregates movements by type for one year (0 = all).
func (s *CashflowService) Summary(ctx context.Context, year int) (*models.CashflowSummary, error) {
	return s.store.CashflowSummary(ctx, year)
}
