package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/username/lotfolio/backend/src/ledger"
	"github.com/username/lotfolio/backend/src/models"
	"github.com/username/lotfolio/backend/src/store"
)

// StockService manages the symbol catalogue.
type StockService struct {
	store store.Store
}

// NewStockService creates a stock service.
func NewStockService(st store.Store) *StockService {
	return &StockService{store: st}
}

// CreateStock registers a new symbol. Symbols are stored upper-case and
// must be unique.
func (s *StockService) CreateStock(ctx context.Context, symbol, name string) (*models.Stock, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("%w: symbol cannot be empty", ledger.ErrInvalidInput)
	}

	if existing, err := s.store.GetStockBySymbol(ctx, symbol); err == nil {
		return nil, fmt.Errorf("%w: symbol %s already exists (id %d)", ledger.ErrInvalidInput, symbol, existing.ID)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	id, err := s.store.CreateStock(ctx, symbol, name)
	if err != nil {
		return nil, fmt.Errorf("create stock %s: %w", symbol, err)
	}
	return s.store.GetStockByID(ctx, id)
}

// GetStock retrieves one stock by ID.
func (s *StockService) GetStock(ctx context.Context, id int64) (*models.Stock, error) {
	return s.store.GetStockByID(ctx, id)
}

// GetStockBySymbol retrieves one stock by ticker.
func (s *StockService) GetStockBySymbol(ctx context.Context, symbol string) (*models.Stock, error) {
	return s.store.GetStockBySymbol(ctx, strings.ToUpper(strings.TrimSpace(symbol)))
}

// ListStocks returns all stocks ordered by symbol.
func (s *StockService) ListStocks(ctx context.Context) ([]models.Stock, error) {
	return s.store.ListStocks(ctx)
}
