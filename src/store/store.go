// Package store defines the persistence port for the portfolio engine.
// Implementations include SQLite (source of truth) and in-memory (for
// testing). Services depend only on the Store interface so the lot
// ledger can be exercised without a database.
package store

import (
	"context"
	"errors"

	"github.com/username/lotfolio/backend/src/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// LotQuantityUpdate describes one lot mutation inside an atomic sale.
type LotQuantityUpdate struct {
	LotID        int64
	NewRemaining int
	NewStatus    string
}

// Store is the persistence interface. SQLite is the source of truth; the
// in-memory implementation backs tests. Calls that must be all-or-nothing
// (ApplySale, InsertReservations) are single methods so each
// implementation can commit them in one transaction or lock scope.
type Store interface {
	// --- Stocks ---

	// CreateStock inserts a new symbol with a zero position.
	CreateStock(ctx context.Context, symbol, name string) (int64, error)

	// GetStockByID retrieves a stock by primary key.
	GetStockByID(ctx context.Context, id int64) (*models.Stock, error)

	// GetStockBySymbol retrieves a stock by its ticker symbol.
	GetStockBySymbol(ctx context.Context, symbol string) (*models.Stock, error)

	// ListStocks returns all stocks ordered by symbol.
	ListStocks(ctx context.Context) ([]models.Stock, error)

	// UpdateStockPosition stores the recomputed running position.
	UpdateStockPosition(ctx context.Context, stockID int64, quantity int, avgPriceUSD float64) error

	// UpdateStockPrice stores the latest market price.
	UpdateStockPrice(ctx context.Context, stockID int64, priceUSD float64) error

	// --- Stock transactions ---

	// InsertTransaction appends a buy/sell record and returns its ID.
	InsertTransaction(ctx context.Context, tx *models.StockTransaction) (int64, error)

	// DeleteTransaction removes a transaction row (sell rollback path).
	DeleteTransaction(ctx context.Context, id int64) error

	// UpdateTransactionNotes replaces the notes on a transaction.
	UpdateTransactionNotes(ctx context.Context, id int64, notes string) error

	// ListTransactions returns transactions newest first; stockID 0 = all.
	ListTransactions(ctx context.Context, stockID int64) ([]models.StockTransaction, error)

	// --- Lots ---

	// InsertLot persists a new purchase lot and returns its ID.
	InsertLot(ctx context.Context, lot *models.Lot) (int64, error)

	// NextLotNumber returns max(lot_number)+1 for the stock, starting at 1.
	NextLotNumber(ctx context.Context, stockID int64) (int, error)

	// GetLotByID retrieves one lot with its stock join fields.
	GetLotByID(ctx context.Context, id int64) (*models.Lot, error)

	// ListLots returns lots ordered by (symbol, purchase_date, lot_number);
	// stockID 0 = all, includeClosed false filters remaining_quantity > 0.
	ListLots(ctx context.Context, stockID int64, includeClosed bool) ([]models.Lot, error)

	// OpenLotsFIFO returns lots with remaining shares in FIFO order:
	// purchase_date ascending, lot_number ascending on date ties.
	OpenLotsFIFO(ctx context.Context, stockID int64) ([]models.Lot, error)

	// ApplySale commits a FIFO sale atomically: every allocation row and
	// every lot decrement, or nothing.
	ApplySale(ctx context.Context, allocations []models.SaleAllocation, updates []LotQuantityUpdate) error

	// AllocationsByLot returns all sales carved out of one lot.
	AllocationsByLot(ctx context.Context, lotID int64) ([]models.SaleAllocation, error)

	// LotsSummary aggregates lot counts and remaining value; stockID 0 = all.
	LotsSummary(ctx context.Context, stockID int64) (*models.LotsSummary, error)

	// --- Realized gains (read side) ---

	// RealizedGains returns allocations joined with symbol and lot data,
	// ordered by sale_date descending then symbol; year 0 = all years.
	RealizedGains(ctx context.Context, year int) ([]models.SaleAllocation, error)

	// TaxSummary aggregates allocations for one tax year.
	TaxSummary(ctx context.Context, year int) (*models.TaxSummary, error)

	// --- Reservations ---

	// InsertReservations persists all rows or none.
	InsertReservations(ctx context.Context, reservations []models.Reservation) error

	// DeleteReservationsByOption releases every reservation of one option.
	DeleteReservationsByOption(ctx context.Context, optionID int64) error

	// ReservedByLot returns lotID -> total reserved for one stock's lots.
	ReservedByLot(ctx context.Context, stockID int64) (map[int64]int, error)

	// ListReservations returns reservations for one option.
	ListReservations(ctx context.Context, optionID int64) ([]models.Reservation, error)

	// --- Exchange-rate cache ---

	// GetRate returns the cached rate for an exact (pair, date).
	GetRate(ctx context.Context, pair, date string) (*models.ExchangeRate, error)

	// LastRateAtOrBefore returns the most recent cached rate with
	// entry.Date <= date.
	LastRateAtOrBefore(ctx context.Context, pair, date string) (*models.ExchangeRate, error)

	// UpsertRate inserts or overwrites the (pair, date) cache entry.
	UpsertRate(ctx context.Context, rate *models.ExchangeRate) error

	// --- Options ---

	InsertOption(ctx context.Context, opt *models.Option) (int64, error)
	GetOptionByID(ctx context.Context, id int64) (*models.Option, error)
	ListOptions(ctx context.Context, includeClosed bool) ([]models.Option, error)
	UpdateOptionStatus(ctx context.Context, id int64, status, closeDate string) error
	DeleteOption(ctx context.Context, id int64) error

	// --- Dividends ---

	InsertDividend(ctx context.Context, div *models.Dividend) (int64, error)

	// ListDividends returns dividends newest first; stockID 0 = all,
	// year 0 = all years (filtered on pay_date).
	ListDividends(ctx context.Context, stockID int64, year int) ([]models.Dividend, error)
	DividendSummary(ctx context.Context, year int) (*models.DividendSummary, error)

	// --- Cashflows ---

	InsertCashflow(ctx context.Context, cf *models.Cashflow) (int64, error)

	// ListCashflows returns movements newest first; cfType "" = all.
	ListCashflows(ctx context.Context, cfType string) ([]models.Cashflow, error)
	CashflowSummary(ctx context.Context, year int) (*models.CashflowSummary, error)
}
