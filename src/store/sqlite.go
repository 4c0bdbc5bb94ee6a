package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/username/lotfolio/backend/src/models"
)

// SQLStore implements Store on top of database/sql with the sqlite
// driver. The connection is opened and migrated by the database package.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore wraps an open database handle.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// --- Stocks ---

func (s *SQLStore) CreateStock(ctx context.Context, symbol, name string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO stocks (symbol, name, quantity, avg_price_usd) VALUES (?, ?, 0, 0.0)`,
		symbol, name)
	if err != nil {
		return 0, fmt.Errorf("insert stock %s: %w", symbol, err)
	}
	return res.LastInsertId()
}

func (s *SQLStore) GetStockByID(ctx context.Context, id int64) (*models.Stock, error) {
	return s.scanStock(s.db.QueryRowContext(ctx,
		`SELECT id, symbol, name, quantity, avg_price_usd, current_price_usd FROM stocks WHERE id = ?`, id))
}

func (s *SQLStore) GetStockBySymbol(ctx context.Context, symbol string) (*models.Stock, error) {
	return s.scanStock(s.db.QueryRowContext(ctx,
		`SELECT id, symbol, name, quantity, avg_price_usd, current_price_usd FROM stocks WHERE symbol = ?`, symbol))
}

func (s *SQLStore) scanStock(row *sql.Row) (*models.Stock, error) {
	var st models.Stock
	err := row.Scan(&st.ID, &st.Symbol, &st.Name, &st.Quantity, &st.AvgPriceUSD, &st.CurrentPriceUSD)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan stock: %w", err)
	}
	return &st, nil
}

func (s *SQLStore) ListStocks(ctx context.Context) ([]models.Stock, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, symbol, name, quantity, avg_price_usd, current_price_usd FROM stocks ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("list stocks: %w", err)
	}
	defer rows.Close()

	var stocks []models.Stock
	for rows.Next() {
		var st models.Stock
		if err := rows.Scan(&st.ID, &st.Symbol, &st.Name, &st.Quantity, &st.AvgPriceUSD, &st.CurrentPriceUSD); err != nil {
			return nil, fmt.Errorf("scan stock: %w", err)
		}
		stocks = append(stocks, st)
	}
	return stocks, rows.Err()
}

func (s *SQLStore) UpdateStockPosition(ctx context.Context, stockID int64, quantity int, avgPriceUSD float64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE stocks SET quantity = ?, avg_price_usd = ? WHERE id = ?`,
		quantity, avgPriceUSD, stockID)
	return err
}

func (s *SQLStore) UpdateStockPrice(ctx context.Context, stockID int64, priceUSD float64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE stocks SET current_price_usd = ?, last_updated = CURRENT_TIMESTAMP WHERE id = ?`,
		priceUSD, stockID)
	return err
}

// --- Stock transactions ---

func (s *SQLStore) InsertTransaction(ctx context.Context, tx *models.StockTransaction) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO stock_transactions
		(stock_id, transaction_type, quantity, price_usd, commission_usd,
		 transaction_date, usd_pln_rate, price_pln, commission_pln, rate_fallback, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.StockID, tx.TransactionType, tx.Quantity, tx.PriceUSD, tx.CommissionUSD,
		tx.TransactionDate, tx.USDPLNRate, tx.PricePLN, tx.CommissionPLN, tx.RateFallback, tx.Notes)
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	return res.LastInsertId()
}

func (s *SQLStore) DeleteTransaction(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM stock_transactions WHERE id = ?`, id)
	return err
}

func (s *SQLStore) UpdateTransactionNotes(ctx context.Context, id int64, notes string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE stock_transactions SET notes = ? WHERE id = ?`, notes, id)
	return err
}

func (s *SQLStore) ListTransactions(ctx context.Context, stockID int64) ([]models.StockTransaction, error) {
	query := `
		SELECT st.id, st.stock_id, s.symbol, st.transaction_type, st.quantity, st.price_usd,
		       st.commission_usd, st.transaction_date, st.usd_pln_rate, st.price_pln,
		       st.commission_pln, st.rate_fallback, COALESCE(st.notes, '')
		FROM stock_transactions st
		JOIN stocks s ON st.stock_id = s.id`
	args := []any{}
	if stockID != 0 {
		query += ` WHERE st.stock_id = ?`
		args = append(args, stockID)
	}
	query += ` ORDER BY st.transaction_date DESC, st.id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []models.StockTransaction
	for rows.Next() {
		var tx models.StockTransaction
		if err := rows.Scan(&tx.ID, &tx.StockID, &tx.Symbol, &tx.TransactionType, &tx.Quantity,
			&tx.PriceUSD, &tx.CommissionUSD, &tx.TransactionDate, &tx.USDPLNRate, &tx.PricePLN,
			&tx.CommissionPLN, &tx.RateFallback, &tx.Notes); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

// --- Lots ---

func (s *SQLStore) InsertLot(ctx context.Context, lot *models.Lot) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO stock_lots
		(stock_id, transaction_id, lot_number, purchase_date, quantity, remaining_quantity,
		 purchase_price_usd, purchase_price_pln, commission_usd, commission_pln, usd_pln_rate, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		lot.StockID, lot.TransactionID, lot.LotNumber, lot.PurchaseDate, lot.Quantity,
		lot.RemainingQuantity, lot.PurchasePriceUSD, lot.PurchasePricePLN,
		lot.CommissionUSD, lot.CommissionPLN, lot.USDPLNRate, lot.Status)
	if err != nil {
		return 0, fmt.Errorf("insert lot: %w", err)
	}
	return res.LastInsertId()
}

func (s *SQLStore) NextLotNumber(ctx context.Context, stockID int64) (int, error) {
	var next int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(lot_number), 0) + 1 FROM stock_lots WHERE stock_id = ?`, stockID).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("next lot number: %w", err)
	}
	return next, nil
}

const lotColumns = `
	sl.id, sl.stock_id, sl.transaction_id, sl.lot_number, sl.purchase_date,
	sl.quantity, sl.remaining_quantity, sl.purchase_price_usd, sl.purchase_price_pln,
	sl.commission_usd, sl.commission_pln, sl.usd_pln_rate, sl.status, s.symbol, s.name`

func scanLot(scanner interface{ Scan(...any) error }) (models.Lot, error) {
	var lot models.Lot
	err := scanner.Scan(&lot.ID, &lot.StockID, &lot.TransactionID, &lot.LotNumber, &lot.PurchaseDate,
		&lot.Quantity, &lot.RemainingQuantity, &lot.PurchasePriceUSD, &lot.PurchasePricePLN,
		&lot.CommissionUSD, &lot.CommissionPLN, &lot.USDPLNRate, &lot.Status, &lot.Symbol, &lot.StockName)
	return lot, err
}

func (s *SQLStore) GetLotByID(ctx context.Context, id int64) (*models.Lot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+lotColumns+` FROM stock_lots sl JOIN stocks s ON sl.stock_id = s.id WHERE sl.id = ?`, id)
	lot, err := scanLot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan lot: %w", err)
	}
	return &lot, nil
}

func (s *SQLStore) ListLots(ctx context.Context, stockID int64, includeClosed bool) ([]models.Lot, error) {
	query := `SELECT ` + lotColumns + ` FROM stock_lots sl JOIN stocks s ON sl.stock_id = s.id`
	var conditions []string
	var args []any
	if stockID != 0 {
		conditions = append(conditions, `sl.stock_id = ?`)
		args = append(args, stockID)
	}
	if !includeClosed {
		conditions = append(conditions, `sl.remaining_quantity > 0`)
	}
	for i, cond := range conditions {
		if i == 0 {
			query += ` WHERE ` + cond
		} else {
			query += ` AND ` + cond
		}
	}
	query += ` ORDER BY s.symbol, sl.purchase_date, sl.lot_number`
	return s.queryLots(ctx, query, args...)
}

func (s *SQLStore) OpenLotsFIFO(ctx context.Context, stockID int64) ([]models.Lot, error) {
	// The ORDER BY is the FIFO contract: earlier purchase date first,
	// lower lot number on date ties.
	return s.queryLots(ctx, `
		SELECT `+lotColumns+`
		FROM stock_lots sl JOIN stocks s ON sl.stock_id = s.id
		WHERE sl.stock_id = ? AND sl.remaining_quantity > 0
		ORDER BY sl.purchase_date, sl.lot_number`, stockID)
}

func (s *SQLStore) queryLots(ctx context.Context, query string, args ...any) ([]models.Lot, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query lots: %w", err)
	}
	defer rows.Close()

	var lots []models.Lot
	for rows.Next() {
		lot, err := scanLot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lot: %w", err)
		}
		lots = append(lots, lot)
	}
	return lots, rows.Err()
}

func (s *SQLStore) ApplySale(ctx context.Context, allocations []models.SaleAllocation, updates []LotQuantityUpdate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin sale transaction: %w", err)
	}
	defer tx.Rollback()

	for i := range allocations {
		a := &allocations[i]
		res, err := tx.ExecContext(ctx, `
			INSERT INTO stock_lot_sales
			(lot_id, sale_transaction_id, quantity_sold, sale_date, sale_price_usd,
			 sale_price_pln, gain_loss_usd, gain_loss_pln, tax_due_pln, usd_pln_rate)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			a.LotID, a.SaleTransactionID, a.QuantitySold, a.SaleDate, a.SalePriceUSD,
			a.SalePricePLN, a.GainLossUSD, a.GainLossPLN, a.TaxDuePLN, a.USDPLNRate)
		if err != nil {
			return fmt.Errorf("insert sale allocation: %w", err)
		}
		if a.ID, err = res.LastInsertId(); err != nil {
			return err
		}
	}

	for _, u := range updates {
		if _, err := tx.ExecContext(ctx,
			`UPDATE stock_lots SET remaining_quantity = ?, status = ? WHERE id = ?`,
			u.NewRemaining, u.NewStatus, u.LotID); err != nil {
			return fmt.Errorf("update lot %d: %w", u.LotID, err)
		}
	}

	return tx.Commit()
}

func (s *SQLStore) AllocationsByLot(ctx context.Context, lotID int64) ([]models.SaleAllocation, error) {
	return s.queryAllocations(ctx, `
		SELECT `+allocationColumns+`
		FROM stock_lot_sales sls
		JOIN stock_lots sl ON sls.lot_id = sl.id
		JOIN stocks s ON sl.stock_id = s.id
		WHERE sls.lot_id = ?
		ORDER BY sls.sale_date`, lotID)
}

func (s *SQLStore) LotsSummary(ctx context.Context, stockID int64) (*models.LotsSummary, error) {
	query := `
		SELECT COUNT(*),
		       COUNT(CASE WHEN remaining_quantity > 0 THEN 1 END),
		       COUNT(CASE WHEN remaining_quantity = 0 THEN 1 END),
		       COALESCE(SUM(quantity), 0),
		       COALESCE(SUM(remaining_quantity), 0),
		       COALESCE(SUM(purchase_price_usd * remaining_quantity), 0),
		       COALESCE(SUM(purchase_price_pln * remaining_quantity), 0),
		       COALESCE(AVG(usd_pln_rate), 0)
		FROM stock_lots`
	args := []any{}
	if stockID != 0 {
		query += ` WHERE stock_id = ?`
		args = append(args, stockID)
	}

	var sum models.LotsSummary
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&sum.TotalLots, &sum.OpenLots, &sum.ClosedLots, &sum.TotalSharesPurchased,
		&sum.TotalSharesRemaining, &sum.TotalValueUSD, &sum.TotalValuePLN, &sum.AvgUSDRate)
	if err != nil {
		return nil, fmt.Errorf("lots summary: %w", err)
	}
	return &sum, nil
}

// --- Realized gains ---

const allocationColumns = `
	sls.id, sls.lot_id, sls.sale_transaction_id, sls.quantity_sold, sls.sale_date,
	sls.sale_price_usd, sls.sale_price_pln, sls.gain_loss_usd, sls.gain_loss_pln,
	sls.tax_due_pln, sls.usd_pln_rate, s.symbol, sl.lot_number, sl.purchase_date,
	sl.purchase_price_usd, sl.purchase_price_pln`

func (s *SQLStore) queryAllocations(ctx context.Context, query string, args ...any) ([]models.SaleAllocation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query allocations: %w", err)
	}
	defer rows.Close()

	var allocations []models.SaleAllocation
	for rows.Next() {
		var a models.SaleAllocation
		if err := rows.Scan(&a.ID, &a.LotID, &a.SaleTransactionID, &a.QuantitySold, &a.SaleDate,
			&a.SalePriceUSD, &a.SalePricePLN, &a.GainLossUSD, &a.GainLossPLN,
			&a.TaxDuePLN, &a.USDPLNRate, &a.Symbol, &a.LotNumber, &a.PurchaseDate,
			&a.PurchasePriceUSD, &a.PurchasePricePLN); err != nil {
			return nil, fmt.Errorf("scan allocation: %w", err)
		}
		allocations = append(allocations, a)
	}
	return allocations, rows.Err()
}

func (s *SQLStore) RealizedGains(ctx context.Context, year int) ([]models.SaleAllocation, error) {
	query := `
		SELECT ` + allocationColumns + `
		FROM stock_lot_sales sls
		JOIN stock_lots sl ON sls.lot_id = sl.id
		JOIN stocks s ON sl.stock_id = s.id`
	args := []any{}
	if year != 0 {
		query += ` WHERE strftime('%Y', sls.sale_date) = ?`
		args = append(args, strconv.Itoa(year))
	}
	query += ` ORDER BY sls.sale_date DESC, s.symbol`
	return s.queryAllocations(ctx, query, args...)
}

func (s *SQLStore) TaxSummary(ctx context.Context, year int) (*models.TaxSummary, error) {
	sum := models.TaxSummary{Year: year}
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(quantity_sold), 0),
		       COALESCE(SUM(gain_loss_pln), 0),
		       COALESCE(SUM(CASE WHEN gain_loss_pln > 0 THEN gain_loss_pln ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN gain_loss_pln < 0 THEN gain_loss_pln ELSE 0 END), 0),
		       COALESCE(SUM(tax_due_pln), 0),
		       COALESCE(AVG(usd_pln_rate), 0)
		FROM stock_lot_sales
		WHERE strftime('%Y', sale_date) = ?`, strconv.Itoa(year)).Scan(
		&sum.TotalSales, &sum.TotalSharesSold, &sum.TotalGainLossPLN,
		&sum.TotalGainsPLN, &sum.TotalLossesPLN, &sum.TotalTaxDuePLN, &sum.AvgUSDRate)
	if err != nil {
		return nil, fmt.Errorf("tax summary: %w", err)
	}
	return &sum, nil
}

// --- Reservations ---

func (s *SQLStore) InsertReservations(ctx context.Context, reservations []models.Reservation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reservation transaction: %w", err)
	}
	defer tx.Rollback()

	for i := range reservations {
		r := &reservations[i]
		res, err := tx.ExecContext(ctx,
			`INSERT INTO option_reservations (option_id, lot_id, reserved_quantity) VALUES (?, ?, ?)`,
			r.OptionID, r.LotID, r.ReservedQuantity)
		if err != nil {
			return fmt.Errorf("insert reservation: %w", err)
		}
		if r.ID, err = res.LastInsertId(); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLStore) DeleteReservationsByOption(ctx context.Context, optionID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM option_reservations WHERE option_id = ?`, optionID)
	return err
}

func (s *SQLStore) ReservedByLot(ctx context.Context, stockID int64) (map[int64]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT opt_res.lot_id, SUM(opt_res.reserved_quantity)
		FROM option_reservations opt_res
		JOIN stock_lots sl ON opt_res.lot_id = sl.id
		WHERE sl.stock_id = ?
		GROUP BY opt_res.lot_id`, stockID)
	if err != nil {
		return nil, fmt.Errorf("reserved by lot: %w", err)
	}
	defer rows.Close()

	reserved := make(map[int64]int)
	for rows.Next() {
		var lotID int64
		var qty int
		if err := rows.Scan(&lotID, &qty); err != nil {
			return nil, fmt.Errorf("scan reservation sum: %w", err)
		}
		reserved[lotID] = qty
	}
	return reserved, rows.Err()
}

func (s *SQLStore) ListReservations(ctx context.Context, optionID int64) ([]models.Reservation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT opt_res.id, opt_res.option_id, opt_res.lot_id, opt_res.reserved_quantity, sl.lot_number
		FROM option_reservations opt_res
		JOIN stock_lots sl ON opt_res.lot_id = sl.id
		WHERE opt_res.option_id = ?
		ORDER BY sl.purchase_date, sl.lot_number`, optionID)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	defer rows.Close()

	var reservations []models.Reservation
	for rows.Next() {
		var r models.Reservation
		if err := rows.Scan(&r.ID, &r.OptionID, &r.LotID, &r.ReservedQuantity, &r.LotNumber); err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		reservations = append(reservations, r)
	}
	return reservations, rows.Err()
}

// --- Exchange-rate cache ---

func (s *SQLStore) GetRate(ctx context.Context, pair, date string) (*models.ExchangeRate, error) {
	return s.scanRate(s.db.QueryRowContext(ctx,
		`SELECT id, currency_pair, rate, date, source FROM exchange_rates WHERE currency_pair = ? AND date = ?`,
		pair, date))
}

func (s *SQLStore) LastRateAtOrBefore(ctx context.Context, pair, date string) (*models.ExchangeRate, error) {
	return s.scanRate(s.db.QueryRowContext(ctx, `
		SELECT id, currency_pair, rate, date, source FROM exchange_rates
		WHERE currency_pair = ? AND date <= ?
		ORDER BY date DESC LIMIT 1`, pair, date))
}

func (s *SQLStore) scanRate(row *sql.Row) (*models.ExchangeRate, error) {
	var r models.ExchangeRate
	err := row.Scan(&r.ID, &r.CurrencyPair, &r.Rate, &r.Date, &r.Source)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan exchange rate: %w", err)
	}
	return &r, nil
}

func (s *SQLStore) UpsertRate(ctx context.Context, rate *models.ExchangeRate) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO exchange_rates (currency_pair, rate, date, source) VALUES (?, ?, ?, ?)`,
		rate.CurrencyPair, rate.Rate, rate.Date, rate.Source)
	return err
}

// --- Options ---

func (s *SQLStore) InsertOption(ctx context.Context, opt *models.Option) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO options
		(stock_id, option_type, strike_price, expiry_date, premium_received, quantity,
		 status, open_date, commission_usd, usd_pln_rate, premium_pln, commission_pln, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		opt.StockID, opt.OptionType, opt.StrikePrice, opt.ExpiryDate, opt.PremiumReceived,
		opt.Quantity, opt.Status, opt.OpenDate, opt.CommissionUSD, opt.USDPLNRate,
		opt.PremiumPLN, opt.CommissionPLN, opt.Notes)
	if err != nil {
		return 0, fmt.Errorf("insert option: %w", err)
	}
	return res.LastInsertId()
}

const optionColumns = `
	o.id, o.stock_id, o.option_type, o.strike_price, o.expiry_date, o.premium_received,
	o.quantity, o.status, o.open_date, COALESCE(o.close_date, ''), o.commission_usd,
	o.usd_pln_rate, o.premium_pln, o.commission_pln, COALESCE(o.notes, ''), s.symbol, s.name`

func scanOption(scanner interface{ Scan(...any) error }) (models.Option, error) {
	var o models.Option
	err := scanner.Scan(&o.ID, &o.StockID, &o.OptionType, &o.StrikePrice, &o.ExpiryDate,
		&o.PremiumReceived, &o.Quantity, &o.Status, &o.OpenDate, &o.CloseDate,
		&o.CommissionUSD, &o.USDPLNRate, &o.PremiumPLN, &o.CommissionPLN, &o.Notes,
		&o.Symbol, &o.StockName)
	return o, err
}

func (s *SQLStore) GetOptionByID(ctx context.Context, id int64) (*models.Option, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+optionColumns+` FROM options o JOIN stocks s ON o.stock_id = s.id WHERE o.id = ?`, id)
	opt, err := scanOption(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan option: %w", err)
	}
	return &opt, nil
}

func (s *SQLStore) ListOptions(ctx context.Context, includeClosed bool) ([]models.Option, error) {
	query := `SELECT ` + optionColumns + ` FROM options o JOIN stocks s ON o.stock_id = s.id`
	if !includeClosed {
		query += ` WHERE o.status = 'OPEN'`
	}
	query += ` ORDER BY o.expiry_date ASC, s.symbol`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list options: %w", err)
	}
	defer rows.Close()

	var options []models.Option
	for rows.Next() {
		opt, err := scanOption(rows)
		if err != nil {
			return nil, fmt.Errorf("scan option: %w", err)
		}
		options = append(options, opt)
	}
	return options, rows.Err()
}

func (s *SQLStore) UpdateOptionStatus(ctx context.Context, id int64, status, closeDate string) error {
	var err error
	if closeDate == "" {
		_, err = s.db.ExecContext(ctx, `UPDATE options SET status = ? WHERE id = ?`, status, id)
	} else {
		_, err = s.db.ExecContext(ctx, `UPDATE options SET status = ?, close_date = ? WHERE id = ?`, status, closeDate, id)
	}
	return err
}

func (s *SQLStore) DeleteOption(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM options WHERE id = ?`, id)
	return err
}

// --- Dividends ---

func (s *SQLStore) InsertDividend(ctx context.Context, div *models.Dividend) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO dividends
		(stock_id, dividend_per_share, quantity, total_amount_usd, tax_withheld_usd, ex_date, pay_date)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		div.StockID, div.DividendPerShare, div.Quantity, div.TotalAmountUSD,
		div.TaxWithheldUSD, div.ExDate, div.PayDate)
	if err != nil {
		return 0, fmt.Errorf("insert dividend: %w", err)
	}
	return res.LastInsertId()
}

func (s *SQLStore) ListDividends(ctx context.Context, stockID int64, year int) ([]models.Dividend, error) {
	query := `
		SELECT d.id, d.stock_id, d.dividend_per_share, d.quantity, d.total_amount_usd,
		       d.tax_withheld_usd, d.ex_date, d.pay_date, s.symbol, s.name
		FROM dividends d
		JOIN stocks s ON d.stock_id = s.id`
	var conditions []string
	var args []any
	if stockID != 0 {
		conditions = append(conditions, `d.stock_id = ?`)
		args = append(args, stockID)
	}
	if year != 0 {
		conditions = append(conditions, `strftime('%Y', d.pay_date) = ?`)
		args = append(args, strconv.Itoa(year))
	}
	for i, cond := range conditions {
		if i == 0 {
			query += ` WHERE ` + cond
		} else {
			query += ` AND ` + cond
		}
	}
	query += ` ORDER BY d.ex_date DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list dividends: %w", err)
	}
	defer rows.Close()

	var dividends []models.Dividend
	for rows.Next() {
		var d models.Dividend
		if err := rows.Scan(&d.ID, &d.StockID, &d.DividendPerShare, &d.Quantity, &d.TotalAmountUSD,
			&d.TaxWithheldUSD, &d.ExDate, &d.PayDate, &d.Symbol, &d.StockName); err != nil {
			return nil, fmt.Errorf("scan dividend: %w", err)
		}
		dividends = append(dividends, d)
	}
	return dividends, rows.Err()
}

func (s *SQLStore) DividendSummary(ctx context.Context, year int) (*models.DividendSummary, error) {
	query := `
		SELECT COUNT(*),
		       COALESCE(SUM(total_amount_usd), 0),
		       COALESCE(SUM(tax_withheld_usd), 0),
		       COALESCE(AVG(dividend_per_share), 0),
		       COUNT(DISTINCT stock_id)
		FROM dividends`
	args := []any{}
	if year != 0 {
		query += ` WHERE strftime('%Y', pay_date) = ?`
		args = append(args, strconv.Itoa(year))
	}

	var sum models.DividendSummary
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&sum.TotalPayments, &sum.TotalDividendsUSD, &sum.TotalTaxWithheldUSD,
		&sum.AvgDividendPerShare, &sum.DividendPayingStocks)
	if err != nil {
		return nil, fmt.Errorf("dividend summary: %w", err)
	}
	return &sum, nil
}

// --- Cashflows ---

func (s *SQLStore) InsertCashflow(ctx context.Context, cf *models.Cashflow) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO cashflows
		(transaction_type, amount_usd, description, date, related_stock_id, related_option_id)
		VALUES (?, ?, ?, ?, ?, ?)`,
		cf.TransactionType, cf.AmountUSD, cf.Description, cf.Date, cf.RelatedStockID, cf.RelatedOptionID)
	if err != nil {
		return 0, fmt.Errorf("insert cashflow: %w", err)
	}
	return res.LastInsertId()
}

func (s *SQLStore) ListCashflows(ctx context.Context, cfType string) ([]models.Cashflow, error) {
	query := `
		SELECT c.id, c.transaction_type, c.amount_usd, COALESCE(c.description, ''), c.date,
		       c.related_stock_id, c.related_option_id, COALESCE(s.symbol, '')
		FROM cashflows c
		LEFT JOIN stocks s ON c.related_stock_id = s.id`
	args := []any{}
	if cfType != "" {
		query += ` WHERE c.transaction_type = ?`
		args = append(args, cfType)
	}
	query += ` ORDER BY c.date DESC, c.id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list cashflows: %w", err)
	}
	defer rows.Close()

	var cashflows []models.Cashflow
	for rows.Next() {
		var cf models.Cashflow
		if err := rows.Scan(&cf.ID, &cf.TransactionType, &cf.AmountUSD, &cf.Description, &cf.Date,
			&cf.RelatedStockID, &cf.RelatedOptionID, &cf.StockSymbol); err != nil {
			return nil, fmt.Errorf("scan cashflow: %w", err)
		}
		cashflows = append(cashflows, cf)
	}
	return cashflows, rows.Err()
}

func (s *SQLStore) CashflowSummary(ctx context.Context, year int) (*models.CashflowSummary, error) {
	query := `
		SELECT COALESCE(SUM(CASE WHEN transaction_type = 'DEPOSIT' THEN amount_usd ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN transaction_type = 'WITHDRAWAL' THEN amount_usd ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN transaction_type = 'DIVIDEND' THEN amount_usd ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN transaction_type = 'OPTION_PREMIUM' THEN amount_usd ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN transaction_type = 'COMMISSION' THEN amount_usd ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN transaction_type = 'TAX' THEN amount_usd ELSE 0 END), 0)
		FROM cashflows`
	args := []any{}
	if year != 0 {
		query += ` WHERE strftime('%Y', date) = ?`
		args = append(args, strconv.Itoa(year))
	}

	var sum models.CashflowSummary
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&sum.TotalDeposits, &sum.TotalWithdrawals, &sum.TotalDividends,
		&sum.TotalOptionPremiums, &sum.TotalCommissions, &sum.TotalTaxes)
	if err != nil {
		return nil, fmt.Errorf("cashflow summary: %w", err)
	}
	sum.NetFlowUSD = sum.TotalDeposits - sum.TotalWithdrawals + sum.TotalDividends +
		sum.TotalOptionPremiums - sum.TotalCommissions - sum.TotalTaxes
	return &sum, nil
}
