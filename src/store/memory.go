package store

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/username/lotfolio/backend/src/models"
)

// MemoryStore implements Store with in-memory slices and maps. Used for
// testing. Not suitable for production (no persistence).
type MemoryStore struct {
	mu sync.RWMutex

	nextID       int64
	stocks       map[int64]*models.Stock
	transactions map[int64]*models.StockTransaction
	lots         map[int64]*models.Lot
	allocations  []models.SaleAllocation
	reservations []models.Reservation
	rates        map[string]*models.ExchangeRate // key: pair|date
	options      map[int64]*models.Option
	dividends    []models.Dividend
	cashflows    []models.Cashflow
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		stocks:       make(map[int64]*models.Stock),
		transactions: make(map[int64]*models.StockTransaction),
		lots:         make(map[int64]*models.Lot),
		rates:        make(map[string]*models.ExchangeRate),
		options:      make(map[int64]*models.Option),
	}
}

func (s *MemoryStore) nextIDLocked() int64 {
	s.nextID++
	return s.nextID
}

func yearOf(date string) int {
	if len(date) < 4 {
		return 0
	}
	y, _ := strconv.Atoi(date[:4])
	return y
}

// --- Stocks ---

func (s *MemoryStore) CreateStock(_ context.Context, symbol, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, st := range s.stocks {
		if st.Symbol == symbol {
			return 0, fmt.Errorf("stock %s already exists", symbol)
		}
	}
	id := s.nextIDLocked()
	s.stocks[id] = &models.Stock{ID: id, Symbol: symbol, Name: name}
	return id, nil
}

func (s *MemoryStore) GetStockByID(_ context.Context, id int64) (*models.Stock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.stocks[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *st
	return &cp, nil
}

func (s *MemoryStore) GetStockBySymbol(_ context.Context, symbol string) (*models.Stock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, st := range s.stocks {
		if st.Symbol == symbol {
			cp := *st
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListStocks(_ context.Context) ([]models.Stock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stocks := make([]models.Stock, 0, len(s.stocks))
	for _, st := range s.stocks {
		stocks = append(stocks, *st)
	}
	sort.Slice(stocks, func(i, j int) bool { return stocks[i].Symbol < stocks[j].Symbol })
	return stocks, nil
}

func (s *MemoryStore) UpdateStockPosition(_ context.Context, stockID int64, quantity int, avgPriceUSD float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.stocks[stockID]
	if !ok {
		return ErrNotFound
	}
	st.Quantity = quantity
	st.AvgPriceUSD = avgPriceUSD
	return nil
}

func (s *MemoryStore) UpdateStockPrice(_ context.Context, stockID int64, priceUSD float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.stocks[stockID]
	if !ok {
		return ErrNotFound
	}
	st.CurrentPriceUSD = priceUSD
	return nil
}

// --- Stock transactions ---

func (s *MemoryStore) InsertTransaction(_ context.Context, tx *models.StockTransaction) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *tx
	cp.ID = s.nextIDLocked()
	s.transactions[cp.ID] = &cp
	return cp.ID, nil
}

func (s *MemoryStore) DeleteTransaction(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.transactions, id)
	return nil
}

func (s *MemoryStore) UpdateTransactionNotes(_ context.Context, id int64, notes string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[id]
	if !ok {
		return ErrNotFound
	}
	tx.Notes = notes
	return nil
}

func (s *MemoryStore) ListTransactions(_ context.Context, stockID int64) ([]models.StockTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var txs []models.StockTransaction
	for _, tx := range s.transactions {
		if stockID != 0 && tx.StockID != stockID {
			continue
		}
		cp := *tx
		if st, ok := s.stocks[tx.StockID]; ok {
			cp.Symbol = st.Symbol
		}
		txs = append(txs, cp)
	}
	sort.Slice(txs, func(i, j int) bool {
		if txs[i].TransactionDate != txs[j].TransactionDate {
			return txs[i].TransactionDate > txs[j].TransactionDate
		}
		return txs[i].ID > txs[j].ID
	})
	return txs, nil
}

// --- Lots ---

func (s *MemoryStore) InsertLot(_ context.Context, lot *models.Lot) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.lots {
		if existing.StockID == lot.StockID && existing.LotNumber == lot.LotNumber {
			return 0, fmt.Errorf("lot number %d already exists for stock %d", lot.LotNumber, lot.StockID)
		}
	}
	cp := *lot
	cp.ID = s.nextIDLocked()
	s.lots[cp.ID] = &cp
	return cp.ID, nil
}

func (s *MemoryStore) NextLotNumber(_ context.Context, stockID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	max := 0
	for _, lot := range s.lots {
		if lot.StockID == stockID && lot.LotNumber > max {
			max = lot.LotNumber
		}
	}
	return max + 1, nil
}

func (s *MemoryStore) GetLotByID(_ context.Context, id int64) (*models.Lot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lot, ok := s.lots[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := s.withStockJoin(*lot)
	return &cp, nil
}

func (s *MemoryStore) withStockJoin(lot models.Lot) models.Lot {
	if st, ok := s.stocks[lot.StockID]; ok {
		lot.Symbol = st.Symbol
		lot.StockName = st.Name
	}
	return lot
}

func sortLotsFIFO(lots []models.Lot) {
	sort.Slice(lots, func(i, j int) bool {
		if lots[i].PurchaseDate != lots[j].PurchaseDate {
			return lots[i].PurchaseDate < lots[j].PurchaseDate
		}
		return lots[i].LotNumber < lots[j].LotNumber
	})
}

func (s *MemoryStore) ListLots(_ context.Context, stockID int64, includeClosed bool) ([]models.Lot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var lots []models.Lot
	for _, lot := range s.lots {
		if stockID != 0 && lot.StockID != stockID {
			continue
		}
		if !includeClosed && lot.RemainingQuantity == 0 {
			continue
		}
		lots = append(lots, s.withStockJoin(*lot))
	}
	sort.Slice(lots, func(i, j int) bool {
		if lots[i].Symbol != lots[j].Symbol {
			return lots[i].Symbol < lots[j].Symbol
		}
		if lots[i].PurchaseDate != lots[j].PurchaseDate {
			return lots[i].PurchaseDate < lots[j].PurchaseDate
		}
		return lots[i].LotNumber < lots[j].LotNumber
	})
	return lots, nil
}

func (s *MemoryStore) OpenLotsFIFO(_ context.Context, stockID int64) ([]models.Lot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var lots []models.Lot
	for _, lot := range s.lots {
		if lot.StockID == stockID && lot.RemainingQuantity > 0 {
			lots = append(lots, s.withStockJoin(*lot))
		}
	}
	sortLotsFIFO(lots)
	return lots, nil
}

func (s *MemoryStore) ApplySale(_ context.Context, allocations []models.SaleAllocation, updates []LotQuantityUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate everything first so a failure leaves no partial state.
	for _, u := range updates {
		lot, ok := s.lots[u.LotID]
		if !ok {
			return fmt.Errorf("lot %d: %w", u.LotID, ErrNotFound)
		}
		if u.NewRemaining < 0 || u.NewRemaining > lot.Quantity {
			return fmt.Errorf("lot %d: remaining %d out of range", u.LotID, u.NewRemaining)
		}
	}

	for i := range allocations {
		allocations[i].ID = s.nextIDLocked()
		s.allocations = append(s.allocations, allocations[i])
	}
	for _, u := range updates {
		lot := s.lots[u.LotID]
		lot.RemainingQuantity = u.NewRemaining
		lot.Status = u.NewStatus
	}
	return nil
}

func (s *MemoryStore) AllocationsByLot(_ context.Context, lotID int64) ([]models.SaleAllocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.SaleAllocation
	for _, a := range s.allocations {
		if a.LotID == lotID {
			result = append(result, s.withLotJoin(a))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].SaleDate < result[j].SaleDate })
	return result, nil
}

func (s *MemoryStore) withLotJoin(a models.SaleAllocation) models.SaleAllocation {
	if lot, ok := s.lots[a.LotID]; ok {
		a.LotNumber = lot.LotNumber
		a.PurchaseDate = lot.PurchaseDate
		a.PurchasePriceUSD = lot.PurchasePriceUSD
		a.PurchasePricePLN = lot.PurchasePricePLN
		if st, ok := s.stocks[lot.StockID]; ok {
			a.Symbol = st.Symbol
		}
	}
	return a
}

func (s *MemoryStore) LotsSummary(_ context.Context, stockID int64) (*models.LotsSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sum models.LotsSummary
	var rateTotal float64
	for _, lot := range s.lots {
		if stockID != 0 && lot.StockID != stockID {
			continue
		}
		sum.TotalLots++
		if lot.RemainingQuantity > 0 {
			sum.OpenLots++
		} else {
			sum.ClosedLots++
		}
		sum.TotalSharesPurchased += lot.Quantity
		sum.TotalSharesRemaining += lot.RemainingQuantity
		sum.TotalValueUSD += lot.PurchasePriceUSD * float64(lot.RemainingQuantity)
		sum.TotalValuePLN += lot.PurchasePricePLN * float64(lot.RemainingQuantity)
		rateTotal += lot.USDPLNRate
	}
	if sum.TotalLots > 0 {
		sum.AvgUSDRate = rateTotal / float64(sum.TotalLots)
	}
	return &sum, nil
}

// --- Realized gains ---

func (s *MemoryStore) RealizedGains(_ context.Context, year int) ([]models.SaleAllocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.SaleAllocation
	for _, a := range s.allocations {
		if year != 0 && yearOf(a.SaleDate) != year {
			continue
		}
		result = append(result, s.withLotJoin(a))
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].SaleDate != result[j].SaleDate {
			return result[i].SaleDate > result[j].SaleDate
		}
		return result[i].Symbol < result[j].Symbol
	})
	return result, nil
}

func (s *MemoryStore) TaxSummary(_ context.Context, year int) (*models.TaxSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum := models.TaxSummary{Year: year}
	var rateTotal float64
	for _, a := range s.allocations {
		if yearOf(a.SaleDate) != year {
			continue
		}
		sum.TotalSales++
		sum.TotalSharesSold += a.QuantitySold
		sum.TotalGainLossPLN += a.GainLossPLN
		if a.GainLossPLN > 0 {
			sum.TotalGainsPLN += a.GainLossPLN
		} else {
			sum.TotalLossesPLN += a.GainLossPLN
		}
		sum.TotalTaxDuePLN += a.TaxDuePLN
		rateTotal += a.USDPLNRate
	}
	if sum.TotalSales > 0 {
		sum.AvgUSDRate = rateTotal / float64(sum.TotalSales)
	}
	return &sum, nil
}

// --- Reservations ---

func (s *MemoryStore) InsertReservations(_ context.Context, reservations []models.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range reservations {
		if _, ok := s.lots[r.LotID]; !ok {
			return fmt.Errorf("lot %d: %w", r.LotID, ErrNotFound)
		}
	}
	for i := range reservations {
		reservations[i].ID = s.nextIDLocked()
		s.reservations = append(s.reservations, reservations[i])
	}
	return nil
}

func (s *MemoryStore) DeleteReservationsByOption(_ context.Context, optionID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.reservations[:0]
	for _, r := range s.reservations {
		if r.OptionID != optionID {
			kept = append(kept, r)
		}
	}
	s.reservations = kept
	return nil
}

func (s *MemoryStore) ReservedByLot(_ context.Context, stockID int64) (map[int64]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reserved := make(map[int64]int)
	for _, r := range s.reservations {
		lot, ok := s.lots[r.LotID]
		if !ok || lot.StockID != stockID {
			continue
		}
		reserved[r.LotID] += r.ReservedQuantity
	}
	return reserved, nil
}

func (s *MemoryStore) ListReservations(_ context.Context, optionID int64) ([]models.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.Reservation
	for _, r := range s.reservations {
		if r.OptionID != optionID {
			continue
		}
		if lot, ok := s.lots[r.LotID]; ok {
			r.LotNumber = lot.LotNumber
		}
		result = append(result, r)
	}
	return result, nil
}

// --- Exchange-rate cache ---

func rateKey(pair, date string) string { return pair + "|" + date }

func (s *MemoryStore) GetRate(_ context.Context, pair, date string) (*models.ExchangeRate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rates[rateKey(pair, date)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *MemoryStore) LastRateAtOrBefore(_ context.Context, pair, date string) (*models.ExchangeRate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *models.ExchangeRate
	for key, r := range s.rates {
		if !strings.HasPrefix(key, pair+"|") || r.Date > date {
			continue
		}
		if best == nil || r.Date > best.Date {
			best = r
		}
	}
	if best == nil {
		return nil, ErrNotFound
	}
	cp := *best
	return &cp, nil
}

func (s *MemoryStore) UpsertRate(_ context.Context, rate *models.ExchangeRate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *rate
	if cp.ID == 0 {
		cp.ID = s.nextIDLocked()
	}
	s.rates[rateKey(cp.CurrencyPair, cp.Date)] = &cp
	return nil
}

// --- Options ---

func (s *MemoryStore) InsertOption(_ context.Context, opt *models.Option) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *opt
	cp.ID = s.nextIDLocked()
	s.options[cp.ID] = &cp
	return cp.ID, nil
}

func (s *MemoryStore) GetOptionByID(_ context.Context, id int64) (*models.Option, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	opt, ok := s.options[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *opt
	if st, ok := s.stocks[cp.StockID]; ok {
		cp.Symbol = st.Symbol
		cp.StockName = st.Name
	}
	return &cp, nil
}

func (s *MemoryStore) ListOptions(_ context.Context, includeClosed bool) ([]models.Option, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var options []models.Option
	for _, opt := range s.options {
		if !includeClosed && opt.Status != models.OptionStatusOpen {
			continue
		}
		cp := *opt
		if st, ok := s.stocks[cp.StockID]; ok {
			cp.Symbol = st.Symbol
			cp.StockName = st.Name
		}
		options = append(options, cp)
	}
	sort.Slice(options, func(i, j int) bool {
		if options[i].ExpiryDate != options[j].ExpiryDate {
			return options[i].ExpiryDate < options[j].ExpiryDate
		}
		return options[i].Symbol < options[j].Symbol
	})
	return options, nil
}

func (s *MemoryStore) UpdateOptionStatus(_ context.Context, id int64, status, closeDate string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	opt, ok := s.options[id]
	if !ok {
		return ErrNotFound
	}
	opt.Status = status
	if closeDate != "" {
		opt.CloseDate = closeDate
	}
	return nil
}

func (s *MemoryStore) DeleteOption(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.options, id)
	return nil
}

// --- Dividends ---

func (s *MemoryStore) InsertDividend(_ context.Context, div *models.Dividend) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *div
	cp.ID = s.nextIDLocked()
	s.dividends = append(s.dividends, cp)
	return cp.ID, nil
}

func (s *MemoryStore) ListDividends(_ context.Context, stockID int64, year int) ([]models.Dividend, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.Dividend
	for _, d := range s.dividends {
		if stockID != 0 && d.StockID != stockID {
			continue
		}
		if year != 0 && yearOf(d.PayDate) != year {
			continue
		}
		if st, ok := s.stocks[d.StockID]; ok {
			d.Symbol = st.Symbol
			d.StockName = st.Name
		}
		result = append(result, d)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ExDate > result[j].ExDate })
	return result, nil
}

func (s *MemoryStore) DividendSummary(_ context.Context, year int) (*models.DividendSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sum models.DividendSummary
	var perShareTotal float64
	payers := make(map[int64]bool)
	for _, d := range s.dividends {
		if year != 0 && yearOf(d.PayDate) != year {
			continue
		}
		sum.TotalPayments++
		sum.TotalDividendsUSD += d.TotalAmountUSD
		sum.TotalTaxWithheldUSD += d.TaxWithheldUSD
		perShareTotal += d.DividendPerShare
		payers[d.StockID] = true
	}
	if sum.TotalPayments > 0 {
		sum.AvgDividendPerShare = perShareTotal / float64(sum.TotalPayments)
	}
	sum.DividendPayingStocks = len(payers)
	return &sum, nil
}

// --- Cashflows ---

func (s *MemoryStore) InsertCashflow(_ context.Context, cf *models.Cashflow) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *cf
	cp.ID = s.nextIDLocked()
	s.cashflows = append(s.cashflows, cp)
	return cp.ID, nil
}

func (s *MemoryStore) ListCashflows(_ context.Context, cfType string) ([]models.Cashflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.Cashflow
	for _, cf := range s.cashflows {
		if cfType != "" && cf.TransactionType != cfType {
			continue
		}
		if cf.RelatedStockID != nil {
			if st, ok := s.stocks[*cf.RelatedStockID]; ok {
				cf.StockSymbol = st.Symbol
			}
		}
		result = append(result, cf)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Date != result[j].Date {
			return result[i].Date > result[j].Date
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

func (s *MemoryStore) CashflowSummary(_ context.Context, year int) (*models.CashflowSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sum models.CashflowSummary
	for _, cf := range s.cashflows {
		if year != 0 && yearOf(cf.Date) != year {
			continue
		}
		switch cf.TransactionType {
		case models.CashflowDeposit:
			sum.TotalDeposits += cf.AmountUSD
		case models.CashflowWithdrawal:
			sum.TotalWithdrawals += cf.AmountUSD
		case models.CashflowDividend:
			sum.TotalDividends += cf.AmountUSD
		case models.CashflowOptionPremium:
			sum.TotalOptionPremiums += cf.AmountUSD
		case models.CashflowCommission:
			sum.TotalCommissions += cf.AmountUSD
		case models.CashflowTax:
			sum.TotalTaxes += cf.AmountUSD
		}
	}
	sum.NetFlowUSD = sum.TotalDeposits - sum.TotalWithdrawals + sum.TotalDividends +
		sum.TotalOptionPremiums - sum.TotalCommissions - sum.TotalTaxes
	return &sum, nil
}
