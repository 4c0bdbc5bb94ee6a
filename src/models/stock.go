package models

// DateLayout is the wire and storage format for calendar dates.
const DateLayout = "2006-01-02"

// Stock is one tradable symbol in the portfolio. Quantity and AvgPriceUSD
// are a running position recomputed after every transaction; they are
// display-only. The lot ledger is authoritative for anything tax related.
type Stock struct {
	ID              int64   `json:"id"`
	Symbol          string  `json:"symbol"`
	Name            string  `json:"name"`
	Quantity        int     `json:"quantity"`
	AvgPriceUSD     float64 `json:"avg_price_usd"`
	CurrentPriceUSD float64 `json:"current_price_usd"`
	LastUpdated     string  `json:"last_updated,omitempty"`
	CreatedAt       string  `json:"created_at,omitempty"`
}

// Transaction types for stock transactions.
const (
	TransactionBuy  = "BUY"
	TransactionSell = "SELL"
)

// StockTransaction is one buy or sell event. PLN amounts are derived from
// the USD amounts using the NBP rate resolved for the transaction date.
type StockTransaction struct {
	ID              int64   `json:"id"`
	StockID         int64   `json:"stock_id"`
	Symbol          string  `json:"symbol,omitempty"`
	TransactionType string  `json:"transaction_type"` // BUY or SELL
	Quantity        int     `json:"quantity"`
	PriceUSD        float64 `json:"price_usd"`
	CommissionUSD   float64 `json:"commission_usd"`
	TransactionDate string  `json:"transaction_date"`
	USDPLNRate      float64 `json:"usd_pln_rate"`
	PricePLN        float64 `json:"price_pln"`
	CommissionPLN   float64 `json:"commission_pln"`
	// RateFallback marks rows whose rate came from the configured default
	// instead of NBP. These need manual review before filing taxes.
	RateFallback bool   `json:"rate_fallback"`
	Notes        string `json:"notes,omitempty"`
	CreatedAt    string `json:"created_at,omitempty"`
}
