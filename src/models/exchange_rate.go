package models

// PairUSDPLN is the only pair the tax engine cares about today; the cache
// schema keys on the pair so other currencies slot in without migration.
const PairUSDPLN = "USD/PLN"

// ExchangeRate is one cached (currency pair, date) -> mid rate entry.
// At most one entry exists per (pair, date); inserts overwrite.
type ExchangeRate struct {
	ID           int64   `json:"id"`
	CurrencyPair string  `json:"currency_pair"`
	Rate         float64 `json:"rate"`
	Date         string  `json:"date"`
	Source       string  `json:"source"`
}

// TaxSummary is the per-year rollup over sale allocations. Tax is owed on
// gains only; losses reduce TotalGainLossPLN but never TotalTaxDuePLN.
type TaxSummary struct {
	Year             int     `json:"year"`
	TotalSales       int     `json:"total_sales"`
	TotalSharesSold  int     `json:"total_shares_sold"`
	TotalGainLossPLN float64 `json:"total_gain_loss_pln"`
	TotalGainsPLN    float64 `json:"total_gains_pln"`
	TotalLossesPLN   float64 `json:"total_losses_pln"`
	TotalTaxDuePLN   float64 `json:"total_tax_due_pln"`
	AvgUSDRate       float64 `json:"avg_usd_rate"`
}
