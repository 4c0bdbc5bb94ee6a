package models

// Option types and statuses.
const (
	OptionCall = "CALL"
	OptionPut  = "PUT"

	OptionStatusOpen     = "OPEN"
	OptionStatusExpired  = "EXPIRED"
	OptionStatusAssigned = "ASSIGNED"
	OptionStatusClosed   = "CLOSED"
)

// SharesPerContract is the standard US equity option multiplier.
const SharesPerContract = 100

// Option is one written option contract position. Covered calls reserve
// shares from the lot ledger for as long as the contract stays OPEN.
type Option struct {
	ID              int64   `json:"id"`
	StockID         int64   `json:"stock_id"`
	OptionType      string  `json:"option_type"` // CALL or PUT
	StrikePrice     float64 `json:"strike_price"`
	ExpiryDate      string  `json:"expiry_date"`
	PremiumReceived float64 `json:"premium_received"` // per share, USD
	Quantity        int     `json:"quantity"`         // contracts
	Status          string  `json:"status"`
	OpenDate        string  `json:"open_date"`
	CloseDate       string  `json:"close_date,omitempty"`
	CommissionUSD   float64 `json:"commission_usd"`
	USDPLNRate      float64 `json:"usd_pln_rate"`
	PremiumPLN      float64 `json:"premium_pln"`
	CommissionPLN   float64 `json:"commission_pln"`
	Notes           string  `json:"notes,omitempty"`

	// Join fields, populated by listing queries.
	Symbol    string `json:"symbol,omitempty"`
	StockName string `json:"stock_name,omitempty"`
}

// Dividend is one dividend payment, gross of any US withholding.
type Dividend struct {
	ID               int64   `json:"id"`
	StockID          int64   `json:"stock_id"`
	DividendPerShare float64 `json:"dividend_per_share"`
	Quantity         int     `json:"quantity"`
	TotalAmountUSD   float64 `json:"total_amount_usd"`
	TaxWithheldUSD   float64 `json:"tax_withheld_usd"`
	ExDate           string  `json:"ex_date"`
	PayDate          string  `json:"pay_date"`

	Symbol    string `json:"symbol,omitempty"`
	StockName string `json:"stock_name,omitempty"`
}

// DividendSummary aggregates dividend payments, optionally per year.
type DividendSummary struct {
	TotalPayments        int     `json:"total_payments"`
	TotalDividendsUSD    float64 `json:"total_dividends_usd"`
	TotalTaxWithheldUSD  float64 `json:"total_tax_withheld_usd"`
	AvgDividendPerShare  float64 `json:"avg_dividend_per_share"`
	DividendPayingStocks int     `json:"dividend_paying_stocks"`
}

// Cashflow transaction types.
const (
	CashflowDeposit       = "DEPOSIT"
	CashflowWithdrawal    = "WITHDRAWAL"
	CashflowDividend      = "DIVIDEND"
	CashflowOptionPremium = "OPTION_PREMIUM"
	CashflowCommission    = "COMMISSION"
	CashflowTax           = "TAX"
)

// Cashflow is one cash movement in or out of the account.
type Cashflow struct {
	ID              int64   `json:"id"`
	TransactionType string  `json:"transaction_type"`
	AmountUSD       float64 `json:"amount_usd"`
	Description     string  `json:"description,omitempty"`
	Date            string  `json:"date"`
	RelatedStockID  *int64  `json:"related_stock_id,omitempty"`
	RelatedOptionID *int64  `json:"related_option_id,omitempty"`

	StockSymbol string `json:"stock_symbol,omitempty"`
}

// CashflowSummary aggregates cash movements by type, optionally per year.
type CashflowSummary struct {
	TotalDeposits       float64 `json:"total_deposits"`
	TotalWithdrawals    float64 `json:"total_withdrawals"`
	TotalDividends      float64 `json:"total_dividends"`
	TotalOptionPremiums float64 `json:"total_option_premiums"`
	TotalCommissions    float64 `json:"total_commissions"`
	TotalTaxes          float64 `json:"total_taxes"`
	NetFlowUSD          float64 `json:"net_flow_usd"`
}
