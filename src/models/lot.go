package models

// Lot statuses. Status is a pure function of remaining vs original
// quantity; LotStatusFor is the only place that derives it.
const (
	LotStatusOpen    = "OPEN"
	LotStatusPartial = "PARTIAL"
	LotStatusClosed  = "CLOSED"
)

// LotStatusFor derives the lot status from its quantities.
func LotStatusFor(remaining, original int) string {
	switch {
	case remaining == 0:
		return LotStatusClosed
	case remaining < original:
		return LotStatusPartial
	default:
		return LotStatusOpen
	}
}

// Lot is one purchase event tracked for FIFO matching. Immutable except
// for RemainingQuantity, which only decreases as sales consume it.
type Lot struct {
	ID                int64   `json:"id"`
	StockID           int64   `json:"stock_id"`
	TransactionID     int64   `json:"transaction_id"`
	LotNumber         int     `json:"lot_number"`
	PurchaseDate      string  `json:"purchase_date"`
	Quantity          int     `json:"quantity"`
	RemainingQuantity int     `json:"remaining_quantity"`
	PurchasePriceUSD  float64 `json:"purchase_price_usd"`
	PurchasePricePLN  float64 `json:"purchase_price_pln"`
	CommissionUSD     float64 `json:"commission_usd"`
	CommissionPLN     float64 `json:"commission_pln"`
	USDPLNRate        float64 `json:"usd_pln_rate"`
	Status            string  `json:"status"`

	// Join fields, populated by listing queries.
	Symbol    string `json:"symbol,omitempty"`
	StockName string `json:"stock_name,omitempty"`
}

// SaleAllocation records one lot being consumed (partially or fully) by
// one sell transaction. Created exactly once per (lot, sale) pairing and
// immutable afterwards.
type SaleAllocation struct {
	ID                int64   `json:"id"`
	LotID             int64   `json:"lot_id"`
	SaleTransactionID int64   `json:"sale_transaction_id"`
	QuantitySold      int     `json:"quantity_sold"`
	SaleDate          string  `json:"sale_date"`
	SalePriceUSD      float64 `json:"sale_price_usd"`
	SalePricePLN      float64 `json:"sale_price_pln"`
	GainLossUSD       float64 `json:"gain_loss_usd"`
	GainLossPLN       float64 `json:"gain_loss_pln"`
	TaxDuePLN         float64 `json:"tax_due_pln"`
	USDPLNRate        float64 `json:"usd_pln_rate"`

	// Join fields, populated by listing queries.
	Symbol           string  `json:"symbol,omitempty"`
	LotNumber        int     `json:"lot_number,omitempty"`
	PurchaseDate     string  `json:"purchase_date,omitempty"`
	PurchasePriceUSD float64 `json:"purchase_price_usd,omitempty"`
	PurchasePricePLN float64 `json:"purchase_price_pln,omitempty"`
}

// PlannedAllocation is one step of a FIFO sale preview. No state changes.
type PlannedAllocation struct {
	LotID              int64   `json:"lot_id"`
	LotNumber          int     `json:"lot_number"`
	PurchaseDate       string  `json:"purchase_date"`
	QuantityToSell     int     `json:"quantity_to_sell"`
	PurchasePriceUSD   float64 `json:"purchase_price_usd"`
	PurchasePricePLN   float64 `json:"purchase_price_pln"`
	RemainingAfterSale int     `json:"remaining_after_sale"`
}

// Reservation is a claim by an open option contract on a lot's shares.
// One lot can back multiple contracts; reservations are released per
// option, independently of sales.
type Reservation struct {
	ID               int64 `json:"id"`
	OptionID         int64 `json:"option_id"`
	LotID            int64 `json:"lot_id"`
	ReservedQuantity int   `json:"reserved_quantity"`

	LotNumber int `json:"lot_number,omitempty"`
}

// LotAvailability is the per-lot breakdown of a sellability check.
type LotAvailability struct {
	LotID             int64 `json:"lot_id"`
	LotNumber         int   `json:"lot_number"`
	RemainingQuantity int   `json:"remaining_quantity"`
	ReservedQuantity  int   `json:"reserved_quantity"`
	AvailableForSale  int   `json:"available_for_sale"`
}

// Availability is the result of a pre-flight sellability check.
type Availability struct {
	CanSell         bool              `json:"can_sell"`
	AvailableShares int               `json:"available_shares"`
	Lots            []LotAvailability `json:"lots_breakdown"`
}

// LotsSummary aggregates all lots, optionally scoped to one stock.
type LotsSummary struct {
	TotalLots            int     `json:"total_lots"`
	OpenLots             int     `json:"open_lots"`
	ClosedLots           int     `json:"closed_lots"`
	TotalSharesPurchased int     `json:"total_shares_purchased"`
	TotalSharesRemaining int     `json:"total_shares_remaining"`
	TotalValueUSD        float64 `json:"total_value_usd"`
	TotalValuePLN        float64 `json:"total_value_pln"`
	AvgUSDRate           float64 `json:"avg_usd_rate"`
}
