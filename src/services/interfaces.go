package services

import (
	"context"
	"time"
)

// RateSource resolves a USD/PLN mid rate for a date. Satisfied by
// nbp.Client; tests substitute a fake.
type RateSource interface {
	USDPLNRate(ctx context.Context, date time.Time) (float64, error)
}

// PriceService fetches current market prices for portfolio symbols.
type PriceService interface {
	CurrentPrice(ctx context.Context, symbol string) (float64, error)
	RefreshAll(ctx context.Context) error
}
