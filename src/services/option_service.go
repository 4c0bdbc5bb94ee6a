package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/username/lotfolio/backend/src/config"
	"github.com/username/lotfolio/backend/src/ledger"
	"github.com/username/lotfolio/backend/src/logger"
	"github.com/username/lotfolio/backend/src/models"
	"github.com/username/lotfolio/backend/src/store"
)

// OptionService manages written option contracts. Opening a covered
// call reserves quantity x 100 shares from the lot ledger; the
// reservation lives exactly as long as the contract stays OPEN.
type OptionService struct {
	store        store.Store
	reservations *ledger.ReservationService
	rates        RateSource
}

// NewOptionService creates an option service.
func NewOptionService(st store.Store, reservations *ledger.ReservationService, rates RateSource) *OptionService {
	return &OptionService{store: st, reservations: reservations, rates: rates}
}

// OpenOptionInput carries one newly written contract.
type OpenOptionInput struct {
	StockID         int64   `json:"stock_id"`
	OptionType      string  `json:"option_type"`
	StrikePrice     float64 `json:"strike_price"`
	ExpiryDate      string  `json:"expiry_date"`
	PremiumReceived float64 `json:"premium_received"` // per share, USD
	Quantity        int     `json:"quantity"`         // contracts
	OpenDate        string  `json:"open_date"`
	CommissionUSD   float64 `json:"commission_usd"`
	Notes           string  `json:"notes,omitempty"`
}

func (in *OpenOptionInput) validate() error {
	switch in.OptionType {
	case models.OptionCall, models.OptionPut:
	default:
		return fmt.Errorf("%w: option type must be CALL or PUT, got %q", ledger.ErrInvalidInput, in.OptionType)
	}
	if in.Quantity <= 0 {
		return fmt.Errorf("%w: contract quantity must be positive, got %d", ledger.ErrInvalidInput, in.Quantity)
	}
	if in.StrikePrice <= 0 {
		return fmt.Errorf("%w: strike price must be positive, got %g", ledger.ErrInvalidInput, in.StrikePrice)
	}
	if in.PremiumReceived < 0 {
		return fmt.Errorf("%w: premium cannot be negative, got %g", ledger.ErrInvalidInput, in.PremiumReceived)
	}
	for _, d := range []string{in.OpenDate, in.ExpiryDate} {
		if _, err := time.Parse(models.DateLayout, d); err != nil {
			return fmt.Errorf("%w: date %q is not YYYY-MM-DD", ledger.ErrInvalidInput, d)
		}
	}
	return nil
}

// OpenOption records a newly written contract. Calls are covered: the
// required shares are reserved atomically, and when the reservation
// fails the option row is removed again so no unbacked contract exists.
func (s *OptionService) OpenOption(ctx context.Context, in OpenOptionInput) (*models.Option, error) {
	in.OptionType = strings.ToUpper(strings.TrimSpace(in.OptionType))
	if err := in.validate(); err != nil {
		return nil, err
	}
	if _, err := s.store.GetStockByID(ctx, in.StockID); err != nil {
		return nil, fmt.Errorf("stock %d: %w", in.StockID, err)
	}

	rate, err := s.openDateRate(ctx, in.OpenDate)
	if err != nil {
		return nil, err
	}
	premiumUSD := in.PremiumReceived * float64(in.Quantity) * models.SharesPerContract

	opt := &models.Option{
		StockID:         in.StockID,
		OptionType:      in.OptionType,
		StrikePrice:     in.StrikePrice,
		ExpiryDate:      in.ExpiryDate,
		PremiumReceived: in.PremiumReceived,
		Quantity:        in.Quantity,
		Status:          models.OptionStatusOpen,
		OpenDate:        in.OpenDate,
		CommissionUSD:   in.CommissionUSD,
		USDPLNRate:      rate,
		PremiumPLN:      premiumUSD * rate,
		CommissionPLN:   in.CommissionUSD * rate,
		Notes:           in.Notes,
	}
	optID, err := s.store.InsertOption(ctx, opt)
	if err != nil {
		return nil, fmt.Errorf("insert option: %w", err)
	}
	opt.ID = optID

	if in.OptionType == models.OptionCall {
		shares := in.Quantity * models.SharesPerContract
		if _, err := s.reservations.Reserve(ctx, optID, in.StockID, shares); err != nil {
			if delErr := s.store.DeleteOption(ctx, optID); delErr != nil {
				logger.L.Error("Failed to remove option after reservation failure",
					"optionID", optID, "error", delErr)
			}
			return nil, fmt.Errorf("cover call with %d shares: %w", shares, err)
		}
	}

	if _, err := s.store.InsertCashflow(ctx, &models.Cashflow{
		TransactionType: models.CashflowOptionPremium,
		AmountUSD:       premiumUSD - in.CommissionUSD,
		Description:     fmt.Sprintf("%s %gx%d premium", in.OptionType, in.StrikePrice, in.Quantity),
		Date:            in.OpenDate,
		RelatedStockID:  &in.StockID,
		RelatedOptionID: &optID,
	}); err != nil {
		logger.L.Warn("Failed to record premium cashflow", "optionID", optID, "error", err)
	}

	logger.FromContext(ctx).Info("Option opened",
		"optionID", optID, "stockID", in.StockID, "type", in.OptionType,
		"contracts", in.Quantity, "premiumUSD", premiumUSD)
	return opt, nil
}

// CloseOption transitions an OPEN contract to CLOSED (bought back),
// EXPIRED, or ASSIGNED, and releases its share reservations. Assignment
// does not sell the shares automatically: the matching SELL transaction
// is recorded separately so the FIFO engine runs with the strike price.
func (s *OptionService) CloseOption(ctx context.Context, optionID int64, status, closeDate string) (*models.Option, error) {
	switch status {
	case models.OptionStatusClosed, models.OptionStatusExpired, models.OptionStatusAssigned:
	default:
		return nil, fmt.Errorf("%w: close status must be CLOSED, EXPIRED or ASSIGNED, got %q", ledger.ErrInvalidInput, status)
	}
	if _, err := time.Parse(models.DateLayout, closeDate); err != nil {
		return nil, fmt.Errorf("%w: close date %q is not YYYY-MM-DD", ledger.ErrInvalidInput, closeDate)
	}

	opt, err := s.store.GetOptionByID(ctx, optionID)
	if err != nil {
		return nil, fmt.Errorf("option %d: %w", optionID, err)
	}
	if opt.Status != models.OptionStatusOpen {
		return nil, fmt.Errorf("%w: option %d is already %s", ledger.ErrInvalidInput, optionID, opt.Status)
	}

	if err := s.store.UpdateOptionStatus(ctx, optionID, status, closeDate); err != nil {
		return nil, fmt.Errorf("update option status: %w", err)
	}
	if err := s.reservations.Release(ctx, optionID); err != nil {
		return nil, fmt.Errorf("release reservations for option %d: %w", optionID, err)
	}

	opt.Status = status
	opt.CloseDate = closeDate
	logger.FromContext(ctx).Info("Option closed", "optionID", optionID, "status", status, "closeDate", closeDate)
	return opt, nil
}

// ListOptions returns contracts; includeClosed false filters to OPEN.
func (s *OptionService) ListOptions(ctx context.Context, includeClosed bool) ([]models.Option, error) {
	return s.store.ListOptions(ctx, includeClosed)
}

// GetOption retrieves one contract with its reservations.
func (s *OptionService) GetOption(ctx context.Context, optionID int64) (*models.Option, []models.Reservation, error) {
	opt, err := s.store.GetOptionByID(ctx, optionID)
	if err != nil {
		return nil, nil, err
	}
	reservations, err := s.store.ListReservations(ctx, optionID)
	if err != nil {
		return nil, nil, err
	}
	return opt, reservations, nil
}

// openDateRate resolves the rate for premium conversion, falling back to
// the configured default the same way transactions do.
func (s *OptionService) openDateRate(ctx context.Context, date string) (float64, error) {
	day, _ := time.Parse(models.DateLayout, date)
	if rate, err := s.rates.USDPLNRate(ctx, previousBusinessDay(day)); err == nil {
		return rate, nil
	}
	if rate, err := s.rates.USDPLNRate(ctx, day); err == nil {
		return rate, nil
	}
	logger.L.Warn("No exchange rate for option open date, using configured default",
		"date", date, "defaultRate", config.Cfg.DefaultUSDPLNRate)
	return config.Cfg.DefaultUSDPLNRate, nil
}
