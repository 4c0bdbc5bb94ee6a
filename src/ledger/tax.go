package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/username/lotfolio/backend/src/models"
	"github.com/username/lotfolio/backend/src/store"
)

// Polish tax rates for the three income categories this tracker covers.
const (
	DividendTaxRate      = 0.19
	USWithholdingTaxRate = 0.15 // US treaty rate, informational
)

// RateSource resolves a USD/PLN rate for a date. Satisfied by nbp.Client.
type RateSource interface {
	USDPLNRate(ctx context.Context, date time.Time) (float64, error)
}

// TaxService is the read-side aggregator over sale allocations plus the
// standalone PLN tax calculators for dividends and option premiums.
// It never mutates anything.
type TaxService struct {
	store store.Store
	rates RateSource
}

// NewTaxService creates a tax service.
func NewTaxService(st store.Store, rates RateSource) *TaxService {
	return &TaxService{store: st, rates: rates}
}

// RealizedGains lists allocations for a tax year (0 = all years),
// newest sale first, symbol as the tie-break.
func (s *TaxService) RealizedGains(ctx context.Context, year int) ([]models.SaleAllocation, error) {
	return s.store.RealizedGains(ctx, year)
}

// Summary rolls up one tax year. Years with no activity return a zero
// summary, not an error.
func (s *TaxService) Summary(ctx context.Context, year int) (*models.TaxSummary, error) {
	return s.store.TaxSummary(ctx, year)
}

// AnnualReport combines the three taxed income categories for one year:
// realized stock gains, dividends (net of the US withholding credit) and
// received option premiums. Each dividend and premium converts at its
// own event date's NBP rate.
type AnnualReport struct {
	Year   int                `json:"year"`
	Stocks *models.TaxSummary `json:"stocks"`

	DividendCount          int     `json:"dividend_count"`
	TotalDividendsUSD      float64 `json:"total_dividends_usd"`
	TotalDividendsPLN      float64 `json:"total_dividends_pln"`
	DividendTaxToPayPLN    float64 `json:"dividend_tax_to_pay_pln"`
	OptionCount            int     `json:"option_count"`
	TotalOptionPremiumUSD  float64 `json:"total_option_premium_usd"`
	TotalOptionPremiumPLN  float64 `json:"total_option_premium_pln"`
	OptionPremiumTaxDuePLN float64 `json:"option_premium_tax_due_pln"`

	TotalTaxDuePLN float64 `json:"total_tax_due_pln"`
}

// YearReport builds the combined annual report.
func (s *TaxService) YearReport(ctx context.Context, year int) (*AnnualReport, error) {
	stocks, err := s.Summary(ctx, year)
	if err != nil {
		return nil, err
	}
	report := AnnualReport{Year: year, Stocks: stocks}

	dividends, err := s.store.ListDividends(ctx, 0, year)
	if err != nil {
		return nil, fmt.Errorf("list dividends: %w", err)
	}
	for _, div := range dividends {
		calc, err := s.DividendTax(ctx, div.TotalAmountUSD, div.TaxWithheldUSD, div.PayDate)
		if err != nil {
			return nil, fmt.Errorf("dividend %d: %w", div.ID, err)
		}
		report.DividendCount++
		report.TotalDividendsUSD += calc.DividendUSD
		report.TotalDividendsPLN += calc.DividendPLN
		report.DividendTaxToPayPLN += calc.TaxToPayPLN
	}

	options, err := s.store.ListOptions(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("list options: %w", err)
	}
	for _, opt := range options {
		opened, err := time.Parse(models.DateLayout, opt.OpenDate)
		if err != nil || opened.Year() != year {
			continue
		}
		// Premium is taxable at receipt regardless of how the contract
		// later resolves.
		premiumUSD := opt.PremiumReceived * float64(opt.Quantity) * float64(models.SharesPerContract)
		calc, err := s.OptionPremiumTax(ctx, premiumUSD, opt.OpenDate)
		if err != nil {
			return nil, fmt.Errorf("option %d: %w", opt.ID, err)
		}
		report.OptionCount++
		report.TotalOptionPremiumUSD += calc.AmountUSD
		report.TotalOptionPremiumPLN += calc.AmountPLN
		report.OptionPremiumTaxDuePLN += calc.TaxDuePLN
	}

	report.TotalTaxDuePLN = stocks.TotalTaxDuePLN +
		report.DividendTaxToPayPLN + report.OptionPremiumTaxDuePLN
	return &report, nil
}

// TaxCalculation is the result of converting one USD amount to PLN and
// applying the 19% rate.
type TaxCalculation struct {
	AmountUSD    float64 `json:"amount_usd"`
	AmountPLN    float64 `json:"amount_pln"`
	TaxDuePLN    float64 `json:"tax_due_pln"`
	ExchangeRate float64 `json:"exchange_rate"`
	Date         string  `json:"date"`
}

// CapitalGainsTax converts a realized USD gain to PLN at the NBP rate
// for the transaction date and computes the 19% tax. Losses owe nothing
// and skip the rate lookup entirely.
func (s *TaxService) CapitalGainsTax(ctx context.Context, gainUSD float64, date string) (*TaxCalculation, error) {
	if gainUSD <= 0 {
		return &TaxCalculation{AmountUSD: gainUSD, Date: date}, nil
	}
	rate, err := s.rateFor(ctx, date)
	if err != nil {
		return nil, err
	}
	gainPLN := gainUSD * rate
	return &TaxCalculation{
		AmountUSD:    gainUSD,
		AmountPLN:    gainPLN,
		TaxDuePLN:    gainPLN * CapitalGainsTaxRate,
		ExchangeRate: rate,
		Date:         date,
	}, nil
}

// DividendTaxCalculation breaks down the Polish tax on one dividend
// with credit for US withholding.
type DividendTaxCalculation struct {
	DividendUSD      float64 `json:"dividend_usd"`
	DividendPLN      float64 `json:"dividend_pln"`
	USTaxWithheldPLN float64 `json:"us_tax_withheld_pln"`
	TaxDuePLN        float64 `json:"tax_due_pln"`
	TaxToPayPLN      float64 `json:"tax_to_pay_pln"`
	ExchangeRate     float64 `json:"exchange_rate"`
	PayDate          string  `json:"pay_date"`
}

// DividendTax computes the 19% Polish dividend tax in PLN at the pay
// date's NBP rate, minus the US withholding credit, floored at zero.
func (s *TaxService) DividendTax(ctx context.Context, dividendUSD, usTaxWithheldUSD float64, payDate string) (*DividendTaxCalculation, error) {
	rate, err := s.rateFor(ctx, payDate)
	if err != nil {
		return nil, err
	}

	dividendPLN := dividendUSD * rate
	usTaxPLN := usTaxWithheldUSD * rate
	taxDuePLN := dividendPLN * DividendTaxRate
	taxToPayPLN := taxDuePLN - usTaxPLN
	if taxToPayPLN < 0 {
		taxToPayPLN = 0
	}
	return &DividendTaxCalculation{
		DividendUSD:      dividendUSD,
		DividendPLN:      dividendPLN,
		USTaxWithheldPLN: usTaxPLN,
		TaxDuePLN:        taxDuePLN,
		TaxToPayPLN:      taxToPayPLN,
		ExchangeRate:     rate,
		PayDate:          payDate,
	}, nil
}

// OptionPremiumTax computes the 19% tax on received option premium at
// the open date's NBP rate.
func (s *TaxService) OptionPremiumTax(ctx context.Context, premiumUSD float64, date string) (*TaxCalculation, error) {
	rate, err := s.rateFor(ctx, date)
	if err != nil {
		return nil, err
	}
	premiumPLN := premiumUSD * rate
	return &TaxCalculation{
		AmountUSD:    premiumUSD,
		AmountPLN:    premiumPLN,
		TaxDuePLN:    premiumPLN * CapitalGainsTaxRate,
		ExchangeRate: rate,
		Date:         date,
	}, nil
}

func (s *TaxService) rateFor(ctx context.Context, date string) (float64, error) {
	day, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return 0, fmt.Errorf("%w: date %q: %v", ErrInvalidInput, date, err)
	}
	return s.rates.USDPLNRate(ctx, day)
}
