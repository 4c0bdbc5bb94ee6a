package handlers

import (
	"net/http"

	"github.com/username/lotfolio/backend/src/ledger"
	"github.com/username/lotfolio/backend/src/models"
)

type TaxHandler struct {
	taxService *ledger.TaxService
}

func NewTaxHandler(taxService *ledger.TaxService) *TaxHandler {
	return &TaxHandler{taxService: taxService}
}

func (h *TaxHandler) HandleRealizedGains(w http.ResponseWriter, r *http.Request) {
	year, err := queryInt(r, "year")
	if err != nil {
		sendJSONError(w, "invalid year", http.StatusBadRequest)
		return
	}
	gains, err := h.taxService.RealizedGains(r.Context(), year)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	if gains == nil {
		gains = []models.SaleAllocation{}
	}
	sendJSON(w, gains, http.StatusOK)
}

func (h *TaxHandler) HandleTaxSummary(w http.ResponseWriter, r *http.Request) {
	year, err := queryInt(r, "year")
	if err != nil || year == 0 {
		sendJSONError(w, "year is required", http.StatusBadRequest)
		return
	}
	report, err := h.taxService.YearReport(r.Context(), year)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	sendJSON(w, report, http.StatusOK)
}

// HandleCapitalGainsTax converts one realized USD gain to PLN and
// computes the 19% tax. Pure calculation, nothing stored.
func (h *TaxHandler) HandleCapitalGainsTax(w http.ResponseWriter, r *http.Request) {
	gainUSD, err := queryFloat(r, "gain_usd")
	date := r.URL.Query().Get("date")
	if err != nil || date == "" {
		sendJSONError(w, "gain_usd and date are required", http.StatusBadRequest)
		return
	}
	calc, err := h.taxService.CapitalGainsTax(r.Context(), gainUSD, date)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	sendJSON(w, calc, http.StatusOK)
}

// HandleOptionPremiumTax computes the 19% tax on a received premium at
// the given date's NBP rate.
func (h *TaxHandler) HandleOptionPremiumTax(w http.ResponseWriter, r *http.Request) {
	premiumUSD, err := queryFloat(r, "premium_usd")
	date := r.URL.Query().Get("date")
	if err != nil || premiumUSD <= 0 || date == "" {
		sendJSONError(w, "premium_usd and date are required", http.StatusBadRequest)
		return
	}
	calc, err := h.taxService.OptionPremiumTax(r.Context(), premiumUSD, date)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	sendJSON(w, calc, http.StatusOK)
}

// HandleDividendTax computes the Polish tax on one dividend amount with
// the US withholding credit. Pure calculation, nothing stored.
func (h *TaxHandler) HandleDividendTax(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	dividendUSD, err1 := queryFloat(r, "dividend_usd")
	withheldUSD, err2 := queryFloat(r, "tax_withheld_usd")
	payDate := q.Get("pay_date")
	if err1 != nil || err2 != nil || dividendUSD <= 0 || payDate == "" {
		sendJSONError(w, "dividend_usd and pay_date are required", http.StatusBadRequest)
		return
	}
	calc, err := h.taxService.DividendTax(r.Context(), dividendUSD, withheldUSD, payDate)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	sendJSON(w, calc, http.StatusOK)
}
