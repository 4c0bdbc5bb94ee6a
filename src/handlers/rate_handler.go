package handlers

import (
	"net/http"
	"time"

	"github.com/username/lotfolio/backend/src/models"
	"github.com/username/lotfolio/backend/src/nbp"
)

type RateHandler struct {
	nbpClient *nbp.Client
}

func NewRateHandler(nbpClient *nbp.Client) *RateHandler {
	return &RateHandler{nbpClient: nbpClient}
}

type rateResponse struct {
	CurrencyPair string  `json:"currency_pair"`
	Date         string  `json:"date"`
	Rate         float64 `json:"rate"`
}

// HandleGetRate resolves the USD/PLN rate for a date, applying the
// previous-business-day fallback for weekends and holidays.
func (h *RateHandler) HandleGetRate(w http.ResponseWriter, r *http.Request) {
	dateStr := r.URL.Query().Get("date")
	if dateStr == "" {
		dateStr = time.Now().Format(models.DateLayout)
	}
	date, err := time.Parse(models.DateLayout, dateStr)
	if err != nil {
		sendJSONError(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	rate, err := h.nbpClient.USDPLNRate(r.Context(), date)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	sendJSON(w, rateResponse{CurrencyPair: models.PairUSDPLN, Date: dateStr, Rate: rate}, http.StatusOK)
}
