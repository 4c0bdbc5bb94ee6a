package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/username/lotfolio/backend/src/models"
	"github.com/username/lotfolio/backend/src/services"
)

type DividendHandler struct {
	dividendService *services.DividendService
}

func NewDividendHandler(dividendService *services.DividendService) *DividendHandler {
	return &DividendHandler{dividendService: dividendService}
}

func (h *DividendHandler) HandleAddDividend(w http.ResponseWriter, r *http.Request) {
	var in services.AddDividendInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		sendJSONError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	div, err := h.dividendService.AddDividend(r.Context(), in)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	sendJSON(w, div, http.StatusCreated)
}

func (h *DividendHandler) HandleListDividends(w http.ResponseWriter, r *http.Request) {
	stockID, err := queryInt64(r, "stock_id")
	if err != nil {
		sendJSONError(w, "invalid stock_id", http.StatusBadRequest)
		return
	}
	year, err := queryInt(r, "year")
	if err != nil {
		sendJSONError(w, "invalid year", http.StatusBadRequest)
		return
	}
	dividends, err := h.dividendService.ListDividends(r.Context(), stockID, year)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	if dividends == nil {
		dividends = []models.Dividend{}
	}
	sendJSON(w, dividends, http.StatusOK)
}

func (h *DividendHandler) HandleDividendSummary(w http.ResponseWriter, r *http.Request) {
	year, err := queryInt(r, "year")
	if err != nil {
		sendJSONError(w, "invalid year", http.StatusBadRequest)
		return
	}
	summary, err := h.dividendService.Summary(r.Context(), year)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	sendJSON(w, summary, http.StatusOK)
}
