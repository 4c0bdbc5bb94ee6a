package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/username/lotfolio/backend/src/models"
	"github.com/username/lotfolio/backend/src/services"
)

type CashflowHandler struct {
	cashflowService *services.CashflowService
}

func NewCashflowHandler(cashflowService *services.CashflowService) *CashflowHandler {
	return &CashflowHandler{cashflowService: cashflowService}
}

func (h *CashflowHandler) HandleAddCashflow(w http.ResponseWriter, r *http.Request) {
	var in services.AddCashflowInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		sendJSONError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	cf, err := h.cashflowService.AddCashflow(r.Context(), in)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	sendJSON(w, cf, http.StatusCreated)
}

func (h *CashflowHandler) HandleListCashflows(w http.ResponseWriter, r *http.Request) {
	cfType := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("type")))
	cashflows, err := h.cashflowService.ListCashflows(r.Context(), cfType)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	if cashflows == nil {
		cashflows = []models.Cashflow{}
	}
	sendJSON(w, cashflows, http.StatusOK)
}

func (h *CashflowHandler) HandleCashflowSummary(w http.ResponseWriter, r *http.Request) {
	year, err := queryInt(r, "year")
	if err != nil {
		sendJSONError(w, "invalid year", http.StatusBadRequest)
		return
	}
	summary, err := h.cashflowService.Summary(r.Context(), year)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	sendJSON(w, summary, http.StatusOK)
}
