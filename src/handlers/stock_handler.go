package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/username/lotfolio/backend/src/models"
	"github.com/username/lotfolio/backend/src/services"
)

type StockHandler struct {
	stockService *services.StockService
	priceService services.PriceService
}

func NewStockHandler(stockService *services.StockService, priceService services.PriceService) *StockHandler {
	return &StockHandler{stockService: stockService, priceService: priceService}
}

type createStockRequest struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

func (h *StockHandler) HandleCreateStock(w http.ResponseWriter, r *http.Request) {
	var req createStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	stock, err := h.stockService.CreateStock(r.Context(), req.Symbol, req.Name)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	sendJSON(w, stock, http.StatusCreated)
}

func (h *StockHandler) HandleGetStock(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamID(r, "id")
	if err != nil {
		sendJSONError(w, "invalid stock id", http.StatusBadRequest)
		return
	}
	stock, err := h.stockService.GetStock(r.Context(), id)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	sendJSON(w, stock, http.StatusOK)
}

func (h *StockHandler) HandleListStocks(w http.ResponseWriter, r *http.Request) {
	stocks, err := h.stockService.ListStocks(r.Context())
	if err != nil {
		sendServiceError(w, err)
		return
	}
	if stocks == nil {
		stocks = []models.Stock{}
	}
	sendJSON(w, stocks, http.StatusOK)
}

func (h *StockHandler) HandleRefreshPrices(w http.ResponseWriter, r *http.Request) {
	if err := h.priceService.RefreshAll(r.Context()); err != nil {
		sendJSONError(w, "some prices could not be refreshed", http.StatusBadGateway)
		return
	}
	sendJSON(w, map[string]string{"message": "prices refreshed"}, http.StatusOK)
}
