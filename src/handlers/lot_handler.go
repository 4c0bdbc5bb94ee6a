package handlers

import (
	"net/http"

	"github.com/username/lotfolio/backend/src/ledger"
	"github.com/username/lotfolio/backend/src/models"
)

type LotHandler struct {
	lotService         *ledger.LotService
	reservationService *ledger.ReservationService
}

func NewLotHandler(lotService *ledger.LotService, reservationService *ledger.ReservationService) *LotHandler {
	return &LotHandler{lotService: lotService, reservationService: reservationService}
}

func (h *LotHandler) HandleListLots(w http.ResponseWriter, r *http.Request) {
	stockID, err := queryInt64(r, "stock_id")
	if err != nil {
		sendJSONError(w, "invalid stock_id", http.StatusBadRequest)
		return
	}
	includeClosed := r.URL.Query().Get("include_closed") == "true"

	lots, err := h.lotService.ListLots(r.Context(), stockID, includeClosed)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	if lots == nil {
		lots = []models.Lot{}
	}
	sendJSON(w, lots, http.StatusOK)
}

func (h *LotHandler) HandleLotSales(w http.ResponseWriter, r *http.Request) {
	lotID, err := urlParamID(r, "id")
	if err != nil {
		sendJSONError(w, "invalid lot id", http.StatusBadRequest)
		return
	}
	sales, err := h.lotService.LotSales(r.Context(), lotID)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	if sales == nil {
		sales = []models.SaleAllocation{}
	}
	sendJSON(w, sales, http.StatusOK)
}

func (h *LotHandler) HandleLotsSummary(w http.ResponseWriter, r *http.Request) {
	stockID, err := queryInt64(r, "stock_id")
	if err != nil {
		sendJSONError(w, "invalid stock_id", http.StatusBadRequest)
		return
	}
	summary, err := h.lotService.Summary(r.Context(), stockID)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	sendJSON(w, summary, http.StatusOK)
}

// HandlePreviewSale shows which lots a hypothetical sale would consume
// without changing anything.
func (h *LotHandler) HandlePreviewSale(w http.ResponseWriter, r *http.Request) {
	stockID, err := queryInt64(r, "stock_id")
	if err != nil || stockID == 0 {
		sendJSONError(w, "stock_id is required", http.StatusBadRequest)
		return
	}
	quantity, err := queryInt(r, "quantity")
	if err != nil || quantity == 0 {
		sendJSONError(w, "quantity is required", http.StatusBadRequest)
		return
	}
	plan, err := h.lotService.PreviewSale(r.Context(), stockID, quantity)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	sendJSON(w, plan, http.StatusOK)
}

// HandleCheckAvailability reports how many shares are sellable after
// subtracting covered-call reservations.
func (h *LotHandler) HandleCheckAvailability(w http.ResponseWriter, r *http.Request) {
	stockID, err := queryInt64(r, "stock_id")
	if err != nil || stockID == 0 {
		sendJSONError(w, "stock_id is required", http.StatusBadRequest)
		return
	}
	quantity, err := queryInt(r, "quantity")
	if err != nil {
		sendJSONError(w, "invalid quantity", http.StatusBadRequest)
		return
	}
	availability, err := h.reservationService.CheckAvailability(r.Context(), stockID, quantity)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	sendJSON(w, availability, http.StatusOK)
}
