package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/username/lotfolio/backend/src/models"
	"github.com/username/lotfolio/backend/src/services"
)

type TransactionHandler struct {
	transactionService *services.TransactionService
}

func NewTransactionHandler(transactionService *services.TransactionService) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService}
}

func (h *TransactionHandler) HandleAddTransaction(w http.ResponseWriter, r *http.Request) {
	var in services.AddTransactionInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		sendJSONError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	tx, err := h.transactionService.AddTransaction(r.Context(), in)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	sendJSON(w, tx, http.StatusCreated)
}

func (h *TransactionHandler) HandleListTransactions(w http.ResponseWriter, r *http.Request) {
	stockID, err := queryInt64(r, "stock_id")
	if err != nil {
		sendJSONError(w, "invalid stock_id", http.StatusBadRequest)
		return
	}
	txs, err := h.transactionService.ListTransactions(r.Context(), stockID)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	if txs == nil {
		txs = []models.StockTransaction{}
	}
	sendJSON(w, txs, http.StatusOK)
}

type updateNotesRequest struct {
	Notes string `json:"notes"`
}

func (h *TransactionHandler) HandleUpdateNotes(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamID(r, "id")
	if err != nil {
		sendJSONError(w, "invalid transaction id", http.StatusBadRequest)
		return
	}
	var req updateNotesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if err := h.transactionService.UpdateNotes(r.Context(), id, req.Notes); err != nil {
		sendServiceError(w, err)
		return
	}
	sendJSON(w, map[string]string{"message": "notes updated"}, http.StatusOK)
}
