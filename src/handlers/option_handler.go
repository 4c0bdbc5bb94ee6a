package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/username/lotfolio/backend/src/models"
	"github.com/username/lotfolio/backend/src/services"
)

type OptionHandler struct {
	optionService *services.OptionService
}

func NewOptionHandler(optionService *services.OptionService) *OptionHandler {
	return &OptionHandler{optionService: optionService}
}

func (h *OptionHandler) HandleOpenOption(w http.ResponseWriter, r *http.Request) {
	var in services.OpenOptionInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		sendJSONError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	opt, err := h.optionService.OpenOption(r.Context(), in)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	sendJSON(w, opt, http.StatusCreated)
}

type closeOptionRequest struct {
	Status    string `json:"status"`
	CloseDate string `json:"close_date"`
}

func (h *OptionHandler) HandleCloseOption(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamID(r, "id")
	if err != nil {
		sendJSONError(w, "invalid option id", http.StatusBadRequest)
		return
	}
	var req closeOptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	opt, err := h.optionService.CloseOption(r.Context(), id, strings.ToUpper(strings.TrimSpace(req.Status)), req.CloseDate)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	sendJSON(w, opt, http.StatusOK)
}

func (h *OptionHandler) HandleListOptions(w http.ResponseWriter, r *http.Request) {
	includeClosed := r.URL.Query().Get("include_closed") == "true"
	options, err := h.optionService.ListOptions(r.Context(), includeClosed)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	if options == nil {
		options = []models.Option{}
	}
	sendJSON(w, options, http.StatusOK)
}

type optionDetailResponse struct {
	Option       *models.Option       `json:"option"`
	Reservations []models.Reservation `json:"reservations"`
}

func (h *OptionHandler) HandleGetOption(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamID(r, "id")
	if err != nil {
		sendJSONError(w, "invalid option id", http.StatusBadRequest)
		return
	}
	opt, reservations, err := h.optionService.GetOption(r.Context(), id)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	if reservations == nil {
		reservations = []models.Reservation{}
	}
	sendJSON(w, optionDetailResponse{Option: opt, Reservations: reservations}, http.StatusOK)
}
