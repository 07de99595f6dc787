package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"seckill/internal/catalog"
	"seckill/internal/engine"
	"seckill/internal/models"
)

type Handler struct {
	engine *engine.Engine
	log    zerolog.Logger
}

func NewHandler(eng *engine.Engine, log zerolog.Logger) *Handler {
	return &Handler{
		engine: eng,
		log:    log.With().Str("component", "http").Logger(),
	}
}

// HandleList serves GET /seckill.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	listings, err := h.engine.GetSeckillList(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list sales")
		http.Error(w, "Failed to list sales", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, listings)
}

// HandleGet serves GET /seckill/{saleID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	saleID, ok := h.saleID(w, r)
	if !ok {
		return
	}

	listing, err := h.engine.GetByID(r.Context(), saleID)
	if errors.Is(err, catalog.ErrNotFound) {
		http.Error(w, "Sale not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Int64("sale_id", saleID).Msg("failed to get sale")
		http.Error(w, "Failed to get sale", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, listing)
}

// HandleExposer serves GET /seckill/{saleID}/exposer. While the sale is
// open the payload carries the token the execution endpoint requires.
func (h *Handler) HandleExposer(w http.ResponseWriter, r *http.Request) {
	saleID, ok := h.saleID(w, r)
	if !ok {
		return
	}

	exposer, err := h.engine.ExportSeckillURL(r.Context(), saleID)
	if errors.Is(err, catalog.ErrNotFound) {
		http.Error(w, "Sale not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Int64("sale_id", saleID).Msg("failed to export seckill url")
		http.Error(w, "Failed to export seckill url", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, exposer)
}

// HandleExecution serves POST /seckill/{saleID}/execution?user_id=&token=.
// Every terminal state maps to its own status code so clients can render
// the outcome without guessing.
func (h *Handler) HandleExecution(w http.ResponseWriter, r *http.Request) {
	saleID, ok := h.saleID(w, r)
	if !ok {
		return
	}

	buyerID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil {
		http.Error(w, "Missing or invalid user_id parameter", http.StatusBadRequest)
		return
	}

	tok := r.URL.Query().Get("token")
	if tok == "" {
		http.Error(w, "Missing token parameter", http.StatusBadRequest)
		return
	}

	execution := h.engine.ExecuteSeckill(r.Context(), saleID, buyerID, tok)
	writeJSON(w, executionStatus(execution.State), execution)
}

func (h *Handler) saleID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	saleID, err := strconv.ParseInt(chi.URLParam(r, "saleID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid sale ID", http.StatusBadRequest)
		return 0, false
	}
	return saleID, true
}

func executionStatus(state models.ExecutionState) int {
	switch state {
	case models.StateSuccess:
		return http.StatusOK
	case models.StateRepeatKill:
		return http.StatusConflict
	case models.StateSaleClosed, models.StateInvalidToken:
		return http.StatusForbidden
	case models.StateOutOfStock:
		return http.StatusGone
	case models.StateNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
