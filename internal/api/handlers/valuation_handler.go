package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/motorvalue/vehicle-valuation/internal/domain/entities"
	apperrors "github.com/motorvalue/vehicle-valuation/pkg/errors"
)

const (
	successCacheControl = "public, max-age=300, stale-while-revalidate=600"
	errorCacheControl   = "no-store"
)

// Valuator defines the valuation operations used by the handler
type Valuator interface {
	Valuate(ctx context.Context, req *entities.ValuationRequest) (*entities.ValuationResult, *entities.ValuationError)
}

// ValuationHandler handles valuation HTTP requests
type ValuationHandler struct {
	service  Valuator
	validate func(*entities.ValuationRequest) *apperrors.AppError
}

// NewValuationHandler creates a new valuation handler
func NewValuationHandler(service Valuator, validate func(*entities.ValuationRequest) *apperrors.AppError) *ValuationHandler {
	return &ValuationHandler{
		service:  service,
		validate: validate,
	}
}

// CreateValuation handles POST /api/valuations
func (h *ValuationHandler) CreateValuation(w http.ResponseWriter, r *http.Request) {
	var req entities.ValuationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.Header().Set("Cache-Control", errorCacheControl)
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	h.valuate(w, r, &req)
}

// GetValuation handles GET /api/valuations with criteria as query
// parameters, so transport-level caches can serve repeat queries
func (h *ValuationHandler) GetValuation(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	year, _ := strconv.Atoi(query.Get("year"))
	mileage, _ := strconv.Atoi(query.Get("mileage"))

	req := entities.ValuationRequest{
		Brand:     strings.TrimSpace(query.Get("brand")),
		Model:     strings.TrimSpace(query.Get("model")),
		MakeID:    query.Get("make_id"),
		ModelID:   query.Get("model_id"),
		Year:      year,
		Mileage:   mileage,
		Fuel:      query.Get("fuel"),
		Gearbox:   query.Get("gearbox"),
		Variant:   query.Get("variant"),
		Condition: entities.Condition(query.Get("condition")),
	}

	h.valuate(w, r, &req)
}

func (h *ValuationHandler) valuate(w http.ResponseWriter, r *http.Request, req *entities.ValuationRequest) {
	// Input validation happens before any fetch
	if appErr := h.validate(req); appErr != nil {
		w.Header().Set("Cache-Control", errorCacheControl)
		respondWithError(w, http.StatusBadRequest, appErr.Message)
		return
	}

	result, verr := h.service.Valuate(r.Context(), req)
	if verr != nil {
		w.Header().Set("Cache-Control", errorCacheControl)
		respondWithJSON(w, http.StatusNotFound, map[string]interface{}{
			"error":      verr.Message,
			"suggestion": verr.Suggestion,
		})
		return
	}

	w.Header().Set("Cache-Control", successCacheControl)
	respondWithJSON(w, http.StatusOK, result)
}

// respondWithJSON writes a JSON response
func respondWithJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// respondWithError writes a JSON error response
func respondWithError(w http.ResponseWriter, status int, message string) {
	respondWithJSON(w, status, map[string]string{"error": message})
}
