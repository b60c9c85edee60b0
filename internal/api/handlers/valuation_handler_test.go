package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/motorvalue/vehicle-valuation/internal/api/handlers"
	"github.com/motorvalue/vehicle-valuation/internal/domain/entities"
	apperrors "github.com/motorvalue/vehicle-valuation/pkg/errors"
)

type stubValuator struct {
	result  *entities.ValuationResult
	verr    *entities.ValuationError
	lastReq *entities.ValuationRequest
}

func (s *stubValuator) Valuate(ctx context.Context, req *entities.ValuationRequest) (*entities.ValuationResult, *entities.ValuationError) {
	s.lastReq = req
	return s.result, s.verr
}

func validateStub(req *entities.ValuationRequest) *apperrors.AppError {
	if req.Brand == "" {
		return apperrors.NewValidationError("brand is required")
	}
	return nil
}

func okResult() *entities.ValuationResult {
	return &entities.ValuationResult{
		PriceLow:    13000,
		PriceHigh:   16000,
		Median:      14500,
		DealerPrice: 12750,
		SampleSize:  21,
		Confidence:  entities.ConfidenceMedium,
		Window:      entities.SearchWindow{Strategy: "wide"},
	}
}

func TestCreateValuation(t *testing.T) {
	t.Run("success carries transport cache hints", func(t *testing.T) {
		valuator := &stubValuator{result: okResult()}
		handler := handlers.NewValuationHandler(valuator, validateStub)

		body, _ := json.Marshal(entities.ValuationRequest{Brand: "Volvo", Model: "V60", Year: 2018})
		rec := httptest.NewRecorder()
		handler.CreateValuation(rec, httptest.NewRequest(http.MethodPost, "/api/valuations", bytes.NewReader(body)))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "public, max-age=300, stale-while-revalidate=600", rec.Header().Get("Cache-Control"))
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var result entities.ValuationResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		assert.Equal(t, 14500, result.Median)
		assert.Equal(t, "wide", result.Window.Strategy)
	})

	t.Run("validation failure is a 400 and never cached", func(t *testing.T) {
		valuator := &stubValuator{result: okResult()}
		handler := handlers.NewValuationHandler(valuator, validateStub)

		body, _ := json.Marshal(entities.ValuationRequest{Model: "V60"})
		rec := httptest.NewRecorder()
		handler.CreateValuation(rec, httptest.NewRequest(http.MethodPost, "/api/valuations", bytes.NewReader(body)))

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
		// The engine must not run on invalid input
		assert.Nil(t, valuator.lastReq)
	})

	t.Run("malformed body is a 400", func(t *testing.T) {
		handler := handlers.NewValuationHandler(&stubValuator{}, validateStub)

		rec := httptest.NewRecorder()
		handler.CreateValuation(rec, httptest.NewRequest(http.MethodPost, "/api/valuations", bytes.NewReader([]byte("{not json"))))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	})

	t.Run("valuation failure is a structured 404", func(t *testing.T) {
		valuator := &stubValuator{verr: &entities.ValuationError{
			Message:    "no listings match these exact criteria",
			Suggestion: "widen the year or mileage range",
		}}
		handler := handlers.NewValuationHandler(valuator, validateStub)

		body, _ := json.Marshal(entities.ValuationRequest{Brand: "Volvo", Model: "V60", Year: 2018})
		rec := httptest.NewRecorder()
		handler.CreateValuation(rec, httptest.NewRequest(http.MethodPost, "/api/valuations", bytes.NewReader(body)))

		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

		var payload map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
		assert.Equal(t, "no listings match these exact criteria", payload["error"])
		assert.NotEmpty(t, payload["suggestion"])
	})
}

func TestGetValuation(t *testing.T) {
	valuator := &stubValuator{result: okResult()}
	handler := handlers.NewValuationHandler(valuator, validateStub)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/api/valuations?brand=Volvo&model=V60&year=2018&mileage=80000&fuel=diesel&condition=excellent", nil)
	handler.GetValuation(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, valuator.lastReq)
	assert.Equal(t, "Volvo", valuator.lastReq.Brand)
	assert.Equal(t, 2018, valuator.lastReq.Year)
	assert.Equal(t, 80000, valuator.lastReq.Mileage)
	assert.Equal(t, "diesel", valuator.lastReq.Fuel)
	assert.Equal(t, entities.ConditionExcellent, valuator.lastReq.Condition)
}
