package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	pkgerrors "github.com/angelmondragon/wavepick-backend/pkg/errors"
	"github.com/angelmondragon/wavepick-backend/pkg/logger"
	"github.com/angelmondragon/wavepick-backend/pkg/types"
	"github.com/stretchr/testify/require"
)

func decodeError(t *testing.T, w *httptest.ResponseRecorder) types.APIError {
	t.Helper()
	var body types.ErrorEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body.Error
}

func TestWriteSuccessStatus(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccessStatus(w, http.StatusCreated, map[string]string{"wave_number": "OS-20261015-0001"})

	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body types.SuccessEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	require.Equal(t, "OS-20261015-0001", body.Data.(map[string]any)["wave_number"])
}

func TestWriteErrorInsufficientStockCarriesDetails(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(context.Background(), logger.Nop(), w, pkgerrors.InsufficientStock(3, 8, 5))

	require.Equal(t, http.StatusConflict, w.Code)
	apiErr := decodeError(t, w)
	require.Equal(t, string(pkgerrors.CodeInsufficientStock), apiErr.Code)
	require.False(t, apiErr.Retryable)
	details, ok := apiErr.Details.(map[string]any)
	require.True(t, ok)
	require.EqualValues(t, 8, details["requested"])
	require.EqualValues(t, 5, details["available"])
}

func TestWriteErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive"), http.StatusBadRequest},
		{pkgerrors.OverPicked(1, 5, 4, 2), http.StatusUnprocessableEntity},
		{pkgerrors.InvalidWaveComposition("duplicate order", 1, 1), http.StatusUnprocessableEntity},
		{pkgerrors.TenantMismatch("wave", 9), http.StatusForbidden},
		{pkgerrors.New(pkgerrors.CodeConcurrencyConflict, "transaction conflict"), http.StatusConflict},
		{pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"), http.StatusTooManyRequests},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		WriteError(context.Background(), nil, w, tc.err)
		require.Equal(t, tc.status, w.Code, "error %v", tc.err)
	}
}

func TestWriteErrorConcurrencyConflictIsRetryable(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(context.Background(), nil, w, pkgerrors.Wrap(pkgerrors.CodeConcurrencyConflict, errors.New("40001"), "transaction conflict"))
	require.True(t, decodeError(t, w).Retryable)
}

func TestWriteErrorHidesInternalDetail(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(context.Background(), nil, w, pkgerrors.ConsistencyViolation("position %d reserved below zero", 12))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	apiErr := decodeError(t, w)
	require.Equal(t, "internal server error", apiErr.Message)
	require.Nil(t, apiErr.Details)
}

func TestWriteErrorDefaultsToInternalForUntypedErrors(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(context.Background(), nil, w, errors.New("boom"))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	apiErr := decodeError(t, w)
	require.Equal(t, string(pkgerrors.CodeInternal), apiErr.Code)
	require.Nil(t, apiErr.Details)
}
