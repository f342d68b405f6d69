package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, detailsOK: true},
		{code: CodeNotFound, status: http.StatusNotFound},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, detailsOK: true},
		{code: CodeInsufficientStock, status: http.StatusConflict, detailsOK: true},
		{code: CodeOverPick, status: http.StatusUnprocessableEntity, detailsOK: true},
		{code: CodeInvalidWaveComposition, status: http.StatusUnprocessableEntity, detailsOK: true},
		{code: CodeTenantMismatch, status: http.StatusForbidden},
		{code: CodeConcurrencyConflict, status: http.StatusConflict, retryable: true},
		{code: CodeConsistencyViolation, status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		assert.Equal(t, tt.status, meta.HTTPStatus, "status for %s", tt.code)
		assert.Equal(t, tt.retryable, meta.Retryable, "retryable for %s", tt.code)
		assert.Equal(t, tt.detailsOK, meta.DetailsAllowed, "details for %s", tt.code)
		assert.NotEmpty(t, meta.PublicMessage, "public message for %s", tt.code)
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeDependency, cause, "load position")
	require.True(t, stdErrors.Is(wrapped, cause))
	assert.Equal(t, CodeDependency, wrapped.Code())
	assert.Contains(t, wrapped.Error(), "boom")

	outer := fmt.Errorf("allocate: %w", wrapped)
	assert.True(t, HasCode(outer, CodeDependency))
	assert.False(t, HasCode(outer, CodeNotFound))
}

func TestInsufficientStockCarriesShortage(t *testing.T) {
	err := InsufficientStock(7, 8, 5)
	require.Equal(t, CodeInsufficientStock, err.Code())

	shortage, ok := err.Details().(StockShortage)
	require.True(t, ok)
	assert.Equal(t, StockShortage{ProductID: 7, Requested: 8, Available: 5}, shortage)
	assert.False(t, IsRetryable(err))
}

func TestOverPickedCarriesQuantities(t *testing.T) {
	err := OverPicked(3, 5, 4, 2)
	details, ok := err.Details().(OverPick)
	require.True(t, ok)
	assert.Equal(t, 5, details.TotalQuantity)
	assert.Equal(t, 4, details.PickedQuantity)
	assert.Equal(t, 2, details.Attempted)
}

func TestConcurrencyConflictIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(New(CodeConcurrencyConflict, "lock timeout")))
	assert.False(t, IsRetryable(stdErrors.New("plain")))
}

func TestDumpExtractsPgFields(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "40001", Message: "could not serialize access", TableName: "inventory_positions"}
	err := Wrap(CodeConcurrencyConflict, pgErr, "commit reservation")

	dump := Dump(err)
	assert.Equal(t, CodeConcurrencyConflict, dump.Code)
	assert.True(t, dump.Retryable)
	assert.Equal(t, "40001", dump.PGCode)
	assert.Equal(t, "inventory_positions", dump.PGTable)
	assert.Len(t, dump.Chain, 2)

	fields := dump.Fields()
	assert.Equal(t, "40001", fields["pg_code"])
	_, hasDetail := fields["pg_detail"]
	assert.False(t, hasDetail)
}
