package reconcile

import (
	"context"
	"net/http"

	"github.com/angelmondragon/wavepick-backend/api/middleware"
	"github.com/angelmondragon/wavepick-backend/api/responses"
	"github.com/angelmondragon/wavepick-backend/internal/reconciler"
	pkgerrors "github.com/angelmondragon/wavepick-backend/pkg/errors"
	"github.com/angelmondragon/wavepick-backend/pkg/logger"
)

// Runner recomputes reserved counters from the reservation rows.
type Runner interface {
	Reconcile(ctx context.Context, tenantID *int64) (reconciler.Result, error)
}

var _ Runner = (*reconciler.Reconciler)(nil)

type reconcileResponse struct {
	reconciler.Result
	Complete bool `json:"complete"`
}

// Tenant reconciles the caller's tenant. A sweep that fixed or flagged
// positions before a storage failure still answers 200 with complete=false.
func Tenant(runner Runner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := middleware.TenantIDFromContext(r.Context())
		if tenantID <= 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "identity missing"))
			return
		}
		result, err := runner.Reconcile(r.Context(), &tenantID)
		if err != nil && result.Fixed == 0 && result.Errors == 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reconcile reservations"))
			return
		}
		responses.WriteSuccess(w, reconcileResponse{Result: result, Complete: err == nil})
	}
}
