package waves

import (
	"net/http"

	"github.com/angelmondragon/wavepick-backend/api/middleware"
	"github.com/angelmondragon/wavepick-backend/api/responses"
	"github.com/angelmondragon/wavepick-backend/api/validators"
	"github.com/angelmondragon/wavepick-backend/internal/picking"
	internalwaves "github.com/angelmondragon/wavepick-backend/internal/waves"
	"github.com/angelmondragon/wavepick-backend/pkg/logger"
)

type createWaveRequest struct {
	OrderIDs []int64 `json:"order_ids" validate:"required,min=1,max=200,unique,dive,gt=0"`
}

type pickRequest struct {
	Quantity int `json:"quantity" validate:"required,gt=0"`
}

// Create releases a set of pending orders to the floor as one wave.
func Create(svc internalwaves.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createWaveRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, _ := middleware.IdentityFromContext(r.Context())
		wave, err := svc.CreateWave(r.Context(), internalwaves.CreateWaveInput{
			TenantID:    id.TenantID,
			OrderIDs:    req.OrderIDs,
			ActorUserID: id.UserID,
			ActorRole:   string(id.Role),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, wave)
	}
}

// Get returns the wave with its items, orders and picking progress.
func Get(svc internalwaves.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		waveID, err := validators.ParsePathID(r, "waveId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		detail, err := svc.GetWave(r.Context(), middleware.TenantIDFromContext(r.Context()), waveID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

func Cancel(svc internalwaves.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		waveID, err := validators.ParsePathID(r, "waveId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, _ := middleware.IdentityFromContext(r.Context())
		wave, err := svc.CancelWave(r.Context(), internalwaves.CancelWaveInput{
			TenantID:    id.TenantID,
			WaveID:      waveID,
			ActorUserID: id.UserID,
			ActorRole:   string(id.Role),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, wave)
	}
}

// ConfirmPick records units taken off the shelf for one wave item.
func ConfirmPick(svc picking.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := validators.ParsePathID(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req pickRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, _ := middleware.IdentityFromContext(r.Context())
		result, err := svc.ConfirmPick(r.Context(), picking.ConfirmPickInput{
			TenantID:    id.TenantID,
			WaveItemID:  itemID,
			Quantity:    req.Quantity,
			ActorUserID: id.UserID,
			ActorRole:   string(id.Role),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
