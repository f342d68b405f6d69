package catalog

import (
	"net/http"

	"github.com/angelmondragon/wavepick-backend/api/middleware"
	"github.com/angelmondragon/wavepick-backend/api/responses"
	"github.com/angelmondragon/wavepick-backend/api/validators"
	internalcatalog "github.com/angelmondragon/wavepick-backend/internal/catalog"
	"github.com/angelmondragon/wavepick-backend/pkg/enums"
	"github.com/angelmondragon/wavepick-backend/pkg/locationcode"
	"github.com/angelmondragon/wavepick-backend/pkg/logger"
)

type createProductRequest struct {
	SKU         string `json:"sku" validate:"required,max=64"`
	Description string `json:"description" validate:"max=500"`
}

type createLocationRequest struct {
	Code         string `json:"code" validate:"required,location_code"`
	Zone         string `json:"zone" validate:"max=32"`
	LocationType string `json:"location_type" validate:"omitempty,oneof=whole fraction"`
}

// CreateProduct adds a SKU to the tenant's product directory.
func CreateProduct(svc internalcatalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createProductRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.CreateProduct(r.Context(), internalcatalog.CreateProductInput{
			TenantID:    middleware.TenantIDFromContext(r.Context()),
			SKU:         validators.SanitizeCode(req.SKU, 64),
			Description: validators.SanitizeString(req.Description, 500),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

func GetProduct(svc internalcatalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.ParsePathID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.GetProduct(r.Context(), middleware.TenantIDFromContext(r.Context()), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// CreateLocation registers a bin. The type is inferred from the code when
// the body omits it.
func CreateLocation(svc internalcatalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createLocationRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		locationType := enums.LocationType(req.LocationType)
		if locationType == "" {
			locationType, _ = locationcode.Detect(req.Code)
		}
		location, err := svc.CreateLocation(r.Context(), internalcatalog.CreateLocationInput{
			TenantID:     middleware.TenantIDFromContext(r.Context()),
			Code:         req.Code,
			Zone:         validators.SanitizeString(req.Zone, 32),
			LocationType: locationType,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, location)
	}
}

func GetLocation(svc internalcatalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		locationID, err := validators.ParsePathID(r, "locationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		location, err := svc.GetLocation(r.Context(), middleware.TenantIDFromContext(r.Context()), locationID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, location)
	}
}
