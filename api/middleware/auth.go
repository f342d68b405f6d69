package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/angelmondragon/wavepick-backend/api/responses"
	pkgAuth "github.com/angelmondragon/wavepick-backend/pkg/auth"
	"github.com/angelmondragon/wavepick-backend/pkg/config"
	"github.com/angelmondragon/wavepick-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/wavepick-backend/pkg/errors"
	"github.com/angelmondragon/wavepick-backend/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the
// tenant and user it carries.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			ctx := WithIdentity(r.Context(), Identity{
				TenantID: claims.TenantID,
				UserID:   claims.UserID,
				Role:     claims.Role,
			})
			if logg != nil {
				ctx = logg.WithTenantID(ctx, claims.TenantID)
				ctx = logg.WithUserID(ctx, claims.UserID)
				ctx = logg.WithField(ctx, "actor_role", string(claims.Role))
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects callers whose token role is not in roles.
func RequireRole(logg *logger.Logger, roles ...enums.OperatorRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !slices.Contains(roles, RoleFromContext(r.Context())) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "role not permitted"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	token := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(token) >= 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return token
}
