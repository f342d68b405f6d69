package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	pkgAuth "github.com/angelmondragon/wavepick-backend/pkg/auth"
	"github.com/angelmondragon/wavepick-backend/pkg/config"
	"github.com/angelmondragon/wavepick-backend/pkg/enums"
	"github.com/angelmondragon/wavepick-backend/pkg/logger"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "wavepick", ExpirationMinutes: 10}

func mintToken(t *testing.T, tenantID, userID int64, role enums.OperatorRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(testJWT, time.Now(), pkgAuth.AccessTokenPayload{TenantID: tenantID, UserID: userID, Role: role})
	require.NoError(t, err)
	return token
}

func TestAuthSeedsIdentity(t *testing.T) {
	var got Identity
	handler := Auth(testJWT, logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ok bool
		got, ok = IdentityFromContext(r.Context())
		require.True(t, ok)
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/waves/1", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, 7, 42, enums.OperatorRolePicker))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	require.Equal(t, http.StatusNoContent, resp.Code)
	require.Equal(t, Identity{TenantID: 7, UserID: 42, Role: enums.OperatorRolePicker}, got)
}

func TestAuthRejectsMissingAndInvalidTokens(t *testing.T) {
	handler := Auth(testJWT, nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run")
	}))

	for _, header := range []string{"", "Bearer ", "Bearer not-a-jwt"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/waves/1", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		require.Equal(t, http.StatusUnauthorized, resp.Code, "header %q", header)
	}
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole(nil, enums.OperatorRoleSupervisor, enums.OperatorRoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	picker := httptest.NewRequest(http.MethodPost, "/api/v1/reconcile", nil)
	picker = picker.WithContext(WithIdentity(picker.Context(), Identity{TenantID: 1, UserID: 1, Role: enums.OperatorRolePicker}))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, picker)
	require.Equal(t, http.StatusForbidden, resp.Code)

	admin := httptest.NewRequest(http.MethodPost, "/api/v1/reconcile", nil)
	admin = admin.WithContext(WithIdentity(admin.Context(), Identity{TenantID: 1, UserID: 1, Role: enums.OperatorRoleAdmin}))
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, admin)
	require.Equal(t, http.StatusOK, resp.Code)
}
