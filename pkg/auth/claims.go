package auth

import (
	"github.com/angelmondragon/wavepick-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	TenantID int64
	UserID   int64
	Role     enums.OperatorRole
	JTI      string
}

// AccessTokenClaims represents the typed JWT presented by warehouse clients.
// TenantID scopes every call made with the token.
type AccessTokenClaims struct {
	TenantID int64              `json:"tenant_id"`
	UserID   int64              `json:"user_id"`
	Role     enums.OperatorRole `json:"role"`
	jwt.RegisteredClaims
}
