package auth

import (
	"github.com/angelmondragon/retailops-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Role   enums.OperatorRole
	JTI    string
}

// AccessTokenClaims represents the typed JWT issued to console operators.
type AccessTokenClaims struct {
	UserID uuid.UUID          `json:"user_id"`
	Role   enums.OperatorRole `json:"role"`
	jwt.RegisteredClaims
}
