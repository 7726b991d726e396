package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/retailops-backend/pkg/config"
	"github.com/angelmondragon/retailops-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func testJWTConfig(minutes int) config.JWTConfig {
	return config.JWTConfig{
		Secret:            "secret",
		Issuer:            "retailops",
		ExpirationMinutes: minutes,
	}
}

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := testJWTConfig(30)
	now := time.Now().UTC()
	userID := uuid.New()

	token, err := MintAccessToken(cfg, now, AccessTokenPayload{
		UserID: userID,
		Role:   enums.OperatorRoleManager,
	})
	require.NoError(t, err)

	claims, err := ParseAccessToken(cfg, token)
	require.NoError(t, err)
	require.Equal(t, userID, claims.UserID)
	require.Equal(t, enums.OperatorRoleManager, claims.Role)
	require.Equal(t, cfg.Issuer, claims.Issuer)
	require.Equal(t, userID.String(), claims.Subject)
	require.NotEmpty(t, claims.ID)

	exp := now.Add(30 * time.Minute)
	require.WithinDuration(t, exp, claims.ExpiresAt.Time, time.Second)
}

func TestParseAccessTokenInvalidSignature(t *testing.T) {
	cfg := testJWTConfig(10)
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{
		UserID: uuid.New(),
		Role:   enums.OperatorRoleClerk,
	})
	require.NoError(t, err)

	_, err = ParseAccessToken(cfg, token+"x")
	require.Error(t, err)
}

func TestParseAccessTokenWrongIssuer(t *testing.T) {
	cfg := testJWTConfig(10)
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{
		UserID: uuid.New(),
		Role:   enums.OperatorRoleClerk,
	})
	require.NoError(t, err)

	other := cfg
	other.Issuer = "someone-else"
	_, err = ParseAccessToken(other, token)
	require.Error(t, err)
}

func TestParseAccessTokenExpired(t *testing.T) {
	cfg := testJWTConfig(15)
	token, err := MintAccessToken(cfg, time.Now().Add(-time.Hour), AccessTokenPayload{
		UserID: uuid.New(),
		Role:   enums.OperatorRoleAdmin,
	})
	require.NoError(t, err)

	_, err = ParseAccessToken(cfg, token)
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "expired"), "unexpected error: %v", err)
}

func TestMintAccessTokenValidation(t *testing.T) {
	cfg := testJWTConfig(5)
	now := time.Now()

	_, err := MintAccessToken(cfg, now, AccessTokenPayload{UserID: uuid.New(), Role: ""})
	require.Error(t, err)

	_, err = MintAccessToken(cfg, now, AccessTokenPayload{Role: enums.OperatorRoleClerk})
	require.Error(t, err)

	_, err = MintAccessToken(config.JWTConfig{Issuer: "retailops"}, now, AccessTokenPayload{UserID: uuid.New(), Role: enums.OperatorRoleClerk})
	require.Error(t, err)
}
