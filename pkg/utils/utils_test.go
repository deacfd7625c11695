package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWT_RoundTrip(t *testing.T) {
	token, err := GenerateJWTToken("secret", Claims{UserID: "u1", Username: "ana", Role: "nurse", FacilityID: "f1"}, time.Now().Add(time.Hour))
	require.NoError(t, err)

	claims, err := ValidateJWTToken("secret", token)
	require.NoError(t, err)
	assert.Equal(t, "ana", claims.Username)
	assert.Equal(t, "f1", claims.FacilityID)
	assert.Equal(t, "u1", claims.Subject)
	assert.False(t, claims.IsAdmin())

	_, err = ValidateJWTToken("other", token)
	assert.Error(t, err)
}

func TestJWT_Expired(t *testing.T) {
	token, err := GenerateJWTToken("secret", Claims{UserID: "u1", Role: "admin"}, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	_, err = ValidateJWTToken("secret", token)
	assert.Error(t, err)

	_, err = GenerateJWTToken("", Claims{}, time.Now())
	assert.Error(t, err)
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("s3nha")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "s3nha"))
	assert.False(t, CheckPassword(hash, "wrong"))
}
