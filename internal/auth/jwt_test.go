package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	token, err := GenerateJWT("device-123", "secret")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	deviceID, err := ValidateJWT(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, "device-123", deviceID)
}

func TestJWTWrongSecretRejected(t *testing.T) {
	token, err := GenerateJWT("device-123", "secret")
	require.NoError(t, err)

	_, err = ValidateJWT(token, "other-secret")
	assert.Error(t, err)
}

func TestJWTGarbageRejected(t *testing.T) {
	_, err := ValidateJWT("not-a-token", "secret")
	assert.Error(t, err)
}
