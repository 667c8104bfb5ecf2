package jwt

import (
	"testing"
	"time"

	"github.com/ApexGov/inspector/pkg/config"
	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_RoundTrip(t *testing.T) {
	m := NewJwtManager(&config.ServerConfig{SecretKey: "s3cret"})

	token, err := m.CreateToken("ops", time.Hour)
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Subject)
	assert.Equal(t, AdminRole, claims.Role)
}

func TestManager_ExpiredToken(t *testing.T) {
	m := NewJwtManager(&config.ServerConfig{SecretKey: "s3cret"}).(*manager)
	issued := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m.timeProvider = func() time.Time { return issued }

	token, err := m.CreateToken("ops", time.Minute)
	require.NoError(t, err)

	m.timeProvider = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = m.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestManager_WrongSecret(t *testing.T) {
	token, err := NewJwtManager(&config.ServerConfig{SecretKey: "a"}).CreateToken("ops", 0)
	require.NoError(t, err)

	_, err = NewJwtManager(&config.ServerConfig{SecretKey: "b"}).ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestManager_RejectsNonAdminRole(t *testing.T) {
	claims := &Claims{
		Role: "viewer",
		RegisteredClaims: gojwt.RegisteredClaims{
			ExpiresAt: gojwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	_, err = NewJwtManager(&config.ServerConfig{SecretKey: "s3cret"}).ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestManager_MissingSecret(t *testing.T) {
	m := NewJwtManager(&config.ServerConfig{})

	_, err := m.CreateToken("ops", 0)
	assert.ErrorIs(t, err, ErrMissingKey)
	_, err = m.ValidateToken("anything")
	assert.ErrorIs(t, err, ErrMissingKey)
}
