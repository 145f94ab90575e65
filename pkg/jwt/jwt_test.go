package jwt

import (
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret-key-for-unit-tests"

func TestGenerateParse_Identidad(t *testing.T) {
	id := Identity{UserID: "u-1", CompanyID: "c-1", Role: "emisor"}
	tok, err := Generate(secret, "nfe-api-test", id, time.Hour)
	require.NoError(t, err)

	got, err := Parse(secret, tok)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestParse_Expirado(t *testing.T) {
	tok, err := Generate(secret, "nfe-api-test", Identity{UserID: "u-1", Role: "admin"}, -time.Minute)
	require.NoError(t, err)

	_, err = Parse(secret, tok)
	assert.ErrorIs(t, err, gojwt.ErrTokenExpired)
}

func TestParse_SecretIncorrecto(t *testing.T) {
	tok, err := Generate(secret, "nfe-api-test", Identity{UserID: "u-1", Role: "admin"}, time.Hour)
	require.NoError(t, err)

	_, err = Parse("otro-secret-completamente-distinto", tok)
	assert.ErrorIs(t, err, gojwt.ErrTokenSignatureInvalid)
}

func TestParse_AlgoritmoNoPermitido(t *testing.T) {
	claims := Claims{RegisteredClaims: gojwt.RegisteredClaims{
		Subject:   "u-1",
		ExpiresAt: gojwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	tok, err := gojwt.NewWithClaims(gojwt.SigningMethodHS512, claims).SignedString([]byte(secret))
	require.NoError(t, err)

	_, err = Parse(secret, tok)
	assert.Error(t, err)
}

func TestSecretVacio(t *testing.T) {
	_, err := Generate("", "x", Identity{}, time.Hour)
	assert.ErrorIs(t, err, ErrEmptySecret)
	_, err = Parse("", "a.b.c")
	assert.ErrorIs(t, err, ErrEmptySecret)
}
