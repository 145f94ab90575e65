package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrEmptySecret el secreto HMAC no está configurado.
var ErrEmptySecret = errors.New("jwt: secret vacío")

// Identity quién opera: usuario, empresa emisora y rol RBAC.
type Identity struct {
	UserID    string
	CompanyID string
	Role      string // "admin" | "emisor" | "auditor"
}

// Claims claims registrados más la empresa y el rol. El usuario viaja en "sub".
type Claims struct {
	jwt.RegisteredClaims
	CompanyID string `json:"company_id"`
	Role      string `json:"role"`
}

// Generate firma (HS256) un token para la identidad con vigencia ttl.
func Generate(secret, issuer string, id Identity, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		CompanyID: id.CompanyID,
		Role:      id.Role,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Parse valida firma y expiración y devuelve la identidad del token.
func Parse(secret, tokenString string) (Identity, error) {
	if secret == "" {
		return Identity{}, ErrEmptySecret
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return Identity{}, fmt.Errorf("jwt: %w", err)
	}
	return Identity{UserID: claims.Subject, CompanyID: claims.CompanyID, Role: claims.Role}, nil
}
