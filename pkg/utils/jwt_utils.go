package utils

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenTTL is the lifetime of tokens issued by GenerateAccessToken.
const AccessTokenTTL = 15 * time.Minute

var (
	jwtMu        sync.RWMutex
	jwtSecretKey []byte
)

// ErrJWTSecretNotSet is returned when tokens are signed or verified before SetJWTSecret.
var ErrJWTSecretNotSet = errors.New("jwt secret is not configured")

// SetJWTSecret sets the HS256 key shared with the auth subsystem.
func SetJWTSecret(secret string) {
	jwtMu.Lock()
	defer jwtMu.Unlock()
	jwtSecretKey = []byte(secret)
}

func secretKey() ([]byte, error) {
	jwtMu.RLock()
	defer jwtMu.RUnlock()
	if len(jwtSecretKey) == 0 {
		return nil, ErrJWTSecretNotSet
	}
	return jwtSecretKey, nil
}

// Claims defines the JWT claims structure. Slug identifies the calling user.
type Claims struct {
	Slug string `json:"slug"`
	jwt.RegisteredClaims
}

// GenerateAccessToken creates a signed access token for the user slug.
func GenerateAccessToken(slug string) (string, error) {
	key, err := secretKey()
	if err != nil {
		return "", err
	}
	now := time.Now()
	claims := &Claims{
		Slug: slug,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(AccessTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "restaurant-order-backend",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken parses and validates a JWT token string.
// It returns the claims if the token is valid, otherwise an error.
func ValidateToken(tokenString string) (*Claims, error) {
	key, err := secretKey()
	if err != nil {
		return nil, err
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return key, nil
	})
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if IsEmpty(claims.Slug) {
		return nil, fmt.Errorf("token has no slug claim")
	}
	return claims, nil
}
