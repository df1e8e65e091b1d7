package utils

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// jwtSecretKey signs and verifies JWT tokens. Resolved once from the
// environment; the default exists for local development only.
var jwtSecretKey = []byte(Getenv("JWT_SECRET", "comandero-dev-secret-do-not-use-in-prod"))

const AccessTokenTTL = 12 * time.Hour

// Claims defines the JWT claims structure. BusinessID identifies the active
// tenant; every fulfillment operation is scoped by it.
type Claims struct {
	UserID     int64  `json:"user_id"`
	Username   string `json:"username"`
	BusinessID string `json:"business_id"`
	jwt.RegisteredClaims
}

// GenerateAccessToken creates a new JWT access token for the given user and
// active business.
func GenerateAccessToken(userID int64, username, businessID string) (string, error) {
	expirationTime := time.Now().Add(AccessTokenTTL)
	claims := &Claims{
		UserID:     userID,
		Username:   username,
		BusinessID: businessID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "comandero-backend",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(jwtSecretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken parses and validates a JWT token string.
// It returns the claims if the token is valid, otherwise an error.
func ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return jwtSecretKey, nil
	})

	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	return claims, nil
}
