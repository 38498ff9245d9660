package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/inkpress/inkpress/config"
)

// TokenTTL is the lifetime of a session token and of its cookie.
const TokenTTL = 7 * 24 * time.Hour

// Claims defines JWT claims used in the application.
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateToken issues a JWT for the specified user identity.
func GenerateToken(userID, username, role string, duration time.Duration) (string, error) {
	cfg := config.Get()
	if cfg.JWTSecret == "" {
		return "", errors.New("jwt secret not configured")
	}

	now := time.Now()
	claims := Claims{
		UserID:   userID,
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

// ParseToken validates a JWT and returns its claims.
func ParseToken(tokenStr string) (*Claims, error) {
	cfg := config.Get()
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.UserID == "" {
		return nil, errors.New("invalid token claims")
	}

	return claims, nil
}

// TokenExpiry returns the expiry of a token that parses, used when revoking it.
func TokenExpiry(claims *Claims) time.Time {
	if claims == nil || claims.ExpiresAt == nil {
		return time.Now().Add(TokenTTL)
	}
	return claims.ExpiresAt.Time
}
