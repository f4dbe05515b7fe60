package jwt

import (
	"errors"
	"fmt"
	"time"

	"tablesafe/backend/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// GenerateToken creates a new JWT for a given user ID.
func GenerateToken(userID uint) (string, error) {
	ttl := time.Duration(config.AppConfig.JWTTTLHours) * time.Hour
	claims := jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(ttl).Unix(),
		"iat": time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString([]byte(config.AppConfig.JWTSecret))
}

// ParseToken validates an HS256 token and returns its subject.
func ParseToken(tokenString string) (uint, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(config.AppConfig.JWTSecret), nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return 0, ErrInvalidToken
	}
	sub, ok := claims["sub"].(float64)
	if !ok || sub <= 0 {
		return 0, ErrInvalidToken
	}
	return uint(sub), nil
}
