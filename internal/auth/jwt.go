package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenManager signs and validates the JWTs used for dashboard
// sessions. The secret comes from configuration; tokens are HS256.
type TokenManager struct {
	secret []byte
}

func NewTokenManager(secret string) *TokenManager {
	return &TokenManager{secret: []byte(secret)}
}

// GenerateToken creates a new JWT for a given user ID.
func (t *TokenManager) GenerateToken(userID int64) (string, error) {
	// "sub" is the standard claim for the user ID. Tokens live for
	// 72 hours; the dashboard re-authenticates after that.
	claims := jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(time.Hour * 72).Unix(),
		"iat": time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString(t.secret)
}

// ValidateToken parses and validates a JWT token string.
// It returns the user ID (subject) if the token is valid.
func (t *TokenManager) ValidateToken(tokenString string) (int64, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Reject tokens signed with anything but our HMAC method.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return t.secret, nil
	})
	if err != nil {
		return 0, err // expired or malformed
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		// JSON numbers arrive as float64.
		userIDFloat, ok := claims["sub"].(float64)
		if !ok {
			return 0, errors.New("invalid subject claim")
		}
		return int64(userIDFloat), nil
	}

	return 0, errors.New("invalid token")
}
