// Package devicetoken issues and verifies the HS256 tokens upload devices
// send as "Authorization: Bearer <token>".
package devicetoken

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken covers malformed, expired or wrongly signed tokens.
var ErrInvalidToken = errors.New("invalid token")

// Claims identify the device.
type Claims struct {
	Device string `json:"device"`
	jwt.RegisteredClaims
}

// Issue signs a token for device. ttl <= 0 issues a token without expiry.
func Issue(secret []byte, device string, ttl time.Duration) (string, error) {
	device = strings.TrimSpace(device)
	if device == "" {
		return "", fmt.Errorf("device name required")
	}
	now := time.Now()
	claims := Claims{
		Device: device,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  device,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// Verify checks the signature and expiry and returns the claims.
func Verify(secret []byte, token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrInvalidKeyType
		}
		return secret, nil
	})
	if err != nil || !parsed.Valid || claims.Device == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// FromHeader extracts the token from an Authorization header value.
func FromHeader(h string) (string, bool) {
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	tok := strings.TrimSpace(h[len(prefix):])
	return tok, tok != ""
}
