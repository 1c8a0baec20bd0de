package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CallerClaims identifies a caller on the query surface. CallerID keys the
// admission controller's token bucket; Tier participates in the cache
// fingerprint.
type CallerClaims struct {
	CallerID  string
	Tier      string
	IssuedAt  int64
	ExpiresAt int64
}

// jwtClaims wraps CallerClaims for JWT compatibility
type jwtClaims struct {
	Tier string `json:"tier,omitempty"`
	jwt.RegisteredClaims
}

// Adapter signs and verifies caller identity tokens using HS256 JWTs.
// The JWT subject claim is the caller ID.
type Adapter struct {
	jwtSecret []byte
}

// NewAdapter creates a new auth adapter with the given JWT secret
func NewAdapter(jwtSecret string) *Adapter {
	return &Adapter{
		jwtSecret: []byte(jwtSecret),
	}
}

// GenerateToken creates a signed JWT for a caller
func (a *Adapter) GenerateToken(callerID, tier string, ttl time.Duration) (string, error) {
	now := time.Now()
	jc := jwtClaims{
		Tier: tier,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   callerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jc)
	return token.SignedString(a.jwtSecret)
}

// ParseToken validates a JWT and extracts caller claims
func (a *Adapter) ParseToken(tokenString string) (*CallerClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwtClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.jwtSecret, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*jwtClaims); ok && token.Valid {
		cc := &CallerClaims{
			CallerID: claims.Subject,
			Tier:     claims.Tier,
		}
		if claims.IssuedAt != nil {
			cc.IssuedAt = claims.IssuedAt.Unix()
		}
		if claims.ExpiresAt != nil {
			cc.ExpiresAt = claims.ExpiresAt.Unix()
		}
		if cc.CallerID == "" {
			return nil, fmt.Errorf("token missing subject claim")
		}
		return cc, nil
	}

	return nil, fmt.Errorf("invalid token claims")
}
