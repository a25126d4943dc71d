package auth

import (
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrRevoked is returned for a token issued before the last RevokeAll.
var ErrRevoked = errors.New("token revoked")

// Claims are the JWT claims issued at login.
type Claims struct {
	jwt.RegisteredClaims
	Username   string `json:"username"`
	Generation int64  `json:"gen"`
}

// Issuer signs and checks HS256 session tokens.
type Issuer struct {
	secret     []byte
	ttl        time.Duration
	now        func() time.Time
	generation atomic.Int64
}

func NewIssuer(secret []byte, ttl time.Duration) *Issuer {
	return &Issuer{secret: secret, ttl: ttl, now: time.Now}
}

// SetClock replaces the time source for issuing and checking expiry.
func (is *Issuer) SetClock(now func() time.Time) {
	is.now = now
}

// Issue returns a signed token for the user and its expiry.
func (is *Issuer) Issue(userID int, username string) (string, time.Time, error) {
	now := is.now()
	expire := now.Add(is.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expire),
		},
		Username:   username,
		Generation: is.generation.Load(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(is.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expire, nil
}

// Parse verifies the signature, expiry and generation of a token and
// returns the user ID it was issued to.
func (is *Issuer) Parse(token string) (int, *Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return is.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(is.now), jwt.WithExpirationRequired())
	if err != nil {
		return 0, nil, fmt.Errorf("parse token: %w", err)
	}
	if claims.Generation != is.generation.Load() {
		return 0, nil, ErrRevoked
	}
	id, err := strconv.Atoi(claims.Subject)
	if err != nil {
		return 0, nil, fmt.Errorf("token subject %q: %w", claims.Subject, err)
	}
	return id, &claims, nil
}

// RevokeAll invalidates every token issued so far.
func (is *Issuer) RevokeAll() {
	is.generation.Add(1)
}
