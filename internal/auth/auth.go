// Package auth resolves the authenticated principal of a request.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CookieName is the cookie the front end stores the session token in.
const CookieName = "token"

var ErrUnauthenticated = errors.New("unauthenticated")

// Principal is the authenticated caller.
type Principal struct {
	ID         int64  `json:"id"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	SuperAdmin bool   `json:"superAdmin"`
}

// Resolver extracts a Principal from a request.
type Resolver interface {
	Resolve(r *http.Request) (Principal, error)
}

// Claims is the token payload.
type Claims struct {
	ID         int64  `json:"id"`
	Email      string `json:"email"`
	Role       string `json:"role,omitempty"`
	SuperAdmin bool   `json:"superAdmin,omitempty"`
	jwt.RegisteredClaims
}

// JWTResolver validates HS256 tokens signed with a shared secret.
type JWTResolver struct {
	secret []byte
	now    func() time.Time
}

func NewJWTResolver(secret string) *JWTResolver {
	return &JWTResolver{secret: []byte(secret), now: time.Now}
}

func (j *JWTResolver) Resolve(r *http.Request) (Principal, error) {
	raw := tokenFromRequest(r)
	if raw == "" {
		return Principal{}, ErrUnauthenticated
	}
	return j.Parse(raw)
}

// Parse validates a raw token string.
func (j *JWTResolver) Parse(raw string) (Principal, error) {
	if len(j.secret) == 0 {
		return Principal{}, fmt.Errorf("%w: signing secret not configured", ErrUnauthenticated)
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return j.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(j.now))
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if !token.Valid {
		return Principal{}, ErrUnauthenticated
	}
	if claims.ID <= 0 || strings.TrimSpace(claims.Email) == "" {
		return Principal{}, fmt.Errorf("%w: token without id or email", ErrUnauthenticated)
	}

	return Principal{
		ID:         claims.ID,
		Email:      claims.Email,
		Role:       claims.Role,
		SuperAdmin: claims.SuperAdmin,
	}, nil
}

// Issue signs a token for p that expires after ttl.
func (j *JWTResolver) Issue(p Principal, ttl time.Duration) (string, error) {
	now := j.now()
	claims := Claims{
		ID:         p.ID,
		Email:      p.Email,
		Role:       p.Role,
		SuperAdmin: p.SuperAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func tokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	header := r.Header.Get("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the principal stored by WithPrincipal.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
