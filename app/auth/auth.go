// Package auth implements the bearer token gate protecting the api. All callers share a single
// secret, a token is valid if it is signed with HS512 under that secret and not expired.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/golang-jwt/jwt/v5"
)

// ErrUnauthorized returned for any token failing verification
var ErrUnauthorized = errors.New("unauthorized")

// ErrEmptySecret returned by IssueToken if secret not set
var ErrEmptySecret = errors.New("empty secret")

const (
	subject = "thresh:agent"
	company = "thresh"
	expires = 10_000_000_000 // year 2286, tokens practically don't expire
)

// Claims of issued tokens
type Claims struct {
	Company string `json:"company"`
	jwt.RegisteredClaims
}

// IssueToken makes a token for the fixed agent principal, signed with secret
func IssueToken(secret string) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}
	claims := Claims{
		Company: company,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Unix(expires, 0)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("can't sign token: %w", err)
	}
	return token, nil
}

// Authorize checks token signature and expiration. Claim content is not checked.
func Authorize(secret, token string) error {
	_, err := verify(secret, token, time.Now)
	return err
}

func verify(secret, token string, now func() time.Time) (*Claims, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, ErrEmptySecret)
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) { return []byte(secret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	return claims, nil
}

// Gate is an http middleware allowing requests with a valid bearer token
type Gate struct {
	secret string
	now    func() time.Time
}

// NewGate makes a gate for secret
func NewGate(secret string) *Gate {
	return &Gate{secret: secret, now: time.Now}
}

// Middleware rejects requests without a valid "Authorization: Bearer <token>" header, the scheme is case-insensitive
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scheme, token, _ := strings.Cut(r.Header.Get("Authorization"), " ")
		if !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			g.reject(w, r, errors.New("no bearer token"))
			return
		}
		claims, err := verify(g.secret, strings.TrimSpace(token), g.now)
		if err != nil {
			g.reject(w, r, err)
			return
		}
		log.Printf("[DEBUG] authorized %s for %s %s", claims.Subject, r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

func (g *Gate) reject(w http.ResponseWriter, r *http.Request, err error) {
	log.Printf("[WARN] rejected %s %s from %s: %v", r.Method, r.URL.Path, r.RemoteAddr, err)
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"}); err != nil {
		log.Printf("[WARN] failed to encode JSON error response: %v", err)
	}
}
