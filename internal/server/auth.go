package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/desertthunder/skipper/internal/shared"
	"github.com/golang-jwt/jwt/v5"
)

const defaultTokenTTL = time.Hour

// AdminClaims are carried by admin bearer tokens.
type AdminClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// ClaimsFromContext returns the claims set by [Authenticator.Middleware].
func ClaimsFromContext(ctx context.Context) (*AdminClaims, bool) {
	c, ok := ctx.Value(claimsKey).(*AdminClaims)
	return c, ok
}

// Authenticator checks admin credentials and issues HS256 tokens.
type Authenticator struct {
	username string
	password string
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
}

// NewAuthenticator creates an [Authenticator] from the admin config.
func NewAuthenticator(cfg shared.AdminConfig) *Authenticator {
	ttl := cfg.TokenTTL.Duration
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &Authenticator{
		username: cfg.Username,
		password: cfg.Password,
		secret:   []byte(cfg.JWTSecret),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Login returns a signed token when username and password match. Unset
// credentials never match.
func (a *Authenticator) Login(username, password string) (string, error) {
	if a.username == "" || a.password == "" || len(a.secret) == 0 {
		return "", shared.ErrInvalidCredentials
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(a.password)) == 1
	if !userOK || !passOK {
		return "", shared.ErrInvalidCredentials
	}

	now := a.now()
	claims := AdminClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Verify parses and validates a token.
func (a *Authenticator) Verify(token string) (*AdminClaims, error) {
	if len(a.secret) == 0 {
		return nil, fmt.Errorf("%w: jwt secret not configured", shared.ErrNotAuthenticated)
	}

	claims := &AdminClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(a.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", shared.ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", shared.ErrNotAuthenticated, err)
	}
	if !parsed.Valid {
		return nil, shared.ErrNotAuthenticated
	}
	return claims, nil
}

// Middleware requires a bearer token: 401 when missing, 403 when invalid.
func (a *Authenticator) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r.Header.Get("Authorization"))
			if token == "" {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}

			claims, err := a.Verify(token)
			if err != nil {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
		})
	}
}

// bearerToken returns the second field of an Authorization header.
func bearerToken(header string) string {
	_, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}
