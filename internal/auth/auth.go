// Package auth provides HS256 bearer-token authentication for the API.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/openrisk-labs/kestrel/internal/domain"
)

// ErrInvalidCredentials is returned when the username/password pair does
// not match the configured service account.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Manager issues and verifies HS256 tokens for the configured account.
type Manager struct {
	cfg domain.AuthConfig
}

// Claims carries the token subject alongside the registered claims.
type Claims struct {
	jwt.RegisteredClaims
}

// NewManager creates a token manager. The secret must be non-empty when
// auth is enabled.
func NewManager(cfg domain.AuthConfig) (*Manager, error) {
	if cfg.Enabled && cfg.Secret == "" {
		return nil, errors.New("auth enabled but no secret configured")
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 30
	}
	return &Manager{cfg: cfg}, nil
}

// IssueToken validates the credentials and returns a signed token plus
// its lifetime in seconds.
func (m *Manager) IssueToken(username, password string) (string, int, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(m.cfg.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(m.cfg.Password)) == 1
	if !userOK || !passOK {
		return "", 0, ErrInvalidCredentials
	}

	now := time.Now()
	ttl := time.Duration(m.cfg.TokenTTL) * time.Minute

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			Issuer:    "kestrel",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(m.cfg.Secret))
	if err != nil {
		return "", 0, fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, int(ttl.Seconds()), nil
}

// Verify parses and validates a token string.
func (m *Manager) Verify(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(m.cfg.Secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	return claims, nil
}

// Middleware enforces a valid bearer token on protected routes. It is a
// no-op when auth is disabled.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.cfg.Enabled {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		if header == "" {
			unauthorized(w, "missing authorization header")
			return
		}

		if !strings.HasPrefix(header, "Bearer ") {
			unauthorized(w, "invalid authorization format")
			return
		}

		tokenStr := strings.TrimPrefix(header, "Bearer ")
		if _, err := m.Verify(tokenStr); err != nil {
			unauthorized(w, "invalid token")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Enabled reports whether auth enforcement is on.
func (m *Manager) Enabled() bool {
	return m.cfg.Enabled
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	fmt.Fprintf(w, `{"error":%q}`, msg)
}
