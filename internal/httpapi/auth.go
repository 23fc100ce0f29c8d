package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the authenticated caller attached to a request's context.
// Real identity management (users, roles, credential storage) is an
// external collaborator this repo treats as out of scope; Subject is
// whatever the login call was given.
type Identity struct {
	Subject string
}

type contextKey string

const identityContextKey contextKey = "httpapi:identity"

// IdentityFromContext retrieves the authenticated identity a prior call to
// RequireAuth attached to ctx.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey).(Identity)
	return id, ok
}

// Authenticator validates bearer tokens and issues new ones. The
// concrete implementation wired by cmd/server is a deliberately minimal
// stand-in for a real identity provider (spec.md treats authentication as
// an opaque identity token validator, named only by interface).
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (Identity, error)
	IssueToken(ctx context.Context, username, password string) (token string, expiresAt time.Time, err error)
}

// jwtClaims is the token payload. Subject carries the login username; no
// other identity fields exist because nothing downstream of auth needs
// them.
type jwtClaims struct {
	jwt.RegisteredClaims
}

// jwtAuthenticator issues and validates HS256 JWTs signed with SECRET_KEY.
// Since no identity store is in scope, IssueToken accepts any non-empty
// username/password pair; a real provider would verify against stored
// credentials behind the same interface.
type jwtAuthenticator struct {
	secret []byte
	expiry time.Duration
}

// NewJWTAuthenticator builds an Authenticator signing/verifying tokens
// with secret, expiring new tokens after expiry.
func NewJWTAuthenticator(secret string, expiry time.Duration) Authenticator {
	return &jwtAuthenticator{secret: []byte(secret), expiry: expiry}
}

func (a *jwtAuthenticator) IssueToken(_ context.Context, username, password string) (string, time.Time, error) {
	if username == "" || password == "" {
		return "", time.Time{}, errors.New("httpapi: username and password are required")
	}
	now := time.Now()
	expiresAt := now.Add(a.expiry)
	claims := jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("httpapi: sign token: %w", err)
	}
	return signed, expiresAt, nil
}

func (a *jwtAuthenticator) Authenticate(_ context.Context, tokenString string) (Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwtClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("httpapi: unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("httpapi: invalid token: %w", err)
	}
	claims, ok := token.Claims.(*jwtClaims)
	if !ok || !token.Valid {
		return Identity{}, errors.New("httpapi: invalid token")
	}
	return Identity{Subject: claims.Subject}, nil
}

// RequireAuth extracts a Bearer token from the Authorization header,
// validates it via authr, and attaches the resulting Identity to the
// request context. Missing or invalid tokens are rejected with 401 before
// the wrapped handler ever runs.
func RequireAuth(authr Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				writeErrorMessage(w, http.StatusUnauthorized, "missing authorization header")
				return
			}
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				writeErrorMessage(w, http.StatusUnauthorized, "invalid authorization header format")
				return
			}
			identity, err := authr.Authenticate(r.Context(), parts[1])
			if err != nil {
				writeErrorMessage(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			ctx := context.WithValue(r.Context(), identityContextKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "malformed request body")
		return
	}
	token, expiresAt, err := s.Auth.IssueToken(r.Context(), body.Username, body.Password)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid credentials")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": token,
		"token_type":   "Bearer",
		"expires_at":   expiresAt,
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		writeErrorMessage(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"subject": identity.Subject})
}
