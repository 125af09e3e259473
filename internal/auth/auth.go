// Package auth resolves the calling user of an HTTP request.
package auth

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/vytor/chesscycles/internal/errors"
)

// Identity modes accepted by New.
const (
	ModeJWT    = "jwt"
	ModeHeader = "header"
)

// DefaultHeader is read in header mode when no other header is configured.
const DefaultHeader = "X-User-ID"

// DefaultTokenTTL is the lifetime of tokens minted by IssueToken.
const DefaultTokenTTL = 72 * time.Hour

// Resolver extracts the authenticated user id from a request. Failures are
// UNAUTHORIZED AppErrors.
type Resolver interface {
	Resolve(r *http.Request) (string, error)
}

// New builds the resolver for mode.
func New(mode, header, secret string) (Resolver, error) {
	switch mode {
	case ModeJWT:
		if secret == "" {
			return nil, fmt.Errorf("jwt identity mode requires a secret")
		}
		return NewJWTResolver(secret), nil
	case ModeHeader:
		if header == "" {
			header = DefaultHeader
		}
		return HeaderResolver{Header: header}, nil
	default:
		return nil, fmt.Errorf("unknown identity mode %q", mode)
	}
}

// HeaderResolver trusts a header set by an authenticating reverse proxy.
// Only use it when clients cannot reach the server directly.
type HeaderResolver struct {
	Header string
}

func (h HeaderResolver) Resolve(r *http.Request) (string, error) {
	userID := strings.TrimSpace(r.Header.Get(h.Header))
	if userID == "" {
		return "", errors.NewUnauthorizedError("missing caller identity")
	}
	return userID, nil
}

// JWTResolver verifies an HS256 bearer token and reads the user id from its
// "sub" claim, falling back to "user_id".
type JWTResolver struct {
	secret []byte
	now    func() time.Time
}

func NewJWTResolver(secret string) *JWTResolver {
	return &JWTResolver{secret: []byte(secret), now: time.Now}
}

func (j *JWTResolver) Resolve(r *http.Request) (string, error) {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return "", errors.NewUnauthorizedError("missing authorization token")
	}
	tokenString, ok := cutBearer(raw)
	if !ok {
		return "", errors.NewUnauthorizedError("authorization header must use the Bearer scheme")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return j.secret, nil
	})
	if err != nil {
		return "", &errors.AppError{
			Code:    errors.ErrCodeUnauthorized,
			Message: "invalid token",
			Status:  http.StatusUnauthorized,
			Err:     err,
		}
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", errors.NewUnauthorizedError("invalid token claims")
	}
	// Parse only checks exp when present; tokens without one never expire.
	if !claims.VerifyExpiresAt(j.now().Unix(), true) {
		return "", errors.NewUnauthorizedError("token has no valid expiry")
	}

	userID := subject(claims)
	if userID == "" {
		return "", errors.NewUnauthorizedError("token carries no user id")
	}
	return userID, nil
}

// IssueToken mints a token JWTResolver accepts.
func IssueToken(secret, userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": userID,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func cutBearer(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func subject(claims jwt.MapClaims) string {
	for _, key := range []string{"sub", "user_id"} {
		switch v := claims[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			if v == float64(int64(v)) {
				return strconv.FormatInt(int64(v), 10)
			}
		}
	}
	return ""
}
