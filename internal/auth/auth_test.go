package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vytor/chesscycles/internal/auth"
	"github.com/vytor/chesscycles/internal/errors"
)

const secret = "test-secret"

func sign(t *testing.T, key string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return token
}

func unsigned(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	return token
}

func bearer(token string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/me/progress", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	return r
}

func TestJWTResolver_AcceptsValidTokens(t *testing.T) {
	exp := time.Now().Add(time.Hour).Unix()
	tests := []struct {
		name   string
		claims jwt.MapClaims
		want   string
	}{
		{"sub claim", jwt.MapClaims{"sub": "u1", "exp": exp}, "u1"},
		{"string user_id", jwt.MapClaims{"user_id": "u2", "exp": exp}, "u2"},
		{"numeric user_id", jwt.MapClaims{"user_id": 42, "exp": exp}, "42"},
		{"sub wins", jwt.MapClaims{"sub": "u3", "user_id": "other", "exp": exp}, "u3"},
	}

	r := auth.NewJWTResolver(secret)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(bearer(sign(t, secret, tt.claims)))

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestJWTResolver_RejectsBadTokens(t *testing.T) {
	exp := time.Now().Add(time.Hour).Unix()
	tests := []struct {
		name  string
		token string
	}{
		{"wrong secret", sign(t, "other-secret", jwt.MapClaims{"sub": "u1", "exp": exp})},
		{"expired", sign(t, secret, jwt.MapClaims{"sub": "u1", "exp": time.Now().Add(-time.Minute).Unix()})},
		{"no expiry", sign(t, secret, jwt.MapClaims{"sub": "u1"})},
		{"no user", sign(t, secret, jwt.MapClaims{"exp": exp})},
		{"unsigned", unsigned(t, jwt.MapClaims{"sub": "u1", "exp": exp})},
		{"garbage", "not.a.token"},
	}

	r := auth.NewJWTResolver(secret)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Resolve(bearer(tt.token))

			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.ErrCodeUnauthorized))
		})
	}
}

func TestJWTResolver_RequiresBearerScheme(t *testing.T) {
	r := auth.NewJWTResolver(secret)
	token, err := auth.IssueToken(secret, "u1", time.Hour)
	require.NoError(t, err)

	missing := httptest.NewRequest(http.MethodGet, "/", nil)
	basic := httptest.NewRequest(http.MethodGet, "/", nil)
	basic.Header.Set("Authorization", "Basic "+token)

	for _, req := range []*http.Request{missing, basic} {
		_, err := r.Resolve(req)
		assert.True(t, errors.HasCode(err, errors.ErrCodeUnauthorized))
	}
}

func TestIssueToken_RoundTrips(t *testing.T) {
	token, err := auth.IssueToken(secret, "u7", auth.DefaultTokenTTL)
	require.NoError(t, err)

	got, err := auth.NewJWTResolver(secret).Resolve(bearer(token))

	require.NoError(t, err)
	assert.Equal(t, "u7", got)
}

func TestHeaderResolver(t *testing.T) {
	r := auth.HeaderResolver{Header: "X-Forwarded-User"}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := r.Resolve(req)
	assert.True(t, errors.HasCode(err, errors.ErrCodeUnauthorized))

	req.Header.Set("X-Forwarded-User", "  u1 ")
	got, err := r.Resolve(req)
	require.NoError(t, err)
	assert.Equal(t, "u1", got)
}

func TestNew(t *testing.T) {
	r, err := auth.New(auth.ModeJWT, "", secret)
	require.NoError(t, err)
	assert.IsType(t, &auth.JWTResolver{}, r)

	r, err = auth.New(auth.ModeHeader, "", "")
	require.NoError(t, err)
	assert.Equal(t, auth.HeaderResolver{Header: auth.DefaultHeader}, r)

	_, err = auth.New(auth.ModeJWT, "", "")
	assert.Error(t, err)
	_, err = auth.New("cookie", "", secret)
	assert.Error(t, err)
}
