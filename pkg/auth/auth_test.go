package auth

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHS256RoundTrip(t *testing.T) {
	h, err := NewHS256("s3cret", "bowen")
	require.NoError(t, err)

	tok, err := h.Sign("user-1", time.Hour)
	require.NoError(t, err)
	uid, err := h.Verify(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", uid)

	expired, err := h.Sign("user-1", -time.Minute)
	require.NoError(t, err)
	_, err = h.Verify(context.Background(), expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	other, _ := NewHS256("other", "bowen")
	_, err = other.Verify(context.Background(), tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewHS256("", "")
	assert.Error(t, err)
}

func TestHS256RejectsMissingSubject(t *testing.T) {
	h, _ := NewHS256("s3cret", "")
	tok, err := h.Sign("", time.Hour)
	require.NoError(t, err)
	_, err = h.Verify(context.Background(), tok)
	assert.ErrorIs(t, err, ErrInvalidClaims)
}

func TestOIDCVerifier(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	const issuer = "https://id.example.com"
	v := NewOIDCVerifier(oidc.NewVerifier(issuer,
		&oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&key.PublicKey}},
		&oidc.Config{ClientID: "bowen-web"}))

	sign := func(aud string) string {
		claims := jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   "user_abc",
			Audience:  jwt.ClaimStrings{aud},
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}
		s, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}

	uid, err := v.Verify(context.Background(), sign("bowen-web"))
	require.NoError(t, err)
	assert.Equal(t, "user_abc", uid)

	_, err = v.Verify(context.Background(), sign("someone-else"))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, _ := NewHS256("s3cret", "")
	tok, _ := h.Sign("user-1", time.Hour)

	r := gin.New()
	r.Use(Middleware(h))
	r.GET("/api/me", func(c *gin.Context) {
		c.String(http.StatusOK, UserID(c)+"|"+FromContext(c.Request.Context()))
	})

	tests := []struct {
		name     string
		url      string
		header   string
		wantCode int
		wantBody string
	}{
		{"no token", "/api/me", "", http.StatusUnauthorized, "Unauthorized"},
		{"bad token", "/api/me", "Bearer nope", http.StatusUnauthorized, "Unauthorized"},
		{"header", "/api/me", "Bearer " + tok, http.StatusOK, "user-1|user-1"},
		{"query", "/api/me?token=" + tok, "", http.StatusOK, "user-1|user-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.wantBody, w.Body.String())
		})
	}
}
