package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)
	hash, err := h.Hash("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hash)

	assert.NoError(t, h.Verify(hash, "s3cret"))
	assert.ErrorIs(t, h.Verify(hash, "wrong"), ErrBadCredentials)

	_, err = h.Hash("")
	assert.Error(t, err)

	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(99).Cost)
}

func TestSignerRoundTrip(t *testing.T) {
	s := NewSigner("key", "attendtrack", time.Minute, time.Hour)
	pair, err := s.Issue("u-1", "ada")
	require.NoError(t, err)

	claims, err := s.Parse(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.Subject)
	assert.Equal(t, "ada", claims.Username)

	_, err = s.Parse(pair.RefreshToken)
	assert.Error(t, err, "refresh tokens must not authorize requests")

	other := NewSigner("key", "someone-else", time.Minute, time.Hour)
	_, err = other.Parse(pair.AccessToken)
	assert.Error(t, err)

	wrongKey := NewSigner("other-key", "attendtrack", time.Minute, time.Hour)
	_, err = wrongKey.Parse(pair.AccessToken)
	assert.Error(t, err)
}

func TestSignerRejectsExpired(t *testing.T) {
	s := NewSigner("key", "attendtrack", time.Minute, time.Hour)
	issued := time.Now().Add(-time.Hour)
	s.now = func() time.Time { return issued }
	pair, err := s.Issue("u-1", "ada")
	require.NoError(t, err)

	s.now = time.Now
	_, err = s.Parse(pair.AccessToken)
	assert.Error(t, err)
}

func TestRequireUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := NewSigner("key", "attendtrack", time.Minute, time.Hour)

	r := gin.New()
	r.GET("/me", RequireUser(s), func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		require.True(t, ok)
		c.String(http.StatusOK, claims.Subject)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	pair, err := s.Issue("u-7", "ada")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u-7", w.Body.String())
}
