package handler

import (
	"library-system/internal/api/handler/dto"
	"library-system/internal/config"
	"library-system/internal/domain/member"
	"library-system/internal/pkg/apperrors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAuthHandlerGenerateBearerToken(t *testing.T) {
	const secret = "test-secret"

	t.Run("issues a signed token", func(t *testing.T) {
		svc := new(MockMemberService)
		h := NewAuthHandler(svc, config.AuthConfig{Enabled: true, JWTSecret: secret}, discardLogger())
		now := time.Now()
		h.now = func() time.Time { return now }
		svc.On("Authenticate", mock.Anything, "tracker", "Test1234").Return(&member.User{ID: 1, Username: "tracker"}, nil)

		rec := httptest.NewRecorder()
		h.GenerateBearerToken(rec, newRequest(http.MethodPost, "/auth/token", `{"username":"tracker","password":"Test1234"}`))

		require.Equal(t, http.StatusOK, rec.Code)
		resp, err := decodeBody[dto.TokenResponse](rec)
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(resp.Token, "Bearer "))

		claims := jwt.MapClaims{}
		_, err = jwt.ParseWithClaims(strings.TrimPrefix(resp.Token, "Bearer "), claims, func(*jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		})
		require.NoError(t, err)
		assert.Equal(t, "tracker", claims["username"])
		assert.InDelta(t, float64(now.Add(24*time.Hour).Unix()), claims["exp"], 1)
	})

	t.Run("wrong password", func(t *testing.T) {
		svc := new(MockMemberService)
		h := NewAuthHandler(svc, config.AuthConfig{JWTSecret: secret}, discardLogger())
		svc.On("Authenticate", mock.Anything, "tracker", "nope-nope").Return(nil, apperrors.ErrUnauthorized)

		rec := httptest.NewRecorder()
		h.GenerateBearerToken(rec, newRequest(http.MethodPost, "/auth/token", `{"username":"tracker","password":"nope-nope"}`))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing username", func(t *testing.T) {
		svc := new(MockMemberService)
		h := NewAuthHandler(svc, config.AuthConfig{JWTSecret: secret}, discardLogger())

		rec := httptest.NewRecorder()
		h.GenerateBearerToken(rec, newRequest(http.MethodPost, "/auth/token", `{"password":"x"}`))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		svc.AssertNotCalled(t, "Authenticate")
	})
}
