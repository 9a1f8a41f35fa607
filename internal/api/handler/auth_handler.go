package handler

import (
	"context"
	"fmt"
	"library-system/internal/api/handler/dto"
	"library-system/internal/config"
	"library-system/internal/domain/member"
	"library-system/internal/pkg/apperrors"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenTTL = 24 * time.Hour

// Authenticator checks a username and password pair.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (*member.User, error)
}

type AuthHandler struct {
	auth   Authenticator
	secret []byte
	now    func() time.Time
	logger *slog.Logger
}

func NewAuthHandler(auth Authenticator, cfg config.AuthConfig, l *slog.Logger) *AuthHandler {
	if auth == nil {
		panic("authenticator cannot be nil")
	}
	return &AuthHandler{
		auth:   auth,
		secret: []byte(cfg.JWTSecret),
		now:    time.Now,
		logger: l.With("component", "AuthHandler"),
	}
}

// GenerateBearerToken issues a JWT for a registered user.
//
// @Summary Generate a JWT bearer token
// @Description Exchanges a username and password for a token valid for 24 hours.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.TokenRequest true "Credentials"
// @Success 200 {object} dto.TokenResponse "Token successfully generated"
// @Failure 400 {object} dto.ErrorResponse "Invalid request parameters"
// @Failure 401 {object} dto.ErrorResponse "Unknown user or wrong password"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /auth/token [post]
func (h *AuthHandler) GenerateBearerToken(w http.ResponseWriter, r *http.Request) {
	var req dto.TokenRequest
	if err := decodeAndValidate(r, &req); err != nil {
		h.logger.WarnContext(r.Context(), "Invalid token request", slog.Any("error", err))
		respondError(w, err)
		return
	}

	user, err := h.auth.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		h.logger.WarnContext(r.Context(), "Token request rejected", slog.String("username", req.Username), slog.Any("error", err))
		respondError(w, err)
		return
	}

	claims := jwt.MapClaims{
		"username": user.Username,
		"exp":      h.now().Add(tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(h.secret)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to sign token", slog.Any("error", err))
		respondError(w, fmt.Errorf("%w: could not sign token", apperrors.ErrInternalServer))
		return
	}

	h.logger.InfoContext(r.Context(), "Issued bearer token", slog.String("username", user.Username))
	respondJSON(w, http.StatusOK, dto.TokenResponse{Token: "Bearer " + tokenString})
}
