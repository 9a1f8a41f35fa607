package dto

import (
	"library-system/internal/pkg/apperrors"
	"strings"
)

type TokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r *TokenRequest) Validate() error {
	if strings.TrimSpace(r.Username) == "" {
		return apperrors.NewValidationError("username", msgRequired)
	}
	if r.Password == "" {
		return apperrors.NewValidationError("password", msgRequired)
	}
	return nil
}

type TokenResponse struct {
	Token string `json:"token"`
}
