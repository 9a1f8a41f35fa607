package dto

import (
	"library-system/internal/domain/catalog"
	"library-system/internal/pkg/apperrors"
	"strings"
	"time"
)

type AuthorRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Biography string `json:"biography"`
}

func (r *AuthorRequest) Validate() error {
	if strings.TrimSpace(r.FirstName) == "" {
		return apperrors.NewValidationError("first_name", msgBlank)
	}
	if strings.TrimSpace(r.LastName) == "" {
		return apperrors.NewValidationError("last_name", msgBlank)
	}
	return nil
}

type AuthorResponse struct {
	ID        int64     `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Biography string    `json:"biography"`
	CreatedAt time.Time `json:"created_at"`
}

func NewAuthorResponse(a *catalog.Author) AuthorResponse {
	return AuthorResponse{
		ID:        a.ID,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Biography: a.Biography,
		CreatedAt: a.CreatedAt,
	}
}
