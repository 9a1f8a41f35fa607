package dto

import (
	"library-system/internal/domain/catalog"
	"library-system/internal/pkg/apperrors"
)

const defaultAvailableCopies = 1

type BookRequest struct {
	Title           string `json:"title"`
	ISBN            string `json:"isbn"`
	Genre           string `json:"genre"`
	AvailableCopies *int   `json:"available_copies"`
	AuthorID        int64  `json:"author_id"`
}

func (r *BookRequest) Validate() error {
	if r.Genre == "" {
		return apperrors.NewValidationError("genre", msgRequired)
	}
	return requirePositiveID("author_id", r.AuthorID)
}

// Copies returns the requested stock, defaulting to a single copy.
func (r *BookRequest) Copies() int {
	if r.AvailableCopies == nil {
		return defaultAvailableCopies
	}
	return *r.AvailableCopies
}

type BookResponse struct {
	ID              int64           `json:"id"`
	Title           string          `json:"title"`
	ISBN            string          `json:"isbn"`
	Genre           string          `json:"genre"`
	AvailableCopies int             `json:"available_copies"`
	Author          *AuthorResponse `json:"author,omitempty"`
}

func NewBookResponse(b *catalog.Book) BookResponse {
	resp := BookResponse{
		ID:              b.ID,
		Title:           b.Title,
		ISBN:            b.ISBN,
		Genre:           string(b.Genre),
		AvailableCopies: b.AvailableCopies,
	}
	if b.Author != nil {
		author := NewAuthorResponse(b.Author)
		resp.Author = &author
	} else if b.AuthorID > 0 {
		resp.Author = &AuthorResponse{ID: b.AuthorID}
	}
	return resp
}
