package catalog

import (
	"fmt"
	"library-system/internal/pkg/apperrors"
	"strings"
	"time"
)

type Genre string

const (
	GenreFiction    Genre = "fiction"
	GenreNonfiction Genre = "nonfiction"
	GenreSciFi      Genre = "sci-fi"
	GenreBiography  Genre = "biography"
	GenreMystery    Genre = "mystery"
	GenreFantasy    Genre = "fantasy"
	GenreHistory    Genre = "history"
	GenrePoetry     Genre = "poetry"
)

var genres = []Genre{
	GenreFiction, GenreNonfiction, GenreSciFi, GenreBiography,
	GenreMystery, GenreFantasy, GenreHistory, GenrePoetry,
}

func Genres() []Genre {
	out := make([]Genre, len(genres))
	copy(out, genres)
	return out
}

func (g Genre) Valid() bool {
	for _, known := range genres {
		if g == known {
			return true
		}
	}
	return false
}

const maxISBNLength = 13

type Book struct {
	ID              int64
	Title           string
	ISBN            string
	Genre           Genre
	AvailableCopies int
	AuthorID        int64
	Author          *Author
	CreatedAt       time.Time
}

func NewBook(title, isbn string, genre Genre, availableCopies int, authorID int64) (*Book, error) {
	title = strings.TrimSpace(title)
	isbn = strings.TrimSpace(isbn)

	if title == "" {
		return nil, apperrors.NewValidationError("title", "This field may not be blank.")
	}
	if isbn == "" || len(isbn) > maxISBNLength {
		return nil, apperrors.NewValidationError("isbn", fmt.Sprintf("ISBN must be 1 to %d characters.", maxISBNLength))
	}
	if !genre.Valid() {
		return nil, apperrors.NewValidationError("genre", fmt.Sprintf("\"%s\" is not a valid choice.", genre))
	}
	if availableCopies < 0 {
		return nil, apperrors.NewValidationError("available_copies", "Ensure this value is greater than or equal to 0.")
	}
	if authorID <= 0 {
		return nil, apperrors.NewValidationError("author_id", "This field is required.")
	}

	return &Book{
		Title:           title,
		ISBN:            isbn,
		Genre:           genre,
		AvailableCopies: availableCopies,
		AuthorID:        authorID,
	}, nil
}

// BookFilter narrows a book listing. Zero values mean "no constraint".
type BookFilter struct {
	Genre          Genre
	AuthorLastName string
}
