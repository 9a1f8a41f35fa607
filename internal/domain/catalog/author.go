package catalog

import (
	"library-system/internal/pkg/apperrors"
	"strings"
	"time"
)

type Author struct {
	ID        int64
	FirstName string
	LastName  string
	Biography string
	CreatedAt time.Time
}

func NewAuthor(firstName, lastName, biography string) (*Author, error) {
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	if firstName == "" {
		return nil, apperrors.NewValidationError("first_name", "This field may not be blank.")
	}
	if lastName == "" {
		return nil, apperrors.NewValidationError("last_name", "This field may not be blank.")
	}
	return &Author{
		FirstName: firstName,
		LastName:  lastName,
		Biography: strings.TrimSpace(biography),
	}, nil
}

func (a *Author) FullName() string {
	return a.FirstName + " " + a.LastName
}
