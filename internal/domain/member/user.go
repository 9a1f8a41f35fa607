package member

import (
	"library-system/internal/pkg/apperrors"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

// User is the identity record a Member is linked to. Email and username are
// what notifications are addressed with.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	DateJoined   time.Time
}

func NewUser(username, email, password string) (*User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if username == "" {
		return nil, apperrors.NewValidationError("username", "This field may not be blank.")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperrors.NewValidationError("email", "Enter a valid email address.")
	}
	if len(password) < minPasswordLength {
		return nil, apperrors.NewValidationError("password", "Ensure this field has at least 8 characters.")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.NewValidationError("password", "Password could not be hashed.")
	}

	return &User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
	}, nil
}

func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}
