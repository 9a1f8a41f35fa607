package dto

import (
	"library-system/internal/domain/member"
	"library-system/internal/pkg/apperrors"
	"strings"
	"time"
)

type CreateUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *CreateUserRequest) Validate() error {
	if strings.TrimSpace(r.Username) == "" {
		return apperrors.NewValidationError("username", msgBlank)
	}
	if strings.TrimSpace(r.Email) == "" {
		return apperrors.NewValidationError("email", msgBlank)
	}
	if r.Password == "" {
		return apperrors.NewValidationError("password", msgBlank)
	}
	return nil
}

type UserResponse struct {
	ID         int64     `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	DateJoined time.Time `json:"date_joined"`
}

func NewUserResponse(u *member.User) UserResponse {
	return UserResponse{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		DateJoined: u.DateJoined,
	}
}

type CreateMemberRequest struct {
	UserID int64 `json:"user_id"`
}

func (r *CreateMemberRequest) Validate() error {
	return requirePositiveID("user_id", r.UserID)
}

type MemberResponse struct {
	ID             int64         `json:"id"`
	User           *UserResponse `json:"user,omitempty"`
	MembershipDate string        `json:"membership_date"`
}

func NewMemberResponse(m *member.Member) MemberResponse {
	resp := MemberResponse{
		ID:             m.ID,
		MembershipDate: formatDate(m.MembershipDate),
	}
	if m.User != nil {
		user := NewUserResponse(m.User)
		resp.User = &user
	} else if m.UserID > 0 {
		resp.User = &UserResponse{ID: m.UserID}
	}
	return resp
}
