package member

import (
	"context"
	"errors"
	"fmt"
	"library-system/internal/pkg/apperrors"
	"library-system/internal/pkg/pagination"
	"log/slog"
	"strings"
)

type MemberService interface {
	RegisterUser(ctx context.Context, username, email, password string) (*User, error)
	GetUser(ctx context.Context, userID int64) (*User, error)
	Authenticate(ctx context.Context, username, password string) (*User, error)

	CreateMember(ctx context.Context, userID int64) (*Member, error)
	GetMember(ctx context.Context, memberID int64) (*Member, error)
	ListMembers(ctx context.Context, page pagination.Params) (pagination.Page[Member], error)
	DeleteMember(ctx context.Context, memberID int64) error
}

var _ MemberService = (*memberService)(nil)

type memberService struct {
	users   UserRepository
	members MemberRepository
	logger  *slog.Logger
}

func NewMemberService(users UserRepository, members MemberRepository, logger *slog.Logger) MemberService {
	if users == nil || members == nil {
		panic("member repositories cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &memberService{
		users:   users,
		members: members,
		logger:  logger.With(slog.String("component", "memberService")),
	}
}

func (s *memberService) RegisterUser(ctx context.Context, username, email, password string) (*User, error) {
	user, err := NewUser(username, email, password)
	if err != nil {
		s.logger.WarnContext(ctx, "User validation failed", slog.Any("error", err))
		return nil, err
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			return nil, fmt.Errorf("%w: username %q is taken", apperrors.ErrAlreadyExists, user.Username)
		}
		s.logger.ErrorContext(ctx, "Failed to save user", slog.Any("error", err))
		return nil, err
	}

	s.logger.InfoContext(ctx, "User registered", slog.Int64("userID", user.ID))
	return user, nil
}

func (s *memberService) GetUser(ctx context.Context, userID int64) (*User, error) {
	return s.users.FindUserByID(ctx, userID)
}

func (s *memberService) Authenticate(ctx context.Context, username, password string) (*User, error) {
	user, err := s.users.FindUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrUnauthorized
		}
		return nil, err
	}
	if !user.CheckPassword(password) {
		s.logger.WarnContext(ctx, "Password mismatch", slog.String("username", user.Username))
		return nil, apperrors.ErrUnauthorized
	}
	return user, nil
}

func (s *memberService) CreateMember(ctx context.Context, userID int64) (*Member, error) {
	user, err := s.users.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "Member requested for unknown user", slog.Int64("userID", userID))
			return nil, apperrors.NewValidationError("user_id", fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", userID))
		}
		return nil, err
	}

	m := &Member{UserID: user.ID, User: user}
	if err := s.members.CreateMember(ctx, m); err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			return nil, fmt.Errorf("%w: user %d already has a membership", apperrors.ErrAlreadyExists, userID)
		}
		s.logger.ErrorContext(ctx, "Failed to save member", slog.Any("error", err))
		return nil, err
	}

	s.logger.InfoContext(ctx, "Member created", slog.Int64("memberID", m.ID), slog.Int64("userID", userID))
	return m, nil
}

func (s *memberService) GetMember(ctx context.Context, memberID int64) (*Member, error) {
	return s.members.FindMemberByID(ctx, memberID)
}

func (s *memberService) ListMembers(ctx context.Context, page pagination.Params) (pagination.Page[Member], error) {
	return s.members.ListMembers(ctx, page)
}

func (s *memberService) DeleteMember(ctx context.Context, memberID int64) error {
	if err := s.members.DeleteMember(ctx, memberID); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Member deleted with their loans", slog.Int64("memberID", memberID))
	return nil
}
