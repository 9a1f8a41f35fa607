package member

import (
	"context"
	"library-system/internal/pkg/pagination"
)

type UserRepository interface {
	CreateUser(ctx context.Context, user *User) error

	FindUserByID(ctx context.Context, userID int64) (*User, error)

	FindUserByUsername(ctx context.Context, username string) (*User, error)
}

type MemberRepository interface {
	// CreateMember inserts the member and fills in ID and MembershipDate.
	CreateMember(ctx context.Context, member *Member) error

	FindMemberByID(ctx context.Context, memberID int64) (*Member, error)

	ListMembers(ctx context.Context, page pagination.Params) (pagination.Page[Member], error)

	DeleteMember(ctx context.Context, memberID int64) error
}
