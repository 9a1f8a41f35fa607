package postgres

import (
	"context"
	"errors"
	"fmt"
	"library-system/internal/domain/member"
	"library-system/internal/pkg/apperrors"
	"library-system/internal/pkg/pagination"
	"log/slog"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/jackc/pgx/v5"
)

type UserRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ member.UserRepository = (*UserRepository)(nil)

func NewUserRepository(db DBPool, logger *slog.Logger) *UserRepository {
	if db == nil {
		panic("DBPool cannot be nil for UserRepository")
	}
	return &UserRepository{db: db, logger: logger.With("component", "UserRepository")}
}

func (r *UserRepository) CreateUser(ctx context.Context, user *member.User) error {
	query := `
        INSERT INTO users (username, email, password_hash)
        VALUES ($1, $2, $3)
        RETURNING id, date_joined`

	start := time.Now()
	err := r.db.QueryRow(ctx, query, user.Username, user.Email, user.PasswordHash).Scan(&user.ID, &user.DateJoined)
	observe("create_user", start, err)
	if err != nil {
		return translateDBError(err, r.logger)
	}
	return nil
}

func (r *UserRepository) FindUserByID(ctx context.Context, userID int64) (*member.User, error) {
	query := `SELECT id, username, email, password_hash, date_joined FROM users WHERE id = $1`

	var u member.User
	start := time.Now()
	err := r.db.QueryRow(ctx, query, userID).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.DateJoined)
	observe("find_user", start, err)
	if err != nil {
		return nil, lookupError(err, r.logger, "user", userID)
	}
	return &u, nil
}

func (r *UserRepository) FindUserByUsername(ctx context.Context, username string) (*member.User, error) {
	query := `SELECT id, username, email, password_hash, date_joined FROM users WHERE username = $1`

	var u member.User
	start := time.Now()
	err := r.db.QueryRow(ctx, query, username).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.DateJoined)
	observe("find_user_by_username", start, err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: user %q not found", apperrors.ErrNotFound, username)
		}
		return nil, translateDBError(err, r.logger)
	}
	return &u, nil
}

type MemberRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ member.MemberRepository = (*MemberRepository)(nil)

func NewMemberRepository(db DBPool, logger *slog.Logger) *MemberRepository {
	if db == nil {
		panic("DBPool cannot be nil for MemberRepository")
	}
	return &MemberRepository{db: db, logger: logger.With("component", "MemberRepository")}
}

const memberSelect = `
        SELECT m.id, m.membership_date, u.id, u.username, u.email, u.date_joined
        FROM members m
        JOIN users u ON u.id = m.user_id`

func scanMember(row pgx.Row) (*member.Member, error) {
	var m member.Member
	var u member.User
	if err := row.Scan(&m.ID, &m.MembershipDate, &u.ID, &u.Username, &u.Email, &u.DateJoined); err != nil {
		return nil, err
	}
	m.UserID = u.ID
	m.User = &u
	return &m, nil
}

func (r *MemberRepository) CreateMember(ctx context.Context, m *member.Member) error {
	query := `
        INSERT INTO members (user_id)
        VALUES ($1)
        RETURNING id, membership_date`

	start := time.Now()
	err := r.db.QueryRow(ctx, query, m.UserID).Scan(&m.ID, &m.MembershipDate)
	observe("create_member", start, err)
	if err != nil {
		return translateDBError(err, r.logger)
	}
	return nil
}

func (r *MemberRepository) FindMemberByID(ctx context.Context, memberID int64) (*member.Member, error) {
	start := time.Now()
	m, err := scanMember(r.db.QueryRow(ctx, memberSelect+` WHERE m.id = $1`, memberID))
	observe("find_member", start, err)
	if err != nil {
		return nil, lookupError(err, r.logger, "member", memberID)
	}
	return m, nil
}

func memberListDataset() *goqu.SelectDataset {
	return dialect.From(goqu.T("members").As("m")).Prepared(true).
		Join(goqu.T("users").As("u"), goqu.On(goqu.I("u.id").Eq(goqu.I("m.user_id")))).
		Select(goqu.I("m.id"), goqu.I("m.membership_date"), goqu.I("u.id"), goqu.I("u.username"), goqu.I("u.email"), goqu.I("u.date_joined")).
		Order(goqu.I("m.id").Asc())
}

func (r *MemberRepository) ListMembers(ctx context.Context, page pagination.Params) (pagination.Page[member.Member], error) {
	var res pagination.Page[member.Member]

	ds := memberListDataset()

	total, err := countAndPage(ctx, r.db, ds, "list_members")
	if err != nil {
		return res, err
	}
	res.Total = total

	query, args, err := ds.Limit(page.Limit()).Offset(page.Offset()).ToSQL()
	if err != nil {
		return res, fmt.Errorf("%w: build member list: %w", apperrors.ErrInternalServer, err)
	}

	start := time.Now()
	rows, err := r.db.Query(ctx, query, args...)
	observe("list_members", start, err)
	if err != nil {
		return res, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	res.Items = make([]member.Member, 0, page.Limit())
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return res, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		res.Items = append(res.Items, *m)
	}
	if err := rows.Err(); err != nil {
		return res, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return res, nil
}

func (r *MemberRepository) DeleteMember(ctx context.Context, memberID int64) error {
	start := time.Now()
	tag, err := r.db.Exec(ctx, `DELETE FROM members WHERE id = $1`, memberID)
	observe("delete_member", start, err)
	if err != nil {
		return translateDBError(err, r.logger)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: member with ID %d not found", apperrors.ErrNotFound, memberID)
	}
	return nil
}
