package postgres

import (
	"context"
	"fmt"
	"library-system/internal/domain/report"
	"library-system/internal/pkg/apperrors"
	"log/slog"
	"time"
)

type ReportRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ report.Repository = (*ReportRepository)(nil)

func NewReportRepository(db DBPool, logger *slog.Logger) *ReportRepository {
	if db == nil {
		panic("DBPool cannot be nil for ReportRepository")
	}
	return &ReportRepository{db: db, logger: logger.With("component", "ReportRepository")}
}

const topActiveMembersQuery = `
        SELECT m.id, u.id, u.username, u.email, m.membership_date, COUNT(l.id) AS loan_count
        FROM members m
        JOIN users u ON u.id = m.user_id
        LEFT JOIN loans l ON l.member_id = m.id
        GROUP BY m.id, u.id, u.username, u.email, m.membership_date
        ORDER BY loan_count DESC, m.id ASC`

func (r *ReportRepository) TopActiveMembers(ctx context.Context, limit int) ([]report.MemberActivity, error) {
	query := topActiveMembersQuery
	var args []any
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	start := time.Now()
	rows, err := r.db.Query(ctx, query, args...)
	observe("top_active_members", start, err)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to rank members", slog.Any("error", err))
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	out := make([]report.MemberActivity, 0)
	for rows.Next() {
		var a report.MemberActivity
		if err := rows.Scan(&a.MemberID, &a.UserID, &a.Username, &a.Email, &a.MembershipDate, &a.LoanCount); err != nil {
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return out, nil
}
