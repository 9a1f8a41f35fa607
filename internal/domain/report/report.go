package report

import (
	"context"
	"log/slog"
	"time"
)

// MemberActivity is one row of the member ranking. LoanCount covers every
// loan the member ever took, returned or not.
type MemberActivity struct {
	MemberID       int64
	UserID         int64
	Username       string
	Email          string
	MembershipDate time.Time
	LoanCount      int64
}

type Repository interface {
	// TopActiveMembers ranks members by loan count, descending, ties broken by member id.
	// Members without loans are included with a zero count. limit <= 0 returns everyone.
	TopActiveMembers(ctx context.Context, limit int) ([]MemberActivity, error)
}

type ReportService interface {
	TopActiveMembers(ctx context.Context, limit int) ([]MemberActivity, error)
}

type reportService struct {
	repo   Repository
	logger *slog.Logger
}

func NewReportService(repo Repository, logger *slog.Logger) ReportService {
	if repo == nil {
		panic("report repository cannot be nil")
	}
	return &reportService{repo: repo, logger: logger.With(slog.String("component", "reportService"))}
}

func (s *reportService) TopActiveMembers(ctx context.Context, limit int) ([]MemberActivity, error) {
	rows, err := s.repo.TopActiveMembers(ctx, limit)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to rank members", slog.Any("error", err))
		return nil, err
	}
	if rows == nil {
		rows = []MemberActivity{}
	}
	return rows, nil
}
