package loan

import (
	"context"
	"errors"
	"fmt"
	"library-system/internal/event"
	"library-system/internal/infrastructure/monitoring"
	"library-system/internal/pkg/apperrors"
	"library-system/internal/pkg/clock"
	"library-system/internal/pkg/pagination"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "library-system/loan"

type LoanService interface {
	CreateLoan(ctx context.Context, bookID, memberID int64) (*Loan, error)

	ReturnLoan(ctx context.Context, bookID, memberID int64) (*Loan, error)

	ExtendDueDate(ctx context.Context, loanID int64, additionalDays int) (*Loan, error)

	GetLoan(ctx context.Context, loanID int64) (*Loan, error)

	ListLoans(ctx context.Context, filter Filter, page pagination.Params) (pagination.Page[Loan], error)

	DeleteLoan(ctx context.Context, loanID int64) error
}

var _ LoanService = (*loanServiceImpl)(nil)

type loanServiceImpl struct {
	repo       Repository
	publisher  event.EventPublisher
	clock      clock.Clock
	periodDays int
	tracer     trace.Tracer
	logger     *slog.Logger
}

func NewLoanService(r Repository, publisher event.EventPublisher, clk clock.Clock, periodDays int, logger *slog.Logger) LoanService {
	if r == nil {
		panic("loan repository cannot be nil")
	}
	if clk == nil {
		clk = clock.System()
	}
	if periodDays <= 0 {
		periodDays = DefaultPeriodDays
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &loanServiceImpl{
		repo:       r,
		publisher:  publisher,
		clock:      clk,
		periodDays: periodDays,
		tracer:     otel.Tracer(tracerName),
		logger:     logger.With(slog.String("component", "loanService")),
	}
}

// withTx runs fn inside a transaction and rolls back when fn fails or panics.
func (s *loanServiceImpl) withTx(ctx context.Context, fn func(tx pgx.Tx) error) (err error) {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction", slog.Any("error", err))
		return fmt.Errorf("%w: could not begin transaction: %w", apperrors.ErrInternalServer, err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = s.repo.RollbackTx(ctx, tx)
			panic(p)
		} else if err != nil {
			s.logger.DebugContext(ctx, "Rolling back transaction", slog.Any("error", err))
			_ = s.repo.RollbackTx(ctx, tx)
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = s.repo.CommitTx(ctx, tx); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit transaction", slog.Any("error", err))
		return fmt.Errorf("%w: could not commit transaction: %w", apperrors.ErrInternalServer, err)
	}
	return nil
}

func (s *loanServiceImpl) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func operationStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, apperrors.ErrValidation):
		return "rejected"
	case errors.Is(err, apperrors.ErrNotFound):
		return "not_found"
	default:
		return "failure"
	}
}

func (s *loanServiceImpl) CreateLoan(ctx context.Context, bookID, memberID int64) (created *Loan, err error) {
	ctx, span := s.startSpan(ctx, "LoanService.CreateLoan",
		attribute.Int64("book.id", bookID), attribute.Int64("member.id", memberID))
	defer func() {
		monitoring.RecordLoanOperation("create", operationStatus(err))
		endSpan(span, err)
	}()

	logCtx := s.logger.With(slog.Int64("bookID", bookID), slog.Int64("memberID", memberID))
	logCtx.InfoContext(ctx, "Creating loan")

	err = s.withTx(ctx, func(tx pgx.Tx) error {
		book, err := s.repo.LockBookForUpdate(ctx, tx, bookID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				logCtx.WarnContext(ctx, "Book not found")
				return fmt.Errorf("%w: book with ID %d not found", apperrors.ErrNotFound, bookID)
			}
			return err
		}

		exists, err := s.repo.LockMemberInTx(ctx, tx, memberID)
		if err != nil {
			return err
		}
		if !exists {
			logCtx.WarnContext(ctx, "Member not found")
			return apperrors.NewValidationError("member_id", MsgMemberDoesNotExist)
		}

		if book.AvailableCopies <= 0 {
			logCtx.WarnContext(ctx, "No copies left to loan", slog.Int("availableCopies", book.AvailableCopies))
			return apperrors.NewValidationError("", MsgNoAvailableCopies)
		}

		if err := s.repo.AdjustAvailableCopiesInTx(ctx, tx, bookID, -1); err != nil {
			return err
		}

		today := clock.Today(s.clock)
		l := &Loan{
			BookID:   bookID,
			MemberID: memberID,
			LoanDate: today,
			DueDate:  DueOn(today, s.periodDays),
		}
		if err := s.repo.InsertLoanInTx(ctx, tx, l); err != nil {
			return err
		}
		created = l
		return nil
	})
	if err != nil {
		logCtx.WarnContext(ctx, "Loan was not created", slog.Any("error", err))
		return nil, err
	}

	span.SetAttributes(attribute.Int64("loan.id", created.ID))
	logCtx.InfoContext(ctx, "Loan created", slog.Int64("loanID", created.ID), slog.Time("dueDate", created.DueDate))

	s.publishLoanCreated(ctx, created)
	return created, nil
}

func (s *loanServiceImpl) publishLoanCreated(ctx context.Context, l *Loan) {
	if s.publisher == nil {
		return
	}
	evt := event.LoanCreatedEvent{
		LoanID:    l.ID,
		BookID:    l.BookID,
		MemberID:  l.MemberID,
		DueDate:   l.DueDate,
		Timestamp: s.clock.Now(),
	}
	if err := s.publisher.PublishLoanCreated(ctx, evt); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish loan created event", slog.Int64("loanID", l.ID), slog.Any("error", err))
	}
}

func (s *loanServiceImpl) ReturnLoan(ctx context.Context, bookID, memberID int64) (returned *Loan, err error) {
	ctx, span := s.startSpan(ctx, "LoanService.ReturnLoan",
		attribute.Int64("book.id", bookID), attribute.Int64("member.id", memberID))
	defer func() {
		monitoring.RecordLoanOperation("return", operationStatus(err))
		endSpan(span, err)
	}()

	logCtx := s.logger.With(slog.Int64("bookID", bookID), slog.Int64("memberID", memberID))
	logCtx.InfoContext(ctx, "Returning loan")

	err = s.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := s.repo.LockBookForUpdate(ctx, tx, bookID); err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return fmt.Errorf("%w: book with ID %d not found", apperrors.ErrNotFound, bookID)
			}
			return err
		}

		open, err := s.repo.FindOpenLoanForUpdate(ctx, tx, bookID, memberID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				logCtx.WarnContext(ctx, "No open loan for book and member")
				return apperrors.NewValidationError("", MsgActiveLoanNotExists)
			}
			return err
		}

		if err := s.repo.AdjustAvailableCopiesInTx(ctx, tx, bookID, 1); err != nil {
			return err
		}

		today := clock.Today(s.clock)
		if err := s.repo.MarkReturnedInTx(ctx, tx, open.ID, today); err != nil {
			return err
		}
		open.IsReturned = true
		open.ReturnDate = &today
		returned = open
		return nil
	})
	if err != nil {
		logCtx.WarnContext(ctx, "Loan was not returned", slog.Any("error", err))
		return nil, err
	}

	logCtx.InfoContext(ctx, "Loan returned", slog.Int64("loanID", returned.ID))
	return returned, nil
}

func (s *loanServiceImpl) ExtendDueDate(ctx context.Context, loanID int64, additionalDays int) (extended *Loan, err error) {
	ctx, span := s.startSpan(ctx, "LoanService.ExtendDueDate",
		attribute.Int64("loan.id", loanID), attribute.Int("loan.additional_days", additionalDays))
	defer func() {
		monitoring.RecordLoanOperation("extend", operationStatus(err))
		endSpan(span, err)
	}()

	if additionalDays < 1 {
		return nil, apperrors.NewValidationError("additional_days", "Ensure this value is greater than or equal to 1.")
	}

	err = s.withTx(ctx, func(tx pgx.Tx) error {
		l, err := s.repo.FindLoanForUpdate(ctx, tx, loanID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return fmt.Errorf("%w: loan with ID %d not found", apperrors.ErrNotFound, loanID)
			}
			return err
		}

		newDue := l.DueDate.AddDate(0, 0, additionalDays)
		if err := s.repo.UpdateDueDateInTx(ctx, tx, loanID, newDue); err != nil {
			return err
		}
		l.DueDate = newDue
		extended = l
		return nil
	})
	if err != nil {
		s.logger.WarnContext(ctx, "Due date was not extended", slog.Int64("loanID", loanID), slog.Any("error", err))
		return nil, err
	}

	s.logger.InfoContext(ctx, "Due date extended", slog.Int64("loanID", loanID), slog.Time("dueDate", extended.DueDate))
	return extended, nil
}

func (s *loanServiceImpl) GetLoan(ctx context.Context, loanID int64) (*Loan, error) {
	l, err := s.repo.GetLoanByID(ctx, loanID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "Loan not found", slog.Int64("loanID", loanID))
		}
		return nil, err
	}
	return l, nil
}

func (s *loanServiceImpl) ListLoans(ctx context.Context, filter Filter, page pagination.Params) (pagination.Page[Loan], error) {
	return s.repo.ListLoans(ctx, filter, page)
}

func (s *loanServiceImpl) DeleteLoan(ctx context.Context, loanID int64) error {
	if err := s.repo.DeleteLoan(ctx, loanID); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Loan deleted", slog.Int64("loanID", loanID))
	return nil
}
