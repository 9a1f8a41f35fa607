package loan

import (
	"context"
	"library-system/internal/pkg/pagination"
	"time"

	"github.com/jackc/pgx/v5"
)

type Repository interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)

	CommitTx(ctx context.Context, tx pgx.Tx) error

	RollbackTx(ctx context.Context, tx pgx.Tx) error

	// LockBookForUpdate takes the row lock on the book. It returns apperrors.ErrNotFound when the book is missing.
	LockBookForUpdate(ctx context.Context, tx pgx.Tx, bookID int64) (*BookStock, error)

	// LockMemberInTx takes a shared lock on the member so it cannot be deleted under the transaction.
	LockMemberInTx(ctx context.Context, tx pgx.Tx, memberID int64) (bool, error)

	AdjustAvailableCopiesInTx(ctx context.Context, tx pgx.Tx, bookID int64, delta int) error

	InsertLoanInTx(ctx context.Context, tx pgx.Tx, loan *Loan) error

	// FindOpenLoanForUpdate locks the earliest open loan for the pair, ordered by (loan_date, id).
	FindOpenLoanForUpdate(ctx context.Context, tx pgx.Tx, bookID, memberID int64) (*Loan, error)

	MarkReturnedInTx(ctx context.Context, tx pgx.Tx, loanID int64, returnDate time.Time) error

	FindLoanForUpdate(ctx context.Context, tx pgx.Tx, loanID int64) (*Loan, error)

	UpdateDueDateInTx(ctx context.Context, tx pgx.Tx, loanID int64, dueDate time.Time) error

	GetLoanByID(ctx context.Context, loanID int64) (*Loan, error)

	ListLoans(ctx context.Context, filter Filter, page pagination.Params) (pagination.Page[Loan], error)

	DeleteLoan(ctx context.Context, loanID int64) error

	// FindOverdueUnreminded returns open loans due before today that have not had a reminder yet.
	FindOverdueUnreminded(ctx context.Context, today time.Time) ([]Notice, error)

	// MarkReminderSent flips remainder_sent for one loan in its own statement.
	// It reports false when the loan is gone or was already flagged.
	MarkReminderSent(ctx context.Context, loanID int64) (bool, error)

	GetNotice(ctx context.Context, loanID int64) (*Notice, error)
}
