package loan

import (
	"context"
	"library-system/internal/event"
	"library-system/internal/pkg/pagination"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"
)

type MockRepository struct {
	mock.Mock
}

type TxMock struct {
	pgx.Tx
}

var tx pgx.Tx = &TxMock{}

var _ Repository = (*MockRepository)(nil)

func (m *MockRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(pgx.Tx), args.Error(1)
}

func (m *MockRepository) CommitTx(ctx context.Context, tx pgx.Tx) error {
	return m.Called(ctx, tx).Error(0)
}

func (m *MockRepository) RollbackTx(ctx context.Context, tx pgx.Tx) error {
	return m.Called(ctx, tx).Error(0)
}

func (m *MockRepository) LockBookForUpdate(ctx context.Context, tx pgx.Tx, bookID int64) (*BookStock, error) {
	args := m.Called(ctx, tx, bookID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*BookStock), args.Error(1)
}

func (m *MockRepository) LockMemberInTx(ctx context.Context, tx pgx.Tx, memberID int64) (bool, error) {
	args := m.Called(ctx, tx, memberID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) AdjustAvailableCopiesInTx(ctx context.Context, tx pgx.Tx, bookID int64, delta int) error {
	return m.Called(ctx, tx, bookID, delta).Error(0)
}

func (m *MockRepository) InsertLoanInTx(ctx context.Context, tx pgx.Tx, loan *Loan) error {
	return m.Called(ctx, tx, loan).Error(0)
}

func (m *MockRepository) FindOpenLoanForUpdate(ctx context.Context, tx pgx.Tx, bookID, memberID int64) (*Loan, error) {
	args := m.Called(ctx, tx, bookID, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Loan), args.Error(1)
}

func (m *MockRepository) MarkReturnedInTx(ctx context.Context, tx pgx.Tx, loanID int64, returnDate time.Time) error {
	return m.Called(ctx, tx, loanID, returnDate).Error(0)
}

func (m *MockRepository) FindLoanForUpdate(ctx context.Context, tx pgx.Tx, loanID int64) (*Loan, error) {
	args := m.Called(ctx, tx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Loan), args.Error(1)
}

func (m *MockRepository) UpdateDueDateInTx(ctx context.Context, tx pgx.Tx, loanID int64, dueDate time.Time) error {
	return m.Called(ctx, tx, loanID, dueDate).Error(0)
}

func (m *MockRepository) GetLoanByID(ctx context.Context, loanID int64) (*Loan, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Loan), args.Error(1)
}

func (m *MockRepository) ListLoans(ctx context.Context, filter Filter, page pagination.Params) (pagination.Page[Loan], error) {
	args := m.Called(ctx, filter, page)
	return args.Get(0).(pagination.Page[Loan]), args.Error(1)
}

func (m *MockRepository) DeleteLoan(ctx context.Context, loanID int64) error {
	return m.Called(ctx, loanID).Error(0)
}

func (m *MockRepository) FindOverdueUnreminded(ctx context.Context, today time.Time) ([]Notice, error) {
	args := m.Called(ctx, today)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Notice), args.Error(1)
}

func (m *MockRepository) MarkReminderSent(ctx context.Context, loanID int64) (bool, error) {
	args := m.Called(ctx, loanID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) GetNotice(ctx context.Context, loanID int64) (*Notice, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Notice), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishLoanCreated(ctx context.Context, evt event.LoanCreatedEvent) error {
	return m.Called(ctx, evt).Error(0)
}
