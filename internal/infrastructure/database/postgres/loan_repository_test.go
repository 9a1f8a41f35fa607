package postgres

import (
	"context"
	"errors"
	"library-system/internal/domain/loan"
	"library-system/internal/pkg/apperrors"
	"library-system/internal/pkg/pagination"
	"regexp"
	"testing"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	loanRowColumns = []string{"id", "book_id", "member_id", "loan_date", "due_date", "return_date", "is_returned", "remainder_sent"}
	loanDetailRow  = []string{
		"id", "book_id", "member_id", "loan_date", "due_date", "return_date", "is_returned", "remainder_sent",
		"title", "isbn", "genre", "available_copies",
		"author_id", "first_name", "last_name",
		"membership_date", "user_id", "username", "email",
	}
	noticeColumns = []string{"id", "title", "username", "email", "due_date"}
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func beginMockTx(t *testing.T, mockPool pgxmock.PgxPoolIface) pgx.Tx {
	t.Helper()
	mockPool.ExpectBegin()
	tx, err := mockPool.Begin(context.Background())
	require.NoError(t, err)
	return tx
}

func TestLockBookForUpdate(t *testing.T) {
	ctx := context.Background()
	query := regexp.QuoteMeta("SELECT id, title, available_copies FROM books WHERE id = $1 FOR UPDATE")

	t.Run("locked", func(t *testing.T) {
		mockPool := newMockPool(t)
		repo := NewLoanRepository(mockPool, logger)
		tx := beginMockTx(t, mockPool)
		mockPool.ExpectQuery(query).WithArgs(int64(1)).
			WillReturnRows(pgxmock.NewRows([]string{"id", "title", "available_copies"}).AddRow(int64(1), "Dune", 2))

		stock, err := repo.LockBookForUpdate(ctx, tx, 1)

		require.NoError(t, err)
		assert.Equal(t, &loan.BookStock{BookID: 1, Title: "Dune", AvailableCopies: 2}, stock)
		assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
	})

	t.Run("missing book", func(t *testing.T) {
		mockPool := newMockPool(t)
		repo := NewLoanRepository(mockPool, logger)
		tx := beginMockTx(t, mockPool)
		mockPool.ExpectQuery(query).WithArgs(int64(9)).
			WillReturnRows(pgxmock.NewRows([]string{"id", "title", "available_copies"}))

		_, err := repo.LockBookForUpdate(ctx, tx, 9)

		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}

func TestLockMemberInTx(t *testing.T) {
	ctx := context.Background()
	query := regexp.QuoteMeta("SELECT id FROM members WHERE id = $1 FOR SHARE")

	mockPool := newMockPool(t)
	repo := NewLoanRepository(mockPool, logger)
	tx := beginMockTx(t, mockPool)
	mockPool.ExpectQuery(query).WithArgs(int64(1)).WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mockPool.ExpectQuery(query).WithArgs(int64(2)).WillReturnRows(pgxmock.NewRows([]string{"id"}))
	mockPool.ExpectQuery(query).WithArgs(int64(3)).WillReturnError(errors.New("connection reset"))

	exists, err := repo.LockMemberInTx(ctx, tx, 1)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.LockMemberInTx(ctx, tx, 2)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = repo.LockMemberInTx(ctx, tx, 3)
	assert.ErrorIs(t, err, apperrors.ErrDatabase)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestAdjustAvailableCopiesInTx(t *testing.T) {
	ctx := context.Background()
	query := regexp.QuoteMeta("UPDATE books SET available_copies = available_copies + $1 WHERE id = $2")

	mockPool := newMockPool(t)
	repo := NewLoanRepository(mockPool, logger)
	tx := beginMockTx(t, mockPool)
	mockPool.ExpectExec(query).WithArgs(-1, int64(1)).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mockPool.ExpectExec(query).WithArgs(-1, int64(2)).
		WillReturnError(&pgconn.PgError{Code: "23514", ConstraintName: "books_available_copies_non_negative"})

	assert.NoError(t, repo.AdjustAvailableCopiesInTx(ctx, tx, 1, -1))
	assert.ErrorIs(t, repo.AdjustAvailableCopiesInTx(ctx, tx, 2, -1), apperrors.ErrValidation)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestInsertLoanInTx(t *testing.T) {
	ctx := context.Background()
	mockPool := newMockPool(t)
	repo := NewLoanRepository(mockPool, logger)
	tx := beginMockTx(t, mockPool)
	loanDate, dueDate := day(2025, 3, 1), day(2025, 3, 15)

	mockPool.ExpectQuery(regexp.QuoteMeta("INSERT INTO loans (book_id, member_id, loan_date, due_date, is_returned, remainder_sent)")).
		WithArgs(int64(1), int64(2), loanDate, dueDate).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(30)))

	l := &loan.Loan{BookID: 1, MemberID: 2, LoanDate: loanDate, DueDate: dueDate}
	require.NoError(t, repo.InsertLoanInTx(ctx, tx, l))
	assert.Equal(t, int64(30), l.ID)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestFindOpenLoanForUpdate(t *testing.T) {
	ctx := context.Background()
	query := regexp.QuoteMeta("ORDER BY loan_date ASC, id ASC\n        LIMIT 1\n        FOR UPDATE")

	t.Run("earliest open loan", func(t *testing.T) {
		mockPool := newMockPool(t)
		repo := NewLoanRepository(mockPool, logger)
		tx := beginMockTx(t, mockPool)
		mockPool.ExpectQuery(query).WithArgs(int64(1), int64(2)).
			WillReturnRows(pgxmock.NewRows(loanRowColumns).
				AddRow(int64(4), int64(1), int64(2), day(2025, 1, 1), day(2025, 1, 15), nil, false, false))

		l, err := repo.FindOpenLoanForUpdate(ctx, tx, 1, 2)

		require.NoError(t, err)
		assert.Equal(t, int64(4), l.ID)
		assert.Nil(t, l.ReturnDate)
		assert.False(t, l.IsReturned)
	})

	t.Run("none open", func(t *testing.T) {
		mockPool := newMockPool(t)
		repo := NewLoanRepository(mockPool, logger)
		tx := beginMockTx(t, mockPool)
		mockPool.ExpectQuery(query).WithArgs(int64(1), int64(2)).WillReturnRows(pgxmock.NewRows(loanRowColumns))

		_, err := repo.FindOpenLoanForUpdate(ctx, tx, 1, 2)

		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}

func TestMarkReturnedInTx(t *testing.T) {
	ctx := context.Background()
	query := regexp.QuoteMeta("UPDATE loans SET is_returned = TRUE, return_date = $1 WHERE id = $2 AND is_returned = FALSE")
	today := day(2025, 3, 10)

	mockPool := newMockPool(t)
	repo := NewLoanRepository(mockPool, logger)
	tx := beginMockTx(t, mockPool)
	mockPool.ExpectExec(query).WithArgs(today, int64(4)).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mockPool.ExpectExec(query).WithArgs(today, int64(5)).WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	assert.NoError(t, repo.MarkReturnedInTx(ctx, tx, 4, today))
	assert.ErrorIs(t, repo.MarkReturnedInTx(ctx, tx, 5, today), apperrors.ErrNotFound)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestFindLoanForUpdateAndExtend(t *testing.T) {
	ctx := context.Background()
	returned := day(2025, 1, 10)

	mockPool := newMockPool(t)
	repo := NewLoanRepository(mockPool, logger)
	tx := beginMockTx(t, mockPool)
	mockPool.ExpectQuery(regexp.QuoteMeta("FROM loans WHERE id = $1 FOR UPDATE")).WithArgs(int64(4)).
		WillReturnRows(pgxmock.NewRows(loanRowColumns).
			AddRow(int64(4), int64(1), int64(2), day(2025, 1, 1), day(2025, 1, 15), &returned, true, false))
	mockPool.ExpectExec(regexp.QuoteMeta("UPDATE loans SET due_date = $1 WHERE id = $2")).
		WithArgs(day(2025, 1, 22), int64(4)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	l, err := repo.FindLoanForUpdate(ctx, tx, 4)
	require.NoError(t, err)
	require.NotNil(t, l.ReturnDate)
	assert.Equal(t, returned, *l.ReturnDate)
	assert.True(t, l.IsReturned)

	require.NoError(t, repo.UpdateDueDateInTx(ctx, tx, 4, l.DueDate.AddDate(0, 0, 7)))
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestGetLoanByID(t *testing.T) {
	ctx := context.Background()
	query, args, err := loanDetailDataset().Where(goqu.I("l.id").Eq(int64(12))).ToSQL()
	require.NoError(t, err)

	t.Run("found", func(t *testing.T) {
		mockPool := newMockPool(t)
		repo := NewLoanRepository(mockPool, logger)
		mockPool.ExpectQuery(regexp.QuoteMeta(query)).WithArgs(args...).
			WillReturnRows(pgxmock.NewRows(loanDetailRow).AddRow(
				int64(12), int64(1), int64(2), day(2025, 3, 1), day(2025, 3, 15), nil, false, false,
				"Dune", "9780441013593", "sci-fi", 2,
				int64(7), "Frank", "Herbert",
				day(2024, 1, 1), int64(3), "reader", "reader@example.com",
			))

		l, err := repo.GetLoanByID(ctx, 12)

		require.NoError(t, err)
		require.NotNil(t, l.Book)
		assert.Equal(t, "Dune", l.Book.Title)
		assert.Equal(t, "Herbert", l.Book.Author.LastName)
		require.NotNil(t, l.Member)
		assert.Equal(t, "reader", l.Member.User.Username)
		assert.Equal(t, int64(2), l.Member.ID)
	})

	t.Run("missing", func(t *testing.T) {
		mockPool := newMockPool(t)
		repo := NewLoanRepository(mockPool, logger)
		mockPool.ExpectQuery(regexp.QuoteMeta(query)).WithArgs(args...).WillReturnRows(pgxmock.NewRows(loanDetailRow))

		_, err := repo.GetLoanByID(ctx, 12)

		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}

func TestListLoans(t *testing.T) {
	open := false
	filter := loan.Filter{MemberID: 2, IsReturned: &open}
	page := pagination.New(1, 10, 10, 100)

	mockPool := newMockPool(t)
	repo := NewLoanRepository(mockPool, logger)
	countSQL, countArgs, pageSQL, pageArgs := listQueries(t, loanListDataset(filter), page.Limit(), page.Offset())

	mockPool.ExpectQuery(regexp.QuoteMeta(countSQL)).WithArgs(countArgs...).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(0)))
	mockPool.ExpectQuery(regexp.QuoteMeta(pageSQL)).WithArgs(pageArgs...).
		WillReturnRows(pgxmock.NewRows(loanDetailRow))

	res, err := repo.ListLoans(context.Background(), filter, page)

	require.NoError(t, err)
	assert.Zero(t, res.Total)
	assert.NotNil(t, res.Items)
	assert.Empty(t, res.Items)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestLoanListDatasetFilters(t *testing.T) {
	returned := true
	sql, args, err := loanListDataset(loan.Filter{MemberID: 2, BookID: 5, IsReturned: &returned}).ToSQL()

	require.NoError(t, err)
	assert.Contains(t, sql, `"l"."member_id" = $1`)
	assert.Contains(t, sql, `"l"."book_id" = $2`)
	assert.Contains(t, sql, `"l"."is_returned" IS TRUE`)
	assert.Equal(t, []any{int64(2), int64(5)}, args)
}

func TestDeleteLoan(t *testing.T) {
	mockPool := newMockPool(t)
	repo := NewLoanRepository(mockPool, logger)
	mockPool.ExpectExec(regexp.QuoteMeta("DELETE FROM loans WHERE id = $1")).WithArgs(int64(4)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	assert.NoError(t, repo.DeleteLoan(context.Background(), 4))
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestFindOverdueUnreminded(t *testing.T) {
	ctx := context.Background()
	today := day(2025, 3, 20)
	query := regexp.QuoteMeta("WHERE l.is_returned = FALSE AND l.due_date < $1 AND l.remainder_sent = FALSE")

	t.Run("rows", func(t *testing.T) {
		mockPool := newMockPool(t)
		repo := NewLoanRepository(mockPool, logger)
		mockPool.ExpectQuery(query).WithArgs(today).
			WillReturnRows(pgxmock.NewRows(noticeColumns).
				AddRow(int64(1), "Dune", "reader", "reader@example.com", day(2025, 3, 1)).
				AddRow(int64(2), "Emma", "ada", "ada@example.com", day(2025, 3, 19)))

		notices, err := repo.FindOverdueUnreminded(ctx, today)

		require.NoError(t, err)
		require.Len(t, notices, 2)
		assert.Equal(t, loan.Notice{LoanID: 1, BookTitle: "Dune", Username: "reader", Email: "reader@example.com", DueDate: day(2025, 3, 1)}, notices[0])
	})

	t.Run("query failure", func(t *testing.T) {
		mockPool := newMockPool(t)
		repo := NewLoanRepository(mockPool, logger)
		mockPool.ExpectQuery(query).WithArgs(today).WillReturnError(errors.New("connection reset"))

		_, err := repo.FindOverdueUnreminded(ctx, today)

		assert.ErrorIs(t, err, apperrors.ErrDatabase)
	})
}

func TestMarkReminderSent(t *testing.T) {
	ctx := context.Background()
	query := regexp.QuoteMeta("UPDATE loans SET remainder_sent = TRUE WHERE id = $1 AND remainder_sent = FALSE")

	mockPool := newMockPool(t)
	repo := NewLoanRepository(mockPool, logger)
	mockPool.ExpectExec(query).WithArgs(int64(1)).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mockPool.ExpectExec(query).WithArgs(int64(1)).WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	marked, err := repo.MarkReminderSent(ctx, 1)
	require.NoError(t, err)
	assert.True(t, marked)

	marked, err = repo.MarkReminderSent(ctx, 1)
	require.NoError(t, err)
	assert.False(t, marked, "a second mark must not report a change")
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestGetNotice(t *testing.T) {
	ctx := context.Background()
	query := regexp.QuoteMeta(noticeSelect + ` WHERE l.id = $1`)

	mockPool := newMockPool(t)
	repo := NewLoanRepository(mockPool, logger)
	mockPool.ExpectQuery(query).WithArgs(int64(5)).
		WillReturnRows(pgxmock.NewRows(noticeColumns).AddRow(int64(5), "Dune", "reader", "reader@example.com", day(2025, 3, 15)))
	mockPool.ExpectQuery(query).WithArgs(int64(6)).WillReturnRows(pgxmock.NewRows(noticeColumns))

	n, err := repo.GetNotice(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "Dune", n.BookTitle)

	_, err = repo.GetNotice(ctx, 6)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}
