package postgres

import (
	"context"
	"errors"
	"fmt"
	"library-system/internal/domain/catalog"
	"library-system/internal/domain/loan"
	"library-system/internal/domain/member"
	"library-system/internal/pkg/apperrors"
	"library-system/internal/pkg/pagination"
	"log/slog"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/jackc/pgx/v5"
)

type LoanRepository struct {
	txRepo
}

var _ loan.Repository = (*LoanRepository)(nil)

func NewLoanRepository(db DBPool, logger *slog.Logger) *LoanRepository {
	if db == nil {
		panic("DBPool cannot be nil for LoanRepository")
	}
	return &LoanRepository{txRepo{db: db, logger: logger.With("component", "LoanRepository")}}
}

const loanColumns = `id, book_id, member_id, loan_date, due_date, return_date, is_returned, remainder_sent`

func scanLoan(row pgx.Row) (*loan.Loan, error) {
	var l loan.Loan
	if err := row.Scan(&l.ID, &l.BookID, &l.MemberID, &l.LoanDate, &l.DueDate, &l.ReturnDate, &l.IsReturned, &l.ReminderSent); err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *LoanRepository) LockBookForUpdate(ctx context.Context, tx pgx.Tx, bookID int64) (*loan.BookStock, error) {
	query := `SELECT id, title, available_copies FROM books WHERE id = $1 FOR UPDATE`

	var b loan.BookStock
	start := time.Now()
	err := tx.QueryRow(ctx, query, bookID).Scan(&b.BookID, &b.Title, &b.AvailableCopies)
	observe("lock_book", start, err)
	if err != nil {
		return nil, lookupError(err, r.logger, "book", bookID)
	}
	return &b, nil
}

func (r *LoanRepository) LockMemberInTx(ctx context.Context, tx pgx.Tx, memberID int64) (bool, error) {
	query := `SELECT id FROM members WHERE id = $1 FOR SHARE`

	var id int64
	start := time.Now()
	err := tx.QueryRow(ctx, query, memberID).Scan(&id)
	observe("lock_member", start, err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, translateDBError(err, r.logger)
	}
	return true, nil
}

func (r *LoanRepository) AdjustAvailableCopiesInTx(ctx context.Context, tx pgx.Tx, bookID int64, delta int) error {
	query := `UPDATE books SET available_copies = available_copies + $1 WHERE id = $2`

	start := time.Now()
	tag, err := tx.Exec(ctx, query, delta, bookID)
	observe("adjust_copies", start, err)
	if err != nil {
		return translateDBError(err, r.logger)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: book with ID %d not found", apperrors.ErrNotFound, bookID)
	}
	return nil
}

func (r *LoanRepository) InsertLoanInTx(ctx context.Context, tx pgx.Tx, l *loan.Loan) error {
	query := `
        INSERT INTO loans (book_id, member_id, loan_date, due_date, is_returned, remainder_sent)
        VALUES ($1, $2, $3, $4, FALSE, FALSE)
        RETURNING id`

	start := time.Now()
	err := tx.QueryRow(ctx, query, l.BookID, l.MemberID, l.LoanDate, l.DueDate).Scan(&l.ID)
	observe("insert_loan", start, err)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert loan", slog.Any("error", err))
		return translateDBError(err, r.logger)
	}
	return nil
}

func (r *LoanRepository) FindOpenLoanForUpdate(ctx context.Context, tx pgx.Tx, bookID, memberID int64) (*loan.Loan, error) {
	query := `SELECT ` + loanColumns + `
        FROM loans
        WHERE book_id = $1 AND member_id = $2 AND is_returned = FALSE
        ORDER BY loan_date ASC, id ASC
        LIMIT 1
        FOR UPDATE`

	start := time.Now()
	l, err := scanLoan(tx.QueryRow(ctx, query, bookID, memberID))
	observe("find_open_loan", start, err)
	if err != nil {
		return nil, translateDBError(err, r.logger)
	}
	return l, nil
}

func (r *LoanRepository) MarkReturnedInTx(ctx context.Context, tx pgx.Tx, loanID int64, returnDate time.Time) error {
	query := `UPDATE loans SET is_returned = TRUE, return_date = $1 WHERE id = $2 AND is_returned = FALSE`

	start := time.Now()
	tag, err := tx.Exec(ctx, query, returnDate, loanID)
	observe("mark_returned", start, err)
	if err != nil {
		return translateDBError(err, r.logger)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: open loan with ID %d not found", apperrors.ErrNotFound, loanID)
	}
	return nil
}

func (r *LoanRepository) FindLoanForUpdate(ctx context.Context, tx pgx.Tx, loanID int64) (*loan.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1 FOR UPDATE`

	start := time.Now()
	l, err := scanLoan(tx.QueryRow(ctx, query, loanID))
	observe("lock_loan", start, err)
	if err != nil {
		return nil, lookupError(err, r.logger, "loan", loanID)
	}
	return l, nil
}

func (r *LoanRepository) UpdateDueDateInTx(ctx context.Context, tx pgx.Tx, loanID int64, dueDate time.Time) error {
	start := time.Now()
	tag, err := tx.Exec(ctx, `UPDATE loans SET due_date = $1 WHERE id = $2`, dueDate, loanID)
	observe("update_due_date", start, err)
	if err != nil {
		return translateDBError(err, r.logger)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: loan with ID %d not found", apperrors.ErrNotFound, loanID)
	}
	return nil
}

// loanDetailColumns selects a loan with its book, the book's author, the member and the member's user.
var loanDetailColumns = []any{
	goqu.I("l.id"), goqu.I("l.book_id"), goqu.I("l.member_id"), goqu.I("l.loan_date"), goqu.I("l.due_date"),
	goqu.I("l.return_date"), goqu.I("l.is_returned"), goqu.I("l.remainder_sent"),
	goqu.I("b.title"), goqu.I("b.isbn"), goqu.I("b.genre"), goqu.I("b.available_copies"),
	goqu.I("a.id"), goqu.I("a.first_name"), goqu.I("a.last_name"),
	goqu.I("m.membership_date"), goqu.I("u.id"), goqu.I("u.username"), goqu.I("u.email"),
}

func loanDetailDataset() *goqu.SelectDataset {
	return dialect.From(goqu.T("loans").As("l")).Prepared(true).
		Join(goqu.T("books").As("b"), goqu.On(goqu.I("b.id").Eq(goqu.I("l.book_id")))).
		Join(goqu.T("authors").As("a"), goqu.On(goqu.I("a.id").Eq(goqu.I("b.author_id")))).
		Join(goqu.T("members").As("m"), goqu.On(goqu.I("m.id").Eq(goqu.I("l.member_id")))).
		Join(goqu.T("users").As("u"), goqu.On(goqu.I("u.id").Eq(goqu.I("m.user_id")))).
		Select(loanDetailColumns...)
}

func loanListDataset(filter loan.Filter) *goqu.SelectDataset {
	ds := loanDetailDataset().Order(goqu.I("l.id").Asc())
	if filter.MemberID != 0 {
		ds = ds.Where(goqu.I("l.member_id").Eq(filter.MemberID))
	}
	if filter.BookID != 0 {
		ds = ds.Where(goqu.I("l.book_id").Eq(filter.BookID))
	}
	if filter.IsReturned != nil {
		ds = ds.Where(goqu.I("l.is_returned").Eq(*filter.IsReturned))
	}
	return ds
}

func scanLoanDetail(row pgx.Row) (*loan.Loan, error) {
	var (
		l     loan.Loan
		b     catalog.Book
		a     catalog.Author
		m     member.Member
		u     member.User
		genre string
	)
	if err := row.Scan(
		&l.ID, &l.BookID, &l.MemberID, &l.LoanDate, &l.DueDate, &l.ReturnDate, &l.IsReturned, &l.ReminderSent,
		&b.Title, &b.ISBN, &genre, &b.AvailableCopies,
		&a.ID, &a.FirstName, &a.LastName,
		&m.MembershipDate, &u.ID, &u.Username, &u.Email,
	); err != nil {
		return nil, err
	}
	b.ID = l.BookID
	b.Genre = catalog.Genre(genre)
	b.AuthorID = a.ID
	b.Author = &a
	m.ID = l.MemberID
	m.UserID = u.ID
	m.User = &u
	l.Book = &b
	l.Member = &m
	return &l, nil
}

func (r *LoanRepository) GetLoanByID(ctx context.Context, loanID int64) (*loan.Loan, error) {
	query, args, err := loanDetailDataset().Where(goqu.I("l.id").Eq(loanID)).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("%w: build loan query: %w", apperrors.ErrInternalServer, err)
	}

	start := time.Now()
	l, err := scanLoanDetail(r.db.QueryRow(ctx, query, args...))
	observe("get_loan", start, err)
	if err != nil {
		return nil, lookupError(err, r.logger, "loan", loanID)
	}
	return l, nil
}

func (r *LoanRepository) ListLoans(ctx context.Context, filter loan.Filter, page pagination.Params) (pagination.Page[loan.Loan], error) {
	var res pagination.Page[loan.Loan]
	ds := loanListDataset(filter)

	total, err := countAndPage(ctx, r.db, ds, "list_loans")
	if err != nil {
		return res, err
	}
	res.Total = total

	query, args, err := ds.Limit(page.Limit()).Offset(page.Offset()).ToSQL()
	if err != nil {
		return res, fmt.Errorf("%w: build loan list: %w", apperrors.ErrInternalServer, err)
	}

	start := time.Now()
	rows, err := r.db.Query(ctx, query, args...)
	observe("list_loans", start, err)
	if err != nil {
		return res, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	res.Items = make([]loan.Loan, 0, page.Limit())
	for rows.Next() {
		l, err := scanLoanDetail(rows)
		if err != nil {
			return res, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		res.Items = append(res.Items, *l)
	}
	if err := rows.Err(); err != nil {
		return res, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return res, nil
}

// DeleteLoan removes the row and nothing else; stock is only touched by a return.
func (r *LoanRepository) DeleteLoan(ctx context.Context, loanID int64) error {
	start := time.Now()
	tag, err := r.db.Exec(ctx, `DELETE FROM loans WHERE id = $1`, loanID)
	observe("delete_loan", start, err)
	if err != nil {
		return translateDBError(err, r.logger)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: loan with ID %d not found", apperrors.ErrNotFound, loanID)
	}
	return nil
}

const noticeSelect = `
        SELECT l.id, b.title, u.username, u.email, l.due_date
        FROM loans l
        JOIN books b ON b.id = l.book_id
        JOIN members m ON m.id = l.member_id
        JOIN users u ON u.id = m.user_id`

func (r *LoanRepository) FindOverdueUnreminded(ctx context.Context, today time.Time) ([]loan.Notice, error) {
	query := noticeSelect + `
        WHERE l.is_returned = FALSE AND l.due_date < $1 AND l.remainder_sent = FALSE
        ORDER BY l.due_date ASC, l.id ASC`

	start := time.Now()
	rows, err := r.db.Query(ctx, query, today)
	observe("find_overdue", start, err)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query overdue loans", slog.Any("error", err))
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	notices := make([]loan.Notice, 0)
	for rows.Next() {
		var n loan.Notice
		if err := rows.Scan(&n.LoanID, &n.BookTitle, &n.Username, &n.Email, &n.DueDate); err != nil {
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		notices = append(notices, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return notices, nil
}

func (r *LoanRepository) MarkReminderSent(ctx context.Context, loanID int64) (bool, error) {
	query := `UPDATE loans SET remainder_sent = TRUE WHERE id = $1 AND remainder_sent = FALSE`

	start := time.Now()
	tag, err := r.db.Exec(ctx, query, loanID)
	observe("mark_reminder_sent", start, err)
	if err != nil {
		return false, translateDBError(err, r.logger)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *LoanRepository) GetNotice(ctx context.Context, loanID int64) (*loan.Notice, error) {
	var n loan.Notice
	start := time.Now()
	err := r.db.QueryRow(ctx, noticeSelect+` WHERE l.id = $1`, loanID).
		Scan(&n.LoanID, &n.BookTitle, &n.Username, &n.Email, &n.DueDate)
	observe("get_notice", start, err)
	if err != nil {
		return nil, lookupError(err, r.logger, "loan", loanID)
	}
	return &n, nil
}
