// Package loantest provides an in-memory loan.Repository for tests.
package loantest

import (
	"context"
	"errors"
	"fmt"
	"library-system/internal/domain/loan"
	"library-system/internal/pkg/apperrors"
	"library-system/internal/pkg/pagination"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
)

type MemberInfo struct {
	Username string
	Email    string
}

type state struct {
	books   map[int64]loan.BookStock
	members map[int64]MemberInfo
	loans   map[int64]loan.Loan
	nextID  int64
}

func (s state) clone() state {
	c := state{
		books:   make(map[int64]loan.BookStock, len(s.books)),
		members: make(map[int64]MemberInfo, len(s.members)),
		loans:   make(map[int64]loan.Loan, len(s.loans)),
		nextID:  s.nextID,
	}
	for k, v := range s.books {
		c.books[k] = v
	}
	for k, v := range s.members {
		c.members[k] = v
	}
	for k, v := range s.loans {
		if v.ReturnDate != nil {
			rd := *v.ReturnDate
			v.ReturnDate = &rd
		}
		c.loans[k] = v
	}
	return c
}

// Ledger serialises transactions behind one mutex, which is a coarser
// version of the row locks the Postgres repository takes.
type Ledger struct {
	mu sync.Mutex
	st state

	// FailMarkReminder makes MarkReminderSent fail for the listed loan ids.
	FailMarkReminder map[int64]bool
}

var _ loan.Repository = (*Ledger)(nil)

func NewLedger() *Ledger {
	return &Ledger{st: state{
		books:   map[int64]loan.BookStock{},
		members: map[int64]MemberInfo{},
		loans:   map[int64]loan.Loan{},
		nextID:  1,
	}}
}

func (l *Ledger) AddBook(id int64, title string, copies int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.st.books[id] = loan.BookStock{BookID: id, Title: title, AvailableCopies: copies}
}

func (l *Ledger) AddMember(id int64, info MemberInfo) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.st.members[id] = info
}

// PutLoan stores a loan as is, assigning an id when it has none.
func (l *Ledger) PutLoan(ln loan.Loan) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if ln.ID == 0 {
		ln.ID = l.st.nextID
		l.st.nextID++
	} else if ln.ID >= l.st.nextID {
		l.st.nextID = ln.ID + 1
	}
	l.st.loans[ln.ID] = ln
	return ln.ID
}

func (l *Ledger) Book(id int64) loan.BookStock {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.st.books[id]
}

func (l *Ledger) Loans() []loan.Loan {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]loan.Loan, 0, len(l.st.loans))
	for _, ln := range l.st.clone().loans {
		out = append(out, ln)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type memTx struct {
	pgx.Tx
	snapshot state
	closed   bool
}

func (l *Ledger) asTx(tx pgx.Tx) (*memTx, error) {
	t, ok := tx.(*memTx)
	if !ok || t.closed {
		return nil, pgx.ErrTxClosed
	}
	return t, nil
}

func (l *Ledger) BeginTx(ctx context.Context) (pgx.Tx, error) {
	l.mu.Lock()
	return &memTx{snapshot: l.st.clone()}, nil
}

func (l *Ledger) CommitTx(ctx context.Context, tx pgx.Tx) error {
	t, err := l.asTx(tx)
	if err != nil {
		return err
	}
	t.closed = true
	l.mu.Unlock()
	return nil
}

func (l *Ledger) RollbackTx(ctx context.Context, tx pgx.Tx) error {
	t, err := l.asTx(tx)
	if err != nil {
		if errors.Is(err, pgx.ErrTxClosed) {
			return nil
		}
		return err
	}
	l.st = t.snapshot
	t.closed = true
	l.mu.Unlock()
	return nil
}

func (l *Ledger) LockBookForUpdate(ctx context.Context, tx pgx.Tx, bookID int64) (*loan.BookStock, error) {
	if _, err := l.asTx(tx); err != nil {
		return nil, err
	}
	b, ok := l.st.books[bookID]
	if !ok {
		return nil, fmt.Errorf("%w: book %d", apperrors.ErrNotFound, bookID)
	}
	return &b, nil
}

func (l *Ledger) LockMemberInTx(ctx context.Context, tx pgx.Tx, memberID int64) (bool, error) {
	if _, err := l.asTx(tx); err != nil {
		return false, err
	}
	_, ok := l.st.members[memberID]
	return ok, nil
}

func (l *Ledger) AdjustAvailableCopiesInTx(ctx context.Context, tx pgx.Tx, bookID int64, delta int) error {
	if _, err := l.asTx(tx); err != nil {
		return err
	}
	b, ok := l.st.books[bookID]
	if !ok {
		return fmt.Errorf("%w: book %d", apperrors.ErrNotFound, bookID)
	}
	if b.AvailableCopies+delta < 0 {
		return apperrors.NewValidationError("available_copies", "check constraint violated")
	}
	b.AvailableCopies += delta
	l.st.books[bookID] = b
	return nil
}

func (l *Ledger) InsertLoanInTx(ctx context.Context, tx pgx.Tx, ln *loan.Loan) error {
	if _, err := l.asTx(tx); err != nil {
		return err
	}
	ln.ID = l.st.nextID
	l.st.nextID++
	l.st.loans[ln.ID] = *ln
	return nil
}

func (l *Ledger) FindOpenLoanForUpdate(ctx context.Context, tx pgx.Tx, bookID, memberID int64) (*loan.Loan, error) {
	if _, err := l.asTx(tx); err != nil {
		return nil, err
	}
	var found *loan.Loan
	for _, ln := range l.st.loans {
		if ln.BookID != bookID || ln.MemberID != memberID || ln.IsReturned {
			continue
		}
		if found == nil || ln.LoanDate.Before(found.LoanDate) ||
			(ln.LoanDate.Equal(found.LoanDate) && ln.ID < found.ID) {
			c := ln
			found = &c
		}
	}
	if found == nil {
		return nil, apperrors.ErrNotFound
	}
	return found, nil
}

func (l *Ledger) MarkReturnedInTx(ctx context.Context, tx pgx.Tx, loanID int64, returnDate time.Time) error {
	if _, err := l.asTx(tx); err != nil {
		return err
	}
	ln, ok := l.st.loans[loanID]
	if !ok {
		return apperrors.ErrNotFound
	}
	ln.IsReturned = true
	ln.ReturnDate = &returnDate
	l.st.loans[loanID] = ln
	return nil
}

func (l *Ledger) FindLoanForUpdate(ctx context.Context, tx pgx.Tx, loanID int64) (*loan.Loan, error) {
	if _, err := l.asTx(tx); err != nil {
		return nil, err
	}
	ln, ok := l.st.loans[loanID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &ln, nil
}

func (l *Ledger) UpdateDueDateInTx(ctx context.Context, tx pgx.Tx, loanID int64, dueDate time.Time) error {
	if _, err := l.asTx(tx); err != nil {
		return err
	}
	ln, ok := l.st.loans[loanID]
	if !ok {
		return apperrors.ErrNotFound
	}
	ln.DueDate = dueDate
	l.st.loans[loanID] = ln
	return nil
}

func (l *Ledger) GetLoanByID(ctx context.Context, loanID int64) (*loan.Loan, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ln, ok := l.st.loans[loanID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &ln, nil
}

func (l *Ledger) ListLoans(ctx context.Context, filter loan.Filter, page pagination.Params) (pagination.Page[loan.Loan], error) {
	var matched []loan.Loan
	for _, ln := range l.Loans() {
		if filter.BookID != 0 && ln.BookID != filter.BookID {
			continue
		}
		if filter.MemberID != 0 && ln.MemberID != filter.MemberID {
			continue
		}
		if filter.IsReturned != nil && ln.IsReturned != *filter.IsReturned {
			continue
		}
		matched = append(matched, ln)
	}

	res := pagination.Page[loan.Loan]{Total: int64(len(matched))}
	start := int(page.Offset())
	if start >= len(matched) {
		return res, nil
	}
	end := min(start+int(page.Limit()), len(matched))
	res.Items = matched[start:end]
	return res, nil
}

func (l *Ledger) DeleteLoan(ctx context.Context, loanID int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.st.loans[loanID]; !ok {
		return apperrors.ErrNotFound
	}
	delete(l.st.loans, loanID)
	return nil
}

func (l *Ledger) FindOverdueUnreminded(ctx context.Context, today time.Time) ([]loan.Notice, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []loan.Notice
	for _, ln := range l.st.loans {
		if ln.IsReturned || ln.ReminderSent || !ln.DueDate.Before(today) {
			continue
		}
		out = append(out, l.noticeLocked(ln))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LoanID < out[j].LoanID })
	return out, nil
}

func (l *Ledger) MarkReminderSent(ctx context.Context, loanID int64) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.FailMarkReminder[loanID] {
		return false, apperrors.WrapDatabaseError(errors.New("update failed"), "could not flag reminder")
	}
	ln, ok := l.st.loans[loanID]
	if !ok || ln.ReminderSent {
		return false, nil
	}
	ln.ReminderSent = true
	l.st.loans[loanID] = ln
	return true, nil
}

func (l *Ledger) GetNotice(ctx context.Context, loanID int64) (*loan.Notice, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ln, ok := l.st.loans[loanID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	n := l.noticeLocked(ln)
	return &n, nil
}

func (l *Ledger) noticeLocked(ln loan.Loan) loan.Notice {
	m := l.st.members[ln.MemberID]
	return loan.Notice{
		LoanID:    ln.ID,
		BookTitle: l.st.books[ln.BookID].Title,
		Username:  m.Username,
		Email:     m.Email,
		DueDate:   ln.DueDate,
	}
}
