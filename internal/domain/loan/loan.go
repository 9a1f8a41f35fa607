package loan

import (
	"library-system/internal/domain/catalog"
	"library-system/internal/domain/member"
	"library-system/internal/pkg/clock"
	"time"
)

const (
	MsgNoAvailableCopies   = "No available copies"
	MsgMemberDoesNotExist  = "Member does not exist"
	MsgActiveLoanNotExists = "Active loan does not exist"
)

const DefaultPeriodDays = 14

// Loan is one borrowing of one Book by one Member.
//
// LoanDate never changes. DueDate changes only through an extension.
// IsReturned and ReminderSent only ever move from false to true, and
// ReturnDate is set exactly once, together with IsReturned.
type Loan struct {
	ID           int64
	BookID       int64
	MemberID     int64
	LoanDate     time.Time
	DueDate      time.Time
	ReturnDate   *time.Time
	IsReturned   bool
	ReminderSent bool

	Book   *catalog.Book
	Member *member.Member
}

// IsOverdue reports whether the loan is open and its due date lies strictly before today.
func (l *Loan) IsOverdue(today time.Time) bool {
	return !l.IsReturned && l.DueDate.Before(clock.DateOf(today))
}

// BookStock is the locked view of a book the ledger works with inside a transaction.
type BookStock struct {
	BookID          int64
	Title           string
	AvailableCopies int
}

// Notice holds what a member-facing message about a loan needs.
type Notice struct {
	LoanID    int64
	BookTitle string
	Username  string
	Email     string
	DueDate   time.Time
}

type Filter struct {
	MemberID   int64
	BookID     int64
	IsReturned *bool
}

// DueOn returns the due date for a loan taken out on loanDate.
func DueOn(loanDate time.Time, periodDays int) time.Time {
	return clock.DateOf(loanDate).AddDate(0, 0, periodDays)
}
