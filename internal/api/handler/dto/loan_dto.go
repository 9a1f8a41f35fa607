package dto

import (
	"bytes"
	"library-system/internal/domain/loan"
	"library-system/internal/pkg/apperrors"
	"strconv"

	jsoniter "github.com/json-iterator/go"
)

// BookLoanRequest is the body of the book loan and return actions; the book
// comes from the path.
type BookLoanRequest struct {
	MemberID int64 `json:"member_id"`
}

// Validate reports a missing member the same way as an unknown one.
func (r *BookLoanRequest) Validate() error {
	if r.MemberID <= 0 {
		return apperrors.NewValidationError("member_id", loan.MsgMemberDoesNotExist)
	}
	return nil
}

type CreateLoanRequest struct {
	BookID   int64 `json:"book_id"`
	MemberID int64 `json:"member_id"`
}

func (r *CreateLoanRequest) Validate() error {
	if err := requirePositiveID("book_id", r.BookID); err != nil {
		return err
	}
	return requirePositiveID("member_id", r.MemberID)
}

// ExtendDueDateRequest keeps additional_days raw so that strings and
// fractions are reported against the field instead of failing the decode.
type ExtendDueDateRequest struct {
	AdditionalDays jsoniter.RawMessage `json:"additional_days"`
}

func (r *ExtendDueDateRequest) Validate() error {
	_, err := r.Days()
	return err
}

// Days parses additional_days as a strictly positive integer.
func (r *ExtendDueDateRequest) Days() (int, error) {
	raw := bytes.TrimSpace(r.AdditionalDays)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, apperrors.NewValidationError("additional_days", msgRequired)
	}
	days, err := strconv.Atoi(string(bytes.Trim(raw, `"`)))
	if err != nil {
		return 0, apperrors.NewValidationError("additional_days", "A valid integer is required.")
	}
	if days < 1 {
		return 0, apperrors.NewValidationError("additional_days", "Ensure this value is greater than or equal to 1.")
	}
	return days, nil
}

// LoanResponse nests book and member only when they were loaded with the loan.
type LoanResponse struct {
	ID            int64           `json:"id"`
	BookID        int64           `json:"book_id"`
	MemberID      int64           `json:"member_id"`
	Book          *BookResponse   `json:"book,omitempty"`
	Member        *MemberResponse `json:"member,omitempty"`
	LoanDate      string          `json:"loan_date"`
	DueDate       string          `json:"due_date"`
	ReturnDate    *string         `json:"return_date"`
	IsReturned    bool            `json:"is_returned"`
	RemainderSent bool            `json:"remainder_sent"`
}

func NewLoanResponse(l *loan.Loan) LoanResponse {
	resp := LoanResponse{
		ID:            l.ID,
		BookID:        l.BookID,
		MemberID:      l.MemberID,
		LoanDate:      formatDate(l.LoanDate),
		DueDate:       formatDate(l.DueDate),
		ReturnDate:    formatOptionalDate(l.ReturnDate),
		IsReturned:    l.IsReturned,
		RemainderSent: l.ReminderSent,
	}
	if l.Book != nil {
		book := NewBookResponse(l.Book)
		resp.Book = &book
	}
	if l.Member != nil {
		m := NewMemberResponse(l.Member)
		resp.Member = &m
	}
	return resp
}
