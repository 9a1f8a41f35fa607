package event

import (
	"context"
	"time"
)

const RoutingKeyLoanCreated = "loan.created"

// LoanCreatedEvent asks for the loan confirmation to be sent. Handlers load
// everything else from the loan id, so a stale event for a deleted loan is harmless.
type LoanCreatedEvent struct {
	LoanID    int64     `json:"loanId"`
	BookID    int64     `json:"bookId"`
	MemberID  int64     `json:"memberId"`
	DueDate   time.Time `json:"dueDate"`
	Timestamp time.Time `json:"timestamp"`
}

type EventPublisher interface {
	PublishLoanCreated(ctx context.Context, event LoanCreatedEvent) error
}

// LoanCreatedHandler is implemented by whatever delivers the confirmation.
type LoanCreatedHandler interface {
	HandleLoanCreated(ctx context.Context, event LoanCreatedEvent) error
}
