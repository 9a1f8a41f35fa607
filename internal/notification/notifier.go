package notification

import (
	"bytes"
	"context"
	"fmt"
	"library-system/internal/domain/loan"
	"library-system/internal/infrastructure/monitoring"
	"log/slog"
	"text/template"
)

const (
	KindLoanConfirmation = "loan_confirmation"
	KindOverdueReminder  = "overdue_reminder"

	SubjectLoanConfirmation = "Book Loaned Successfully"
	SubjectOverdueReminder  = "Overdue Book Reminder"
)

var (
	loanConfirmationBody = template.Must(template.New(KindLoanConfirmation).Parse(
		"Hello {{.Username}},\n\nYou have successfully loaned \"{{.BookTitle}}\".\nPlease return it by the due date."))
	overdueReminderBody = template.Must(template.New(KindOverdueReminder).Parse(
		"Dear {{.Username}},\n\ndo note that \"{{.BookTitle}} is overdue\".\nPlease return it by the due date."))
)

// Notifier renders member-facing messages about loans and hands them to a Mailer.
type Notifier struct {
	mailer Mailer
	from   string
	logger *slog.Logger
}

func NewNotifier(mailer Mailer, from string, logger *slog.Logger) *Notifier {
	if mailer == nil {
		panic("mailer cannot be nil")
	}
	return &Notifier{
		mailer: mailer,
		from:   from,
		logger: logger.With("component", "Notifier"),
	}
}

func (n *Notifier) SendLoanConfirmation(ctx context.Context, notice loan.Notice) error {
	return n.send(ctx, KindLoanConfirmation, SubjectLoanConfirmation, loanConfirmationBody, notice)
}

func (n *Notifier) SendOverdueReminder(ctx context.Context, notice loan.Notice) error {
	return n.send(ctx, KindOverdueReminder, SubjectOverdueReminder, overdueReminderBody, notice)
}

func (n *Notifier) send(ctx context.Context, kind, subject string, body *template.Template, notice loan.Notice) error {
	var buf bytes.Buffer
	if err := body.Execute(&buf, notice); err != nil {
		monitoring.RecordNotification(kind, "failure")
		return fmt.Errorf("render %s: %w", kind, err)
	}

	msg := Message{From: n.from, To: notice.Email, Subject: subject, Body: buf.String()}
	if err := n.mailer.Send(ctx, msg); err != nil {
		monitoring.RecordNotification(kind, "failure")
		n.logger.ErrorContext(ctx, "Failed to send notification",
			slog.String("kind", kind), slog.Int64("loanID", notice.LoanID), slog.String("to", notice.Email), slog.Any("error", err))
		return err
	}

	monitoring.RecordNotification(kind, "success")
	n.logger.DebugContext(ctx, "Notification sent", slog.String("kind", kind), slog.Int64("loanID", notice.LoanID))
	return nil
}
