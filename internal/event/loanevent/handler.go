package loanevent

import (
	"context"
	"errors"
	"fmt"
	"library-system/internal/domain/loan"
	"library-system/internal/event"
	"library-system/internal/pkg/apperrors"
	"log/slog"

	jsoniter "github.com/json-iterator/go"
	amqp "github.com/rabbitmq/amqp091-go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type NoticeSource interface {
	GetNotice(ctx context.Context, loanID int64) (*loan.Notice, error)
}

type ConfirmationSender interface {
	SendLoanConfirmation(ctx context.Context, notice loan.Notice) error
}

// Handler sends the loan confirmation for a loan.created event. It serves both
// the in-process dispatcher and the RabbitMQ consumer.
type Handler struct {
	notices NoticeSource
	sender  ConfirmationSender
	logger  *slog.Logger
}

var _ event.LoanCreatedHandler = (*Handler)(nil)

func NewHandler(notices NoticeSource, sender ConfirmationSender, logger *slog.Logger) *Handler {
	return &Handler{
		notices: notices,
		sender:  sender,
		logger:  logger.With("component", "LoanCreatedHandler"),
	}
}

// HandleLoanCreated is a no-op when the loan has been deleted since the event was raised.
func (h *Handler) HandleLoanCreated(ctx context.Context, evt event.LoanCreatedEvent) error {
	logCtx := h.logger.With(slog.Int64("loanID", evt.LoanID))

	notice, err := h.notices.GetNotice(ctx, evt.LoanID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logCtx.InfoContext(ctx, "Loan no longer exists, skipping confirmation")
			return nil
		}
		return fmt.Errorf("load notice for loan %d: %w", evt.LoanID, err)
	}

	if err := h.sender.SendLoanConfirmation(ctx, *notice); err != nil {
		return fmt.Errorf("send confirmation for loan %d: %w", evt.LoanID, err)
	}
	logCtx.InfoContext(ctx, "Loan confirmation sent", slog.String("to", notice.Email))
	return nil
}

func (h *Handler) HandleDelivery(ctx context.Context, d amqp.Delivery) {
	logCtx := h.logger.With(slog.Uint64("deliveryTag", d.DeliveryTag), slog.String("routingKey", d.RoutingKey))

	if d.RoutingKey != event.RoutingKeyLoanCreated {
		logCtx.WarnContext(ctx, "Received message with unknown routing key. Discarding.")
		_ = d.Reject(false)
		return
	}

	var evt event.LoanCreatedEvent
	if err := json.Unmarshal(d.Body, &evt); err != nil {
		logCtx.ErrorContext(ctx, "Failed to unmarshal LoanCreatedEvent", "error", err, "body", string(d.Body))
		_ = d.Nack(false, false)
		return
	}

	if err := h.HandleLoanCreated(ctx, evt); err != nil {
		logCtx.ErrorContext(ctx, "Failed to process loan created event", "error", err)
		_ = d.Nack(false, false)
		return
	}

	if err := d.Ack(false); err != nil {
		logCtx.ErrorContext(ctx, "Failed to acknowledge message after successful processing", "error", err)
	}
}
