package event

import (
	"context"
	"log/slog"
	"sync"
)

// DirectDispatcher hands events to an in-process handler on a background
// goroutine. It stands in for the broker when RabbitMQ is disabled.
type DirectDispatcher struct {
	handler LoanCreatedHandler
	logger  *slog.Logger
	wg      sync.WaitGroup
}

var _ EventPublisher = (*DirectDispatcher)(nil)

func NewDirectDispatcher(handler LoanCreatedHandler, logger *slog.Logger) *DirectDispatcher {
	if handler == nil {
		panic("loan created handler cannot be nil")
	}
	return &DirectDispatcher{
		handler: handler,
		logger:  logger.With("component", "DirectDispatcher"),
	}
}

func (d *DirectDispatcher) PublishLoanCreated(ctx context.Context, event LoanCreatedEvent) error {
	// The request context is cancelled once the response is written.
	detached := context.WithoutCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.handler.HandleLoanCreated(detached, event); err != nil {
			d.logger.ErrorContext(detached, "Loan created handler failed", slog.Int64("loanID", event.LoanID), slog.Any("error", err))
		}
	}()
	return nil
}

// Wait blocks until every dispatched event has been handled.
func (d *DirectDispatcher) Wait() {
	d.wg.Wait()
}
