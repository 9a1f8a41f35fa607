package loanevent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"library-system/internal/domain/loan"
	"library-system/internal/event"
	"library-system/internal/pkg/apperrors"
	"log/slog"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var logger = slog.New(slog.NewTextHandler(io.Discard, nil))

type MockNoticeSource struct {
	mock.Mock
}

func (m *MockNoticeSource) GetNotice(ctx context.Context, loanID int64) (*loan.Notice, error) {
	args := m.Called(ctx, loanID)
	n, _ := args.Get(0).(*loan.Notice)
	return n, args.Error(1)
}

type MockSender struct {
	mock.Mock
}

func (m *MockSender) SendLoanConfirmation(ctx context.Context, notice loan.Notice) error {
	return m.Called(ctx, notice).Error(0)
}

// ackRecorder captures how a delivery was settled.
type ackRecorder struct {
	acked, nacked, rejected bool
	requeue                 bool
}

func (a *ackRecorder) Ack(uint64, bool) error { a.acked = true; return nil }
func (a *ackRecorder) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked, a.requeue = true, requeue
	return nil
}
func (a *ackRecorder) Reject(_ uint64, requeue bool) error {
	a.rejected, a.requeue = true, requeue
	return nil
}

var sampleNotice = &loan.Notice{
	LoanID:    11,
	BookTitle: "Dune",
	Username:  "reader",
	Email:     "reader@example.com",
	DueDate:   time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
}

func delivery(t *testing.T, routingKey string, body string) (amqp.Delivery, *ackRecorder) {
	t.Helper()
	rec := &ackRecorder{}
	return amqp.Delivery{Acknowledger: rec, DeliveryTag: 1, RoutingKey: routingKey, Body: []byte(body)}, rec
}

func TestHandleLoanCreated(t *testing.T) {
	ctx := context.Background()

	t.Run("sends confirmation", func(t *testing.T) {
		notices, sender := new(MockNoticeSource), new(MockSender)
		notices.On("GetNotice", ctx, int64(11)).Return(sampleNotice, nil).Once()
		sender.On("SendLoanConfirmation", ctx, *sampleNotice).Return(nil).Once()

		err := NewHandler(notices, sender, logger).HandleLoanCreated(ctx, event.LoanCreatedEvent{LoanID: 11})

		require.NoError(t, err)
		notices.AssertExpectations(t)
		sender.AssertExpectations(t)
	})

	t.Run("deleted loan is a no-op", func(t *testing.T) {
		notices, sender := new(MockNoticeSource), new(MockSender)
		notices.On("GetNotice", ctx, int64(12)).Return(nil, fmt.Errorf("%w: loan with ID 12 not found", apperrors.ErrNotFound)).Once()

		err := NewHandler(notices, sender, logger).HandleLoanCreated(ctx, event.LoanCreatedEvent{LoanID: 12})

		require.NoError(t, err)
		sender.AssertNotCalled(t, "SendLoanConfirmation", mock.Anything, mock.Anything)
	})

	t.Run("mail failure is returned", func(t *testing.T) {
		notices, sender := new(MockNoticeSource), new(MockSender)
		notices.On("GetNotice", ctx, int64(11)).Return(sampleNotice, nil).Once()
		sender.On("SendLoanConfirmation", ctx, *sampleNotice).Return(apperrors.ErrNotificationFailed).Once()

		err := NewHandler(notices, sender, logger).HandleLoanCreated(ctx, event.LoanCreatedEvent{LoanID: 11})

		assert.ErrorIs(t, err, apperrors.ErrNotificationFailed)
	})

	t.Run("lookup failure is returned", func(t *testing.T) {
		notices, sender := new(MockNoticeSource), new(MockSender)
		notices.On("GetNotice", ctx, int64(11)).Return(nil, apperrors.ErrDatabase).Once()

		err := NewHandler(notices, sender, logger).HandleLoanCreated(ctx, event.LoanCreatedEvent{LoanID: 11})

		assert.ErrorIs(t, err, apperrors.ErrDatabase)
	})
}

func TestHandleDelivery(t *testing.T) {
	ctx := context.Background()

	t.Run("ack on success", func(t *testing.T) {
		notices, sender := new(MockNoticeSource), new(MockSender)
		notices.On("GetNotice", ctx, int64(11)).Return(sampleNotice, nil).Once()
		sender.On("SendLoanConfirmation", ctx, *sampleNotice).Return(nil).Once()
		d, rec := delivery(t, event.RoutingKeyLoanCreated, `{"loanId":11,"bookId":1,"memberId":2}`)

		NewHandler(notices, sender, logger).HandleDelivery(ctx, d)

		assert.True(t, rec.acked)
		assert.False(t, rec.nacked)
	})

	t.Run("ack when loan was deleted", func(t *testing.T) {
		notices, sender := new(MockNoticeSource), new(MockSender)
		notices.On("GetNotice", ctx, int64(11)).Return(nil, apperrors.ErrNotFound).Once()
		d, rec := delivery(t, event.RoutingKeyLoanCreated, `{"loanId":11}`)

		NewHandler(notices, sender, logger).HandleDelivery(ctx, d)

		assert.True(t, rec.acked)
	})

	t.Run("nack without requeue on send failure", func(t *testing.T) {
		notices, sender := new(MockNoticeSource), new(MockSender)
		notices.On("GetNotice", ctx, int64(11)).Return(sampleNotice, nil).Once()
		sender.On("SendLoanConfirmation", ctx, *sampleNotice).Return(errors.New("relay down")).Once()
		d, rec := delivery(t, event.RoutingKeyLoanCreated, `{"loanId":11}`)

		NewHandler(notices, sender, logger).HandleDelivery(ctx, d)

		assert.True(t, rec.nacked)
		assert.False(t, rec.requeue)
		assert.False(t, rec.acked)
	})

	t.Run("nack on malformed body", func(t *testing.T) {
		d, rec := delivery(t, event.RoutingKeyLoanCreated, `{not json`)

		NewHandler(new(MockNoticeSource), new(MockSender), logger).HandleDelivery(ctx, d)

		assert.True(t, rec.nacked)
	})

	t.Run("reject unknown routing key", func(t *testing.T) {
		d, rec := delivery(t, "loan.returned", `{}`)

		NewHandler(new(MockNoticeSource), new(MockSender), logger).HandleDelivery(ctx, d)

		assert.True(t, rec.rejected)
		assert.False(t, rec.requeue)
	})
}
