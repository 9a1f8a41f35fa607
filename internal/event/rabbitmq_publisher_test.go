package event

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type MockChannel struct {
	mock.Mock
}

func (m *MockChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	return m.Called(name, kind, durable, autoDelete, internal, noWait, args).Error(0)
}

func (m *MockChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	return m.Called(ctx, exchange, key, mandatory, immediate, msg).Error(0)
}

func (m *MockChannel) Close() error {
	return m.Called().Error(0)
}

func opener(ch *MockChannel) channelOpener {
	return func() (amqpChannel, error) { return ch, nil }
}

func TestNewPublisherDeclaresExchange(t *testing.T) {
	ch := new(MockChannel)
	ch.On("ExchangeDeclare", "library", amqp.ExchangeTopic, true, false, false, false, amqp.Table(nil)).Return(nil).Once()
	ch.On("Close").Return(nil)

	pub, err := newPublisher(opener(ch), "library", testLogger)

	require.NoError(t, err)
	assert.NotNil(t, pub)
	ch.AssertExpectations(t)
}

func TestNewPublisherValidation(t *testing.T) {
	_, err := newPublisher(opener(new(MockChannel)), "", testLogger)
	assert.Error(t, err)

	_, err = newPublisher(func() (amqpChannel, error) { return nil, errors.New("closed") }, "library", testLogger)
	assert.ErrorContains(t, err, "temporary channel")

	_, err = NewRabbitMQEventPublisher(nil, "library", testLogger)
	assert.Error(t, err)
}

func TestPublishLoanCreated(t *testing.T) {
	ctx := context.Background()
	ch := new(MockChannel)
	ch.On("ExchangeDeclare", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	ch.On("Close").Return(nil)

	var published amqp.Publishing
	ch.On("PublishWithContext", ctx, "library", RoutingKeyLoanCreated, false, false, mock.AnythingOfType("amqp091.Publishing")).
		Run(func(args mock.Arguments) { published = args.Get(5).(amqp.Publishing) }).
		Return(nil).Once()

	pub, err := newPublisher(opener(ch), "library", testLogger)
	require.NoError(t, err)

	due := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	err = pub.PublishLoanCreated(ctx, LoanCreatedEvent{LoanID: 9, BookID: 1, MemberID: 2, DueDate: due})
	require.NoError(t, err)

	assert.Equal(t, "application/json", published.ContentType)
	assert.Equal(t, amqp.Persistent, published.DeliveryMode)
	assert.Equal(t, publisherAppID, published.AppId)
	_, uuidErr := uuid.Parse(published.MessageId)
	assert.NoError(t, uuidErr)

	var decoded LoanCreatedEvent
	require.NoError(t, json.Unmarshal(published.Body, &decoded))
	assert.Equal(t, int64(9), decoded.LoanID)
	assert.True(t, due.Equal(decoded.DueDate))
	assert.False(t, decoded.Timestamp.IsZero())
}

func TestPublishLoanCreatedBrokerFailure(t *testing.T) {
	ctx := context.Background()
	ch := new(MockChannel)
	ch.On("ExchangeDeclare", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	ch.On("Close").Return(nil)
	ch.On("PublishWithContext", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(amqp.ErrClosed).Once()

	pub, err := newPublisher(opener(ch), "library", testLogger)
	require.NoError(t, err)

	err = pub.PublishLoanCreated(ctx, LoanCreatedEvent{LoanID: 1})
	assert.ErrorIs(t, err, amqp.ErrClosed)
}
