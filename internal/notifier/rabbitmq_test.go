package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tonakai-s/toktok/internal/domain"
	"github.com/tonakai-s/toktok/pkg/logger"
	"github.com/tonakai-s/toktok/pkg/mocks"
	"github.com/tonakai-s/toktok/pkg/rabbitmq"
)

type fakePublisher struct {
	body []byte
	opts rabbitmq.PublishOptions
	err  error
}

func (f *fakePublisher) Publish(_ context.Context, body []byte, options ...rabbitmq.PublishOption) error {
	f.body = body
	for _, o := range options {
		o(&f.opts)
	}
	return f.err
}

func TestRabbitMQNotifier_Publish(t *testing.T) {
	pub := &fakePublisher{}
	n := NewRabbitMQNotifier(pub, logger.NewNop())

	result := domain.NewResult("db", domain.StatusTimeout, "i/o timeout")
	result.ExecutionID = "exec-1"
	require.NoError(t, n.Notify(context.Background(), result))

	var event Event
	require.NoError(t, json.Unmarshal(pub.body, &event))
	assert.Equal(t, "db", event.Service)
	assert.Equal(t, domain.StatusTimeout, event.Status)
	assert.Equal(t, "i/o timeout", event.Message)
	assert.False(t, event.ReportedAt.IsZero())

	assert.Equal(t, "exec-1", pub.opts.MessageID)
	assert.Equal(t, "db", pub.opts.Headers["service"])
	assert.Equal(t, "Timeout", pub.opts.Headers["status"])
}

func TestRabbitMQNotifier_Error(t *testing.T) {
	pub := &mocks.MockPublisher{}
	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("message rejected by broker")).Once()
	n := NewRabbitMQNotifier(pub, logger.NewNop())

	err := n.Notify(context.Background(), domain.NewResult("db", domain.StatusError, "down"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rabbitmq notifier: message rejected by broker")
	pub.AssertExpectations(t)
}
