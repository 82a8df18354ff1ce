package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/tonakai-s/toktok/internal/domain"
	"github.com/tonakai-s/toktok/pkg/logger"
	"github.com/tonakai-s/toktok/pkg/rabbitmq"
)

// Publisher публикует сообщение с подтверждением брокера
type Publisher interface {
	Publish(ctx context.Context, body []byte, options ...rabbitmq.PublishOption) error
}

// RabbitMQNotifier публикует JSON событие в exchange
type RabbitMQNotifier struct {
	base
	publisher Publisher
	now       func() time.Time
}

// NewRabbitMQNotifier создает notifier поверх продюсера
func NewRabbitMQNotifier(publisher Publisher, log logger.Logger) *RabbitMQNotifier {
	return &RabbitMQNotifier{
		base:      newBase("rabbitmq", log),
		publisher: publisher,
		now:       time.Now,
	}
}

// Notify публикует событие и ждет подтверждения
func (r *RabbitMQNotifier) Notify(ctx context.Context, result domain.CheckerResult) error {
	body, err := json.Marshal(NewEvent(result, r.now()))
	if err != nil {
		return r.fail(result, fmt.Errorf("failed to marshal event: %w", err))
	}

	options := []rabbitmq.PublishOption{
		rabbitmq.WithHeaders(amqp091.Table{
			"service": result.ServiceName,
			"status":  result.Status.String(),
		}),
	}
	if result.ExecutionID != "" {
		options = append(options, rabbitmq.WithMessageID(result.ExecutionID))
	}

	if err := r.publisher.Publish(ctx, body, options...); err != nil {
		return r.fail(result, err)
	}

	r.delivered(result)
	return nil
}
