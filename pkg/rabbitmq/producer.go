package rabbitmq

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// confirmChannel часть amqp091.Channel, нужная продюсеру
type confirmChannel interface {
	PublishWithDeferredConfirmWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) (*amqp091.DeferredConfirmation, error)
}

// Producer представляет продюсера сообщений
type Producer struct {
	mu      sync.Mutex
	channel confirmChannel
	config  *Config
}

// NewProducer создает нового продюсера
func NewProducer(conn *Connection, config *Config) *Producer {
	p := &Producer{config: config}
	if conn != nil && conn.Channel() != nil {
		p.channel = conn.Channel()
	}
	return p
}

// Publish публикует сообщение и ждет подтверждения брокера.
// amqp091.Channel не потокобезопасен для публикации, поэтому вызовы сериализуются.
func (p *Producer) Publish(ctx context.Context, body []byte, options ...PublishOption) error {
	opts := &PublishOptions{
		Exchange:   p.config.Exchange,
		RoutingKey: p.config.RoutingKey,
	}
	for _, option := range options {
		option(opts)
	}

	if p.channel == nil {
		return fmt.Errorf("rabbitmq channel is not initialized")
	}

	msg := amqp091.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
		MessageId:    opts.MessageID,
	}
	if len(opts.Headers) > 0 {
		msg.Headers = opts.Headers
	}

	p.mu.Lock()
	confirm, err := p.channel.PublishWithDeferredConfirmWithContext(ctx,
		opts.Exchange,
		opts.RoutingKey,
		opts.Mandatory,
		false,
		msg,
	)
	p.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	// канал не в confirm mode
	if confirm == nil {
		return nil
	}

	timeout := p.config.ConfirmTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	acked, err := confirm.WaitContext(waitCtx)
	if err != nil {
		return fmt.Errorf("timeout waiting for confirmation: %w", err)
	}
	if !acked {
		return fmt.Errorf("message rejected by broker")
	}

	return nil
}

// PublishOptions представляет опции для публикации сообщения
type PublishOptions struct {
	Exchange   string
	RoutingKey string
	Mandatory  bool
	MessageID  string
	Headers    amqp091.Table
}

// PublishOption функция для настройки опций публикации
type PublishOption func(*PublishOptions)

// WithExchange устанавливает exchange
func WithExchange(exchange string) PublishOption {
	return func(opts *PublishOptions) {
		opts.Exchange = exchange
	}
}

// WithRoutingKey устанавливает routing key
func WithRoutingKey(routingKey string) PublishOption {
	return func(opts *PublishOptions) {
		opts.RoutingKey = routingKey
	}
}

// WithMandatory устанавливает mandatory флаг
func WithMandatory(mandatory bool) PublishOption {
	return func(opts *PublishOptions) {
		opts.Mandatory = mandatory
	}
}

// WithMessageID устанавливает идентификатор сообщения
func WithMessageID(id string) PublishOption {
	return func(opts *PublishOptions) {
		opts.MessageID = id
	}
}

// WithHeaders устанавливает заголовки
func WithHeaders(headers amqp091.Table) PublishOption {
	return func(opts *PublishOptions) {
		opts.Headers = headers
	}
}
