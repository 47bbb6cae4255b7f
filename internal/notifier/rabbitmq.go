package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gdg-garage/ecsnova-registration-api/internal/models"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeName = "events"
	ExchangeKind = "topic"

	RoutingKeyRegistrationCreated = "registration.created"
)

// RegistrationCreatedEvent is the message published for a new registration.
type RegistrationCreatedEvent struct {
	Event          string    `json:"event"`
	Version        int       `json:"version"`
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	CollegeName    string    `json:"college_name"`
	SelectedEvents []string  `json:"selected_events"`
	TransactionID  string    `json:"transaction_id"`
	CreatedAt      time.Time `json:"created_at"`
}

func NewRegistrationCreatedEvent(r models.Registration) RegistrationCreatedEvent {
	return RegistrationCreatedEvent{
		Event:          RoutingKeyRegistrationCreated,
		Version:        1,
		ID:             r.ID,
		Name:           r.Name,
		Email:          r.Email,
		CollegeName:    r.CollegeName,
		SelectedEvents: r.SelectedEvents,
		TransactionID:  r.TransactionID,
		CreatedAt:      r.CreatedAt,
	}
}

// Channel is the subset of *amqp.Channel the publisher needs.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type RabbitMQPublisher struct {
	conn    *amqp.Connection
	channel Channel
}

func NewRabbitMQPublisher(url string) (*RabbitMQPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(ExchangeName, ExchangeKind, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("rabbitmq exchange declare: %w", err)
	}

	return &RabbitMQPublisher{conn: conn, channel: ch}, nil
}

// NewRabbitMQPublisherWithChannel wraps an already declared channel.
func NewRabbitMQPublisherWithChannel(ch Channel) *RabbitMQPublisher {
	return &RabbitMQPublisher{channel: ch}
}

func (p *RabbitMQPublisher) NotifyRegistration(ctx context.Context, registration models.Registration) error {
	body, err := json.Marshal(NewRegistrationCreatedEvent(registration))
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	err = p.channel.PublishWithContext(ctx,
		ExchangeName,
		RoutingKeyRegistrationCreated,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    registration.ID.String(),
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	return nil
}

func (p *RabbitMQPublisher) Close() {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}
