// Package service contains adapters that connect the auth flows to
// external infrastructure.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/contacts-api/internal/auth"
	"github.com/iliyamo/contacts-api/internal/queue"
)

// channel is the part of *amqp.Channel the publisher uses.
type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// dialFunc opens a channel and returns a function releasing it together
// with its connection.
type dialFunc func(url string) (channel, func(), error)

func dialAMQP(url string) (channel, func(), error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("channel open: %w", err)
	}
	return ch, func() { _ = ch.Close(); _ = conn.Close() }, nil
}

// QueuePublisher implements auth.Notifier by publishing an
// EmailConfirmationRequested event to RabbitMQ. A connection is opened per
// message; confirmation emails are rare enough that pooling is not needed.
type QueuePublisher struct {
	url  string
	dial dialFunc
	log  logrus.FieldLogger
	now  func() time.Time
}

func NewQueuePublisher(url string, log logrus.FieldLogger) *QueuePublisher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &QueuePublisher{url: url, dial: dialAMQP, log: log, now: time.Now}
}

func (p *QueuePublisher) NotifyEmailConfirmation(ctx context.Context, msg auth.EmailConfirmation) error {
	body, err := json.Marshal(queue.EmailConfirmationRequested{
		Email:       msg.Email,
		Username:    msg.Username,
		Token:       msg.Token,
		RequestedAt: p.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ch, release, err := p.dial(p.url)
	if err != nil {
		p.log.WithError(err).Error("rabbitmq: connect failed")
		return err
	}
	defer release()

	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(queue.EmailConfirmationQueue, true, false, false, false, nil); err != nil {
		p.log.WithError(err).Error("rabbitmq: queue declare failed")
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    p.now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queue.EmailConfirmationQueue, false, false, pub); err != nil {
		p.log.WithError(err).Error("rabbitmq: publish failed")
		return err
	}
	return nil
}
