package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/contacts-api/internal/auth"
	"github.com/iliyamo/contacts-api/internal/mail"
)

// EmailConsumer turns EmailConfirmationRequested messages into confirmation
// emails.
type EmailConsumer struct {
	url     string
	sender  mail.Sender
	baseURL string
	log     logrus.FieldLogger
}

func NewEmailConsumer(url string, sender mail.Sender, baseURL string, log logrus.FieldLogger) *EmailConsumer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &EmailConsumer{url: url, sender: sender, baseURL: baseURL, log: log.WithField("component", "email-consumer")}
}

// Run connects to RabbitMQ, declares the queue and consumes until ctx is
// cancelled. Broker failures are retried with exponential backoff capped
// at 30s. Messages that cannot be processed are rejected without requeue.
func (c *EmailConsumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.WithError(err).Warnf("failed to dial broker; retrying in %s", backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.WithError(err).Warn("consume loop ended; reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *EmailConsumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(10, 0, false); err != nil {
		c.log.WithError(err).Warn("set QoS failed")
	}
	if _, err := ch.QueueDeclare(EmailConfirmationQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, EmailConfirmationQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := c.handleMessage(ctx, d.Body); err != nil {
			c.log.WithError(err).Error("handle message failed")
			_ = d.Nack(false, false)
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func (c *EmailConsumer) handleMessage(ctx context.Context, body []byte) error {
	var ev EmailConfirmationRequested
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Email == "" || ev.Token == "" {
		return errors.New("incomplete confirmation event")
	}
	msg, err := mail.ConfirmationMessage(c.baseURL, auth.EmailConfirmation{
		Email:    ev.Email,
		Username: ev.Username,
		Token:    ev.Token,
	})
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	id, err := c.sender.Send(ctx, msg)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	c.log.WithFields(logrus.Fields{"email": ev.Email, "message_id": id}).Info("confirmation email sent")
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
