// Package mail sends transactional emails through a pluggable provider.
package mail

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/contacts-api/internal/config"
)

// Message is a rendered email ready to be sent.
type Message struct {
	To      string
	ToName  string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers a Message and returns the provider's message id.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// NewSender returns the Sender selected by cfg.Provider.
func NewSender(cfg config.MailConfig, log logrus.FieldLogger) (Sender, error) {
	switch cfg.Provider {
	case "", "log":
		return NewLogSender(log), nil
	case "mailgun":
		if cfg.MailgunDomain == "" || cfg.MailgunAPIKey == "" || cfg.From == "" {
			return nil, errors.New("invalid Mailgun configuration")
		}
		return NewMailgunSender(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunAPIBase, from(cfg)), nil
	case "sendgrid":
		if cfg.SendGridAPIKey == "" || cfg.From == "" {
			return nil, errors.New("invalid SendGrid configuration")
		}
		return NewSendGridSender(cfg.SendGridAPIKey, cfg.FromName, cfg.From, ""), nil
	default:
		return nil, fmt.Errorf("unknown mail provider %q", cfg.Provider)
	}
}

func from(cfg config.MailConfig) string {
	if cfg.FromName == "" {
		return cfg.From
	}
	return fmt.Sprintf("%s <%s>", cfg.FromName, cfg.From)
}
