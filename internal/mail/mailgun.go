package mail

import (
	"context"
	"time"

	"github.com/mailgun/mailgun-go/v4"
)

// MailgunSender sends through the Mailgun HTTP API.
type MailgunSender struct {
	mg   *mailgun.MailgunImpl
	from string
}

// NewMailgunSender builds a sender for domain. apiBase may be empty to use
// the default US endpoint.
func NewMailgunSender(domain, apiKey, apiBase, from string) *MailgunSender {
	mg := mailgun.NewMailgun(domain, apiKey)
	if apiBase != "" {
		mg.SetAPIBase(apiBase)
	}
	return &MailgunSender{mg: mg, from: from}
}

func (s *MailgunSender) Send(ctx context.Context, msg Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	m := s.mg.NewMessage(s.from, msg.Subject, msg.Text, msg.To)
	if msg.HTML != "" {
		m.SetHtml(msg.HTML)
	}
	_, id, err := s.mg.Send(ctx, m)
	if err != nil {
		return "", err
	}
	return id, nil
}
