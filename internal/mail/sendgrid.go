package mail

import (
	"context"
	"fmt"
	"time"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

const sendGridHost = "https://api.sendgrid.com"

// SendGridSender sends through the SendGrid v3 mail API.
type SendGridSender struct {
	key      string
	host     string
	fromName string
	from     string
}

// NewSendGridSender builds a sender. host may be empty for the public API.
func NewSendGridSender(key, fromName, from, host string) *SendGridSender {
	if host == "" {
		host = sendGridHost
	}
	return &SendGridSender{key: key, host: host, fromName: fromName, from: from}
}

func (s *SendGridSender) Send(ctx context.Context, msg Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	m := sgmail.NewSingleEmail(
		sgmail.NewEmail(s.fromName, s.from),
		msg.Subject,
		sgmail.NewEmail(msg.ToName, msg.To),
		msg.Text,
		msg.HTML,
	)
	req := sendgrid.GetRequest(s.key, "/v3/mail/send", s.host)
	req.Method = "POST"
	req.Body = sgmail.GetRequestBody(m)

	resp, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != 202 {
		return "", fmt.Errorf("sendgrid: unexpected status %d", resp.StatusCode)
	}
	if ids := resp.Headers["X-Message-Id"]; len(ids) > 0 {
		return ids[0], nil
	}
	return "", nil
}
