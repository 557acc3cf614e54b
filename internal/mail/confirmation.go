package mail

import (
	"bytes"
	"context"
	"html/template"
	"net/url"
	"strings"
	ttemplate "text/template"

	"github.com/iliyamo/contacts-api/internal/auth"
)

const confirmationSubject = "Confirm your email"

var confirmationHTML = template.Must(template.New("confirm.html").Parse(`<!DOCTYPE html>
<html>
<body>
<p>Hi {{.Username}},</p>
<p>Thanks for signing up. Please confirm your email address by following the link below:</p>
<p><a href="{{.Link}}">Confirm email</a></p>
<p>The link is valid for 7 days.</p>
</body>
</html>
`))

var confirmationText = ttemplate.Must(ttemplate.New("confirm.txt").Parse(`Hi {{.Username}},

Thanks for signing up. Please confirm your email address:
{{.Link}}

The link is valid for 7 days.
`))

// ConfirmationLink is the verification URL embedded in confirmation emails.
func ConfirmationLink(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + "/api/auth/confirmed_email/" + url.PathEscape(token)
}

// ConfirmationMessage renders the email-verification message for ev.
func ConfirmationMessage(baseURL string, ev auth.EmailConfirmation) (Message, error) {
	data := struct {
		Username string
		Link     string
	}{ev.Username, ConfirmationLink(baseURL, ev.Token)}

	var html, text bytes.Buffer
	if err := confirmationHTML.Execute(&html, data); err != nil {
		return Message{}, err
	}
	if err := confirmationText.Execute(&text, data); err != nil {
		return Message{}, err
	}
	return Message{
		To:      ev.Email,
		ToName:  ev.Username,
		Subject: confirmationSubject,
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}

// DirectNotifier sends confirmation emails synchronously. It is used when
// no message broker is configured.
type DirectNotifier struct {
	sender  Sender
	baseURL string
}

func NewDirectNotifier(sender Sender, baseURL string) *DirectNotifier {
	return &DirectNotifier{sender: sender, baseURL: baseURL}
}

func (n *DirectNotifier) NotifyEmailConfirmation(ctx context.Context, ev auth.EmailConfirmation) error {
	msg, err := ConfirmationMessage(n.baseURL, ev)
	if err != nil {
		return err
	}
	_, err = n.sender.Send(ctx, msg)
	return err
}
