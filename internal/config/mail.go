package config

// MailConfig selects and configures the transactional mail provider used
// for confirmation emails.  Provider is one of "log", "mailgun" or
// "sendgrid"; "log" only writes the message to the application log and is
// the default for local runs.
type MailConfig struct {
	Provider       string
	From           string
	FromName       string
	MailgunDomain  string
	MailgunAPIKey  string
	MailgunAPIBase string // optional, e.g. the EU endpoint
	SendGridAPIKey string
}

func LoadMailConfig() MailConfig {
	return MailConfig{
		Provider:       envStr("MAIL_PROVIDER", "log"),
		From:           envStr("MAIL_FROM", "no-reply@contacts.local"),
		FromName:       envStr("MAIL_FROM_NAME", "Contacts API"),
		MailgunDomain:  envStr("MAILGUN_DOMAIN", ""),
		MailgunAPIKey:  envStr("MAILGUN_API_KEY", ""),
		MailgunAPIBase: envStr("MAILGUN_API_BASE", ""),
		SendGridAPIKey: envStr("SENDGRID_API_KEY", ""),
	}
}
