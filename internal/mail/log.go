package mail

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// LogSender writes messages to the application log instead of sending
// them. It is the default for local development.
type LogSender struct {
	log logrus.FieldLogger
}

func NewLogSender(log logrus.FieldLogger) *LogSender {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &LogSender{log: log}
}

func (s *LogSender) Send(_ context.Context, msg Message) (string, error) {
	id := uuid.NewString()
	s.log.WithFields(logrus.Fields{
		"id":      id,
		"to":      msg.To,
		"subject": msg.Subject,
	}).Info(msg.Text)
	return id, nil
}
