package canbus

import (
	"context"
	"errors"

	"github.com/FabianPetersen/canopen/v2"
	log "github.com/sirupsen/logrus"
)

// NewLoggedInterface wraps inner and logs every message sent and received at
// level. Errors are logged at error level, decode errors at warning level.
func NewLoggedInterface(inner Interface, logger *log.Entry, level log.Level) Interface {
	return &loggedInterface{
		inner:  inner,
		logger: logger,
		level:  level,
	}
}

type loggedInterface struct {
	inner  Interface
	logger *log.Entry
	level  log.Level
}

func messageFields(msg canopen.Message) log.Fields {
	cob := msg.CommunicationObject()
	return log.Fields{
		"cob":    cob.String(),
		"cob_id": cob.CobID(),
		"data":   msg.Encode(),
	}
}

func (l *loggedInterface) SendFrame(ctx context.Context, msg canopen.Message) error {
	l.logger.WithFields(messageFields(msg)).Log(l.level, "canopen send")

	err := l.inner.SendFrame(ctx, msg)
	if err != nil {
		l.logger.WithFields(messageFields(msg)).WithError(err).Error("canopen send error")
	}
	return err
}

func (l *loggedInterface) WaitForFrame(ctx context.Context) (canopen.Message, error) {
	msg, err := l.inner.WaitForFrame(ctx)
	if err != nil {
		var decodeErr *DecodeError
		switch {
		case errors.As(err, &decodeErr):
			l.logger.WithError(err).Warn("canopen receive decode error")
		case ctx.Err() == nil:
			l.logger.WithError(err).Error("canopen receive error")
		}
		return nil, err
	}

	l.logger.WithFields(messageFields(msg)).Log(l.level, "canopen receive")
	return msg, nil
}

func (l *loggedInterface) Close() error {
	return l.inner.Close()
}
