package dinia

import (
	"time"

	"go.uber.org/zap"
)

// ActionLogEvent describes one finished action call.
type ActionLogEvent struct {
	Store    string
	Action   string
	Duration time.Duration
	Err      error
}

// ActionLogger records action calls.
type ActionLogger interface {
	LogAction(ActionLogEvent)
}

// ActionLoggerFunc adapts a function to ActionLogger.
type ActionLoggerFunc func(ActionLogEvent)

// LogAction implements ActionLogger.
func (f ActionLoggerFunc) LogAction(event ActionLogEvent) {
	if f != nil {
		f(event)
	}
}

type noopActionLogger struct{}

func (noopActionLogger) LogAction(ActionLogEvent) {}

// ZapActionLogger logs every action at debug level and failures at warn.
func ZapActionLogger(logger *zap.Logger) ActionLogger {
	if logger == nil {
		return noopActionLogger{}
	}
	return ActionLoggerFunc(func(event ActionLogEvent) {
		fields := []zap.Field{
			zap.String("store", event.Store),
			zap.String("action", event.Action),
			zap.Duration("duration", event.Duration),
		}
		if event.Err != nil {
			logger.Warn("dinia: action failed", append(fields, zap.Error(event.Err))...)
			return
		}
		logger.Debug("dinia: action finished", fields...)
	})
}
