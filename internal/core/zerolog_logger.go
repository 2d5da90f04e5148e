package core

import (
	"github.com/rs/zerolog"
)

// ZerologLogger adapts a zerolog.Logger to the Logger interface.
type ZerologLogger struct {
	logger zerolog.Logger
}

// NewZerologLogger wraps lg.
func NewZerologLogger(lg zerolog.Logger) *ZerologLogger {
	return &ZerologLogger{logger: lg}
}

func fields(ev *zerolog.Event, args []any) *zerolog.Event {
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}
		ev = ev.Interface(key, args[i+1])
	}
	return ev
}

// Debug implements Logger.
func (l *ZerologLogger) Debug(msg string, args ...any) {
	fields(l.logger.Debug(), args).Msg(msg)
}

// Info implements Logger.
func (l *ZerologLogger) Info(msg string, args ...any) {
	fields(l.logger.Info(), args).Msg(msg)
}

// Warn implements Logger.
func (l *ZerologLogger) Warn(msg string, args ...any) {
	fields(l.logger.Warn(), args).Msg(msg)
}

// Error implements Logger.
func (l *ZerologLogger) Error(msg string, args ...any) {
	fields(l.logger.Error(), args).Msg(msg)
}
