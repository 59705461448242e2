package mq

import (
	watermill "github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"

	nlog "github.com/yeisme/teamvault/pkg/log"
)

// eventLogger 把 watermill 日志写入全局 zerolog.
// watermill 的 Info 日志量较大，统一降一级输出.
type eventLogger struct {
	l zerolog.Logger
}

// NewLoggerAdapter component=events.
func NewLoggerAdapter() watermill.LoggerAdapter {
	return eventLogger{l: nlog.Logger().With().Str("component", "events").Logger()}
}

func (e eventLogger) Error(msg string, err error, fields watermill.LogFields) {
	e.l.Error().Err(err).Fields(map[string]any(fields)).Msg(msg)
}

func (e eventLogger) Info(msg string, fields watermill.LogFields) {
	e.l.Debug().Fields(map[string]any(fields)).Msg(msg)
}

func (e eventLogger) Debug(msg string, fields watermill.LogFields) {
	e.l.Trace().Fields(map[string]any(fields)).Msg(msg)
}

func (e eventLogger) Trace(msg string, fields watermill.LogFields) {
	e.l.Trace().Fields(map[string]any(fields)).Msg(msg)
}

func (e eventLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return eventLogger{l: e.l.With().Fields(map[string]any(fields)).Logger()}
}
