// Package observe turns engine events into logs and metrics.
package observe

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/alt-coder/pocketflow-go/v2/core"
)

// Logger is a core.Observer writing one structured entry per event.
type Logger struct {
	logger *zap.Logger
}

// NewLogger returns an observer logging through logger. A nil logger
// discards everything.
func NewLogger(logger *zap.Logger) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logger{logger: logger.With(zap.String("component", "pocketflow"))}
}

// OnEvent implements core.Observer.
func (l *Logger) OnEvent(_ context.Context, ev core.Event) {
	level, msg := classify(ev)
	ce := l.logger.Check(level, msg)
	if ce == nil {
		return
	}
	ce.Write(fields(ev)...)
}

func classify(ev core.Event) (zapcore.Level, string) {
	switch ev.Kind {
	case core.EventRunStarted:
		return zapcore.DebugLevel, "node started"
	case core.EventRunFinished:
		if ev.Err != nil {
			return zapcore.ErrorLevel, "node failed"
		}
		return zapcore.DebugLevel, "node finished"
	case core.EventRetry:
		return zapcore.InfoLevel, "retrying exec"
	case core.EventFallback:
		return zapcore.WarnLevel, "exec failed on final attempt, running fallback"
	case core.EventSuccessorOverwritten:
		return zapcore.WarnLevel, "successor overwritten"
	case core.EventUnmatchedAction:
		return zapcore.WarnLevel, "no successor for action, flow ends"
	case core.EventSuccessorsIgnored:
		return zapcore.WarnLevel, "node run outside a flow, successors are ignored"
	default:
		return zapcore.InfoLevel, string(ev.Kind)
	}
}

func fields(ev core.Event) []zap.Field {
	fs := make([]zap.Field, 0, 8)
	fs = append(fs, zap.String("event", string(ev.Kind)), zap.String("node", ev.Node))
	if ev.RunID != "" {
		fs = append(fs, zap.String("run_id", ev.RunID))
	}
	if ev.Action != "" {
		fs = append(fs, zap.String("action", string(ev.Action)))
	}
	switch ev.Kind {
	case core.EventRetry, core.EventFallback:
		fs = append(fs, zap.Int("attempt", ev.Attempt))
	case core.EventRunFinished:
		fs = append(fs, zap.Duration("duration", ev.Duration))
	}
	if ev.Item >= 0 {
		fs = append(fs, zap.Int("item", ev.Item))
	}
	if ev.Err != nil {
		fs = append(fs, zap.Error(ev.Err))
	}
	return fs
}
