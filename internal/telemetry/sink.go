package telemetry

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Sink is the logging destination injected into a Client or Server
// (design note §9: no process-wide singleton logger). It is a thin
// interface over *zap.Logger's levels so orchestrator code doesn't import
// zap directly.
type Sink interface {
	Debugw(msg string, kv ...interface{})
	Infow(msg string, kv ...interface{})
	Warnw(msg string, kv ...interface{})
	Errorw(msg string, kv ...interface{})
	With(kv ...interface{}) Sink
	Sync() error
}

type zapSink struct {
	l *zap.SugaredLogger
}

// NewSink builds the default Sink: a colored console encoder (keeping the
// teacher's colored-level texture, reimplemented as a zap encoder instead
// of ad hoc ANSI codes) plus, when logFilePath is non-empty, a rotating
// file destination via lumberjack.
func NewSink(logFilePath string, maxSizeMB, maxBackups, maxAgeDays int) Sink {
	consoleCfg := zap.NewDevelopmentEncoderConfig()
	consoleCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	consoleEncoder := zapcore.NewConsoleEncoder(consoleCfg)

	cores := []zapcore.Core{
		zapcore.NewCore(consoleEncoder, zapcore.Lock(zapcore.AddSync(os.Stdout)), zapcore.DebugLevel),
	}

	if logFilePath != "" {
		rotator := &lumberjack.Logger{
			Filename:   logFilePath,
			MaxSize:    maxSizeMB,
			MaxBackups: maxBackups,
			MaxAge:     maxAgeDays,
			Compress:   true,
		}
		fileCfg := zap.NewProductionEncoderConfig()
		fileEncoder := zapcore.NewJSONEncoder(fileCfg)
		cores = append(cores, zapcore.NewCore(fileEncoder, zapcore.AddSync(rotator), zapcore.InfoLevel))
	}

	core := zapcore.NewTee(cores...)
	logger := zap.New(core)
	return &zapSink{l: logger.Sugar()}
}

func (s *zapSink) Debugw(msg string, kv ...interface{}) { s.l.Debugw(msg, kv...) }
func (s *zapSink) Infow(msg string, kv ...interface{})  { s.l.Infow(msg, kv...) }
func (s *zapSink) Warnw(msg string, kv ...interface{})  { s.l.Warnw(msg, kv...) }
func (s *zapSink) Errorw(msg string, kv ...interface{}) { s.l.Errorw(msg, kv...) }
func (s *zapSink) With(kv ...interface{}) Sink          { return &zapSink{l: s.l.With(kv...)} }
func (s *zapSink) Sync() error                          { return s.l.Sync() }

// NoopSink discards everything; useful for tests that don't care about logs.
type NoopSink struct{}

func (NoopSink) Debugw(string, ...interface{}) {}
func (NoopSink) Infow(string, ...interface{})  {}
func (NoopSink) Warnw(string, ...interface{})  {}
func (NoopSink) Errorw(string, ...interface{}) {}
func (n NoopSink) With(...interface{}) Sink     { return n }
func (NoopSink) Sync() error                    { return nil }
