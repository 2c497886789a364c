// Package logger builds the structured loggers used throughout recollex.
// Every subsystem is handed a *zap.SugaredLogger carrying a "service" field,
// the same shape the engine's constructors already expect.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production-profile zap logger tagged with the given service
// name. Logs are JSON-encoded and written to stdout; callers that need a
// different sink should build their own zapcore.Core and call WithCore.
func New(service string) *zap.SugaredLogger {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.Lock(os.Stdout),
		zapcore.InfoLevel,
	)

	return zap.New(core, zap.AddCaller()).Sugar().With("service", service)
}

// NewNop returns a logger that discards everything, for tests and embedders
// that want to silence recollex's own log output.
func NewNop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

// WithCore builds a logger from a caller-supplied zapcore.Core, for embedders
// that want to route recollex's logs into their own sink.
func WithCore(service string, core zapcore.Core) *zap.SugaredLogger {
	return zap.New(core, zap.AddCaller()).Sugar().With("service", service)
}
