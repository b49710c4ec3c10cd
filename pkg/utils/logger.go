package utils

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ServiceName is attached to every log line as the "service" field.
const ServiceName = "portfolio-agent"

// NewLogger returns a zap logger. Debug mode uses the development config (console, debug level);
// otherwise JSON at info level with ISO8601 timestamps, which log collectors parse without help.
func NewLogger(debug bool, opts ...zap.Option) (*zap.Logger, error) {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	opts = append(opts, zap.Fields(zap.String("service", ServiceName)))
	return cfg.Build(opts...)
}
