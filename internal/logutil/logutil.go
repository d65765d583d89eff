package logutil

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// InitLogger sets up a zap logger writing human readable console output with
// ISO8601 timestamps. Build errors are ignored; the production config cannot
// fail with these settings.
func InitLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.Encoding = "console"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	logger, _ := config.Build()
	return logger
}
