package runtime

import (
	"github.com/md-rashed-zaman/roombook/libs/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the JSON production logger every service writes with.
// LOG_LEVEL selects the minimum level (debug, info, warn, error).
func NewLogger(service string) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	cfg.Level = zap.NewAtomicLevelAt(levelFromEnv())

	logger, err := cfg.Build()
	if err != nil {
		logger = zap.NewExample()
		logger.Warn("falling back to example logger", zap.Error(err))
	}
	return logger.With(zap.String("service", service))
}

func levelFromEnv() zapcore.Level {
	lvl, err := zapcore.ParseLevel(config.String("LOG_LEVEL", "info"))
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}
