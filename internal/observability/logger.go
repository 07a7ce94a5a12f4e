package observability

import (
	"go.uber.org/zap"
)

// NewLogger builds the process logger. Development mode logs human-readable
// lines; every other mode logs JSON.
func NewLogger(appMode, logLevel string) (*zap.Logger, error) {
	var zapConfig zap.Config

	if appMode == "dev" {
		zapConfig = zap.NewDevelopmentConfig()
	} else {
		zapConfig = zap.NewProductionConfig()
	}

	level, err := zap.ParseAtomicLevel(logLevel)
	if err != nil {
		level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	zapConfig.Level = level

	zapConfig.InitialFields = map[string]interface{}{
		"service": "chat-analytics",
		"mode":    appMode,
	}

	return zapConfig.Build()
}

// CronLogger adapts a zap logger to the robfig/cron logging interface.
type CronLogger struct {
	logger *zap.SugaredLogger
}

// NewCronLogger wraps logger for use with cron.WithLogger and cron.Recover.
func NewCronLogger(logger *zap.Logger) CronLogger {
	return CronLogger{logger: logger.Sugar()}
}

// Info logs routine scheduler activity at debug level.
func (l CronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debugw(msg, keysAndValues...)
}

// Error logs scheduler failures, including recovered job panics.
func (l CronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Errorw(msg, append(keysAndValues, "error", err)...)
}
