package logging

import "go.uber.org/zap"

// ZapSink adapts a zap logger to a Sink. Levels map onto zap's debug, info,
// warn and error levels.
func ZapSink(logger *zap.Logger) Sink {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.WithOptions(zap.AddCallerSkip(2))

	return func(level Level, message string) {
		switch level {
		case LevelDebug:
			logger.Debug(message)
		case LevelInformation:
			logger.Info(message)
		case LevelWarning:
			logger.Warn(message)
		default:
			logger.Error(message)
		}
	}
}
