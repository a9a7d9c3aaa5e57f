package observers

import "log/slog"

// NewDefaultLoggingObserver creates a logging observer on slog.Default that
// traces at info level
func NewDefaultLoggingObserver() *LoggingObserver {
	return NewLoggingObserver(slog.Default(), slog.LevelInfo)
}
