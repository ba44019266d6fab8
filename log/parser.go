package log

import (
	"log/slog"
	"strings"
)

// ParseLogLevel maps a config string to a slog level. Unknown values log at INFO.
func ParseLogLevel(input string) slog.Level {
	sanitized := strings.ToLower(strings.TrimSpace(input))

	switch sanitized {
	case "debug":
		return slog.LevelDebug
	case "info", "":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsValidLogLevel reports whether ParseLogLevel understands the input without defaulting.
func IsValidLogLevel(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}
