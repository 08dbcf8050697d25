package logging

import (
	"strings"

	"go.uber.org/zap/zapcore"
)

// TraceLevel sits below Debug and carries per-step progress of the build
// loop. Value: -2 (Debug is -1, Info is 0)
const TraceLevel = zapcore.Level(-2)

// LevelFromString parses a level name case-insensitively. "trace" and
// "verbose" select TraceLevel, "warning" is accepted for "warn".
func LevelFromString(level string) (zapcore.Level, error) {
	level = strings.ToLower(strings.TrimSpace(level))
	switch level {
	case "trace", "verbose":
		return TraceLevel, nil
	case "warning":
		return zapcore.WarnLevel, nil
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return zapcore.InfoLevel, err
	}
	return l, nil
}

// RunnerLevel returns the level for a CI run: TraceLevel when the runner
// has debug logging enabled, otherwise the configured level.
func RunnerLevel(level string, runnerDebug bool) (zapcore.Level, error) {
	if runnerDebug {
		return TraceLevel, nil
	}
	return LevelFromString(level)
}
