package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"

	"wheel-service/wheel"
)

// levelSilent is above every level slog emits
const levelSilent = slog.Level(16)

// LeveledLogger formats printf-style messages onto a slog logger with log
// level filtering
type LeveledLogger struct {
	logger   *slog.Logger
	logLevel LogLevel
}

// NewLeveledLogger creates a new leveled logger
func NewLeveledLogger(logger *slog.Logger, level LogLevel) *LeveledLogger {
	return &LeveledLogger{
		logger:   logger,
		logLevel: level,
	}
}

// NewTerminalLogger writes to f, coloured only when f is a terminal
func NewTerminalLogger(f *os.File, level LogLevel) *LeveledLogger {
	return NewLeveledLogger(slog.New(newHandler(f, level, !isatty.IsTerminal(f.Fd()))), level)
}

func newHandler(w io.Writer, level LogLevel, noColor bool) slog.Handler {
	return tint.NewHandler(w, &tint.Options{
		Level:      slogLevel(level),
		TimeFormat: "15:04:05.000",
		NoColor:    noColor,
	})
}

func slogLevel(level LogLevel) slog.Level {
	switch {
	case level >= LogLevelDebug:
		return slog.LevelDebug
	case level == LogLevelInfo:
		return slog.LevelInfo
	case level == LogLevelWarn:
		return slog.LevelWarn
	case level == LogLevelError:
		return slog.LevelError
	default:
		return levelSilent
	}
}

// Debug logs a message at DEBUG level
func (l *LeveledLogger) Debug(format string, v ...interface{}) {
	if l.logLevel >= LogLevelDebug {
		l.logger.Debug(fmt.Sprintf(format, v...))
	}
}

// Info logs a message at INFO level
func (l *LeveledLogger) Info(format string, v ...interface{}) {
	if l.logLevel >= LogLevelInfo {
		l.logger.Info(fmt.Sprintf(format, v...))
	}
}

// Warn logs a message at WARN level
func (l *LeveledLogger) Warn(format string, v ...interface{}) {
	if l.logLevel >= LogLevelWarn {
		l.logger.Warn(fmt.Sprintf(format, v...))
	}
}

// Error logs a message at ERROR level
func (l *LeveledLogger) Error(format string, v ...interface{}) {
	if l.logLevel >= LogLevelError {
		l.logger.Error(fmt.Sprintf(format, v...))
	}
}

// Printf provides compatibility with standard logger - logs at INFO level
func (l *LeveledLogger) Printf(format string, v ...interface{}) {
	l.Info(format, v...)
}

// Fatalf logs regardless of level and exits
func (l *LeveledLogger) Fatalf(format string, v ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, v...))
	os.Exit(1)
}

func (l *LeveledLogger) SetLevel(level LogLevel) {
	l.logLevel = level
}

func (l *LeveledLogger) GetLevel() LogLevel {
	return l.logLevel
}

// DebugCAN logs CAN frame details at DEBUG level
func (l *LeveledLogger) DebugCAN(direction string, id uint32, data []byte, length uint8) {
	if l.logLevel >= LogLevelDebug {
		l.logger.Debug(fmt.Sprintf("CAN %s", direction),
			"id", fmt.Sprintf("0x%03X", id),
			"len", length,
			"data", hexBytes(data, length))
	}
}

func hexBytes(data []byte, length uint8) string {
	var sb strings.Builder
	for i := 0; i < int(length) && i < len(data) && i < 8; i++ {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02X", data[i])
	}
	return sb.String()
}

var _ wheel.Logger = (*LeveledLogger)(nil)
