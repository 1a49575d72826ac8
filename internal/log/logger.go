package log

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"

	"chatrunner/internal/core"
	"chatrunner/internal/util"
)

// LogLevel defines the severity level for log messages.
type LogLevel int

// Log level constants.
const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

// ParseLevel maps a LOG_LEVEL value to a LogLevel. Unknown values yield WARN.
func ParseLevel(value string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return DEBUG
	case "info":
		return INFO
	case "error":
		return ERROR
	default:
		return WARN
	}
}

// AppLogger is the application logger implementation.
type AppLogger struct {
	logger     *log.Logger
	level      LogLevel
	fileHandle *os.File
	mu         sync.RWMutex
}

// NewAppLoggerWithConfig creates a logger instance with configuration.
func NewAppLoggerWithConfig(output io.Writer, level LogLevel) *AppLogger {
	return &AppLogger{
		logger:     log.New(output, "", log.LstdFlags),
		level:      level,
		fileHandle: nil,
	}
}

func (l *AppLogger) logf(level LogLevel, prefix, format string, args ...any) {
	if l == nil || level < l.level {
		return
	}
	l.logger.Printf(prefix+format, args...)
}

// Debug logs a message at DEBUG level.
func (l *AppLogger) Debug(format string, args ...any) {
	l.logf(DEBUG, "[DEBUG] ", format, args...)
}

// Info logs a message at INFO level.
func (l *AppLogger) Info(format string, args ...any) {
	l.logf(INFO, "[INFO] ", format, args...)
}

// Warn logs a message at WARN level.
func (l *AppLogger) Warn(format string, args ...any) {
	l.logf(WARN, "[WARN] ", format, args...)
}

// Error logs a message at ERROR level.
func (l *AppLogger) Error(format string, args ...any) {
	l.logf(ERROR, "[ERROR] ", format, args...)
}

// Close safely closes log file handle.
func (l *AppLogger) Close() error {
	if l == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.fileHandle != nil {
		err := l.fileHandle.Close()
		l.fileHandle = nil
		return err
	}
	return nil
}

// containsPathTraversal checks if path contains path traversal characters.
func containsPathTraversal(path string) bool {
	dangerousPatterns := []string{
		"..", "../", "..\\",
	}

	for _, pattern := range dangerousPatterns {
		if strings.Contains(path, pattern) {
			return true
		}
	}

	return false
}

// createDebugFileOutput creates debug file output, falls back to the given
// writer on failure and reports why.
func createDebugFileOutput(fallback io.Writer) (io.Writer, *os.File, error) {
	debugFile := os.Getenv(core.EnvDebugFile)
	if debugFile == "" {
		return fallback, nil, nil
	}

	if len(debugFile) > core.MaxDebugFilePathLength {
		return fallback, nil, fmt.Errorf("%s path too long", core.EnvDebugFile)
	}

	if containsPathTraversal(debugFile) {
		return fallback, nil, fmt.Errorf("%s contains path traversal characters", core.EnvDebugFile)
	}

	//nolint:gosec // G304: debugFile from env var, validated by containsPathTraversal
	file, err := os.OpenFile(debugFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, core.FilePermissionReadWrite)
	if err != nil {
		return fallback, nil, fmt.Errorf("failed to open %s '%s': %w", core.EnvDebugFile, debugFile, err)
	}

	return file, file, nil
}

// IsDebug returns whether LOG_LEVEL asks for debug output.
func IsDebug() bool {
	return ParseLevel(util.GetEnvWithDefault(core.EnvLogLevel, core.DefaultLogLevel)) == DEBUG
}

// CreateLogger creates a logger writing to DEBUG_FILE, or to stderr when unset.
// Stdout is reserved for the completion text.
func CreateLogger(stderr io.Writer) *AppLogger {
	output, fileHandle, err := createDebugFileOutput(stderr)

	logger := &AppLogger{
		logger:     log.New(output, "", log.LstdFlags),
		level:      ParseLevel(util.GetEnvWithDefault(core.EnvLogLevel, core.DefaultLogLevel)),
		fileHandle: fileHandle,
	}
	if err != nil {
		logger.Warn("%v, falling back to stderr", err)
	}
	return logger
}
