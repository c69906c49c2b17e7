package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// activeRotatingWriter tracks the open file writer for cleanup at shutdown.
var activeRotatingWriter *DailyRotatingWriter

// Setup configures structured logging to the console and a daily-rotating
// file under logDir.
func Setup(logDir, level string) (zerolog.Logger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return zerolog.Logger{}, fmt.Errorf("failed to create logs directory: %w", err)
	}

	fileWriter, err := NewDailyRotatingWriter(logDir, "kos-wa-service-%s.log")
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("failed to create log writer: %w", err)
	}
	activeRotatingWriter = fileWriter

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	console := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	multi := zerolog.MultiLevelWriter(console, fileWriter)
	log := zerolog.New(multi).Level(lvl).With().Timestamp().Logger()

	logFilePath := filepath.Join(logDir, fmt.Sprintf("kos-wa-service-%s.log", time.Now().Format("2006-01-02")))
	log.Info().Str("path", logFilePath).Msg("logging initialized")

	return log, nil
}

// SetupFallback creates a console-only logger when file logging fails.
func SetupFallback() zerolog.Logger {
	console := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	log := zerolog.New(console).With().Timestamp().Logger()
	log.Warn().Msg("file logging unavailable, using console only")
	return log
}

// Close closes the active log file.
func Close() error {
	if activeRotatingWriter != nil {
		return activeRotatingWriter.Close()
	}
	return nil
}
