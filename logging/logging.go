package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	logFile *os.File
	mu      sync.Mutex
)

// Init configures the global logger for console output on stderr
func Init(verbose bool) {
	zerolog.TimeFieldFormat = time.RFC3339

	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Logger = zerolog.New(consoleWriter()).With().Timestamp().Logger()
}

// SetupLogger adds an append-mode log file next to the console output
func SetupLogger(logFilePath string) error {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		return nil
	}

	f, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	logFile = f

	log.Logger = NewLogger(consoleWriter(), f)
	log.Info().Str("file", logFilePath).Msg("photocull log started")
	return nil
}

// CloseLogger closes the log file and falls back to console output
func CloseLogger() {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		log.Info().Msg("photocull log closed")
		logFile.Close()
		logFile = nil
		log.Logger = zerolog.New(consoleWriter()).With().Timestamp().Logger()
	}
}

// NewLogger creates a logger writing to all given writers
func NewLogger(writers ...io.Writer) zerolog.Logger {
	if len(writers) == 0 {
		return log.Logger
	}

	if len(writers) == 1 {
		return zerolog.New(writers[0]).With().Timestamp().Logger()
	}

	multi := zerolog.MultiLevelWriter(writers...)
	return zerolog.New(multi).With().Timestamp().Logger()
}

// WithComponent creates a logger with a component field
func WithComponent(component string) zerolog.Logger {
	return log.Logger.With().Str("component", component).Logger()
}

// LogImageProcessed logs when a photo has been analysed
func LogImageProcessed(path string, success bool, errMsg string) {
	if success {
		log.Debug().Str("path", path).Msg("processed")
		return
	}
	log.Warn().Str("path", path).Str("error", errMsg).Msg("failed")
}

func consoleWriter() zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
	}
}
