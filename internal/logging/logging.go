// Package logging configures the process-wide zerolog logger: console output,
// a per-session log file, and optional Graylog (GELF) shipping.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// LogFilePath builds a log file path using OS-appropriate path separators.
func LogFilePath(logsDir, name string, sessionStart time.Time) string {
	return filepath.Join(
		logsDir,
		fmt.Sprintf("%s.%s.log", name, sessionStart.Format("20060102_150405")),
	)
}

// Setup builds the root logger. The log level, logs directory and graylog
// target come from viper. The returned closer owns the log file handle.
func Setup(name string, sessionStart time.Time) (zerolog.Logger, io.Closer, error) {
	level, err := zerolog.ParseLevel(viper.GetString("logLevel"))
	if err != nil {
		level = zerolog.InfoLevel
	}

	logsDir := viper.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("error creating logs directory: %w", err)
	}

	path := LogFilePath(logsDir, name, sessionStart)
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("error opening log file: %w", err)
	}

	writers := []io.Writer{
		zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339},
		file,
	}

	if viper.GetBool("graylog.enabled") {
		gelfWriter, err := gelf.NewWriter(viper.GetString("graylog.address"))
		if err != nil {
			// Graylog being down should not stop ingestion.
			fmt.Fprintf(os.Stderr, "graylog writer unavailable: %v\n", err)
		} else {
			writers = append(writers, gelfWriter)
		}
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().Timestamp().Str("component", name).
		Logger()

	logger.Info().Str("file", path).Str("level", level.String()).Msg("Logging initialized")
	return logger, file, nil
}
