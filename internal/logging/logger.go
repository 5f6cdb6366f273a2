package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// Config holds logger configuration
type Config struct {
	Level      string // debug, info, warn, error
	OutputFile string // Path to log file (empty = stderr only)
	MaxSize    int64  // Max size in bytes before rotation (default: 10MB)
	MaxBackups int    // Number of old log files to keep (default: 3)
	JSONFormat bool
	Quiet      bool // Drop stderr output, keep the file
}

// DefaultConfig returns the CLI defaults: human-readable warnings on stderr
func DefaultConfig(verbose bool) Config {
	level := "warn"
	if verbose {
		level = "debug"
	}
	return Config{
		Level:      level,
		MaxSize:    10 * 1024 * 1024,
		MaxBackups: 3,
	}
}

// New creates a logrus logger from cfg. The returned closer releases the log
// file, if any.
func New(cfg Config) (*logrus.Logger, io.Closer, error) {
	if cfg.MaxSize == 0 {
		cfg.MaxSize = 10 * 1024 * 1024
	}
	if cfg.MaxBackups == 0 {
		cfg.MaxBackups = 3
	}

	logger := logrus.New()

	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}
	logger.SetLevel(level)

	if cfg.JSONFormat {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "15:04:05",
		})
	}

	var writers []io.Writer
	if !cfg.Quiet {
		writers = append(writers, os.Stderr)
	}

	var closer io.Closer = nopCloser{}
	if cfg.OutputFile != "" {
		dir := filepath.Dir(cfg.OutputFile)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
		}

		if err := rotateIfNeeded(cfg); err != nil {
			return nil, nil, fmt.Errorf("failed to rotate logs: %w", err)
		}

		file, err := os.OpenFile(cfg.OutputFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file %s: %w", cfg.OutputFile, err)
		}
		writers = append(writers, file)
		closer = file
	}

	switch len(writers) {
	case 0:
		logger.SetOutput(io.Discard)
	case 1:
		logger.SetOutput(writers[0])
	default:
		logger.SetOutput(io.MultiWriter(writers...))
	}

	return logger, closer, nil
}

// Discard returns a logger that drops everything; handy in tests
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// ParseLevel maps a config level name to a logrus level. Empty means info.
func ParseLevel(name string) (logrus.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "":
		return logrus.InfoLevel, nil
	case "warning":
		return logrus.WarnLevel, nil
	}
	level, err := logrus.ParseLevel(name)
	if err != nil {
		return logrus.InfoLevel, fmt.Errorf("invalid log level %q: %w", name, err)
	}
	return level, nil
}

// rotateIfNeeded renames an oversized log file to .1, shifting older backups
func rotateIfNeeded(cfg Config) error {
	info, err := os.Stat(cfg.OutputFile)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat log file: %w", err)
	}

	if info.Size() < cfg.MaxSize {
		return nil
	}

	for i := cfg.MaxBackups - 1; i >= 1; i-- {
		oldPath := fmt.Sprintf("%s.%d", cfg.OutputFile, i)
		newPath := fmt.Sprintf("%s.%d", cfg.OutputFile, i+1)
		if _, err := os.Stat(oldPath); err == nil {
			os.Rename(oldPath, newPath) // Ignore error, file might not exist
		}
	}

	backupPath := fmt.Sprintf("%s.1", cfg.OutputFile)
	if err := os.Rename(cfg.OutputFile, backupPath); err != nil {
		return fmt.Errorf("failed to rotate log file: %w", err)
	}

	return nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
