// Package logging configures the process wide slog logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

type Sink string

const (
	SinkStderr Sink = "stderr"
	SinkFile   Sink = "file"
	SinkNone   Sink = "none"
)

// Mode selects defaults. The full screen panel must never write to stderr.
type Mode uint8

const (
	ModeCLI Mode = iota + 1
	ModeTUI
)

type Config struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Sink       string `mapstructure:"sink"`
	File       string `mapstructure:"file"`
	AddSource  bool   `mapstructure:"add_source"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

func (c Config) Normalize(mode Mode) (Config, error) {
	c.Level = strings.ToLower(strings.TrimSpace(c.Level))
	c.Format = strings.ToLower(strings.TrimSpace(c.Format))
	c.Sink = strings.ToLower(strings.TrimSpace(c.Sink))
	c.File = strings.TrimSpace(c.File)
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = string(FormatText)
	}
	if c.Sink == "" {
		c.Sink = string(SinkStderr)
	}
	if mode == ModeTUI && Sink(c.Sink) == SinkStderr {
		c.Sink = string(SinkFile)
	}
	c.MaxSizeMB = max(0, c.MaxSizeMB)
	c.MaxBackups = max(0, c.MaxBackups)
	c.MaxAgeDays = max(0, c.MaxAgeDays)
	return c, c.Validate()
}

func (c Config) Validate() error {
	switch c.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level: invalid %q", c.Level)
	}
	switch Format(c.Format) {
	case FormatText, FormatJSON:
	default:
		return fmt.Errorf("log.format: invalid %q", c.Format)
	}
	switch Sink(c.Sink) {
	case SinkStderr, SinkFile, SinkNone:
	default:
		return fmt.Errorf("log.sink: invalid %q", c.Sink)
	}
	return nil
}

// DefaultFile is the log file used when none is configured.
func DefaultFile() string {
	dir := os.Getenv("XDG_STATE_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), "magnetpanel.log")
		}
		dir = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(dir, "magnetpanel", "magnetpanel.log")
}

// Init installs the default logger and returns a function that flushes and
// closes its sink.
func Init(cfg Config, mode Mode) (func() error, error) {
	cfg, err := cfg.Normalize(mode)
	if err != nil {
		return nil, err
	}
	logger, closeFn, err := New(cfg)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return closeFn, nil
}

// New builds a logger for an already normalized config.
func New(cfg Config) (*slog.Logger, func() error, error) {
	w, closeFn, err := resolveWriter(cfg)
	if err != nil {
		return nil, nil, err
	}
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level), AddSource: cfg.AddSource}
	var h slog.Handler
	if Format(cfg.Format) == FormatJSON {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h).With("app", "magnetpanel"), closeFn, nil
}

func parseLevel(value string) slog.Leveler {
	switch value {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func resolveWriter(cfg Config) (io.Writer, func() error, error) {
	switch Sink(cfg.Sink) {
	case SinkNone:
		return io.Discard, func() error { return nil }, nil
	case SinkStderr:
		return os.Stderr, func() error { return nil }, nil
	case SinkFile:
		path := cfg.File
		if path == "" {
			path = DefaultFile()
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, nil, fmt.Errorf("log directory: %w", err)
		}
		rot := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    orDefault(cfg.MaxSizeMB, 20),
			MaxBackups: orDefault(cfg.MaxBackups, 5),
			MaxAge:     orDefault(cfg.MaxAgeDays, 7),
			Compress:   cfg.Compress,
		}
		return rot, rot.Close, nil
	}
	return nil, nil, fmt.Errorf("logging: unknown sink %q", cfg.Sink)
}

func orDefault(v, fallback int) int {
	if v == 0 {
		return fallback
	}
	return v
}
