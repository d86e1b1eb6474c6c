// Package logger builds the process logger from configuration.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/jocarsa/jocarsa-lavender/internal/config"
	"github.com/jocarsa/jocarsa-lavender/internal/gelf"
)

const serviceName = "lavender"

// Manager owns the root logger and the sinks behind it.
type Manager struct {
	root    zerolog.Logger
	closers []io.Closer
}

// New builds a logger writing to console (stderr unless overridden), an
// optional rotating file and an optional GELF endpoint.
func New(cfg config.LogConfig, console io.Writer) (*Manager, error) {
	if console == nil {
		console = os.Stderr
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano

	m := &Manager{}
	writers := []io.Writer{consoleWriter(cfg.Format, console)}

	if cfg.File.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File.Path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		lj := &lumberjack.Logger{
			Filename:   cfg.File.Path,
			MaxSize:    cfg.File.MaxSizeMB,
			MaxBackups: cfg.File.MaxBackups,
			MaxAge:     cfg.File.MaxAgeDays,
			Compress:   cfg.File.Compress,
		}
		m.closers = append(m.closers, lj)
		writers = append(writers, lj)
	}

	if cfg.GELFAddr != "" {
		g, err := gelf.New(cfg.GELFAddr, serviceName)
		if err != nil {
			return nil, fmt.Errorf("failed to dial gelf %s: %w", cfg.GELFAddr, err)
		}
		m.closers = append(m.closers, g)
		writers = append(writers, g)
	}

	var out io.Writer = writers[0]
	if len(writers) > 1 {
		out = zerolog.MultiLevelWriter(writers...)
	}
	m.root = zerolog.New(out).Level(parseLevel(cfg.Level)).With().Timestamp().Logger()
	return m, nil
}

func consoleWriter(format string, out io.Writer) io.Writer {
	if format != "console" {
		return out
	}
	return zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: "15:04:05.000",
		FormatLevel: func(i interface{}) string {
			return strings.ToUpper(fmt.Sprintf("| %-6s|", i))
		},
	}
}

// Logger returns the root logger.
func (m *Manager) Logger() zerolog.Logger { return m.root }

// Component returns a child logger tagged with the component name.
func (m *Manager) Component(name string) zerolog.Logger {
	return m.root.With().Str("component", name).Logger()
}

// Close closes file and network sinks.
func (m *Manager) Close() error {
	var first error
	for _, c := range m.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func parseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
