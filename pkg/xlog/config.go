package xlog

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// NewConfig returns the default logging config: info level text output on
// stdout with source annotation and no file output.
func NewConfig() Config {
	return Config{
		Level:     slog.LevelInfo,
		AddSource: true,
		StdFormat: "text",
		StdWriter: os.Stdout,
		MaxSize:   30,
	}
}

// Config describes how the log handler is built.
type Config struct {
	// Level is the minimum level emitted.
	Level slog.Level
	// AddSource enables file:line annotation on each record.
	AddSource bool

	// StdFormat selects the stdout format, one of "text" or "json".
	StdFormat string
	// StdWriter is the stdout writer, defaults to os.Stdout.
	StdWriter io.Writer

	// Path enables JSON file output when non-empty. Files are rotated by
	// lumberjack with the limits below.
	Path string
	// MaxSize is the maximum size in MB of a log file before rotation.
	MaxSize int
	// MaxAge is the maximum number of days to retain old log files.
	MaxAge int
	// MaxBackups is the maximum number of rotated files to retain.
	MaxBackups int
	// Compress enables gzip compression of rotated files.
	Compress bool
}

// BuildHandler creates a new slog.Handler from the config.
func (c *Config) BuildHandler() slog.Handler {
	opts := &slog.HandlerOptions{
		AddSource:   c.AddSource,
		Level:       c.Level,
		ReplaceAttr: normalizeSourceAttr,
	}
	handlers := []slog.Handler{}
	writer := c.StdWriter
	if writer == nil {
		writer = os.Stdout
	}
	if c.StdFormat == "json" {
		handlers = append(handlers, NewLeveledHandler(slog.NewJSONHandler(writer, opts)))
	} else {
		handlers = append(handlers, NewLeveledHandler(slog.NewTextHandler(writer, opts)))
	}
	if fw := c.buildFileWriter(); fw != nil {
		handlers = append(handlers, NewLeveledHandler(slog.NewJSONHandler(fw, opts)))
	}
	if len(handlers) == 1 {
		return handlers[0]
	}
	return MultiHandler(handlers...)
}

func (c *Config) buildFileWriter() io.Writer {
	if c.Path == "" {
		return nil
	}
	return &lumberjack.Logger{
		Filename:   c.Path,
		MaxSize:    c.MaxSize,
		MaxAge:     c.MaxAge,
		MaxBackups: c.MaxBackups,
		Compress:   c.Compress,
	}
}

// normalizeSourceAttr trims the source file path to its basename.
func normalizeSourceAttr(groups []string, attr slog.Attr) slog.Attr {
	if attr.Key == slog.SourceKey {
		if source, ok := attr.Value.Any().(*slog.Source); ok {
			source.File = filepath.Base(source.File)
		}
	}
	return attr
}
