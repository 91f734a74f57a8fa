package logger

import (
	"io"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Default values for log file rotation.
const (
	_defaultMaxSize    = 100 // in megabytes
	_defaultMaxBackups = 7
	_defaultMaxAge     = 30 // in days
)

// GlobalConfig holds logger settings shared by all engines.
type GlobalConfig struct {
	Level Level

	// Filename enables rotated file output when set.
	Filename   string
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool

	// Stdout enables console output in addition to the file.
	Stdout bool
	// Writer replaces stdout when set.
	Writer io.Writer
}

// Option represents a functional configuration option for the logger.
type Option func(*GlobalConfig)

func defaultConfigs() *GlobalConfig {
	return &GlobalConfig{
		Level:      InfoLevel,
		MaxSize:    _defaultMaxSize,
		MaxBackups: _defaultMaxBackups,
		MaxAge:     _defaultMaxAge,
		Compress:   true,
		Stdout:     true,
	}
}

// WithLevel sets the minimum log level.
func WithLevel(l Level) Option {
	return func(c *GlobalConfig) { c.Level = l }
}

// WithRotation writes logs to filename, rotated by lumberjack.
// maxSize is in megabytes, maxAge in days.
func WithRotation(filename string, maxSize, maxBackups, maxAge int) Option {
	return func(c *GlobalConfig) {
		c.Filename = filename
		c.MaxSize = maxSize
		c.MaxBackups = maxBackups
		c.MaxAge = maxAge
	}
}

// WithWriter sends console output to w instead of stdout.
func WithWriter(w io.Writer) Option {
	return func(c *GlobalConfig) {
		c.Writer = w
		c.Stdout = true
	}
}

// WithoutStdout disables console output, leaving only the rotated file if configured.
func WithoutStdout() Option {
	return func(c *GlobalConfig) { c.Stdout = false }
}

// GetWriter combines the console and file destinations.
func (c *GlobalConfig) GetWriter() io.Writer {
	var writers []io.Writer
	if c.Stdout {
		if c.Writer != nil {
			writers = append(writers, c.Writer)
		} else {
			writers = append(writers, os.Stdout)
		}
	}
	if c.Filename != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   c.Filename,
			MaxSize:    c.MaxSize,
			MaxBackups: c.MaxBackups,
			MaxAge:     c.MaxAge,
			Compress:   c.Compress,
		})
	}
	if len(writers) == 0 {
		return io.Discard
	}
	return io.MultiWriter(writers...)
}
