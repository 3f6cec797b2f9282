// Package logging builds the process-wide zerolog logger.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options select the output format and sinks.
type Options struct {
	Env   string
	Level string
	// File, when set, receives a copy of every log line in JSON, rotated
	// by size.
	File string
}

// New returns a JSON logger on stdout, or a console logger in development.
func New(opts Options) zerolog.Logger {
	var out io.Writer = os.Stdout
	if opts.Env == "development" {
		out = zerolog.ConsoleWriter{Out: os.Stdout}
	}
	if opts.File != "" {
		out = zerolog.MultiLevelWriter(out, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     28,
			Compress:   true,
		})
	}

	level, err := zerolog.ParseLevel(opts.Level)
	if err != nil || opts.Level == "" {
		level = zerolog.InfoLevel
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
