// Package logging wires charmbracelet/log as the project logger.
package logging

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

type Logger interface {
	Debug(interface{}, ...interface{})
	Info(interface{}, ...interface{})
	Warn(interface{}, ...interface{})
	Error(interface{}, ...interface{})
	Fatal(interface{}, ...interface{})
}

type Options struct {
	Writer io.Writer
	Level  string
	Prefix string
}

func New(opts Options) Logger {
	var w io.Writer = os.Stderr
	if opts.Writer != nil {
		w = opts.Writer
	}

	lvl, err := log.ParseLevel(opts.Level)
	if err != nil {
		lvl = log.InfoLevel
	}

	return log.NewWithOptions(w, log.Options{
		Level:           lvl,
		Prefix:          opts.Prefix,
		ReportTimestamp: true,
	})
}

// Discard returns a logger that drops everything; handy in tests.
func Discard() Logger {
	return New(Options{Writer: io.Discard, Level: "fatal"})
}
