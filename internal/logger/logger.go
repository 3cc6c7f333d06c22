// Package logger builds the logrus loggers shared by the CLI and its services.
package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

type Option func(*logrus.Logger)

func WithOutput(w io.Writer) Option {
	return func(l *logrus.Logger) {
		l.SetOutput(w)
	}
}

// WithLevel sets the level from its name; unknown names leave the default (info)
func WithLevel(level string) Option {
	return func(l *logrus.Logger) {
		if lvl, err := logrus.ParseLevel(level); err == nil {
			l.SetLevel(lvl)
		}
	}
}

func WithJSON() Option {
	return func(l *logrus.Logger) {
		l.SetFormatter(&logrus.JSONFormatter{})
	}
}

// WithFormat selects the formatter by name: "json" or anything else for text
func WithFormat(format string) Option {
	if format == "json" {
		return WithJSON()
	}
	return func(l *logrus.Logger) {}
}

func New(options ...Option) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: false, FullTimestamp: true})

	for _, opt := range options {
		opt(l)
	}

	return l
}

// Discard returns a logger that drops everything, for tests
func Discard() *logrus.Logger {
	return New(WithOutput(io.Discard))
}
