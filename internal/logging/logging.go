// Package logging builds the logrus logger used across connectkit.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/blackwell-systems/connectkit/internal/config"
)

// Init builds a logger from cfg. An invalid level falls back to warn and an
// unopenable file falls back to stderr; both are reported on the returned
// logger rather than failing startup.
func Init(cfg config.LoggingConfig) *logrus.Logger {
	log := logrus.New()

	switch strings.ToLower(cfg.Format) {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	default:
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	var output io.Writer
	var outputErr error
	switch strings.ToLower(cfg.Output) {
	case "", "stderr":
		output = os.Stderr
	case "stdout":
		output = os.Stdout
	default:
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			outputErr = err
			output = os.Stderr
		} else {
			output = file
		}
	}
	log.SetOutput(output)

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.WarnLevel
	}
	log.SetLevel(level)

	if err != nil && cfg.Level != "" {
		log.Warnf("Invalid log level '%s', using 'warn' instead. Error: %v", cfg.Level, err)
	}
	if outputErr != nil {
		log.Warnf("Failed to open log file '%s', using 'stderr' instead. Error: %v", cfg.Output, outputErr)
	}

	return log
}

// Discard returns a logger that writes nowhere.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// Component returns an entry tagged with the component name.
func Component(log *logrus.Logger, name string) *logrus.Entry {
	if log == nil {
		log = Discard()
	}
	return log.WithField("component", name)
}
