package util

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger builds the logger every command line tool hands to its stage.
func NewLogger(tool string, verbose bool) logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	logger.SetLevel(logrus.InfoLevel)
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger.WithField("tool", tool)
}

// DiscardLogger is used when a caller does not configure logging.
func DiscardLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
