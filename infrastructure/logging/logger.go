package logging

import (
	"io"

	"github.com/sirupsen/logrus"
)

// New returns the process logger
func New(level logrus.Level, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	if out != nil {
		logger.SetOutput(out)
	}
	return logger
}

// Null returns a logger that discards everything
func Null() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
