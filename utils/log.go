package utils

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	logger     *logrus.Logger
	loggerOnce sync.Once
)

// Logger returns the process-wide logger. It is configured from the options
// the first time it is requested.
func Logger() *logrus.Logger {
	loggerOnce.Do(func() {
		logger = NewLogger(opts.logLevel)
	})
	return logger
}

// NewLogger creates a text logger writing to stderr at the given level.
// Unknown levels fall back to info.
func NewLogger(level string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{
		DisableColors:    opts.noColorize,
		DisableTimestamp: false,
		FullTimestamp:    true,
		TimestampFormat:  "15:04:05",
	})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		l.Warnf("unknown log level %q, using info", level)
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)
	return l
}

// SetLogLevel changes the level of the process-wide logger.
func SetLogLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	Logger().SetLevel(lvl)
	return nil
}
