// Package logger builds the logrus instance that is handed to every component.
// Nothing here touches the package-level logrus logger.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/ds124wfegd/image-transformer/config"
	"github.com/sirupsen/logrus"
)

func New(cfg config.LogConfig) *logrus.Logger {
	return NewWithOutput(cfg, os.Stdout)
}

func NewWithOutput(cfg config.LogConfig, out io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(out)

	switch strings.ToLower(cfg.Format) {
	case "text":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		log.SetFormatter(new(logrus.JSONFormatter))
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
		log.Warnf("unknown log level %q, falling back to %s", cfg.Level, level)
	}
	log.SetLevel(level)

	return log
}
