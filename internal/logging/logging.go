// internal/logging/logging.go
package logging

import (
	"github.com/sirupsen/logrus"

	"github.com/javajoker/asin-radar/internal/config"
)

// New builds the process logger. Components receive it through their
// constructors rather than reaching for package-level state.
func New(cfg config.LogConfig) *logrus.Logger {
	log := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	return log
}
