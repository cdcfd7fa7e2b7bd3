package logutils

import (
	"os"

	"github.com/sirupsen/logrus"
)

var log = logrus.StandardLogger()

// SetLoggerLevel falls back to info on an unknown level.
func SetLoggerLevel(level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		log.Warnf("unknown log level %q, using info", level)
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
}

// Setup sets the level and, when format is "json", switches to the JSON
// formatter. Logs go to stderr so commands can write results to stdout.
func Setup(level, format string) {
	log.SetOutput(os.Stderr)
	if format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	SetLoggerLevel(level)
}
