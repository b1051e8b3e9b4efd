package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New builds the process logger. Production gets JSON output at info level,
// everything else gets human-readable text at debug level.
func New(env string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)

	if env == "production" {
		log.SetFormatter(&logrus.JSONFormatter{})
		log.SetLevel(logrus.InfoLevel)
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		log.SetLevel(logrus.DebugLevel)
	}

	return log
}

// EnvVarStatus reports whether an environment variable is set without
// exposing its value.
func EnvVarStatus(name string) string {
	if os.Getenv(name) != "" {
		return "LOADED"
	}
	return "MISSING"
}
