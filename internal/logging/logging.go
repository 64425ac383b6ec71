// Package logging configures the process-wide logrus logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Setup points logrus at w with the given level and formatter.
// Unknown levels fall back to warn so background failures still surface.
func Setup(w io.Writer, level string, json bool) {
	if w == nil {
		w = os.Stderr
	}
	logrus.SetOutput(w)

	lvl, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		lvl = logrus.WarnLevel
	}
	logrus.SetLevel(lvl)

	if json {
		logrus.SetFormatter(&logrus.JSONFormatter{})
		return
	}
	logrus.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: false,
		FullTimestamp:    true,
	})
}

// DebugFromEnv reports whether GITMIND_DEBUG requests debug output.
func DebugFromEnv() bool {
	v := os.Getenv("GITMIND_DEBUG")
	return strings.EqualFold(v, "1") || strings.EqualFold(v, "true")
}

// For returns an entry tagged with the owning component.
func For(component string) *logrus.Entry {
	return logrus.WithField("component", component)
}
