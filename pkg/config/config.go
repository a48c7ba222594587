// Package config resolves CLI defaults from the environment.
package config

import (
	"os"

	"github.com/sirupsen/logrus"
)

const (
	DefaultAddr     = ":8080"
	DefaultIndex    = "index.gfaidx"
	DefaultLogLevel = "info"
)

func getenv(key, fallback string) string {
	if env := os.Getenv(key); env != "" {
		return env
	}
	return fallback
}

// Addr returns the listen address from GFAIDX_ADDR, falling back to
// DefaultAddr.
func Addr() string { return getenv("GFAIDX_ADDR", DefaultAddr) }

// IndexPath returns the snapshot path from GFAIDX_INDEX, falling back to
// DefaultIndex.
func IndexPath() string { return getenv("GFAIDX_INDEX", DefaultIndex) }

// LogLevel returns GFAIDX_LOG_LEVEL or DefaultLogLevel.
func LogLevel() string { return getenv("GFAIDX_LOG_LEVEL", DefaultLogLevel) }

// SetupLogging points logrus at stderr with the given level. Output stays
// off stdout so the MCP stdio transport is not disturbed.
func SetupLogging(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	logrus.SetOutput(os.Stderr)
	logrus.SetLevel(lvl)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return nil
}
