package config

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	logg     *logrus.Logger
	loggOnce sync.Once
)

// GetLogger returns the process-wide logger.
func GetLogger() *logrus.Logger {
	loggOnce.Do(func() {
		logg = logrus.New()
		logg.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
		logg.SetLevel(logrus.WarnLevel)
		logg.SetOutput(os.Stderr)
	})
	return logg
}

// ConfigureLogger applies the level and format from cfg.
func ConfigureLogger(cfg *Config) error {
	logger := GetLogger()

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger.SetLevel(level)

	if cfg.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return nil
}

// LogError logs err with the module and function it came from.
func LogError(logger *logrus.Logger, moduleName, funcName string, fields logrus.Fields, err error) {
	entry := logger.WithFields(logrus.Fields{
		"module":   moduleName,
		"funcName": funcName,
	})
	if fields != nil {
		entry = entry.WithFields(fields)
	}
	entry.Error(err.Error())
}
