// Package config loads the importer settings file and the process
// environment.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"fjacquet/firefly-preimporter/internal/logging"

	"github.com/joho/godotenv"
)

var once sync.Once

// LoadEnv loads a .env file from the working directory or its parent, once
// per process. A missing file is not an error.
func LoadEnv(logger logging.Logger) {
	once.Do(func() {
		envFile := ".env"
		if _, err := os.Stat(envFile); os.IsNotExist(err) {
			envFile = filepath.Join("..", ".env")
			if _, err := os.Stat(envFile); os.IsNotExist(err) {
				return
			}
		}

		if err := godotenv.Load(envFile); err != nil {
			if logger != nil {
				logger.WithError(err).Warn("Error loading .env file")
			}
			return
		}
		if logger != nil {
			logger.Debug("Loaded environment variables", logging.F(logging.FieldFile, envFile))
		}
	})
}

// LogLevelFromEnv returns LOG_LEVEL, defaulting to info.
func LogLevelFromEnv() string {
	if level := strings.TrimSpace(os.Getenv("LOG_LEVEL")); level != "" {
		return strings.ToLower(level)
	}
	return "info"
}

// LogFormatFromEnv returns LOG_FORMAT, defaulting to text.
func LogFormatFromEnv() string {
	if strings.EqualFold(strings.TrimSpace(os.Getenv("LOG_FORMAT")), "json") {
		return "json"
	}
	return "text"
}

// NewLoggerFromEnv builds the process logger from LOG_LEVEL and LOG_FORMAT.
func NewLoggerFromEnv() logging.Logger {
	return logging.NewLogrusAdapter(LogLevelFromEnv(), LogFormatFromEnv())
}
