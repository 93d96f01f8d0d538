// Package container wires the application's dependencies: the statement
// processors, the input scanner and the Firefly III and FiDI clients.
package container

import (
	"fmt"
	"net/http"

	"fjacquet/firefly-preimporter/internal/config"
	"fjacquet/firefly-preimporter/internal/csvparser"
	"fjacquet/firefly-preimporter/internal/fidi"
	"fjacquet/firefly-preimporter/internal/firefly"
	"fjacquet/firefly-preimporter/internal/httpclient"
	"fjacquet/firefly-preimporter/internal/logging"
	"fjacquet/firefly-preimporter/internal/models"
	"fjacquet/firefly-preimporter/internal/ofxparser"
	"fjacquet/firefly-preimporter/internal/parser"
	"fjacquet/firefly-preimporter/internal/scanner"
)

// Container holds the dependencies of one invocation. It is immutable after
// creation.
type Container struct {
	logger   logging.Logger
	settings *config.Settings
	scanner  *scanner.Scanner

	processors map[models.SourceFormat]parser.Processor

	// Only set when settings are available.
	httpClient *http.Client
	firefly    *firefly.Client
	fidi       *fidi.Uploader
}

// NewContainer creates and wires all dependencies. settings may be nil when
// no settings file was found and no upload is requested; the API clients are
// then unavailable.
func NewContainer(settings *config.Settings, logger logging.Logger) (*Container, error) {
	if logger == nil {
		if settings != nil {
			logger = logging.NewLogrusAdapter(settings.Log.Level, settings.Log.Format)
		} else {
			logger = config.NewLoggerFromEnv()
		}
	}

	c := &Container{
		logger:   logger,
		settings: settings,
		scanner:  scanner.New(logger),
		processors: map[models.SourceFormat]parser.Processor{
			models.FormatCSV: csvparser.NewAdapter(logger),
			models.FormatOFX: ofxparser.NewAdapter(logger),
		},
	}

	if settings != nil {
		client, err := httpclient.New(settings.RequestTimeout(), settings.CACertFile(logger), logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create HTTP client: %w", err)
		}
		c.httpClient = client
		c.firefly = firefly.NewClient(settings.FireflyAPIBase, settings.PersonalAccessToken, client, logger)
		c.fidi = fidi.NewUploader(settings.FidiAutoUploadURL, settings.PersonalAccessToken, settings.FidiImportSecret, client, logger)
	}

	logger.Debug("Container initialized",
		logging.F("processors_count", len(c.processors)),
		logging.F("settings_loaded", settings != nil))
	return c, nil
}

// GetProcessor returns the processor registered for format.
func (c *Container) GetProcessor(format models.SourceFormat) (parser.Processor, error) {
	p, ok := c.processors[format]
	if !ok {
		return nil, fmt.Errorf("no processor for format: %s", format)
	}
	return p, nil
}

// GetProcessors returns a copy of the processor registry.
func (c *Container) GetProcessors() map[models.SourceFormat]parser.Processor {
	result := make(map[models.SourceFormat]parser.Processor, len(c.processors))
	for k, v := range c.processors {
		result[k] = v
	}
	return result
}

// GetScanner returns the input scanner.
func (c *Container) GetScanner() *scanner.Scanner {
	return c.scanner
}

// GetLogger returns the container's logger.
func (c *Container) GetLogger() logging.Logger {
	return c.logger
}

// GetSettings returns the settings, or nil when none were loaded.
func (c *Container) GetSettings() *config.Settings {
	return c.settings
}

// GetHTTPClient returns the shared HTTP client, or nil without settings.
func (c *Container) GetHTTPClient() *http.Client {
	return c.httpClient
}

// GetFireflyClient returns the Firefly III API client, or nil without
// settings.
func (c *Container) GetFireflyClient() *firefly.Client {
	return c.firefly
}

// GetFidiUploader returns the FiDI uploader, or nil without settings.
func (c *Container) GetFidiUploader() *fidi.Uploader {
	return c.fidi
}

// Close releases idle connections.
func (c *Container) Close() error {
	if c.httpClient != nil {
		c.httpClient.CloseIdleConnections()
	}
	c.logger.Debug("Container closed")
	return nil
}
