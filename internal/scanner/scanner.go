// Package scanner turns command-line targets into processing jobs.
package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"fjacquet/firefly-preimporter/internal/fileutils"
	"fjacquet/firefly-preimporter/internal/logging"
	"fjacquet/firefly-preimporter/internal/models"
	"fjacquet/firefly-preimporter/internal/parsererror"
)

var extensionFormats = map[string]models.SourceFormat{
	".csv": models.FormatCSV,
	".ofx": models.FormatOFX,
	".qfx": models.FormatOFX,
}

// Detect maps a path to its source format from the extension alone.
func Detect(path string) models.SourceFormat {
	if format, ok := extensionFormats[strings.ToLower(filepath.Ext(path))]; ok {
		return format
	}
	return models.FormatUnknown
}

// Scanner expands files and directories into jobs.
type Scanner struct {
	logger logging.Logger
}

// New returns a Scanner logging through logger.
func New(logger logging.Logger) *Scanner {
	if logger == nil {
		logger = logging.NewLogrusAdapter("info", "text")
	}
	return &Scanner{logger: logger.WithField("component", "scanner")}
}

// Enumerate returns the jobs for one target. A file of unknown format is an
// UnsupportedFormatError; a directory is listed without recursion in name
// order, skipping files of unknown format.
func (s *Scanner) Enumerate(target string) ([]models.ProcessingJob, error) {
	path := fileutils.ExpandHome(target)

	info, err := os.Stat(path)
	if err != nil {
		s.logger.WithError(err).Debug("Failed to stat path", logging.F(logging.FieldFile, path))
		return nil, &parsererror.NotFoundError{Path: path}
	}

	if info.Mode().IsRegular() {
		format := Detect(path)
		if format == models.FormatUnknown {
			return nil, &parsererror.UnsupportedFormatError{Path: path}
		}
		return []models.ProcessingJob{{SourcePath: path, SourceFormat: format}}, nil
	}

	if !info.IsDir() {
		return nil, &parsererror.NotFoundError{Path: path}
	}

	files, err := fileutils.ListFiles(path)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", path, err)
	}

	jobs := make([]models.ProcessingJob, 0, len(files))
	for _, file := range files {
		format := Detect(file)
		if format == models.FormatUnknown {
			s.logger.Debug("Skipping unsupported file", logging.F(logging.FieldFile, file))
			continue
		}
		jobs = append(jobs, models.ProcessingJob{SourcePath: file, SourceFormat: format})
	}
	return jobs, nil
}

// Gather enumerates every target in order and concatenates the jobs.
func (s *Scanner) Gather(targets []string) ([]models.ProcessingJob, error) {
	var jobs []models.ProcessingJob
	for _, target := range targets {
		found, err := s.Enumerate(target)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, found...)
	}
	s.logger.Debug("Discovered input files", logging.F(logging.FieldCount, len(jobs)))
	return jobs, nil
}
