// Package parser provides the interfaces and shared plumbing of the
// statement normalizers.
package parser

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"fjacquet/firefly-preimporter/internal/logging"
	"fjacquet/firefly-preimporter/internal/models"
	"fjacquet/firefly-preimporter/internal/parsererror"
)

// BaseParser is embedded by every normalizer.
//
//	type MyParser struct {
//		parser.BaseParser
//	}
type BaseParser struct {
	logger logging.Logger
}

// NewBaseParser returns a BaseParser; a nil logger gets an info-level
// logrus logger.
func NewBaseParser(logger logging.Logger) BaseParser {
	if logger == nil {
		logger = logging.NewLogrusAdapter("info", "text")
	}
	return BaseParser{logger: logger}
}

// SetLogger replaces the logger when non-nil.
func (b *BaseParser) SetLogger(logger logging.Logger) {
	if logger != nil {
		b.logger = logger
	}
}

// GetLogger returns the parser's logger.
func (b *BaseParser) GetLogger() logging.Logger {
	return b.logger
}

// ProcessFile opens job's file, hands it to p and stamps the job on the
// result. Structural errors are annotated with the file path.
func ProcessFile(p Parser, job models.ProcessingJob) (*models.ProcessingResult, error) {
	file, err := os.Open(job.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("error opening %s: %w", job.SourcePath, err)
	}
	defer func() { _ = file.Close() }()

	result, err := p.Parse(file)
	if err != nil {
		return nil, annotate(err, job.SourcePath)
	}
	result.Job = job
	return result, nil
}

// ParseString runs p over an in-memory statement.
func ParseString(p Parser, content string) (*models.ProcessingResult, error) {
	return p.Parse(strings.NewReader(content))
}

func annotate(err error, path string) error {
	var header *parsererror.MissingHeaderError
	if errors.As(err, &header) && header.FilePath == "" {
		header.FilePath = path
	}
	var failure *parsererror.ParseFailureError
	if errors.As(err, &failure) && failure.FilePath == "" {
		failure.FilePath = path
	}
	return err
}
