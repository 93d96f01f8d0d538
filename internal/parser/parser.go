package parser

import (
	"io"

	"fjacquet/firefly-preimporter/internal/models"
)

// Parser reduces a statement stream to canonical transactions.
type Parser interface {
	// Parse reads one statement. Malformed individual records are skipped;
	// only structural failures return an error.
	Parse(r io.Reader) (*models.ProcessingResult, error)
}

// Processor handles a whole processing job.
type Processor interface {
	Process(job models.ProcessingJob) (*models.ProcessingResult, error)
}
