// Package models defines the canonical records passed between the scanner,
// the normalizers and the payload builders.
package models

import (
	"fmt"
	"path/filepath"
	"strings"
)

// SourceFormat is the statement format of an input file.
type SourceFormat string

const (
	FormatCSV     SourceFormat = "csv"
	FormatOFX     SourceFormat = "ofx"
	FormatUnknown SourceFormat = "unknown"
)

// String returns the upper-case label used in messages.
func (f SourceFormat) String() string {
	return strings.ToUpper(string(f))
}

// ProcessingJob is one discovered input file.
type ProcessingJob struct {
	SourcePath   string
	SourceFormat SourceFormat
}

// Name returns the base name of the job's file.
func (j ProcessingJob) Name() string {
	return filepath.Base(j.SourcePath)
}

// Transaction is the canonical record every statement format is reduced to.
// Date is YYYY-MM-DD; Amount is a signed decimal string with two fraction
// digits.
type Transaction struct {
	TransactionID string `csv:"transaction_id" json:"transaction_id"`
	Date          string `csv:"date" json:"date"`
	Description   string `csv:"description" json:"description"`
	Amount        string `csv:"amount" json:"amount"`
}

// ProcessingResult is the output of a normalizer for one job.
type ProcessingResult struct {
	Job          ProcessingJob
	Transactions []Transaction
	AccountID    string
	Warnings     []string
}

// HasTransactions reports whether the normalizer produced any transactions.
func (r *ProcessingResult) HasTransactions() bool {
	return r != nil && len(r.Transactions) > 0
}

// Summary returns a one-line description of the result.
func (r *ProcessingResult) Summary() string {
	account := "no account info"
	if r.AccountID != "" {
		account = "account " + r.AccountID
	}
	return fmt.Sprintf("%s: %d transactions, %s", r.Job.Name(), len(r.Transactions), account)
}
