// Package parsererror holds the typed errors shared by the normalizers, the
// payload builders and the upload orchestrator.
package parsererror

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

// ErrUserSkip is returned when the operator asks to skip the current file.
// It is a soft outcome, not a failure.
var ErrUserSkip = errors.New("skipped by user")

// UnsupportedFormatError is returned for a file whose extension is not
// recognized.
type UnsupportedFormatError struct {
	Path string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported file type: %s", e.Path)
}

// NotFoundError is returned for an input path that is neither a file nor a
// directory.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("path not found: %s", e.Path)
}

func (e *NotFoundError) Unwrap() error {
	return fs.ErrNotExist
}

// MissingHeaderError is returned when no CSV row carries every required role.
type MissingHeaderError struct {
	FilePath string
	Required []string
}

func (e *MissingHeaderError) Error() string {
	msg := fmt.Sprintf("unable to find header row with columns: %s", strings.Join(e.Required, ", "))
	if e.FilePath != "" {
		return fmt.Sprintf("%s: %s", e.FilePath, msg)
	}
	return msg
}

// ParseFailureError wraps a structural failure while reading a statement.
type ParseFailureError struct {
	FilePath string
	Format   string
	Err      error
}

func (e *ParseFailureError) Error() string {
	return fmt.Sprintf("failed to parse %s file %s: %v", e.Format, e.FilePath, e.Err)
}

func (e *ParseFailureError) Unwrap() error {
	return e.Err
}

// InvalidAccountError is returned when a ledger account id is required but
// the value is not an integer.
type InvalidAccountError struct {
	Value string
}

func (e *InvalidAccountError) Error() string {
	return fmt.Sprintf("account id must be numeric, got %q", e.Value)
}

// NoAccountsError is returned when the ledger reports no asset accounts.
type NoAccountsError struct {
	URL string
}

func (e *NoAccountsError) Error() string {
	return fmt.Sprintf("no asset accounts returned by %s", e.URL)
}

// duplicateMarker is the fragment Firefly III puts in the body of a
// rejected duplicate submission.
const duplicateMarker = "duplicate of transaction"

// UploadError describes a non-2xx answer from a remote service.
type UploadError struct {
	Target     string
	StatusCode int
	Body       string
	Err        error
}

func (e *UploadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upload to %s failed: %v", e.Target, e.Err)
	}
	return fmt.Sprintf("upload to %s failed with status %d: %s", e.Target, e.StatusCode, Snippet(e.Body, 200))
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// IsDuplicate reports whether the failure is the ledger refusing a
// transaction it already holds.
func (e *UploadError) IsDuplicate() bool {
	if e.StatusCode < 400 || e.StatusCode >= 500 {
		return false
	}
	return strings.Contains(strings.ToLower(e.Body), duplicateMarker)
}

// IsDuplicate reports whether err is an UploadError flagged as a duplicate.
func IsDuplicate(err error) bool {
	var upErr *UploadError
	return errors.As(err, &upErr) && upErr.IsDuplicate()
}

// ConfigurationMissingError is returned when settings are required but
// cannot be found, or lack required keys.
type ConfigurationMissingError struct {
	Path    string
	Missing []string
}

func (e *ConfigurationMissingError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("missing required configuration values in %s: %s", e.Path, strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("configuration file not found: %s", e.Path)
}

func (e *ConfigurationMissingError) Unwrap() error {
	if len(e.Missing) == 0 {
		return fs.ErrNotExist
	}
	return nil
}

// Snippet truncates s to at most limit runes, marking the cut with "...".
func Snippet(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}
