// Package dateutils converts statement dates into the canonical ISO form.
package dateutils

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// DateLayoutISO is the canonical transaction date layout.
const DateLayoutISO = "2006-01-02"

// Accepted statement layouts. Single-digit month and day elements also
// accept zero-padded input.
const (
	DateLayoutUS        = "1/2/2006"
	DateLayoutUSShort   = "1/2/06"
	DateLayoutDashedISO = "2006-1-2"
	DateLayoutEuropean  = "2/1/2006"
	DateLayoutSlashISO  = "2006/1/2"
	DateLayoutDashedEU  = "2-1-2006"
	DateLayoutDotted    = "2.1.2006"
)

// StatementFormats is tried in order; the first layout that parses wins, so
// 03/04/2024 is read as March 4th.
var StatementFormats = []string{
	DateLayoutUS,
	DateLayoutUSShort,
	DateLayoutDashedISO,
	DateLayoutEuropean,
	DateLayoutSlashISO,
	DateLayoutDashedEU,
	DateLayoutDotted,
}

var whitespace = regexp.MustCompile(`\s+`)

// CleanDateString trims and collapses internal whitespace.
func CleanDateString(dateStr string) string {
	return whitespace.ReplaceAllString(strings.TrimSpace(dateStr), " ")
}

// ParseDate parses value with the first matching statement layout and
// returns the parsed date and the layout used.
func ParseDate(value string) (time.Time, string, error) {
	cleaned := CleanDateString(value)
	if cleaned == "" {
		return time.Time{}, "", fmt.Errorf("empty date")
	}
	for _, layout := range StatementFormats {
		if t, err := time.Parse(layout, cleaned); err == nil {
			return t, layout, nil
		}
	}
	return time.Time{}, "", fmt.Errorf("unable to parse date: %s", value)
}

// NormalizeDate returns value as YYYY-MM-DD.
func NormalizeDate(value string) (string, error) {
	t, _, err := ParseDate(value)
	if err != nil {
		return "", err
	}
	return ToISODate(t), nil
}

// ToISODate formats t as YYYY-MM-DD.
func ToISODate(t time.Time) string {
	return t.Format(DateLayoutISO)
}

// UTCDate converts a timestamp to UTC and returns its calendar date.
func UTCDate(t time.Time) string {
	return ToISODate(t.UTC())
}
