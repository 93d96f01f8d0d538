// Package csvparser normalizes bank CSV exports whose header names vary
// between institutions.
package csvparser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"fjacquet/firefly-preimporter/internal/common"
	"fjacquet/firefly-preimporter/internal/currencyutils"
	"fjacquet/firefly-preimporter/internal/dateutils"
	"fjacquet/firefly-preimporter/internal/logging"
	"fjacquet/firefly-preimporter/internal/models"
	"fjacquet/firefly-preimporter/internal/parser"
	"fjacquet/firefly-preimporter/internal/parsererror"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// SkipReason explains why a data row produced no transaction.
type SkipReason string

const (
	SkipNone         SkipReason = ""
	SkipBlank        SkipReason = "blank row"
	SkipShort        SkipReason = "row shorter than header"
	SkipMissingField SkipReason = "empty required field"
	SkipBadDate      SkipReason = "unparseable date"
	SkipBadAmount    SkipReason = "unparseable amount"
)

// RowResult is the outcome of normalizing one data row.
type RowResult struct {
	Transaction models.Transaction
	Skip        SkipReason
	Detail      string
}

// Adapter is the CSV normalizer.
type Adapter struct {
	parser.BaseParser
}

// NewAdapter returns a CSV normalizer logging through logger.
func NewAdapter(logger logging.Logger) *Adapter {
	return &Adapter{BaseParser: parser.NewBaseParser(logger)}
}

// Process normalizes the CSV file of job.
func (a *Adapter) Process(job models.ProcessingJob) (*models.ProcessingResult, error) {
	a.GetLogger().Info("Parsing CSV file", logging.F(logging.FieldFile, job.SourcePath))
	return parser.ProcessFile(a, job)
}

// Parse reads a CSV statement. A leading UTF-8 byte order mark is dropped.
// Rows before the header are ignored; malformed data rows are skipped. The
// only error is a file with no recognizable header.
func (a *Adapter) Parse(r io.Reader) (*models.ProcessingResult, error) {
	reader := csv.NewReader(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var (
		columns   ColumnMap
		hasHeader bool
		rows      []RowResult
		line      int
	)

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				a.GetLogger().WithError(err).Debug("Skipping unreadable CSV line", logging.F(logging.FieldRow, line))
				continue
			}
			return nil, fmt.Errorf("error reading CSV: %w", err)
		}

		if isBlank(record) || len(record) < len(RequiredRoles) {
			continue
		}

		if !hasHeader {
			columns, hasHeader = DetectColumns(record)
			continue
		}

		rows = append(rows, NormalizeRow(record, columns))
	}

	if !hasHeader {
		return nil, &parsererror.MissingHeaderError{Required: RequiredRoles}
	}

	transactions := FilterRows(rows, a.GetLogger())
	a.GetLogger().Info("Parsed CSV transactions",
		logging.F(logging.FieldCount, len(transactions)),
		logging.F("skipped", len(rows)-len(transactions)))

	return &models.ProcessingResult{Transactions: transactions}, nil
}

// NormalizeRow turns one data row into a transaction or a skip reason.
func NormalizeRow(record []string, columns ColumnMap) RowResult {
	if isBlank(record) {
		return RowResult{Skip: SkipBlank}
	}
	if len(record) < columns.width() {
		return RowResult{Skip: SkipShort}
	}

	dateRaw := strings.TrimSpace(record[columns.Date])
	description := strings.TrimSpace(record[columns.Description])
	amountRaw := strings.TrimSpace(record[columns.Amount])
	if dateRaw == "" || description == "" || amountRaw == "" {
		return RowResult{Skip: SkipMissingField}
	}

	date, err := dateutils.NormalizeDate(dateRaw)
	if err != nil {
		return RowResult{Skip: SkipBadDate, Detail: dateRaw}
	}
	amount, err := currencyutils.NormalizeAmount(amountRaw)
	if err != nil {
		return RowResult{Skip: SkipBadAmount, Detail: amountRaw}
	}

	id := ""
	if columns.TransactionID >= 0 && columns.TransactionID < len(record) {
		id = strings.TrimSpace(record[columns.TransactionID])
	}
	if id == "" {
		id = common.GenerateTransactionID(date, description, amount)
	}

	return RowResult{Transaction: models.Transaction{
		TransactionID: id,
		Date:          date,
		Description:   description,
		Amount:        amount,
	}}
}

// FilterRows keeps the transactions of successful rows, in order, and logs
// the skipped ones at debug level.
func FilterRows(rows []RowResult, logger logging.Logger) []models.Transaction {
	transactions := make([]models.Transaction, 0, len(rows))
	for i, row := range rows {
		if row.Skip != SkipNone {
			if logger != nil {
				logger.Debug("Skipping CSV row",
					logging.F(logging.FieldRow, i+1),
					logging.F(logging.FieldReason, string(row.Skip)),
					logging.F("value", row.Detail))
			}
			continue
		}
		transactions = append(transactions, row.Transaction)
	}
	return transactions
}

func isBlank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
