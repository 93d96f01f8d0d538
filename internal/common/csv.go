package common

import (
	"fmt"

	"fjacquet/firefly-preimporter/internal/fileutils"
	"fjacquet/firefly-preimporter/internal/logging"
	"fjacquet/firefly-preimporter/internal/models"

	"github.com/gocarina/gocsv"
)

// CSVHeader is the column order of every normalized CSV.
var CSVHeader = []string{"transaction_id", "date", "description", "amount"}

// MarshalTransactions renders transactions as CSV. The header row is always
// present, even for an empty slice.
func MarshalTransactions(transactions []models.Transaction) (string, error) {
	if transactions == nil {
		transactions = []models.Transaction{}
	}
	out, err := gocsv.MarshalString(&transactions)
	if err != nil {
		return "", fmt.Errorf("error marshalling transactions to CSV: %w", err)
	}
	return out, nil
}

// UnmarshalTransactions parses CSV produced by MarshalTransactions.
func UnmarshalTransactions(data string) ([]models.Transaction, error) {
	var transactions []models.Transaction
	if err := gocsv.UnmarshalString(data, &transactions); err != nil {
		return nil, fmt.Errorf("error parsing transactions CSV: %w", err)
	}
	return transactions, nil
}

// WriteTransactionsToCSV writes the normalized CSV to path, creating parent
// directories.
func WriteTransactionsToCSV(transactions []models.Transaction, path string, logger logging.Logger) error {
	content, err := MarshalTransactions(transactions)
	if err != nil {
		return err
	}

	logger.Debug("Writing transactions to CSV file",
		logging.F(logging.FieldOutputFile, path),
		logging.F(logging.FieldCount, len(transactions)))

	if err := fileutils.WriteFile(path, []byte(content), models.PermissionFile); err != nil {
		logger.WithError(err).Error("Failed to write CSV file", logging.F(logging.FieldOutputFile, path))
		return fmt.Errorf("error writing CSV file: %w", err)
	}
	return nil
}
