package csvparser

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"fjacquet/firefly-preimporter/internal/common"
	"fjacquet/firefly-preimporter/internal/logging"
	"fjacquet/firefly-preimporter/internal/models"
	"fjacquet/firefly-preimporter/internal/parser"
	"fjacquet/firefly-preimporter/internal/parsererror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, content string) (*models.ProcessingResult, error) {
	t.Helper()
	return parser.ParseString(NewAdapter(logging.NewMockLogger()), content)
}

func TestParse_BasicScenario(t *testing.T) {
	content := "date,description,amount\n" +
		"01/01/2024,Coffee,-3.50\n" +
		"2024-01-02,Deposit,1000\n" +
		"03/01/24, ,5\n"

	result, err := parse(t, content)
	require.NoError(t, err)
	require.Len(t, result.Transactions, 2)

	first := result.Transactions[0]
	assert.Equal(t, "2024-01-01", first.Date)
	assert.Equal(t, "-3.50", first.Amount)
	assert.Equal(t, "Coffee", first.Description)
	assert.Equal(t, common.GenerateTransactionID("2024-01-01", "Coffee", "-3.50"), first.TransactionID)

	assert.Equal(t, "1000.00", result.Transactions[1].Amount)
	assert.Empty(t, result.AccountID)
	assert.Empty(t, result.Warnings)
}

func TestParse_MissingHeader(t *testing.T) {
	_, err := parse(t, "no,header,here\n1,2,3\n")

	var missing *parsererror.MissingHeaderError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{"date", "description", "amount"}, missing.Required)
	assert.Contains(t, err.Error(), "date, description, amount")
}

func TestParse_PreambleAndAliases(t *testing.T) {
	content := "\ufeffAccount statement\n" +
		"Generated,2024-02-01,by bank\n" +
		"\n" +
		"Posted Date,Reference Number,Payee,Address,Amount\n" +
		"02/15/2024,REF-1,Grocer,Main St,\"-1,234.567\"\n" +
		"02/16/2024,,Refund,Main St,12.5\n"

	result, err := parse(t, content)
	require.NoError(t, err)
	require.Len(t, result.Transactions, 2)

	assert.Equal(t, models.Transaction{
		TransactionID: "REF-1",
		Date:          "2024-02-15",
		Description:   "Grocer",
		Amount:        "-1234.57",
	}, result.Transactions[0])
	assert.Equal(t, common.GenerateTransactionID("2024-02-16", "Refund", "12.50"), result.Transactions[1].TransactionID)
}

func TestParse_BOMOnHeader(t *testing.T) {
	result, err := parse(t, "\ufeffDate,Description,Amount\n2024-03-01,Rent,-900\n")
	require.NoError(t, err)
	require.Len(t, result.Transactions, 1)
	assert.Equal(t, "-900.00", result.Transactions[0].Amount)
}

func TestParse_SkipsMalformedRows(t *testing.T) {
	content := "Transaction Date,Memo,Transaction Amount\n" +
		"not a date,Thing,1.00\n" +
		"2024-01-05,Thing,abc\n" +
		"2024-01-06,,1.00\n" +
		",,\n" +
		"2024-01-07\n" +
		"2024-01-08,Good,\"2,000\"\n"

	result, err := parse(t, content)
	require.NoError(t, err)
	require.Len(t, result.Transactions, 1)
	assert.Equal(t, "2000.00", result.Transactions[0].Amount)
}

func TestParse_HeaderOnly(t *testing.T) {
	result, err := parse(t, "date,description,amount\n")
	require.NoError(t, err)
	assert.False(t, result.HasTransactions())
}

func TestParse_IdempotentIDs(t *testing.T) {
	content := "date,description,amount\n01/31/2024,Lunch,-12.00\n31.01.2024,Lunch,-12\n"

	first, err := parse(t, content)
	require.NoError(t, err)
	second, err := parse(t, content)
	require.NoError(t, err)

	require.Len(t, first.Transactions, 2)
	assert.Equal(t, first.Transactions, second.Transactions)
	// Same canonical tuple yields the same id whatever the source layout.
	assert.Equal(t, first.Transactions[0].TransactionID, first.Transactions[1].TransactionID)
}

func TestProcess_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checking.csv")
	require.NoError(t, os.WriteFile(path, []byte("date,payee,amount\n2024-04-01,Gym,-30\n"), 0600))
	job := models.ProcessingJob{SourcePath: path, SourceFormat: models.FormatCSV}

	logger := logging.NewMockLogger()
	result, err := NewAdapter(logger).Process(job)
	require.NoError(t, err)
	assert.Equal(t, job, result.Job)
	assert.Len(t, result.Transactions, 1)
	assert.True(t, logger.HasEntry("INFO", "Parsing CSV file"))
}

func TestDetectColumns(t *testing.T) {
	tests := []struct {
		name   string
		row    []string
		want   ColumnMap
		header bool
	}{
		{
			name:   "canonical",
			row:    []string{"date", "description", "amount"},
			want:   ColumnMap{Date: 0, Description: 1, Amount: 2, TransactionID: -1},
			header: true,
		},
		{
			name:   "case and whitespace",
			row:    []string{" Amount ", "PAYEE", "Posted_Date", "Transaction ID"},
			want:   ColumnMap{Date: 2, Description: 1, Amount: 0, TransactionID: 3},
			header: true,
		},
		{
			name:   "alias priority",
			row:    []string{"memo", "description", "transactiondate", "amount"},
			want:   ColumnMap{Date: 2, Description: 1, Amount: 3, TransactionID: -1},
			header: true,
		},
		{
			name: "missing amount",
			row:  []string{"date", "description", "balance"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DetectColumns(tt.row)
			assert.Equal(t, tt.header, ok)
			if tt.header {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestNormalizeRow_SkipReasons(t *testing.T) {
	columns := ColumnMap{Date: 0, Description: 1, Amount: 3, TransactionID: -1}

	tests := []struct {
		name string
		row  []string
		want SkipReason
	}{
		{name: "blank", row: []string{" ", "", "", ""}, want: SkipBlank},
		{name: "short", row: []string{"2024-01-01", "x", "y"}, want: SkipShort},
		{name: "empty description", row: []string{"2024-01-01", " ", "", "1"}, want: SkipMissingField},
		{name: "bad date", row: []string{"tomorrow", "x", "", "1"}, want: SkipBadDate},
		{name: "bad amount", row: []string{"2024-01-01", "x", "", "1.2.3"}, want: SkipBadAmount},
		{name: "ok", row: []string{"2024-01-01", "x", "", "1"}, want: SkipNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeRow(tt.row, columns).Skip)
		})
	}
}

func TestFilterRows_LogsSkips(t *testing.T) {
	logger := logging.NewMockLogger()
	rows := []RowResult{
		{Transaction: models.Transaction{TransactionID: "a"}},
		{Skip: SkipBadDate, Detail: "x"},
		{Transaction: models.Transaction{TransactionID: "b"}},
	}

	got := FilterRows(rows, logger)
	assert.Equal(t, []string{"a", "b"}, []string{got[0].TransactionID, got[1].TransactionID})
	assert.Len(t, logger.EntriesByLevel("DEBUG"), 1)
}
