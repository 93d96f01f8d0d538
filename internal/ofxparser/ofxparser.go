// Package ofxparser normalizes OFX and QFX statements.
package ofxparser

import (
	"bytes"
	"io"
	"regexp"
	"strings"
	"time"

	"fjacquet/firefly-preimporter/internal/common"
	"fjacquet/firefly-preimporter/internal/currencyutils"
	"fjacquet/firefly-preimporter/internal/dateutils"
	"fjacquet/firefly-preimporter/internal/logging"
	"fjacquet/firefly-preimporter/internal/models"
	"fjacquet/firefly-preimporter/internal/parser"
	"fjacquet/firefly-preimporter/internal/parsererror"

	"github.com/aclindsa/ofxgo"
)

// DefaultDescription replaces an empty name and memo.
const DefaultDescription = "Transaction"

// MissingFieldWarning is recorded for a transaction without date or amount.
const MissingFieldWarning = "Skipping transaction with missing date or amount."

// Record is one statement transaction as read from the file, before
// normalization.
type Record struct {
	AccountID string
	Posted    time.Time
	Amount    string
	Name      string
	Memo      string
	FITID     string
	// NoAmount marks a record whose TRNAMT element was absent; the decoder
	// reports those as zero.
	NoAmount bool
}

var (
	stmtTrnBlock = regexp.MustCompile(`(?is)<STMTTRN>(.*?)</STMTTRN>`)
	trnAmtValue  = regexp.MustCompile(`(?i)<TRNAMT>\s*[^<\s]`)
)

// Adapter is the OFX/QFX normalizer.
type Adapter struct {
	parser.BaseParser
}

// NewAdapter returns an OFX normalizer logging through logger.
func NewAdapter(logger logging.Logger) *Adapter {
	return &Adapter{BaseParser: parser.NewBaseParser(logger)}
}

// Process normalizes the OFX file of job.
func (a *Adapter) Process(job models.ProcessingJob) (*models.ProcessingResult, error) {
	a.GetLogger().Info("Parsing OFX file", logging.F(logging.FieldFile, job.SourcePath))
	return parser.ProcessFile(a, job)
}

// Parse reads an OFX document. A broken envelope is a ParseFailureError;
// individual transactions without date or amount become warnings.
func (a *Adapter) Parse(r io.Reader) (*models.ProcessingResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &parsererror.ParseFailureError{Format: models.FormatOFX.String(), Err: err}
	}

	// Decode only: records lacking FITID, DTPOSTED or TRNAMT are handled one
	// by one in Normalize.
	response, err := ofxgo.DecodeResponse(bytes.NewReader(data))
	if err != nil {
		return nil, &parsererror.ParseFailureError{Format: models.FormatOFX.String(), Err: err}
	}

	records := Extract(response)
	if !MarkMissingAmounts(records, data) {
		a.GetLogger().Debug("STMTTRN blocks do not line up with decoded transactions, amount presence not checked",
			logging.F(logging.FieldCount, len(records)))
	}

	result := Normalize(records)
	for _, warning := range result.Warnings {
		a.GetLogger().Warn(warning)
	}
	a.GetLogger().Info("Parsed OFX transactions",
		logging.F(logging.FieldCount, len(result.Transactions)),
		logging.F(logging.FieldAccountID, result.AccountID))
	return result, nil
}

// MarkMissingAmounts flags the records whose raw STMTTRN block has no
// TRNAMT value. Records follow document order, so the n-th block belongs to
// the n-th record; when the counts differ nothing is marked and false is
// returned.
func MarkMissingAmounts(records []Record, raw []byte) bool {
	blocks := stmtTrnBlock.FindAllSubmatch(raw, -1)
	if len(blocks) != len(records) {
		return false
	}
	for i, block := range blocks {
		if !trnAmtValue.Match(block[1]) {
			records[i].NoAmount = true
		}
	}
	return true
}

// Extract flattens the bank, credit card and investment statements of
// response in document order. Investment statements contribute their cash
// lines (INVBANKTRAN); security trades carry no STMTTRN and are ignored.
func Extract(response *ofxgo.Response) []Record {
	var records []Record
	for _, message := range response.Bank {
		if stmt, ok := message.(*ofxgo.StatementResponse); ok && stmt.BankTranList != nil {
			records = appendTransactions(records, stmt.BankAcctFrom.AcctID.String(), stmt.BankTranList.Transactions)
		}
	}
	for _, message := range response.CreditCard {
		if stmt, ok := message.(*ofxgo.CCStatementResponse); ok && stmt.BankTranList != nil {
			records = appendTransactions(records, stmt.CCAcctFrom.AcctID.String(), stmt.BankTranList.Transactions)
		}
	}
	for _, message := range response.InvStmt {
		stmt, ok := message.(*ofxgo.InvStatementResponse)
		if !ok || stmt.InvTranList == nil {
			continue
		}
		for _, bank := range stmt.InvTranList.BankTransactions {
			records = appendTransactions(records, stmt.InvAcctFrom.AcctID.String(), bank.Transactions)
		}
	}
	return records
}

func appendTransactions(records []Record, accountID string, transactions []ofxgo.Transaction) []Record {
	for i := range transactions {
		tran := &transactions[i]
		records = append(records, Record{
			AccountID: accountID,
			Posted:    tran.DtPosted.Time,
			Name:      tran.Name.String(),
			Memo:      tran.Memo.String(),
			FITID:     tran.FiTID.String(),
			Amount:    tran.TrnAmt.String(),
		})
	}
	return records
}

// Normalize converts records to canonical transactions. The account id is
// the first non-empty one seen.
func Normalize(records []Record) *models.ProcessingResult {
	result := &models.ProcessingResult{}
	for _, record := range records {
		if result.AccountID == "" {
			result.AccountID = strings.TrimSpace(record.AccountID)
		}

		description := strings.TrimSpace(record.Name)
		if description == "" {
			description = strings.TrimSpace(record.Memo)
		}
		if description == "" {
			description = DefaultDescription
		}

		if record.Posted.IsZero() || record.NoAmount || strings.TrimSpace(record.Amount) == "" {
			result.Warnings = append(result.Warnings, MissingFieldWarning)
			continue
		}

		date := dateutils.UTCDate(record.Posted)
		amount, err := currencyutils.NormalizeAmount(record.Amount)
		if err != nil {
			result.Warnings = append(result.Warnings, err.Error())
			continue
		}

		id := strings.TrimSpace(record.FITID)
		if id == "" {
			id = common.GenerateTransactionID(date, description, amount)
		}

		result.Transactions = append(result.Transactions, models.Transaction{
			TransactionID: id,
			Date:          date,
			Description:   description,
			Amount:        amount,
		})
	}
	return result
}
