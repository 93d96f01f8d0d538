package firefly

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"fjacquet/firefly-preimporter/internal/currencyutils"
	"fjacquet/firefly-preimporter/internal/models"
	"fjacquet/firefly-preimporter/internal/parsererror"
)

// Transaction types.
const (
	TypeWithdrawal = "withdrawal"
	TypeDeposit    = "deposit"
)

const (
	// DefaultDescription replaces a blank counterparty name.
	DefaultDescription = "Imported transaction"
	// MaxDescriptionLength is the longest counterparty name Firefly accepts.
	MaxDescriptionLength = 255

	batchTagLayout = "ff-preimporter 2006-01-02 @ 15:04"
)

// Split is one leg of a Firefly transaction group. Exactly one of the
// source or destination id is set, depending on the amount sign.
type Split struct {
	Type                 string   `json:"type"`
	Date                 string   `json:"date"`
	Amount               string   `json:"amount"`
	CurrencyCode         string   `json:"currency_code,omitempty"`
	Description          string   `json:"description"`
	ExternalID           string   `json:"external_id"`
	Notes                string   `json:"notes"`
	Tags                 []string `json:"tags"`
	ErrorIfDuplicateHash bool     `json:"error_if_duplicate_hash"`
	InternalReference    string   `json:"internal_reference"`
	SourceID             *int     `json:"source_id,omitempty"`
	SourceName           string   `json:"source_name,omitempty"`
	DestinationID        *int     `json:"destination_id,omitempty"`
	DestinationName      string   `json:"destination_name,omitempty"`
}

// Payload is the body of POST /transactions.
type Payload struct {
	GroupTitle           string  `json:"group_title"`
	ErrorIfDuplicateHash bool    `json:"error_if_duplicate_hash"`
	ApplyRules           bool    `json:"apply_rules"`
	FireWebhooks         bool    `json:"fire_webhooks"`
	Transactions         []Split `json:"transactions"`
}

// BatchTag is the tag shared by every transaction of one run.
func BatchTag(now time.Time) string {
	return now.Format(batchTagLayout)
}

// SanitizeDescription trims text, substitutes DefaultDescription when it is
// blank and truncates it to MaxDescriptionLength characters.
func SanitizeDescription(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return DefaultDescription
	}
	if utf8.RuneCountInString(text) > MaxDescriptionLength {
		text = string([]rune(text)[:MaxDescriptionLength])
	}
	return text
}

// PayloadBuilder accumulates Firefly splits from processing results. It
// performs no network calls.
type PayloadBuilder struct {
	Tag              string
	ErrorOnDuplicate bool
	ApplyRules       bool
	FireWebhooks     bool

	splits []Split
}

// NewPayloadBuilder returns a builder tagging every split with tag.
func NewPayloadBuilder(tag string, errorOnDuplicate bool) *PayloadBuilder {
	return &PayloadBuilder{
		Tag:              tag,
		ErrorOnDuplicate: errorOnDuplicate,
		ApplyRules:       true,
		FireWebhooks:     true,
	}
}

// AddResult converts every transaction of result into a split against
// accountID. Zero and unparsable amounts are dropped.
func (b *PayloadBuilder) AddResult(result *models.ProcessingResult, accountID, currencyCode string) error {
	if result == nil {
		return nil
	}
	id, err := strconv.Atoi(strings.TrimSpace(accountID))
	if err != nil {
		return &parsererror.InvalidAccountError{Value: accountID}
	}
	for _, txn := range result.Transactions {
		if split, ok := b.convert(txn, id, currencyCode); ok {
			b.splits = append(b.splits, split)
		}
	}
	return nil
}

func (b *PayloadBuilder) convert(txn models.Transaction, accountID int, currencyCode string) (Split, bool) {
	sign, amount, err := currencyutils.Sign(txn.Amount)
	if err != nil || sign == 0 {
		return Split{}, false
	}

	split := Split{
		Date:                 txn.Date,
		Amount:               currencyutils.FormatAmount(amount.Abs()),
		CurrencyCode:         currencyCode,
		Description:          txn.Description,
		ExternalID:           txn.TransactionID,
		Notes:                txn.Description,
		Tags:                 []string{b.Tag},
		ErrorIfDuplicateHash: b.ErrorOnDuplicate,
		InternalReference:    txn.TransactionID,
	}
	counterparty := SanitizeDescription(txn.Description)
	if sign < 0 {
		split.Type = TypeWithdrawal
		split.SourceID = &accountID
		split.DestinationName = counterparty
	} else {
		split.Type = TypeDeposit
		split.DestinationID = &accountID
		split.SourceName = counterparty
	}
	return split, true
}

// HasPayloads reports whether at least one split was accumulated.
func (b *PayloadBuilder) HasPayloads() bool {
	return len(b.splits) > 0
}

// Splits returns the accumulated splits.
func (b *PayloadBuilder) Splits() []Split {
	return append([]Split(nil), b.splits...)
}

// ToPayloads returns one payload per split, so a rejected duplicate never
// takes its siblings down with it.
func (b *PayloadBuilder) ToPayloads() []Payload {
	payloads := make([]Payload, 0, len(b.splits))
	for _, split := range b.splits {
		payloads = append(payloads, Payload{
			GroupTitle:           b.Tag,
			ErrorIfDuplicateHash: b.ErrorOnDuplicate,
			ApplyRules:           b.ApplyRules,
			FireWebhooks:         b.FireWebhooks,
			Transactions:         []Split{split},
		})
	}
	return payloads
}
