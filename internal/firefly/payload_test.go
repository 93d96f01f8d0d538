package firefly

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"fjacquet/firefly-preimporter/internal/models"
	"fjacquet/firefly-preimporter/internal/parsererror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resultWith(amounts ...string) *models.ProcessingResult {
	result := &models.ProcessingResult{
		Job: models.ProcessingJob{SourcePath: "input.csv", SourceFormat: models.FormatCSV},
	}
	for _, amount := range amounts {
		result.Transactions = append(result.Transactions, models.Transaction{
			TransactionID: "abc",
			Date:          "2025-12-05",
			Description:   "Sample",
			Amount:        amount,
		})
	}
	return result
}

func TestPayloadBuilder_Withdrawal(t *testing.T) {
	builder := NewPayloadBuilder("batch-tag", true)
	require.NoError(t, builder.AddResult(resultWith("-10.00"), "42", "USD"))

	payloads := builder.ToPayloads()
	require.Len(t, payloads, 1)
	payload := payloads[0]
	assert.Equal(t, "batch-tag", payload.GroupTitle)
	assert.True(t, payload.ErrorIfDuplicateHash)
	assert.True(t, payload.ApplyRules)
	assert.True(t, payload.FireWebhooks)

	split := payload.Transactions[0]
	assert.Equal(t, TypeWithdrawal, split.Type)
	assert.Equal(t, "10.00", split.Amount)
	require.NotNil(t, split.SourceID)
	assert.Equal(t, 42, *split.SourceID)
	assert.Nil(t, split.DestinationID)
	assert.Equal(t, "Sample", split.DestinationName)
	assert.Empty(t, split.SourceName)
	assert.Equal(t, "USD", split.CurrencyCode)
	assert.Equal(t, []string{"batch-tag"}, split.Tags)
	assert.Equal(t, "abc", split.InternalReference)
	assert.Equal(t, "abc", split.ExternalID)
	assert.Equal(t, "Sample", split.Notes)
}

func TestPayloadBuilder_Deposit(t *testing.T) {
	builder := NewPayloadBuilder("batch-tag", false)
	require.NoError(t, builder.AddResult(resultWith("15.5"), "42", "USD"))

	split := builder.ToPayloads()[0].Transactions[0]
	assert.Equal(t, TypeDeposit, split.Type)
	assert.Equal(t, "15.50", split.Amount)
	require.NotNil(t, split.DestinationID)
	assert.Equal(t, 42, *split.DestinationID)
	assert.Nil(t, split.SourceID)
	assert.Equal(t, "Sample", split.SourceName)
	assert.False(t, split.ErrorIfDuplicateHash)
}

func TestPayloadBuilder_SignDeterminesType(t *testing.T) {
	builder := NewPayloadBuilder("t", true)
	require.NoError(t, builder.AddResult(resultWith("-0.01", "0.00", "0", "3", "not-a-number", "-1234.56"), "1", "CHF"))

	var types []string
	for _, split := range builder.Splits() {
		types = append(types, split.Type)
	}
	assert.Equal(t, []string{TypeWithdrawal, TypeDeposit, TypeWithdrawal}, types)
	assert.Len(t, builder.ToPayloads(), 3)
}

func TestPayloadBuilder_ZeroOnly(t *testing.T) {
	builder := NewPayloadBuilder("t", true)
	require.NoError(t, builder.AddResult(resultWith("0.00"), "1", "CHF"))
	assert.False(t, builder.HasPayloads())
	assert.Empty(t, builder.ToPayloads())
}

func TestPayloadBuilder_InvalidAccount(t *testing.T) {
	builder := NewPayloadBuilder("t", true)
	err := builder.AddResult(resultWith("1.00"), "CH93", "CHF")

	var invalid *parsererror.InvalidAccountError
	require.True(t, errors.As(err, &invalid))
	assert.False(t, builder.HasPayloads())
}

func TestPayload_JSONShape(t *testing.T) {
	builder := NewPayloadBuilder("t", true)
	require.NoError(t, builder.AddResult(resultWith("-2.00"), "5", "EUR"))

	data, err := json.Marshal(builder.ToPayloads()[0])
	require.NoError(t, err)
	body := string(data)
	assert.Contains(t, body, `"source_id":5`)
	assert.Contains(t, body, `"destination_name":"Sample"`)
	assert.NotContains(t, body, "destination_id")
	assert.NotContains(t, body, "source_name")
}

func TestSanitizeDescription(t *testing.T) {
	assert.Equal(t, "Coffee", SanitizeDescription("  Coffee "))
	assert.Equal(t, DefaultDescription, SanitizeDescription("   "))
	long := strings.Repeat("é", 300)
	assert.Equal(t, MaxDescriptionLength, len([]rune(SanitizeDescription(long))))
}

func TestBatchTag(t *testing.T) {
	now := time.Date(2025, time.March, 4, 9, 7, 0, 0, time.Local)
	assert.Equal(t, "ff-preimporter 2025-03-04 @ 09:07", BatchTag(now))
}
