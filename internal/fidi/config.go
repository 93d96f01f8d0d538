// Package fidi builds and submits imports for the Firefly III Data Importer
// (FiDI) auto-upload endpoint.
package fidi

import (
	"strconv"
	"strings"

	"fjacquet/firefly-preimporter/internal/common"
	"fjacquet/firefly-preimporter/internal/config"
	"fjacquet/firefly-preimporter/internal/models"
	"fjacquet/firefly-preimporter/internal/parsererror"
)

// DefaultRoles is the FiDI role of each normalized CSV column.
var DefaultRoles = []string{"internal_reference", "date_transaction", "description", "amount"}

// BuildCSVPayload serializes transactions in the column order FiDI expects.
func BuildCSVPayload(transactions []models.Transaction) (string, error) {
	return common.MarshalTransactions(transactions)
}

// BuildJSONConfig returns the import configuration for one file: the
// baseline merged with the settings overrides, bound to accountID.
func BuildJSONConfig(settings *config.Settings, accountID string, allowDuplicates bool) (map[string]interface{}, error) {
	cfg := config.DefaultFidiJSONConfig()
	if settings != nil {
		for key, value := range settings.DefaultJSONConfig {
			cfg[key] = value
		}
	}

	// FiDI only accepts "file" for a local upload.
	cfg["flow"] = "file"

	if accountID = strings.TrimSpace(accountID); accountID != "" {
		id, err := strconv.Atoi(accountID)
		if err != nil {
			return nil, &parsererror.InvalidAccountError{Value: accountID}
		}
		cfg["default_account"] = id
	}

	roles := toStringSlice(cfg["roles"])
	if len(roles) == 0 {
		roles = append([]string(nil), DefaultRoles...)
	}
	cfg["roles"] = roles

	// FiDI rejects an empty array here; it must be an object.
	mapping, ok := cfg["mapping"].(map[string]interface{})
	if !ok {
		mapping = map[string]interface{}{}
	}
	cfg["mapping"] = mapping
	cfg["do_mapping"] = make([]bool, len(roles))

	if allowDuplicates {
		cfg["ignore_duplicate_lines"] = false
		cfg["ignore_duplicate_transactions"] = false
	}
	return cfg, nil
}

func toStringSlice(value interface{}) []string {
	switch v := value.(type) {
	case []string:
		return append([]string(nil), v...)
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
