// Package firefly talks to the Firefly III REST API: asset account lookup,
// transaction submission and batch tagging.
package firefly

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Account is one Firefly III asset account.
type Account struct {
	ID         string            `json:"id"`
	Attributes AccountAttributes `json:"attributes"`
}

// AccountAttributes holds the account fields used for resolution, labels and
// currency lookup.
type AccountAttributes struct {
	Name               string `json:"name"`
	AccountNumber      string `json:"account_number"`
	CurrencyCode       string `json:"currency_code"`
	NativeCurrencyCode string `json:"native_currency_code"`
}

// UnmarshalJSON rejects entries without an id. Firefly sends ids as strings
// but numbers are accepted too.
func (a *Account) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID         flexibleID         `json:"id"`
		Attributes *AccountAttributes `json:"attributes"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.ID == "" {
		return fmt.Errorf("account entry has no id")
	}
	a.ID = string(raw.ID)
	a.Attributes = AccountAttributes{}
	if raw.Attributes != nil {
		a.Attributes = *raw.Attributes
	}
	return nil
}

// Label is "Name (#number)", or "Account <id>" when the account has no name.
func (a Account) Label() string {
	label := strings.TrimSpace(a.Attributes.Name)
	if label == "" {
		label = "Account " + a.ID
	}
	if number := strings.TrimSpace(a.Attributes.AccountNumber); number != "" {
		label = fmt.Sprintf("%s (#%s)", label, number)
	}
	return label
}

// Currency returns currency_code, falling back to native_currency_code.
func (a Account) Currency() string {
	if code := strings.TrimSpace(a.Attributes.CurrencyCode); code != "" {
		return code
	}
	return strings.TrimSpace(a.Attributes.NativeCurrencyCode)
}

// FindByID returns the account whose id equals id.
func FindByID(accounts []Account, id string) (Account, bool) {
	id = strings.TrimSpace(id)
	for _, acct := range accounts {
		if acct.ID == id {
			return acct, true
		}
	}
	return Account{}, false
}

// MatchAccountNumber returns the id of the account whose account_number
// equals number exactly, after trimming.
func MatchAccountNumber(accounts []Account, number string) (string, bool) {
	candidate := strings.TrimSpace(number)
	if candidate == "" {
		return "", false
	}
	for _, acct := range accounts {
		if n := strings.TrimSpace(acct.Attributes.AccountNumber); n != "" && n == candidate {
			return acct.ID, true
		}
	}
	return "", false
}

// CurrencyFor looks up the currency of account id in accounts.
func CurrencyFor(accounts []Account, id string) (string, error) {
	if acct, ok := FindByID(accounts, id); ok {
		if code := acct.Currency(); code != "" {
			return code, nil
		}
	}
	return "", fmt.Errorf("currency for account %s not found", id)
}

// flexibleID decodes a JSON string or number into its string form.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexibleID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid id %s: %w", string(data), err)
	}
	if _, err := strconv.ParseInt(n.String(), 10, 64); err != nil {
		return fmt.Errorf("invalid id %s: %w", n.String(), err)
	}
	*f = flexibleID(n.String())
	return nil
}
