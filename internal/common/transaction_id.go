// Package common holds helpers shared by both normalizers and the auto-import
// builder.
package common

import (
	"crypto/sha256"
	"encoding/hex"
)

// TransactionIDLength is the number of hex characters kept from the digest
// (60 bits). Collisions become likely around 2^30 transactions.
const TransactionIDLength = 15

// GenerateTransactionID derives a stable identifier from the canonical
// date, description and amount, so re-importing a file yields the same ids.
func GenerateTransactionID(date, description, amount string) string {
	sum := sha256.Sum256([]byte(date + description + amount))
	return hex.EncodeToString(sum[:])[:TransactionIDLength]
}
