package csvparser

import "strings"

// Column roles.
const (
	RoleDate          = "date"
	RoleDescription   = "description"
	RoleAmount        = "amount"
	RoleTransactionID = "transaction_id"
)

// RequiredRoles must all be present for a row to be taken as the header.
var RequiredRoles = []string{RoleDate, RoleDescription, RoleAmount}

// ColumnAliases lists the accepted header names per role, in priority order.
var ColumnAliases = map[string][]string{
	RoleDate: {
		"date",
		"posted date",
		"posted_date",
		"posteddate",
		"transaction date",
		"transaction_date",
		"transactiondate",
	},
	RoleDescription: {"description", "payee", "memo"},
	RoleAmount:      {"amount", "transaction amount"},
}

// OptionalAliases lists header names for roles that may be absent.
var OptionalAliases = map[string][]string{
	RoleTransactionID: {"transaction id", "transaction_id", "reference number", "reference", "reference_number"},
}

// ColumnMap gives the cell index of each detected role.
type ColumnMap struct {
	Date          int
	Description   int
	Amount        int
	TransactionID int // -1 when the file has no reference column
}

// width is the minimum row length that covers every required column.
func (m ColumnMap) width() int {
	w := m.Date
	if m.Description > w {
		w = m.Description
	}
	if m.Amount > w {
		w = m.Amount
	}
	return w + 1
}

// DetectColumns reports whether row is a header and, if so, where each role
// lives. Matching is case-insensitive on trimmed cells; the first alias of a
// role found in the row wins.
func DetectColumns(row []string) (ColumnMap, bool) {
	normalized := make([]string, len(row))
	for i, cell := range row {
		normalized[i] = strings.ToLower(strings.TrimSpace(cell))
	}

	indexes := make(map[string]int, len(RequiredRoles))
	for _, role := range RequiredRoles {
		idx := findAlias(normalized, ColumnAliases[role])
		if idx < 0 {
			return ColumnMap{}, false
		}
		indexes[role] = idx
	}

	return ColumnMap{
		Date:          indexes[RoleDate],
		Description:   indexes[RoleDescription],
		Amount:        indexes[RoleAmount],
		TransactionID: findAlias(normalized, OptionalAliases[RoleTransactionID]),
	}, true
}

func findAlias(cells []string, aliases []string) int {
	for _, alias := range aliases {
		for i, cell := range cells {
			if cell == alias {
				return i
			}
		}
	}
	return -1
}
