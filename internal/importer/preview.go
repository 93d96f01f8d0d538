package importer

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"fjacquet/firefly-preimporter/internal/models"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

const (
	previewLimit         = 3
	previewIndent        = "  "
	previewSeparator     = " | "
	defaultTerminalWidth = 120
	previewMinWidth      = 4
)

// Column order of the preview table.
const (
	colDate = iota
	colTxID
	colDesc
	colAmount
	numPreviewColumns
)

var previewHeaders = [numPreviewColumns]string{"Date", "Transaction ID", "Description", "Amount"}

// Columns give up width in this order when the table is too wide.
var previewShrinkOrder = []int{colDesc, colTxID, colDate, colAmount}

// TerminalWidth returns the width of stdout, or 120 when it is not a
// terminal.
func TerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return defaultTerminalWidth
	}
	return width
}

// truncateField cuts value to width characters, ending with "..." when
// there is room for it.
func truncateField(value string, width int) string {
	if width <= 0 {
		return ""
	}
	r := []rune(value)
	if len(r) <= width {
		return value
	}
	if width <= 3 {
		return string(r[:width])
	}
	return string(r[:width-3]) + "..."
}

// fitPreviewWidths shrinks widths until their sum fits maxTotal. Columns
// first shrink down to 4 characters, then down to 1.
func fitPreviewWidths(widths [numPreviewColumns]int, maxTotal int) [numPreviewColumns]int {
	overflow := -maxTotal
	for _, w := range widths {
		overflow += w
	}
	for _, floor := range []int{previewMinWidth, 1} {
		for _, col := range previewShrinkOrder {
			if overflow <= 0 {
				return widths
			}
			if widths[col] > floor {
				reduction := widths[col] - floor
				if reduction > overflow {
					reduction = overflow
				}
				widths[col] -= reduction
				overflow -= reduction
			}
		}
	}
	return widths
}

// previewRows returns the most recent transactions, newest first.
func previewRows(transactions []models.Transaction, limit int) []models.Transaction {
	sorted := append([]models.Transaction(nil), transactions...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date < sorted[j].Date })
	if len(sorted) > limit {
		sorted = sorted[len(sorted)-limit:]
	}
	for i, j := 0, len(sorted)-1; i < j; i, j = i+1, j-1 {
		sorted[i], sorted[j] = sorted[j], sorted[i]
	}
	return sorted
}

// WritePreview prints the three most recent transactions of result as a
// table fitted to terminalWidth.
func WritePreview(w io.Writer, result *models.ProcessingResult, terminalWidth int) {
	if !result.HasTransactions() {
		_, _ = fmt.Fprintln(w, "No transactions available for preview.")
		return
	}

	rows := previewRows(result.Transactions, previewLimit)
	cells := make([][numPreviewColumns]string, 0, len(rows))
	for _, txn := range rows {
		cells = append(cells, [numPreviewColumns]string{txn.Date, txn.TransactionID, txn.Description, txn.Amount})
	}

	var widths [numPreviewColumns]int
	for col, header := range previewHeaders {
		widths[col] = lipgloss.Width(header)
		for _, row := range cells {
			if rw := lipgloss.Width(row[col]); rw > widths[col] {
				widths[col] = rw
			}
		}
	}
	maxPayload := terminalWidth - len(previewIndent) - len(previewSeparator)*(numPreviewColumns-1)
	if maxPayload < 0 {
		maxPayload = 0
	}
	widths = fitPreviewWidths(widths, maxPayload)

	_, _ = fmt.Fprintln(w, "Previewing first transactions:")
	_, _ = fmt.Fprintln(w, renderPreviewLine(previewHeaders, widths, terminalWidth))
	for _, row := range cells {
		_, _ = fmt.Fprintln(w, renderPreviewLine(row, widths, terminalWidth))
	}
}

func renderPreviewLine(values [numPreviewColumns]string, widths [numPreviewColumns]int, terminalWidth int) string {
	parts := make([]string, numPreviewColumns)
	for col, value := range values {
		align := lipgloss.Left
		if col == colAmount {
			align = lipgloss.Right
		}
		style := lipgloss.NewStyle().Width(widths[col]).Align(align)
		parts[col] = style.Render(truncateField(value, widths[col]))
	}
	line := previewIndent + strings.Join(parts, previewSeparator)
	if terminalWidth > 0 {
		if r := []rune(line); len(r) > terminalWidth {
			line = string(r[:terminalWidth])
		}
	}
	return line
}
