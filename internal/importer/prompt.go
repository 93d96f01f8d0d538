package importer

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"fjacquet/firefly-preimporter/internal/firefly"
	"fjacquet/firefly-preimporter/internal/models"
	"fjacquet/firefly-preimporter/internal/parsererror"
	"fjacquet/firefly-preimporter/internal/validation"
)

// ErrNoSelection is returned when input ends before an account is chosen.
var ErrNoSelection = errors.New("no account selected")

// Prompter asks the operator which ledger account a statement belongs to.
// Reads block without timeout.
type Prompter struct {
	in     *bufio.Reader
	out    io.Writer
	errOut io.Writer
	width  func() int
}

// NewPrompter returns a Prompter reading answers from in. width reports the
// terminal width for previews; nil means TerminalWidth.
func NewPrompter(in io.Reader, out, errOut io.Writer, width func() int) *Prompter {
	if width == nil {
		width = TerminalWidth
	}
	return &Prompter{in: bufio.NewReader(in), out: out, errOut: errOut, width: width}
}

// ChooseAccount lists accounts and reads a selection: a 1-based index or an
// account id. "p" previews the statement and "s" skips it with
// parsererror.ErrUserSkip. With an empty account list any numeric id is
// accepted as is.
func (p *Prompter) ChooseAccount(result *models.ProcessingResult, accounts []firefly.Account) (string, error) {
	_, _ = fmt.Fprintln(p.out, "Available asset accounts:")
	for idx, acct := range accounts {
		_, _ = fmt.Fprintf(p.out, "  [%d] %s\n", idx+1, acct.Label())
	}

	prompt := fmt.Sprintf(`Select account for %s (number/id, "p" to preview, "s" to skip): `, result.Job.Name())
	for {
		_, _ = fmt.Fprint(p.out, prompt)
		line, err := p.in.ReadString('\n')
		answer := strings.TrimSpace(line)
		if answer == "" {
			if err != nil {
				_, _ = fmt.Fprintln(p.out)
				return "", ErrNoSelection
			}
			continue
		}

		switch strings.ToLower(answer) {
		case "p", "preview":
			WritePreview(p.out, result, p.width())
			continue
		case "s", "skip":
			return "", parsererror.ErrUserSkip
		}

		if id, label, ok := selectAccount(answer, accounts); ok {
			_, _ = fmt.Fprintf(p.out, "Selected: %s\n", label)
			return id, nil
		}
		_, _ = fmt.Fprintln(p.errOut, "Invalid selection, try again.")
		if err != nil {
			return "", ErrNoSelection
		}
	}
}

func selectAccount(answer string, accounts []firefly.Account) (id, label string, ok bool) {
	if validation.IsNumericID(answer) {
		if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(accounts) {
			acct := accounts[n-1]
			return acct.ID, acct.Label(), true
		}
	}
	if acct, found := firefly.FindByID(accounts, answer); found {
		return acct.ID, acct.Label(), true
	}
	if len(accounts) == 0 && validation.IsNumericID(answer) {
		return answer, "Account " + answer, true
	}
	return "", "", false
}
