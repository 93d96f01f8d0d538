package importer

import (
	"context"
	"fmt"
	"strings"

	"fjacquet/firefly-preimporter/internal/firefly"
	"fjacquet/firefly-preimporter/internal/logging"
	"fjacquet/firefly-preimporter/internal/models"
	"fjacquet/firefly-preimporter/internal/validation"
)

// AccountLister fetches the ledger's asset accounts.
type AccountLister interface {
	FetchAssetAccounts(ctx context.Context) ([]firefly.Account, error)
}

// AccountResolver picks the ledger account of each statement. The account
// list is fetched at most once per run, and an account chosen interactively
// is reused for later statements that carry no account of their own.
type AccountResolver struct {
	lister         AccountLister
	defaultAccount string
	prompter       *Prompter
	logger         logging.Logger

	accounts []firefly.Account
	fetched  bool
	chosen   string
}

// NewAccountResolver returns a resolver. A nil lister keeps resolution
// offline: account numbers are not matched and currencies are unknown.
// defaultAccount is the operator-supplied fallback (--account-id).
func NewAccountResolver(lister AccountLister, defaultAccount string, prompter *Prompter, logger logging.Logger) *AccountResolver {
	if logger == nil {
		logger = logging.NewLogrusAdapter("info", "text")
	}
	return &AccountResolver{
		lister:         lister,
		defaultAccount: strings.TrimSpace(defaultAccount),
		prompter:       prompter,
		logger:         logger,
	}
}

// Online reports whether the resolver may query the ledger.
func (r *AccountResolver) Online() bool {
	return r.lister != nil
}

// Accounts returns the cached account list, fetching it on first use.
func (r *AccountResolver) Accounts(ctx context.Context) ([]firefly.Account, error) {
	if r.lister == nil {
		return nil, nil
	}
	if !r.fetched {
		accounts, err := r.lister.FetchAssetAccounts(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch asset accounts: %w", err)
		}
		r.accounts = accounts
		r.fetched = true
	}
	return r.accounts, nil
}

// Resolve returns the account id for result. The statement's own account
// wins, then the default account, then a previous interactive answer. Only
// when required is the operator prompted; an empty id means unresolved.
func (r *AccountResolver) Resolve(ctx context.Context, result *models.ProcessingResult, required bool) (string, error) {
	if embedded := strings.TrimSpace(result.AccountID); embedded != "" {
		return r.resolveCandidate(ctx, embedded, required)
	}
	if r.defaultAccount != "" {
		return r.resolveCandidate(ctx, r.defaultAccount, required)
	}
	if !required {
		return "", nil
	}
	if r.chosen != "" {
		r.logger.Debug("Reusing selected account", logging.F(logging.FieldAccountID, r.chosen))
		return r.chosen, nil
	}
	if r.prompter == nil {
		return "", fmt.Errorf("no account id for %s; pass --account-id", result.Job.Name())
	}

	accounts, err := r.Accounts(ctx)
	if err != nil {
		return "", err
	}
	id, err := r.prompter.ChooseAccount(result, accounts)
	if err != nil {
		return "", err
	}
	r.chosen = id
	return id, nil
}

// resolveCandidate maps an account number to a ledger id when it is not
// already numeric. Unmatched candidates are returned unchanged.
func (r *AccountResolver) resolveCandidate(ctx context.Context, candidate string, required bool) (string, error) {
	if validation.IsNumericID(candidate) || !required || r.lister == nil {
		return candidate, nil
	}
	accounts, err := r.Accounts(ctx)
	if err != nil {
		return "", err
	}
	if id, ok := firefly.MatchAccountNumber(accounts, candidate); ok {
		r.logger.Debug("Matched account number",
			logging.F("account_number", candidate),
			logging.F(logging.FieldAccountID, id))
		return id, nil
	}
	return candidate, nil
}

// Currency returns the currency of account id. Offline it is empty and the
// ledger applies the account's own currency.
func (r *AccountResolver) Currency(ctx context.Context, id string) (string, error) {
	if r.lister == nil {
		return "", nil
	}
	accounts, err := r.Accounts(ctx)
	if err != nil {
		return "", err
	}
	return firefly.CurrencyFor(accounts, id)
}
