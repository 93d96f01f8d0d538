package firefly

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"fjacquet/firefly-preimporter/internal/logging"
	"fjacquet/firefly-preimporter/internal/parsererror"
)

const (
	accountsPageSize = "50"
	uploadTarget     = "Firefly III"
)

// UploadedGroup is a transaction group created by a successful submission,
// with the tags currently held by each of its journals.
type UploadedGroup struct {
	GroupID  int
	Journals map[string][]string
}

// JournalIDs returns the journal ids of the group in ascending order.
func (g UploadedGroup) JournalIDs() []string {
	ids := make([]string, 0, len(g.Journals))
	for id := range g.Journals {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, errA := strconv.Atoi(ids[i])
		b, errB := strconv.Atoi(ids[j])
		if errA == nil && errB == nil {
			return a < b
		}
		return ids[i] < ids[j]
	})
	return ids
}

// API is the subset of the Firefly III API used for uploads.
type API interface {
	SubmitTransaction(ctx context.Context, payload Payload) (*UploadedGroup, error)
	EnsureTag(ctx context.Context, tag string) error
	UpdateJournalTags(ctx context.Context, groupID int, journals map[string][]string) error
}

// Client is a Firefly III API client authenticated with a personal access
// token.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     logging.Logger
}

// NewClient returns a Client for the API rooted at baseURL
// (e.g. https://firefly.example/api/v1).
func NewClient(baseURL, token string, httpClient *http.Client, logger logging.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = logging.NewLogrusAdapter("info", "text")
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: httpClient,
		logger:     logger,
	}
}

type accountsResponse struct {
	Data  []Account `json:"data"`
	Links struct {
		Next *string `json:"next"`
	} `json:"links"`
}

// FetchAssetAccounts returns every asset account, following pagination
// links. An empty list is a NoAccountsError.
func (c *Client) FetchAssetAccounts(ctx context.Context) ([]Account, error) {
	query := url.Values{}
	query.Set("type", "asset")
	query.Set("limit", accountsPageSize)
	query.Set("page", "1")
	next := c.baseURL + "/accounts?" + query.Encode()

	var accounts []Account
	for next != "" {
		var page accountsResponse
		if err := c.doJSON(ctx, http.MethodGet, next, nil, &page); err != nil {
			return nil, err
		}
		accounts = append(accounts, page.Data...)

		next = ""
		if page.Links.Next != nil {
			next = strings.TrimSpace(*page.Links.Next)
		}
	}

	if len(accounts) == 0 {
		return nil, &parsererror.NoAccountsError{URL: c.baseURL + "/accounts"}
	}
	c.logger.Debug("Fetched asset accounts", logging.F(logging.FieldCount, len(accounts)))
	return accounts, nil
}

type transactionResponse struct {
	Data *struct {
		ID         flexibleID `json:"id"`
		Attributes struct {
			Transactions []struct {
				JournalID flexibleID `json:"transaction_journal_id"`
				Tags      []string   `json:"tags"`
			} `json:"transactions"`
		} `json:"attributes"`
	} `json:"data"`
}

// SubmitTransaction posts one payload. A non-2xx answer is an UploadError;
// use parsererror.IsDuplicate to tell a rejected duplicate apart.
func (c *Client) SubmitTransaction(ctx context.Context, payload Payload) (*UploadedGroup, error) {
	var resp transactionResponse
	if err := c.doJSON(ctx, http.MethodPost, c.baseURL+"/transactions", payload, &resp); err != nil {
		return nil, err
	}
	return decodeGroup(resp)
}

func decodeGroup(resp transactionResponse) (*UploadedGroup, error) {
	if resp.Data == nil || resp.Data.ID == "" {
		return nil, fmt.Errorf("invalid transaction response: missing group id")
	}
	groupID, err := strconv.Atoi(string(resp.Data.ID))
	if err != nil {
		return nil, fmt.Errorf("invalid transaction response: group id %q: %w", resp.Data.ID, err)
	}

	group := &UploadedGroup{GroupID: groupID, Journals: make(map[string][]string)}
	for _, split := range resp.Data.Attributes.Transactions {
		if split.JournalID == "" {
			return nil, fmt.Errorf("invalid transaction response: group %d has a split without journal id", groupID)
		}
		tags := split.Tags
		if tags == nil {
			tags = []string{}
		}
		group.Journals[string(split.JournalID)] = tags
	}
	return group, nil
}

// EnsureTag creates tag. A 422 answer means the tag already exists and is
// not an error.
func (c *Client) EnsureTag(ctx context.Context, tag string) error {
	err := c.doJSON(ctx, http.MethodPost, c.baseURL+"/tags", map[string]string{"tag": tag}, nil)
	var upErr *parsererror.UploadError
	if err != nil && errors.As(err, &upErr) && upErr.StatusCode == http.StatusUnprocessableEntity {
		c.logger.Debug("Tag already exists", logging.F(logging.FieldTag, tag))
		return nil
	}
	return err
}

type journalTagUpdate struct {
	JournalID string   `json:"transaction_journal_id"`
	Tags      []string `json:"tags"`
}

type groupTagUpdate struct {
	ApplyRules   bool               `json:"apply_rules"`
	FireWebhooks bool               `json:"fire_webhooks"`
	Transactions []journalTagUpdate `json:"transactions"`
}

// UpdateJournalTags replaces the tags of each journal of a group.
// Rules and webhooks are not re-run.
func (c *Client) UpdateJournalTags(ctx context.Context, groupID int, journals map[string][]string) error {
	ids := UploadedGroup{Journals: journals}.JournalIDs()
	update := groupTagUpdate{Transactions: make([]journalTagUpdate, 0, len(ids))}
	for _, id := range ids {
		update.Transactions = append(update.Transactions, journalTagUpdate{JournalID: id, Tags: journals[id]})
	}
	endpoint := fmt.Sprintf("%s/transactions/%d", c.baseURL, groupID)
	return c.doJSON(ctx, http.MethodPut, endpoint, update, nil)
}

// doJSON sends body as JSON and decodes a 2xx answer into out when out is
// not nil.
func (c *Client) doJSON(ctx context.Context, method, endpoint string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("Calling Firefly API",
		logging.F("method", method),
		logging.F(logging.FieldURL, endpoint))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &parsererror.UploadError{Target: uploadTarget, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &parsererror.UploadError{Target: uploadTarget, StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &parsererror.UploadError{Target: uploadTarget, StatusCode: resp.StatusCode, Body: string(data)}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", endpoint, err)
	}
	return nil
}
