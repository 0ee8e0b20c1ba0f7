package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client is the ledger service contract. Implementations are stateful: a
// connection is opened with Connect, bound to one ledger file with
// SelectLedger, and must be torn down with Disconnect. The session
// coordinator owns that lifecycle; everything else treats a Client as a live,
// ready handle.
type Client interface {
	Connect(ctx context.Context, serverURL, password string) error
	SelectLedger(ctx context.Context, syncID string) error

	ListAccounts(ctx context.Context) ([]Account, error)
	GetBalance(ctx context.Context, accountID string, asOf time.Time) (int64, error)
	ListTransactions(ctx context.Context, accountID string, from, to time.Time) ([]Transaction, error)
	ImportTransactions(ctx context.Context, accountID string, batch []Transaction) (*ImportResult, error)
	ListPayees(ctx context.Context) ([]Payee, error)
	ListCategories(ctx context.Context) ([]Category, error)
	GetBudgetMonth(ctx context.Context, month string) (*BudgetMonth, error)
	ListSchedules(ctx context.Context) ([]Schedule, error)
	ListRules(ctx context.Context) ([]Rule, error)

	Disconnect(ctx context.Context) error
}

const dateFormat = "2006-01-02"

// HTTPClient is the concrete Client over the ledger server's REST API.
type HTTPClient struct {
	httpClient *http.Client

	baseURL string
	token   string
	syncID  string
}

// NewHTTPClient creates an unconnected ledger client.
func NewHTTPClient() *HTTPClient {
	return &HTTPClient{
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Connect authenticates against the ledger server and stores the session
// token for subsequent calls.
func (c *HTTPClient) Connect(ctx context.Context, serverURL, password string) error {
	c.baseURL = serverURL

	body, err := json.Marshal(map[string]string{"password": password})
	if err != nil {
		return fmt.Errorf("Connect: marshal credentials: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, serverURL+"/api/v1/session", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("Connect: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("Connect: %w: %v", ErrConnectionRefused, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("Connect: %w", ErrUnauthorized)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("Connect: unexpected status %d", resp.StatusCode)
	}

	var payload struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("Connect: decode response: %w", err)
	}
	if payload.Data.Token == "" {
		return fmt.Errorf("Connect: server returned empty session token")
	}

	c.token = payload.Data.Token
	return nil
}

// SelectLedger binds the session to one ledger file by its sync id.
func (c *HTTPClient) SelectLedger(ctx context.Context, syncID string) error {
	endpoint := fmt.Sprintf("%s/api/v1/ledgers/%s/select", c.baseURL, url.PathEscape(syncID))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return fmt.Errorf("SelectLedger: build request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("SelectLedger: %w: %v", ErrConnectionRefused, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("SelectLedger: sync id %q: %w", syncID, ErrLedgerNotFound)
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("SelectLedger: %w", ErrUnauthorized)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("SelectLedger: unexpected status %d", resp.StatusCode)
	}

	c.syncID = syncID
	return nil
}

// Disconnect tears down the server-side session. Safe to call on a
// half-initialized client.
func (c *HTTPClient) Disconnect(ctx context.Context) error {
	if c.token == "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/api/v1/session", nil)
	if err != nil {
		return fmt.Errorf("Disconnect: build request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("Disconnect: %w", err)
	}
	defer resp.Body.Close()

	c.token = ""
	c.syncID = ""
	return nil
}

func (c *HTTPClient) ListAccounts(ctx context.Context) ([]Account, error) {
	var accounts []Account
	if err := c.get(ctx, "/api/v1/accounts", nil, &accounts); err != nil {
		return nil, fmt.Errorf("ListAccounts: %w", err)
	}
	return accounts, nil
}

func (c *HTTPClient) GetBalance(ctx context.Context, accountID string, asOf time.Time) (int64, error) {
	q := url.Values{}
	if !asOf.IsZero() {
		q.Set("as_of", asOf.Format(dateFormat))
	}

	var payload struct {
		Balance int64 `json:"balance"`
	}
	path := fmt.Sprintf("/api/v1/accounts/%s/balance", url.PathEscape(accountID))
	if err := c.get(ctx, path, q, &payload); err != nil {
		return 0, fmt.Errorf("GetBalance: %w", err)
	}
	return payload.Balance, nil
}

func (c *HTTPClient) ListTransactions(ctx context.Context, accountID string, from, to time.Time) ([]Transaction, error) {
	q := url.Values{}
	q.Set("from", from.Format(dateFormat))
	q.Set("to", to.Format(dateFormat))

	var txs []Transaction
	path := fmt.Sprintf("/api/v1/accounts/%s/transactions", url.PathEscape(accountID))
	if err := c.get(ctx, path, q, &txs); err != nil {
		return nil, fmt.Errorf("ListTransactions: %w", err)
	}
	return txs, nil
}

// ImportTransactions submits a batch to the ledger's idempotent import. The
// server deduplicates on external id; re-submitting an already-imported
// transaction yields an update (or nothing), never a second entry.
func (c *HTTPClient) ImportTransactions(ctx context.Context, accountID string, batch []Transaction) (*ImportResult, error) {
	body, err := json.Marshal(map[string]any{"transactions": batch})
	if err != nil {
		return nil, fmt.Errorf("ImportTransactions: marshal batch: %w", err)
	}

	endpoint := fmt.Sprintf("%s/api/v1/accounts/%s/transactions/import", c.baseURL, url.PathEscape(accountID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ImportTransactions: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ImportTransactions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("ImportTransactions: unexpected status %d: %s", resp.StatusCode, raw)
	}

	var payload struct {
		Data ImportResult `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("ImportTransactions: decode response: %w", err)
	}
	return &payload.Data, nil
}

func (c *HTTPClient) ListPayees(ctx context.Context) ([]Payee, error) {
	var payees []Payee
	if err := c.get(ctx, "/api/v1/payees", nil, &payees); err != nil {
		return nil, fmt.Errorf("ListPayees: %w", err)
	}
	return payees, nil
}

func (c *HTTPClient) ListCategories(ctx context.Context) ([]Category, error) {
	var categories []Category
	if err := c.get(ctx, "/api/v1/categories", nil, &categories); err != nil {
		return nil, fmt.Errorf("ListCategories: %w", err)
	}
	return categories, nil
}

func (c *HTTPClient) GetBudgetMonth(ctx context.Context, month string) (*BudgetMonth, error) {
	var bm BudgetMonth
	path := fmt.Sprintf("/api/v1/months/%s", url.PathEscape(month))
	if err := c.get(ctx, path, nil, &bm); err != nil {
		return nil, fmt.Errorf("GetBudgetMonth: %w", err)
	}
	return &bm, nil
}

func (c *HTTPClient) ListSchedules(ctx context.Context) ([]Schedule, error) {
	var schedules []Schedule
	if err := c.get(ctx, "/api/v1/schedules", nil, &schedules); err != nil {
		return nil, fmt.Errorf("ListSchedules: %w", err)
	}
	return schedules, nil
}

func (c *HTTPClient) ListRules(ctx context.Context) ([]Rule, error) {
	var rules []Rule
	if err := c.get(ctx, "/api/v1/rules", nil, &rules); err != nil {
		return nil, fmt.Errorf("ListRules: %w", err)
	}
	return rules, nil
}

// get performs an authorized GET and decodes the {"data": ...} envelope into
// out.
func (c *HTTPClient) get(ctx context.Context, path string, q url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s: not found", path)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

func (c *HTTPClient) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	if c.syncID != "" {
		req.Header.Set("X-Ledger-Sync-Id", c.syncID)
	}
}

var _ Client = (*HTTPClient)(nil)
