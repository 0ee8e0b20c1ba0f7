package openbanking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"ledgerlink/internal/logger"
)

// ErrSessionExpired marks a provider response that means the authorized
// session is no longer valid and the tenant must re-authorize. Callers are
// expected to surface it distinctly, never retry it silently.
var ErrSessionExpired = errors.New("openbanking: session expired or unauthorized")

// Client is the Open Banking collaborator contract consumed by the
// reconciliation pipeline.
type Client interface {
	// ListTransactions returns every transaction for the account between from
	// and to inclusive, following provider continuation tokens until the feed
	// is exhausted.
	ListTransactions(ctx context.Context, accountRef string, from, to time.Time) ([]RawTransaction, error)
}

// HTTPClient talks to the provider's REST API with a bearer token obtained by
// the (out of scope) authorization flow.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewHTTPClient creates a provider client for the given base URL and access
// token.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

const dateFormat = "2006-01-02"

// ListTransactions implements Client. The provider pages the feed with an
// opaque continuation token; the loop terminates when no token is returned.
func (c *HTTPClient) ListTransactions(ctx context.Context, accountRef string, from, to time.Time) ([]RawTransaction, error) {
	log := logger.FromContext(ctx)

	var all []RawTransaction
	var token string
	page := 0

	for {
		resp, err := c.fetchPage(ctx, accountRef, from, to, token)
		if err != nil {
			return nil, err
		}

		all = append(all, resp.Transactions...)
		page++

		log.Debug().
			Int("page", page).
			Int("page_size", len(resp.Transactions)).
			Int("total", len(all)).
			Msg("Fetched provider transaction page")

		if resp.ContinuationToken == "" {
			break
		}
		token = resp.ContinuationToken
	}

	return all, nil
}

func (c *HTTPClient) fetchPage(ctx context.Context, accountRef string, from, to time.Time, token string) (*transactionsPage, error) {
	endpoint := fmt.Sprintf("%s/api/v2/accounts/%s/transactions", c.baseURL, url.PathEscape(accountRef))

	q := url.Values{}
	q.Set("date_from", from.Format(dateFormat))
	q.Set("date_to", to.Format(dateFormat))
	if token != "" {
		q.Set("continuation_token", token)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("fetchPage: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetchPage: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("fetchPage: status %d: %w", resp.StatusCode, ErrSessionExpired)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("fetchPage: unexpected status %d: %s", resp.StatusCode, body)
	}

	var pageResp transactionsPage
	if err := json.NewDecoder(resp.Body).Decode(&pageResp); err != nil {
		return nil, fmt.Errorf("fetchPage: decode response: %w", err)
	}

	return &pageResp, nil
}

var _ Client = (*HTTPClient)(nil)
