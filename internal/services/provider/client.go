package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"FinGenius/internal/domain/models"
	"FinGenius/internal/domain/repository"
	xhttp "FinGenius/pkg/http"
	applogger "FinGenius/pkg/logger"
)

// Config for the aggregation provider API.
type Config struct {
	BaseURL    string
	ClientID   string
	Secret     string
	Timeout    time.Duration
	MaxRetries int
	PageSize   int
}

// Client talks JSON over HTTP to the bank-linking provider. Every failure is
// wrapped in models.ErrUpstreamProvider.
type Client struct {
	cfg     Config
	http    *xhttp.Client
	metrics repository.Metrics
	l       *applogger.Logger
	backoff time.Duration
}

func NewClient(cfg Config, metrics repository.Metrics, l *applogger.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 500
	}
	if l == nil {
		l = applogger.NewNop()
	}
	return &Client{
		cfg:     cfg,
		http:    xhttp.NewClient(xhttp.WithTimeout(cfg.Timeout)),
		metrics: metrics,
		l:       l.With(applogger.String("component", "provider")),
		backoff: 200 * time.Millisecond,
	}
}

type credentials struct {
	ClientID string `json:"client_id"`
	Secret   string `json:"secret"`
}

type exchangeRequest struct {
	credentials
	PublicToken string `json:"public_token"`
}

type exchangeResponse struct {
	AccessToken string `json:"access_token"`
	ItemID      string `json:"item_id"`
}

type syncRequest struct {
	credentials
	AccessToken string `json:"access_token"`
	Cursor      string `json:"cursor,omitempty"`
	Count       int    `json:"count"`
}

type wireTransaction struct {
	TransactionID string   `json:"transaction_id"`
	AccountID     string   `json:"account_id"`
	Name          string   `json:"name"`
	MerchantName  string   `json:"merchant_name"`
	Amount        float64  `json:"amount"`
	Date          string   `json:"date"`
	Category      []string `json:"category"`
	PFC           *struct {
		Primary string `json:"primary"`
	} `json:"personal_finance_category"`
}

type syncResponse struct {
	Added      []wireTransaction `json:"added"`
	NextCursor string            `json:"next_cursor"`
	HasMore    bool              `json:"has_more"`
}

type accountsRequest struct {
	credentials
	AccessToken string `json:"access_token"`
}

type wireAccount struct {
	AccountID string `json:"account_id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Balances  struct {
		Current   *float64 `json:"current"`
		Available *float64 `json:"available"`
		Currency  string   `json:"iso_currency_code"`
	} `json:"balances"`
}

type accountsResponse struct {
	Accounts []wireAccount `json:"accounts"`
}

func (c *Client) creds() credentials {
	return credentials{ClientID: c.cfg.ClientID, Secret: c.cfg.Secret}
}

// ExchangePublicToken trades a short-lived link token for a durable access token.
func (c *Client) ExchangePublicToken(ctx context.Context, publicToken string) (*models.TokenExchange, error) {
	var resp exchangeResponse
	if err := c.post(ctx, "exchange", "/item/public_token/exchange", exchangeRequest{c.creds(), publicToken}, &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("exchange returned no access token: %w", models.ErrUpstreamProvider)
	}
	return &models.TokenExchange{AccessToken: resp.AccessToken, ItemID: resp.ItemID}, nil
}

// SyncTransactions fetches one page of added transactions after cursor.
func (c *Client) SyncTransactions(ctx context.Context, accessToken, cursor string) (*models.SyncPage, error) {
	var resp syncResponse
	req := syncRequest{credentials: c.creds(), AccessToken: accessToken, Cursor: cursor, Count: c.cfg.PageSize}
	if err := c.post(ctx, "sync", "/transactions/sync", req, &resp); err != nil {
		return nil, err
	}

	page := &models.SyncPage{NextCursor: resp.NextCursor, HasMore: resp.HasMore, Added: make([]models.ProviderTransaction, 0, len(resp.Added))}
	for _, w := range resp.Added {
		pt := models.ProviderTransaction{
			TransactionID: w.TransactionID,
			AccountID:     w.AccountID,
			Name:          w.Name,
			Amount:        w.Amount,
			Date:          w.Date,
			Category:      w.Category,
		}
		if pt.Name == "" {
			pt.Name = w.MerchantName
		}
		if w.PFC != nil {
			pt.PFCPrimary = w.PFC.Primary
		}
		page.Added = append(page.Added, pt)
	}
	return page, nil
}

// GetAccounts returns the accounts and balances behind accessToken.
func (c *Client) GetAccounts(ctx context.Context, accessToken string) ([]models.ProviderAccount, error) {
	var resp accountsResponse
	if err := c.post(ctx, "accounts", "/accounts/balance/get", accountsRequest{c.creds(), accessToken}, &resp); err != nil {
		return nil, err
	}
	out := make([]models.ProviderAccount, 0, len(resp.Accounts))
	for _, w := range resp.Accounts {
		a := models.ProviderAccount{AccountID: w.AccountID, Name: w.Name, Type: w.Type, Currency: w.Balances.Currency}
		if w.Balances.Current != nil {
			a.Current = *w.Balances.Current
		}
		if w.Balances.Available != nil {
			a.Available = *w.Balances.Available
		} else {
			a.Available = a.Current
		}
		out = append(out, a)
	}
	return out, nil
}

// post retries transport errors and 429/5xx responses with linear backoff.
func (c *Client) post(ctx context.Context, op, path string, payload, dest interface{}) error {
	start := time.Now()
	var err error
retry:
	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		err = c.http.SendAndParse(ctx, &xhttp.RequestOptions{
			Method:  xhttp.MethodPost,
			URL:     c.cfg.BaseURL + path,
			Headers: map[string]string{"Content-Type": "application/json"},
			Body:    payload,
		}, dest)
		if err == nil || !retryable(err) || attempt == c.cfg.MaxRetries {
			break retry
		}
		c.l.Warn("provider call failed, retrying",
			applogger.String("operation", op),
			applogger.Int("attempt", attempt),
			applogger.Error(err),
		)
		select {
		case <-time.After(time.Duration(attempt) * c.backoff):
		case <-ctx.Done():
			err = ctx.Err()
			break retry
		}
	}

	if c.metrics != nil {
		c.metrics.RecordProviderCall(op, time.Since(start).Seconds(), err)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %v", models.ErrUpstreamProvider, op, err)
	}
	return nil
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *xhttp.StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return true
}

var _ repository.AggregationProvider = (*Client)(nil)
