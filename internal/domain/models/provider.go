package models

import "time"

// ProviderTransaction is a raw row as returned by the aggregation provider.
type ProviderTransaction struct {
	TransactionID string   `json:"transaction_id"`
	AccountID     string   `json:"account_id"`
	Name          string   `json:"name"`
	Amount        float64  `json:"amount"`
	Date          string   `json:"date"`
	Category      []string `json:"category,omitempty"`
	PFCPrimary    string   `json:"pfc_primary,omitempty"`
}

type ProviderAccount struct {
	AccountID string  `json:"account_id"`
	Name      string  `json:"name"`
	Type      string  `json:"type"`
	Currency  string  `json:"iso_currency_code"`
	Current   float64 `json:"current"`
	Available float64 `json:"available"`
}

type SyncPage struct {
	Added      []ProviderTransaction
	NextCursor string
	HasMore    bool
}

type TokenExchange struct {
	AccessToken string
	ItemID      string
}

type Webhook struct {
	WebhookType string `json:"webhook_type"`
	WebhookCode string `json:"webhook_code"`
	ItemID      string `json:"item_id"`
}

type SyncReport struct {
	UserID   string
	Accounts int
	Added    int
	Failed   int
	Duration time.Duration
}
