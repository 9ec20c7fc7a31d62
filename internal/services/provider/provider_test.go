package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"FinGenius/internal/domain/models"
)

func newTestClient(url string) *Client {
	c := NewClient(Config{BaseURL: url, ClientID: "cid", Secret: "sec", MaxRetries: 3}, nil, nil)
	c.backoff = time.Millisecond
	return c
}

func TestSyncTransactionsRetriesTransientFailures(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		var req syncRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.ClientID != "cid" || req.AccessToken != "access-1" || req.Cursor != "c0" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{
			"added": [
				{"transaction_id": "t1", "account_id": "a1", "name": "", "merchant_name": "Starbucks",
				 "amount": 4.5, "date": "2024-03-02", "personal_finance_category": {"primary": "FOOD_AND_DRINK"}}
			],
			"next_cursor": "c1",
			"has_more": true
		}`))
	}))
	defer srv.Close()

	page, err := newTestClient(srv.URL).SyncTransactions(context.Background(), "access-1", "c0")
	if err != nil {
		t.Fatal(err)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
	if page.NextCursor != "c1" || !page.HasMore || len(page.Added) != 1 {
		t.Fatalf("unexpected page %+v", page)
	}
	got := page.Added[0]
	if got.Name != "Starbucks" || got.PFCPrimary != "FOOD_AND_DRINK" {
		t.Errorf("unexpected transaction %+v", got)
	}
}

func TestProviderErrorsWrapUpstream(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error_code":"INVALID_PUBLIC_TOKEN"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).ExchangePublicToken(context.Background(), "public-bad")
	if !errors.Is(err, models.ErrUpstreamProvider) {
		t.Fatalf("expected ErrUpstreamProvider, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("client errors must not be retried, got %d calls", calls)
	}
}

func TestGetAccountsDefaultsAvailableToCurrent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"accounts":[
			{"account_id":"a1","name":"Checking","type":"depository","balances":{"current":120.5,"available":100,"iso_currency_code":"USD"}},
			{"account_id":"a2","name":"Card","type":"credit","balances":{"current":40,"available":null,"iso_currency_code":"USD"}}
		]}`))
	}))
	defer srv.Close()

	accts, err := newTestClient(srv.URL).GetAccounts(context.Background(), "access-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(accts) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(accts))
	}
	if accts[0].Available != 100 || accts[1].Available != 40 || accts[1].Currency != "USD" {
		t.Errorf("unexpected accounts %+v", accts)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		amount   float64
		conv     AmountConvention
		wantType models.TransactionType
		wantAmt  float64
	}{
		{"outflow positive debit", 25, OutflowPositive, models.Debit, 25},
		{"outflow positive credit", -1200, OutflowPositive, models.Credit, 1200},
		{"inflow positive credit", 1200, InflowPositive, models.Credit, 1200},
		{"inflow positive debit", -25, InflowPositive, models.Debit, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx, err := Normalize(models.ProviderTransaction{
				TransactionID: "t", Name: " Rent ", Amount: tt.amount, Date: "2024-05-01",
				PFCPrimary: "RENT_AND_UTILITIES",
			}, tt.conv)
			if err != nil {
				t.Fatal(err)
			}
			if tx.Type != tt.wantType || tx.Amount != tt.wantAmt {
				t.Errorf("got %s %.2f, want %s %.2f", tx.Type, tx.Amount, tt.wantType, tt.wantAmt)
			}
			if tx.Description != "Rent" || tx.Category != "Rent And Utilities" {
				t.Errorf("unexpected description/category %q/%q", tx.Description, tx.Category)
			}
		})
	}

	if _, err := Normalize(models.ProviderTransaction{Date: "03/02/2024"}, OutflowPositive); err == nil {
		t.Error("expected date parse error")
	}
}

func TestParseConvention(t *testing.T) {
	tests := []struct {
		in      string
		want    AmountConvention
		wantErr bool
	}{
		{"", OutflowPositive, false},
		{"Inflow_Positive", InflowPositive, false},
		{"sideways", "", true},
	}
	for _, tt := range tests {
		got, err := ParseConvention(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseConvention(%q) = %q, %v", tt.in, got, err)
		}
	}
}
