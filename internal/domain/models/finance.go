package models

import "time"

// TransactionType is the direction of money movement relative to the user.
type TransactionType string

const (
	Debit  TransactionType = "debit"
	Credit TransactionType = "credit"
)

// Transaction is one normalized ledger row. Amount is always non-negative;
// direction lives in Type.
type Transaction struct {
	ID           int64
	UserID       string
	AccountID    int64
	ProviderTxID string
	Description  string
	Amount       float64
	Date         time.Time
	Category     string
	Type         TransactionType
}

// SignedAmount returns the amount as a net cash flow contribution.
func (t Transaction) SignedAmount() float64 {
	if t.Type == Credit {
		return t.Amount
	}
	return -t.Amount
}

type Budget struct {
	ID       int64
	UserID   string
	Category string
	Limit    float64
	Period   string
}

type Goal struct {
	ID            int64
	UserID        string
	Name          string
	TargetAmount  float64
	CurrentAmount float64
	TargetDate    *time.Time
	Status        string
}

// Asset classes used by allocations and holdings.
const (
	AssetStocks = "stocks"
	AssetBonds  = "bonds"
	AssetCash   = "cash"
)

type Holding struct {
	AssetClass string
	Value      float64
}

type Account struct {
	ID                int64
	UserID            string
	ProviderAccountID string
	ProviderItemID    string
	AccessToken       string
	Name              string
	Type              string
	Currency          string
	CurrentBalance    float64
	AvailableBalance  float64
	SyncCursor        string
	UpdatedAt         time.Time
}

// FinancialSnapshot is a read-only bundle of one user's records.
// Generators must not mutate it.
type FinancialSnapshot struct {
	UserID        string
	Transactions  []Transaction
	Budgets       []Budget
	Goals         []Goal
	Holdings      []Holding
	RiskTolerance string
	Income        float64
	Expenses      float64
	TakenAt       time.Time
}

// BudgetLimits returns category -> limit for the snapshot's budgets.
func (s *FinancialSnapshot) BudgetLimits() map[string]float64 {
	out := make(map[string]float64, len(s.Budgets))
	for _, b := range s.Budgets {
		out[b.Category] = b.Limit
	}
	return out
}
