package repository

import (
	"context"
	"time"

	"FinGenius/internal/domain/models"
)

// SnapshotReader builds per-user read-only views of financial records.
type SnapshotReader interface {
	Snapshot(ctx context.Context, userID string) (*models.FinancialSnapshot, error)
	ListUserIDs(ctx context.Context) ([]string, error)
}

// TransactionStore is the ingestion-side and training-side view of transactions.
type TransactionStore interface {
	TransactionsByUser(ctx context.Context, userID string, since time.Time) ([]models.Transaction, error)
	LabeledExamples(ctx context.Context, limit int) ([]models.LabeledExample, error)
	CategorySpend(ctx context.Context) (map[string]map[string]float64, error)
}

// AccountStore persists linked accounts. IngestSync writes transactions,
// balances and the new cursor atomically.
type AccountStore interface {
	CreateAccount(ctx context.Context, a *models.Account) (int64, error)
	AccountsByUser(ctx context.Context, userID string) ([]models.Account, error)
	AccountsByItem(ctx context.Context, itemID string) ([]models.Account, error)
	IngestSync(ctx context.Context, accountID int64, txs []models.Transaction, cursor string, bal *models.ProviderAccount) (int, error)
}

// ActionStore persists proposal batches and applies decisions.
type ActionStore interface {
	SaveBatch(ctx context.Context, b *models.ProposedActionBatch) error
	GetAction(ctx context.Context, actionID string) (*models.ProposedAction, error)
	ListActions(ctx context.Context, userID string, status models.ActionStatus) ([]models.ProposedAction, error)
	// ApplyAction executes the action's effect and marks it applied in one
	// transaction. It returns false when the action was no longer pending.
	ApplyAction(ctx context.Context, a *models.ProposedAction, at time.Time) (bool, error)
	RejectAction(ctx context.Context, actionID string, at time.Time) (bool, error)
}

type UserStore interface {
	GetUser(ctx context.Context, userID string) (*models.User, error)
	DailySummaryUsers(ctx context.Context) ([]models.User, error)
	SaveSegment(ctx context.Context, userID string, segment int) error
	GetSegment(ctx context.Context, userID string) (int, error)
}

// ModelStore saves and loads named, versioned model blobs.
type ModelStore interface {
	Save(ctx context.Context, key, kind string, blob []byte) (int64, error)
	Load(ctx context.Context, key string) (*models.ModelRecord, error)
}

// Dispatcher accepts notifications for best-effort delivery.
type Dispatcher interface {
	Dispatch(ctx context.Context, userID, message string, channel models.Channel) error
}

// TaskQueue defers work to background workers.
type TaskQueue interface {
	Enqueue(ctx context.Context, taskType string, payload interface{}) error
}

// AggregationProvider is the bank-linking API.
type AggregationProvider interface {
	ExchangePublicToken(ctx context.Context, publicToken string) (*models.TokenExchange, error)
	SyncTransactions(ctx context.Context, accessToken, cursor string) (*models.SyncPage, error)
	GetAccounts(ctx context.Context, accessToken string) ([]models.ProviderAccount, error)
}

// AuditLog records pipeline and approval events for analytics.
type AuditLog interface {
	RecordProposed(ctx context.Context, b *models.ProposedActionBatch) error
	RecordDecision(ctx context.Context, a *models.ProposedAction, applied bool, at time.Time) error
}

type Metrics interface {
	RecordPipelineRun(status string, seconds float64)
	RecordGenerator(name string, seconds float64, err error)
	RecordApproval(result string)
	RecordNotification(channel, result string)
	RecordProviderCall(op string, seconds float64, err error)
	RecordError(kind string)
}
