package usecase

import (
	"context"
	"fmt"
	"time"

	"FinGenius/internal/domain/models"
	domrepo "FinGenius/internal/domain/repository"
	domsvc "FinGenius/internal/domain/service"
	"FinGenius/internal/services/provider"
	applogger "FinGenius/pkg/logger"
)

// Webhook codes that mean new transactions are ready to sync.
var syncWebhookCodes = map[string]bool{
	"SYNC_UPDATES_AVAILABLE": true,
	"DEFAULT_UPDATE":         true,
	"INITIAL_UPDATE":         true,
	"HISTORICAL_UPDATE":      true,
}

// AccountService links provider accounts and ingests their transactions.
type AccountService struct {
	accounts    domrepo.AccountStore
	users       domrepo.SnapshotReader
	provider    domrepo.AggregationProvider
	tasks       domrepo.TaskQueue
	categorizer domsvc.Categorizer
	invalidator SnapshotInvalidator
	convention  provider.AmountConvention
	l           *applogger.Logger
}

func NewAccountService(
	accounts domrepo.AccountStore,
	users domrepo.SnapshotReader,
	prov domrepo.AggregationProvider,
	tasks domrepo.TaskQueue,
	categorizer domsvc.Categorizer,
	invalidator SnapshotInvalidator,
	convention provider.AmountConvention,
	l *applogger.Logger,
) *AccountService {
	return &AccountService{
		accounts:    accounts,
		users:       users,
		provider:    prov,
		tasks:       tasks,
		categorizer: categorizer,
		invalidator: invalidator,
		convention:  convention,
		l:           l.With(applogger.String("component", "accounts")),
	}
}

// LinkAccount exchanges a public token, stores every account of the item
// and schedules the first sync.
func (s *AccountService) LinkAccount(ctx context.Context, userID, publicToken string) ([]models.Account, error) {
	tok, err := s.provider.ExchangePublicToken(ctx, publicToken)
	if err != nil {
		return nil, err
	}
	pas, err := s.provider.GetAccounts(ctx, tok.AccessToken)
	if err != nil {
		return nil, err
	}

	out := make([]models.Account, 0, len(pas))
	for _, pa := range pas {
		a := models.Account{
			UserID:            userID,
			ProviderAccountID: pa.AccountID,
			ProviderItemID:    tok.ItemID,
			AccessToken:       tok.AccessToken,
			Name:              pa.Name,
			Type:              pa.Type,
			Currency:          pa.Currency,
			CurrentBalance:    pa.Current,
			AvailableBalance:  pa.Available,
		}
		if _, err := s.accounts.CreateAccount(ctx, &a); err != nil {
			return out, err
		}
		a.AccessToken = ""
		out = append(out, a)
	}

	if err := s.tasks.Enqueue(ctx, TaskSyncUserAccounts, UserPayload{UserID: userID}); err != nil {
		s.l.Warn("enqueue initial sync failed", applogger.UserID(userID), applogger.Error(err))
	}
	s.l.Info("accounts linked", applogger.UserID(userID), applogger.Int("accounts", len(out)))
	return out, nil
}

// SyncUser pulls new transactions for each of the user's accounts. One
// account's provider failure is counted and does not affect the others, and
// nothing is written for an account whose sync failed part way.
func (s *AccountService) SyncUser(ctx context.Context, userID string) (*models.SyncReport, error) {
	start := time.Now()
	accts, err := s.accounts.AccountsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("accounts for %s: %w", userID, err)
	}

	rep := &models.SyncReport{UserID: userID, Accounts: len(accts)}
	for i := range accts {
		n, err := s.syncAccount(ctx, &accts[i])
		if err != nil {
			rep.Failed++
			s.l.Error("account sync failed",
				applogger.UserID(userID),
				applogger.Int64("account_id", accts[i].ID),
				applogger.Error(err),
			)
			continue
		}
		rep.Added += n
	}
	rep.Duration = time.Since(start)

	if rep.Added > 0 && s.invalidator != nil {
		s.invalidator.Invalidate(userID)
	}
	s.l.Info("accounts synced",
		applogger.UserID(userID),
		applogger.Int("accounts", rep.Accounts),
		applogger.Int("added", rep.Added),
		applogger.Int("failed", rep.Failed),
		applogger.Duration("duration_ms", rep.Duration),
	)
	return rep, nil
}

func (s *AccountService) syncAccount(ctx context.Context, a *models.Account) (int, error) {
	cursor := a.SyncCursor
	var txs []models.Transaction
	for {
		page, err := s.provider.SyncTransactions(ctx, a.AccessToken, cursor)
		if err != nil {
			return 0, err
		}
		for _, pt := range page.Added {
			if pt.AccountID != "" && pt.AccountID != a.ProviderAccountID {
				continue
			}
			t, err := provider.Normalize(pt, s.convention)
			if err != nil {
				s.l.Warn("skipping malformed transaction", applogger.String("provider_tx_id", pt.TransactionID), applogger.Error(err))
				continue
			}
			if t.Category == "" {
				t.Category = s.predictCategory(t.Description)
			}
			txs = append(txs, t)
		}
		cursor = page.NextCursor
		if !page.HasMore {
			break
		}
	}

	var bal *models.ProviderAccount
	pas, err := s.provider.GetAccounts(ctx, a.AccessToken)
	if err != nil {
		return 0, err
	}
	for i := range pas {
		if pas[i].AccountID == a.ProviderAccountID {
			bal = &pas[i]
			break
		}
	}

	return s.accounts.IngestSync(ctx, a.ID, txs, cursor, bal)
}

func (s *AccountService) predictCategory(description string) string {
	if s.categorizer == nil || !s.categorizer.Trained() || description == "" {
		return ""
	}
	c, err := s.categorizer.Predict(description)
	if err != nil {
		return ""
	}
	return c
}

// RefreshAll schedules a sync for every user and returns how many were queued.
func (s *AccountService) RefreshAll(ctx context.Context) (int, error) {
	ids, err := s.users.ListUserIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list users: %w", err)
	}
	n := 0
	for _, id := range ids {
		if err := s.tasks.Enqueue(ctx, TaskSyncUserAccounts, UserPayload{UserID: id}); err != nil {
			s.l.Error("enqueue sync failed", applogger.UserID(id), applogger.Error(err))
			continue
		}
		n++
	}
	return n, nil
}

// HandleWebhook schedules a sync for the owners of the notified item. It
// reports whether any sync was queued; unrelated webhooks are ignored.
func (s *AccountService) HandleWebhook(ctx context.Context, wh models.Webhook) (bool, error) {
	if wh.WebhookType != "TRANSACTIONS" || !syncWebhookCodes[wh.WebhookCode] {
		s.l.Debug("ignoring webhook", applogger.String("type", wh.WebhookType), applogger.String("code", wh.WebhookCode))
		return false, nil
	}
	accts, err := s.accounts.AccountsByItem(ctx, wh.ItemID)
	if err != nil {
		return false, fmt.Errorf("accounts for item %s: %w", wh.ItemID, err)
	}
	if len(accts) == 0 {
		return false, fmt.Errorf("item %s: %w", wh.ItemID, models.ErrNotFound)
	}

	seen := map[string]bool{}
	for _, a := range accts {
		if seen[a.UserID] {
			continue
		}
		seen[a.UserID] = true
		if err := s.tasks.Enqueue(ctx, TaskSyncUserAccounts, UserPayload{UserID: a.UserID}); err != nil {
			return false, fmt.Errorf("enqueue sync: %w", err)
		}
	}
	return true, nil
}
