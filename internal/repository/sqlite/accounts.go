package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"FinGenius/internal/domain/models"
)

const accountColumns = `id, user_id, provider_account_id, provider_item_id, access_token, name, type, currency,
        current_balance, available_balance, sync_cursor, updated_at`

// CreateAccount links a provider account. Relinking the same provider account
// refreshes its token and item.
func (s *Store) CreateAccount(ctx context.Context, a *models.Account) (int64, error) {
	const q = `
        INSERT INTO accounts (user_id, provider_account_id, provider_item_id, access_token, name, type, currency,
            current_balance, available_balance, sync_cursor, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, '', ?)
        ON CONFLICT(provider_account_id) DO UPDATE SET
            provider_item_id = excluded.provider_item_id,
            access_token = excluded.access_token,
            name = excluded.name,
            updated_at = excluded.updated_at
        RETURNING id
    `
	currency := a.Currency
	if currency == "" {
		currency = "USD"
	}
	var id int64
	err := s.db.QueryRowContext(ctx, q, a.UserID, a.ProviderAccountID, a.ProviderItemID, a.AccessToken, a.Name,
		a.Type, currency, a.CurrentBalance, a.AvailableBalance, formatTime(s.now())).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create account: %w", err)
	}
	a.ID = id
	return id, nil
}

func (s *Store) AccountsByUser(ctx context.Context, userID string) ([]models.Account, error) {
	return s.queryAccounts(ctx, `SELECT `+accountColumns+` FROM accounts WHERE user_id = ? ORDER BY id`, userID)
}

func (s *Store) AccountsByItem(ctx context.Context, itemID string) ([]models.Account, error) {
	return s.queryAccounts(ctx, `SELECT `+accountColumns+` FROM accounts WHERE provider_item_id = ? ORDER BY id`, itemID)
}

func (s *Store) queryAccounts(ctx context.Context, q string, arg string) ([]models.Account, error) {
	rows, err := s.db.QueryContext(ctx, q, arg)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	var out []models.Account
	for rows.Next() {
		var a models.Account
		var updated string
		if err := rows.Scan(&a.ID, &a.UserID, &a.ProviderAccountID, &a.ProviderItemID, &a.AccessToken, &a.Name,
			&a.Type, &a.Currency, &a.CurrentBalance, &a.AvailableBalance, &a.SyncCursor, &updated); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		a.UpdatedAt = parseTime(updated)
		out = append(out, a)
	}
	return out, rows.Err()
}

// IngestSync writes one account's sync result atomically: new transactions,
// the advanced cursor and, when given, fresh balances. Returns rows added.
func (s *Store) IngestSync(ctx context.Context, accountID int64, txs []models.Transaction, cursor string, bal *models.ProviderAccount) (int, error) {
	added := 0
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var userID string
		err := tx.QueryRowContext(ctx, `SELECT user_id FROM accounts WHERE id = ?`, accountID).Scan(&userID)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("account %d: %w", accountID, models.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("lookup account: %w", err)
		}

		for i := range txs {
			t := txs[i]
			t.UserID = userID
			t.AccountID = accountID
			ok, err := insertTransaction(ctx, tx, &t)
			if err != nil {
				return err
			}
			if ok {
				added++
			}
		}

		now := formatTime(s.now())
		if bal != nil {
			const q = `UPDATE accounts SET sync_cursor = ?, current_balance = ?, available_balance = ?, updated_at = ? WHERE id = ?`
			if _, err := tx.ExecContext(ctx, q, cursor, bal.Current, bal.Available, now, accountID); err != nil {
				return fmt.Errorf("update account: %w", err)
			}
			return nil
		}
		if _, err := tx.ExecContext(ctx, `UPDATE accounts SET sync_cursor = ?, updated_at = ? WHERE id = ?`, cursor, now, accountID); err != nil {
			return fmt.Errorf("update cursor: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return added, nil
}
