package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"FinGenius/internal/domain/models"
	"FinGenius/pkg/util"
)

const (
	// HistoryWindow bounds the transactions carried in a snapshot.
	HistoryWindow = 90 * 24 * time.Hour
	// SummaryWindow bounds the income and expense totals.
	SummaryWindow = 30 * 24 * time.Hour
)

// Snapshot reads everything the generators need for one user. Every query is
// filtered by user id.
func (s *Store) Snapshot(ctx context.Context, userID string) (*models.FinancialSnapshot, error) {
	u, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.now()

	txs, err := s.TransactionsByUser(ctx, userID, now.Add(-HistoryWindow))
	if err != nil {
		return nil, err
	}
	budgets, err := s.BudgetsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	goals, err := s.GoalsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	holdings, err := s.HoldingsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	snap := &models.FinancialSnapshot{
		UserID:        userID,
		Transactions:  txs,
		Budgets:       budgets,
		Goals:         goals,
		Holdings:      holdings,
		RiskTolerance: u.RiskTolerance,
		TakenAt:       now,
	}
	since := util.Day(now.Add(-SummaryWindow))
	for _, t := range txs {
		if t.Date.Before(since) {
			continue
		}
		if t.Type == models.Credit {
			snap.Income += t.Amount
		} else {
			snap.Expenses += t.Amount
		}
	}
	snap.Income = util.Round2(snap.Income)
	snap.Expenses = util.Round2(snap.Expenses)
	return snap, nil
}

// TransactionsByUser returns the user's transactions dated on or after since, oldest first.
func (s *Store) TransactionsByUser(ctx context.Context, userID string, since time.Time) ([]models.Transaction, error) {
	const q = `
        SELECT id, user_id, COALESCE(account_id, 0), COALESCE(provider_tx_id, ''), description, amount, date, category, type
        FROM transactions
        WHERE user_id = ? AND date >= ?
        ORDER BY date ASC, id ASC
    `
	rows, err := s.db.QueryContext(ctx, q, userID, util.Day(since).Format(util.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	out := make([]models.Transaction, 0, 256)
	for rows.Next() {
		var t models.Transaction
		var date, typ string
		if err := rows.Scan(&t.ID, &t.UserID, &t.AccountID, &t.ProviderTxID, &t.Description, &t.Amount, &date, &t.Category, &typ); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Date, _ = time.Parse(util.DateLayout, date)
		t.Type = models.TransactionType(typ)
		out = append(out, t)
	}
	return out, rows.Err()
}

// InsertTransactions writes manually entered transactions.
func (s *Store) InsertTransactions(ctx context.Context, txs []models.Transaction) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for i := range txs {
			if _, err := insertTransaction(ctx, tx, &txs[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertTransaction(ctx context.Context, tx *sql.Tx, t *models.Transaction) (bool, error) {
	const q = `
        INSERT INTO transactions (user_id, account_id, provider_tx_id, description, amount, date, category, type)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(provider_tx_id) DO NOTHING
    `
	var account sql.NullInt64
	if t.AccountID != 0 {
		account = sql.NullInt64{Int64: t.AccountID, Valid: true}
	}
	var providerID sql.NullString
	if t.ProviderTxID != "" {
		providerID = sql.NullString{String: t.ProviderTxID, Valid: true}
	}
	res, err := tx.ExecContext(ctx, q, t.UserID, account, providerID, t.Description, t.Amount,
		util.Day(t.Date).Format(util.DateLayout), t.Category, string(t.Type))
	if err != nil {
		return false, fmt.Errorf("insert transaction: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// LabeledExamples returns the most recent categorized descriptions.
func (s *Store) LabeledExamples(ctx context.Context, limit int) ([]models.LabeledExample, error) {
	if limit <= 0 {
		limit = 50000
	}
	const q = `
        SELECT description, category FROM transactions
        WHERE category != '' AND description != ''
        ORDER BY id DESC LIMIT ?
    `
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("query labeled examples: %w", err)
	}
	defer rows.Close()

	var out []models.LabeledExample
	for rows.Next() {
		var e models.LabeledExample
		if err := rows.Scan(&e.Description, &e.Category); err != nil {
			return nil, fmt.Errorf("scan labeled example: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CategorySpend totals debit spend per user and category across all history.
func (s *Store) CategorySpend(ctx context.Context) (map[string]map[string]float64, error) {
	const q = `
        SELECT user_id, category, SUM(amount) FROM transactions
        WHERE type = 'debit' AND category != ''
        GROUP BY user_id, category
    `
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query category spend: %w", err)
	}
	defer rows.Close()

	out := make(map[string]map[string]float64)
	for rows.Next() {
		var user, category string
		var total float64
		if err := rows.Scan(&user, &category, &total); err != nil {
			return nil, fmt.Errorf("scan category spend: %w", err)
		}
		if out[user] == nil {
			out[user] = make(map[string]float64)
		}
		out[user][category] = total
	}
	return out, rows.Err()
}

func (s *Store) UpsertBudget(ctx context.Context, b *models.Budget) error {
	const q = `
        INSERT INTO budgets (user_id, category, limit_amount, period) VALUES (?, ?, ?, ?)
        ON CONFLICT(user_id, category) DO UPDATE SET limit_amount = excluded.limit_amount, period = excluded.period
    `
	period := b.Period
	if period == "" {
		period = "monthly"
	}
	if _, err := s.db.ExecContext(ctx, q, b.UserID, b.Category, b.Limit, period); err != nil {
		return fmt.Errorf("upsert budget: %w", err)
	}
	return nil
}

func (s *Store) BudgetsByUser(ctx context.Context, userID string) ([]models.Budget, error) {
	const q = `SELECT id, user_id, category, limit_amount, period FROM budgets WHERE user_id = ? ORDER BY category`
	rows, err := s.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("query budgets: %w", err)
	}
	defer rows.Close()

	var out []models.Budget
	for rows.Next() {
		var b models.Budget
		if err := rows.Scan(&b.ID, &b.UserID, &b.Category, &b.Limit, &b.Period); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) AddGoal(ctx context.Context, g *models.Goal) (int64, error) {
	const q = `
        INSERT INTO goals (user_id, name, target_amount, current_amount, target_date, status)
        VALUES (?, ?, ?, ?, ?, ?)
    `
	status := g.Status
	if status == "" {
		status = "active"
	}
	var target sql.NullString
	if g.TargetDate != nil {
		target = sql.NullString{String: g.TargetDate.Format(util.DateLayout), Valid: true}
	}
	res, err := s.db.ExecContext(ctx, q, g.UserID, g.Name, g.TargetAmount, g.CurrentAmount, target, status)
	if err != nil {
		return 0, fmt.Errorf("insert goal: %w", err)
	}
	return res.LastInsertId()
}

func (s *Store) GoalsByUser(ctx context.Context, userID string) ([]models.Goal, error) {
	const q = `
        SELECT id, user_id, name, target_amount, current_amount, target_date, status
        FROM goals WHERE user_id = ? ORDER BY id
    `
	rows, err := s.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("query goals: %w", err)
	}
	defer rows.Close()

	var out []models.Goal
	for rows.Next() {
		var g models.Goal
		var target sql.NullString
		if err := rows.Scan(&g.ID, &g.UserID, &g.Name, &g.TargetAmount, &g.CurrentAmount, &target, &g.Status); err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		if target.Valid {
			if d, err := time.Parse(util.DateLayout, target.String); err == nil {
				g.TargetDate = &d
			}
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *Store) SetHolding(ctx context.Context, userID string, h models.Holding) error {
	const q = `
        INSERT INTO holdings (user_id, asset_class, value) VALUES (?, ?, ?)
        ON CONFLICT(user_id, asset_class) DO UPDATE SET value = excluded.value
    `
	if _, err := s.db.ExecContext(ctx, q, userID, h.AssetClass, h.Value); err != nil {
		return fmt.Errorf("set holding: %w", err)
	}
	return nil
}

func (s *Store) HoldingsByUser(ctx context.Context, userID string) ([]models.Holding, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT asset_class, value FROM holdings WHERE user_id = ? ORDER BY asset_class`, userID)
	if err != nil {
		return nil, fmt.Errorf("query holdings: %w", err)
	}
	defer rows.Close()

	var out []models.Holding
	for rows.Next() {
		var h models.Holding
		if err := rows.Scan(&h.AssetClass, &h.Value); err != nil {
			return nil, fmt.Errorf("scan holding: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
