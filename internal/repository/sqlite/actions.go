package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"FinGenius/internal/domain/models"
)

// SaveBatch persists a batch and its actions in order.
func (s *Store) SaveBatch(ctx context.Context, b *models.ProposedActionBatch) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO action_batches (id, user_id, created_at) VALUES (?, ?, ?)`,
			b.ID, b.UserID, formatTime(b.CreatedAt)); err != nil {
			return fmt.Errorf("insert batch: %w", err)
		}
		const q = `
            INSERT INTO actions (id, batch_id, user_id, position, type, description, parameters, confidence,
                requires_approval, status, created_at)
            VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        `
		for _, a := range b.Actions {
			params, err := json.Marshal(a.Parameters)
			if err != nil {
				return fmt.Errorf("encode parameters: %w", err)
			}
			var confidence sql.NullFloat64
			if a.Confidence != nil {
				confidence = sql.NullFloat64{Float64: *a.Confidence, Valid: true}
			}
			status := a.Status
			if status == "" {
				status = models.ActionPending
			}
			if _, err := tx.ExecContext(ctx, q, a.ID, b.ID, b.UserID, a.Position, string(a.Type), a.Description,
				string(params), confidence, a.RequiresApproval, string(status), formatTime(b.CreatedAt)); err != nil {
				return fmt.Errorf("insert action: %w", err)
			}
		}
		return nil
	})
}

const actionColumns = `id, batch_id, user_id, position, type, description, parameters, confidence,
        requires_approval, status, created_at, decided_at`

func (s *Store) GetAction(ctx context.Context, actionID string) (*models.ProposedAction, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+actionColumns+` FROM actions WHERE id = ?`, actionID)
	a, err := scanAction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("action %s: %w", actionID, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ListActions returns a user's actions, newest batch first; an empty status
// matches every status.
func (s *Store) ListActions(ctx context.Context, userID string, status models.ActionStatus) ([]models.ProposedAction, error) {
	q := `SELECT ` + actionColumns + ` FROM actions WHERE user_id = ?`
	args := []interface{}{userID}
	if status != "" {
		q += ` AND status = ?`
		args = append(args, string(status))
	}
	q += ` ORDER BY created_at DESC, batch_id, position`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query actions: %w", err)
	}
	defer rows.Close()

	out := make([]models.ProposedAction, 0)
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAction(r rowScanner) (*models.ProposedAction, error) {
	var a models.ProposedAction
	var typ, params, status, created string
	var confidence sql.NullFloat64
	var decided sql.NullString
	if err := r.Scan(&a.ID, &a.BatchID, &a.UserID, &a.Position, &typ, &a.Description, &params, &confidence,
		&a.RequiresApproval, &status, &created, &decided); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan action: %w", err)
	}
	a.Type = models.SuggestionType(typ)
	a.Status = models.ActionStatus(status)
	a.CreatedAt = parseTime(created)
	a.DecidedAt = timePtr(decided)
	if confidence.Valid {
		c := confidence.Float64
		a.Confidence = &c
	}
	if err := json.Unmarshal([]byte(params), &a.Parameters); err != nil {
		return nil, fmt.Errorf("decode parameters of %s: %w", a.ID, err)
	}
	return &a, nil
}

// ApplyAction flips a pending action to applied and executes its effect in
// the same transaction. It reports false, with no effect, when the action was
// already decided.
func (s *Store) ApplyAction(ctx context.Context, a *models.ProposedAction, at time.Time) (bool, error) {
	applied := false
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE actions SET status = ?, decided_at = ? WHERE id = ? AND status = ?`,
			string(models.ActionApplied), formatTime(at), a.ID, string(models.ActionPending))
		if err != nil {
			return fmt.Errorf("mark applied: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			return nil
		}
		if err := applyEffect(ctx, tx, a, at); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

func applyEffect(ctx context.Context, tx *sql.Tx, a *models.ProposedAction, at time.Time) error {
	switch a.Type {
	case models.SuggestionBudgetAdjustment:
		category := a.Text(models.ParamCategory)
		amount, ok := a.Float(models.ParamSuggestedAmount)
		if category == "" || !ok {
			return fmt.Errorf("budget adjustment %s: missing category or amount", a.ID)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE budgets SET limit_amount = ? WHERE user_id = ? AND category = ?`,
			amount, a.UserID, category); err != nil {
			return fmt.Errorf("update budget: %w", err)
		}
	case models.SuggestionSavingsTransfer:
		amount, ok := a.Float(models.ParamAmount)
		if !ok {
			return fmt.Errorf("savings transfer %s: missing amount", a.ID)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO savings_transfers (user_id, action_id, amount, created_at) VALUES (?, ?, ?, ?)`,
			a.UserID, a.ID, amount, formatTime(at)); err != nil {
			return fmt.Errorf("record savings transfer: %w", err)
		}
	case models.SuggestionInvestmentRebalance:
		stocks, ok1 := a.Float(models.AssetStocks)
		bonds, ok2 := a.Float(models.AssetBonds)
		cash, ok3 := a.Float(models.AssetCash)
		if !ok1 || !ok2 || !ok3 {
			return fmt.Errorf("rebalance %s: missing target weights", a.ID)
		}
		const q = `
            INSERT INTO user_allocations (user_id, strategy, stocks, bonds, cash, updated_at) VALUES (?, ?, ?, ?, ?, ?)
            ON CONFLICT(user_id) DO UPDATE SET
                strategy = excluded.strategy, stocks = excluded.stocks, bonds = excluded.bonds,
                cash = excluded.cash, updated_at = excluded.updated_at
        `
		if _, err := tx.ExecContext(ctx, q, a.UserID, a.Text(models.ParamStrategy), stocks, bonds, cash, formatTime(at)); err != nil {
			return fmt.Errorf("store allocation: %w", err)
		}
	case models.SuggestionCashFlowForecast:
		// informational
	default:
		return fmt.Errorf("unknown action type %q", a.Type)
	}
	return nil
}

// RejectAction flips a pending action to rejected. It reports false when the
// action was already decided.
func (s *Store) RejectAction(ctx context.Context, actionID string, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE actions SET status = ?, decided_at = ? WHERE id = ? AND status = ?`,
		string(models.ActionRejected), formatTime(at), actionID, string(models.ActionPending))
	if err != nil {
		return false, fmt.Errorf("mark rejected: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// SavingsTransfers sums recorded transfers for a user.
func (s *Store) SavingsTransfers(ctx context.Context, userID string) (int, float64, error) {
	var n int
	var total float64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(amount), 0) FROM savings_transfers WHERE user_id = ?`, userID).
		Scan(&n, &total)
	if err != nil {
		return 0, 0, fmt.Errorf("sum savings transfers: %w", err)
	}
	return n, total, nil
}
