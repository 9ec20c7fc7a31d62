package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"FinGenius/internal/domain/models"
)

// UpsertUser creates or updates a user profile.
func (s *Store) UpsertUser(ctx context.Context, u *models.User) error {
	const q = `
        INSERT INTO users (id, email, phone, risk_tolerance, daily_summary, created_at)
        VALUES (?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            email = excluded.email,
            phone = excluded.phone,
            risk_tolerance = excluded.risk_tolerance,
            daily_summary = excluded.daily_summary
    `
	risk := u.RiskTolerance
	if risk == "" {
		risk = "medium"
	}
	if _, err := s.db.ExecContext(ctx, q, u.ID, u.Email, u.Phone, risk, u.DailySummary, formatTime(s.now())); err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, userID string) (*models.User, error) {
	const q = `SELECT id, email, phone, risk_tolerance, daily_summary FROM users WHERE id = ?`
	var u models.User
	err := s.db.QueryRowContext(ctx, q, userID).Scan(&u.ID, &u.Email, &u.Phone, &u.RiskTolerance, &u.DailySummary)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", userID, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (s *Store) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DailySummaryUsers returns users that opted into the daily summary.
func (s *Store) DailySummaryUsers(ctx context.Context) ([]models.User, error) {
	const q = `SELECT id, email, phone, risk_tolerance, daily_summary FROM users WHERE daily_summary = 1 ORDER BY id`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list summary users: %w", err)
	}
	defer rows.Close()

	var out []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Email, &u.Phone, &u.RiskTolerance, &u.DailySummary); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Store) SaveSegment(ctx context.Context, userID string, segment int) error {
	const q = `
        INSERT INTO user_segments (user_id, segment, updated_at) VALUES (?, ?, ?)
        ON CONFLICT(user_id) DO UPDATE SET segment = excluded.segment, updated_at = excluded.updated_at
    `
	if _, err := s.db.ExecContext(ctx, q, userID, segment, formatTime(s.now())); err != nil {
		return fmt.Errorf("save segment: %w", err)
	}
	return nil
}

func (s *Store) GetSegment(ctx context.Context, userID string) (int, error) {
	var seg int
	err := s.db.QueryRowContext(ctx, `SELECT segment FROM user_segments WHERE user_id = ?`, userID).Scan(&seg)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("segment for %s: %w", userID, models.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("get segment: %w", err)
	}
	return seg, nil
}

// Allocation returns the target allocation recorded by an applied rebalance.
func (s *Store) Allocation(ctx context.Context, userID string) (models.Strategy, *models.Allocation, error) {
	const q = `SELECT strategy, stocks, bonds, cash FROM user_allocations WHERE user_id = ?`
	var strategy string
	var a models.Allocation
	err := s.db.QueryRowContext(ctx, q, userID).Scan(&strategy, &a.Stocks, &a.Bonds, &a.Cash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil, fmt.Errorf("allocation for %s: %w", userID, models.ErrNotFound)
	}
	if err != nil {
		return "", nil, fmt.Errorf("get allocation: %w", err)
	}
	return models.Strategy(strategy), &a, nil
}
