package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"FinGenius/internal/domain/models"
	"FinGenius/internal/domain/repository"
	applogger "FinGenius/pkg/logger"
)

const (
	AuditProposed = "proposed"
	AuditApplied  = "applied"
	AuditNoop     = "noop"
	AuditRejected = "rejected"
)

// AuditSchema creates the audit table. The table name is substituted.
const AuditSchema = `
CREATE TABLE IF NOT EXISTS %s (
    ts          DateTime64(3, 'UTC'),
    event       LowCardinality(String),
    user_id     String,
    batch_id    String,
    action_id   String,
    action_type LowCardinality(String),
    amount      Float64,
    parameters  String
) ENGINE = MergeTree
PARTITION BY toYYYYMM(ts)
ORDER BY (user_id, ts)`

// ClickHouseAudit appends pipeline and approval events to a ClickHouse table
// for offline analysis of suggestion acceptance.
type ClickHouseAudit struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewClickHouseAudit(db *sql.DB, table string, l *applogger.Logger) *ClickHouseAudit {
	if l == nil {
		l = applogger.NewNop()
	}
	return &ClickHouseAudit{db: db, table: table, l: l}
}

// SchemaStatements returns the DDL for pkg/clickhouse.Client.InitSchema.
func (a *ClickHouseAudit) SchemaStatements() []string {
	return []string{fmt.Sprintf(AuditSchema, a.table)}
}

type auditRow struct {
	ts         time.Time
	event      string
	userID     string
	batchID    string
	actionID   string
	actionType string
	amount     float64
	parameters string
}

func (r auditRow) args() []interface{} {
	return []interface{}{r.ts, r.event, r.userID, r.batchID, r.actionID, r.actionType, r.amount, r.parameters}
}

func (a *ClickHouseAudit) RecordProposed(ctx context.Context, b *models.ProposedActionBatch) error {
	rows := proposedRows(b)
	if len(rows) == 0 {
		return nil
	}
	return a.insert(ctx, rows)
}

func (a *ClickHouseAudit) RecordDecision(ctx context.Context, act *models.ProposedAction, applied bool, at time.Time) error {
	event := AuditNoop
	switch {
	case act.Status == models.ActionRejected:
		event = AuditRejected
	case applied:
		event = AuditApplied
	}
	return a.insert(ctx, []auditRow{actionRow(act, event, at)})
}

func (a *ClickHouseAudit) insert(ctx context.Context, rows []auditRow) error {
	start := time.Now()
	values := make([]string, len(rows))
	args := make([]interface{}, 0, len(rows)*8)
	for i, r := range rows {
		values[i] = "(?, ?, ?, ?, ?, ?, ?, ?)"
		args = append(args, r.args()...)
	}
	q := fmt.Sprintf("INSERT INTO %s (ts, event, user_id, batch_id, action_id, action_type, amount, parameters) VALUES %s",
		a.table, strings.Join(values, ","))
	if _, err := a.db.ExecContext(ctx, q, args...); err != nil {
		a.l.Error("clickhouse audit insert error",
			applogger.String("table", a.table),
			applogger.Int("rows", len(rows)),
			applogger.Error(err),
		)
		return fmt.Errorf("insert audit rows: %w", err)
	}
	a.l.Debug("clickhouse audit insert ok",
		applogger.String("table", a.table),
		applogger.Int("rows", len(rows)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

func proposedRows(b *models.ProposedActionBatch) []auditRow {
	rows := make([]auditRow, 0, len(b.Actions))
	for i := range b.Actions {
		rows = append(rows, actionRow(&b.Actions[i], AuditProposed, b.CreatedAt))
	}
	return rows
}

func actionRow(a *models.ProposedAction, event string, at time.Time) auditRow {
	amount, ok := a.Float(models.ParamSuggestedAmount)
	if !ok {
		amount, _ = a.Float(models.ParamAmount)
	}
	params, _ := json.Marshal(a.Parameters)
	return auditRow{
		ts:         at.UTC(),
		event:      event,
		userID:     a.UserID,
		batchID:    a.BatchID,
		actionID:   a.ID,
		actionType: string(a.Type),
		amount:     amount,
		parameters: string(params),
	}
}

// NopAudit is used when ClickHouse is disabled.
type NopAudit struct{}

func (NopAudit) RecordProposed(context.Context, *models.ProposedActionBatch) error { return nil }
func (NopAudit) RecordDecision(context.Context, *models.ProposedAction, bool, time.Time) error {
	return nil
}

var (
	_ repository.AuditLog = (*ClickHouseAudit)(nil)
	_ repository.AuditLog = NopAudit{}
)
