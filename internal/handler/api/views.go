package api

import (
	"time"

	"FinGenius/internal/domain/models"
)

type pipelineView struct {
	UserID          string              `json:"user_id"`
	BatchID         string              `json:"batch_id,omitempty"`
	Status          string              `json:"status"`
	ProposedActions []models.Suggestion `json:"proposed_actions"`
	ActionIDs       []string            `json:"action_ids,omitempty"`
	Errors          map[string]string   `json:"errors,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
}

func newPipelineView(r *models.PipelineResult) pipelineView {
	actions := r.ProposedActions
	if actions == nil {
		actions = []models.Suggestion{}
	}
	return pipelineView{
		UserID:          r.UserID,
		BatchID:         r.BatchID,
		Status:          string(r.Status),
		ProposedActions: actions,
		ActionIDs:       r.ActionIDs,
		Errors:          r.Errors,
		CreatedAt:       r.CreatedAt,
	}
}

type actionView struct {
	ID        string     `json:"id"`
	BatchID   string     `json:"batch_id"`
	Position  int        `json:"position"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	DecidedAt *time.Time `json:"decided_at,omitempty"`
	models.Suggestion
}

func newActionViews(as []models.ProposedAction) []actionView {
	out := make([]actionView, len(as))
	for i, a := range as {
		out[i] = actionView{
			ID:         a.ID,
			BatchID:    a.BatchID,
			Position:   a.Position,
			Status:     string(a.Status),
			CreatedAt:  a.CreatedAt,
			DecidedAt:  a.DecidedAt,
			Suggestion: a.Suggestion,
		}
	}
	return out
}

type approvalView struct {
	ActionID string `json:"action_id"`
	Applied  bool   `json:"applied"`
	Status   string `json:"status"`
}

type accountView struct {
	ID               int64   `json:"id"`
	Name             string  `json:"name"`
	Type             string  `json:"type"`
	Currency         string  `json:"currency"`
	CurrentBalance   float64 `json:"current_balance"`
	AvailableBalance float64 `json:"available_balance"`
}

func newAccountViews(as []models.Account) []accountView {
	out := make([]accountView, len(as))
	for i, a := range as {
		out[i] = accountView{
			ID:               a.ID,
			Name:             a.Name,
			Type:             a.Type,
			Currency:         a.Currency,
			CurrentBalance:   a.CurrentBalance,
			AvailableBalance: a.AvailableBalance,
		}
	}
	return out
}

type syncView struct {
	Accounts   int   `json:"accounts"`
	Added      int   `json:"added"`
	Failed     int   `json:"failed"`
	DurationMS int64 `json:"duration_ms"`
}
