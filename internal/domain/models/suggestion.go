package models

import "time"

type SuggestionType string

const (
	SuggestionBudgetAdjustment    SuggestionType = "budget_adjustment"
	SuggestionSavingsTransfer     SuggestionType = "savings_transfer"
	SuggestionInvestmentRebalance SuggestionType = "investment_rebalance"
	SuggestionCashFlowForecast    SuggestionType = "cash_flow_forecast"
)

func (t SuggestionType) Valid() bool {
	switch t {
	case SuggestionBudgetAdjustment, SuggestionSavingsTransfer, SuggestionInvestmentRebalance, SuggestionCashFlowForecast:
		return true
	}
	return false
}

// Suggestion is one user-facing recommendation with machine-readable parameters.
type Suggestion struct {
	Type             SuggestionType         `json:"type"`
	Description      string                 `json:"description"`
	Parameters       map[string]interface{} `json:"parameters"`
	Confidence       *float64               `json:"confidence,omitempty"`
	RequiresApproval bool                   `json:"requires_approval"`
}

// NewSuggestion builds a suggestion that requires approval.
func NewSuggestion(t SuggestionType, description string, params map[string]interface{}) Suggestion {
	if params == nil {
		params = map[string]interface{}{}
	}
	return Suggestion{Type: t, Description: description, Parameters: params, RequiresApproval: true}
}

type ActionStatus string

const (
	ActionPending  ActionStatus = "pending"
	ActionApplied  ActionStatus = "applied"
	ActionRejected ActionStatus = "rejected"
)

// ProposedAction is a persisted suggestion awaiting a decision.
type ProposedAction struct {
	ID        string
	UserID    string
	BatchID   string
	Position  int
	Suggestion
	Status    ActionStatus
	CreatedAt time.Time
	DecidedAt *time.Time
}

// ProposedActionBatch is the ordered output of one pipeline run.
type ProposedActionBatch struct {
	ID        string
	UserID    string
	Actions   []ProposedAction
	CreatedAt time.Time
}

func (b *ProposedActionBatch) Suggestions() []Suggestion {
	out := make([]Suggestion, len(b.Actions))
	for i, a := range b.Actions {
		out[i] = a.Suggestion
	}
	return out
}

type PipelineStatus string

const (
	StatusActionsProposed   PipelineStatus = "actions_proposed"
	StatusNoActionsProposed PipelineStatus = "no_actions_proposed"
)

type PipelineResult struct {
	UserID          string
	BatchID         string
	ProposedActions []Suggestion
	ActionIDs       []string
	Status          PipelineStatus
	Errors          map[string]string
	CreatedAt       time.Time
}

type ApprovalResult struct {
	ActionID string
	Applied  bool
	Status   ActionStatus
}

// Parameter keys shared by the pipeline and the action store.
const (
	ParamCategory        = "category"
	ParamAction          = "action"
	ParamCurrentLimit    = "current_limit"
	ParamSuggestedAmount = "suggested_amount"
	ParamMeanSpend       = "mean_spend"
	ParamAmount          = "amount"
	ParamDisposable      = "disposable_income"
	ParamStrategy        = "strategy"
	ParamDrift           = "drift"
	ParamSteps           = "steps"
	ParamNetTotal        = "net_total"
	ParamForecast        = "forecast"
)

// Float reads a numeric parameter. Parameters decoded from JSON carry float64.
func (s Suggestion) Float(key string) (float64, bool) {
	switch v := s.Parameters[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

func (s Suggestion) Text(key string) string {
	v, _ := s.Parameters[key].(string)
	return v
}
