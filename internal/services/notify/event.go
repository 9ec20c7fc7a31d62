package notify

import (
	"encoding/json"
	"fmt"

	"FinGenius/internal/domain/models"
)

func encodeEvent(ev models.NotificationEvent) ([]byte, error) {
	b, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode notification: %w", err)
	}
	return b, nil
}

// PendingApprovalMessage is the text sent after a pipeline run proposes actions.
func PendingApprovalMessage(n int) string {
	return fmt.Sprintf("FinGenius AI has %d new financial suggestions awaiting your review.", n)
}

// DailySummaryMessage summarizes the previous period for the daily digest.
func DailySummaryMessage(income, expenses float64, pending int) string {
	return fmt.Sprintf("Your FinGenius summary: income %.2f, expenses %.2f over the last 30 days. %d suggestions awaiting review.",
		income, expenses, pending)
}
