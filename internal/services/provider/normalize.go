package provider

import (
	"fmt"
	"math"
	"strings"

	"FinGenius/internal/domain/models"
	"FinGenius/pkg/util"
)

// AmountConvention says which sign the provider uses for money leaving the account.
type AmountConvention string

const (
	// OutflowPositive: positive amounts are debits (Plaid style).
	OutflowPositive AmountConvention = "outflow_positive"
	// InflowPositive: positive amounts are credits.
	InflowPositive AmountConvention = "inflow_positive"
)

func ParseConvention(s string) (AmountConvention, error) {
	switch c := AmountConvention(strings.ToLower(strings.TrimSpace(s))); c {
	case OutflowPositive, InflowPositive:
		return c, nil
	case "":
		return OutflowPositive, nil
	default:
		return "", fmt.Errorf("unknown amount convention %q", s)
	}
}

// Normalize converts a provider row into a ledger transaction with an
// absolute amount and an explicit direction.
func Normalize(pt models.ProviderTransaction, conv AmountConvention) (models.Transaction, error) {
	date, ok := util.ParseTime(pt.Date)
	if !ok {
		return models.Transaction{}, fmt.Errorf("transaction %s: unparseable date %q", pt.TransactionID, pt.Date)
	}

	outflow := pt.Amount > 0
	if conv == InflowPositive {
		outflow = pt.Amount < 0
	}
	typ := models.Credit
	if outflow {
		typ = models.Debit
	}

	return models.Transaction{
		ProviderTxID: pt.TransactionID,
		Description:  strings.TrimSpace(pt.Name),
		Amount:       math.Abs(pt.Amount),
		Date:         util.Day(date),
		Category:     categoryOf(pt),
		Type:         typ,
	}, nil
}

// categoryOf prefers the detailed legacy hierarchy's first level, then the
// personal finance category, title-cased.
func categoryOf(pt models.ProviderTransaction) string {
	if len(pt.Category) > 0 && pt.Category[0] != "" {
		return pt.Category[0]
	}
	if pt.PFCPrimary == "" {
		return ""
	}
	words := strings.Split(strings.ToLower(pt.PFCPrimary), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
