package features

import (
	"sort"
	"time"

	"FinGenius/internal/domain/models"
	"FinGenius/pkg/util"
)

// DailyFlow is a contiguous daily net cash flow series.
type DailyFlow struct {
	Start  time.Time
	Values []float64
	// Observed counts the days that had at least one transaction.
	Observed int
}

// End returns the calendar day of the last observation.
func (d DailyFlow) End() time.Time {
	if len(d.Values) == 0 {
		return d.Start
	}
	return d.Start.AddDate(0, 0, len(d.Values)-1)
}

// DailyNetFlow buckets credits minus debits by UTC calendar day and fills
// missing days between the first and last transaction with zero.
func DailyNetFlow(txs []models.Transaction) DailyFlow {
	if len(txs) == 0 {
		return DailyFlow{}
	}
	byDay := make(map[time.Time]float64)
	first, last := util.Day(txs[0].Date), util.Day(txs[0].Date)
	for _, t := range txs {
		d := util.Day(t.Date)
		byDay[d] += t.SignedAmount()
		if d.Before(first) {
			first = d
		}
		if d.After(last) {
			last = d
		}
	}
	n := util.DaysBetween(first, last) + 1
	values := make([]float64, n)
	for d, v := range byDay {
		values[util.DaysBetween(first, d)] = v
	}
	return DailyFlow{Start: first, Values: values, Observed: len(byDay)}
}

// MeanSpendByCategory averages debit amounts per category. Only rows with a
// category are counted.
func MeanSpendByCategory(txs []models.Transaction) map[string]float64 {
	sum := make(map[string]float64)
	cnt := make(map[string]int)
	for _, t := range txs {
		if t.Type != models.Debit || t.Category == "" {
			continue
		}
		sum[t.Category] += t.Amount
		cnt[t.Category]++
	}
	out := make(map[string]float64, len(sum))
	for c, s := range sum {
		out[c] = s / float64(cnt[c])
	}
	return out
}

// SpendMatrix turns user -> category -> total into a dense matrix with a
// stable user and category order.
func SpendMatrix(spend map[string]map[string]float64) (users, categories []string, rows [][]float64) {
	catSet := make(map[string]struct{})
	for u, cats := range spend {
		users = append(users, u)
		for c := range cats {
			catSet[c] = struct{}{}
		}
	}
	for c := range catSet {
		categories = append(categories, c)
	}
	sort.Strings(users)
	sort.Strings(categories)

	rows = make([][]float64, len(users))
	for i, u := range users {
		rows[i] = Vector(spend[u], categories)
	}
	return users, categories, rows
}

// Vector projects a category -> amount map onto a fixed category order.
// Unknown categories are dropped; missing ones are zero.
func Vector(spend map[string]float64, categories []string) []float64 {
	row := make([]float64, len(categories))
	for j, c := range categories {
		row[j] = spend[c]
	}
	return row
}
