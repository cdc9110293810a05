package core

import "time"

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// Totals sums a window of the ledger by direction.
type Totals struct {
	Income  Money
	Expense Money
}

// Net is income minus expense and may be negative.
func (t Totals) Net() Money {
	return t.Income - t.Expense
}

// Filter selects ledger rows. Zero fields are ignored.
type Filter struct {
	From     time.Time
	To       time.Time
	Type     TxType
	Category string
	Search   string // Substring matched against description and category
	Limit    int
}

// GroupBy selects the aggregation dimension.
type GroupBy string

const (
	GroupByType     GroupBy = "type"
	GroupByCategory GroupBy = "category"
)

// BudgetBand classifies how much of a budget was consumed.
type BudgetBand string

const (
	BandSafe     BudgetBand = "safe"
	BandWarning  BudgetBand = "warning"
	BandExceeded BudgetBand = "exceeded"
)

// Band: under 80% safe, 80-100% warning, over 100% exceeded. It compares
// the exact amounts; the rounded Percent is for display only.
func Band(spent, limit Money) BudgetBand {
	switch {
	case spent > limit:
		return BandExceeded
	case spent*100 >= limit*80:
		return BandWarning
	default:
		return BandSafe
	}
}

// UserStats are the cumulative figures achievements are derived from.
type UserStats struct {
	TransactionCount int64
	TotalIncome      Money
	ActiveDays       int64
	Balance          Money
}
