package services

import (
	"finbot/internal/core"
)

// TransactionResult is returned by Deposit and Withdraw.
type TransactionResult struct {
	Transaction core.Transaction
	Balance     core.Money
	// CategoryFallback is set when the requested category was unknown and
	// the transaction was filed under core.DefaultCategory instead.
	CategoryFallback  bool
	RequestedCategory string
	HighSpend         *HighSpendAlert
}

// HighSpendAlert flags a category whose month-to-date spend passed the
// configured threshold. It never blocks the withdrawal.
type HighSpendAlert struct {
	Category   string
	MonthTotal core.Money
	Threshold  core.Money
}

type GoalProgress struct {
	Set       bool
	Target    core.Money
	Balance   core.Money
	Progress  core.Percent
	Remaining core.Money
	// MonthsToGoal is only meaningful when HasProjection is true.
	MonthsToGoal      int64
	HasProjection     bool
	AverageMonthlyNet core.Money
}

type BalanceReport struct {
	User                core.User
	Goal                GoalProgress
	Month               core.Totals
	MonthlyBudget       *core.BudgetUsage
	SavingsGoals        []core.SavingsGoal
	UnreadNotifications int64
}

type BudgetResult struct {
	Budget            core.Budget
	CategoryFallback  bool
	RequestedCategory string
}

type SavingsDepositResult struct {
	Goal        core.SavingsGoal
	Transaction core.Transaction
	Balance     core.Money
}

type HistoryResult struct {
	Days         int
	Category     string
	Transactions []core.Transaction
}

type StatsResult struct {
	Week  core.Totals
	Month core.Totals
}

type Report struct {
	Period        core.Period
	Window        core.Window
	Totals        core.Totals
	TopCategories []core.CategoryAmount
	// Trend is the expense change against the previous window of the same
	// kind; HasTrend is false when that window had no expenses.
	Trend           core.Percent
	HasTrend        bool
	PreviousExpense core.Money
}

type SearchResult struct {
	Keyword      string
	Transactions []core.Transaction
}

type CategoryList struct {
	Income  []core.Category
	Expense []core.Category
}

type ChartType string

const (
	ChartPie ChartType = "pie"
	ChartBar ChartType = "bar"
)

// ChartData is the series an external renderer turns into an image.
type ChartData struct {
	Type   ChartType
	Period core.Period
	Series []core.CategoryAmount
}

type ExportResult struct {
	Filename    string
	ContentType string
	Body        []byte
}
