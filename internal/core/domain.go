package core

import (
	"strings"
	"time"
	"unicode/utf8"
)

const (
	Income  TxType = "income"
	Expense TxType = "expense"
)

const (
	MonthlyPeriod PeriodKind = "monthly"
)

const (
	// DefaultCategory receives transactions whose category is unknown.
	DefaultCategory = "Other"
	// SavingsCategory tags expenses that move money into a savings goal.
	SavingsCategory = "Savings"
	// TransferCategory tags both legs of a user-to-user transfer.
	TransferCategory = "Transfer"
)

type (
	TxType string

	PeriodKind string

	User struct {
		ID            int64
		Balance       Money
		Goal          Money // Savings target, zero when unset
		MonthlyBudget Money // Zero when unset
		Currency      string
		Notifications bool
		CreatedAt     time.Time
		LastActive    time.Time
	}

	Transaction struct {
		ID          int64
		UserID      int64
		Type        TxType
		Amount      Money
		Category    string
		Description string
		CreatedAt   time.Time
	}

	Category struct {
		ID     int64
		UserID int64 // Zero for shared default categories
		Name   string
		Type   TxType
		Icon   string
		Color  string
	}

	Budget struct {
		ID        int64
		UserID    int64
		Category  string
		Limit     Money
		Period    PeriodKind
		StartDate Date
		EndDate   Date
	}

	SavingsGoal struct {
		ID          int64
		UserID      int64
		Name        string
		Target      Money
		Current     Money
		Deadline    Date // Zero when no deadline was given
		Description string
		CreatedAt   time.Time
	}

	Notification struct {
		ID        int64
		UserID    int64
		Message   string
		Kind      string
		Read      bool
		CreatedAt time.Time
	}
)

// ParseTxType accepts the canonical names plus a few chat shorthands.
func ParseTxType(s string) (TxType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "income", "in", "thu":
		return Income, nil
	case "expense", "out", "chi":
		return Expense, nil
	}
	return "", ErrInvalidType
}

func (t TxType) Valid() bool {
	return t == Income || t == Expense
}

// Sign returns +1 for income and -1 for expense.
func (t TxType) Sign() int64 {
	if t == Expense {
		return -1
	}
	return 1
}

func (t Transaction) Validate() error {
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if utf8.RuneCountInString(t.Description) > 200 {
		return ErrDescriptionTooLong
	}
	return nil
}

// Completed reports whether the accumulated amount reached the target.
func (g SavingsGoal) Completed() bool {
	return g.Target > 0 && g.Current >= g.Target
}

// Remaining is never negative.
func (g SavingsGoal) Remaining() Money {
	if g.Current >= g.Target {
		return 0
	}
	return g.Target - g.Current
}

func (g SavingsGoal) Progress() Percent {
	return Progress(g.Current, g.Target)
}

// Validate checks a new goal; today is the caller's current calendar date.
func (g SavingsGoal) Validate(today Date) error {
	if strings.TrimSpace(g.Name) == "" {
		return ErrMissingArgument
	}
	if utf8.RuneCountInString(g.Name) > 100 {
		return ErrNameTooLong
	}
	if err := g.Target.Validate(); err != nil {
		return err
	}
	if !g.Deadline.IsZero() && !g.Deadline.After(today.Time) {
		return ErrDeadlineNotFuture
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.Category) == "" {
		return ErrMissingArgument
	}
	return b.Limit.Validate()
}

// Settings are the per-user preferences changed by the settings command.
type Settings struct {
	Currency      string
	Notifications bool
	MonthlyBudget Money
}

// TransferReceipt holds both ledger legs of a committed transfer.
type TransferReceipt struct {
	Sent             Transaction
	Received         Transaction
	SenderBalance    Money
	RecipientBalance Money
}

// BudgetUsage is a budget with the expense total of its window.
type BudgetUsage struct {
	Budget Budget
	Spent  Money
}

func (u BudgetUsage) Percent() Percent {
	return Ratio(u.Spent, u.Budget.Limit)
}

func (u BudgetUsage) Band() BudgetBand {
	return Band(u.Spent, u.Budget.Limit)
}

// Ledger is everything stored for one user, used by export.
type Ledger struct {
	User         User
	Transactions []Transaction
	SavingsGoals []SavingsGoal
	Budgets      []Budget
}
