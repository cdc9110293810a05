package storage

import "database/sql"

// Row shapes as stored. Timestamps are UTC text in timestampLayout,
// calendar dates are YYYY-MM-DD.

type User struct {
	UserID        int64
	Balance       int64
	Goal          int64
	MonthlyBudget int64
	Currency      string
	Notifications int64
	CreatedAt     string
	LastActive    string
}

type Transaction struct {
	ID          int64
	UserID      int64
	Type        string
	Amount      int64
	Category    string
	Description string
	CreatedAt   string
}

type Category struct {
	ID     int64
	UserID sql.NullInt64
	Name   string
	Type   string
	Icon   string
	Color  string
}

type Budget struct {
	ID          int64
	UserID      int64
	Category    string
	LimitAmount int64
	Period      string
	StartDate   string
	EndDate     string
}

type SavingsGoal struct {
	ID          int64
	UserID      int64
	Name        string
	Target      int64
	Current     int64
	Deadline    sql.NullString
	Description string
	CreatedAt   string
}

type Notification struct {
	ID        int64
	UserID    int64
	Message   string
	Kind      string
	IsRead    int64
	CreatedAt string
}
