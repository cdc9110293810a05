// Package export renders a user's ledger as a downloadable document.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"finbot/internal/core"
)

type Format string

const (
	JSON Format = "json"
	CSV  Format = "csv"
)

const timeLayout = "2006-01-02 15:04:05"

var csvHeader = []string{"id", "date", "type", "category", "amount", "description"}

// ParseFormat defaults to JSON when s is empty.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return JSON, nil
	case "csv":
		return CSV, nil
	}
	return "", core.ErrInvalidFormat
}

func (f Format) ContentType() string {
	if f == CSV {
		return "text/csv; charset=utf-8"
	}
	return "application/json"
}

// Filename is the suggested attachment name for a user's export.
func (f Format) Filename(userID int64) string {
	return fmt.Sprintf("finbot_%d.%s", userID, f)
}

type document struct {
	User         userDoc          `json:"user"`
	Transactions []transactionDoc `json:"transactions"`
	SavingsGoals []savingsGoalDoc `json:"savings_goals"`
	Budgets      []budgetDoc      `json:"budgets"`
}

type userDoc struct {
	ID            int64  `json:"id"`
	Balance       int64  `json:"balance"`
	Goal          int64  `json:"goal"`
	MonthlyBudget int64  `json:"monthly_budget"`
	Currency      string `json:"currency"`
	Notifications bool   `json:"notifications"`
	CreatedAt     string `json:"created_at"`
}

type transactionDoc struct {
	ID          int64  `json:"id"`
	Date        string `json:"date"`
	Type        string `json:"type"`
	Category    string `json:"category"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
}

type savingsGoalDoc struct {
	Name        string `json:"name"`
	Target      int64  `json:"target"`
	Current     int64  `json:"current"`
	Deadline    string `json:"deadline,omitempty"`
	Description string `json:"description,omitempty"`
	Completed   bool   `json:"completed"`
}

type budgetDoc struct {
	Category  string `json:"category"`
	Limit     int64  `json:"limit"`
	Period    string `json:"period"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// Write encodes l to w. Timestamps are rendered in loc.
func Write(w io.Writer, f Format, l core.Ledger, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	switch f {
	case JSON:
		return writeJSON(w, l, loc)
	case CSV:
		return writeCSV(w, l, loc)
	}
	return core.ErrInvalidFormat
}

func writeJSON(w io.Writer, l core.Ledger, loc *time.Location) error {
	doc := document{
		User: userDoc{
			ID:            l.User.ID,
			Balance:       l.User.Balance.Int64(),
			Goal:          l.User.Goal.Int64(),
			MonthlyBudget: l.User.MonthlyBudget.Int64(),
			Currency:      l.User.Currency,
			Notifications: l.User.Notifications,
			CreatedAt:     l.User.CreatedAt.In(loc).Format(timeLayout),
		},
		Transactions: make([]transactionDoc, 0, len(l.Transactions)),
		SavingsGoals: make([]savingsGoalDoc, 0, len(l.SavingsGoals)),
		Budgets:      make([]budgetDoc, 0, len(l.Budgets)),
	}
	for _, t := range l.Transactions {
		doc.Transactions = append(doc.Transactions, transactionDoc{
			ID:          t.ID,
			Date:        t.CreatedAt.In(loc).Format(timeLayout),
			Type:        string(t.Type),
			Category:    t.Category,
			Amount:      t.Amount.Int64(),
			Description: t.Description,
		})
	}
	for _, g := range l.SavingsGoals {
		doc.SavingsGoals = append(doc.SavingsGoals, savingsGoalDoc{
			Name:        g.Name,
			Target:      g.Target.Int64(),
			Current:     g.Current.Int64(),
			Deadline:    g.Deadline.String(),
			Description: g.Description,
			Completed:   g.Completed(),
		})
	}
	for _, b := range l.Budgets {
		doc.Budgets = append(doc.Budgets, budgetDoc{
			Category:  b.Category,
			Limit:     b.Limit.Int64(),
			Period:    string(b.Period),
			StartDate: b.StartDate.String(),
			EndDate:   b.EndDate.String(),
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode json export: %w", err)
	}
	return nil
}

func writeCSV(w io.Writer, l core.Ledger, loc *time.Location) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, t := range l.Transactions {
		record := []string{
			strconv.FormatInt(t.ID, 10),
			t.CreatedAt.In(loc).Format(timeLayout),
			string(t.Type),
			t.Category,
			strconv.FormatInt(t.Amount.Int64(), 10),
			t.Description,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv record %d: %w", t.ID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
