package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"finbot/internal/core"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const timestampLayout = "2006-01-02 15:04:05"

// Bounds used when a filter leaves From or To open.
const (
	minTimestamp = "0000-01-01 00:00:00"
	maxTimestamp = "9999-12-31 23:59:59"
)

type SQLiteRepository struct {
	db              *sql.DB
	queries         *Queries
	defaultCurrency string
}

func NewSQLiteRepository(dbPath, defaultCurrency string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Run migrations before the main connection sees the schema
	if _, err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if defaultCurrency == "" {
		defaultCurrency = "VND"
	}

	return &SQLiteRepository{
		db:              db,
		queries:         New(db),
		defaultCurrency: defaultCurrency,
	}, nil
}

// dsn enables foreign keys and makes every transaction take the write
// lock up front, so a multi-row mutation is never interleaved with another.
func dsn(dbPath string) string {
	return "file:" + dbPath +
		"?_pragma=foreign_keys(1)" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=journal_mode(WAL)" +
		"&_txlock=immediate"
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// withTx runs fn in one transaction, committing only when fn returns nil.
func (r *SQLiteRepository) withTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.ErrorContext(ctx, "Rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ---- users ----

// GetOrCreateUser returns the user, inserting a zero-balance row on first
// contact, and refreshes last_active either way.
func (r *SQLiteRepository) GetOrCreateUser(ctx context.Context, userID int64, at time.Time) (core.User, error) {
	var user core.User
	err := r.withTx(ctx, func(q *Queries) error {
		created, err := r.ensureUser(ctx, q, userID, at)
		if err != nil {
			return err
		}
		if !created {
			if err := q.TouchUser(ctx, userID, formatTimestamp(at)); err != nil {
				return fmt.Errorf("touch user: %w", err)
			}
		}
		row, err := q.GetUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("get user: %w", err)
		}
		user = toCoreUser(row)
		if created {
			slog.InfoContext(ctx, "User created", "user_id", userID)
		}
		return nil
	})
	return user, err
}

// User reads a user without creating or touching it.
func (r *SQLiteRepository) User(ctx context.Context, userID int64) (core.User, error) {
	row, err := r.queries.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.User{}, fmt.Errorf("user %d %w", userID, core.ErrNotFound)
		}
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	return toCoreUser(row), nil
}

func (r *SQLiteRepository) ensureUser(ctx context.Context, q *Queries, userID int64, at time.Time) (bool, error) {
	n, err := q.CreateUserIfMissing(ctx, CreateUserParams{
		UserID:   userID,
		Currency: r.defaultCurrency,
		Now:      formatTimestamp(at),
	})
	if err != nil {
		return false, fmt.Errorf("create user: %w", err)
	}
	return n == 1, nil
}

func (r *SQLiteRepository) SetGoal(ctx context.Context, userID int64, goal core.Money) error {
	if err := r.queries.SetGoal(ctx, userID, int64(goal)); err != nil {
		return fmt.Errorf("set goal: %w", err)
	}
	slog.InfoContext(ctx, "Goal updated", "user_id", userID, "goal", int64(goal))
	return nil
}

func (r *SQLiteRepository) UpdateSettings(ctx context.Context, userID int64, s core.Settings) error {
	var notify int64
	if s.Notifications {
		notify = 1
	}
	err := r.queries.UpdateSettings(ctx, UpdateSettingsParams{
		UserID:        userID,
		Currency:      s.Currency,
		Notifications: notify,
		MonthlyBudget: int64(s.MonthlyBudget),
	})
	if err != nil {
		return fmt.Errorf("update settings: %w", err)
	}
	return nil
}

// TotalBalance sums every user's balance.
func (r *SQLiteRepository) TotalBalance(ctx context.Context) (core.Money, error) {
	total, err := r.queries.SumAllBalances(ctx)
	if err != nil {
		return 0, fmt.Errorf("sum balances: %w", err)
	}
	return core.Money(total), nil
}

// ---- ledger mutations ----

// ApplyTransaction moves the balance by the signed amount and appends the
// ledger row in one transaction. An expense larger than the balance fails
// with *core.InsufficientFundsError and changes nothing.
func (r *SQLiteRepository) ApplyTransaction(ctx context.Context, t core.Transaction) (core.Transaction, core.Money, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, 0, err
	}

	var (
		stored  core.Transaction
		balance core.Money
	)
	err := r.withTx(ctx, func(q *Queries) error {
		if _, err := r.ensureUser(ctx, q, t.UserID, t.CreatedAt); err != nil {
			return err
		}
		if err := moveBalance(ctx, q, t.UserID, t.Type, t.Amount); err != nil {
			return err
		}
		row, err := insertTransaction(ctx, q, t)
		if err != nil {
			return err
		}
		b, err := q.GetBalance(ctx, t.UserID)
		if err != nil {
			return fmt.Errorf("get balance: %w", err)
		}
		stored, balance = row, core.Money(b)
		return nil
	})
	if err != nil {
		return core.Transaction{}, 0, err
	}

	slog.InfoContext(ctx, "Transaction recorded",
		"id", stored.ID,
		"user_id", stored.UserID,
		"type", string(stored.Type),
		"amount", int64(stored.Amount),
		"category", stored.Category,
		"balance", int64(balance))
	return stored, balance, nil
}

// Transfer debits from and credits to, writing one expense and one income
// row, all inside a single write transaction. The recipient row is created
// when missing.
func (r *SQLiteRepository) Transfer(ctx context.Context, from, to int64, amount core.Money, description string, at time.Time) (core.TransferReceipt, error) {
	if from == to {
		return core.TransferReceipt{}, core.ErrSelfTransfer
	}
	if err := amount.Validate(); err != nil {
		return core.TransferReceipt{}, err
	}

	var receipt core.TransferReceipt
	err := r.withTx(ctx, func(q *Queries) error {
		for _, id := range []int64{from, to} {
			if _, err := r.ensureUser(ctx, q, id, at); err != nil {
				return err
			}
		}
		if err := moveBalance(ctx, q, from, core.Expense, amount); err != nil {
			return err
		}
		if err := moveBalance(ctx, q, to, core.Income, amount); err != nil {
			return err
		}

		sent, err := insertTransaction(ctx, q, core.Transaction{
			UserID: from, Type: core.Expense, Amount: amount,
			Category: core.TransferCategory, Description: description, CreatedAt: at,
		})
		if err != nil {
			return err
		}
		received, err := insertTransaction(ctx, q, core.Transaction{
			UserID: to, Type: core.Income, Amount: amount,
			Category: core.TransferCategory, Description: description, CreatedAt: at,
		})
		if err != nil {
			return err
		}

		senderBalance, err := q.GetBalance(ctx, from)
		if err != nil {
			return fmt.Errorf("get sender balance: %w", err)
		}
		recipientBalance, err := q.GetBalance(ctx, to)
		if err != nil {
			return fmt.Errorf("get recipient balance: %w", err)
		}

		receipt = core.TransferReceipt{
			Sent:             sent,
			Received:         received,
			SenderBalance:    core.Money(senderBalance),
			RecipientBalance: core.Money(recipientBalance),
		}
		return nil
	})
	if err != nil {
		return core.TransferReceipt{}, err
	}

	slog.InfoContext(ctx, "Transfer committed",
		"from", from,
		"to", to,
		"amount", int64(amount),
		"sender_balance", int64(receipt.SenderBalance))
	return receipt, nil
}

// DepositToSavingsGoal moves amount from the user's balance into the named
// goal and records it as a Savings expense, atomically.
func (r *SQLiteRepository) DepositToSavingsGoal(ctx context.Context, userID int64, name string, amount core.Money, at time.Time) (core.SavingsGoal, core.Transaction, core.Money, error) {
	if err := amount.Validate(); err != nil {
		return core.SavingsGoal{}, core.Transaction{}, 0, err
	}

	var (
		goal    core.SavingsGoal
		txn     core.Transaction
		balance core.Money
	)
	err := r.withTx(ctx, func(q *Queries) error {
		row, err := findSavingsGoal(ctx, q, userID, name)
		if err != nil {
			return err
		}
		if err := moveBalance(ctx, q, userID, core.Expense, amount); err != nil {
			return err
		}
		updated, err := q.AddToSavingsGoal(ctx, row.ID, int64(amount))
		if err != nil {
			return fmt.Errorf("credit savings goal: %w", err)
		}
		txn, err = insertTransaction(ctx, q, core.Transaction{
			UserID: userID, Type: core.Expense, Amount: amount,
			Category: core.SavingsCategory, Description: updated.Name, CreatedAt: at,
		})
		if err != nil {
			return err
		}
		b, err := q.GetBalance(ctx, userID)
		if err != nil {
			return fmt.Errorf("get balance: %w", err)
		}
		goal, balance = toCoreSavingsGoal(updated), core.Money(b)
		return nil
	})
	if err != nil {
		return core.SavingsGoal{}, core.Transaction{}, 0, err
	}

	slog.InfoContext(ctx, "Savings deposit recorded",
		"user_id", userID,
		"goal", goal.Name,
		"amount", int64(amount),
		"current", int64(goal.Current),
		"balance", int64(balance))
	return goal, txn, balance, nil
}

// moveBalance applies one signed balance change; expenses use the guarded
// debit so an overdraft surfaces as InsufficientFundsError.
func moveBalance(ctx context.Context, q *Queries, userID int64, typ core.TxType, amount core.Money) error {
	if typ == core.Income {
		n, err := q.CreditBalance(ctx, userID, int64(amount))
		if err != nil {
			return fmt.Errorf("credit balance: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("credit balance: user %d %w", userID, core.ErrNotFound)
		}
		return nil
	}

	n, err := q.DebitBalance(ctx, userID, int64(amount))
	if err != nil {
		return fmt.Errorf("debit balance: %w", err)
	}
	if n == 0 {
		current, err := q.GetBalance(ctx, userID)
		if err != nil {
			return fmt.Errorf("get balance: %w", err)
		}
		return &core.InsufficientFundsError{Balance: core.Money(current), Required: amount}
	}
	return nil
}

func insertTransaction(ctx context.Context, q *Queries, t core.Transaction) (core.Transaction, error) {
	row, err := q.CreateTransaction(ctx, CreateTransactionParams{
		UserID:      t.UserID,
		Type:        string(t.Type),
		Amount:      int64(t.Amount),
		Category:    t.Category,
		Description: t.Description,
		CreatedAt:   formatTimestamp(t.CreatedAt),
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	return toCoreTransaction(row), nil
}

// ---- ledger queries ----

// QueryTransactions lists rows newest first. Search is matched without
// regard to case against description and category; SQLite's LIKE only
// folds ASCII, so it is applied here.
func (r *SQLiteRepository) QueryTransactions(ctx context.Context, userID int64, f core.Filter) ([]core.Transaction, error) {
	limit := int64(f.Limit)
	if limit <= 0 || f.Search != "" {
		limit = -1
	}
	from, to := windowBounds(f.From, f.To)
	rows, err := r.queries.ListTransactions(ctx, ListTransactionsParams{
		UserID:   userID,
		From:     from,
		To:       to,
		Type:     string(f.Type),
		Category: f.Category,
		Limit:    limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	needle := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		if needle != "" &&
			!strings.Contains(strings.ToLower(row.Description), needle) &&
			!strings.Contains(strings.ToLower(row.Category), needle) {
			continue
		}
		out = append(out, toCoreTransaction(row))
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

// Aggregate sums amounts in the filter's window grouped by type or
// category, largest first. Type and Category filters narrow the rows.
func (r *SQLiteRepository) Aggregate(ctx context.Context, userID int64, f core.Filter, by core.GroupBy) ([]core.CategoryAmount, error) {
	from, to := windowBounds(f.From, f.To)

	var (
		rows []SumRow
		err  error
	)
	switch by {
	case core.GroupByType:
		if f.Category != "" {
			return r.aggregateTypesForCategory(ctx, userID, f)
		}
		rows, err = r.queries.SumByType(ctx, SumParams{UserID: userID, From: from, To: to})
	case core.GroupByCategory:
		rows, err = r.queries.SumByCategory(ctx, SumByCategoryParams{UserID: userID, From: from, To: to, Type: string(f.Type)})
	default:
		return nil, fmt.Errorf("unsupported grouping %q", by)
	}
	if err != nil {
		return nil, fmt.Errorf("aggregate by %s: %w", by, err)
	}

	out := make([]core.CategoryAmount, 0, len(rows))
	for _, row := range rows {
		if by == core.GroupByType && f.Type != "" && row.Key != string(f.Type) {
			continue
		}
		if by == core.GroupByCategory && f.Category != "" && row.Key != f.Category {
			continue
		}
		out = append(out, core.CategoryAmount{Name: row.Key, Amount: core.Money(row.Total)})
	}
	return out, nil
}

func (r *SQLiteRepository) aggregateTypesForCategory(ctx context.Context, userID int64, f core.Filter) ([]core.CategoryAmount, error) {
	from, to := windowBounds(f.From, f.To)
	var out []core.CategoryAmount
	for _, typ := range []core.TxType{core.Income, core.Expense} {
		if f.Type != "" && f.Type != typ {
			continue
		}
		total, err := r.queries.SumCategory(ctx, SumCategoryParams{
			UserID: userID, Type: string(typ), Category: f.Category, From: from, To: to,
		})
		if err != nil {
			return nil, fmt.Errorf("sum category: %w", err)
		}
		if total > 0 {
			out = append(out, core.CategoryAmount{Name: string(typ), Amount: core.Money(total)})
		}
	}
	return out, nil
}

// Totals is the income/expense split of a window.
func (r *SQLiteRepository) Totals(ctx context.Context, userID int64, w core.Window) (core.Totals, error) {
	groups, err := r.Aggregate(ctx, userID, core.Filter{From: w.From, To: w.To}, core.GroupByType)
	if err != nil {
		return core.Totals{}, err
	}
	var t core.Totals
	for _, g := range groups {
		switch core.TxType(g.Name) {
		case core.Income:
			t.Income = g.Amount
		case core.Expense:
			t.Expense = g.Amount
		}
	}
	return t, nil
}

func (r *SQLiteRepository) UserStats(ctx context.Context, userID int64) (core.UserStats, error) {
	row, err := r.queries.GetUserStats(ctx, userID)
	if err != nil {
		return core.UserStats{}, fmt.Errorf("get user stats: %w", err)
	}
	balance, err := r.queries.GetBalance(ctx, userID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return core.UserStats{}, fmt.Errorf("get balance: %w", err)
	}
	return core.UserStats{
		TransactionCount: row.TransactionCount,
		TotalIncome:      core.Money(row.TotalIncome),
		ActiveDays:       row.ActiveDays,
		Balance:          core.Money(balance),
	}, nil
}

// ---- categories ----

func (r *SQLiteRepository) ListCategories(ctx context.Context, userID int64) ([]core.Category, error) {
	rows, err := r.queries.ListCategories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]core.Category, len(rows))
	for i, row := range rows {
		out[i] = toCoreCategory(row)
	}
	return out, nil
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	row, err := r.queries.CreateCategory(ctx, CreateCategoryParams{
		UserID: c.UserID,
		Name:   c.Name,
		Type:   string(c.Type),
		Icon:   c.Icon,
		Color:  c.Color,
	})
	if err != nil {
		if isUniqueViolation(err) {
			return core.Category{}, core.ErrCategoryExists
		}
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	slog.InfoContext(ctx, "Category created", "user_id", c.UserID, "name", c.Name, "type", string(c.Type))
	return toCoreCategory(row), nil
}

// ---- budgets ----

// SetBudget inserts or replaces the budget for (user, category, period).
func (r *SQLiteRepository) SetBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	row, err := r.queries.UpsertBudget(ctx, UpsertBudgetParams{
		UserID:      b.UserID,
		Category:    b.Category,
		LimitAmount: int64(b.Limit),
		Period:      string(b.Period),
		StartDate:   b.StartDate.String(),
		EndDate:     b.EndDate.String(),
	})
	if err != nil {
		return core.Budget{}, fmt.Errorf("upsert budget: %w", err)
	}
	slog.InfoContext(ctx, "Budget set",
		"user_id", b.UserID,
		"category", b.Category,
		"limit", int64(b.Limit),
		"period", string(b.Period))
	return toCoreBudget(row), nil
}

func (r *SQLiteRepository) ListBudgets(ctx context.Context, userID int64) ([]core.Budget, error) {
	rows, err := r.queries.ListBudgets(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	out := make([]core.Budget, len(rows))
	for i, row := range rows {
		out[i] = toCoreBudget(row)
	}
	return out, nil
}

// BudgetUsage joins each monthly budget with its expense total inside w.
func (r *SQLiteRepository) BudgetUsage(ctx context.Context, userID int64, w core.Window) ([]core.BudgetUsage, error) {
	from, to := windowBounds(w.From, w.To)
	rows, err := r.queries.ListBudgetUsage(ctx, BudgetUsageParams{
		UserID: userID,
		Period: string(core.MonthlyPeriod),
		From:   from,
		To:     to,
	})
	if err != nil {
		return nil, fmt.Errorf("list budget usage: %w", err)
	}
	out := make([]core.BudgetUsage, len(rows))
	for i, row := range rows {
		out[i] = core.BudgetUsage{Budget: toCoreBudget(row.Budget), Spent: core.Money(row.Spent)}
	}
	return out, nil
}

// ---- savings goals ----

func (r *SQLiteRepository) CreateSavingsGoal(ctx context.Context, g core.SavingsGoal) (core.SavingsGoal, error) {
	var deadline sql.NullString
	if !g.Deadline.IsZero() {
		deadline = sql.NullString{String: g.Deadline.String(), Valid: true}
	}

	var created core.SavingsGoal
	err := r.withTx(ctx, func(q *Queries) error {
		if _, err := findSavingsGoal(ctx, q, g.UserID, g.Name); err == nil {
			return core.ErrGoalExists
		} else if !errors.Is(err, core.ErrGoalNotFound) {
			return err
		}
		row, err := q.CreateSavingsGoal(ctx, CreateSavingsGoalParams{
			UserID:      g.UserID,
			Name:        g.Name,
			Target:      int64(g.Target),
			Deadline:    deadline,
			Description: g.Description,
			CreatedAt:   formatTimestamp(g.CreatedAt),
		})
		if err != nil {
			if isUniqueViolation(err) {
				return core.ErrGoalExists
			}
			return fmt.Errorf("create savings goal: %w", err)
		}
		created = toCoreSavingsGoal(row)
		return nil
	})
	if err != nil {
		return core.SavingsGoal{}, err
	}
	slog.InfoContext(ctx, "Savings goal created", "user_id", g.UserID, "name", g.Name, "target", int64(g.Target))
	return created, nil
}

func (r *SQLiteRepository) ListSavingsGoals(ctx context.Context, userID int64) ([]core.SavingsGoal, error) {
	rows, err := r.queries.ListSavingsGoals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list savings goals: %w", err)
	}
	out := make([]core.SavingsGoal, len(rows))
	for i, row := range rows {
		out[i] = toCoreSavingsGoal(row)
	}
	return out, nil
}

// findSavingsGoal matches the name exactly first, then without regard to case.
func findSavingsGoal(ctx context.Context, q *Queries, userID int64, name string) (SavingsGoal, error) {
	row, err := q.GetSavingsGoalByName(ctx, userID, name)
	if err == nil {
		return row, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return SavingsGoal{}, fmt.Errorf("get savings goal: %w", err)
	}
	rows, err := q.ListSavingsGoals(ctx, userID)
	if err != nil {
		return SavingsGoal{}, fmt.Errorf("list savings goals: %w", err)
	}
	for _, g := range rows {
		if strings.EqualFold(g.Name, name) {
			return g, nil
		}
	}
	return SavingsGoal{}, core.ErrGoalNotFound
}

// ---- notifications ----

func (r *SQLiteRepository) CreateNotification(ctx context.Context, n core.Notification) (core.Notification, error) {
	row, err := r.queries.CreateNotification(ctx, CreateNotificationParams{
		UserID:    n.UserID,
		Message:   n.Message,
		Kind:      n.Kind,
		CreatedAt: formatTimestamp(n.CreatedAt),
	})
	if err != nil {
		return core.Notification{}, fmt.Errorf("create notification: %w", err)
	}
	return toCoreNotification(row), nil
}

// HasNotificationSince reports whether an identical notification was
// already created at or after since.
func (r *SQLiteRepository) HasNotificationSince(ctx context.Context, n core.Notification, since time.Time) (bool, error) {
	ok, err := r.queries.HasNotificationSince(ctx, HasNotificationParams{
		UserID:  n.UserID,
		Kind:    n.Kind,
		Message: n.Message,
		Since:   formatTimestamp(since),
	})
	if err != nil {
		return false, fmt.Errorf("check notification: %w", err)
	}
	return ok, nil
}

// ConsumeNotifications returns unread notifications and marks them read.
func (r *SQLiteRepository) ConsumeNotifications(ctx context.Context, userID int64) ([]core.Notification, error) {
	var out []core.Notification
	err := r.withTx(ctx, func(q *Queries) error {
		rows, err := q.ListUnreadNotifications(ctx, userID)
		if err != nil {
			return fmt.Errorf("list notifications: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		for _, row := range rows {
			n := toCoreNotification(row)
			n.Read = true
			out = append(out, n)
		}
		if err := q.MarkNotificationsRead(ctx, userID, rows[len(rows)-1].ID); err != nil {
			return fmt.Errorf("mark notifications read: %w", err)
		}
		return nil
	})
	return out, err
}

func (r *SQLiteRepository) CountUnreadNotifications(ctx context.Context, userID int64) (int64, error) {
	n, err := r.queries.CountUnreadNotifications(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("count notifications: %w", err)
	}
	return n, nil
}

// ---- export ----

// Ledger reads everything stored for the user in one transaction.
func (r *SQLiteRepository) Ledger(ctx context.Context, userID int64) (core.Ledger, error) {
	var l core.Ledger
	err := r.withTx(ctx, func(q *Queries) error {
		u, err := q.GetUser(ctx, userID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("user %d %w", userID, core.ErrNotFound)
			}
			return fmt.Errorf("get user: %w", err)
		}
		l.User = toCoreUser(u)

		txs, err := q.ListAllTransactions(ctx, userID)
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		for _, t := range txs {
			l.Transactions = append(l.Transactions, toCoreTransaction(t))
		}

		goals, err := q.ListSavingsGoals(ctx, userID)
		if err != nil {
			return fmt.Errorf("list savings goals: %w", err)
		}
		for _, g := range goals {
			l.SavingsGoals = append(l.SavingsGoals, toCoreSavingsGoal(g))
		}

		budgets, err := q.ListBudgets(ctx, userID)
		if err != nil {
			return fmt.Errorf("list budgets: %w", err)
		}
		for _, b := range budgets {
			l.Budgets = append(l.Budgets, toCoreBudget(b))
		}
		return nil
	})
	return l, err
}

// ---- conversions ----

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(timestampLayout)
}

func parseTimestamp(s string) time.Time {
	t, err := time.ParseInLocation(timestampLayout, s, time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t
}

func windowBounds(from, to time.Time) (string, string) {
	lo, hi := minTimestamp, maxTimestamp
	if !from.IsZero() {
		lo = from.UTC().Format(timestampLayout)
	}
	if !to.IsZero() {
		hi = to.UTC().Format(timestampLayout)
	}
	return lo, hi
}

func parseDate(s string) core.Date {
	d, err := core.ParseDate(s)
	if err != nil {
		return core.Date{}
	}
	return d
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}

func toCoreUser(u User) core.User {
	return core.User{
		ID:            u.UserID,
		Balance:       core.Money(u.Balance),
		Goal:          core.Money(u.Goal),
		MonthlyBudget: core.Money(u.MonthlyBudget),
		Currency:      u.Currency,
		Notifications: u.Notifications != 0,
		CreatedAt:     parseTimestamp(u.CreatedAt),
		LastActive:    parseTimestamp(u.LastActive),
	}
}

func toCoreTransaction(t Transaction) core.Transaction {
	return core.Transaction{
		ID:          t.ID,
		UserID:      t.UserID,
		Type:        core.TxType(t.Type),
		Amount:      core.Money(t.Amount),
		Category:    t.Category,
		Description: t.Description,
		CreatedAt:   parseTimestamp(t.CreatedAt),
	}
}

func toCoreCategory(c Category) core.Category {
	return core.Category{
		ID:     c.ID,
		UserID: c.UserID.Int64,
		Name:   c.Name,
		Type:   core.TxType(c.Type),
		Icon:   c.Icon,
		Color:  c.Color,
	}
}

func toCoreBudget(b Budget) core.Budget {
	return core.Budget{
		ID:        b.ID,
		UserID:    b.UserID,
		Category:  b.Category,
		Limit:     core.Money(b.LimitAmount),
		Period:    core.PeriodKind(b.Period),
		StartDate: parseDate(b.StartDate),
		EndDate:   parseDate(b.EndDate),
	}
}

func toCoreSavingsGoal(g SavingsGoal) core.SavingsGoal {
	out := core.SavingsGoal{
		ID:          g.ID,
		UserID:      g.UserID,
		Name:        g.Name,
		Target:      core.Money(g.Target),
		Current:     core.Money(g.Current),
		Description: g.Description,
		CreatedAt:   parseTimestamp(g.CreatedAt),
	}
	if g.Deadline.Valid {
		out.Deadline = parseDate(g.Deadline.String)
	}
	return out
}

func toCoreNotification(n Notification) core.Notification {
	return core.Notification{
		ID:        n.ID,
		UserID:    n.UserID,
		Message:   n.Message,
		Kind:      n.Kind,
		Read:      n.IsRead != 0,
		CreatedAt: parseTimestamp(n.CreatedAt),
	}
}
