package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// Queries holds every SQL statement the repository runs.
type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// ---- users ----

const createUserIfMissing = `INSERT INTO users (user_id, currency, created_at, last_active)
VALUES (?1, ?2, ?3, ?3)
ON CONFLICT (user_id) DO NOTHING`

type CreateUserParams struct {
	UserID   int64
	Currency string
	Now      string
}

func (q *Queries) CreateUserIfMissing(ctx context.Context, arg CreateUserParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, createUserIfMissing, arg.UserID, arg.Currency, arg.Now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const touchUser = `UPDATE users SET last_active = ?2 WHERE user_id = ?1`

func (q *Queries) TouchUser(ctx context.Context, userID int64, now string) error {
	_, err := q.db.ExecContext(ctx, touchUser, userID, now)
	return err
}

const getUser = `SELECT user_id, balance, goal, monthly_budget, currency, notifications, created_at, last_active
FROM users WHERE user_id = ?1`

func (q *Queries) GetUser(ctx context.Context, userID int64) (User, error) {
	row := q.db.QueryRowContext(ctx, getUser, userID)
	var u User
	err := row.Scan(&u.UserID, &u.Balance, &u.Goal, &u.MonthlyBudget, &u.Currency, &u.Notifications, &u.CreatedAt, &u.LastActive)
	return u, err
}

const getBalance = `SELECT balance FROM users WHERE user_id = ?1`

func (q *Queries) GetBalance(ctx context.Context, userID int64) (int64, error) {
	var balance int64
	err := q.db.QueryRowContext(ctx, getBalance, userID).Scan(&balance)
	return balance, err
}

const creditBalance = `UPDATE users SET balance = balance + ?2 WHERE user_id = ?1`

func (q *Queries) CreditBalance(ctx context.Context, userID, amount int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, creditBalance, userID, amount)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// debitBalance only matches when the balance covers the amount, so zero
// rows affected means insufficient funds.
const debitBalance = `UPDATE users SET balance = balance - ?2 WHERE user_id = ?1 AND balance >= ?2`

func (q *Queries) DebitBalance(ctx context.Context, userID, amount int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, debitBalance, userID, amount)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const setGoal = `UPDATE users SET goal = ?2 WHERE user_id = ?1`

func (q *Queries) SetGoal(ctx context.Context, userID, goal int64) error {
	_, err := q.db.ExecContext(ctx, setGoal, userID, goal)
	return err
}

const updateSettings = `UPDATE users SET currency = ?2, notifications = ?3, monthly_budget = ?4 WHERE user_id = ?1`

type UpdateSettingsParams struct {
	UserID        int64
	Currency      string
	Notifications int64
	MonthlyBudget int64
}

func (q *Queries) UpdateSettings(ctx context.Context, arg UpdateSettingsParams) error {
	_, err := q.db.ExecContext(ctx, updateSettings, arg.UserID, arg.Currency, arg.Notifications, arg.MonthlyBudget)
	return err
}

const sumAllBalances = `SELECT COALESCE(SUM(balance), 0) FROM users`

func (q *Queries) SumAllBalances(ctx context.Context) (int64, error) {
	var total int64
	err := q.db.QueryRowContext(ctx, sumAllBalances).Scan(&total)
	return total, err
}

// ---- transactions ----

const createTransaction = `INSERT INTO transactions (user_id, type, amount, category, description, created_at)
VALUES (?1, ?2, ?3, ?4, ?5, ?6)
RETURNING id, user_id, type, amount, category, description, created_at`

type CreateTransactionParams struct {
	UserID      int64
	Type        string
	Amount      int64
	Category    string
	Description string
	CreatedAt   string
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (Transaction, error) {
	row := q.db.QueryRowContext(ctx, createTransaction,
		arg.UserID, arg.Type, arg.Amount, arg.Category, arg.Description, arg.CreatedAt)
	var t Transaction
	err := row.Scan(&t.ID, &t.UserID, &t.Type, &t.Amount, &t.Category, &t.Description, &t.CreatedAt)
	return t, err
}

const listTransactions = `SELECT id, user_id, type, amount, category, description, created_at
FROM transactions
WHERE user_id = ?1
  AND created_at >= ?2 AND created_at < ?3
  AND (?4 = '' OR type = ?4)
  AND (?5 = '' OR category = ?5)
ORDER BY created_at DESC, id DESC
LIMIT ?6`

type ListTransactionsParams struct {
	UserID   int64
	From     string
	To       string
	Type     string
	Category string
	Limit    int64 // -1 for no limit
}

func (q *Queries) ListTransactions(ctx context.Context, arg ListTransactionsParams) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listTransactions,
		arg.UserID, arg.From, arg.To, arg.Type, arg.Category, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTransactions(rows)
}

const listAllTransactions = `SELECT id, user_id, type, amount, category, description, created_at
FROM transactions
WHERE user_id = ?1
ORDER BY created_at ASC, id ASC`

func (q *Queries) ListAllTransactions(ctx context.Context, userID int64) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listAllTransactions, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTransactions(rows)
}

func scanTransactions(rows *sql.Rows) ([]Transaction, error) {
	var items []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Type, &t.Amount, &t.Category, &t.Description, &t.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

const sumByType = `SELECT type, COALESCE(SUM(amount), 0) AS total
FROM transactions
WHERE user_id = ?1 AND created_at >= ?2 AND created_at < ?3
GROUP BY type`

type SumParams struct {
	UserID int64
	From   string
	To     string
}

type SumRow struct {
	Key   string
	Total int64
}

func (q *Queries) SumByType(ctx context.Context, arg SumParams) ([]SumRow, error) {
	rows, err := q.db.QueryContext(ctx, sumByType, arg.UserID, arg.From, arg.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSums(rows)
}

const sumByCategory = `SELECT category, COALESCE(SUM(amount), 0) AS total
FROM transactions
WHERE user_id = ?1 AND created_at >= ?2 AND created_at < ?3 AND (?4 = '' OR type = ?4)
GROUP BY category
ORDER BY total DESC, category ASC`

type SumByCategoryParams struct {
	UserID int64
	From   string
	To     string
	Type   string
}

func (q *Queries) SumByCategory(ctx context.Context, arg SumByCategoryParams) ([]SumRow, error) {
	rows, err := q.db.QueryContext(ctx, sumByCategory, arg.UserID, arg.From, arg.To, arg.Type)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSums(rows)
}

func scanSums(rows *sql.Rows) ([]SumRow, error) {
	var items []SumRow
	for rows.Next() {
		var r SumRow
		if err := rows.Scan(&r.Key, &r.Total); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const sumCategory = `SELECT COALESCE(SUM(amount), 0)
FROM transactions
WHERE user_id = ?1 AND type = ?2 AND category = ?3 AND created_at >= ?4 AND created_at < ?5`

type SumCategoryParams struct {
	UserID   int64
	Type     string
	Category string
	From     string
	To       string
}

func (q *Queries) SumCategory(ctx context.Context, arg SumCategoryParams) (int64, error) {
	var total int64
	err := q.db.QueryRowContext(ctx, sumCategory, arg.UserID, arg.Type, arg.Category, arg.From, arg.To).Scan(&total)
	return total, err
}

const getUserStats = `SELECT COUNT(*),
       COALESCE(SUM(CASE WHEN type = 'income' THEN amount ELSE 0 END), 0),
       COUNT(DISTINCT substr(created_at, 1, 10))
FROM transactions
WHERE user_id = ?1`

type UserStatsRow struct {
	TransactionCount int64
	TotalIncome      int64
	ActiveDays       int64
}

func (q *Queries) GetUserStats(ctx context.Context, userID int64) (UserStatsRow, error) {
	var r UserStatsRow
	err := q.db.QueryRowContext(ctx, getUserStats, userID).Scan(&r.TransactionCount, &r.TotalIncome, &r.ActiveDays)
	return r, err
}

// ---- categories ----

const listCategories = `SELECT id, user_id, name, type, icon, color
FROM categories
WHERE user_id IS NULL OR user_id = ?1
ORDER BY type, user_id IS NOT NULL, id`

func (q *Queries) ListCategories(ctx context.Context, userID int64) ([]Category, error) {
	rows, err := q.db.QueryContext(ctx, listCategories, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Type, &c.Icon, &c.Color); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

const createCategory = `INSERT INTO categories (user_id, name, type, icon, color)
VALUES (?1, ?2, ?3, ?4, ?5)
RETURNING id, user_id, name, type, icon, color`

type CreateCategoryParams struct {
	UserID int64
	Name   string
	Type   string
	Icon   string
	Color  string
}

func (q *Queries) CreateCategory(ctx context.Context, arg CreateCategoryParams) (Category, error) {
	row := q.db.QueryRowContext(ctx, createCategory, arg.UserID, arg.Name, arg.Type, arg.Icon, arg.Color)
	var c Category
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Type, &c.Icon, &c.Color)
	return c, err
}

// ---- budgets ----

const upsertBudget = `INSERT INTO budgets (user_id, category, limit_amount, period, start_date, end_date)
VALUES (?1, ?2, ?3, ?4, ?5, ?6)
ON CONFLICT (user_id, category, period) DO UPDATE SET
    limit_amount = excluded.limit_amount,
    start_date   = excluded.start_date,
    end_date     = excluded.end_date
RETURNING id, user_id, category, limit_amount, period, start_date, end_date`

type UpsertBudgetParams struct {
	UserID      int64
	Category    string
	LimitAmount int64
	Period      string
	StartDate   string
	EndDate     string
}

func (q *Queries) UpsertBudget(ctx context.Context, arg UpsertBudgetParams) (Budget, error) {
	row := q.db.QueryRowContext(ctx, upsertBudget,
		arg.UserID, arg.Category, arg.LimitAmount, arg.Period, arg.StartDate, arg.EndDate)
	var b Budget
	err := row.Scan(&b.ID, &b.UserID, &b.Category, &b.LimitAmount, &b.Period, &b.StartDate, &b.EndDate)
	return b, err
}

const listBudgets = `SELECT id, user_id, category, limit_amount, period, start_date, end_date
FROM budgets WHERE user_id = ?1 ORDER BY category`

func (q *Queries) ListBudgets(ctx context.Context, userID int64) ([]Budget, error) {
	rows, err := q.db.QueryContext(ctx, listBudgets, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Budget
	for rows.Next() {
		var b Budget
		if err := rows.Scan(&b.ID, &b.UserID, &b.Category, &b.LimitAmount, &b.Period, &b.StartDate, &b.EndDate); err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	return items, rows.Err()
}

const listBudgetUsage = `SELECT b.id, b.user_id, b.category, b.limit_amount, b.period, b.start_date, b.end_date,
       COALESCE(SUM(t.amount), 0) AS spent
FROM budgets b
LEFT JOIN transactions t
       ON t.user_id = b.user_id
      AND t.category = b.category
      AND t.type = 'expense'
      AND t.created_at >= ?3 AND t.created_at < ?4
WHERE b.user_id = ?1 AND b.period = ?2
GROUP BY b.id
ORDER BY b.category`

type BudgetUsageParams struct {
	UserID int64
	Period string
	From   string
	To     string
}

type BudgetUsageRow struct {
	Budget
	Spent int64
}

func (q *Queries) ListBudgetUsage(ctx context.Context, arg BudgetUsageParams) ([]BudgetUsageRow, error) {
	rows, err := q.db.QueryContext(ctx, listBudgetUsage, arg.UserID, arg.Period, arg.From, arg.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []BudgetUsageRow
	for rows.Next() {
		var r BudgetUsageRow
		if err := rows.Scan(&r.ID, &r.UserID, &r.Category, &r.LimitAmount, &r.Period, &r.StartDate, &r.EndDate, &r.Spent); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

// ---- savings goals ----

const createSavingsGoal = `INSERT INTO savings_goals (user_id, name, target, deadline, description, created_at)
VALUES (?1, ?2, ?3, ?4, ?5, ?6)
RETURNING id, user_id, name, target, current, deadline, description, created_at`

type CreateSavingsGoalParams struct {
	UserID      int64
	Name        string
	Target      int64
	Deadline    sql.NullString
	Description string
	CreatedAt   string
}

func (q *Queries) CreateSavingsGoal(ctx context.Context, arg CreateSavingsGoalParams) (SavingsGoal, error) {
	row := q.db.QueryRowContext(ctx, createSavingsGoal,
		arg.UserID, arg.Name, arg.Target, arg.Deadline, arg.Description, arg.CreatedAt)
	return scanSavingsGoal(row)
}

const getSavingsGoalByName = `SELECT id, user_id, name, target, current, deadline, description, created_at
FROM savings_goals WHERE user_id = ?1 AND name = ?2`

func (q *Queries) GetSavingsGoalByName(ctx context.Context, userID int64, name string) (SavingsGoal, error) {
	return scanSavingsGoal(q.db.QueryRowContext(ctx, getSavingsGoalByName, userID, name))
}

const addToSavingsGoal = `UPDATE savings_goals SET current = current + ?2 WHERE id = ?1
RETURNING id, user_id, name, target, current, deadline, description, created_at`

func (q *Queries) AddToSavingsGoal(ctx context.Context, id, amount int64) (SavingsGoal, error) {
	return scanSavingsGoal(q.db.QueryRowContext(ctx, addToSavingsGoal, id, amount))
}

const listSavingsGoals = `SELECT id, user_id, name, target, current, deadline, description, created_at
FROM savings_goals WHERE user_id = ?1 ORDER BY created_at, id`

func (q *Queries) ListSavingsGoals(ctx context.Context, userID int64) ([]SavingsGoal, error) {
	rows, err := q.db.QueryContext(ctx, listSavingsGoals, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SavingsGoal
	for rows.Next() {
		g, err := scanSavingsGoal(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, g)
	}
	return items, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSavingsGoal(s scanner) (SavingsGoal, error) {
	var g SavingsGoal
	err := s.Scan(&g.ID, &g.UserID, &g.Name, &g.Target, &g.Current, &g.Deadline, &g.Description, &g.CreatedAt)
	return g, err
}

// ---- notifications ----

const createNotification = `INSERT INTO notifications (user_id, message, kind, created_at)
VALUES (?1, ?2, ?3, ?4)
RETURNING id, user_id, message, kind, is_read, created_at`

type CreateNotificationParams struct {
	UserID    int64
	Message   string
	Kind      string
	CreatedAt string
}

func (q *Queries) CreateNotification(ctx context.Context, arg CreateNotificationParams) (Notification, error) {
	row := q.db.QueryRowContext(ctx, createNotification, arg.UserID, arg.Message, arg.Kind, arg.CreatedAt)
	var n Notification
	err := row.Scan(&n.ID, &n.UserID, &n.Message, &n.Kind, &n.IsRead, &n.CreatedAt)
	return n, err
}

const listUnreadNotifications = `SELECT id, user_id, message, kind, is_read, created_at
FROM notifications WHERE user_id = ?1 AND is_read = 0
ORDER BY created_at, id`

func (q *Queries) ListUnreadNotifications(ctx context.Context, userID int64) ([]Notification, error) {
	rows, err := q.db.QueryContext(ctx, listUnreadNotifications, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.Kind, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, n)
	}
	return items, rows.Err()
}

const countUnreadNotifications = `SELECT COUNT(*) FROM notifications WHERE user_id = ?1 AND is_read = 0`

func (q *Queries) CountUnreadNotifications(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countUnreadNotifications, userID).Scan(&n)
	return n, err
}

const markNotificationsRead = `UPDATE notifications SET is_read = 1 WHERE user_id = ?1 AND id <= ?2 AND is_read = 0`

func (q *Queries) MarkNotificationsRead(ctx context.Context, userID, upToID int64) error {
	_, err := q.db.ExecContext(ctx, markNotificationsRead, userID, upToID)
	return err
}

const hasNotificationSince = `SELECT EXISTS (
    SELECT 1 FROM notifications WHERE user_id = ?1 AND kind = ?2 AND message = ?3 AND created_at >= ?4
)`

type HasNotificationParams struct {
	UserID  int64
	Kind    string
	Message string
	Since   string
}

// HasNotificationSince lets the worker avoid repeating the same alert.
func (q *Queries) HasNotificationSince(ctx context.Context, arg HasNotificationParams) (bool, error) {
	var exists int64
	err := q.db.QueryRowContext(ctx, hasNotificationSince, arg.UserID, arg.Kind, arg.Message, arg.Since).Scan(&exists)
	return exists == 1, err
}
