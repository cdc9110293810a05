package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"finbot/internal/amqp"
	"finbot/internal/cache"
	"finbot/internal/core"
)

// Store is the persistence the ledger needs. *storage.SQLiteRepository
// implements it.
type Store interface {
	GetOrCreateUser(ctx context.Context, userID int64, at time.Time) (core.User, error)
	User(ctx context.Context, userID int64) (core.User, error)
	SetGoal(ctx context.Context, userID int64, goal core.Money) error
	UpdateSettings(ctx context.Context, userID int64, s core.Settings) error

	ApplyTransaction(ctx context.Context, t core.Transaction) (core.Transaction, core.Money, error)
	Transfer(ctx context.Context, from, to int64, amount core.Money, description string, at time.Time) (core.TransferReceipt, error)
	DepositToSavingsGoal(ctx context.Context, userID int64, name string, amount core.Money, at time.Time) (core.SavingsGoal, core.Transaction, core.Money, error)

	QueryTransactions(ctx context.Context, userID int64, f core.Filter) ([]core.Transaction, error)
	Aggregate(ctx context.Context, userID int64, f core.Filter, by core.GroupBy) ([]core.CategoryAmount, error)
	Totals(ctx context.Context, userID int64, w core.Window) (core.Totals, error)
	UserStats(ctx context.Context, userID int64) (core.UserStats, error)

	ListCategories(ctx context.Context, userID int64) ([]core.Category, error)
	CreateCategory(ctx context.Context, c core.Category) (core.Category, error)

	SetBudget(ctx context.Context, b core.Budget) (core.Budget, error)
	BudgetUsage(ctx context.Context, userID int64, w core.Window) ([]core.BudgetUsage, error)

	CreateSavingsGoal(ctx context.Context, g core.SavingsGoal) (core.SavingsGoal, error)
	ListSavingsGoals(ctx context.Context, userID int64) ([]core.SavingsGoal, error)

	ConsumeNotifications(ctx context.Context, userID int64) ([]core.Notification, error)
	CountUnreadNotifications(ctx context.Context, userID int64) (int64, error)

	Ledger(ctx context.Context, userID int64) (core.Ledger, error)
	Close() error
}

// EventPublisher receives ledger events after commit. *amqp.Client
// implements it.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error
	Close() error
}

// Options tune the service; zero values fall back to defaults.
type Options struct {
	Location           *time.Location
	HighSpendThreshold core.Money
	HistoryLimit       int
	Now                func() time.Time

	// CategoryCacheTTL bounds how long a user's category list and currency
	// are reused.
	CategoryCacheTTL  time.Duration
	CategoryCacheSize int
}

const (
	defaultHighSpendThreshold core.Money = 1_000_000
	defaultHistoryLimit                  = 10
	defaultHistoryDays                   = 7
	defaultCategoryCacheTTL              = 5 * time.Minute
	defaultCategoryCacheSize             = 1024
	// Projection averages the current month and this many before it.
	projectionPastMonths = 3
)

// LedgerService implements every chat command against a Store. Publishing
// is best effort: a nil publisher or a failed publish never fails a command.
type LedgerService struct {
	store     Store
	publisher EventPublisher
	loc       *time.Location
	threshold core.Money
	limit     int
	now       func() time.Time
	cats      *cache.LRU[int64, []core.Category]
	cur       *cache.LRU[int64, string]
}

func NewLedgerService(store Store, publisher EventPublisher, opts Options) *LedgerService {
	s := &LedgerService{
		store:     store,
		publisher: publisher,
		loc:       opts.Location,
		threshold: opts.HighSpendThreshold,
		limit:     opts.HistoryLimit,
		now:       opts.Now,
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.threshold <= 0 {
		s.threshold = defaultHighSpendThreshold
	}
	if s.limit <= 0 {
		s.limit = defaultHistoryLimit
	}
	if s.now == nil {
		s.now = time.Now
	}
	ttl, size := opts.CategoryCacheTTL, opts.CategoryCacheSize
	if ttl <= 0 {
		ttl = defaultCategoryCacheTTL
	}
	if size <= 0 {
		size = defaultCategoryCacheSize
	}
	s.cats = cache.NewLRU[int64, []core.Category](size, ttl, s.now)
	s.cur = cache.NewLRU[int64, string](size, ttl, s.now)
	return s
}

// Location is the zone calendar windows are computed in.
func (s *LedgerService) Location() *time.Location {
	return s.loc
}

func (s *LedgerService) clock() time.Time {
	return s.now().In(s.loc)
}

func (s *LedgerService) touch(ctx context.Context, userID int64) (core.User, time.Time, error) {
	now := s.clock()
	u, err := s.store.GetOrCreateUser(ctx, userID, now)
	if err != nil {
		return core.User{}, now, fmt.Errorf("get user %d: %w", userID, err)
	}
	return u, now, nil
}

// ---- balance & goal ----

func (s *LedgerService) Balance(ctx context.Context, userID int64) (BalanceReport, error) {
	u, now, err := s.touch(ctx, userID)
	if err != nil {
		return BalanceReport{}, err
	}

	month, err := s.store.Totals(ctx, userID, core.MonthOf(now))
	if err != nil {
		return BalanceReport{}, fmt.Errorf("month totals: %w", err)
	}
	goal, err := s.goalProgress(ctx, u, now)
	if err != nil {
		return BalanceReport{}, err
	}
	goals, err := s.store.ListSavingsGoals(ctx, userID)
	if err != nil {
		return BalanceReport{}, fmt.Errorf("list savings goals: %w", err)
	}
	unread, err := s.store.CountUnreadNotifications(ctx, userID)
	if err != nil {
		return BalanceReport{}, fmt.Errorf("count notifications: %w", err)
	}

	report := BalanceReport{
		User:                u,
		Goal:                goal,
		Month:               month,
		SavingsGoals:        goals,
		UnreadNotifications: unread,
	}
	if u.MonthlyBudget > 0 {
		report.MonthlyBudget = &core.BudgetUsage{
			Budget: core.Budget{UserID: userID, Limit: u.MonthlyBudget, Period: core.MonthlyPeriod},
			Spent:  month.Expense,
		}
	}
	return report, nil
}

func (s *LedgerService) Goal(ctx context.Context, userID int64) (GoalProgress, error) {
	u, now, err := s.touch(ctx, userID)
	if err != nil {
		return GoalProgress{}, err
	}
	return s.goalProgress(ctx, u, now)
}

func (s *LedgerService) SetGoal(ctx context.Context, userID int64, target core.Money) (GoalProgress, error) {
	if err := target.Validate(); err != nil {
		return GoalProgress{}, err
	}
	u, now, err := s.touch(ctx, userID)
	if err != nil {
		return GoalProgress{}, err
	}
	if err := s.store.SetGoal(ctx, userID, target); err != nil {
		return GoalProgress{}, err
	}
	u.Goal = target
	return s.goalProgress(ctx, u, now)
}

// goalProgress projects months to completion from the average monthly net
// of the current month and the three completed months before it; months
// without activity count as zero.
func (s *LedgerService) goalProgress(ctx context.Context, u core.User, now time.Time) (GoalProgress, error) {
	if u.Goal <= 0 {
		return GoalProgress{Balance: u.Balance}, nil
	}
	g := GoalProgress{
		Set:       true,
		Target:    u.Goal,
		Balance:   u.Balance,
		Progress:  core.Progress(u.Balance, u.Goal),
		Remaining: max(u.Goal-u.Balance, 0),
	}
	if g.Remaining == 0 {
		return g, nil
	}

	cur := core.MonthOf(now)
	w := core.Window{From: cur.From.AddDate(0, -projectionPastMonths, 0), To: cur.To}
	totals, err := s.store.Totals(ctx, u.ID, w)
	if err != nil {
		return GoalProgress{}, fmt.Errorf("projection totals: %w", err)
	}
	months, avg, ok := core.ProjectMonths(g.Remaining, totals.Net(), projectionPastMonths+1)
	g.AverageMonthlyNet = avg
	if ok {
		g.MonthsToGoal, g.HasProjection = months, true
	}
	return g, nil
}

// ---- income & expense ----

// Deposit records income. An unknown category is filed under Other.
func (s *LedgerService) Deposit(ctx context.Context, userID int64, amount core.Money, category, description string) (TransactionResult, error) {
	return s.record(ctx, userID, core.Income, amount, category, description)
}

// Withdraw records an expense, refusing it when the balance does not cover
// the amount. A month-to-date category total above the threshold is flagged.
func (s *LedgerService) Withdraw(ctx context.Context, userID int64, amount core.Money, category, description string) (TransactionResult, error) {
	res, err := s.record(ctx, userID, core.Expense, amount, category, description)
	if err != nil {
		return res, err
	}

	s.publish(ctx, amqp.NewLedgerEvent(userID, amqp.EventExpense, res.Transaction.Category, amount.Int64(), res.Transaction.CreatedAt))

	month := core.MonthOf(res.Transaction.CreatedAt.In(s.loc))
	spent, err := s.categorySpend(ctx, userID, res.Transaction.Category, month)
	if err != nil {
		// The expense is committed; the advisory is not worth failing for.
		slog.ErrorContext(ctx, "High spend check failed", "user_id", userID, "error", err)
		return res, nil
	}
	if spent > s.threshold {
		res.HighSpend = &HighSpendAlert{Category: res.Transaction.Category, MonthTotal: spent, Threshold: s.threshold}
	}
	return res, nil
}

func (s *LedgerService) record(ctx context.Context, userID int64, typ core.TxType, amount core.Money, category, description string) (TransactionResult, error) {
	if err := amount.Validate(); err != nil {
		return TransactionResult{}, err
	}
	if utf8.RuneCountInString(description) > 200 {
		return TransactionResult{}, core.ErrDescriptionTooLong
	}
	_, now, err := s.touch(ctx, userID)
	if err != nil {
		return TransactionResult{}, err
	}

	name, fallback, err := s.resolveCategory(ctx, userID, typ, category)
	if err != nil {
		return TransactionResult{}, err
	}

	txn, balance, err := s.store.ApplyTransaction(ctx, core.Transaction{
		UserID:      userID,
		Type:        typ,
		Amount:      amount,
		Category:    name,
		Description: strings.TrimSpace(description),
		CreatedAt:   now,
	})
	if err != nil {
		if errors.Is(err, core.ErrInsufficientFunds) {
			slog.WarnContext(ctx, "Withdrawal rejected", "user_id", userID, "amount", amount.Int64(), "error", err)
		}
		return TransactionResult{}, err
	}
	return TransactionResult{
		Transaction:       txn,
		Balance:           balance,
		CategoryFallback:  fallback,
		RequestedCategory: strings.TrimSpace(category),
	}, nil
}

func (s *LedgerService) categorySpend(ctx context.Context, userID int64, category string, w core.Window) (core.Money, error) {
	rows, err := s.store.Aggregate(ctx, userID, core.Filter{
		From: w.From, To: w.To, Type: core.Expense, Category: category,
	}, core.GroupByCategory)
	if err != nil {
		return 0, err
	}
	var total core.Money
	for _, r := range rows {
		total += r.Amount
	}
	return total, nil
}

// resolveCategory returns the canonical name for input among the user's
// categories of typ. Empty input is the default category without a
// fallback flag.
func (s *LedgerService) resolveCategory(ctx context.Context, userID int64, typ core.TxType, input string) (string, bool, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return core.DefaultCategory, false, nil
	}
	cats, err := s.categories(ctx, userID)
	if err != nil {
		return "", false, err
	}
	if c, ok := matchCategory(cats, typ, input); ok {
		return c.Name, false, nil
	}
	slog.DebugContext(ctx, "Unknown category, using default", "user_id", userID, "category", input)
	return core.DefaultCategory, true, nil
}

// categories returns the global and private categories of userID, served
// from the cache while fresh.
func (s *LedgerService) categories(ctx context.Context, userID int64) ([]core.Category, error) {
	if cats, ok := s.cats.Get(userID); ok {
		return cats, nil
	}
	cats, err := s.store.ListCategories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	s.cats.Set(userID, cats)
	return cats, nil
}

// CategoryNames lists the category names of one direction for parsing
// command arguments. It does not touch the user.
func (s *LedgerService) CategoryNames(ctx context.Context, userID int64, typ core.TxType) ([]string, error) {
	cats, err := s.categories(ctx, userID)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, c := range cats {
		if c.Type == typ {
			names = append(names, c.Name)
		}
	}
	return names, nil
}

// matchCategory matches without regard to case; an empty typ matches
// either direction.
func matchCategory(cats []core.Category, typ core.TxType, name string) (core.Category, bool) {
	for _, c := range cats {
		if typ != "" && c.Type != typ {
			continue
		}
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return core.Category{}, false
}

// ---- budgets ----

// Budgets reports month-to-date usage of every monthly budget.
func (s *LedgerService) Budgets(ctx context.Context, userID int64) ([]core.BudgetUsage, error) {
	_, now, err := s.touch(ctx, userID)
	if err != nil {
		return nil, err
	}
	usage, err := s.store.BudgetUsage(ctx, userID, core.MonthOf(now))
	if err != nil {
		return nil, fmt.Errorf("budget usage: %w", err)
	}
	return usage, nil
}

// SetBudget upserts the monthly budget for the category, spanning the
// calendar month it is set in.
func (s *LedgerService) SetBudget(ctx context.Context, userID int64, category string, limit core.Money) (BudgetResult, error) {
	if strings.TrimSpace(category) == "" {
		return BudgetResult{}, core.ErrMissingArgument
	}
	if err := limit.Validate(); err != nil {
		return BudgetResult{}, err
	}
	_, now, err := s.touch(ctx, userID)
	if err != nil {
		return BudgetResult{}, err
	}
	name, fallback, err := s.resolveCategory(ctx, userID, core.Expense, category)
	if err != nil {
		return BudgetResult{}, err
	}

	first, last := core.MonthBounds(now)
	b, err := s.store.SetBudget(ctx, core.Budget{
		UserID:    userID,
		Category:  name,
		Limit:     limit,
		Period:    core.MonthlyPeriod,
		StartDate: first,
		EndDate:   last,
	})
	if err != nil {
		return BudgetResult{}, err
	}
	return BudgetResult{Budget: b, CategoryFallback: fallback, RequestedCategory: strings.TrimSpace(category)}, nil
}

// ---- savings goals ----

func (s *LedgerService) AddSavingsGoal(ctx context.Context, userID int64, name string, target core.Money, deadline core.Date, description string) (core.SavingsGoal, error) {
	_, now, err := s.touch(ctx, userID)
	if err != nil {
		return core.SavingsGoal{}, err
	}
	g := core.SavingsGoal{
		UserID:      userID,
		Name:        strings.TrimSpace(name),
		Target:      target,
		Deadline:    deadline,
		Description: strings.TrimSpace(description),
		CreatedAt:   now,
	}
	if err := g.Validate(core.DateOf(now, s.loc)); err != nil {
		return core.SavingsGoal{}, err
	}
	return s.store.CreateSavingsGoal(ctx, g)
}

// DepositSavings moves amount from the balance into the named goal.
func (s *LedgerService) DepositSavings(ctx context.Context, userID int64, name string, amount core.Money) (SavingsDepositResult, error) {
	if strings.TrimSpace(name) == "" {
		return SavingsDepositResult{}, core.ErrMissingArgument
	}
	if err := amount.Validate(); err != nil {
		return SavingsDepositResult{}, err
	}
	_, now, err := s.touch(ctx, userID)
	if err != nil {
		return SavingsDepositResult{}, err
	}

	goal, txn, balance, err := s.store.DepositToSavingsGoal(ctx, userID, strings.TrimSpace(name), amount, now)
	if err != nil {
		if errors.Is(err, core.ErrInsufficientFunds) {
			slog.WarnContext(ctx, "Savings deposit rejected", "user_id", userID, "amount", amount.Int64(), "error", err)
		}
		return SavingsDepositResult{}, err
	}

	s.publish(ctx, amqp.NewLedgerEvent(userID, amqp.EventSavingsDeposit, txn.Category, amount.Int64(), txn.CreatedAt))
	return SavingsDepositResult{Goal: goal, Transaction: txn, Balance: balance}, nil
}

func (s *LedgerService) SavingsGoals(ctx context.Context, userID int64) ([]core.SavingsGoal, error) {
	if _, _, err := s.touch(ctx, userID); err != nil {
		return nil, err
	}
	return s.store.ListSavingsGoals(ctx, userID)
}

// ---- transfer ----

func (s *LedgerService) Transfer(ctx context.Context, from, to int64, amount core.Money, description string) (core.TransferReceipt, error) {
	if err := amount.Validate(); err != nil {
		return core.TransferReceipt{}, err
	}
	if from == to {
		return core.TransferReceipt{}, core.ErrSelfTransfer
	}
	if to <= 0 {
		return core.TransferReceipt{}, core.ErrMissingArgument
	}
	if utf8.RuneCountInString(description) > 200 {
		return core.TransferReceipt{}, core.ErrDescriptionTooLong
	}
	_, now, err := s.touch(ctx, from)
	if err != nil {
		return core.TransferReceipt{}, err
	}

	receipt, err := s.store.Transfer(ctx, from, to, amount, strings.TrimSpace(description), now)
	if err != nil {
		if errors.Is(err, core.ErrInsufficientFunds) {
			slog.WarnContext(ctx, "Transfer rejected", "from", from, "to", to, "amount", amount.Int64(), "error", err)
		}
		return core.TransferReceipt{}, err
	}

	s.publish(ctx, amqp.NewLedgerEvent(from, amqp.EventTransfer, core.TransferCategory, amount.Int64(), receipt.Sent.CreatedAt))
	return receipt, nil
}

// ---- notifications ----

// Notifications returns unread notifications and marks them read.
func (s *LedgerService) Notifications(ctx context.Context, userID int64) ([]core.Notification, error) {
	if _, _, err := s.touch(ctx, userID); err != nil {
		return nil, err
	}
	return s.store.ConsumeNotifications(ctx, userID)
}

func (s *LedgerService) publish(ctx context.Context, ev *amqp.LedgerEvent) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping ledger event", "kind", string(ev.Kind))
		return
	}
	if err := s.publisher.PublishLedgerEvent(ctx, ev); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"id", ev.ID,
			"user_id", ev.UserID,
			"error", err)
	}
}

// Close closes both storage and AMQP connections
func (s *LedgerService) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %w", errors.Join(errs...))
	}

	return nil
}
