// Package bot parses chat commands, dispatches them to the ledger service
// and renders the replies.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"finbot/internal/core"
	applog "finbot/internal/log"
	"finbot/internal/services"
)

// Ledger is the service surface the commands need.
type Ledger interface {
	Location() *time.Location
	Balance(ctx context.Context, userID int64) (services.BalanceReport, error)
	Deposit(ctx context.Context, userID int64, amount core.Money, category, description string) (services.TransactionResult, error)
	Withdraw(ctx context.Context, userID int64, amount core.Money, category, description string) (services.TransactionResult, error)
	Goal(ctx context.Context, userID int64) (services.GoalProgress, error)
	SetGoal(ctx context.Context, userID int64, target core.Money) (services.GoalProgress, error)
	Budgets(ctx context.Context, userID int64) ([]core.BudgetUsage, error)
	SetBudget(ctx context.Context, userID int64, category string, limit core.Money) (services.BudgetResult, error)
	AddSavingsGoal(ctx context.Context, userID int64, name string, target core.Money, deadline core.Date, description string) (core.SavingsGoal, error)
	DepositSavings(ctx context.Context, userID int64, name string, amount core.Money) (services.SavingsDepositResult, error)
	SavingsGoals(ctx context.Context, userID int64) ([]core.SavingsGoal, error)
	Transfer(ctx context.Context, from, to int64, amount core.Money, description string) (core.TransferReceipt, error)
	History(ctx context.Context, userID int64, days int, category string) (services.HistoryResult, error)
	Stats(ctx context.Context, userID int64) (services.StatsResult, error)
	Report(ctx context.Context, userID int64, period core.Period) (services.Report, error)
	Search(ctx context.Context, userID int64, keyword string) (services.SearchResult, error)
	Categories(ctx context.Context, userID int64) (services.CategoryList, error)
	CategoryNames(ctx context.Context, userID int64, typ core.TxType) ([]string, error)
	AddCategory(ctx context.Context, userID int64, typ core.TxType, name string) (core.Category, error)
	Currency(ctx context.Context, userID int64) (string, error)
	Settings(ctx context.Context, userID int64) (core.Settings, error)
	UpdateSetting(ctx context.Context, userID int64, key, value string) (core.Settings, error)
	Export(ctx context.Context, userID int64, format string) (services.ExportResult, error)
	Achievements(ctx context.Context, userID int64) ([]core.Achievement, error)
	ChartData(ctx context.Context, userID int64, typ services.ChartType, period core.Period) (services.ChartData, error)
	Notifications(ctx context.Context, userID int64) ([]core.Notification, error)
}

// Reply is what goes back to the chat. OK is false when the command was
// rejected or failed.
type Reply struct {
	Text string
	OK   bool
}

// request carries one invocation through a handler.
type request struct {
	userID   int64
	args     []token
	currency string
}

type handlerFunc func(ctx context.Context, req request) (string, error)

type Router struct {
	svc      Ledger
	loc      *time.Location
	handlers map[string]handlerFunc
}

func NewRouter(svc Ledger) *Router {
	r := &Router{svc: svc, loc: svc.Location()}
	if r.loc == nil {
		r.loc = time.UTC
	}
	r.handlers = map[string]handlerFunc{
		"balance":       r.balance,
		"add":           r.add,
		"spend":         r.spend,
		"goal":          r.goal,
		"budget":        r.budget,
		"savings":       r.savings,
		"transfer":      r.transfer,
		"history":       r.history,
		"stats":         r.stats,
		"report":        r.report,
		"search":        r.search,
		"category":      r.category,
		"settings":      r.settings,
		"export":        r.export,
		"achievements":  r.achievements,
		"chart":         r.chart,
		"notifications": r.notifications,
	}
	return r
}

// Commands lists the registered command names, help included.
func (r *Router) Commands() []string {
	names := make([]string, 0, len(r.handlers)+1)
	for name := range r.handlers {
		names = append(names, name)
	}
	names = append(names, "help")
	sort.Strings(names)
	return names
}

// Handle runs one chat line for userID.
func (r *Router) Handle(ctx context.Context, userID int64, text string) Reply {
	cmd := Parse(text)
	logger := applog.FromContext(ctx).With(
		applog.FieldComponent, applog.ComponentBot,
		applog.FieldUserID, userID,
		applog.FieldCommand, cmd.Name,
	)

	if cmd.Name == "" || cmd.Name == "help" {
		return Reply{Text: helpText, OK: cmd.Name == "help"}
	}
	h, ok := r.handlers[cmd.Name]
	if !ok {
		logger.DebugContext(ctx, "Unknown command")
		return Reply{Text: fmt.Sprintf("❓ Unknown command %q. Type help to see what I can do.", cmd.Name)}
	}
	if userID <= 0 {
		return Reply{Text: "❌ Missing user."}
	}

	currency, err := r.svc.Currency(ctx, userID)
	if err != nil {
		return r.fail(ctx, logger, err)
	}

	out, err := h(ctx, request{userID: userID, args: cmd.Args, currency: currency})
	if err != nil {
		return r.fail(ctx, logger, err)
	}
	logger.DebugContext(ctx, "Command handled")
	return Reply{Text: out, OK: true}
}

func (r *Router) fail(ctx context.Context, logger *slog.Logger, err error) Reply {
	kind := core.Kind(err)
	if kind == core.KindInternal {
		logger.ErrorContext(ctx, "Command failed", applog.FieldError, err)
	} else {
		logger.InfoContext(ctx, "Command rejected", applog.FieldError, err, "kind", kind.String())
	}
	return Reply{Text: errorMessage(err)}
}

// errorMessage never exposes internal error text.
func errorMessage(err error) string {
	var funds *core.InsufficientFundsError
	switch {
	case errors.As(err, &funds):
		return fmt.Sprintf("❌ Insufficient funds! Balance: %s, needed: %s",
			groupThousands(int64(funds.Balance)), groupThousands(int64(funds.Required)))
	case errors.Is(err, core.ErrInsufficientFunds):
		return "❌ Insufficient funds!"
	case errors.Is(err, core.ErrGoalNotFound):
		return "❌ Savings goal not found. Use savings list to see your goals."
	case errors.Is(err, core.ErrCategoryNotFound):
		return "❌ Category not found. Use category list to see the known ones."
	case errors.Is(err, core.ErrNotFound):
		return "❌ Not found."
	case errors.Is(err, core.ErrInvalidAmount):
		return "❌ Amount must be a positive whole number, e.g. 50000 or 50.000."
	case errors.Is(err, core.ErrInvalidDate):
		return "❌ Invalid date, use YYYY-MM-DD."
	case errors.Is(err, core.ErrInvalidSetting), errors.Is(err, core.ErrMissingArgument),
		errors.Is(err, core.ErrInvalidPeriod), errors.Is(err, core.ErrInvalidFormat):
		// these carry user-facing usage text
		return "❌ " + capitalize(err.Error())
	}
	if core.Kind(err) == core.KindValidation {
		return "❌ " + capitalize(err.Error())
	}
	return "❌ Something went wrong, please try again later."
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// usage wraps ErrMissingArgument with the expected syntax.
func usage(syntax string) error {
	return fmt.Errorf("%w: usage %s", core.ErrMissingArgument, syntax)
}
