// Package worker turns ledger events into user notifications.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"finbot/internal/amqp"
	"finbot/internal/core"
)

const (
	KindBudgetWarning  = "budget_warning"
	KindBudgetExceeded = "budget_exceeded"
)

// Store is the slice of the repository the worker reads and writes.
type Store interface {
	User(ctx context.Context, userID int64) (core.User, error)
	BudgetUsage(ctx context.Context, userID int64, w core.Window) ([]core.BudgetUsage, error)
	Totals(ctx context.Context, userID int64, w core.Window) (core.Totals, error)
	HasNotificationSince(ctx context.Context, n core.Notification, since time.Time) (bool, error)
	CreateNotification(ctx context.Context, n core.Notification) (core.Notification, error)
}

// NotificationWorker evaluates the affected budget after every expense-side
// event and notifies the user at most once per band per month.
type NotificationWorker struct {
	store Store
	loc   *time.Location
	now   func() time.Time
}

func NewNotificationWorker(store Store, loc *time.Location) *NotificationWorker {
	if loc == nil {
		loc = time.UTC
	}
	return &NotificationWorker{store: store, loc: loc, now: time.Now}
}

// HandleLedgerEvent processes a single ledger event from AMQP
func (w *NotificationWorker) HandleLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	user, err := w.store.User(ctx, ev.UserID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			slog.WarnContext(ctx, "Ledger event for unknown user, dropping", "id", ev.ID, "user_id", ev.UserID)
			return nil
		}
		return fmt.Errorf("get user: %w", err)
	}
	if !user.Notifications {
		slog.DebugContext(ctx, "Notifications disabled, skipping", "user_id", ev.UserID)
		return nil
	}

	at := ev.Timestamp
	if at.IsZero() {
		at = w.now()
	}
	month := core.MonthOf(at.In(w.loc))

	usage, err := w.store.BudgetUsage(ctx, ev.UserID, month)
	if err != nil {
		return fmt.Errorf("budget usage: %w", err)
	}
	for _, u := range usage {
		if u.Budget.Category != ev.Category {
			continue
		}
		if err := w.notify(ctx, ev.UserID, u, "budget "+u.Budget.Category, month); err != nil {
			return err
		}
	}

	if user.MonthlyBudget > 0 {
		totals, err := w.store.Totals(ctx, ev.UserID, month)
		if err != nil {
			return fmt.Errorf("month totals: %w", err)
		}
		overall := core.BudgetUsage{
			Budget: core.Budget{UserID: ev.UserID, Limit: user.MonthlyBudget, Period: core.MonthlyPeriod},
			Spent:  totals.Expense,
		}
		if err := w.notify(ctx, ev.UserID, overall, "monthly budget", month); err != nil {
			return err
		}
	}
	return nil
}

// notify creates the notification for u's band unless the same one was
// already raised within month.
func (w *NotificationWorker) notify(ctx context.Context, userID int64, u core.BudgetUsage, label string, month core.Window) error {
	var kind, msg string
	period := month.From.Format("2006-01")
	switch u.Band() {
	case core.BandWarning:
		kind = KindBudgetWarning
		msg = fmt.Sprintf("Your %s for %s has passed 80%%", label, period)
	case core.BandExceeded:
		kind = KindBudgetExceeded
		msg = fmt.Sprintf("Your %s for %s is exceeded", label, period)
	default:
		return nil
	}

	n := core.Notification{UserID: userID, Message: msg, Kind: kind, CreatedAt: w.now()}
	seen, err := w.store.HasNotificationSince(ctx, n, month.From)
	if err != nil {
		return fmt.Errorf("check notification: %w", err)
	}
	if seen {
		return nil
	}
	if _, err := w.store.CreateNotification(ctx, n); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}

	slog.InfoContext(ctx, "Notification created",
		"user_id", userID,
		"kind", kind,
		"spent", u.Spent.Int64(),
		"limit", u.Budget.Limit.Int64(),
		"percent", u.Percent().String())
	return nil
}
