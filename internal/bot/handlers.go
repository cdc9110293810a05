package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"finbot/internal/core"
	"finbot/internal/services"
)

const helpText = `💰 finbot commands

balance                                   balance, goal, this month, savings
add <amount> [category] [description]     record income
spend <amount> [category] [description]   record an expense
goal [amount]                             show or set the savings target
budget [category amount]                  list budgets or set one
savings list
savings add <name> <target> [YYYY-MM-DD] [description]
savings deposit <name> <amount>
transfer <amount> <user> [description]    send money to another user
history [days] [category]                 recent transactions
stats                                     this week and this month
report [week|month|year]                  totals, top categories, trend
search <keyword>                          find transactions
category [list]
category add <income|expense> <name>
settings [currency|notifications|budget] [value]
export [json|csv]                         dump your data
achievements                              badges
chart [pie|bar] [week|month|year]         category breakdown
notifications                             unread notifications

Examples:
  add 3000000 Lương salary june
  spend 50.000 "Ăn uống" breakfast
  savings add "Xe máy" 20000000 2030-01-01`

func (r *Router) balance(ctx context.Context, req request) (string, error) {
	rep, err := r.svc.Balance(ctx, req.userID)
	if err != nil {
		return "", err
	}
	cur := rep.User.Currency

	var b strings.Builder
	fmt.Fprintf(&b, "💰 Balance: %s\n", FormatMoney(rep.User.Balance, cur))
	if rep.Goal.Set {
		writeGoal(&b, rep.Goal, cur)
	}
	fmt.Fprintf(&b, "📅 This month: income %s, expense %s, net %s\n",
		FormatMoney(rep.Month.Income, cur), FormatMoney(rep.Month.Expense, cur), FormatMoney(rep.Month.Net(), cur))
	if u := rep.MonthlyBudget; u != nil {
		fmt.Fprintf(&b, "%s Monthly budget: %s / %s (%s)\n",
			bandIcon(u.Band()), FormatMoney(u.Spent, cur), FormatMoney(u.Budget.Limit, cur), u.Percent())
	}
	if len(rep.SavingsGoals) > 0 {
		b.WriteString("🏦 Savings goals:\n")
		for _, g := range rep.SavingsGoals {
			writeSavingsGoal(&b, g, cur)
		}
	}
	if rep.UnreadNotifications > 0 {
		fmt.Fprintf(&b, "🔔 %d unread notification(s), type notifications to read them\n", rep.UnreadNotifications)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func writeGoal(b *strings.Builder, g services.GoalProgress, cur string) {
	fmt.Fprintf(b, "🎯 Goal: %s\n", FormatMoney(g.Target, cur))
	fmt.Fprintf(b, "   %s %s\n", progressBar(g.Progress), g.Progress)
	if g.Remaining > 0 {
		fmt.Fprintf(b, "   Remaining: %s\n", FormatMoney(g.Remaining, cur))
	}
	if g.HasProjection {
		fmt.Fprintf(b, "   About %d month(s) at %s saved per month\n", g.MonthsToGoal, FormatMoney(g.AverageMonthlyNet, cur))
	}
}

func writeSavingsGoal(b *strings.Builder, g core.SavingsGoal, cur string) {
	mark := ""
	if g.Completed() {
		mark = " ✅"
	}
	fmt.Fprintf(b, "   • %s: %s / %s (%s)%s", g.Name,
		FormatMoney(g.Current, cur), FormatMoney(g.Target, cur), g.Progress(), mark)
	if !g.Deadline.IsZero() {
		fmt.Fprintf(b, ", due %s", g.Deadline)
	}
	b.WriteByte('\n')
}

func (r *Router) add(ctx context.Context, req request) (string, error) {
	return r.record(ctx, req, core.Income)
}

func (r *Router) spend(ctx context.Context, req request) (string, error) {
	return r.record(ctx, req, core.Expense)
}

func (r *Router) record(ctx context.Context, req request, typ core.TxType) (string, error) {
	name := "add"
	if typ == core.Expense {
		name = "spend"
	}
	if len(req.args) == 0 {
		return "", usage(name + " <amount> [category] [description]")
	}
	amount, err := core.ParseAmount(req.args[0].text)
	if err != nil {
		return "", err
	}

	names, err := r.svc.CategoryNames(ctx, req.userID, typ)
	if err != nil {
		return "", err
	}
	category, description := splitCategory(req.args[1:], names)

	var res services.TransactionResult
	if typ == core.Income {
		res, err = r.svc.Deposit(ctx, req.userID, amount, category, description)
	} else {
		res, err = r.svc.Withdraw(ctx, req.userID, amount, category, description)
	}
	if err != nil {
		return "", err
	}

	var b strings.Builder
	tx := res.Transaction
	label := "Income"
	if tx.Type == core.Expense {
		label = "Expense"
	}
	fmt.Fprintf(&b, "✅ %s %s %s · %s\n", txIcon(tx.Type), label, signed(tx.Type, tx.Amount, req.currency), tx.Category)
	if tx.Description != "" {
		fmt.Fprintf(&b, "📝 %s\n", tx.Description)
	}
	if res.CategoryFallback {
		fmt.Fprintf(&b, "⚠️ Unknown category %q, filed under %s\n", res.RequestedCategory, tx.Category)
	}
	fmt.Fprintf(&b, "💰 Balance: %s", FormatMoney(res.Balance, req.currency))
	if hs := res.HighSpend; hs != nil {
		fmt.Fprintf(&b, "\n⚠️ You have spent %s on %s this month (over %s)",
			FormatMoney(hs.MonthTotal, req.currency), hs.Category, FormatMoney(hs.Threshold, req.currency))
	}
	return b.String(), nil
}

func (r *Router) goal(ctx context.Context, req request) (string, error) {
	var (
		g   services.GoalProgress
		err error
	)
	if len(req.args) == 0 {
		g, err = r.svc.Goal(ctx, req.userID)
	} else {
		amount, perr := core.ParseAmount(req.args[0].text)
		if perr != nil {
			return "", perr
		}
		g, err = r.svc.SetGoal(ctx, req.userID, amount)
	}
	if err != nil {
		return "", err
	}
	if !g.Set {
		return "🎯 No savings goal yet. Set one with goal <amount>.", nil
	}

	var b strings.Builder
	if len(req.args) > 0 {
		b.WriteString("✅ Goal updated\n")
	}
	writeGoal(&b, g, req.currency)
	fmt.Fprintf(&b, "💰 Balance: %s", FormatMoney(g.Balance, req.currency))
	return b.String(), nil
}

func (r *Router) budget(ctx context.Context, req request) (string, error) {
	if len(req.args) == 0 {
		list, err := r.svc.Budgets(ctx, req.userID)
		if err != nil {
			return "", err
		}
		if len(list) == 0 {
			return "📊 No budgets this month. Set one with budget <category> <amount>.", nil
		}
		var b strings.Builder
		b.WriteString("📊 Budgets this month\n")
		for _, u := range list {
			fmt.Fprintf(&b, "%s %s: %s / %s (%s)\n", bandIcon(u.Band()), u.Budget.Category,
				FormatMoney(u.Spent, req.currency), FormatMoney(u.Budget.Limit, req.currency), u.Percent())
		}
		return strings.TrimRight(b.String(), "\n"), nil
	}

	if len(req.args) < 2 {
		return "", usage("budget <category> <amount>")
	}
	last := req.args[len(req.args)-1]
	limit, err := core.ParseAmount(last.text)
	if err != nil {
		return "", err
	}
	res, err := r.svc.SetBudget(ctx, req.userID, join(req.args[:len(req.args)-1]), limit)
	if err != nil {
		return "", err
	}

	out := fmt.Sprintf("✅ Budget for %s set to %s (%s to %s)", res.Budget.Category,
		FormatMoney(res.Budget.Limit, req.currency), res.Budget.StartDate, res.Budget.EndDate)
	if res.CategoryFallback {
		out += fmt.Sprintf("\n⚠️ Unknown category %q, used %s", res.RequestedCategory, res.Budget.Category)
	}
	return out, nil
}

func (r *Router) savings(ctx context.Context, req request) (string, error) {
	action := "list"
	if len(req.args) > 0 {
		action = strings.ToLower(req.args[0].text)
	}
	args := req.args
	if len(args) > 0 {
		args = args[1:]
	}

	switch action {
	case "list":
		goals, err := r.svc.SavingsGoals(ctx, req.userID)
		if err != nil {
			return "", err
		}
		if len(goals) == 0 {
			return "🏦 No savings goals yet. Create one with savings add <name> <target> [YYYY-MM-DD].", nil
		}
		var b strings.Builder
		b.WriteString("🏦 Savings goals\n")
		for _, g := range goals {
			writeSavingsGoal(&b, g, req.currency)
		}
		return strings.TrimRight(b.String(), "\n"), nil

	case "add":
		return r.addSavingsGoal(ctx, req, args)

	case "deposit":
		if len(args) < 2 {
			return "", usage("savings deposit <name> <amount>")
		}
		amount, err := core.ParseAmount(args[len(args)-1].text)
		if err != nil {
			return "", err
		}
		res, err := r.svc.DepositSavings(ctx, req.userID, join(args[:len(args)-1]), amount)
		if err != nil {
			return "", err
		}
		var b strings.Builder
		fmt.Fprintf(&b, "✅ Saved %s into %s\n", FormatMoney(amount, req.currency), res.Goal.Name)
		writeSavingsGoal(&b, res.Goal, req.currency)
		fmt.Fprintf(&b, "💰 Balance: %s", FormatMoney(res.Balance, req.currency))
		return b.String(), nil
	}
	return "", usage("savings list|add|deposit")
}

func (r *Router) addSavingsGoal(ctx context.Context, req request, args []token) (string, error) {
	const syntax = "savings add <name> <target> [YYYY-MM-DD] [description]"
	at := -1
	for i, t := range args {
		if i > 0 && isAmount(t) {
			at = i
			break
		}
	}
	if at < 0 {
		return "", usage(syntax)
	}
	target, err := core.ParseAmount(args[at].text)
	if err != nil {
		return "", err
	}

	rest := args[at+1:]
	var deadline core.Date
	if len(rest) > 0 && looksLikeDate(rest[0].text) {
		deadline, err = core.ParseDate(rest[0].text)
		if err != nil {
			return "", err
		}
		rest = rest[1:]
	}

	g, err := r.svc.AddSavingsGoal(ctx, req.userID, join(args[:at]), target, deadline, join(rest))
	if err != nil {
		return "", err
	}
	out := fmt.Sprintf("✅ Savings goal %s created, target %s", g.Name, FormatMoney(g.Target, req.currency))
	if !g.Deadline.IsZero() {
		out += ", due " + g.Deadline.String()
	}
	return out, nil
}

// looksLikeDate catches attempts at a date so a typo is reported instead of
// being swallowed into the description.
func looksLikeDate(s string) bool {
	if !strings.Contains(s, "-") && !strings.Contains(s, "/") {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '-' && r != '/' {
			return false
		}
	}
	return true
}

func (r *Router) transfer(ctx context.Context, req request) (string, error) {
	const syntax = "transfer <amount> <user> [description]"
	if len(req.args) < 2 {
		return "", usage(syntax)
	}
	// either order is accepted: amount first or recipient first
	a, u := req.args[0].text, req.args[1].text
	if !isAmount(req.args[0]) {
		a, u = u, a
	}
	amount, err := core.ParseAmount(a)
	if err != nil {
		return "", err
	}
	to, ok := parseUserRef(u)
	if !ok {
		return "", usage(syntax)
	}

	rec, err := r.svc.Transfer(ctx, req.userID, to, amount, join(req.args[2:]))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("✅ Sent %s to user %d\n💰 Balance: %s",
		FormatMoney(rec.Sent.Amount, req.currency), to, FormatMoney(rec.SenderBalance, req.currency)), nil
}

func (r *Router) history(ctx context.Context, req request) (string, error) {
	days := 0
	args := req.args
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0].text); err == nil {
			days = n
			args = args[1:]
		}
	}
	res, err := r.svc.History(ctx, req.userID, days, join(args))
	if err != nil {
		return "", err
	}

	title := fmt.Sprintf("📜 Last %d day(s)", res.Days)
	if res.Category != "" {
		title += " · " + res.Category
	}
	if len(res.Transactions) == 0 {
		return title + "\nNo transactions.", nil
	}
	return title + "\n" + r.listTransactions(res.Transactions, req.currency), nil
}

func (r *Router) listTransactions(txs []core.Transaction, cur string) string {
	var b strings.Builder
	for _, tx := range txs {
		fmt.Fprintf(&b, "%s %s %s · %s", txIcon(tx.Type), formatTime(tx.CreatedAt, r.loc),
			signed(tx.Type, tx.Amount, cur), tx.Category)
		if tx.Description != "" {
			fmt.Fprintf(&b, " · %s", tx.Description)
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

func (r *Router) stats(ctx context.Context, req request) (string, error) {
	res, err := r.svc.Stats(ctx, req.userID)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("📈 Statistics\n")
	writeTotals(&b, "Last 7 days", res.Week, req.currency)
	writeTotals(&b, "This month", res.Month, req.currency)
	return strings.TrimRight(b.String(), "\n"), nil
}

func writeTotals(b *strings.Builder, label string, t core.Totals, cur string) {
	fmt.Fprintf(b, "%s: income %s, expense %s, net %s\n", label,
		FormatMoney(t.Income, cur), FormatMoney(t.Expense, cur), FormatMoney(t.Net(), cur))
}

func (r *Router) report(ctx context.Context, req request) (string, error) {
	var arg string
	if len(req.args) > 0 {
		arg = req.args[0].text
	}
	period, err := core.ParsePeriod(arg)
	if err != nil {
		return "", fmt.Errorf("%w: expected week, month or year", err)
	}
	rep, err := r.svc.Report(ctx, req.userID, period)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 Report (%s, from %s)\n", rep.Period, rep.Window.From.In(r.loc).Format(core.DateLayout))
	writeTotals(&b, "Total", rep.Totals, req.currency)
	if len(rep.TopCategories) > 0 {
		b.WriteString("Top expenses:\n")
		for i, c := range rep.TopCategories {
			fmt.Fprintf(&b, "  %d. %s: %s\n", i+1, c.Name, FormatMoney(c.Amount, req.currency))
		}
	}
	if rep.HasTrend {
		fmt.Fprintf(&b, "Trend vs previous %s: %s (was %s)\n", rep.Period, rep.Trend, FormatMoney(rep.PreviousExpense, req.currency))
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (r *Router) search(ctx context.Context, req request) (string, error) {
	res, err := r.svc.Search(ctx, req.userID, join(req.args))
	if err != nil {
		return "", err
	}
	if len(res.Transactions) == 0 {
		return fmt.Sprintf("🔍 Nothing matches %q.", res.Keyword), nil
	}
	return fmt.Sprintf("🔍 Results for %q\n", res.Keyword) + r.listTransactions(res.Transactions, req.currency), nil
}

func (r *Router) category(ctx context.Context, req request) (string, error) {
	action := "list"
	if len(req.args) > 0 {
		action = strings.ToLower(req.args[0].text)
	}

	switch action {
	case "list":
		cats, err := r.svc.Categories(ctx, req.userID)
		if err != nil {
			return "", err
		}
		var b strings.Builder
		b.WriteString("🏷️ Categories\nIncome: ")
		b.WriteString(categoryNames(cats.Income))
		b.WriteString("\nExpense: ")
		b.WriteString(categoryNames(cats.Expense))
		return b.String(), nil

	case "add":
		if len(req.args) < 3 {
			return "", usage("category add <income|expense> <name>")
		}
		typ, err := core.ParseTxType(req.args[1].text)
		if err != nil {
			return "", err
		}
		c, err := r.svc.AddCategory(ctx, req.userID, typ, join(req.args[2:]))
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("✅ Category %s added (%s)", c.Name, c.Type), nil
	}
	return "", usage("category list|add")
}

func categoryNames(cats []core.Category) string {
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = c.Name
		if c.Icon != "" {
			names[i] = c.Icon + " " + c.Name
		}
	}
	return strings.Join(names, ", ")
}

func (r *Router) settings(ctx context.Context, req request) (string, error) {
	var (
		s   core.Settings
		err error
	)
	switch len(req.args) {
	case 0:
		s, err = r.svc.Settings(ctx, req.userID)
	case 1:
		return "", usage("settings <currency|notifications|budget> <value>")
	default:
		s, err = r.svc.UpdateSetting(ctx, req.userID, req.args[0].text, join(req.args[1:]))
	}
	if err != nil {
		return "", err
	}

	notif := "off"
	if s.Notifications {
		notif = "on"
	}
	budget := "not set"
	if s.MonthlyBudget > 0 {
		budget = FormatMoney(s.MonthlyBudget, s.Currency)
	}
	head := "⚙️ Settings"
	if len(req.args) > 0 {
		head = "✅ Settings updated"
	}
	return fmt.Sprintf("%s\ncurrency: %s\nnotifications: %s\nbudget: %s", head, s.Currency, notif, budget), nil
}

func (r *Router) export(ctx context.Context, req request) (string, error) {
	var format string
	if len(req.args) > 0 {
		format = req.args[0].text
	}
	res, err := r.svc.Export(ctx, req.userID, format)
	if errors.Is(err, core.ErrInvalidFormat) {
		return "", fmt.Errorf("%w: expected json or csv", err)
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("📦 %s (%s)\n%s", res.Filename, res.ContentType, strings.TrimRight(string(res.Body), "\n")), nil
}

func (r *Router) achievements(ctx context.Context, req request) (string, error) {
	list, err := r.svc.Achievements(ctx, req.userID)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("🏆 Achievements\n")
	for _, a := range list {
		if a.Unlocked {
			fmt.Fprintf(&b, "✅ %s\n", a.Title)
			continue
		}
		fmt.Fprintf(&b, "🔒 %s %s %s\n", a.Title, progressBar(a.Progress), a.Progress)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (r *Router) chart(ctx context.Context, req request) (string, error) {
	var typArg, periodArg string
	if len(req.args) > 0 {
		typArg = req.args[0].text
	}
	if len(req.args) > 1 {
		periodArg = req.args[1].text
	}
	typ, err := services.ParseChartType(typArg)
	if err != nil {
		return "", fmt.Errorf("%w: expected pie or bar", err)
	}
	period, err := core.ParsePeriod(periodArg)
	if err != nil {
		return "", fmt.Errorf("%w: expected week, month or year", err)
	}

	data, err := r.svc.ChartData(ctx, req.userID, typ, period)
	if err != nil {
		return "", err
	}
	var total core.Money
	for _, s := range data.Series {
		total += s.Amount
	}
	if total == 0 {
		return fmt.Sprintf("📊 No data for this %s.", data.Period), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 %s chart, %s\n", data.Type, data.Period)
	for _, s := range data.Series {
		p := core.Ratio(s.Amount, total)
		fmt.Fprintf(&b, "%s %s: %s (%s)\n", progressBar(p), s.Name, FormatMoney(s.Amount, req.currency), p)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (r *Router) notifications(ctx context.Context, req request) (string, error) {
	list, err := r.svc.Notifications(ctx, req.userID)
	if err != nil {
		return "", err
	}
	if len(list) == 0 {
		return "🔔 No new notifications.", nil
	}
	var b strings.Builder
	b.WriteString("🔔 Notifications\n")
	for _, n := range list {
		fmt.Fprintf(&b, "• %s %s\n", formatTime(n.CreatedAt, r.loc), n.Message)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
