package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"finbot/internal/core"
	"finbot/internal/export"
)

const topCategories = 5

// History lists transactions of the last days days, newest first, capped
// at the configured limit. A category, when given, must exist.
func (s *LedgerService) History(ctx context.Context, userID int64, days int, category string) (HistoryResult, error) {
	if days < 0 {
		return HistoryResult{}, core.ErrInvalidPeriod
	}
	if days == 0 {
		days = defaultHistoryDays
	}
	_, now, err := s.touch(ctx, userID)
	if err != nil {
		return HistoryResult{}, err
	}

	f := core.Filter{Limit: s.limit}
	w := core.LastDays(now, days)
	f.From, f.To = w.From, w.To
	if strings.TrimSpace(category) != "" {
		cats, err := s.categories(ctx, userID)
		if err != nil {
			return HistoryResult{}, err
		}
		c, ok := matchCategory(cats, "", strings.TrimSpace(category))
		if !ok {
			return HistoryResult{}, core.ErrCategoryNotFound
		}
		f.Category = c.Name
	}

	txs, err := s.store.QueryTransactions(ctx, userID, f)
	if err != nil {
		return HistoryResult{}, fmt.Errorf("query transactions: %w", err)
	}
	return HistoryResult{Days: days, Category: f.Category, Transactions: txs}, nil
}

// Stats returns trailing-week and calendar-month totals.
func (s *LedgerService) Stats(ctx context.Context, userID int64) (StatsResult, error) {
	_, now, err := s.touch(ctx, userID)
	if err != nil {
		return StatsResult{}, err
	}
	week, err := s.store.Totals(ctx, userID, core.WindowFor(core.PeriodWeek, now))
	if err != nil {
		return StatsResult{}, fmt.Errorf("week totals: %w", err)
	}
	month, err := s.store.Totals(ctx, userID, core.WindowFor(core.PeriodMonth, now))
	if err != nil {
		return StatsResult{}, fmt.Errorf("month totals: %w", err)
	}
	return StatsResult{Week: week, Month: month}, nil
}

// Report summarises one period with its top expense categories and the
// expense trend against the previous period.
func (s *LedgerService) Report(ctx context.Context, userID int64, period core.Period) (Report, error) {
	_, now, err := s.touch(ctx, userID)
	if err != nil {
		return Report{}, err
	}

	w := core.WindowFor(period, now)
	totals, err := s.store.Totals(ctx, userID, w)
	if err != nil {
		return Report{}, fmt.Errorf("period totals: %w", err)
	}
	cats, err := s.store.Aggregate(ctx, userID, core.Filter{From: w.From, To: w.To, Type: core.Expense}, core.GroupByCategory)
	if err != nil {
		return Report{}, fmt.Errorf("category totals: %w", err)
	}
	if len(cats) > topCategories {
		cats = cats[:topCategories]
	}
	prev, err := s.store.Totals(ctx, userID, core.PreviousWindow(period, now))
	if err != nil {
		return Report{}, fmt.Errorf("previous totals: %w", err)
	}

	r := Report{
		Period:          period,
		Window:          w,
		Totals:          totals,
		TopCategories:   cats,
		PreviousExpense: prev.Expense,
	}
	r.Trend, r.HasTrend = core.Change(prev.Expense, totals.Expense)
	return r, nil
}

// Search matches keyword against description and category without regard
// to case.
func (s *LedgerService) Search(ctx context.Context, userID int64, keyword string) (SearchResult, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return SearchResult{}, core.ErrMissingArgument
	}
	if _, _, err := s.touch(ctx, userID); err != nil {
		return SearchResult{}, err
	}
	txs, err := s.store.QueryTransactions(ctx, userID, core.Filter{Search: keyword, Limit: s.limit})
	if err != nil {
		return SearchResult{}, fmt.Errorf("search transactions: %w", err)
	}
	return SearchResult{Keyword: keyword, Transactions: txs}, nil
}

// ---- categories ----

func (s *LedgerService) Categories(ctx context.Context, userID int64) (CategoryList, error) {
	if _, _, err := s.touch(ctx, userID); err != nil {
		return CategoryList{}, err
	}
	cats, err := s.categories(ctx, userID)
	if err != nil {
		return CategoryList{}, err
	}
	var out CategoryList
	for _, c := range cats {
		if c.Type == core.Income {
			out.Income = append(out.Income, c)
		} else {
			out.Expense = append(out.Expense, c)
		}
	}
	return out, nil
}

func (s *LedgerService) AddCategory(ctx context.Context, userID int64, typ core.TxType, name string) (core.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.Category{}, core.ErrMissingArgument
	}
	if utf8.RuneCountInString(name) > 100 {
		return core.Category{}, core.ErrNameTooLong
	}
	if !typ.Valid() {
		return core.Category{}, core.ErrInvalidType
	}
	if _, _, err := s.touch(ctx, userID); err != nil {
		return core.Category{}, err
	}

	// Shared names collide case-insensitively too, including non-ASCII.
	cats, err := s.categories(ctx, userID)
	if err != nil {
		return core.Category{}, err
	}
	if _, ok := matchCategory(cats, typ, name); ok {
		return core.Category{}, core.ErrCategoryExists
	}
	c, err := s.store.CreateCategory(ctx, core.Category{UserID: userID, Name: name, Type: typ})
	if err != nil {
		return core.Category{}, err
	}
	s.cats.Delete(userID)
	return c, nil
}

// ---- settings ----

const (
	SettingCurrency      = "currency"
	SettingNotifications = "notifications"
	SettingBudget        = "budget"
)

func (s *LedgerService) Settings(ctx context.Context, userID int64) (core.Settings, error) {
	u, _, err := s.touch(ctx, userID)
	if err != nil {
		return core.Settings{}, err
	}
	return settingsOf(u), nil
}

// Currency is the display currency of userID. Known users are read without
// a write; an unknown user is created with the default currency.
func (s *LedgerService) Currency(ctx context.Context, userID int64) (string, error) {
	if cur, ok := s.cur.Get(userID); ok {
		return cur, nil
	}
	u, err := s.store.User(ctx, userID)
	if errors.Is(err, core.ErrNotFound) {
		u, _, err = s.touch(ctx, userID)
	}
	if err != nil {
		return "", err
	}
	s.cur.Set(userID, u.Currency)
	return u.Currency, nil
}

// UpdateSetting changes one key and returns the resulting settings.
func (s *LedgerService) UpdateSetting(ctx context.Context, userID int64, key, value string) (core.Settings, error) {
	u, _, err := s.touch(ctx, userID)
	if err != nil {
		return core.Settings{}, err
	}
	settings := settingsOf(u)
	value = strings.TrimSpace(value)

	switch strings.ToLower(strings.TrimSpace(key)) {
	case SettingCurrency:
		cur, err := parseCurrency(value)
		if err != nil {
			return core.Settings{}, err
		}
		settings.Currency = cur
	case SettingNotifications:
		on, err := parseSwitch(value)
		if err != nil {
			return core.Settings{}, err
		}
		settings.Notifications = on
	case SettingBudget:
		if value == "0" {
			settings.MonthlyBudget = 0
			break
		}
		amount, err := core.ParseAmount(value)
		if err != nil {
			return core.Settings{}, err
		}
		settings.MonthlyBudget = amount
	default:
		return core.Settings{}, fmt.Errorf("%w: unknown key %q", core.ErrInvalidSetting, key)
	}

	if err := s.store.UpdateSettings(ctx, userID, settings); err != nil {
		return core.Settings{}, err
	}
	s.cur.Set(userID, settings.Currency)
	return settings, nil
}

func settingsOf(u core.User) core.Settings {
	return core.Settings{Currency: u.Currency, Notifications: u.Notifications, MonthlyBudget: u.MonthlyBudget}
}

func parseCurrency(v string) (string, error) {
	v = strings.ToUpper(v)
	if len(v) != 3 {
		return "", fmt.Errorf("%w: currency must be a 3-letter code", core.ErrInvalidSetting)
	}
	for _, r := range v {
		if r > unicode.MaxASCII || !unicode.IsLetter(r) {
			return "", fmt.Errorf("%w: currency must be a 3-letter code", core.ErrInvalidSetting)
		}
	}
	return v, nil
}

func parseSwitch(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "on", "true", "1", "yes":
		return true, nil
	case "off", "false", "0", "no":
		return false, nil
	}
	return false, fmt.Errorf("%w: expected on or off", core.ErrInvalidSetting)
}

// ---- export, achievements, charts ----

func (s *LedgerService) Export(ctx context.Context, userID int64, format string) (ExportResult, error) {
	f, err := export.ParseFormat(format)
	if err != nil {
		return ExportResult{}, err
	}
	if _, _, err := s.touch(ctx, userID); err != nil {
		return ExportResult{}, err
	}
	ledger, err := s.store.Ledger(ctx, userID)
	if err != nil {
		return ExportResult{}, fmt.Errorf("load ledger: %w", err)
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, f, ledger, s.loc); err != nil {
		return ExportResult{}, err
	}
	return ExportResult{
		Filename:    f.Filename(userID),
		ContentType: f.ContentType(),
		Body:        buf.Bytes(),
	}, nil
}

func (s *LedgerService) Achievements(ctx context.Context, userID int64) ([]core.Achievement, error) {
	if _, _, err := s.touch(ctx, userID); err != nil {
		return nil, err
	}
	stats, err := s.store.UserStats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("user stats: %w", err)
	}
	return core.Achievements(stats), nil
}

func ParseChartType(v string) (ChartType, error) {
	switch ChartType(strings.ToLower(strings.TrimSpace(v))) {
	case "", ChartPie:
		return ChartPie, nil
	case ChartBar:
		return ChartBar, nil
	}
	return "", core.ErrInvalidFormat
}

// ChartData returns expense by category for a pie chart, or income against
// expense for a bar chart.
func (s *LedgerService) ChartData(ctx context.Context, userID int64, typ ChartType, period core.Period) (ChartData, error) {
	_, now, err := s.touch(ctx, userID)
	if err != nil {
		return ChartData{}, err
	}
	w := core.WindowFor(period, now)

	var series []core.CategoryAmount
	switch typ {
	case ChartPie:
		series, err = s.store.Aggregate(ctx, userID, core.Filter{From: w.From, To: w.To, Type: core.Expense}, core.GroupByCategory)
	case ChartBar:
		var t core.Totals
		t, err = s.store.Totals(ctx, userID, w)
		series = []core.CategoryAmount{
			{Name: string(core.Income), Amount: t.Income},
			{Name: string(core.Expense), Amount: t.Expense},
		}
	default:
		return ChartData{}, core.ErrInvalidFormat
	}
	if err != nil {
		return ChartData{}, fmt.Errorf("chart data: %w", err)
	}
	return ChartData{Type: typ, Period: period, Series: series}, nil
}
