package services

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"finbot/internal/amqp"
	"finbot/internal/core"
	"finbot/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*amqp.LedgerEvent
	err    error
}

func (p *recordingPublisher) PublishLedgerEvent(_ context.Context, ev *amqp.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) kinds() []amqp.EventKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []amqp.EventKind
	for _, ev := range p.events {
		out = append(out, ev.Kind)
	}
	return out
}

type LedgerServiceTestSuite struct {
	suite.Suite
	repo *storage.SQLiteRepository
	pub  *recordingPublisher
	svc  *LedgerService
	ctx  context.Context
	now  time.Time
}

var ict = time.FixedZone("ICT", 7*3600)

func (s *LedgerServiceTestSuite) SetupTest() {
	repo, err := storage.NewSQLiteRepository(filepath.Join(s.T().TempDir(), "finbot.db"), "VND")
	require.NoError(s.T(), err)
	s.repo = repo
	s.pub = &recordingPublisher{}
	s.ctx = context.Background()
	s.now = time.Date(2024, 6, 15, 9, 0, 0, 0, ict)
	s.svc = NewLedgerService(repo, s.pub, Options{
		Location:           ict,
		HighSpendThreshold: 1_000_000,
		HistoryLimit:       10,
		Now:                func() time.Time { return s.now },
	})
}

func (s *LedgerServiceTestSuite) TearDownTest() {
	if s.svc != nil {
		s.svc.Close()
	}
}

func TestLedgerServiceTestSuite(t *testing.T) {
	suite.Run(t, new(LedgerServiceTestSuite))
}

func (s *LedgerServiceTestSuite) TestSalaryBreakfastGoalExample() {
	res, err := s.svc.Deposit(s.ctx, 1, 3_000_000, "Lương", "lương tháng 6")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), core.Money(3_000_000), res.Balance)

	res, err = s.svc.Withdraw(s.ctx, 1, 50_000, "Ăn uống", "ăn sáng")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), core.Money(2_950_000), res.Balance)
	assert.Nil(s.T(), res.HighSpend)

	_, err = s.svc.SetGoal(s.ctx, 1, 10_000_000)
	require.NoError(s.T(), err)

	report, err := s.svc.Balance(s.ctx, 1)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), core.Money(2_950_000), report.User.Balance)
	require.True(s.T(), report.Goal.Set)
	assert.Equal(s.T(), "29.5%", report.Goal.Progress.String())
	assert.Equal(s.T(), core.Money(7_050_000), report.Goal.Remaining)
	assert.Equal(s.T(), core.Money(3_000_000), report.Month.Income)
	assert.Equal(s.T(), core.Money(50_000), report.Month.Expense)
}

func (s *LedgerServiceTestSuite) TestWithdrawOnEmptyBalance() {
	_, err := s.svc.Withdraw(s.ctx, 2, 100, "Ăn uống", "")
	require.Error(s.T(), err)
	assert.ErrorIs(s.T(), err, core.ErrInsufficientFunds)
	assert.Equal(s.T(), core.KindInsufficientFunds, core.Kind(err))

	report, err := s.svc.Balance(s.ctx, 2)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), core.Money(0), report.User.Balance)

	hist, err := s.svc.History(s.ctx, 2, 30, "")
	require.NoError(s.T(), err)
	assert.Empty(s.T(), hist.Transactions)
	assert.Empty(s.T(), s.pub.kinds(), "rejected withdrawals publish nothing")
}

func (s *LedgerServiceTestSuite) TestRejectsNonPositiveAmounts() {
	_, err := s.svc.Deposit(s.ctx, 1, 0, "", "")
	assert.ErrorIs(s.T(), err, core.ErrInvalidAmount)
	_, err = s.svc.Withdraw(s.ctx, 1, -5, "", "")
	assert.ErrorIs(s.T(), err, core.ErrInvalidAmount)
	_, err = s.svc.SetGoal(s.ctx, 1, 0)
	assert.ErrorIs(s.T(), err, core.ErrInvalidAmount)
	_, err = s.svc.Transfer(s.ctx, 1, 2, 0, "")
	assert.ErrorIs(s.T(), err, core.ErrInvalidAmount)
}

// Limits count characters; "ă" and "ữ" are several bytes each.
func (s *LedgerServiceTestSuite) TestLengthLimitsCountCharacters() {
	_, err := s.svc.Deposit(s.ctx, 1, 10_000, "Lương", strings.Repeat("ă", 200))
	require.NoError(s.T(), err)
	_, err = s.svc.Deposit(s.ctx, 1, 10_000, "Lương", strings.Repeat("ă", 201))
	assert.ErrorIs(s.T(), err, core.ErrDescriptionTooLong)

	_, err = s.svc.Transfer(s.ctx, 1, 2, 100, strings.Repeat("ư", 200))
	require.NoError(s.T(), err)
	_, err = s.svc.Transfer(s.ctx, 1, 2, 100, strings.Repeat("ư", 201))
	assert.ErrorIs(s.T(), err, core.ErrDescriptionTooLong)

	_, err = s.svc.AddCategory(s.ctx, 1, core.Expense, strings.Repeat("ữ", 100))
	require.NoError(s.T(), err)
	_, err = s.svc.AddCategory(s.ctx, 1, core.Expense, strings.Repeat("ữ", 101))
	assert.ErrorIs(s.T(), err, core.ErrNameTooLong)

	_, err = s.svc.AddSavingsGoal(s.ctx, 1, strings.Repeat("ộ", 100), 1_000, core.Date{}, "")
	require.NoError(s.T(), err)
	_, err = s.svc.AddSavingsGoal(s.ctx, 1, strings.Repeat("ộ", 101), 1_000, core.Date{}, "")
	assert.ErrorIs(s.T(), err, core.ErrNameTooLong)
}

func (s *LedgerServiceTestSuite) TestCategoryResolution() {
	res, err := s.svc.Deposit(s.ctx, 1, 100, "lương", "")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "Lương", res.Transaction.Category)
	assert.False(s.T(), res.CategoryFallback)

	res, err = s.svc.Deposit(s.ctx, 1, 100, "Lottery", "")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), core.DefaultCategory, res.Transaction.Category)
	assert.True(s.T(), res.CategoryFallback)
	assert.Equal(s.T(), "Lottery", res.RequestedCategory)

	// Expense-only names are unknown for income
	res, err = s.svc.Deposit(s.ctx, 1, 100, "Ăn uống", "")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), core.DefaultCategory, res.Transaction.Category)

	res, err = s.svc.Deposit(s.ctx, 1, 100, "", "")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), core.DefaultCategory, res.Transaction.Category)
	assert.False(s.T(), res.CategoryFallback)
}

func (s *LedgerServiceTestSuite) TestHighSpendAdvisory() {
	_, err := s.svc.Deposit(s.ctx, 1, 5_000_000, "Lương", "")
	require.NoError(s.T(), err)

	res, err := s.svc.Withdraw(s.ctx, 1, 600_000, "Mua sắm", "giày")
	require.NoError(s.T(), err)
	assert.Nil(s.T(), res.HighSpend)

	res, err = s.svc.Withdraw(s.ctx, 1, 500_000, "mua sắm", "áo")
	require.NoError(s.T(), err)
	require.NotNil(s.T(), res.HighSpend)
	assert.Equal(s.T(), "Mua sắm", res.HighSpend.Category)
	assert.Equal(s.T(), core.Money(1_100_000), res.HighSpend.MonthTotal)
	assert.Equal(s.T(), core.Money(3_900_000), res.Balance)

	assert.Equal(s.T(), []amqp.EventKind{amqp.EventExpense, amqp.EventExpense}, s.pub.kinds())
}

func (s *LedgerServiceTestSuite) TestPublishFailureDoesNotFailCommand() {
	s.pub.err = errors.New("connection refused")
	_, err := s.svc.Deposit(s.ctx, 1, 1_000, "", "")
	require.NoError(s.T(), err)

	res, err := s.svc.Withdraw(s.ctx, 1, 100, "", "")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), core.Money(900), res.Balance)
}

func (s *LedgerServiceTestSuite) TestNilPublisher() {
	svc := NewLedgerService(s.repo, nil, Options{Location: ict, Now: func() time.Time { return s.now }})
	_, err := svc.Deposit(s.ctx, 5, 1_000, "", "")
	require.NoError(s.T(), err)
	_, err = svc.Withdraw(s.ctx, 5, 400, "", "")
	require.NoError(s.T(), err)
}

func (s *LedgerServiceTestSuite) TestGoal() {
	g, err := s.svc.Goal(s.ctx, 1)
	require.NoError(s.T(), err)
	assert.False(s.T(), g.Set)

	_, err = s.svc.Deposit(s.ctx, 1, 4_000_000, "Lương", "")
	require.NoError(s.T(), err)

	g, err = s.svc.SetGoal(s.ctx, 1, 10_000_000)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "40.0%", g.Progress.String())
	assert.Equal(s.T(), core.Money(6_000_000), g.Remaining)
	// 4,000,000 net over four months averages 1,000,000
	require.True(s.T(), g.HasProjection)
	assert.Equal(s.T(), core.Money(1_000_000), g.AverageMonthlyNet)
	assert.Equal(s.T(), int64(6), g.MonthsToGoal)

	g, err = s.svc.SetGoal(s.ctx, 1, 1_000_000)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "100.0%", g.Progress.String())
	assert.Equal(s.T(), core.Money(0), g.Remaining)
	assert.False(s.T(), g.HasProjection)
}

func (s *LedgerServiceTestSuite) TestGoalWithoutSavingsHasNoProjection() {
	_, err := s.svc.Deposit(s.ctx, 1, 100_000, "", "")
	require.NoError(s.T(), err)
	_, err = s.svc.Withdraw(s.ctx, 1, 100_000, "", "")
	require.NoError(s.T(), err)

	g, err := s.svc.SetGoal(s.ctx, 1, 1_000_000)
	require.NoError(s.T(), err)
	assert.False(s.T(), g.HasProjection)
}

func (s *LedgerServiceTestSuite) TestSetBudgetTwiceUpdates() {
	res, err := s.svc.SetBudget(s.ctx, 1, "ăn uống", 2_000_000)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "Ăn uống", res.Budget.Category)
	assert.Equal(s.T(), core.NewDate(2024, 6, 1), res.Budget.StartDate)
	assert.Equal(s.T(), core.NewDate(2024, 6, 30), res.Budget.EndDate)

	_, err = s.svc.SetBudget(s.ctx, 1, "Ăn uống", 1_000_000)
	require.NoError(s.T(), err)

	_, err = s.svc.Deposit(s.ctx, 1, 5_000_000, "Lương", "")
	require.NoError(s.T(), err)
	_, err = s.svc.Withdraw(s.ctx, 1, 1_200_000, "Ăn uống", "tiệc")
	require.NoError(s.T(), err)

	usage, err := s.svc.Budgets(s.ctx, 1)
	require.NoError(s.T(), err)
	require.Len(s.T(), usage, 1)
	assert.Equal(s.T(), core.Money(1_000_000), usage[0].Budget.Limit)
	assert.Equal(s.T(), core.Money(1_200_000), usage[0].Spent)
	assert.Equal(s.T(), core.BandExceeded, usage[0].Band())
	assert.Equal(s.T(), "120.0%", usage[0].Percent().String())
}

func (s *LedgerServiceTestSuite) TestSetBudgetUnknownCategoryFallsBack() {
	res, err := s.svc.SetBudget(s.ctx, 1, "Pets", 100_000)
	require.NoError(s.T(), err)
	assert.True(s.T(), res.CategoryFallback)
	assert.Equal(s.T(), core.DefaultCategory, res.Budget.Category)

	_, err = s.svc.SetBudget(s.ctx, 1, "", 100_000)
	assert.ErrorIs(s.T(), err, core.ErrMissingArgument)
}

func (s *LedgerServiceTestSuite) TestSavingsGoalExample() {
	_, err := s.svc.Deposit(s.ctx, 1, 6_000_000, "Lương", "")
	require.NoError(s.T(), err)

	_, err = s.svc.AddSavingsGoal(s.ctx, 1, "Xe máy", 20_000_000, core.NewDate(2030, 1, 1), "")
	require.NoError(s.T(), err)

	res, err := s.svc.DepositSavings(s.ctx, 1, "Xe máy", 5_000_000)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), core.Money(5_000_000), res.Goal.Current)
	assert.Equal(s.T(), "25.0%", res.Goal.Progress().String())
	assert.Equal(s.T(), core.Money(1_000_000), res.Balance)
	assert.Equal(s.T(), core.SavingsCategory, res.Transaction.Category)
	assert.Equal(s.T(), core.Expense, res.Transaction.Type)

	hist, err := s.svc.History(s.ctx, 1, 7, "")
	require.NoError(s.T(), err)
	require.Len(s.T(), hist.Transactions, 2)
	assert.Equal(s.T(), core.SavingsCategory, hist.Transactions[0].Category)

	assert.Contains(s.T(), s.pub.kinds(), amqp.EventSavingsDeposit)
}

func (s *LedgerServiceTestSuite) TestSavingsDepositRejections() {
	_, err := s.svc.Deposit(s.ctx, 1, 1_000, "", "")
	require.NoError(s.T(), err)
	_, err = s.svc.AddSavingsGoal(s.ctx, 1, "Trip", 10_000, core.Date{}, "")
	require.NoError(s.T(), err)

	_, err = s.svc.DepositSavings(s.ctx, 1, "Trip", 5_000)
	assert.ErrorIs(s.T(), err, core.ErrInsufficientFunds)

	_, err = s.svc.DepositSavings(s.ctx, 1, "Nowhere", 10)
	assert.ErrorIs(s.T(), err, core.ErrGoalNotFound)
	assert.Equal(s.T(), core.KindNotFound, core.Kind(err))

	_, err = s.svc.DepositSavings(s.ctx, 1, "Trip", 0)
	assert.ErrorIs(s.T(), err, core.ErrInvalidAmount)

	goals, err := s.svc.SavingsGoals(s.ctx, 1)
	require.NoError(s.T(), err)
	require.Len(s.T(), goals, 1)
	assert.Equal(s.T(), core.Money(0), goals[0].Current)

	report, err := s.svc.Balance(s.ctx, 1)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), core.Money(1_000), report.User.Balance)
}

func (s *LedgerServiceTestSuite) TestAddSavingsGoalDeadline() {
	today := core.DateOf(s.now, ict)
	_, err := s.svc.AddSavingsGoal(s.ctx, 1, "Today", 1_000, today, "")
	assert.ErrorIs(s.T(), err, core.ErrDeadlineNotFuture)

	_, err = s.svc.AddSavingsGoal(s.ctx, 1, "Past", 1_000, core.NewDate(2020, 1, 1), "")
	assert.ErrorIs(s.T(), err, core.ErrDeadlineNotFuture)

	g, err := s.svc.AddSavingsGoal(s.ctx, 1, "Tomorrow", 1_000, core.NewDate(2024, 6, 16), "")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "2024-06-16", g.Deadline.String())

	_, err = s.svc.AddSavingsGoal(s.ctx, 1, "tomorrow", 5_000, core.Date{}, "")
	assert.ErrorIs(s.T(), err, core.ErrGoalExists)
}

func (s *LedgerServiceTestSuite) TestTransfer() {
	_, err := s.svc.Deposit(s.ctx, 1, 1_000_000, "Lương", "")
	require.NoError(s.T(), err)

	before, err := s.repo.TotalBalance(s.ctx)
	require.NoError(s.T(), err)

	receipt, err := s.svc.Transfer(s.ctx, 1, 2, 250_000, "tiền nhà")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), core.Money(750_000), receipt.SenderBalance)
	assert.Equal(s.T(), core.Money(250_000), receipt.RecipientBalance)
	assert.Equal(s.T(), receipt.Sent.Amount, receipt.Received.Amount)

	after, err := s.repo.TotalBalance(s.ctx)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), before, after)

	_, err = s.svc.Transfer(s.ctx, 1, 1, 10, "")
	assert.ErrorIs(s.T(), err, core.ErrSelfTransfer)

	_, err = s.svc.Transfer(s.ctx, 2, 1, 1_000_000, "")
	assert.ErrorIs(s.T(), err, core.ErrInsufficientFunds)

	assert.Contains(s.T(), s.pub.kinds(), amqp.EventTransfer)
}

func (s *LedgerServiceTestSuite) TestHistory() {
	_, err := s.svc.Deposit(s.ctx, 1, 1_000_000, "Lương", "")
	require.NoError(s.T(), err)

	s.now = s.now.AddDate(0, 0, -10)
	_, err = s.svc.Withdraw(s.ctx, 1, 10_000, "Ăn uống", "old")
	require.NoError(s.T(), err)
	s.now = s.now.AddDate(0, 0, 10)

	for i := 0; i < 12; i++ {
		_, err = s.svc.Withdraw(s.ctx, 1, 1_000, "Ăn uống", "snack")
		require.NoError(s.T(), err)
	}

	hist, err := s.svc.History(s.ctx, 1, 0, "")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 7, hist.Days)
	assert.Len(s.T(), hist.Transactions, 10, "capped by the history limit")

	hist, err = s.svc.History(s.ctx, 1, 30, "ĂN UỐNG")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "Ăn uống", hist.Category)
	for _, t := range hist.Transactions {
		assert.Equal(s.T(), "Ăn uống", t.Category)
	}

	_, err = s.svc.History(s.ctx, 1, 7, "Nope")
	assert.ErrorIs(s.T(), err, core.ErrCategoryNotFound)

	_, err = s.svc.History(s.ctx, 1, -1, "")
	assert.ErrorIs(s.T(), err, core.ErrInvalidPeriod)
}

func (s *LedgerServiceTestSuite) TestStatsAndReport() {
	// Previous month
	s.now = time.Date(2024, 5, 10, 12, 0, 0, 0, ict)
	_, err := s.svc.Deposit(s.ctx, 1, 10_000_000, "Lương", "")
	require.NoError(s.T(), err)
	_, err = s.svc.Withdraw(s.ctx, 1, 200_000, "Ăn uống", "")
	require.NoError(s.T(), err)

	s.now = time.Date(2024, 6, 15, 9, 0, 0, 0, ict)
	spends := []struct {
		amount   core.Money
		category string
	}{
		{100_000, "Ăn uống"}, {50_000, "Di chuyển"}, {70_000, "Mua sắm"},
		{30_000, "Giải trí"}, {20_000, "Hóa đơn"}, {10_000, "Sức khỏe"},
	}
	for _, sp := range spends {
		_, err := s.svc.Withdraw(s.ctx, 1, sp.amount, sp.category, "")
		require.NoError(s.T(), err)
	}

	stats, err := s.svc.Stats(s.ctx, 1)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), core.Money(280_000), stats.Week.Expense)
	assert.Equal(s.T(), core.Money(280_000), stats.Month.Expense)
	assert.Equal(s.T(), core.Money(0), stats.Month.Income)

	r, err := s.svc.Report(s.ctx, 1, core.PeriodMonth)
	require.NoError(s.T(), err)
	require.Len(s.T(), r.TopCategories, 5)
	assert.Equal(s.T(), "Ăn uống", r.TopCategories[0].Name)
	assert.Equal(s.T(), core.Money(200_000), r.PreviousExpense)
	require.True(s.T(), r.HasTrend)
	assert.Equal(s.T(), "40.0%", r.Trend.String())

	year, err := s.svc.Report(s.ctx, 1, core.PeriodYear)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), core.Money(10_000_000), year.Totals.Income)
	assert.False(s.T(), year.HasTrend)
}

func (s *LedgerServiceTestSuite) TestSearch() {
	_, err := s.svc.Deposit(s.ctx, 1, 1_000_000, "Lương", "")
	require.NoError(s.T(), err)
	_, err = s.svc.Withdraw(s.ctx, 1, 45_000, "Ăn uống", "Phở bò")
	require.NoError(s.T(), err)
	_, err = s.svc.Withdraw(s.ctx, 1, 30_000, "Di chuyển", "Grab")
	require.NoError(s.T(), err)

	res, err := s.svc.Search(s.ctx, 1, "phở")
	require.NoError(s.T(), err)
	require.Len(s.T(), res.Transactions, 1)
	assert.Equal(s.T(), "Phở bò", res.Transactions[0].Description)

	res, err = s.svc.Search(s.ctx, 1, "di chuyển")
	require.NoError(s.T(), err)
	assert.Len(s.T(), res.Transactions, 1)

	_, err = s.svc.Search(s.ctx, 1, "  ")
	assert.ErrorIs(s.T(), err, core.ErrMissingArgument)
}

func (s *LedgerServiceTestSuite) TestCategories() {
	list, err := s.svc.Categories(s.ctx, 1)
	require.NoError(s.T(), err)
	assert.NotEmpty(s.T(), list.Income)
	assert.NotEmpty(s.T(), list.Expense)

	c, err := s.svc.AddCategory(s.ctx, 1, core.Expense, "Thú cưng")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(1), c.UserID)

	_, err = s.svc.AddCategory(s.ctx, 1, core.Expense, "THÚ CƯNG")
	assert.ErrorIs(s.T(), err, core.ErrCategoryExists)
	_, err = s.svc.AddCategory(s.ctx, 1, core.Expense, "ăn uống")
	assert.ErrorIs(s.T(), err, core.ErrCategoryExists)

	// the list cached above must not hide the new category
	list, err = s.svc.Categories(s.ctx, 1)
	require.NoError(s.T(), err)
	assert.Contains(s.T(), categoryNames(list.Expense), "Thú cưng")
	other, err := s.svc.Categories(s.ctx, 2)
	require.NoError(s.T(), err)
	assert.NotContains(s.T(), categoryNames(other.Expense), "Thú cưng")

	_, err = s.svc.Deposit(s.ctx, 1, 500_000, "Lương", "")
	require.NoError(s.T(), err)
	w, err := s.svc.Withdraw(s.ctx, 1, 100_000, "thú cưng", "thức ăn mèo")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "Thú cưng", w.Transaction.Category)
	assert.False(s.T(), w.CategoryFallback)
}

func (s *LedgerServiceTestSuite) TestCurrencyDoesNotTouchKnownUsers() {
	cur, err := s.svc.Currency(s.ctx, 3)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "VND", cur)
	created, err := s.repo.User(s.ctx, 3)
	require.NoError(s.T(), err, "unknown users are created")

	s.now = s.now.Add(time.Hour)
	s.svc.cur.Delete(3)
	cur, err = s.svc.Currency(s.ctx, 3)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "VND", cur)
	after, err := s.repo.User(s.ctx, 3)
	require.NoError(s.T(), err)
	assert.True(s.T(), created.LastActive.Equal(after.LastActive))

	_, err = s.svc.UpdateSetting(s.ctx, 3, "currency", "eur")
	require.NoError(s.T(), err)
	cur, err = s.svc.Currency(s.ctx, 3)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "EUR", cur)
}

func (s *LedgerServiceTestSuite) TestCategoryNames() {
	names, err := s.svc.CategoryNames(s.ctx, 1, core.Income)
	require.NoError(s.T(), err)
	assert.Contains(s.T(), names, "Lương")
	assert.NotContains(s.T(), names, "Ăn uống")

	_, err = s.svc.AddCategory(s.ctx, 1, core.Expense, "Thú cưng")
	require.NoError(s.T(), err)
	names, err = s.svc.CategoryNames(s.ctx, 1, core.Expense)
	require.NoError(s.T(), err)
	assert.Contains(s.T(), names, "Thú cưng")
	assert.Contains(s.T(), names, "Ăn uống")
}

func (s *LedgerServiceTestSuite) TestSettings() {
	st, err := s.svc.Settings(s.ctx, 1)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), core.Settings{Currency: "VND", Notifications: true}, st)

	st, err = s.svc.UpdateSetting(s.ctx, 1, "currency", "usd")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "USD", st.Currency)

	st, err = s.svc.UpdateSetting(s.ctx, 1, "notifications", "off")
	require.NoError(s.T(), err)
	assert.False(s.T(), st.Notifications)

	st, err = s.svc.UpdateSetting(s.ctx, 1, "budget", "5.000.000")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), core.Money(5_000_000), st.MonthlyBudget)

	report, err := s.svc.Balance(s.ctx, 1)
	require.NoError(s.T(), err)
	require.NotNil(s.T(), report.MonthlyBudget)
	assert.Equal(s.T(), core.Money(5_000_000), report.MonthlyBudget.Budget.Limit)

	st, err = s.svc.UpdateSetting(s.ctx, 1, "budget", "0")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), core.Money(0), st.MonthlyBudget)

	for _, tc := range []struct{ key, value string }{
		{"currency", "US"},
		{"currency", "đồn"},
		{"notifications", "maybe"},
		{"theme", "dark"},
	} {
		_, err = s.svc.UpdateSetting(s.ctx, 1, tc.key, tc.value)
		assert.ErrorIs(s.T(), err, core.ErrInvalidSetting, "%s=%s", tc.key, tc.value)
	}
	_, err = s.svc.UpdateSetting(s.ctx, 1, "budget", "-5")
	assert.ErrorIs(s.T(), err, core.ErrInvalidAmount)

	st, err = s.svc.Settings(s.ctx, 1)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), core.Settings{Currency: "USD", Notifications: false}, st)
}

func (s *LedgerServiceTestSuite) TestExport() {
	_, err := s.svc.Deposit(s.ctx, 1, 1_000_000, "Lương", "tháng 6")
	require.NoError(s.T(), err)

	res, err := s.svc.Export(s.ctx, 1, "csv")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "finbot_1.csv", res.Filename)
	lines := strings.Split(strings.TrimSpace(string(res.Body)), "\n")
	require.Len(s.T(), lines, 2)
	assert.Equal(s.T(), "id,date,type,category,amount,description", lines[0])
	assert.Contains(s.T(), lines[1], "2024-06-15 09:00:00")

	res, err = s.svc.Export(s.ctx, 1, "")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "application/json", res.ContentType)

	_, err = s.svc.Export(s.ctx, 1, "pdf")
	assert.ErrorIs(s.T(), err, core.ErrInvalidFormat)
}

func (s *LedgerServiceTestSuite) TestAchievements() {
	_, err := s.svc.Deposit(s.ctx, 1, 1_000_000, "Lương", "")
	require.NoError(s.T(), err)

	list, err := s.svc.Achievements(s.ctx, 1)
	require.NoError(s.T(), err)
	unlocked := map[string]bool{}
	for _, a := range list {
		unlocked[a.Code] = a.Unlocked
	}
	assert.True(s.T(), unlocked["first_transaction"])
	assert.True(s.T(), unlocked["first_million"])
	assert.False(s.T(), unlocked["active_recorder"])
	assert.False(s.T(), unlocked["saver"])
}

func (s *LedgerServiceTestSuite) TestChartData() {
	_, err := s.svc.Deposit(s.ctx, 1, 1_000_000, "Lương", "")
	require.NoError(s.T(), err)
	_, err = s.svc.Withdraw(s.ctx, 1, 300_000, "Mua sắm", "")
	require.NoError(s.T(), err)

	pie, err := s.svc.ChartData(s.ctx, 1, ChartPie, core.PeriodMonth)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), []core.CategoryAmount{{Name: "Mua sắm", Amount: 300_000}}, pie.Series)

	bar, err := s.svc.ChartData(s.ctx, 1, ChartBar, core.PeriodWeek)
	require.NoError(s.T(), err)
	require.Len(s.T(), bar.Series, 2)
	assert.Equal(s.T(), core.Money(1_000_000), bar.Series[0].Amount)
	assert.Equal(s.T(), core.Money(300_000), bar.Series[1].Amount)

	_, err = ParseChartType("line")
	assert.ErrorIs(s.T(), err, core.ErrInvalidFormat)
}

func (s *LedgerServiceTestSuite) TestNotifications() {
	_, err := s.repo.GetOrCreateUser(s.ctx, 1, s.now)
	require.NoError(s.T(), err)
	_, err = s.repo.CreateNotification(s.ctx, core.Notification{UserID: 1, Message: "hello", Kind: "budget_warning", CreatedAt: s.now})
	require.NoError(s.T(), err)

	report, err := s.svc.Balance(s.ctx, 1)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(1), report.UnreadNotifications)

	list, err := s.svc.Notifications(s.ctx, 1)
	require.NoError(s.T(), err)
	require.Len(s.T(), list, 1)

	list, err = s.svc.Notifications(s.ctx, 1)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), list)
}

func TestLedgerService_Close(t *testing.T) {
	t.Run("nil components", func(t *testing.T) {
		service := &LedgerService{}

		if err := service.Close(); err != nil {
			t.Fatalf("Close should not return error with nil components: %v", err)
		}
	})
}

func TestMatchCategory(t *testing.T) {
	cats := []core.Category{
		{Name: "Lương", Type: core.Income},
		{Name: "Ăn uống", Type: core.Expense},
		{Name: "Transfer", Type: core.Income},
		{Name: "Transfer", Type: core.Expense},
	}
	tests := []struct {
		typ  core.TxType
		name string
		want string
		ok   bool
	}{
		{core.Income, "LƯƠNG", "Lương", true},
		{core.Expense, "lương", "", false},
		{"", "ăn UỐNG", "Ăn uống", true},
		{core.Expense, "transfer", "Transfer", true},
	}
	for _, tt := range tests {
		got, ok := matchCategory(cats, tt.typ, tt.name)
		if ok != tt.ok || got.Name != tt.want {
			t.Fatalf("matchCategory(%q, %q) = %q, %v; want %q, %v", tt.typ, tt.name, got.Name, ok, tt.want, tt.ok)
		}
	}
}

func categoryNames(cats []core.Category) []string {
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = c.Name
	}
	return names
}
