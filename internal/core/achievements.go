package core

// Achievement is a badge derived from cumulative stats. Nothing about it
// is persisted; it is recomputed on every query.
type Achievement struct {
	Code     string
	Title    string
	Unlocked bool
	Progress Percent
}

type achievementRule struct {
	code   string
	title  string
	metric func(UserStats) int64
	target int64
}

var achievementRules = []achievementRule{
	{"first_transaction", "First transaction", countMetric, 1},
	{"active_recorder", "Active recorder", countMetric, 10},
	{"dedicated_tracker", "Dedicated tracker", countMetric, 100},
	{"first_million", "First million", incomeMetric, 1_000_000},
	{"ten_million_club", "Ten million club", incomeMetric, 10_000_000},
	{"saver", "Saver", balanceMetric, 5_000_000},
	{"week_streak", "Week streak", activeDaysMetric, 7},
	{"monthly_regular", "Monthly regular", activeDaysMetric, 30},
}

func countMetric(s UserStats) int64      { return s.TransactionCount }
func incomeMetric(s UserStats) int64     { return int64(s.TotalIncome) }
func balanceMetric(s UserStats) int64    { return int64(s.Balance) }
func activeDaysMetric(s UserStats) int64 { return s.ActiveDays }

// Achievements evaluates every rule against stats, in a fixed order.
func Achievements(stats UserStats) []Achievement {
	out := make([]Achievement, 0, len(achievementRules))
	for _, r := range achievementRules {
		v := r.metric(stats)
		out = append(out, Achievement{
			Code:     r.code,
			Title:    r.title,
			Unlocked: v >= r.target,
			Progress: Progress(Money(v), Money(r.target)),
		})
	}
	return out
}
