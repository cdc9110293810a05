package bot

import (
	"strconv"
	"strings"
	"time"

	"finbot/internal/core"
)

const timeLayout = "2006-01-02 15:04"

// FormatMoney groups thousands with dots: 3000000 VND -> "3.000.000 VND".
func FormatMoney(m core.Money, currency string) string {
	s := groupThousands(int64(m))
	if currency == "" {
		return s
	}
	return s + " " + currency
}

// signed prefixes income with + and expense with -.
func signed(t core.TxType, m core.Money, currency string) string {
	if t == core.Expense {
		return "-" + FormatMoney(m, currency)
	}
	return "+" + FormatMoney(m, currency)
}

func groupThousands(v int64) string {
	neg := v < 0
	digits := strconv.FormatInt(v, 10)
	if neg {
		digits = digits[1:]
	}

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	lead := len(digits) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(digits[:lead])
	for i := lead; i < len(digits); i += 3 {
		b.WriteByte('.')
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

func formatTime(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(timeLayout)
}

// progressBar renders p as ten cells.
func progressBar(p core.Percent) string {
	filled := int(p.Float64()/10 + 0.5)
	if filled > 10 {
		filled = 10
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", 10-filled)
}

func bandIcon(b core.BudgetBand) string {
	switch b {
	case core.BandExceeded:
		return "🔴"
	case core.BandWarning:
		return "🟡"
	default:
		return "🟢"
	}
}

func txIcon(t core.TxType) string {
	if t == core.Income {
		return "💵"
	}
	return "💸"
}
