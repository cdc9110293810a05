package core

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Percent is a percentage rounded to one decimal place.
type Percent struct {
	decimal.Decimal
}

// Ratio returns part/whole*100 without capping; zero when whole is zero.
func Ratio(part, whole Money) Percent {
	if whole == 0 {
		return Percent{decimal.Zero}
	}
	p := decimal.NewFromInt(int64(part)).Mul(hundred).Div(decimal.NewFromInt(int64(whole)))
	return Percent{p.Round(1)}
}

// Progress is Ratio clamped to [0, 100].
func Progress(part, whole Money) Percent {
	p := Ratio(part, whole)
	if p.GreaterThan(hundred) {
		return Percent{hundred}
	}
	if p.IsNegative() {
		return Percent{decimal.Zero}
	}
	return p
}

// Change returns the percent change from prev to cur. ok is false when
// prev is zero and no meaningful change exists.
func Change(prev, cur Money) (Percent, bool) {
	if prev == 0 {
		return Percent{decimal.Zero}, false
	}
	return Ratio(cur-prev, prev), true
}

// String renders "29.5%".
func (p Percent) String() string {
	return p.StringFixed(1) + "%"
}

func (p Percent) Float64() float64 {
	f, _ := p.Decimal.Float64()
	return f
}

// ProjectMonths estimates how many months of the average net saving over
// months it takes to cover remaining, rounding up. ok is false when that
// average is not positive or nothing remains.
func ProjectMonths(remaining, totalNet Money, months int) (n int64, average Money, ok bool) {
	if months <= 0 {
		return 0, 0, false
	}
	span := decimal.NewFromInt(int64(months))
	average = Money(decimal.NewFromInt(int64(totalNet)).Div(span).Floor().IntPart())
	if totalNet <= 0 || remaining <= 0 {
		return 0, average, false
	}
	// remaining / (totalNet / months), kept exact
	q, r := decimal.NewFromInt(int64(remaining)).Mul(span).QuoRem(decimal.NewFromInt(int64(totalNet)), 0)
	n = q.IntPart()
	if r.IsPositive() {
		n++
	}
	return n, average, true
}
