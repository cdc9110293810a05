// Package core provides money parsing and handling utilities.
//
// Amounts are whole numbers of the smallest currency unit (đồng for VND).
// Chat users write them with or without thousands separators, so parsing
// accepts "50000", "50.000", "50,000" and "50_000" alike.
package core

import (
	"strconv"
	"strings"
	"unicode"
)

// Money is an amount in the smallest currency unit.
type Money int64

// maxAmount keeps sums of many amounts far from int64 overflow.
const maxAmount Money = 1_000_000_000_000_000

func (m Money) Validate() error {
	if m <= 0 || m > maxAmount {
		return ErrInvalidAmount
	}
	return nil
}

func (m Money) Int64() int64 {
	return int64(m)
}

// ParseAmount converts a user supplied amount to Money.
//
// Grouping separators must split the digits in groups of three
// ("1.234.567"); anything else, including signs, fractions, and zero,
// is rejected with ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("3000000")   -> 3000000, nil
//	ParseAmount("3.000.000") -> 3000000, nil
//	ParseAmount("50,000")    -> 50000, nil
//	ParseAmount("12.5")      -> 0, ErrInvalidAmount
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}

	groups := strings.FieldsFunc(s, func(r rune) bool {
		return r == '.' || r == ',' || r == '_'
	})
	if len(groups) == 0 {
		return 0, ErrInvalidAmount
	}
	// Separators may not lead, trail or repeat.
	if separatorCount(s) != len(groups)-1 {
		return 0, ErrInvalidAmount
	}
	if len(groups) > 1 {
		if len(groups[0]) > 3 {
			return 0, ErrInvalidAmount
		}
		for _, g := range groups[1:] {
			if len(g) != 3 {
				return 0, ErrInvalidAmount
			}
		}
	}

	digits := strings.Join(groups, "")
	for _, r := range digits {
		if !unicode.IsDigit(r) || r > unicode.MaxASCII {
			return 0, ErrInvalidAmount
		}
	}

	v, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	m := Money(v)
	if err := m.Validate(); err != nil {
		return 0, err
	}
	return m, nil
}

func stripSeparators(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '.' || r == ',' || r == '_' {
			return -1
		}
		return r
	}, s)
}

func separatorCount(s string) int {
	return len(s) - len(stripSeparators(s))
}
