package core

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidType        = errors.New("invalid transaction type")
	ErrInvalidDate        = errors.New("invalid date, expected YYYY-MM-DD")
	ErrInvalidPeriod      = errors.New("invalid period")
	ErrInvalidSetting     = errors.New("invalid setting")
	ErrInvalidFormat      = errors.New("invalid format")
	ErrDeadlineNotFuture  = errors.New("deadline must be in the future")
	ErrMissingArgument    = errors.New("missing argument")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
	ErrNameTooLong        = errors.New("name too long (max 100 characters)")
	ErrSelfTransfer       = errors.New("cannot transfer to yourself")
	ErrUnknownCommand     = errors.New("unknown command")

	ErrInsufficientFunds = errors.New("insufficient funds")

	ErrNotFound         = errors.New("not found")
	ErrGoalNotFound     = fmt.Errorf("savings goal %w", ErrNotFound)
	ErrCategoryNotFound = fmt.Errorf("category %w", ErrNotFound)
	ErrGoalExists       = errors.New("savings goal already exists")
	ErrCategoryExists   = errors.New("category already exists")
)

// InsufficientFundsError reports the balance observed when a debit was refused.
type InsufficientFundsError struct {
	Balance  Money
	Required Money
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: balance %d, required %d", e.Balance, e.Required)
}

func (e *InsufficientFundsError) Is(target error) bool {
	return target == ErrInsufficientFunds
}

// ErrorKind groups errors the way they are reported back to users.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindInsufficientFunds
	KindNotFound
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindInsufficientFunds:
		return "insufficient_funds"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

var validationErrors = []error{
	ErrInvalidAmount,
	ErrInvalidType,
	ErrInvalidDate,
	ErrInvalidPeriod,
	ErrInvalidSetting,
	ErrInvalidFormat,
	ErrDeadlineNotFuture,
	ErrMissingArgument,
	ErrDescriptionTooLong,
	ErrNameTooLong,
	ErrSelfTransfer,
	ErrUnknownCommand,
	ErrGoalExists,
	ErrCategoryExists,
}

// Kind classifies err; anything unrecognised is internal.
func Kind(err error) ErrorKind {
	if err == nil {
		return KindInternal
	}
	if errors.Is(err, ErrInsufficientFunds) {
		return KindInsufficientFunds
	}
	if errors.Is(err, ErrNotFound) {
		return KindNotFound
	}
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return KindValidation
		}
	}
	return KindInternal
}
