package models

import "errors"

var (
	// ErrInvalidCalculationFrequency is returned when an account type's
	// calculations per year does not evenly divide the twelve months.
	ErrInvalidCalculationFrequency = errors.New("interest calculations per year must divide 12")

	ErrNegativeRate       = errors.New("annual interest rate cannot be negative")
	ErrNegativeBalance    = errors.New("balance cannot be negative")
	ErrMissingAccountType = errors.New("account has no account type loaded")
)
