package calculator

import "errors"

var (
	// ErrInsufficientHistory means the series is shorter than the window the formula needs.
	ErrInsufficientHistory = errors.New("insufficient history")
	// ErrZeroDenominator means the formula would divide by zero.
	ErrZeroDenominator = errors.New("division by zero")
	// ErrUndefined means the inputs or the result are NaN or infinite.
	ErrUndefined = errors.New("result undefined")
	// ErrInvalidInput covers mismatched lengths and non-positive periods.
	ErrInvalidInput = errors.New("invalid input")
)
