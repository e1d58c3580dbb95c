package build

import (
	"errors"
	"fmt"
)

const (
	// Attribute allocation.
	CodeOutOfRange = "E_OUT_OF_RANGE"

	// Level cap.
	CodeInvalidCap    = "E_INVALID_CAP"
	CodeCapBelowSpent = "E_CAP_BELOW_SPENT"

	// Perk purchases.
	CodeWouldInvalidatePerk = "E_WOULD_INVALIDATE_PERK"
	CodeUnknownPerk         = "E_UNKNOWN_PERK"
	CodeRankOutOfRange      = "E_RANK_OUT_OF_RANGE"
	CodeRequirementUnmet    = "E_REQUIREMENT_UNMET"
	CodeInsufficientLevels  = "E_INSUFFICIENT_LEVELS"
	CodeNoRankToRefund      = "E_NO_RANK_TO_REFUND"

	// Bonuses.
	CodeUnknownBonus = "E_UNKNOWN_BONUS"

	// Decoding.
	CodeUnknownReference = "E_UNKNOWN_REFERENCE"
	CodeMalformedData    = "E_MALFORMED_DATA"
)

var knownCodes = map[string]struct{}{
	CodeOutOfRange:          {},
	CodeInvalidCap:          {},
	CodeCapBelowSpent:       {},
	CodeWouldInvalidatePerk: {},
	CodeUnknownPerk:         {},
	CodeRankOutOfRange:      {},
	CodeRequirementUnmet:    {},
	CodeInsufficientLevels:  {},
	CodeNoRankToRefund:      {},
	CodeUnknownBonus:        {},
	CodeUnknownReference:    {},
	CodeMalformedData:       {},
}

func IsKnownCode(code string) bool {
	_, ok := knownCodes[code]
	return ok
}

// Error is the single error type returned by Build mutations. Two errors
// match under errors.Is when their codes are equal.
type Error struct {
	Code   string
	PerkID string // set for perk related failures
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Code
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Sentinels for errors.Is.
var (
	ErrOutOfRange          = &Error{Code: CodeOutOfRange}
	ErrInvalidCap          = &Error{Code: CodeInvalidCap}
	ErrCapBelowSpent       = &Error{Code: CodeCapBelowSpent}
	ErrWouldInvalidatePerk = &Error{Code: CodeWouldInvalidatePerk}
	ErrUnknownPerk         = &Error{Code: CodeUnknownPerk}
	ErrRankOutOfRange      = &Error{Code: CodeRankOutOfRange}
	ErrRequirementUnmet    = &Error{Code: CodeRequirementUnmet}
	ErrInsufficientLevels  = &Error{Code: CodeInsufficientLevels}
	ErrNoRankToRefund      = &Error{Code: CodeNoRankToRefund}
	ErrUnknownBonus        = &Error{Code: CodeUnknownBonus}
	ErrUnknownReference    = &Error{Code: CodeUnknownReference}
	ErrMalformedData       = &Error{Code: CodeMalformedData}
)

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) string {
	var be *Error
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}

func newError(code, perk, format string, args ...any) *Error {
	return &Error{Code: code, PerkID: perk, Msg: fmt.Sprintf(format, args...)}
}
