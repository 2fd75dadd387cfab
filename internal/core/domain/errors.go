package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidQuantityFormat = errors.New("quantity is not a whole number")
	ErrInvalidPriceFormat    = errors.New("unit price is not a number")
	ErrNonPositiveQuantity   = errors.New("quantity must be greater than 0")
	ErrQuantityOverflow      = errors.New("total quantity would exceed the supported maximum")
	ErrNonPositivePrice      = errors.New("unit price must be greater than 0")
	ErrEmptyName             = errors.New("name must not be empty")
	ErrIndexOutOfRange       = errors.New("position out of range")
	ErrRecordNotFound        = errors.New("record not found")
	ErrSessionNotFound       = errors.New("session not found")
	ErrDuplicateRequest      = errors.New("duplicate request")
)

// ErrorKind classifies a user-visible failure.
type ErrorKind string

const (
	KindInvalidQuantityFormat ErrorKind = "InvalidQuantityFormat"
	KindInvalidPriceFormat    ErrorKind = "InvalidPriceFormat"
	KindNonPositiveQuantity   ErrorKind = "NonPositiveQuantity"
	KindQuantityOverflow      ErrorKind = "QuantityOverflow"
	KindNonPositivePrice      ErrorKind = "NonPositivePrice"
	KindEmptyName             ErrorKind = "EmptyName"
	KindIndexOutOfRange       ErrorKind = "IndexOutOfRange"
	KindRecordNotFound        ErrorKind = "RecordNotFound"
	KindSessionNotFound       ErrorKind = "SessionNotFound"
	KindDuplicateRequest      ErrorKind = "DuplicateRequest"
)

var kindSentinels = map[ErrorKind]error{
	KindInvalidQuantityFormat: ErrInvalidQuantityFormat,
	KindInvalidPriceFormat:    ErrInvalidPriceFormat,
	KindNonPositiveQuantity:   ErrNonPositiveQuantity,
	KindQuantityOverflow:      ErrQuantityOverflow,
	KindNonPositivePrice:      ErrNonPositivePrice,
	KindEmptyName:             ErrEmptyName,
	KindIndexOutOfRange:       ErrIndexOutOfRange,
	KindRecordNotFound:        ErrRecordNotFound,
	KindSessionNotFound:       ErrSessionNotFound,
	KindDuplicateRequest:      ErrDuplicateRequest,
}

// Error is returned by every store and session operation that rejects its
// input. The store is left unchanged whenever an Error is returned.
type Error struct {
	Op   string
	Kind ErrorKind
	Err  error
}

// NewError builds an Error whose Err is the sentinel for kind.
func NewError(op string, kind ErrorKind) *Error {
	return &Error{Op: op, Kind: kind, Err: kindSentinels[kind]}
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// KindOf reports the ErrorKind carried by err, if any.
func KindOf(err error) (ErrorKind, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return "", false
}

// IsValidation reports whether err rejects malformed or out-of-range input
// to an add operation.
func IsValidation(err error) bool {
	kind, ok := KindOf(err)
	if !ok {
		return false
	}
	switch kind {
	case KindInvalidQuantityFormat, KindInvalidPriceFormat,
		KindNonPositiveQuantity, KindNonPositivePrice, KindEmptyName,
		KindQuantityOverflow:
		return true
	}
	return false
}
