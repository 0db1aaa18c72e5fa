package sdo

import (
	"errors"
	"fmt"
)

var (
	ErrExpeditedDataTooLong = errors.New("expedited transfer carries at most 4 bytes")
	ErrExpeditedDataEmpty   = errors.New("sized expedited transfer carries at least 1 byte")
	ErrUnsizedExpeditedData = errors.New("unsized expedited transfer carries exactly 4 bytes")
	ErrUnsizedNormalSize    = errors.New("unsized normal transfer carries no size")
	ErrSegmentDataTooLong   = errors.New("segment carries at most 7 bytes")
	ErrMissingTransferType  = errors.New("initiate command without transfer type")
	ErrMissingCommand       = errors.New("SDO frame without command")
)

// InvalidCommandSpecifierError is returned for a response frame with command specifier 7.
type InvalidCommandSpecifierError struct {
	Value uint8
}

func (e InvalidCommandSpecifierError) Error() string {
	return fmt.Sprintf("invalid command specifier %d", e.Value)
}

// InvalidClientCommandSpecifierError is returned for a request frame with command specifier 7.
type InvalidClientCommandSpecifierError struct {
	Value uint8
}

func (e InvalidClientCommandSpecifierError) Error() string {
	return fmt.Sprintf("invalid client command specifier %d", e.Value)
}

type UnexpectedCommandError struct {
	Expected string
	Actual   string
}

func (e UnexpectedCommandError) Error() string {
	return fmt.Sprintf("unexpected SDO command %s (expected %s)", e.Actual, e.Expected)
}

type UnexpectedResponseLengthError struct {
	Expected int
	Actual   int
}

func (e UnexpectedResponseLengthError) Error() string {
	return fmt.Sprintf("unexpected response length %d (expected %d)", e.Actual, e.Expected)
}

type UnexpectedToggleBitError struct {
	Expected bool
	Actual   bool
}

func (e UnexpectedToggleBitError) Error() string {
	return fmt.Sprintf("unexpected toggle bit %t (expected %t)", e.Actual, e.Expected)
}

// ValueLengthError is returned when a value does not have the width of the requested type.
type ValueLengthError struct {
	Expected int
	Actual   int
}

func (e ValueLengthError) Error() string {
	return fmt.Sprintf("unexpected value length %d (expected %d)", e.Actual, e.Expected)
}
