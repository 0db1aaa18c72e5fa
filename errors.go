package canopen

import (
	"errors"
	"fmt"
)

var (
	// ErrCanFdNotSupported is returned for frames carrying an extended (29-bit) identifier.
	ErrCanFdNotSupported = errors.New("CAN-FD is not supported")
	// ErrNotImplemented is returned for messages whose communication object is
	// known but whose body is not decoded (PDO, LSS, time stamp, remote frames).
	ErrNotImplemented = errors.New("not implemented")
)

type InvalidNodeIDError struct {
	Raw uint8
}

func (e InvalidNodeIDError) Error() string {
	return fmt.Sprintf("invalid node id (%d)", e.Raw)
}

type InvalidCobIDError struct {
	ID uint16
}

func (e InvalidCobIDError) Error() string {
	return fmt.Sprintf("invalid COB-ID (%03X)", e.ID)
}

type InvalidNMTCommandError struct {
	Command uint8
}

func (e InvalidNMTCommandError) Error() string {
	return fmt.Sprintf("invalid NMT command %02X", e.Command)
}

type InvalidNMTStateError struct {
	State uint8
}

func (e InvalidNMTStateError) Error() string {
	return fmt.Sprintf("invalid NMT state %02X", e.State)
}

// InvalidDataLengthError reports a payload whose length does not fit the message kind.
type InvalidDataLengthError struct {
	Length int
	Kind   string
}

func (e InvalidDataLengthError) Error() string {
	return fmt.Sprintf("invalid data length %d for %s", e.Length, e.Kind)
}
