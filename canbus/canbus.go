// Package canbus is the boundary between CANopen messages and a CAN
// transport. It classifies raw frames into messages and provides SocketCAN
// and in-memory transports.
package canbus

import (
	"context"
	"errors"
	"fmt"

	"github.com/FabianPetersen/canopen/v2"
)

// ErrClosed is returned by transports after Close.
var ErrClosed = errors.New("canbus: closed")

// Interface sends and receives whole CANopen messages.
type Interface interface {
	// SendFrame encodes and transmits msg.
	SendFrame(ctx context.Context, msg canopen.Message) error
	// WaitForFrame blocks for the next message. A frame that cannot be decoded
	// is reported as a *DecodeError; any other error means the transport failed.
	WaitForFrame(ctx context.Context) (canopen.Message, error)
	Close() error
}

// Conn moves raw CANopen frames.
type Conn interface {
	WriteFrame(ctx context.Context, frm canopen.Frame) error
	ReadFrame(ctx context.Context) (canopen.Frame, error)
	Close() error
}

// DecodeError wraps a frame that was received but could not be decoded.
type DecodeError struct {
	Frame canopen.Frame
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode frame %03X % X: %v", e.Frame.CobID, e.Frame.Data, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// NewInterface adapts a raw frame connection to the message level Interface.
func NewInterface(conn Conn) Interface {
	return &frameInterface{conn: conn}
}

type frameInterface struct {
	conn Conn
}

func (i *frameInterface) SendFrame(ctx context.Context, msg canopen.Message) error {
	frm, err := Encode(msg)
	if err != nil {
		return err
	}
	return i.conn.WriteFrame(ctx, frm)
}

func (i *frameInterface) WaitForFrame(ctx context.Context) (canopen.Message, error) {
	frm, err := i.conn.ReadFrame(ctx)
	if err != nil {
		return nil, err
	}

	msg, err := Decode(frm)
	if err != nil {
		return nil, &DecodeError{Frame: frm, Err: err}
	}
	return msg, nil
}

func (i *frameInterface) Close() error {
	return i.conn.Close()
}
