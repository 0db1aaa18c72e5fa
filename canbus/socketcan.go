package canbus

import (
	"context"
	"fmt"
	"sync"

	"github.com/FabianPetersen/can"
	"github.com/FabianPetersen/canopen/v2"
)

// SocketCAN is a Conn over a Linux SocketCAN interface.
type SocketCAN struct {
	bus *can.Bus
	rx  chan can.Frame

	closing   chan struct{}
	closeOnce sync.Once

	// done is closed when the bus stopped publishing; err is the reason.
	done chan struct{}
	err  error
}

// DialSocketCAN opens the named interface (e.g. can0) and starts receiving.
// buffer is the number of received frames queued before the reader blocks.
func DialSocketCAN(name string, buffer int) (*SocketCAN, error) {
	bus, err := can.NewBusForInterfaceWithName(name)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return NewSocketCAN(bus, buffer), nil
}

// NewSocketCAN starts receiving from an already created bus.
func NewSocketCAN(bus *can.Bus, buffer int) *SocketCAN {
	s := &SocketCAN{
		bus:     bus,
		rx:      make(chan can.Frame, buffer),
		closing: make(chan struct{}),
		done:    make(chan struct{}),
	}

	bus.SubscribeFunc(s.handle)
	go func() {
		s.err = bus.ConnectAndPublish()
		close(s.done)
	}()

	return s
}

func (s *SocketCAN) handle(frm can.Frame) {
	select {
	case s.rx <- frm:
	case <-s.closing:
	}
}

func (s *SocketCAN) WriteFrame(ctx context.Context, frm canopen.Frame) error {
	select {
	case <-s.closing:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	return s.bus.Publish(frm.CANFrame())
}

func (s *SocketCAN) ReadFrame(ctx context.Context) (canopen.Frame, error) {
	select {
	case frm := <-s.rx:
		return canopen.CANopenFrame(frm), nil
	case <-s.closing:
		return canopen.Frame{}, ErrClosed
	case <-s.done:
		if s.err != nil {
			return canopen.Frame{}, fmt.Errorf("socketcan: %w", s.err)
		}
		return canopen.Frame{}, ErrClosed
	case <-ctx.Done():
		return canopen.Frame{}, ctx.Err()
	}
}

func (s *SocketCAN) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closing)
		err = s.bus.Disconnect()
	})
	return err
}
