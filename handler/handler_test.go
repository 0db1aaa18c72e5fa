package handler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/FabianPetersen/canopen/v2"
	"github.com/FabianPetersen/canopen/v2/canbus"
	"github.com/FabianPetersen/canopen/v2/config"
	"github.com/FabianPetersen/canopen/v2/sdo"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

type result struct {
	data []byte
	err  error
}

type testBus struct {
	bus     *canbus.LoopbackBus
	handler *FrameHandler
	server  canbus.Interface
}

func newTestBus(t *testing.T, opts ...Option) *testBus {
	t.Helper()

	logger, _ := test.NewNullLogger()
	bus := canbus.NewLoopbackBus()
	tb := &testBus{
		bus:     bus,
		handler: New(canbus.NewInterface(bus.Open()), append([]Option{WithLogger(log.NewEntry(logger))}, opts...)...),
		server:  canbus.NewInterface(bus.Open()),
	}
	t.Cleanup(func() {
		_ = tb.handler.Close()
		_ = bus.Close()
	})
	return tb
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// nextRequest returns the next SDO request seen by the simulated server.
func (tb *testBus) nextRequest(t *testing.T) sdo.Frame {
	t.Helper()
	ctx := testContext(t)
	for {
		msg, err := tb.server.WaitForFrame(ctx)
		require.NoError(t, err)
		if frm, ok := msg.(sdo.Frame); ok && frm.Direction == sdo.ClientToServer {
			return frm
		}
	}
}

func (tb *testBus) respond(t *testing.T, frm sdo.Frame) {
	t.Helper()
	require.NoError(t, tb.server.SendFrame(testContext(t), frm))
}

func (tb *testBus) read(ctx context.Context, node canopen.NodeID, index uint16, subIndex uint8) <-chan result {
	ch := make(chan result, 1)
	go func() {
		data, err := tb.handler.SDORead(ctx, node, index, subIndex)
		ch <- result{data: data, err: err}
	}()
	return ch
}

func (tb *testBus) write(ctx context.Context, node canopen.NodeID, index uint16, subIndex uint8, data []byte) <-chan error {
	ch := make(chan error, 1)
	go func() {
		ch <- tb.handler.SDOWrite(ctx, node, index, subIndex, data)
	}()
	return ch
}

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out")
	}
	var zero T
	return zero
}

func TestSDOReadExpedited(t *testing.T) {
	tb := newTestBus(t)
	ch := tb.read(testContext(t), 3, 0x1000, 0)

	req := tb.nextRequest(t)
	require.Equal(t, sdo.NewReadFrame(3, 0x1000, 0), req)
	require.Equal(t, []byte{0x40, 0x00, 0x10, 0x00, 0, 0, 0, 0}, req.Encode())
	tb.respond(t, sdo.NewUploadResponseFrame(3, 0x1000, 0, []byte{0x92, 0x01, 0x02, 0x00}))

	res := receive(t, ch)
	require.NoError(t, res.err)
	require.Equal(t, []byte{0x92, 0x01, 0x02, 0x00}, res.data)
	require.Empty(t, tb.handler.Pending())
}

func TestSDOReadConcurrentReverseOrder(t *testing.T) {
	tb := newTestBus(t)
	ctx := testContext(t)

	first := tb.read(ctx, 3, 0x1000, 0)
	second := tb.read(ctx, 3, 0x1018, 1)
	third := tb.read(ctx, 4, 0x1000, 0)

	var reqs []sdo.Frame
	for i := 0; i < 3; i++ {
		reqs = append(reqs, tb.nextRequest(t))
	}
	require.Eventually(t, func() bool { return len(tb.handler.Pending()) == 3 }, time.Second, time.Millisecond)
	require.Equal(t, []ObjectDictionaryAddress{
		address(3, 0x1000, 0),
		address(3, 0x1018, 1),
		address(4, 0x1000, 0),
	}, tb.handler.Pending())

	for i := len(reqs) - 1; i >= 0; i-- {
		idx, ok := reqs[i].ObjectIndex()
		require.True(t, ok)
		data := []byte{byte(reqs[i].Node), byte(idx.Index >> 8), byte(idx.Index), idx.SubIndex}
		tb.respond(t, sdo.NewUploadResponseFrame(reqs[i].Node, idx.Index, idx.SubIndex, data))
	}

	require.Equal(t, result{data: []byte{3, 0x10, 0x00, 0}}, receive(t, first))
	require.Equal(t, result{data: []byte{3, 0x10, 0x18, 1}}, receive(t, second))
	require.Equal(t, result{data: []byte{4, 0x10, 0x00, 0}}, receive(t, third))
}

func TestSDOReadInFlight(t *testing.T) {
	tb := newTestBus(t)
	ctx := testContext(t)

	ch := tb.read(ctx, 5, 0x1017, 0)
	tb.nextRequest(t)
	require.Eventually(t, func() bool { return len(tb.handler.Pending()) == 1 }, time.Second, time.Millisecond)

	_, err := tb.handler.SDORead(ctx, 5, 0x1017, 0)
	require.ErrorIs(t, err, ErrRequestInFlight)
	err = tb.handler.SDOWrite(ctx, 5, 0x1017, 0, []byte{0xE8, 0x03})
	require.ErrorIs(t, err, ErrRequestInFlight)

	// the first request is untouched
	tb.respond(t, sdo.NewUploadResponseFrame(5, 0x1017, 0, []byte{0xE8, 0x03}))
	res := receive(t, ch)
	require.NoError(t, res.err)
	require.Equal(t, []byte{0xE8, 0x03}, res.data)
}

func TestSDOReadContextCancel(t *testing.T) {
	tb := newTestBus(t)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	ch := tb.read(ctx, 6, 0x1008, 0)
	tb.nextRequest(t)

	res := receive(t, ch)
	require.ErrorIs(t, res.err, context.DeadlineExceeded)
	require.Empty(t, tb.handler.Pending())

	// the same object can be requested again
	ch = tb.read(testContext(t), 6, 0x1008, 0)
	tb.nextRequest(t)
	tb.respond(t, sdo.NewUploadResponseFrame(6, 0x1008, 0, []byte{0x01}))
	res = receive(t, ch)
	require.NoError(t, res.err)
	require.Equal(t, []byte{0x01}, res.data)
}

func TestSDOReadTimeoutOption(t *testing.T) {
	tb := newTestBus(t, WithTimeout(20*time.Millisecond))

	ch := tb.read(context.Background(), 6, 0x1008, 0)
	tb.nextRequest(t)
	require.ErrorIs(t, receive(t, ch).err, context.DeadlineExceeded)
}

func TestSDOReadAbort(t *testing.T) {
	tb := newTestBus(t)
	ch := tb.read(testContext(t), 7, 0x2000, 1)

	tb.nextRequest(t)
	tb.respond(t, sdo.NewAbortFrame(sdo.ServerToClient, 7, 0x2000, 1, sdo.AbortNoObject))

	res := receive(t, ch)
	var abortErr *sdo.AbortError
	require.ErrorAs(t, res.err, &abortErr)
	require.Equal(t, canopen.NodeID(7), abortErr.Node)
	require.Equal(t, canopen.NewObjectIndex(0x2000, 1), abortErr.ObjectIndex)
	require.Equal(t, sdo.AbortNoObject, abortErr.Code)
}

func TestSDOReadUnexpectedCommand(t *testing.T) {
	tb := newTestBus(t)
	ch := tb.read(testContext(t), 7, 0x2000, 1)

	tb.nextRequest(t)
	tb.respond(t, sdo.NewDownloadResponseFrame(7, 0x2000, 1))

	require.Equal(t, sdo.UnexpectedCommandError{
		Expected: "InitiateUploadResponse",
		Actual:   "InitiateDownloadResponse",
	}, receive(t, ch).err)
}

func TestSDOReadSegmented(t *testing.T) {
	tb := newTestBus(t)
	value := []byte("CANopen device")
	ch := tb.read(testContext(t), 8, 0x1008, 0)

	tb.nextRequest(t)
	tb.respond(t, sdo.NewUploadResponseFrame(8, 0x1008, 0, value))

	toggle := false
	segments := sdo.SplitN(value, sdo.SegmentDataSize)
	for i, segment := range segments {
		req := tb.nextRequest(t)
		require.Equal(t, sdo.NewUploadSegmentFrame(8, toggle), req)

		resp, err := sdo.NewUploadSegmentResponseFrame(8, toggle, segment, i < len(segments)-1)
		require.NoError(t, err)
		tb.respond(t, resp)
		toggle = !toggle
	}

	res := receive(t, ch)
	require.NoError(t, res.err)
	require.Equal(t, value, res.data)
}

func TestSDOReadSegmentedToggleError(t *testing.T) {
	tb := newTestBus(t)
	ch := tb.read(testContext(t), 8, 0x1008, 0)

	tb.nextRequest(t)
	tb.respond(t, sdo.NewUploadResponseFrame(8, 0x1008, 0, []byte("CANopen device")))

	tb.nextRequest(t)
	resp, err := sdo.NewUploadSegmentResponseFrame(8, true, []byte("CANopen"), true)
	require.NoError(t, err)
	tb.respond(t, resp)

	require.Equal(t, sdo.UnexpectedToggleBitError{Expected: false, Actual: true}, receive(t, ch).err)

	abort := tb.nextRequest(t)
	require.Equal(t, sdo.NewAbortFrame(sdo.ClientToServer, 8, 0x1008, 0, sdo.AbortToggleBit), abort)
}

func TestSDOReadSegmentedAbort(t *testing.T) {
	tb := newTestBus(t)
	ch := tb.read(testContext(t), 8, 0x1008, 0)

	tb.nextRequest(t)
	tb.respond(t, sdo.NewUploadResponseFrame(8, 0x1008, 0, []byte("CANopen device")))
	tb.nextRequest(t)
	tb.respond(t, sdo.NewAbortFrame(sdo.ServerToClient, 8, 0x1008, 0, sdo.AbortHardware))

	var abortErr *sdo.AbortError
	require.ErrorAs(t, receive(t, ch).err, &abortErr)
	require.Equal(t, sdo.AbortHardware, abortErr.Code)
}

func TestSDOReadSegmentedAbortWithoutIndex(t *testing.T) {
	tb := newTestBus(t)
	ctx := testContext(t)
	ch := tb.read(ctx, 8, 0x1008, 0)

	tb.nextRequest(t)
	tb.respond(t, sdo.NewUploadResponseFrame(8, 0x1008, 0, []byte("CANopen device")))
	require.Equal(t, sdo.NewUploadSegmentFrame(8, false), tb.nextRequest(t))

	// a server that lost the transfer does not know its index
	tb.respond(t, sdo.NewAbortFrame(sdo.ServerToClient, 8, 0, 0, sdo.AbortCommand))

	var abortErr *sdo.AbortError
	require.ErrorAs(t, receive(t, ch).err, &abortErr)
	require.Equal(t, sdo.AbortCommand, abortErr.Code)
	require.Equal(t, canopen.NodeID(8), abortErr.Node)

	// the node is free again
	ch = tb.read(ctx, 8, 0x1000, 0)
	require.Equal(t, sdo.NewReadFrame(8, 0x1000, 0), tb.nextRequest(t))
	tb.respond(t, sdo.NewUploadResponseFrame(8, 0x1000, 0, []byte{0x92, 0x01}))
	require.Equal(t, result{data: []byte{0x92, 0x01}}, receive(t, ch))
}

func TestSDOReadSegmentedHoldsNode(t *testing.T) {
	tb := newTestBus(t)
	ctx := testContext(t)
	value := []byte("CANopen name")

	a := tb.read(ctx, 3, 0x1008, 0)
	require.Equal(t, sdo.NewReadFrame(3, 0x1008, 0), tb.nextRequest(t))
	tb.respond(t, sdo.NewUploadResponseFrame(3, 0x1008, 0, value))
	require.Equal(t, sdo.NewUploadSegmentFrame(3, false), tb.nextRequest(t))

	// b waits for the segmented read, other nodes do not
	b := tb.read(ctx, 3, 0x1000, 0)
	c := tb.read(ctx, 4, 0x1000, 0)
	require.Equal(t, sdo.NewReadFrame(4, 0x1000, 0), tb.nextRequest(t))
	tb.respond(t, sdo.NewUploadResponseFrame(4, 0x1000, 0, []byte{0x04}))
	require.Equal(t, result{data: []byte{0x04}}, receive(t, c))

	resp, err := sdo.NewUploadSegmentResponseFrame(3, false, value[:7], true)
	require.NoError(t, err)
	tb.respond(t, resp)
	require.Equal(t, sdo.NewUploadSegmentFrame(3, true), tb.nextRequest(t))

	resp, err = sdo.NewUploadSegmentResponseFrame(3, true, value[7:], false)
	require.NoError(t, err)
	tb.respond(t, resp)
	require.Equal(t, result{data: value}, receive(t, a))

	require.Equal(t, sdo.NewReadFrame(3, 0x1000, 0), tb.nextRequest(t))
	tb.respond(t, sdo.NewUploadResponseFrame(3, 0x1000, 0, []byte{0x01, 0x02}))
	require.Equal(t, result{data: []byte{0x01, 0x02}}, receive(t, b))
	require.Empty(t, tb.handler.Pending())
}

func TestSDOWriteSegmentedHoldsNode(t *testing.T) {
	tb := newTestBus(t)
	ctx := testContext(t)
	value := []byte("0123456789")

	w := tb.write(ctx, 3, 0x2001, 0, value)
	tb.nextRequest(t)
	tb.respond(t, sdo.NewDownloadResponseFrame(3, 0x2001, 0))
	first := tb.nextRequest(t)
	require.Equal(t, sdo.DownloadSegmentRequest{Data: value[:7], Continued: true}, first.Command)

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err := tb.handler.SDORead(short, 3, 0x1001, 0)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	r := tb.read(ctx, 3, 0x1000, 0)
	tb.respond(t, sdo.NewDownloadSegmentResponseFrame(3, false))
	last := tb.nextRequest(t)
	require.Equal(t, sdo.DownloadSegmentRequest{Toggle: true, Data: value[7:]}, last.Command)
	tb.respond(t, sdo.NewDownloadSegmentResponseFrame(3, true))
	require.NoError(t, receive(t, w))

	require.Equal(t, sdo.NewReadFrame(3, 0x1000, 0), tb.nextRequest(t))
	tb.respond(t, sdo.NewUploadResponseFrame(3, 0x1000, 0, []byte{0x01}))
	require.Equal(t, result{data: []byte{0x01}}, receive(t, r))
}

func TestSDOWriteExpedited(t *testing.T) {
	tb := newTestBus(t)
	ch := tb.write(testContext(t), 3, 0x1200, 1, []byte{0x0A, 0x06, 0x00, 0x00})

	req := tb.nextRequest(t)
	require.Equal(t, []byte{0x23, 0x00, 0x12, 0x01, 0x0A, 0x06, 0x00, 0x00}, req.Encode())
	tb.respond(t, sdo.NewDownloadResponseFrame(3, 0x1200, 1))

	require.NoError(t, receive(t, ch))
}

func TestSDOWriteAbort(t *testing.T) {
	tb := newTestBus(t)
	ch := tb.write(testContext(t), 3, 0x1000, 0, []byte{0x01})

	tb.nextRequest(t)
	tb.respond(t, sdo.NewAbortFrame(sdo.ServerToClient, 3, 0x1000, 0, sdo.AbortAccessRO))

	var abortErr *sdo.AbortError
	require.ErrorAs(t, receive(t, ch), &abortErr)
	require.Equal(t, sdo.AbortAccessRO, abortErr.Code)
}

func TestSDOWriteSegmented(t *testing.T) {
	tb := newTestBus(t)
	value := []byte("CANopen device")
	ch := tb.write(testContext(t), 9, 0x2001, 0, value)

	req := tb.nextRequest(t)
	require.Equal(t, sdo.InitiateDownloadRequest{
		ObjectIndex:  canopen.NewObjectIndex(0x2001, 0),
		TransferType: sdo.NormalTransfer(uint32(len(value))),
	}, req.Command)
	tb.respond(t, sdo.NewDownloadResponseFrame(9, 0x2001, 0))

	var got []byte
	toggle := false
	for {
		req := tb.nextRequest(t)
		segment, ok := req.Command.(sdo.DownloadSegmentRequest)
		require.True(t, ok)
		require.Equal(t, toggle, segment.Toggle)
		got = append(got, segment.Data...)

		tb.respond(t, sdo.NewDownloadSegmentResponseFrame(9, toggle))
		toggle = !toggle
		if !segment.Continued {
			break
		}
	}

	require.NoError(t, receive(t, ch))
	require.Equal(t, value, got)
}

func TestSDOWriteSegmentedToggleError(t *testing.T) {
	tb := newTestBus(t)
	ch := tb.write(testContext(t), 9, 0x2001, 0, []byte("CANopen device"))

	tb.nextRequest(t)
	tb.respond(t, sdo.NewDownloadResponseFrame(9, 0x2001, 0))
	tb.nextRequest(t)
	tb.respond(t, sdo.NewDownloadSegmentResponseFrame(9, true))

	require.Equal(t, sdo.UnexpectedToggleBitError{Expected: false, Actual: true}, receive(t, ch))
}

func TestTypedHelpers(t *testing.T) {
	tb := newTestBus(t)
	ctx := testContext(t)

	ch := make(chan error, 1)
	go func() {
		v, err := tb.handler.ReadUint16(ctx, 2, 0x1017, 0)
		if err == nil && v != 1000 {
			err = errors.New("unexpected value")
		}
		ch <- err
	}()
	tb.nextRequest(t)
	tb.respond(t, sdo.NewUploadResponseFrame(2, 0x1017, 0, []byte{0xE8, 0x03}))
	require.NoError(t, receive(t, ch))

	go func() {
		_, err := tb.handler.ReadUint32(ctx, 2, 0x1017, 0)
		ch <- err
	}()
	tb.nextRequest(t)
	tb.respond(t, sdo.NewUploadResponseFrame(2, 0x1017, 0, []byte{0xE8, 0x03}))
	require.Equal(t, sdo.ValueLengthError{Expected: 4, Actual: 2}, receive(t, ch))

	go func() {
		ch <- tb.handler.WriteUint32(ctx, 2, 0x1006, 0, 0x000F4240)
	}()
	req := tb.nextRequest(t)
	require.Equal(t, []byte{0x23, 0x06, 0x10, 0x00, 0x40, 0x42, 0x0F, 0x00}, req.Encode())
	tb.respond(t, sdo.NewDownloadResponseFrame(2, 0x1006, 0))
	require.NoError(t, receive(t, ch))
}

func TestUndecodableFrameIsSkipped(t *testing.T) {
	tb := newTestBus(t)
	raw := tb.bus.Open()
	t.Cleanup(func() { _ = raw.Close() })

	ch := tb.read(testContext(t), 3, 0x1000, 0)
	tb.nextRequest(t)

	// truncated SDO response, then an invalid command specifier
	require.NoError(t, raw.WriteFrame(testContext(t), canopen.NewFrame(0x583, []byte{0x43, 0x00, 0x10})))
	require.NoError(t, raw.WriteFrame(testContext(t), canopen.NewFrame(0x583, []byte{0xE0, 0, 0, 0, 0, 0, 0, 0})))
	tb.respond(t, sdo.NewUploadResponseFrame(3, 0x1000, 0, []byte{0x01, 0x02}))

	res := receive(t, ch)
	require.NoError(t, res.err)
	require.Equal(t, []byte{0x01, 0x02}, res.data)
}

func TestUnsolicitedResponseIsDropped(t *testing.T) {
	tb := newTestBus(t)

	tb.respond(t, sdo.NewUploadResponseFrame(3, 0x1000, 0, []byte{0xFF}))
	require.Empty(t, tb.handler.Pending())

	ch := tb.read(testContext(t), 3, 0x1001, 0)
	tb.nextRequest(t)
	tb.respond(t, sdo.NewUploadResponseFrame(3, 0x1001, 0, []byte{0x00}))
	require.Equal(t, result{data: []byte{0x00}}, receive(t, ch))
}

func TestTransportFailureFailsPending(t *testing.T) {
	tb := newTestBus(t)
	ctx := testContext(t)

	ch := tb.read(ctx, 3, 0x1000, 0)
	tb.nextRequest(t)
	require.Eventually(t, func() bool { return len(tb.handler.Pending()) == 1 }, time.Second, time.Millisecond)

	require.NoError(t, tb.bus.Close())

	res := receive(t, ch)
	require.ErrorIs(t, res.err, ErrHandlerClosed)
	require.ErrorIs(t, res.err, canbus.ErrClosed)
	require.Empty(t, tb.handler.Pending())

	_, err := tb.handler.SDORead(ctx, 3, 0x1000, 0)
	require.ErrorIs(t, err, ErrHandlerClosed)
	require.ErrorIs(t, tb.handler.NMTNodeControl(ctx, canopen.NMTOperational, canopen.AllNodes), ErrHandlerClosed)
}

func TestClose(t *testing.T) {
	tb := newTestBus(t)
	require.NoError(t, tb.handler.Close())

	_, err := tb.handler.SDORead(testContext(t), 3, 0x1000, 0)
	require.ErrorIs(t, err, ErrHandlerClosed)
}

func TestNMTNodeControl(t *testing.T) {
	tb := newTestBus(t)
	ctx := testContext(t)

	require.NoError(t, tb.handler.NMTNodeControl(ctx, canopen.NMTResetCommunication, canopen.NodeAddress(127)))
	msg, err := tb.server.WaitForFrame(ctx)
	require.NoError(t, err)
	require.Equal(t, canopen.NewNMTNodeControlFrame(canopen.NMTResetCommunication, canopen.NodeAddress(127)), msg)
	require.Equal(t, []byte{0x82, 0x7F}, msg.Encode())
}

func TestMessageHandler(t *testing.T) {
	messages := make(chan canopen.Message, 4)
	tb := newTestBus(t, WithMessageHandler(func(msg canopen.Message) {
		messages <- msg
	}))
	ctx := testContext(t)

	require.NoError(t, tb.server.SendFrame(ctx, canopen.NMTNodeMonitoringFrame{Node: 5, State: canopen.NMTStateBootUp}))
	require.NoError(t, tb.server.SendFrame(ctx, canopen.EmergencyFrame{Node: 5, ErrorCode: 0x8130, ErrorRegister: 0x11}))

	require.Equal(t, canopen.NMTNodeMonitoringFrame{Node: 5, State: canopen.NMTStateBootUp}, receive(t, messages))
	require.Equal(t, canopen.EmergencyFrame{Node: 5, ErrorCode: 0x8130, ErrorRegister: 0x11}, receive(t, messages))
}

func TestNewFromConfig(t *testing.T) {
	cfg, err := config.Parse([]byte("interface: vcan0\nsend_attempts: 2\nsdo_timeout: 20ms\nlog_frames: true\n"))
	require.NoError(t, err)

	bus := canbus.NewLoopbackBus()
	t.Cleanup(func() { _ = bus.Close() })
	h, err := NewFromConfig(canbus.NewInterface(bus.Open()), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })

	server := canbus.NewInterface(bus.Open())
	ch := make(chan error, 1)
	go func() {
		_, err := h.SDORead(context.Background(), 1, 0x1000, 0)
		ch <- err
	}()

	msg, err := server.WaitForFrame(testContext(t))
	require.NoError(t, err)
	require.Equal(t, sdo.NewReadFrame(1, 0x1000, 0), msg)
	require.ErrorIs(t, receive(t, ch), context.DeadlineExceeded)

	_, err = NewFromConfig(canbus.NewInterface(bus.Open()), &config.Config{})
	require.Error(t, err)
}
