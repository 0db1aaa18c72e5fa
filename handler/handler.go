// Package handler correlates asynchronous SDO responses with the requests
// that caused them. One receiver goroutine reads the bus and completes the
// waiting caller whose (node, index, sub-index) matches the response; any
// number of callers may have requests outstanding at the same time.
package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/FabianPetersen/canopen/v2"
	"github.com/FabianPetersen/canopen/v2/canbus"
	"github.com/FabianPetersen/canopen/v2/config"
	"github.com/FabianPetersen/canopen/v2/sdo"
	"github.com/jpillora/maplock"
	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

var (
	// ErrRequestInFlight is returned when a request for the same object of the
	// same node is still waiting for its response.
	ErrRequestInFlight = errors.New("SDO request already in flight")
	// ErrHandlerClosed is returned once the receiver has stopped.
	ErrHandlerClosed = errors.New("frame handler closed")
)

// ObjectDictionaryAddress identifies an outstanding request.
type ObjectDictionaryAddress struct {
	Node canopen.NodeID
	canopen.ObjectIndex
}

func (a ObjectDictionaryAddress) String() string {
	return fmt.Sprintf("node %d %s", a.Node, a.ObjectIndex)
}

func address(node canopen.NodeID, index uint16, subIndex uint8) ObjectDictionaryAddress {
	return ObjectDictionaryAddress{Node: node, ObjectIndex: canopen.NewObjectIndex(index, subIndex)}
}

type waiter struct {
	addr    ObjectDictionaryAddress
	segment bool
	result  chan sdo.Frame

	// claim makes a response that opens a segmented phase close the node to
	// other initiate requests until release. gate is set once that happened.
	claim bool
	gate  chan struct{}
}

// FrameHandler is an SDO client and NMT master on one bus.
type FrameHandler struct {
	bus       canbus.Interface
	logger    *log.Entry
	onMessage func(canopen.Message)
	timeout   time.Duration

	// segmented downloads of one node are serialised
	transfers *maplock.Maplock

	mu       sync.Mutex
	pending  map[ObjectDictionaryAddress]*waiter
	segments map[canopen.NodeID]*waiter
	// busy holds the gate of every node in a segmented phase
	busy map[canopen.NodeID]chan struct{}
	err  error

	cancel context.CancelFunc
	done   chan struct{}
}

type Option func(*FrameHandler)

// WithLogger sets the logger. The default logs to the standard logrus logger
// with a component field.
func WithLogger(logger *log.Entry) Option {
	return func(h *FrameHandler) {
		h.logger = logger
	}
}

// WithMessageHandler registers fn for every received message that is not an
// SDO response. fn runs on the receiver goroutine and must not block.
func WithMessageHandler(fn func(canopen.Message)) Option {
	return func(h *FrameHandler) {
		h.onMessage = fn
	}
}

// WithTimeout bounds requests whose context carries no deadline.
func WithTimeout(d time.Duration) Option {
	return func(h *FrameHandler) {
		h.timeout = d
	}
}

// New starts a handler receiving from bus. Close stops it and closes bus.
func New(bus canbus.Interface, opts ...Option) *FrameHandler {
	ctx, cancel := context.WithCancel(context.Background())

	h := &FrameHandler{
		bus:       bus,
		logger:    log.WithField("component", "canopen"),
		transfers: maplock.New(),
		pending:   make(map[ObjectDictionaryAddress]*waiter),
		segments:  make(map[canopen.NodeID]*waiter),
		busy:      make(map[canopen.NodeID]chan struct{}),
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}

	go h.receive(ctx)
	return h
}

// NewFromConfig wraps bus with send retries and, if enabled, frame logging
// as configured, and starts a handler on it.
func NewFromConfig(bus canbus.Interface, cfg *config.Config, opts ...Option) (*FrameHandler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := log.New()
	logger.SetLevel(cfg.Level())
	entry := logger.WithField("interface", cfg.Interface)

	bus = canbus.NewRetryingInterface(bus, cfg.SendAttempts, cfg.SendRetryDelay)
	if cfg.LogFrames {
		bus = canbus.NewLoggedInterface(bus, entry, log.TraceLevel)
	}

	opts = append([]Option{WithLogger(entry), WithTimeout(cfg.SDOTimeout)}, opts...)
	return New(bus, opts...), nil
}

// Dial opens the configured SocketCAN interface and starts a handler on it.
func Dial(cfg *config.Config, opts ...Option) (*FrameHandler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	conn, err := canbus.DialSocketCAN(cfg.Interface, cfg.ReceiveBuffer)
	if err != nil {
		return nil, err
	}
	return NewFromConfig(canbus.NewInterface(conn), cfg, opts...)
}

// Close stops the receiver, fails all outstanding requests and closes the bus.
func (h *FrameHandler) Close() error {
	h.cancel()
	err := h.bus.Close()
	<-h.done
	return err
}

// Pending returns the addresses of the requests waiting for a response.
func (h *FrameHandler) Pending() []ObjectDictionaryAddress {
	h.mu.Lock()
	addrs := maps.Keys(h.pending)
	h.mu.Unlock()

	slices.SortFunc(addrs, func(a, b ObjectDictionaryAddress) int {
		switch {
		case a.Node != b.Node:
			return int(a.Node) - int(b.Node)
		case a.Index != b.Index:
			return int(a.Index) - int(b.Index)
		}
		return int(a.SubIndex) - int(b.SubIndex)
	})
	return addrs
}

// NMTNodeControl sends an NMT command to one node or to all nodes.
func (h *FrameHandler) NMTNodeControl(ctx context.Context, cmd canopen.NMTCommand, addr canopen.NMTNodeControlAddress) error {
	if err := h.closedErr(); err != nil {
		return err
	}
	return h.bus.SendFrame(ctx, canopen.NewNMTNodeControlFrame(cmd, addr))
}

func (h *FrameHandler) receive(ctx context.Context) {
	defer close(h.done)

	for {
		msg, err := h.bus.WaitForFrame(ctx)
		if err != nil {
			var decodeErr *canbus.DecodeError
			if errors.As(err, &decodeErr) {
				entry := h.logger.WithError(err).WithField("cob_id", decodeErr.Frame.CobID)
				if errors.Is(err, canopen.ErrNotImplemented) {
					entry.Trace("ignoring frame")
				} else {
					entry.Warn("dropping undecodable frame")
				}
				continue
			}

			if ctx.Err() != nil {
				h.logger.Debug("receiver stopped")
			} else {
				h.logger.WithError(err).Error("receiver stopped")
			}
			h.fail(err)
			return
		}

		h.dispatch(msg)
	}
}

func (h *FrameHandler) dispatch(msg canopen.Message) {
	frm, ok := msg.(sdo.Frame)
	if !ok || frm.Direction != sdo.ServerToClient {
		h.logger.WithField("cob", msg.CommunicationObject().String()).Trace("received message")
		if h.onMessage != nil {
			h.onMessage(msg)
		}
		return
	}

	w := h.match(frm)
	if w == nil {
		h.logger.WithFields(log.Fields{
			"node":    frm.Node,
			"command": sdo.CommandName(frm.Command),
		}).Debug("dropping unsolicited SDO response")
		return
	}
	w.result <- frm
}

// match removes and returns the waiter frm answers. Initiate responses are
// keyed by object, segment responses by node. An abort that answers no
// initiate request ends the node's segmented transfer, whatever index it
// carries.
func (h *FrameHandler) match(frm sdo.Frame) *waiter {
	h.mu.Lock()
	defer h.mu.Unlock()

	if idx, ok := frm.ObjectIndex(); ok {
		addr := ObjectDictionaryAddress{Node: frm.Node, ObjectIndex: idx}
		if w, ok := h.pending[addr]; ok {
			delete(h.pending, addr)
			if w.claim && opensSegments(frm) {
				h.hold(w)
			}
			return w
		}
		if _, abort := frm.Command.(sdo.AbortTransfer); !abort {
			return nil
		}
	}

	if w, ok := h.segments[frm.Node]; ok {
		delete(h.segments, frm.Node)
		return w
	}
	return nil
}

// opensSegments reports whether an initiate response is followed by segments.
func opensSegments(frm sdo.Frame) bool {
	switch cmd := frm.Command.(type) {
	case sdo.InitiateUploadResponse:
		_, normal := cmd.TransferType.(sdo.Normal)
		return normal
	case sdo.InitiateDownloadResponse:
		return true
	}
	return false
}

// hold makes the node of w wait for w's release. Called with h.mu held.
func (h *FrameHandler) hold(w *waiter) {
	if _, ok := h.busy[w.addr.Node]; ok {
		return
	}
	w.gate = make(chan struct{})
	h.busy[w.addr.Node] = w.gate
}

// release reopens the node of w if w closed it.
func (h *FrameHandler) release(w *waiter) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if w.gate == nil {
		return
	}
	if h.busy[w.addr.Node] == w.gate {
		delete(h.busy, w.addr.Node)
	}
	close(w.gate)
	w.gate = nil
}

func (h *FrameHandler) fail(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.err = fmt.Errorf("%w: %w", ErrHandlerClosed, err)
	h.pending = make(map[ObjectDictionaryAddress]*waiter)
	h.segments = make(map[canopen.NodeID]*waiter)
	h.busy = make(map[canopen.NodeID]chan struct{})
}

func (h *FrameHandler) closedErr() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// register adds a waiter for addr. Initiate requests to a node in a
// segmented phase wait until it ends.
func (h *FrameHandler) register(ctx context.Context, addr ObjectDictionaryAddress, segment, claim bool) (*waiter, error) {
	for {
		w, gate, err := h.tryRegister(addr, segment, claim)
		if gate == nil {
			return w, err
		}

		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-h.done:
		}
	}
}

func (h *FrameHandler) tryRegister(addr ObjectDictionaryAddress, segment, claim bool) (*waiter, chan struct{}, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.err != nil {
		return nil, nil, h.err
	}

	w := &waiter{addr: addr, segment: segment, claim: claim, result: make(chan sdo.Frame, 1)}
	if segment {
		if _, ok := h.segments[addr.Node]; ok {
			return nil, nil, fmt.Errorf("%w: segment of node %d", ErrRequestInFlight, addr.Node)
		}
		h.segments[addr.Node] = w
		return w, nil, nil
	}

	if gate, ok := h.busy[addr.Node]; ok {
		return nil, gate, nil
	}
	if _, ok := h.pending[addr]; ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrRequestInFlight, addr)
	}
	h.pending[addr] = w
	return w, nil, nil
}

func (h *FrameHandler) forget(w *waiter) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if w.segment {
		if h.segments[w.addr.Node] == w {
			delete(h.segments, w.addr.Node)
		}
		return
	}
	if h.pending[w.addr] == w {
		delete(h.pending, w.addr)
	}
}

// request registers a waiter for addr and exchanges req with it.
func (h *FrameHandler) request(ctx context.Context, addr ObjectDictionaryAddress, req sdo.Frame, segment bool) (sdo.Frame, error) {
	w, err := h.register(ctx, addr, segment, false)
	if err != nil {
		return sdo.Frame{}, err
	}
	return h.exchange(ctx, w, req)
}

// exchange sends req and waits for the response matched to w. The waiter is
// registered before sending so that a fast response is never missed.
func (h *FrameHandler) exchange(ctx context.Context, w *waiter, req sdo.Frame) (sdo.Frame, error) {
	if err := h.bus.SendFrame(ctx, req); err != nil {
		h.forget(w)
		return sdo.Frame{}, err
	}

	select {
	case frm := <-w.result:
		return frm, nil
	case <-ctx.Done():
		h.forget(w)
		return sdo.Frame{}, ctx.Err()
	case <-h.done:
		select {
		case frm := <-w.result:
			return frm, nil
		default:
		}
		return sdo.Frame{}, h.closedErr()
	}
}

func (h *FrameHandler) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok || h.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, h.timeout)
}

// transferKey identifies the SDO channel of node, as its request COB-ID.
func transferKey(node canopen.NodeID) string {
	return strconv.Itoa(int(sdo.ClientToServer.CommunicationObject(node).CobID()))
}
