package canopen

import (
	"fmt"

	"golang.org/x/exp/slices"
)

// NMTState is the state a node reports in its heartbeat.
type NMTState uint8

const (
	NMTStateBootUp         NMTState = 0x00
	NMTStateStopped        NMTState = 0x04
	NMTStateOperational    NMTState = 0x05
	NMTStatePreOperational NMTState = 0x7F
)

var nmtStates = []NMTState{NMTStateBootUp, NMTStateStopped, NMTStateOperational, NMTStatePreOperational}

// ParseNMTState validates a state byte.
func ParseNMTState(b uint8) (NMTState, error) {
	if !slices.Contains(nmtStates, NMTState(b)) {
		return 0, InvalidNMTStateError{State: b}
	}
	return NMTState(b), nil
}

func (s NMTState) String() string {
	switch s {
	case NMTStateBootUp:
		return "BootUp"
	case NMTStateStopped:
		return "Stopped"
	case NMTStateOperational:
		return "Operational"
	case NMTStatePreOperational:
		return "PreOperational"
	}
	return fmt.Sprintf("NMTState(%02X)", uint8(s))
}

// NMTNodeMonitoringFrame is a heartbeat (or boot-up) message.
type NMTNodeMonitoringFrame struct {
	Node  NodeID
	State NMTState
}

// DecodeNMTNodeMonitoringFrame decodes the 1-byte heartbeat payload sent by node.
func DecodeNMTNodeMonitoringFrame(node NodeID, data []byte) (NMTNodeMonitoringFrame, error) {
	if len(data) != 1 {
		return NMTNodeMonitoringFrame{}, InvalidDataLengthError{Length: len(data), Kind: "NMTNodeMonitoringFrame"}
	}

	state, err := ParseNMTState(data[0])
	if err != nil {
		return NMTNodeMonitoringFrame{}, err
	}

	return NMTNodeMonitoringFrame{Node: node, State: state}, nil
}

func (f NMTNodeMonitoringFrame) CommunicationObject() CommunicationObject {
	return CommunicationObject{Kind: NMTNodeMonitoring, Node: f.Node}
}

func (f NMTNodeMonitoringFrame) Encode() []byte {
	return []byte{uint8(f.State)}
}
