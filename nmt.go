package canopen

import (
	"fmt"

	"golang.org/x/exp/slices"
)

// NMTCommand is a network management node control command.
type NMTCommand uint8

const (
	NMTOperational        NMTCommand = 0x01
	NMTStopped            NMTCommand = 0x02
	NMTPreOperational     NMTCommand = 0x80
	NMTResetNode          NMTCommand = 0x81
	NMTResetCommunication NMTCommand = 0x82
)

var nmtCommands = []NMTCommand{NMTOperational, NMTStopped, NMTPreOperational, NMTResetNode, NMTResetCommunication}

// ParseNMTCommand validates a command byte.
func ParseNMTCommand(b uint8) (NMTCommand, error) {
	if !slices.Contains(nmtCommands, NMTCommand(b)) {
		return 0, InvalidNMTCommandError{Command: b}
	}
	return NMTCommand(b), nil
}

func (c NMTCommand) String() string {
	switch c {
	case NMTOperational:
		return "Operational"
	case NMTStopped:
		return "Stopped"
	case NMTPreOperational:
		return "PreOperational"
	case NMTResetNode:
		return "ResetNode"
	case NMTResetCommunication:
		return "ResetCommunication"
	}
	return fmt.Sprintf("NMTCommand(%02X)", uint8(c))
}

// NMTNodeControlAddress is the target of an NMT command: a single node or
// AllNodes.
type NMTNodeControlAddress uint8

// AllNodes addresses every node on the network.
const AllNodes NMTNodeControlAddress = 0

// NodeAddress addresses a single node.
func NodeAddress(id NodeID) NMTNodeControlAddress {
	return NMTNodeControlAddress(id & MaskNodeID)
}

func parseNMTNodeControlAddress(b uint8) (NMTNodeControlAddress, error) {
	id, err := NewNodeID(b)
	if err != nil {
		return 0, err
	}
	return NodeAddress(id), nil
}

// Node returns the addressed node, or false for AllNodes.
func (a NMTNodeControlAddress) Node() (NodeID, bool) {
	if a == AllNodes {
		return 0, false
	}
	return NodeID(a), true
}

func (a NMTNodeControlAddress) String() string {
	if a == AllNodes {
		return "AllNodes"
	}
	return fmt.Sprintf("Node(%d)", uint8(a))
}

// NMTNodeControlFrame commands the state machine of one or all nodes.
type NMTNodeControlFrame struct {
	Command NMTCommand
	Address NMTNodeControlAddress
}

// NewNMTNodeControlFrame returns a node control frame.
func NewNMTNodeControlFrame(cmd NMTCommand, addr NMTNodeControlAddress) NMTNodeControlFrame {
	return NMTNodeControlFrame{Command: cmd, Address: addr}
}

// DecodeNMTNodeControlFrame decodes the 2-byte payload of a node control frame.
func DecodeNMTNodeControlFrame(data []byte) (NMTNodeControlFrame, error) {
	if len(data) != 2 {
		return NMTNodeControlFrame{}, InvalidDataLengthError{Length: len(data), Kind: "NMTNodeControlFrame"}
	}

	cmd, err := ParseNMTCommand(data[0])
	if err != nil {
		return NMTNodeControlFrame{}, err
	}
	addr, err := parseNMTNodeControlAddress(data[1])
	if err != nil {
		return NMTNodeControlFrame{}, err
	}

	return NMTNodeControlFrame{Command: cmd, Address: addr}, nil
}

func (f NMTNodeControlFrame) CommunicationObject() CommunicationObject {
	return CommunicationObject{Kind: NMTNodeControl}
}

func (f NMTNodeControlFrame) Encode() []byte {
	return []byte{uint8(f.Command), uint8(f.Address)}
}
