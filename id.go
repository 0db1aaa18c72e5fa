package canopen

import "fmt"

// NodeID is a 7-bit CANopen node identifier. Zero is only meaningful as the
// "all nodes" address of an NMT command.
type NodeID uint8

// NewNodeID returns a node id, rejecting values with the reserved high bit set.
func NewNodeID(raw uint8) (NodeID, error) {
	if raw&0x80 != 0 {
		return 0, InvalidNodeIDError{Raw: raw}
	}
	return NodeID(raw), nil
}

// MustNodeID is like NewNodeID but panics on an invalid value.
func MustNodeID(raw uint8) NodeID {
	id, err := NewNodeID(raw)
	if err != nil {
		panic(err)
	}
	return id
}

// Raw returns the node id byte.
func (id NodeID) Raw() uint8 {
	return uint8(id)
}

// CommunicationObjectKind names the category of a CANopen message.
type CommunicationObjectKind uint8

const (
	NMTNodeControl CommunicationObjectKind = iota
	GlobalFailsafeCommand
	Sync
	Emergency
	TimeStamp
	TxPDO1
	RxPDO1
	TxPDO2
	RxPDO2
	TxPDO3
	RxPDO3
	TxPDO4
	RxPDO4
	// TxSDO carries SDO responses from a node (server) to the client
	TxSDO
	// RxSDO carries SDO requests from the client to a node (server)
	RxSDO
	NMTNodeMonitoring
	TxLSS
	RxLSS
)

var kindInfo = [...]struct {
	name    string
	base    uint16
	hasNode bool
}{
	NMTNodeControl:        {"NMTNodeControl", MessageTypeNMT, false},
	GlobalFailsafeCommand: {"GlobalFailsafeCommand", MessageTypeGFC, false},
	Sync:                  {"Sync", MessageTypeSync, false},
	Emergency:             {"Emergency", MessageTypeEMCY, true},
	TimeStamp:             {"TimeStamp", MessageTypeTimestamp, false},
	TxPDO1:                {"TxPDO1", MessageTypeTPDO1, true},
	RxPDO1:                {"RxPDO1", MessageTypeRPDO1, true},
	TxPDO2:                {"TxPDO2", MessageTypeTPDO2, true},
	RxPDO2:                {"RxPDO2", MessageTypeRPDO2, true},
	TxPDO3:                {"TxPDO3", MessageTypeTPDO3, true},
	RxPDO3:                {"RxPDO3", MessageTypeRPDO3, true},
	TxPDO4:                {"TxPDO4", MessageTypeTPDO4, true},
	RxPDO4:                {"RxPDO4", MessageTypeRPDO4, true},
	TxSDO:                 {"TxSDO", MessageTypeTSDO, true},
	RxSDO:                 {"RxSDO", MessageTypeRSDO, true},
	NMTNodeMonitoring:     {"NMTNodeMonitoring", MessageTypeHeartbeat, true},
	TxLSS:                 {"TxLSS", MessageTypeTxLSS, false},
	RxLSS:                 {"RxLSS", MessageTypeRxLSS, false},
}

func (k CommunicationObjectKind) String() string {
	if int(k) < len(kindInfo) {
		return kindInfo[k].name
	}
	return fmt.Sprintf("CommunicationObjectKind(%d)", uint8(k))
}

// HasNode reports whether the kind is addressed per node.
func (k CommunicationObjectKind) HasNode() bool {
	return int(k) < len(kindInfo) && kindInfo[k].hasNode
}

// A CommunicationObject is the semantic meaning of an 11-bit COB-ID. Node is
// zero for kinds that are not addressed per node.
type CommunicationObject struct {
	Kind CommunicationObjectKind
	Node NodeID
}

// CobID returns the 11-bit identifier carrying the communication object.
func (cob CommunicationObject) CobID() uint16 {
	if int(cob.Kind) >= len(kindInfo) {
		return 0
	}
	info := kindInfo[cob.Kind]
	if !info.hasNode {
		return info.base
	}
	return info.base + uint16(cob.Node&MaskNodeID)
}

func (cob CommunicationObject) String() string {
	if cob.Kind.HasNode() {
		return fmt.Sprintf("%s(%d)", cob.Kind, cob.Node)
	}
	return cob.Kind.String()
}

// NewCommunicationObject classifies an 11-bit COB-ID.
func NewCommunicationObject(id uint16) (CommunicationObject, error) {
	if id > MaskCobID {
		return CommunicationObject{}, InvalidCobIDError{ID: id}
	}

	node := NodeID(id & MaskNodeID)
	perNode := func(kind CommunicationObjectKind) (CommunicationObject, error) {
		return CommunicationObject{Kind: kind, Node: node}, nil
	}

	switch id & MaskMessageType {
	case MessageTypeNMT:
		switch id {
		case MessageTypeNMT:
			return CommunicationObject{Kind: NMTNodeControl}, nil
		case MessageTypeGFC:
			return CommunicationObject{Kind: GlobalFailsafeCommand}, nil
		}
	case MessageTypeSync:
		if node == 0 {
			return CommunicationObject{Kind: Sync}, nil
		}
		return perNode(Emergency)
	case MessageTypeTimestamp:
		if id == MessageTypeTimestamp {
			return CommunicationObject{Kind: TimeStamp}, nil
		}
	case MessageTypeTPDO1:
		return perNode(TxPDO1)
	case MessageTypeRPDO1:
		return perNode(RxPDO1)
	case MessageTypeTPDO2:
		return perNode(TxPDO2)
	case MessageTypeRPDO2:
		return perNode(RxPDO2)
	case MessageTypeTPDO3:
		return perNode(TxPDO3)
	case MessageTypeRPDO3:
		return perNode(RxPDO3)
	case MessageTypeTPDO4:
		return perNode(TxPDO4)
	case MessageTypeRPDO4:
		return perNode(RxPDO4)
	case MessageTypeTSDO:
		return perNode(TxSDO)
	case MessageTypeRSDO:
		return perNode(RxSDO)
	case MessageTypeHeartbeat:
		return perNode(NMTNodeMonitoring)
	case MessageTypeTxLSS & MaskMessageType:
		switch id {
		case MessageTypeTxLSS:
			return CommunicationObject{Kind: TxLSS}, nil
		case MessageTypeRxLSS:
			return CommunicationObject{Kind: RxLSS}, nil
		}
	}

	return CommunicationObject{}, InvalidCobIDError{ID: id}
}
