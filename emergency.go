package canopen

import "encoding/binary"

// EmergencyFrame is an EMCY message. Only the error code and error register
// are interpreted; the manufacturer specific bytes are discarded.
type EmergencyFrame struct {
	Node          NodeID
	ErrorCode     uint16
	ErrorRegister uint8
}

// DecodeEmergencyFrame decodes the 8-byte EMCY payload sent by node.
func DecodeEmergencyFrame(node NodeID, data []byte) (EmergencyFrame, error) {
	if len(data) != 8 {
		return EmergencyFrame{}, InvalidDataLengthError{Length: len(data), Kind: "EmergencyFrame"}
	}

	return EmergencyFrame{
		Node:          node,
		ErrorCode:     binary.LittleEndian.Uint16(data[0:2]),
		ErrorRegister: data[2],
	}, nil
}

func (f EmergencyFrame) CommunicationObject() CommunicationObject {
	return CommunicationObject{Kind: Emergency, Node: f.Node}
}

func (f EmergencyFrame) Encode() []byte {
	data := make([]byte, 8)
	binary.LittleEndian.PutUint16(data[0:2], f.ErrorCode)
	data[2] = f.ErrorRegister
	return data
}
