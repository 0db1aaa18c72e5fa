package canopen

import (
	"github.com/FabianPetersen/can"
)

// A Frame represents a raw CANopen frame, before its payload is interpreted.
type Frame struct {
	// CobID is the 11-bit communication object identifier. CANopen only uses 11-bit identifiers.
	// Bits 0-6 represent the 7-bit node ID. Bits 7-11 represent the 4-bit message type.
	CobID uint16
	// Rtr represents the Remote Transmit Request flag.
	Rtr bool
	// Extended is set for frames received with a 29-bit identifier.
	Extended bool
	// Error is set for error frames reported by the CAN controller.
	Error bool
	// Data contains up to 8 bytes
	Data []uint8
}

// CANopenFrame returns a CANopen frame from a CAN frame.
func CANopenFrame(frm can.Frame) Frame {
	n := int(frm.Length)
	if n > MaxDataLength {
		n = MaxDataLength
	}

	canopenFrame := Frame{}
	canopenFrame.Extended = (frm.ID & MaskEff) == MaskEff
	canopenFrame.CobID = uint16(frm.ID & MaskIDSff)
	canopenFrame.Rtr = (frm.ID & MaskRtr) == MaskRtr
	canopenFrame.Error = (frm.ID & MaskErr) == MaskErr
	canopenFrame.Data = append([]uint8(nil), frm.Data[:n]...)

	return canopenFrame
}

// NewFrame returns a frame with an id and data bytes.
func NewFrame(id uint16, data []uint8) Frame {
	return Frame{
		CobID: id & MaskCobID, // only use first 11 bits
		Data:  data,
	}
}

// MessageType returns the message type.
func (frm Frame) MessageType() uint16 {
	return frm.CobID & MaskMessageType
}

// NodeID returns the node id.
func (frm Frame) NodeID() NodeID {
	return NodeID(frm.CobID & MaskNodeID)
}

// CommunicationObject classifies the frame's COB-ID.
func (frm Frame) CommunicationObject() (CommunicationObject, error) {
	return NewCommunicationObject(frm.CobID)
}

// CANFrame returns a CAN frame representing the CANopen frame. Data beyond
// 8 bytes is dropped.
//
// CANopen frames are encoded as follows:
//
//	         -------------------------------------------------------
//	CAN     | ID           | Length    | Flags | Res0 | Res1 | Data |
//	         -------------------------------------------------------
//	CANopen | COB-ID + Rtr | len(Data) |       |      |      | Data |
//	         -------------------------------------------------------
func (frm Frame) CANFrame() can.Frame {
	var data [MaxDataLength]uint8
	n := copy(data[:], frm.Data)

	// Convert CANopen COB-ID to CAN id including RTR flag
	id := uint32(frm.CobID & MaskCobID)
	if frm.Rtr {
		id = id | MaskRtr
	}

	return can.Frame{
		ID:     id,
		Length: uint8(n),
		Data:   data,
	}
}
