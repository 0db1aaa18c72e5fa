package canopen

// A Message is a decoded CANopen message. The set of implementations is
// NMTNodeControlFrame, SyncFrame, EmergencyFrame, NMTNodeMonitoringFrame and
// sdo.Frame.
type Message interface {
	// CommunicationObject returns the object the message is carried by.
	CommunicationObject() CommunicationObject
	// Encode returns the payload bytes.
	Encode() []byte
}

// NewMessageFrame returns the raw frame carrying msg.
func NewMessageFrame(msg Message) Frame {
	return NewFrame(msg.CommunicationObject().CobID(), msg.Encode())
}
