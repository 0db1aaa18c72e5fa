package canopen

// SyncFrame is the payload-less SYNC message.
type SyncFrame struct{}

// DecodeSyncFrame accepts only an empty payload. The optional counter byte is
// not supported.
func DecodeSyncFrame(data []byte) (SyncFrame, error) {
	if len(data) != 0 {
		return SyncFrame{}, InvalidDataLengthError{Length: len(data), Kind: "SyncFrame"}
	}
	return SyncFrame{}, nil
}

func (SyncFrame) CommunicationObject() CommunicationObject {
	return CommunicationObject{Kind: Sync}
}

func (SyncFrame) Encode() []byte {
	return []byte{}
}
