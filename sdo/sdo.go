// Package sdo implements the Service Data Object sub-protocol codec: the
// command specifier and transfer type bit packing of initiate, segment and
// abort frames.
package sdo

import (
	"encoding/binary"

	"github.com/FabianPetersen/canopen/v2"
)

// FrameDataSize is the fixed length of every SDO payload.
const FrameDataSize = 8

// SegmentDataSize is the number of data bytes a segment frame can carry.
const SegmentDataSize = 7

// A Frame is a decoded SDO message exchanged with node.
type Frame struct {
	Direction Direction
	Node      canopen.NodeID
	Command   Command
}

// Decode parses an SDO payload travelling in dir. The payload must be 8 bytes.
func Decode(dir Direction, node canopen.NodeID, data []byte) (Frame, error) {
	if len(data) < FrameDataSize {
		return Frame{}, canopen.InvalidDataLengthError{Length: len(data), Kind: "SdoFrame"}
	}

	cs, err := ReadCommandSpecifier(dir, data[0])
	if err != nil {
		return Frame{}, err
	}

	cmd, err := decodeCommand(cs, data)
	if err != nil {
		return Frame{}, err
	}

	return Frame{Direction: dir, Node: node, Command: cmd}, nil
}

func decodeCommand(cs CommandSpecifier, data []byte) (Command, error) {
	b0 := data[0]
	index := canopen.ParseObjectIndex(data[1:4])

	if cs.Abort {
		return AbortTransfer{ObjectIndex: index, Code: AbortCode(binary.LittleEndian.Uint32(data[4:8]))}, nil
	}

	if cs.Direction == ClientToServer {
		switch cs.Client {
		case CCSDownloadSegment:
			toggle, segment, continued := readSegment(data)
			return DownloadSegmentRequest{Toggle: toggle, Data: segment, Continued: continued}, nil
		case CCSInitiateDownload:
			return InitiateDownloadRequest{ObjectIndex: index, TransferType: readTransferType(b0, data[4:8])}, nil
		case CCSInitiateUpload:
			return InitiateUploadRequest{ObjectIndex: index}, nil
		case CCSUploadSegment:
			return UploadSegmentRequest{Toggle: HasBit(b0, 4)}, nil
		}
		return nil, canopen.ErrNotImplemented
	}

	switch cs.Server {
	case SCSUploadSegment:
		toggle, segment, continued := readSegment(data)
		return UploadSegmentResponse{Toggle: toggle, Data: segment, Continued: continued}, nil
	case SCSDownloadSegment:
		return DownloadSegmentResponse{Toggle: HasBit(b0, 4)}, nil
	case SCSInitiateUpload:
		return InitiateUploadResponse{ObjectIndex: index, TransferType: readTransferType(b0, data[4:8])}, nil
	case SCSInitiateDownload:
		return InitiateDownloadResponse{ObjectIndex: index}, nil
	}
	return nil, canopen.ErrNotImplemented
}

// readSegment reads toggle (bit 4), void byte count (bits 3-1) and the
// no-more-segments flag (bit 0).
func readSegment(data []byte) (bool, []byte, bool) {
	b0 := data[0]
	n := int(b0>>1) & 0x7
	return HasBit(b0, 4), append([]byte(nil), data[1:FrameDataSize-n]...), !HasBit(b0, 0)
}

func writeSegment(b []byte, toggle bool, segment []byte, continued bool) {
	b[0] |= setBitIf(0, 4, toggle)
	b[0] |= byte((SegmentDataSize-len(segment))&0x7) << 1
	b[0] = setBitIf(b[0], 0, !continued)
	copy(b[1:], segment)
}

func (f Frame) CommunicationObject() canopen.CommunicationObject {
	return f.Direction.CommunicationObject(f.Node)
}

// Encode returns the 8-byte payload, zero padded. Frames built by the
// constructors in this package or returned by Decode always encode; Validate
// reports anything Encode would have to truncate.
func (f Frame) Encode() []byte {
	b := make([]byte, FrameDataSize)
	if f.Command == nil {
		return b
	}

	cs := f.Command.specifier()
	cs.Direction = f.Direction
	b[0] = cs.Byte()

	switch cmd := f.Command.(type) {
	case InitiateDownloadRequest:
		copy(b[1:4], cmd.Bytes())
		writeTransferType(b, cmd.TransferType)
	case InitiateDownloadResponse:
		copy(b[1:4], cmd.Bytes())
	case InitiateUploadRequest:
		copy(b[1:4], cmd.Bytes())
	case InitiateUploadResponse:
		copy(b[1:4], cmd.Bytes())
		writeTransferType(b, cmd.TransferType)
	case DownloadSegmentRequest:
		writeSegment(b, cmd.Toggle, truncate(cmd.Data, SegmentDataSize), cmd.Continued)
	case DownloadSegmentResponse:
		b[0] = setBitIf(b[0], 4, cmd.Toggle)
	case UploadSegmentRequest:
		b[0] = setBitIf(b[0], 4, cmd.Toggle)
	case UploadSegmentResponse:
		writeSegment(b, cmd.Toggle, truncate(cmd.Data, SegmentDataSize), cmd.Continued)
	case AbortTransfer:
		copy(b[1:4], cmd.Bytes())
		binary.LittleEndian.PutUint32(b[4:8], uint32(cmd.Code))
	}

	return b
}

func writeTransferType(b []byte, t TransferType) {
	if t == nil {
		return
	}
	if e, ok := t.(Expedited); ok {
		t = Expedited{Sized: e.Sized, Data: truncate(e.Data, 4)}
	}
	b[0] |= t.flags()
	t.put(b[4:8])
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}

// Validate checks that the command belongs to the frame's direction and that
// its data fits the wire layout.
func (f Frame) Validate() error {
	if f.Command == nil {
		return ErrMissingCommand
	}

	cs := f.Command.specifier()
	if !cs.Abort && cs.Direction != f.Direction {
		return UnexpectedCommandError{Expected: f.Direction.String(), Actual: CommandName(f.Command)}
	}

	switch cmd := f.Command.(type) {
	case InitiateDownloadRequest:
		return validateTransferType(cmd.TransferType)
	case InitiateUploadResponse:
		return validateTransferType(cmd.TransferType)
	case DownloadSegmentRequest:
		return validateSegment(cmd.Data)
	case UploadSegmentResponse:
		return validateSegment(cmd.Data)
	}
	return nil
}

func validateSegment(data []byte) error {
	if len(data) > SegmentDataSize {
		return ErrSegmentDataTooLong
	}
	return nil
}

// ObjectIndex returns the object index for the initiate and abort commands,
// which are the only ones carrying it.
func (f Frame) ObjectIndex() (canopen.ObjectIndex, bool) {
	switch cmd := f.Command.(type) {
	case InitiateDownloadRequest:
		return cmd.ObjectIndex, true
	case InitiateDownloadResponse:
		return cmd.ObjectIndex, true
	case InitiateUploadRequest:
		return cmd.ObjectIndex, true
	case InitiateUploadResponse:
		return cmd.ObjectIndex, true
	case AbortTransfer:
		return cmd.ObjectIndex, true
	}
	return canopen.ObjectIndex{}, false
}
