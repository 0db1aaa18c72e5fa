package sdo

import "github.com/FabianPetersen/canopen/v2"

// NewReadFrame builds the InitiateUploadRequest reading index/subIndex from node.
func NewReadFrame(node canopen.NodeID, index uint16, subIndex uint8) Frame {
	return Frame{
		Direction: ClientToServer,
		Node:      node,
		Command:   InitiateUploadRequest{ObjectIndex: canopen.NewObjectIndex(index, subIndex)},
	}
}

// NewWriteFrame builds a sized expedited InitiateDownloadRequest. data must be
// 1 to 4 bytes.
func NewWriteFrame(node canopen.NodeID, index uint16, subIndex uint8, data []byte) (Frame, error) {
	return NewInitiateDownloadFrame(node, index, subIndex, Expedited{Sized: true, Data: data})
}

// NewInitiateDownloadFrame builds an InitiateDownloadRequest with any transfer type.
func NewInitiateDownloadFrame(node canopen.NodeID, index uint16, subIndex uint8, t TransferType) (Frame, error) {
	if err := validateTransferType(t); err != nil {
		return Frame{}, err
	}
	return Frame{
		Direction: ClientToServer,
		Node:      node,
		Command:   InitiateDownloadRequest{ObjectIndex: canopen.NewObjectIndex(index, subIndex), TransferType: t},
	}, nil
}

// NewDownloadSegmentFrame builds one segment of a segmented write.
func NewDownloadSegmentFrame(node canopen.NodeID, toggle bool, data []byte, continued bool) (Frame, error) {
	if err := validateSegment(data); err != nil {
		return Frame{}, err
	}
	return Frame{
		Direction: ClientToServer,
		Node:      node,
		Command:   DownloadSegmentRequest{Toggle: toggle, Data: data, Continued: continued},
	}, nil
}

// NewUploadSegmentFrame requests the next segment of a segmented read.
func NewUploadSegmentFrame(node canopen.NodeID, toggle bool) Frame {
	return Frame{
		Direction: ClientToServer,
		Node:      node,
		Command:   UploadSegmentRequest{Toggle: toggle},
	}
}

// NewAbortFrame aborts the transfer of index/subIndex.
func NewAbortFrame(dir Direction, node canopen.NodeID, index uint16, subIndex uint8, code AbortCode) Frame {
	return Frame{
		Direction: dir,
		Node:      node,
		Command:   AbortTransfer{ObjectIndex: canopen.NewObjectIndex(index, subIndex), Code: code},
	}
}

// NewUploadResponseFrame answers a read. Values of up to 4 bytes are sent
// expedited, longer ones announce a segmented transfer of len(data) bytes.
func NewUploadResponseFrame(node canopen.NodeID, index uint16, subIndex uint8, data []byte) Frame {
	var t TransferType = Expedited{Sized: true, Data: data}
	if len(data) == 0 || len(data) > 4 {
		t = NormalTransfer(uint32(len(data)))
	}
	return Frame{
		Direction: ServerToClient,
		Node:      node,
		Command:   InitiateUploadResponse{ObjectIndex: canopen.NewObjectIndex(index, subIndex), TransferType: t},
	}
}

// NewDownloadResponseFrame confirms a write.
func NewDownloadResponseFrame(node canopen.NodeID, index uint16, subIndex uint8) Frame {
	return Frame{
		Direction: ServerToClient,
		Node:      node,
		Command:   InitiateDownloadResponse{ObjectIndex: canopen.NewObjectIndex(index, subIndex)},
	}
}

// NewUploadSegmentResponseFrame carries one segment of a segmented read.
func NewUploadSegmentResponseFrame(node canopen.NodeID, toggle bool, data []byte, continued bool) (Frame, error) {
	if err := validateSegment(data); err != nil {
		return Frame{}, err
	}
	return Frame{
		Direction: ServerToClient,
		Node:      node,
		Command:   UploadSegmentResponse{Toggle: toggle, Data: data, Continued: continued},
	}, nil
}

// NewDownloadSegmentResponseFrame confirms one segment of a segmented write.
func NewDownloadSegmentResponseFrame(node canopen.NodeID, toggle bool) Frame {
	return Frame{
		Direction: ServerToClient,
		Node:      node,
		Command:   DownloadSegmentResponse{Toggle: toggle},
	}
}
