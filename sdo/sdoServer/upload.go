package sdoServer

import (
	"github.com/FabianPetersen/canopen/v2"
	"github.com/FabianPetersen/canopen/v2/sdo"
)

func (server *Server) initiateUpload(objectIndex canopen.ObjectIndex) sdo.Frame {
	// A new initiate request replaces an unfinished transfer
	server.current = nil

	data, uploadErr := server.Upload(objectIndex)
	if uploadErr != sdo.NoAbort {
		return server.abort(objectIndex, uploadErr)
	}

	// Can be sent as expedited
	resp := sdo.NewUploadResponseFrame(server.NodeId, objectIndex.Index, objectIndex.SubIndex, data)
	if len(data) == 0 || len(data) > 4 {
		server.current = &transfer{objectIndex: objectIndex, upload: true, data: data}
	}
	return resp
}

func (server *Server) uploadSegment(req sdo.UploadSegmentRequest) sdo.Frame {
	t, ok := server.active(true)
	if !ok {
		return server.abort(canopen.ObjectIndex{}, sdo.AbortCommand)
	}
	if req.Toggle != t.toggle {
		return server.abort(t.objectIndex, sdo.AbortToggleBit)
	}

	segment := t.data[:min(len(t.data), sdo.SegmentDataSize)]
	t.data = t.data[len(segment):]
	continued := len(t.data) > 0

	resp, err := sdo.NewUploadSegmentResponseFrame(server.NodeId, t.toggle, segment, continued)
	if err != nil {
		return server.abort(t.objectIndex, sdo.AbortGeneral)
	}

	t.toggle = !t.toggle
	if !continued {
		server.current = nil
	}
	return resp
}
