package sdoServer

import (
	"github.com/FabianPetersen/canopen/v2"
	"github.com/FabianPetersen/canopen/v2/sdo"
)

func (server *Server) initiateDownload(req sdo.InitiateDownloadRequest) sdo.Frame {
	server.current = nil
	objectIndex := req.ObjectIndex

	switch t := req.TransferType.(type) {
	case sdo.Expedited:
		// Process the data
		if downloadErr := server.Download(objectIndex, t.Data); downloadErr != sdo.NoAbort {
			return server.abort(objectIndex, downloadErr)
		}
	case sdo.Normal:
		// Accept the request, to get the actual data from the client
		server.current = &transfer{objectIndex: objectIndex, size: t}
	default:
		return server.abort(objectIndex, sdo.AbortCommand)
	}

	return sdo.NewDownloadResponseFrame(server.NodeId, objectIndex.Index, objectIndex.SubIndex)
}

func (server *Server) downloadSegment(req sdo.DownloadSegmentRequest) sdo.Frame {
	t, ok := server.active(false)
	if !ok {
		return server.abort(canopen.ObjectIndex{}, sdo.AbortCommand)
	}
	if req.Toggle != t.toggle {
		return server.abort(t.objectIndex, sdo.AbortToggleBit)
	}

	t.data = append(t.data, req.Data...)
	if t.size.Sized && len(t.data) > int(t.size.Size) {
		return server.abort(t.objectIndex, sdo.AbortDataTypeHigh)
	}

	resp := sdo.NewDownloadSegmentResponseFrame(server.NodeId, t.toggle)
	t.toggle = !t.toggle
	if req.Continued {
		return resp
	}

	server.current = nil
	if t.size.Sized && len(t.data) != int(t.size.Size) {
		return server.abort(t.objectIndex, sdo.AbortDataTypeLow)
	}
	if downloadErr := server.Download(t.objectIndex, t.data); downloadErr != sdo.NoAbort {
		return server.abort(t.objectIndex, downloadErr)
	}
	return resp
}
