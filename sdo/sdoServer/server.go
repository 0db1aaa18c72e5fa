// Package sdoServer answers SDO requests for one node from callbacks that
// read and write its object dictionary.
package sdoServer

import (
	"context"
	"errors"

	"github.com/FabianPetersen/canopen/v2"
	"github.com/FabianPetersen/canopen/v2/canbus"
	"github.com/FabianPetersen/canopen/v2/sdo"
)

type transfer struct {
	objectIndex canopen.ObjectIndex
	upload      bool
	toggle      bool
	size        sdo.Normal
	data        []byte
}

// Server serves one transfer at a time, like a device's single SDO channel.
type Server struct {
	NodeId   canopen.NodeID
	Upload   func(canopen.ObjectIndex) ([]byte, sdo.AbortCode)
	Download func(canopen.ObjectIndex, []byte) sdo.AbortCode

	current *transfer
}

// Serve answers requests addressed to NodeId until ctx is done or bus fails.
func (server *Server) Serve(ctx context.Context, bus canbus.Interface) error {
	for {
		msg, err := bus.WaitForFrame(ctx)
		if err != nil {
			var decodeErr *canbus.DecodeError
			if errors.As(err, &decodeErr) {
				continue
			}
			return err
		}

		// Check if the frame is intended for us and is an SDO request
		frame, ok := msg.(sdo.Frame)
		if !ok || frame.Direction != sdo.ClientToServer || frame.Node != server.NodeId {
			continue
		}

		if resp, ok := server.Handle(frame); ok {
			if err := bus.SendFrame(ctx, resp); err != nil {
				return err
			}
		}
	}
}

// Handle returns the response to one request, if the request has one.
func (server *Server) Handle(frame sdo.Frame) (sdo.Frame, bool) {
	switch cmd := frame.Command.(type) {
	case sdo.InitiateUploadRequest:
		return server.initiateUpload(cmd.ObjectIndex), true
	case sdo.UploadSegmentRequest:
		return server.uploadSegment(cmd), true
	case sdo.InitiateDownloadRequest:
		return server.initiateDownload(cmd), true
	case sdo.DownloadSegmentRequest:
		return server.downloadSegment(cmd), true
	case sdo.AbortTransfer:
		server.current = nil
		return sdo.Frame{}, false
	}
	return server.abort(canopen.ObjectIndex{}, sdo.AbortCommand), true
}

func (server *Server) abort(objectIndex canopen.ObjectIndex, code sdo.AbortCode) sdo.Frame {
	server.current = nil
	return sdo.NewAbortFrame(sdo.ServerToClient, server.NodeId, objectIndex.Index, objectIndex.SubIndex, code)
}

func (server *Server) active(upload bool) (*transfer, bool) {
	t := server.current
	return t, t != nil && t.upload == upload
}
