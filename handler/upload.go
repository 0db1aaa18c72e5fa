package handler

import (
	"bytes"
	"context"

	"github.com/FabianPetersen/canopen/v2"
	"github.com/FabianPetersen/canopen/v2/sdo"
)

// SDORead reads an entry of node's object dictionary. Values announced as a
// normal transfer are fetched segment by segment.
func (h *FrameHandler) SDORead(ctx context.Context, node canopen.NodeID, index uint16, subIndex uint8) ([]byte, error) {
	ctx, cancel := h.withTimeout(ctx)
	defer cancel()

	addr := address(node, index, subIndex)
	w, err := h.register(ctx, addr, false, true)
	if err != nil {
		return nil, err
	}
	// A normal transfer keeps the node held until the last segment
	defer h.release(w)

	resp, err := h.exchange(ctx, w, sdo.NewReadFrame(node, index, subIndex))
	if err != nil {
		return nil, err
	}

	switch cmd := resp.Command.(type) {
	case sdo.InitiateUploadResponse:
		switch t := cmd.TransferType.(type) {
		case sdo.Expedited:
			return t.Data, nil
		case sdo.Normal:
			return h.upload(ctx, addr, t)
		}
	case sdo.AbortTransfer:
		return nil, abortError(addr, cmd)
	}
	return nil, unexpected("InitiateUploadResponse", resp)
}

func (h *FrameHandler) upload(ctx context.Context, addr ObjectDictionaryAddress, t sdo.Normal) ([]byte, error) {
	var buf bytes.Buffer
	toggle := false
	for {
		resp, err := h.request(ctx, addr, sdo.NewUploadSegmentFrame(addr.Node, toggle), true)
		if err != nil {
			return nil, err
		}

		switch cmd := resp.Command.(type) {
		case sdo.UploadSegmentResponse:
			if cmd.Toggle != toggle {
				h.abort(ctx, addr, sdo.AbortToggleBit)
				return nil, sdo.UnexpectedToggleBitError{Expected: toggle, Actual: cmd.Toggle}
			}

			buf.Write(cmd.Data)

			// Check if we have received too many bytes
			if t.Sized && buf.Len() > int(t.Size) {
				h.abort(ctx, addr, sdo.AbortDataTypeHigh)
				return nil, sdo.UnexpectedResponseLengthError{Expected: int(t.Size), Actual: buf.Len()}
			}

			if !cmd.Continued {
				// Check if we have received too few bytes
				if t.Sized && buf.Len() != int(t.Size) {
					return nil, sdo.UnexpectedResponseLengthError{Expected: int(t.Size), Actual: buf.Len()}
				}
				return buf.Bytes(), nil
			}
		case sdo.AbortTransfer:
			return nil, abortError(addr, cmd)
		default:
			return nil, unexpected("UploadSegmentResponse", resp)
		}

		toggle = !toggle
	}
}

// abort tells the server to give up the transfer of addr.
func (h *FrameHandler) abort(ctx context.Context, addr ObjectDictionaryAddress, code sdo.AbortCode) {
	frm := sdo.NewAbortFrame(sdo.ClientToServer, addr.Node, addr.Index, addr.SubIndex, code)
	if err := h.bus.SendFrame(ctx, frm); err != nil {
		h.logger.WithError(err).WithField("address", addr.String()).Debug("sending abort failed")
	}
}

func abortError(addr ObjectDictionaryAddress, cmd sdo.AbortTransfer) error {
	return &sdo.AbortError{Node: addr.Node, ObjectIndex: cmd.ObjectIndex, Code: cmd.Code}
}

func unexpected(expected string, resp sdo.Frame) error {
	return sdo.UnexpectedCommandError{Expected: expected, Actual: sdo.CommandName(resp.Command)}
}
