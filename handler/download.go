package handler

import (
	"context"

	"github.com/FabianPetersen/canopen/v2"
	"github.com/FabianPetersen/canopen/v2/sdo"
)

// SDOWrite writes data to an entry of node's object dictionary. 1 to 4 bytes
// are sent expedited, anything else as a segmented download.
func (h *FrameHandler) SDOWrite(ctx context.Context, node canopen.NodeID, index uint16, subIndex uint8, data []byte) error {
	ctx, cancel := h.withTimeout(ctx)
	defer cancel()

	addr := address(node, index, subIndex)
	if len(data) == 0 || len(data) > 4 {
		return h.download(ctx, addr, data)
	}

	req, err := sdo.NewWriteFrame(node, index, subIndex, data)
	if err != nil {
		return err
	}
	resp, err := h.request(ctx, addr, req, false)
	if err != nil {
		return err
	}
	return confirmDownload(addr, resp)
}

func (h *FrameHandler) download(ctx context.Context, addr ObjectDictionaryAddress, data []byte) error {
	// Do not allow multiple segmented transfers for the same device
	key := transferKey(addr.Node)
	h.transfers.Lock(key)
	defer h.transfers.Unlock(key)

	req, err := sdo.NewInitiateDownloadFrame(addr.Node, addr.Index, addr.SubIndex, sdo.NormalTransfer(uint32(len(data))))
	if err != nil {
		return err
	}
	w, err := h.register(ctx, addr, false, true)
	if err != nil {
		return err
	}
	defer h.release(w)

	resp, err := h.exchange(ctx, w, req)
	if err != nil {
		return err
	}
	if err := confirmDownload(addr, resp); err != nil {
		return err
	}

	toggle := false
	segments := sdo.SplitN(data, sdo.SegmentDataSize)
	for i, segment := range segments {
		req, err := sdo.NewDownloadSegmentFrame(addr.Node, toggle, segment, i < len(segments)-1)
		if err != nil {
			return err
		}

		resp, err := h.request(ctx, addr, req, true)
		if err != nil {
			return err
		}

		switch cmd := resp.Command.(type) {
		case sdo.DownloadSegmentResponse:
			if cmd.Toggle != toggle {
				h.abort(ctx, addr, sdo.AbortToggleBit)
				return sdo.UnexpectedToggleBitError{Expected: toggle, Actual: cmd.Toggle}
			}
		case sdo.AbortTransfer:
			return abortError(addr, cmd)
		default:
			return unexpected("DownloadSegmentResponse", resp)
		}

		toggle = !toggle
	}

	return nil
}

func confirmDownload(addr ObjectDictionaryAddress, resp sdo.Frame) error {
	switch cmd := resp.Command.(type) {
	case sdo.InitiateDownloadResponse:
		return nil
	case sdo.AbortTransfer:
		return abortError(addr, cmd)
	}
	return unexpected("InitiateDownloadResponse", resp)
}
