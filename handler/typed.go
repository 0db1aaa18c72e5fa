package handler

import (
	"context"

	"github.com/FabianPetersen/canopen/v2"
	"github.com/FabianPetersen/canopen/v2/sdo"
)

func (h *FrameHandler) ReadUint8(ctx context.Context, node canopen.NodeID, index uint16, subIndex uint8) (uint8, error) {
	data, err := h.SDORead(ctx, node, index, subIndex)
	if err != nil {
		return 0, err
	}
	return sdo.Uint8(data)
}

func (h *FrameHandler) ReadUint16(ctx context.Context, node canopen.NodeID, index uint16, subIndex uint8) (uint16, error) {
	data, err := h.SDORead(ctx, node, index, subIndex)
	if err != nil {
		return 0, err
	}
	return sdo.Uint16(data)
}

func (h *FrameHandler) ReadUint32(ctx context.Context, node canopen.NodeID, index uint16, subIndex uint8) (uint32, error) {
	data, err := h.SDORead(ctx, node, index, subIndex)
	if err != nil {
		return 0, err
	}
	return sdo.Uint32(data)
}

func (h *FrameHandler) WriteUint8(ctx context.Context, node canopen.NodeID, index uint16, subIndex uint8, v uint8) error {
	return h.SDOWrite(ctx, node, index, subIndex, sdo.PutUint8(v))
}

func (h *FrameHandler) WriteUint16(ctx context.Context, node canopen.NodeID, index uint16, subIndex uint8, v uint16) error {
	return h.SDOWrite(ctx, node, index, subIndex, sdo.PutUint16(v))
}

func (h *FrameHandler) WriteUint32(ctx context.Context, node canopen.NodeID, index uint16, subIndex uint8, v uint32) error {
	return h.SDOWrite(ctx, node, index, subIndex, sdo.PutUint32(v))
}
