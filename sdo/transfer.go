package sdo

import "encoding/binary"

// TransferType tells how the value of an initiate frame is carried.
type TransferType interface {
	flags() byte
	put(b []byte)
}

// Normal announces a segmented transfer. Size is the total number of bytes
// when Sized is set.
type Normal struct {
	Sized bool
	Size  uint32
}

// NormalTransfer returns a sized normal transfer.
func NormalTransfer(size uint32) Normal {
	return Normal{Sized: true, Size: size}
}

// Expedited embeds up to 4 bytes in the initiate frame. Without Sized the
// receiver cannot know how many of the 4 bytes are significant.
type Expedited struct {
	Sized bool
	Data  []byte
}

func (t Normal) flags() byte {
	return setBitIf(0, 0, t.Sized)
}

func (t Normal) put(b []byte) {
	if t.Sized {
		binary.LittleEndian.PutUint32(b, t.Size)
	}
}

func (t Expedited) flags() byte {
	flags := SetBit(0, 1)
	if t.Sized {
		flags = SetBit(flags, 0)
		flags |= byte((4-len(t.Data))&0x3) << 2
	}
	return flags
}

func (t Expedited) put(b []byte) {
	copy(b[:4], t.Data)
}

func readTransferType(b0 byte, b []byte) TransferType {
	expedited := HasBit(b0, 1)
	sized := HasBit(b0, 0)

	if !expedited {
		t := Normal{Sized: sized}
		if sized {
			t.Size = binary.LittleEndian.Uint32(b)
		}
		return t
	}

	n := 0
	if sized {
		n = int(b0>>2) & 0x3
	}
	return Expedited{Sized: sized, Data: append([]byte(nil), b[:4-n]...)}
}

func validateTransferType(t TransferType) error {
	switch t := t.(type) {
	case Expedited:
		if len(t.Data) > 4 {
			return ErrExpeditedDataTooLong
		}
		if t.Sized && len(t.Data) == 0 {
			return ErrExpeditedDataEmpty
		}
		// without a size all 4 bytes are significant
		if !t.Sized && len(t.Data) != 4 {
			return ErrUnsizedExpeditedData
		}
	case Normal:
		if !t.Sized && t.Size != 0 {
			return ErrUnsizedNormalSize
		}
	case nil:
		return ErrMissingTransferType
	}
	return nil
}
