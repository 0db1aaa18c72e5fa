package canopen

import (
	"encoding/binary"
	"fmt"
)

// ObjectIndex addresses an entry of a node's object dictionary.
type ObjectIndex struct {
	Index    uint16
	SubIndex uint8
}

// NewObjectIndex returns an object index from a 2-byte index and 1-byte sub index.
func NewObjectIndex(index uint16, subIndex uint8) ObjectIndex {
	return ObjectIndex{
		Index:    index,
		SubIndex: subIndex,
	}
}

// ParseObjectIndex reads the little endian index and the sub index from 3 bytes.
func ParseObjectIndex(b []byte) ObjectIndex {
	return ObjectIndex{
		Index:    binary.LittleEndian.Uint16(b[0:2]),
		SubIndex: b[2],
	}
}

// Bytes returns the wire representation, index low byte first.
func (objectIndex ObjectIndex) Bytes() []byte {
	return []byte{
		byte(objectIndex.Index),
		byte(objectIndex.Index >> 8),
		objectIndex.SubIndex,
	}
}

func (objectIndex ObjectIndex) String() string {
	return fmt.Sprintf("%04Xh:%02Xh", objectIndex.Index, objectIndex.SubIndex)
}
