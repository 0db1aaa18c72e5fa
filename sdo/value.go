package sdo

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"

	"golang.org/x/exp/slices"
)

// DataType is a CANopen basic data type, as found in object 0x0001-0x001B.
type DataType byte

const (
	DataTypeBoolean       DataType = 0x01
	DataTypeInteger8      DataType = 0x02
	DataTypeInteger16     DataType = 0x03
	DataTypeInteger32     DataType = 0x04
	DataTypeUnsigned8     DataType = 0x05
	DataTypeUnsigned16    DataType = 0x06
	DataTypeUnsigned32    DataType = 0x07
	DataTypeReal32        DataType = 0x08
	DataTypeVisibleString DataType = 0x09
	DataTypeOctetString   DataType = 0x0A
	DataTypeDomain        DataType = 0x0F
	DataTypeReal64        DataType = 0x11
	DataTypeInteger64     DataType = 0x15
	DataTypeUnsigned64    DataType = 0x1B
)

var signedTypes = []DataType{DataTypeInteger8, DataTypeInteger16, DataTypeInteger32, DataTypeInteger64}

var unsignedTypes = []DataType{DataTypeUnsigned8, DataTypeUnsigned16, DataTypeUnsigned32, DataTypeUnsigned64}

// Size returns the encoded width in bytes, or 0 for variable length types.
func (dt DataType) Size() int {
	switch dt {
	case DataTypeBoolean, DataTypeInteger8, DataTypeUnsigned8:
		return 1
	case DataTypeInteger16, DataTypeUnsigned16:
		return 2
	case DataTypeInteger32, DataTypeUnsigned32, DataTypeReal32:
		return 4
	case DataTypeInteger64, DataTypeUnsigned64, DataTypeReal64:
		return 8
	}
	return 0
}

func checkLength(data []byte, n int) error {
	if len(data) != n {
		return ValueLengthError{Expected: n, Actual: len(data)}
	}
	return nil
}

func Uint8(data []byte) (uint8, error) {
	if err := checkLength(data, 1); err != nil {
		return 0, err
	}
	return data[0], nil
}

func Uint16(data []byte) (uint16, error) {
	if err := checkLength(data, 2); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(data), nil
}

func Uint32(data []byte) (uint32, error) {
	if err := checkLength(data, 4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(data), nil
}

func PutUint8(v uint8) []byte {
	return []byte{v}
}

func PutUint16(v uint16) []byte {
	return binary.LittleEndian.AppendUint16(nil, v)
}

func PutUint32(v uint32) []byte {
	return binary.LittleEndian.AppendUint32(nil, v)
}

// ParseUint reads a little endian unsigned value of up to 8 bytes.
func ParseUint(b []byte) (uint64, error) {
	if len(b) > 8 {
		return 0, fmt.Errorf("value of %d bytes does not fit in a uint64", len(b))
	}
	return binary.LittleEndian.Uint64(Pad(append([]byte(nil), b...), 8)), nil
}

// ParseInt reads a little endian two's complement value of up to 8 bytes.
func ParseInt(b []byte) (int64, error) {
	u, err := ParseUint(b)
	if err != nil || len(b) == 0 || len(b) == 8 {
		return int64(u), err
	}
	shift := uint(64 - 8*len(b))
	return int64(u<<shift) >> shift, nil
}

// FormatValue renders data as a human readable value of type dt.
func FormatValue(dt DataType, data []byte) (string, error) {
	if size := dt.Size(); size != 0 {
		if err := checkLength(data, size); err != nil {
			return "", err
		}
	}

	switch {
	case slices.Contains(unsignedTypes, dt):
		v, err := ParseUint(data)
		return strconv.FormatUint(v, 10), err
	case slices.Contains(signedTypes, dt):
		v, err := ParseInt(data)
		return strconv.FormatInt(v, 10), err
	}

	switch dt {
	case DataTypeBoolean:
		return strconv.FormatBool(data[0] != 0), nil
	case DataTypeReal32:
		return strconv.FormatFloat(float64(math.Float32frombits(binary.LittleEndian.Uint32(data))), 'f', -1, 32), nil
	case DataTypeReal64:
		return strconv.FormatFloat(math.Float64frombits(binary.LittleEndian.Uint64(data)), 'f', -1, 64), nil
	case DataTypeVisibleString:
		return string(data), nil
	case DataTypeOctetString, DataTypeDomain:
		return hex.EncodeToString(data), nil
	}
	return "", fmt.Errorf("unsupported data type %02X", byte(dt))
}
