package sdo

import (
	"fmt"

	"github.com/FabianPetersen/canopen/v2"
)

// AbortCode is the reason carried by an AbortTransfer.
type AbortCode uint32

const (
	// NoAbort is returned by object dictionary callbacks on success.
	NoAbort                AbortCode = 0
	AbortToggleBit         AbortCode = 0x05030000
	AbortTimeout           AbortCode = 0x05040000
	AbortCommand           AbortCode = 0x05040001
	AbortBlockSize         AbortCode = 0x05040002
	AbortBlockSequence     AbortCode = 0x05040003
	AbortBlockCRC          AbortCode = 0x05040004
	AbortMemory            AbortCode = 0x05040005
	AbortAccessUnsupported AbortCode = 0x06010000
	AbortAccessWO          AbortCode = 0x06010001
	AbortAccessRO          AbortCode = 0x06010002
	AbortNoObject          AbortCode = 0x06020000
	AbortMappingObject     AbortCode = 0x06040041
	AbortMappingLength     AbortCode = 0x06040042
	AbortGeneralParameter  AbortCode = 0x06040043
	AbortGeneralDevice     AbortCode = 0x06040047
	AbortHardware          AbortCode = 0x06060000
	AbortDataType          AbortCode = 0x06070010
	AbortDataTypeHigh      AbortCode = 0x06070012
	AbortDataTypeLow       AbortCode = 0x06070013
	AbortNoSubIndex        AbortCode = 0x06090011
	AbortValueRange        AbortCode = 0x06090030
	AbortValueHigh         AbortCode = 0x06090031
	AbortValueLow          AbortCode = 0x06090032
	AbortValueMinMax       AbortCode = 0x06090036
	AbortSDOConnection     AbortCode = 0x060A0023
	AbortGeneral           AbortCode = 0x08000000
	AbortDataStore         AbortCode = 0x08000020
	AbortDataStoreLocal    AbortCode = 0x08000021
	AbortDataStoreState    AbortCode = 0x08000022
	AbortObjectDictionary  AbortCode = 0x08000023
	AbortNoData            AbortCode = 0x08000024
)

var abortCodeText = map[AbortCode]string{
	AbortToggleBit:         "SDO toggle bit error (protocol violation)",
	AbortTimeout:           "SDO protocol timed out",
	AbortCommand:           "client/server command specifier not valid or unknown (protocol incompatibility)",
	AbortBlockSize:         "Invalid block size (block mode only)",
	AbortBlockSequence:     "Invalid sequence number (block mode only)",
	AbortBlockCRC:          "CRC error (cyclic redundancy code, block mode only)",
	AbortMemory:            "out of memory",
	AbortAccessUnsupported: "unsupported access",
	AbortAccessWO:          "tried to read a WRITE-ONLY object",
	AbortAccessRO:          "tried to write a READ-ONLY object",
	AbortNoObject:          "object does not exist (in the CANopen object dictionary)",
	AbortMappingObject:     "object cannot be mapped (into a PDO)",
	AbortMappingLength:     "PDO length exceeded (when trying to map an object)",
	AbortGeneralParameter:  "general parameter incompatibility",
	AbortGeneralDevice:     "general internal incompatibility in the device",
	AbortHardware:          "access failed due to hardware error",
	AbortDataType:          "data type and length code do not match",
	AbortDataTypeHigh:      "data type problem, length code is too high",
	AbortDataTypeLow:       "data type problem, length code is too low",
	AbortNoSubIndex:        "subindex does not exist",
	AbortValueRange:        "value range exceeded",
	AbortValueHigh:         "value range exceeded, too high",
	AbortValueLow:          "value range exceeded, too low",
	AbortValueMinMax:       "maximum value is less than minimum value",
	AbortSDOConnection:     "resource not available: SDO connection",
	AbortGeneral:           "general error",
	AbortDataStore:         "data could not be transferred or stored",
	AbortDataStoreLocal:    "data could not be transferred due to \"local control\"",
	AbortDataStoreState:    "data could not be transferred due to \"device state\"",
	AbortObjectDictionary:  "object dictionary does not exist",
	AbortNoData:            "no data",
}

func (code AbortCode) String() string {
	if text, ok := abortCodeText[code]; ok {
		return text
	}
	return "unknown error"
}

// AbortError is returned when a node answers a request with AbortTransfer.
type AbortError struct {
	Node canopen.NodeID
	canopen.ObjectIndex
	Code AbortCode
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("node %d aborted transfer of %s: %s (%08X)", e.Node, e.ObjectIndex, e.Code, uint32(e.Code))
}
