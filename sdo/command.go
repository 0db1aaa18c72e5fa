package sdo

import (
	"fmt"

	"github.com/FabianPetersen/canopen/v2"
)

// Direction is the direction an SDO frame travels in. It decides how the
// command specifier bits are read.
type Direction uint8

const (
	// ClientToServer frames are requests, carried by RxSDO.
	ClientToServer Direction = iota
	// ServerToClient frames are responses, carried by TxSDO.
	ServerToClient
)

func (d Direction) String() string {
	if d == ServerToClient {
		return "ServerToClient"
	}
	return "ClientToServer"
}

// CommunicationObject returns the SDO channel of node in this direction.
func (d Direction) CommunicationObject(node canopen.NodeID) canopen.CommunicationObject {
	if d == ServerToClient {
		return canopen.CommunicationObject{Kind: canopen.TxSDO, Node: node}
	}
	return canopen.CommunicationObject{Kind: canopen.RxSDO, Node: node}
}

type ClientCommandSpecifier byte

const (
	CCSDownloadSegment  ClientCommandSpecifier = 0
	CCSInitiateDownload ClientCommandSpecifier = 1
	CCSInitiateUpload   ClientCommandSpecifier = 2
	CCSUploadSegment    ClientCommandSpecifier = 3
	CCSBlockUpload      ClientCommandSpecifier = 5
	CCSBlockDownload    ClientCommandSpecifier = 6
)

type ServerCommandSpecifier byte

const (
	SCSUploadSegment    ServerCommandSpecifier = 0
	SCSDownloadSegment  ServerCommandSpecifier = 1
	SCSInitiateUpload   ServerCommandSpecifier = 2
	SCSInitiateDownload ServerCommandSpecifier = 3
	SCSBlockDownload    ServerCommandSpecifier = 5
	SCSBlockUpload      ServerCommandSpecifier = 6
)

// abortSpecifier means AbortTransfer in both directions.
const abortSpecifier = 4

// CommandSpecifier is the top three bits of byte 0 read in a direction. Abort
// is shared by both directions; otherwise exactly one of Client or Server is
// meaningful, selected by Direction.
type CommandSpecifier struct {
	Direction Direction
	Abort     bool
	Client    ClientCommandSpecifier
	Server    ServerCommandSpecifier
}

// ReadCommandSpecifier extracts the command specifier from the first payload byte.
func ReadCommandSpecifier(dir Direction, b byte) (CommandSpecifier, error) {
	value := b >> 5
	if value == abortSpecifier {
		return CommandSpecifier{Direction: dir, Abort: true}, nil
	}
	if value > 6 {
		if dir == ClientToServer {
			return CommandSpecifier{}, InvalidClientCommandSpecifierError{Value: value}
		}
		return CommandSpecifier{}, InvalidCommandSpecifierError{Value: value}
	}

	if dir == ClientToServer {
		return CommandSpecifier{Direction: dir, Client: ClientCommandSpecifier(value)}, nil
	}
	return CommandSpecifier{Direction: dir, Server: ServerCommandSpecifier(value)}, nil
}

// Byte returns the specifier shifted into position.
func (cs CommandSpecifier) Byte() byte {
	switch {
	case cs.Abort:
		return abortSpecifier << 5
	case cs.Direction == ClientToServer:
		return byte(cs.Client) << 5
	default:
		return byte(cs.Server) << 5
	}
}

// A Command is one SDO exchange unit.
type Command interface {
	specifier() CommandSpecifier
}

// InitiateDownloadRequest starts a write of an object dictionary entry.
type InitiateDownloadRequest struct {
	canopen.ObjectIndex
	TransferType TransferType
}

// InitiateDownloadResponse confirms an InitiateDownloadRequest.
type InitiateDownloadResponse struct {
	canopen.ObjectIndex
}

// InitiateUploadRequest starts a read of an object dictionary entry.
type InitiateUploadRequest struct {
	canopen.ObjectIndex
}

// InitiateUploadResponse carries the value, or its size when it follows in segments.
type InitiateUploadResponse struct {
	canopen.ObjectIndex
	TransferType TransferType
}

// DownloadSegmentRequest carries up to 7 bytes of a segmented write.
type DownloadSegmentRequest struct {
	Toggle bool
	Data   []byte
	// Continued is set when more segments follow.
	Continued bool
}

type DownloadSegmentResponse struct {
	Toggle bool
}

type UploadSegmentRequest struct {
	Toggle bool
}

// UploadSegmentResponse carries up to 7 bytes of a segmented read.
type UploadSegmentResponse struct {
	Toggle bool
	Data   []byte
	// Continued is set when more segments follow.
	Continued bool
}

// AbortTransfer cancels a transfer in either direction.
type AbortTransfer struct {
	canopen.ObjectIndex
	Code AbortCode
}

func (InitiateDownloadRequest) specifier() CommandSpecifier {
	return CommandSpecifier{Direction: ClientToServer, Client: CCSInitiateDownload}
}

func (InitiateDownloadResponse) specifier() CommandSpecifier {
	return CommandSpecifier{Direction: ServerToClient, Server: SCSInitiateDownload}
}

func (InitiateUploadRequest) specifier() CommandSpecifier {
	return CommandSpecifier{Direction: ClientToServer, Client: CCSInitiateUpload}
}

func (InitiateUploadResponse) specifier() CommandSpecifier {
	return CommandSpecifier{Direction: ServerToClient, Server: SCSInitiateUpload}
}

func (DownloadSegmentRequest) specifier() CommandSpecifier {
	return CommandSpecifier{Direction: ClientToServer, Client: CCSDownloadSegment}
}

func (DownloadSegmentResponse) specifier() CommandSpecifier {
	return CommandSpecifier{Direction: ServerToClient, Server: SCSDownloadSegment}
}

func (UploadSegmentRequest) specifier() CommandSpecifier {
	return CommandSpecifier{Direction: ClientToServer, Client: CCSUploadSegment}
}

func (UploadSegmentResponse) specifier() CommandSpecifier {
	return CommandSpecifier{Direction: ServerToClient, Server: SCSUploadSegment}
}

func (AbortTransfer) specifier() CommandSpecifier {
	return CommandSpecifier{Abort: true}
}

// CommandName returns the name of the command variant, for error messages.
func CommandName(cmd Command) string {
	switch cmd.(type) {
	case InitiateDownloadRequest:
		return "InitiateDownloadRequest"
	case InitiateDownloadResponse:
		return "InitiateDownloadResponse"
	case InitiateUploadRequest:
		return "InitiateUploadRequest"
	case InitiateUploadResponse:
		return "InitiateUploadResponse"
	case DownloadSegmentRequest:
		return "DownloadSegmentRequest"
	case DownloadSegmentResponse:
		return "DownloadSegmentResponse"
	case UploadSegmentRequest:
		return "UploadSegmentRequest"
	case UploadSegmentResponse:
		return "UploadSegmentResponse"
	case AbortTransfer:
		return "AbortTransfer"
	case nil:
		return "<nil>"
	}
	return fmt.Sprintf("%T", cmd)
}
