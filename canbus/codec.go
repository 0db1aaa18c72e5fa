package canbus

import (
	"github.com/FabianPetersen/canopen/v2"
	"github.com/FabianPetersen/canopen/v2/sdo"
)

// Decode classifies a raw frame by its COB-ID and decodes the payload.
// Communication objects without a codec yield canopen.ErrNotImplemented.
func Decode(frm canopen.Frame) (canopen.Message, error) {
	if frm.Extended {
		return nil, canopen.ErrCanFdNotSupported
	}
	if frm.Rtr || frm.Error {
		return nil, canopen.ErrNotImplemented
	}

	cob, err := frm.CommunicationObject()
	if err != nil {
		return nil, err
	}

	switch cob.Kind {
	case canopen.NMTNodeControl:
		return message(canopen.DecodeNMTNodeControlFrame(frm.Data))
	case canopen.Sync:
		return message(canopen.DecodeSyncFrame(frm.Data))
	case canopen.Emergency:
		return message(canopen.DecodeEmergencyFrame(cob.Node, frm.Data))
	case canopen.NMTNodeMonitoring:
		return message(canopen.DecodeNMTNodeMonitoringFrame(cob.Node, frm.Data))
	case canopen.TxSDO:
		return message(sdo.Decode(sdo.ServerToClient, cob.Node, frm.Data))
	case canopen.RxSDO:
		return message(sdo.Decode(sdo.ClientToServer, cob.Node, frm.Data))
	}

	return nil, canopen.ErrNotImplemented
}

func message[M canopen.Message](msg M, err error) (canopen.Message, error) {
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// Encode returns the raw frame carrying msg. Messages that can be malformed
// by construction are validated first.
func Encode(msg canopen.Message) (canopen.Frame, error) {
	if v, ok := msg.(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			return canopen.Frame{}, err
		}
	}
	return canopen.NewMessageFrame(msg), nil
}
