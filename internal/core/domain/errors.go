package domain

import "errors"

var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrPeerNotFound      = errors.New("peer not found")
	ErrProducerNotFound  = errors.New("producer not found")
	ErrConsumerNotFound  = errors.New("consumer not found")
	ErrTransportNotFound = errors.New("transport not found")

	ErrRoomFull   = errors.New("room capacity reached")
	ErrRoomClosed = errors.New("room is closed")

	ErrTransportExists       = errors.New("transport already exists for direction")
	ErrTransportNotReady     = errors.New("transport not connected")
	ErrNegotiationTimeout    = errors.New("transport negotiation timed out")
	ErrIncompatibleMedia     = errors.New("incompatible media capability")
	ErrUnsupportedCapability = errors.New("unsupported routing capability")

	ErrPermissionDenied = errors.New("device permission denied")
	ErrNotHost          = errors.New("operation requires host role")
	ErrPeerNotWaiting   = errors.New("peer is not waiting for admission")
	ErrPeerNotAdmitted  = errors.New("peer is not admitted to the room")
)
