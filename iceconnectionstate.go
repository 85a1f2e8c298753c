// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package webrtc

// ICEConnectionState indicates signaling state of the ICEAgent, mirrored
// up from iceengine.ConnectionState for applications that want the
// legacy aggregate view rather than per-ICETransport state.
type ICEConnectionState int

const (
	// ICEConnectionStateNew indicates that any of the ICETransports are
	// in the "new" state and none of them are in "checking", "disconnected"
	// or "failed", or all ICETransports are in the "closed" state.
	ICEConnectionStateNew ICEConnectionState = iota + 1

	// ICEConnectionStateChecking indicates that any of the ICETransports
	// are in the "checking" state and none of them are in "disconnected"
	// or "failed".
	ICEConnectionStateChecking

	// ICEConnectionStateConnected indicates that all ICETransports are
	// in the "connected", "completed" or "closed" state and at least one
	// of them is in the "connected" state.
	ICEConnectionStateConnected

	// ICEConnectionStateCompleted indicates that all ICETransports are
	// in the "completed" or "closed" state and at least one of them is
	// in the "completed" state.
	ICEConnectionStateCompleted

	// ICEConnectionStateDisconnected indicates that any of the
	// ICETransports are in the "disconnected" state and none of them
	// are in "failed".
	ICEConnectionStateDisconnected

	// ICEConnectionStateFailed indicates that any of the ICETransports
	// are in the "failed" state.
	ICEConnectionStateFailed

	// ICEConnectionStateClosed indicates that the PeerConnection's
	// isClosed is true.
	ICEConnectionStateClosed
)

func (c ICEConnectionState) String() string {
	switch c {
	case ICEConnectionStateNew:
		return "new"
	case ICEConnectionStateChecking:
		return "checking"
	case ICEConnectionStateConnected:
		return "connected"
	case ICEConnectionStateCompleted:
		return "completed"
	case ICEConnectionStateDisconnected:
		return "disconnected"
	case ICEConnectionStateFailed:
		return "failed"
	case ICEConnectionStateClosed:
		return "closed"
	default:
		return ErrUnknownType.Error()
	}
}

// iceConnectionStateFromICETransportState derives the legacy aggregate
// connection state from a single ICETransport's state -- this module
// always runs exactly one ICETransport per PeerConnection (no bundling
// of multiple independent transports), so the aggregate is just a rename.
func iceConnectionStateFromICETransportState(s ICETransportState) ICEConnectionState {
	switch s {
	case ICETransportStateNew:
		return ICEConnectionStateNew
	case ICETransportStateChecking:
		return ICEConnectionStateChecking
	case ICETransportStateConnected:
		return ICEConnectionStateConnected
	case ICETransportStateCompleted:
		return ICEConnectionStateCompleted
	case ICETransportStateDisconnected:
		return ICEConnectionStateDisconnected
	case ICETransportStateFailed:
		return ICEConnectionStateFailed
	case ICETransportStateClosed:
		return ICEConnectionStateClosed
	default:
		return ICEConnectionStateNew
	}
}
