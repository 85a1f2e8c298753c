// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package webrtc

// PeerConnectionState indicates the state of the PeerConnection, derived
// purely from (ICE state, DTLS state, close flag) per the W3C aggregate
// connection state algorithm -- this module never reads a clock or a
// socket to compute it.
type PeerConnectionState int

const (
	// PeerConnectionStateNew indicates that any of the ICETransports or
	// DTLSTransports are in the "new" state and none of them are in
	// "connecting", "checking", "failed", or "disconnected", or there
	// are no transports at all.
	PeerConnectionStateNew PeerConnectionState = iota + 1

	// PeerConnectionStateConnecting indicates that any of the
	// ICETransports or DTLSTransports are in the "connecting" or
	// "checking" state and none of them is in "failed".
	PeerConnectionStateConnecting

	// PeerConnectionStateConnected indicates that all ICETransports and
	// DTLSTransports are in "connected", "completed" or "closed" state
	// and at least one is in "connected" or "completed" state.
	PeerConnectionStateConnected

	// PeerConnectionStateDisconnected indicates that any of the
	// ICETransports or DTLSTransports are in "disconnected" state and
	// none of them are in "failed" or "connecting"/"checking".
	PeerConnectionStateDisconnected

	// PeerConnectionStateFailed indicates that any of the ICETransports
	// or DTLSTransports are in a "failed" state.
	PeerConnectionStateFailed

	// PeerConnectionStateClosed indicates the PeerConnection has been
	// closed via Close.
	PeerConnectionStateClosed
)

func (s PeerConnectionState) String() string {
	switch s {
	case PeerConnectionStateNew:
		return "new"
	case PeerConnectionStateConnecting:
		return "connecting"
	case PeerConnectionStateConnected:
		return "connected"
	case PeerConnectionStateDisconnected:
		return "disconnected"
	case PeerConnectionStateFailed:
		return "failed"
	case PeerConnectionStateClosed:
		return "closed"
	default:
		return ErrUnknownType.Error()
	}
}

// newPeerConnectionState computes the aggregate connection state as a pure
// function of the ICE transport state, the DTLS transport state, and
// whether Close has been called; no wall-clock or socket read is involved.
func newPeerConnectionState(ice ICETransportState, dtls DTLSTransportState, closed bool) PeerConnectionState {
	if closed {
		return PeerConnectionStateClosed
	}
	if ice == ICETransportStateFailed || dtls == DTLSTransportStateFailed {
		return PeerConnectionStateFailed
	}
	if ice == ICETransportStateDisconnected {
		return PeerConnectionStateDisconnected
	}
	if (ice == ICETransportStateConnected || ice == ICETransportStateCompleted) && dtls == DTLSTransportStateConnected {
		return PeerConnectionStateConnected
	}
	if ice == ICETransportStateChecking || ice == ICETransportStateConnected || ice == ICETransportStateCompleted ||
		dtls == DTLSTransportStateConnecting {
		return PeerConnectionStateConnecting
	}
	return PeerConnectionStateNew
}
