package webrtc

import (
	"fmt"

	"github.com/sansio/rtc/pkg/rtcerr"
)

type stateChangeOp int

const (
	stateChangeOpSetLocal stateChangeOp = iota + 1
	stateChangeOpSetRemote
)

func (op stateChangeOp) String() string {
	switch op {
	case stateChangeOpSetLocal:
		return "SetLocal"
	case stateChangeOpSetRemote:
		return "SetRemote"
	default:
		return "unknown state change operation"
	}
}

// SignalingState indicates the signaling state of the offer/answer process,
// per the transition table in the JSEP coordinator design.
type SignalingState int

const (
	// SignalingStateStable is the initial state and the state reached
	// after every successful offer/answer exchange completes.
	SignalingStateStable SignalingState = iota + 1
	// SignalingStateHaveLocalOffer indicates a local offer is pending.
	SignalingStateHaveLocalOffer
	// SignalingStateHaveRemoteOffer indicates a remote offer is pending.
	SignalingStateHaveRemoteOffer
	// SignalingStateHaveLocalPranswer indicates a remote offer has been
	// answered locally with a provisional answer.
	SignalingStateHaveLocalPranswer
	// SignalingStateHaveRemotePranswer indicates a local offer has been
	// answered remotely with a provisional answer.
	SignalingStateHaveRemotePranswer
	// SignalingStateClosed indicates the coordinator has been closed.
	SignalingStateClosed
)

const (
	signalingStateStableStr             = "stable"
	signalingStateHaveLocalOfferStr     = "have-local-offer"
	signalingStateHaveRemoteOfferStr    = "have-remote-offer"
	signalingStateHaveLocalPranswerStr  = "have-local-pranswer"
	signalingStateHaveRemotePranswerStr = "have-remote-pranswer"
	signalingStateClosedStr             = "closed"
)

func newSignalingState(raw string) SignalingState {
	switch raw {
	case signalingStateStableStr:
		return SignalingStateStable
	case signalingStateHaveLocalOfferStr:
		return SignalingStateHaveLocalOffer
	case signalingStateHaveRemoteOfferStr:
		return SignalingStateHaveRemoteOffer
	case signalingStateHaveLocalPranswerStr:
		return SignalingStateHaveLocalPranswer
	case signalingStateHaveRemotePranswerStr:
		return SignalingStateHaveRemotePranswer
	case signalingStateClosedStr:
		return SignalingStateClosed
	default:
		return SignalingState(0)
	}
}

func (t SignalingState) String() string {
	switch t {
	case SignalingStateStable:
		return signalingStateStableStr
	case SignalingStateHaveLocalOffer:
		return signalingStateHaveLocalOfferStr
	case SignalingStateHaveRemoteOffer:
		return signalingStateHaveRemoteOfferStr
	case SignalingStateHaveLocalPranswer:
		return signalingStateHaveLocalPranswerStr
	case SignalingStateHaveRemotePranswer:
		return signalingStateHaveRemotePranswerStr
	case SignalingStateClosed:
		return signalingStateClosedStr
	default:
		return "unknown"
	}
}

// checkNextSignalingState validates one edge of the transition table. Any
// state rolls back to stable; everything else must match the table exactly
// or the proposed transition is rejected.
func checkNextSignalingState(cur, next SignalingState, op stateChangeOp, sdpType SDPType) (SignalingState, error) {
	if sdpType == SDPTypeRollback {
		if cur == SignalingStateStable {
			return cur, &rtcerr.InvalidModificationError{Err: fmt.Errorf("%w: cannot rollback from stable", ErrSignalingStateChangeInvalid)}
		}
		return SignalingStateStable, nil
	}

	switch cur {
	case SignalingStateStable:
		switch {
		case op == stateChangeOpSetLocal && sdpType == SDPTypeOffer && next == SignalingStateHaveLocalOffer:
			return next, nil
		case op == stateChangeOpSetRemote && sdpType == SDPTypeOffer && next == SignalingStateHaveRemoteOffer:
			return next, nil
		}
	case SignalingStateHaveLocalOffer:
		switch {
		// a repeated setLocal(offer) is an in-place update, spec.md §4.5.1.
		case op == stateChangeOpSetLocal && sdpType == SDPTypeOffer && next == SignalingStateHaveLocalOffer:
			return next, nil
		case op == stateChangeOpSetRemote && sdpType == SDPTypeAnswer && next == SignalingStateStable:
			return next, nil
		case op == stateChangeOpSetRemote && sdpType == SDPTypePranswer && next == SignalingStateHaveRemotePranswer:
			return next, nil
		}
	case SignalingStateHaveRemotePranswer:
		if op == stateChangeOpSetRemote && sdpType == SDPTypeAnswer && next == SignalingStateStable {
			return next, nil
		}
		if op == stateChangeOpSetRemote && sdpType == SDPTypePranswer && next == SignalingStateHaveRemotePranswer {
			return next, nil
		}
	case SignalingStateHaveRemoteOffer:
		switch {
		case op == stateChangeOpSetRemote && sdpType == SDPTypeOffer && next == SignalingStateHaveRemoteOffer:
			return next, nil
		case op == stateChangeOpSetLocal && sdpType == SDPTypeAnswer && next == SignalingStateStable:
			return next, nil
		case op == stateChangeOpSetLocal && sdpType == SDPTypePranswer && next == SignalingStateHaveLocalPranswer:
			return next, nil
		}
	case SignalingStateHaveLocalPranswer:
		if op == stateChangeOpSetLocal && sdpType == SDPTypeAnswer && next == SignalingStateStable {
			return next, nil
		}
		if op == stateChangeOpSetLocal && sdpType == SDPTypePranswer && next == SignalingStateHaveLocalPranswer {
			return next, nil
		}
	}

	return cur, &rtcerr.InvalidModificationError{
		Err: fmt.Errorf("%w: %s->%s(%s)->%s", ErrSignalingStateChangeInvalid, cur, op, sdpType, next),
	}
}
