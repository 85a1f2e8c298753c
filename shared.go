package webrtc

import "fmt"

// Unknown is the shared zero-value used by every enum in this package
// to represent "not yet set" or "failed to parse", mirroring each
// enum's own Unknown variant where one exists.
const Unknown = 0

const unknownStr = "unknown"

// PayloadType identifies the format of the RTP payload, RFC 3551.
type PayloadType uint8

// SSRC represents a synchronization source, RFC 3550 §3.
type SSRC uint32

// ICEParameters includes the ICE username fragment and password
// exchanged via the offer/answer, used to start an ICETransport.
type ICEParameters struct {
	UsernameFragment string `json:"usernameFragment"`
	Password         string `json:"password"`
	ICELite          bool   `json:"iceLite"`
}

// RTCPFeedback signals the connection to use a specific RTCP feedback
// mechanism, https://draft.ortc.org/#dom-rtcrtcpfeedback.
type RTCPFeedback struct {
	// Type is the type of feedback.
	// see: https://draft.ortc.org/#dom-rtcrtcpfeedback
	// valid: ack, ccm, nack, goog-remb, transport-cc
	Type string

	// Parameter is to be used when a specific type of feedback is requested,
	// e.g. Picture Loss Indication.
	Parameter string
}

// RTCPParameters advanced RTCP configuration for a sender or receiver,
// https://draft.ortc.org/#dom-rtcrtcpparameters.
type RTCPParameters struct {
	CNAME       string
	ReducedSize bool
}

func formatSSRC(s SSRC) string { return fmt.Sprintf("%d", uint32(s)) }

