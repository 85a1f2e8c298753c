package webrtc

// RTCPMuxPolicy affects whether the PeerConnection negotiates to use RTCP
// multiplexing for RTP and RTCP on a single transport.
type RTCPMuxPolicy int

const (
	// RTCPMuxPolicyNegotiate indicates to gather ICE candidates for both
	// RTP and RTCP candidates. If the remote endpoint is capable of
	// multiplexing RTCP, multiplex RTCP onto the RTP candidates. If it is
	// not, use both the RTP and RTCP candidates separately.
	RTCPMuxPolicyNegotiate RTCPMuxPolicy = iota + 1

	// RTCPMuxPolicyRequire indicates to gather ICE candidates only for
	// RTP and multiplex RTCP on the RTP candidates. If the remote endpoint
	// is not capable of rtcp-mux, session negotiation fails.
	RTCPMuxPolicyRequire
)

const (
	rtcpMuxPolicyNegotiateStr = "negotiate"
	rtcpMuxPolicyRequireStr   = "require"
)

// newRTCPMuxPolicy takes a string and converts it to RTCPMuxPolicy.
func newRTCPMuxPolicy(raw string) RTCPMuxPolicy {
	switch raw {
	case rtcpMuxPolicyNegotiateStr:
		return RTCPMuxPolicyNegotiate
	case rtcpMuxPolicyRequireStr:
		return RTCPMuxPolicyRequire
	default:
		return RTCPMuxPolicy(Unknown)
	}
}

func (p RTCPMuxPolicy) String() string {
	switch p {
	case RTCPMuxPolicyNegotiate:
		return rtcpMuxPolicyNegotiateStr
	case RTCPMuxPolicyRequire:
		return rtcpMuxPolicyRequireStr
	default:
		return unknownStr
	}
}
