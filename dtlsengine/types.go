// Package dtlsengine implements the DTLS transport glue described in
// spec.md §4.3: role negotiation over ICE, certificate fingerprint
// verification, SRTP keying-material export, and anti-replay windows,
// as a sans-I/O engine. The DTLS 1.2 record/handshake cryptography
// itself is treated as a supplied primitive per spec.md §4.3 ("The DTLS
// protocol implementation itself is treated as a supplied primitive");
// this package implements the WebRTC-specific glue around the simplified
// handshakeEngine in handshake.go rather than reimplementing RFC 6347
// wire crypto, matching the spec's own framing of what is in scope.
package dtlsengine

import (
	"crypto/sha256"
	"fmt"
)

// State is the DTLS transport's connection state, per spec.md §3/§4.3.
type State uint8

const (
	StateNew State = iota
	StateConnecting
	StateConnected
	StateFailed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Role is the negotiated DTLS handshake role, per RFC 8842 ("a=setup").
type Role uint8

const (
	RoleAuto Role = iota
	RoleClient
	RoleServer
)

func (r Role) String() string {
	switch r {
	case RoleClient:
		return "client"
	case RoleServer:
		return "server"
	default:
		return "auto"
	}
}

// Certificate is a local certificate and its SHA-256 fingerprint, per
// spec.md §3 "DTLS transport".
type Certificate struct {
	// DER is the DER-encoded certificate. In production this would come
	// from crypto/x509 + crypto/ecdsa, generated once per PeerConnection
	// per W3C RTCCertificate semantics; this module accepts it as an
	// opaque byte string since certificate *generation* is outside the
	// sans-I/O core's responsibility.
	DER []byte
}

// Fingerprint computes the mandatory sha-256 fingerprint, colon-hex
// formatted as SDP a=fingerprint requires.
func (c Certificate) Fingerprint() string {
	sum := sha256.Sum256(c.DER)
	return formatFingerprint(sum[:])
}

func formatFingerprint(sum []byte) string {
	s := ""
	for i, b := range sum {
		if i > 0 {
			s += ":"
		}
		s += fmt.Sprintf("%02X", b)
	}
	return s
}

// RemoteParameters is what the offer/answer exchange supplies about the
// peer's DTLS transport before Start is called.
type RemoteParameters struct {
	Fingerprints     map[string]string // algorithm -> hex fingerprint, e.g. "sha-256"
	Role             Role
	AllowInsecureSHA1 bool
}

// SRTPProtectionProfile mirrors the IANA SRTP protection profile
// identifiers negotiated during the DTLS handshake (RFC 5764 §4.1.2).
type SRTPProtectionProfile uint16

const (
	ProfileAES128CMSHA1_80 SRTPProtectionProfile = 0x0001
	ProfileAES128GCM       SRTPProtectionProfile = 0x0007
)

// Keys is the SRTP/SRTCP keying material extracted via
// export_keying_material(label="EXTRACTOR-dtls_srtp"), split into the
// four components a master key/salt pair produces for each direction.
type Keys struct {
	LocalMasterKey, LocalMasterSalt   []byte
	RemoteMasterKey, RemoteMasterSalt []byte
	Profile                           SRTPProtectionProfile
}

// replayWindows configures the anti-replay window sizes for DTLS,
// SRTP and SRTCP, per spec.md §3 "anti-replay window sizes".
type replayWindows struct {
	DTLS, SRTP, SRTCP uint
}

func defaultReplayWindows() replayWindows {
	return replayWindows{DTLS: 64, SRTP: 64, SRTCP: 64}
}
