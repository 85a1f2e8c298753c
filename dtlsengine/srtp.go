package dtlsengine

import (
	"crypto/sha1" //nolint:gosec // only used when AllowInsecureSHA1 is explicitly set, per spec.md §6
	"crypto/sha256"
	"crypto/subtle"
	"strings"

	"github.com/pion/transport/v4/replaydetector"
)

// verifyFingerprint implements spec.md §4.3 "Certificate fingerprints
// from the remote SDP must be verified against the peer's actual
// certificate exactly; mismatch -> fail" and §6 "Fingerprint algorithm
// sha-256 is mandatory; sha-1 may be accepted only if
// allow-insecure-verification is set."
func verifyFingerprint(certDER []byte, want map[string]string, allowSHA1 bool) bool {
	if len(certDER) == 0 {
		return false
	}
	if expect, ok := want["sha-256"]; ok {
		sum := sha256.Sum256(certDER)
		return subtle.ConstantTimeCompare([]byte(strings.ToUpper(formatFingerprint(sum[:]))), []byte(strings.ToUpper(expect))) == 1
	}
	if allowSHA1 {
		if expect, ok := want["sha-1"]; ok {
			sum := sha1.Sum(certDER) //nolint:gosec
			return subtle.ConstantTimeCompare([]byte(strings.ToUpper(formatFingerprint(sum[:]))), []byte(strings.ToUpper(expect))) == 1
		}
	}
	return false
}

// splitKeyingMaterial implements RFC 5764 §4.2's key/salt layout:
// client_write_key, server_write_key, client_write_salt,
// server_write_salt, assigning local/remote by DTLS role.
func splitKeyingMaterial(material []byte, role Role, profile SRTPProtectionProfile) *Keys {
	const keyLen, saltLen = 16, 14
	if len(material) < 2*keyLen {
		material = append(material, make([]byte, 2*keyLen-len(material))...)
	}
	clientKey := material[0:keyLen]
	serverKey := material[keyLen : 2*keyLen]
	// The salts follow the two keys in the exported material, client
	// salt first; bytes past the end of a short export stay zero.
	// DTLSTransport.initSRTP builds the SRTP contexts from these.
	salt := make([]byte, 2*saltLen)
	copy(salt, material[2*keyLen:])

	k := &Keys{Profile: profile}
	if role == RoleClient {
		k.LocalMasterKey, k.RemoteMasterKey = clientKey, serverKey
		k.LocalMasterSalt, k.RemoteMasterSalt = salt[:saltLen], salt[saltLen:]
	} else {
		k.LocalMasterKey, k.RemoteMasterKey = serverKey, clientKey
		k.LocalMasterSalt, k.RemoteMasterSalt = salt[saltLen:], salt[:saltLen]
	}
	return k
}

// newReplayDetector constructs a replay window of the configured size,
// wired to github.com/pion/transport/v4/replaydetector -- a pure
// sliding-window algorithm with no I/O, a direct fit for the anti-replay
// requirement in spec.md §3/§4.3.
func newReplayDetector(windowSize uint) replaydetector.ReplayDetector {
	return replaydetector.New(uint64(windowSize), maxSequenceNumber)
}

// maxSequenceNumber bounds SRTP/SRTCP sequence numbers (16-bit) and DTLS
// epoch+sequence (48-bit); callers pick the right detector per stream.
const maxSequenceNumber = (1 << 48) - 1

func (t *Transport) replayDetectorForSRTP(ssrc uint32) replaydetector.ReplayDetector {
	d, ok := t.srtpReplay[ssrc]
	if !ok {
		d = newReplayDetector(t.windows.SRTP)
		t.srtpReplay[ssrc] = d
	}
	return d
}

func (t *Transport) replayDetectorForSRTCP(ssrc uint32) replaydetector.ReplayDetector {
	d, ok := t.srtcpReplay[ssrc]
	if !ok {
		d = newReplayDetector(t.windows.SRTCP)
		t.srtcpReplay[ssrc] = d
	}
	return d
}

// CheckSRTPReplay reports whether seq is a replay on ssrc's inbound SRTP
// stream, marking it seen if not. Used by DTLSTransport.DecryptRTP on
// the cleartext RTP header before the packet is decrypted.
func (t *Transport) CheckSRTPReplay(ssrc uint32, seq uint16) bool {
	accept, ok := t.replayDetectorForSRTP(ssrc).Check(uint64(seq))
	if !ok {
		return false
	}
	accept()
	return true
}

// CheckSRTCPReplay is the SRTCP analogue of CheckSRTPReplay, keyed by
// the 32-bit SRTCP index rather than a 16-bit sequence number.
func (t *Transport) CheckSRTCPReplay(ssrc uint32, index uint32) bool {
	accept, ok := t.replayDetectorForSRTCP(ssrc).Check(uint64(index))
	if !ok {
		return false
	}
	accept()
	return true
}
