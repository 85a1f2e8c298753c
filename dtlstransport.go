package webrtc

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"time"

	"github.com/pion/rtp"
	"github.com/pion/srtp/v3"
	"github.com/sansio/rtc/dtlsengine"
	"github.com/sansio/rtc/enginecontract"
)

func generateDefaultCertificateKey() (crypto.PrivateKey, error) {
	sk, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, wrapOperation(err)
	}
	return sk, nil
}

// DTLSTransport allows an application access to information about the DTLS
// transport over which SRTP/SRTCP keying material and data-channel packets
// flow. It wraps a dtlsengine.Transport rather than owning a net.Conn
// directly: records it produces are routed through the coordinator's
// inbound demultiplex/outbound poll loop instead of a dialed socket.
type DTLSTransport struct {
	engine *dtlsengine.Transport

	iceTransport *ICETransport

	certificates      []Certificate
	remoteCertificate []byte
	state             DTLSTransportState

	// srtpReady is closed the first time Keys() becomes available,
	// letting code waiting on SRTP notice without polling.
	srtpReady     chan struct{}
	srtpReadyOnce bool

	// srtpOut/srtpIn are the SRTP contexts built from the local/remote
	// halves of the exported DTLS-SRTP keying material once the
	// handshake completes (RFC 5764 §4.2); nil until then. They are the
	// only place RTP/RTCP packets are actually encrypted or decrypted --
	// everything else on this transport just queues ciphertext.
	srtpOut *srtp.Context
	srtpIn  *srtp.Context

	onStateChangeHdlr func(DTLSTransportState)

	// rtpOut/rtcpOut are outbound FIFO queues for SRTP/SRTCP ciphertext.
	// Real RTP and RTCP bypass the DTLS record layer entirely (spec.md's
	// transport demultiplexing by first-byte range), so this transport
	// only queues what WriteRTP/WriteRTCP already encrypted.
	rtpOut  [][]byte
	rtcpOut [][]byte
}

// NewDTLSTransport constructs a DTLSTransport with the given local
// certificates, generating a self-signed one if none are supplied.
func NewDTLSTransport(certificates []Certificate) (*DTLSTransport, error) {
	t := &DTLSTransport{state: DTLSTransportStateNew, srtpReady: make(chan struct{})}

	if len(certificates) > 0 {
		now := time.Now()
		for _, cert := range certificates {
			if !cert.Expires().IsZero() && now.After(cert.Expires()) {
				return nil, wrapInvalidAccess(ErrCertificateExpired)
			}
			t.certificates = append(t.certificates, cert)
		}
	} else {
		sk, err := generateDefaultCertificateKey()
		if err != nil {
			return nil, err
		}
		cert, err := GenerateCertificate(sk)
		if err != nil {
			return nil, err
		}
		t.certificates = []Certificate{*cert}
	}

	engineCerts := make([]dtlsengine.Certificate, len(t.certificates))
	for i, c := range t.certificates {
		engineCerts[i] = dtlsengine.Certificate{DER: c.x509Cert.Raw}
	}
	t.engine = dtlsengine.NewTransport(dtlsengine.Config{Certificates: engineCerts})
	return t, nil
}

// onStateChange requires the caller holds no lock; the coordinator drives
// this transport from a single-threaded poll loop.
func (t *DTLSTransport) onStateChange(state DTLSTransportState) {
	t.state = state
	if t.onStateChangeHdlr != nil {
		t.onStateChangeHdlr(state)
	}
}

// OnStateChange sets a handler that is fired when the DTLS connection
// state changes.
func (t *DTLSTransport) OnStateChange(f func(DTLSTransportState)) {
	t.onStateChangeHdlr = f
}

// State returns the current dtls transport state.
func (t *DTLSTransport) State() DTLSTransportState { return t.state }

// ICETransport returns the ICE transport this DTLSTransport is running over.
func (t *DTLSTransport) ICETransport() *ICETransport { return t.iceTransport }

// GetLocalParameters returns the DTLS parameters of the local DTLSTransport.
func (t *DTLSTransport) GetLocalParameters() DTLSParameters {
	var fingerprints []DTLSFingerprint
	for _, c := range t.certificates {
		fingerprints = append(fingerprints, c.GetFingerprints()...)
	}
	return DTLSParameters{Role: DTLSRoleAuto, Fingerprints: fingerprints}
}

// GetRemoteCertificate returns the remote certificate held by this
// transport. The remote certificate is not copied out of the DTLS engine,
// so this returns nil both before and after the handshake completes.
func (t *DTLSTransport) GetRemoteCertificate() []byte { return t.remoteCertificate }

// Start begins DTLS negotiation with the negotiated role and the remote's
// advertised parameters. Unlike the old socket-owning transport this
// returns immediately; progress happens via HandleRead/HandleTimeout and is
// observed through PollEvent.
func (t *DTLSTransport) Start(role DTLSRole, remote DTLSParameters) error {
	fps := make(map[string]string, len(remote.Fingerprints))
	for _, fp := range remote.Fingerprints {
		fps[fp.Algorithm] = fp.Value
	}
	return t.engine.Start(role.toEngine(), dtlsengine.RemoteParameters{
		Fingerprints: fps,
		Role:         remote.Role.toEngine(),
	})
}

// HandleRead feeds one inbound DTLS-range datagram (spec.md §6's 20..=63
// classification) to the handshake/record engine.
func (t *DTLSTransport) HandleRead(tx enginecontract.Transmit) error {
	return t.engine.HandleRead(tx)
}

// PollWrite drains pending outbound handshake records.
func (t *DTLSTransport) PollWrite() (enginecontract.Transmit, bool) {
	return t.engine.PollWrite()
}

// PollEvent drains state-change events, updating local state and firing the
// registered handler, and builds the SRTP contexts the first time the
// engine reports connected.
func (t *DTLSTransport) PollEvent() (dtlsengine.Event, bool) {
	e, ok := t.engine.PollEvent()
	if ok && e.Kind == dtlsengine.EventStateChange {
		t.onStateChange(dtlsStateFromEngine(e.State))
		if e.State == dtlsengine.StateConnected && !t.srtpReadyOnce {
			t.srtpReadyOnce = true
			_ = t.initSRTP()
			close(t.srtpReady)
		}
	}
	return e, ok
}

// initSRTP derives the local (encrypt) and remote (decrypt) SRTP contexts
// from the keying material the DTLS handshake just exported, per RFC
// 5764 §4.2. A failure here leaves srtpOut/srtpIn nil, which WriteRTP/
// WriteRTCP/DecryptRTP/DecryptRTCP surface as ErrSRTPNotReady.
func (t *DTLSTransport) initSRTP() error {
	keys, ok := t.engine.Keys()
	if !ok {
		return ErrSRTPNotReady
	}
	profile := srtpProtectionProfileFromEngine(keys.Profile)

	out, err := srtp.CreateContext(keys.LocalMasterKey, keys.LocalMasterSalt, profile)
	if err != nil {
		return wrapOperation(err)
	}
	in, err := srtp.CreateContext(keys.RemoteMasterKey, keys.RemoteMasterSalt, profile)
	if err != nil {
		return wrapOperation(err)
	}
	t.srtpOut, t.srtpIn = out, in
	return nil
}

func srtpProtectionProfileFromEngine(p dtlsengine.SRTPProtectionProfile) srtp.ProtectionProfile {
	if p == dtlsengine.ProfileAES128GCM {
		return srtp.ProtectionProfileAeadAes128Gcm
	}
	return srtp.ProtectionProfileAes128CmHmacSha1_80
}

// HandleTimeout drives handshake-flight retransmission.
func (t *DTLSTransport) HandleTimeout(now time.Time) { t.engine.HandleTimeout(now) }

// PollTimeout reports when HandleTimeout should next run.
func (t *DTLSTransport) PollTimeout() time.Time { return t.engine.PollTimeout() }

// Keys returns the extracted SRTP/SRTCP keying material once connected.
func (t *DTLSTransport) Keys() (dtlsengine.Keys, bool) { return t.engine.Keys() }

// Stop stops and closes the DTLSTransport object. Idempotent.
func (t *DTLSTransport) Stop() error {
	err := t.engine.Close()
	t.onStateChange(DTLSTransportStateClosed)
	return err
}

// WriteRTP encrypts one outbound RTP packet with the local SRTP context
// and enqueues the ciphertext for the coordinator's next PollWrite sweep.
// RTP/RTCP never pass through the DTLS record layer (spec.md §6's
// demultiplex table), so what flows from here is SRTP ciphertext, not a
// DTLS application-data record.
func (t *DTLSTransport) WriteRTP(header *rtp.Header, payload []byte) (int, error) {
	if t.srtpOut == nil {
		return 0, wrapInvalidState(ErrSRTPNotReady)
	}
	encrypted, err := t.srtpOut.EncryptRTP(nil, header, payload)
	if err != nil {
		return 0, wrapOperation(err)
	}
	t.rtpOut = append(t.rtpOut, encrypted)
	return len(payload), nil
}

// WriteRTCP encrypts one outbound marshaled RTCP compound packet with the
// local SRTP context and enqueues the SRTCP ciphertext.
func (t *DTLSTransport) WriteRTCP(b []byte) (int, error) {
	if t.srtpOut == nil {
		return 0, wrapInvalidState(ErrSRTPNotReady)
	}
	encrypted, err := t.srtpOut.EncryptRTCP(nil, b, nil)
	if err != nil {
		return 0, wrapOperation(err)
	}
	t.rtcpOut = append(t.rtcpOut, encrypted)
	return len(b), nil
}

// DecryptRTP rejects the datagram outright if the engine's anti-replay
// window (spec.md §3/§4.3) has already seen this SSRC/sequence-number
// pair -- RTP sequence numbers are never encrypted, so this check runs
// before the SRTP unprotect call rather than after it -- and otherwise
// decrypts with the remote SRTP context, returning the packet's SSRC
// alongside the decrypted RTP packet so the coordinator can route it to
// the right RTPReceiver.
func (t *DTLSTransport) DecryptRTP(b []byte) (uint32, []byte, error) {
	if t.srtpIn == nil {
		return 0, nil, wrapInvalidState(ErrSRTPNotReady)
	}
	var hdr rtp.Header
	if _, err := hdr.Unmarshal(b); err != nil {
		return 0, nil, wrapOperation(err)
	}
	if !t.engine.CheckSRTPReplay(hdr.SSRC, hdr.SequenceNumber) {
		return 0, nil, wrapOperation(ErrSRTPReplayed)
	}
	decrypted, err := t.srtpIn.DecryptRTP(nil, b, &hdr)
	if err != nil {
		return 0, nil, wrapOperation(err)
	}
	return hdr.SSRC, decrypted, nil
}

// DecryptRTCP decrypts one inbound SRTCP datagram with the remote SRTP
// context. Unlike RTP, the SRTCP anti-replay index lives in an
// authenticated trailer whose offset depends on the negotiated profile's
// tag length, so duplicating dtlsengine's replay window here would mean
// hand-parsing a field the library already validates; pion/srtp/v3's
// Context rejects replayed SRTCP indices internally as part of this
// call, so CheckSRTCPReplay is reserved for a transport that needs to
// pre-filter before the unprotect call the way DecryptRTP does for RTP.
func (t *DTLSTransport) DecryptRTCP(b []byte) ([]byte, error) {
	if t.srtpIn == nil {
		return nil, wrapInvalidState(ErrSRTPNotReady)
	}
	decrypted, err := t.srtpIn.DecryptRTCP(nil, b, nil)
	if err != nil {
		return nil, wrapOperation(err)
	}
	return decrypted, nil
}

// PollRTP drains one queued outbound RTP datagram, if any.
func (t *DTLSTransport) PollRTP() ([]byte, bool) {
	if len(t.rtpOut) == 0 {
		return nil, false
	}
	b := t.rtpOut[0]
	t.rtpOut = t.rtpOut[1:]
	return b, true
}

// PollRTCP drains one queued outbound RTCP datagram, if any.
func (t *DTLSTransport) PollRTCP() ([]byte, bool) {
	if len(t.rtcpOut) == 0 {
		return nil, false
	}
	b := t.rtcpOut[0]
	t.rtcpOut = t.rtcpOut[1:]
	return b, true
}

func dtlsStateFromEngine(s dtlsengine.State) DTLSTransportState {
	switch s {
	case dtlsengine.StateNew:
		return DTLSTransportStateNew
	case dtlsengine.StateConnecting:
		return DTLSTransportStateConnecting
	case dtlsengine.StateConnected:
		return DTLSTransportStateConnected
	case dtlsengine.StateFailed:
		return DTLSTransportStateFailed
	case dtlsengine.StateClosed:
		return DTLSTransportStateClosed
	default:
		return DTLSTransportStateNew
	}
}

func (r DTLSRole) toEngine() dtlsengine.Role {
	switch r {
	case DTLSRoleClient:
		return dtlsengine.RoleClient
	case DTLSRoleServer:
		return dtlsengine.RoleServer
	default:
		return dtlsengine.RoleAuto
	}
}
