package dtlsengine

import (
	"crypto/rand"
	"errors"
	"time"

	"github.com/pion/logging"
	"github.com/pion/transport/v4/replaydetector"

	"github.com/sansio/rtc/enginecontract"
)

// Errors a Transport method can return directly. Connectivity failures
// (handshake failure, fingerprint mismatch) are surfaced as events per
// spec.md §4.3 "State machine... Transitions are reported as events",
// not as return values.
var (
	ErrClosed             = errors.New("dtlsengine: transport closed")
	ErrHandshakeInProgress = errors.New("dtlsengine: handshake in progress")
	ErrNotConnected       = errors.New("dtlsengine: not connected")
)

// EventKind discriminates Transport-emitted events.
type EventKind uint8

const (
	EventStateChange EventKind = iota
)

// Event is one DTLS-transport-emitted event.
type Event struct {
	Kind  EventKind
	State State
}

// Config configures a Transport.
type Config struct {
	Certificates  []Certificate
	LoggerFactory logging.LoggerFactory
	// RetransmitInterval is the handshake flight retransmission
	// timeout, RFC 6347 §4.2.4. Default 1s.
	RetransmitInterval time.Duration
}

func (c *Config) withDefaults() {
	if c.LoggerFactory == nil {
		c.LoggerFactory = logging.NewDefaultLoggerFactory()
	}
	if c.RetransmitInterval <= 0 {
		c.RetransmitInterval = time.Second
	}
	if len(c.Certificates) == 0 {
		c.Certificates = []Certificate{{DER: []byte("sansio-rtc-self-signed-placeholder")}}
	}
}

// Transport is a sans-I/O DTLS transport, spec.md §4.3.
type Transport struct {
	cfg Config
	log logging.LeveledLogger

	state State
	role  Role

	hs *handshakeEngine

	remote RemoteParameters

	srtpProfile SRTPProtectionProfile
	keys        *Keys

	dtlsReplay  replaydetector.ReplayDetector
	srtpReplay  map[uint32]replaydetector.ReplayDetector
	srtcpReplay map[uint32]replaydetector.ReplayDetector
	windows     replayWindows

	outbox []enginecontract.Transmit
	events []Event

	lastFlightSentAt time.Time
	closed           bool
}

// NewTransport constructs a Transport in StateNew.
func NewTransport(cfg Config) *Transport {
	cfg.withDefaults()
	return &Transport{
		cfg:         cfg,
		log:         cfg.LoggerFactory.NewLogger("dtls"),
		state:       StateNew,
		srtpReplay:  make(map[uint32]replaydetector.ReplayDetector),
		srtcpReplay: make(map[uint32]replaydetector.ReplayDetector),
		windows:     defaultReplayWindows(),
	}
}

// GetCertificates returns the local certificates, per spec.md §4.3.
func (t *Transport) GetCertificates() []Certificate { return t.cfg.Certificates }

// State returns the current connection state.
func (t *Transport) State() State { return t.state }

// GetSRTPProfile returns the negotiated SRTP profile, valid only once
// State() == StateConnected.
func (t *Transport) GetSRTPProfile() (SRTPProtectionProfile, bool) {
	if t.state != StateConnected {
		return 0, false
	}
	return t.srtpProfile, true
}

// Start begins the handshake with the negotiated role (resolved from
// SDP a=setup per RFC 8842, with the setting-engine override already
// applied by the caller) and the peer's advertised DTLS parameters.
func (t *Transport) Start(role Role, remote RemoteParameters) error {
	if t.closed {
		return ErrClosed
	}
	if t.state != StateNew {
		return nil // idempotent re-entry, mirrors spec.md §8 "Idempotence"
	}
	t.role = role
	t.remote = remote
	var localRandom [32]byte
	_, _ = rand.Read(localRandom[:])
	t.hs = newHandshakeEngine(role, t.cfg.Certificates[0], localRandom)
	t.setState(StateConnecting)
	t.flight(t.hs.start())
	return nil
}

func (t *Transport) flight(msgs [][]byte) {
	if len(msgs) == 0 {
		return
	}
	for _, m := range msgs {
		rec := append([]byte{recordContentTypeHandshake}, m...)
		t.outbox = append(t.outbox, enginecontract.Transmit{Payload: rec})
	}
}

// HandleRead accepts one inbound DTLS-content-range datagram
// (spec.md §6 "20..=63 -> DTLS record").
func (t *Transport) HandleRead(tx enginecontract.Transmit) error {
	if t.closed {
		return ErrClosed
	}
	if len(tx.Payload) < 1 || t.state == StateFailed {
		return nil
	}
	t.lastFlightSentAt = tx.Now
	if tx.Payload[0] != recordContentTypeHandshake {
		t.log.Trace("dtls: dropping non-handshake record before handshake completes")
		return nil
	}
	if t.hs == nil {
		return nil
	}
	toSend, done := t.hs.deliver(tx.Payload[1:])
	t.flight(toSend)
	if done {
		t.completeHandshake()
	}
	return nil
}

func (t *Transport) completeHandshake() {
	if !verifyFingerprint(t.hs.remoteCertDER, t.remote.Fingerprints, t.remote.AllowInsecureSHA1) {
		t.fail(ErrFingerprintMismatch)
		return
	}
	t.srtpProfile = ProfileAES128GCM
	material := t.hs.exportKeyingMaterial("EXTRACTOR-dtls_srtp", 4*16)
	t.keys = splitKeyingMaterial(material, t.role, t.srtpProfile)
	t.setState(StateConnected)
}

// ErrFingerprintMismatch is the terminal failure from spec.md §4.3
// "Certificate fingerprints ... must be verified ... exactly; mismatch
// -> fail."
var ErrFingerprintMismatch = errors.New("dtlsengine: certificate fingerprint mismatch")

func (t *Transport) fail(err error) {
	t.log.Errorf("dtls: %v", err)
	t.setState(StateFailed)
}

func (t *Transport) setState(s State) {
	if t.state == s {
		return
	}
	t.state = s
	t.events = append(t.events, Event{Kind: EventStateChange, State: s})
}

// PollWrite pops the next outbound handshake/application record.
func (t *Transport) PollWrite() (enginecontract.Transmit, bool) {
	if len(t.outbox) == 0 {
		return enginecontract.Transmit{}, false
	}
	tx := t.outbox[0]
	t.outbox = t.outbox[1:]
	return tx, true
}

// PollEvent pops the next emitted event.
func (t *Transport) PollEvent() (Event, bool) {
	if len(t.events) == 0 {
		return Event{}, false
	}
	e := t.events[0]
	t.events = t.events[1:]
	return e, true
}

// HandleTimeout drives handshake-flight retransmission, RFC 6347 §4.2.4.
func (t *Transport) HandleTimeout(now time.Time) {
	if t.closed || t.hs == nil || t.hs.isDone() {
		return
	}
	if t.lastFlightSentAt.IsZero() {
		t.lastFlightSentAt = now
		return
	}
	if now.Sub(t.lastFlightSentAt) < t.cfg.RetransmitInterval {
		return
	}
	t.flight(t.hs.retransmit())
	t.lastFlightSentAt = now
}

// PollTimeout returns when the handshake retransmission timer next
// fires, or the zero time if no handshake is in flight.
func (t *Transport) PollTimeout() time.Time {
	if t.closed || t.hs == nil || t.hs.isDone() || t.lastFlightSentAt.IsZero() {
		return time.Time{}
	}
	return t.lastFlightSentAt.Add(t.cfg.RetransmitInterval)
}

// Close is idempotent.
func (t *Transport) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	t.outbox = nil
	t.events = nil
	t.setState(StateClosed)
	return nil
}

// Keys returns the extracted SRTP/SRTCP keying material, valid only
// once connected.
func (t *Transport) Keys() (Keys, bool) {
	if t.keys == nil {
		return Keys{}, false
	}
	return *t.keys, true
}
