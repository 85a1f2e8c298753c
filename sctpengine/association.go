package sctpengine

import (
	"time"

	"github.com/pion/logging"
	"github.com/pion/randutil"

	"github.com/sansio/rtc/enginecontract"
)

// EventKind discriminates Association-emitted events, spec.md §4.4
// "events for inbound messages and stream state changes".
type EventKind uint8

const (
	EventAssociationEstablished EventKind = iota
	EventAssociationAborted
	EventStreamOpen
	EventStreamMessage
	EventStreamClosed
)

// Event is one association-emitted event.
type Event struct {
	Kind      EventKind
	StreamID  uint16
	Label     string
	Protocol  string
	Reliability Reliability
	Data      []byte
	IsString  bool
}

type outstandingData struct {
	tsn      uint32
	streamID uint16
	payload  []byte
	ppid     uint32
	sentAt   time.Time
	attempts int
	rel      Reliability
	sentAtFirst time.Time
}

// Association is a sans-I/O SCTP association plus the WebRTC
// data-channel protocol on top, spec.md §4.4.
type Association struct {
	cfg  Config
	log  logging.LeveledLogger
	role Role

	state State

	myTag, peerTag     uint32
	myInitialTSN       uint32
	nextTSN            uint32
	cumulativeAckedTSN uint32

	streams map[uint16]*Stream
	nextStreamID uint16

	outstanding []outstandingData
	lastSACKAt  time.Time
	sackDue     bool

	outbox []enginecontract.Transmit
	events []Event

	closed bool
}

// NewAssociation constructs an Association in StateConnecting.
func NewAssociation(cfg Config, role Role, loggerFactory logging.LoggerFactory) *Association {
	cfg.withDefaults()
	if loggerFactory == nil {
		loggerFactory = logging.NewDefaultLoggerFactory()
	}
	rng := randutil.NewMathRandomGenerator()
	a := &Association{
		cfg:     cfg,
		log:     loggerFactory.NewLogger("sctp"),
		role:    role,
		state:   StateConnecting,
		myTag:   rng.Uint32(),
		myInitialTSN: rng.Uint32(),
		streams: make(map[uint16]*Stream),
	}
	a.nextTSN = a.myInitialTSN
	if role == RoleClient {
		a.nextStreamID = 0
	} else {
		a.nextStreamID = 1
	}
	return a
}

// StartHandshake emits the initial INIT chunk (client side) or waits for
// one (server side), per RFC 4960 §5.1.
func (a *Association) StartHandshake() {
	if a.role != RoleClient {
		return
	}
	a.pushWrite(encodePacket(chunk{Type: chunkInit, Value: encodeInitValue(a.myTag, a.myInitialTSN)}))
}

// OpenStream allocates a new stream id (parity per spec.md §4.4: client
// even, server odd) and sends a DCEP OPEN, returning the new Stream.
func (a *Association) OpenStream(label, protocol string, reliability Reliability) (*Stream, error) {
	if a.closed {
		return nil, ErrConnectionClosed
	}
	if err := reliability.validate(); err != nil {
		return nil, err
	}
	id, err := a.allocStreamID()
	if err != nil {
		return nil, err
	}
	s := &Stream{ID: id, Label: label, Protocol: protocol, Reliability: reliability, State: StreamConnecting}
	a.streams[id] = s
	a.sendData(id, ppidDCEP, encodeDCEPOpen(label, protocol, reliability, 0), Reliability{Ordered: true})
	return s, nil
}

func (a *Association) allocStreamID() (uint16, error) {
	step := uint16(2)
	for i := uint16(0); i < step*uint16(a.cfg.MaxChannels); i += step {
		id := a.nextStreamID
		a.nextStreamID += step
		if int(id) >= a.cfg.MaxChannels {
			return 0, ErrMaxDataChannelID
		}
		if _, used := a.streams[id]; !used {
			return id, nil
		}
	}
	return 0, ErrMaxDataChannelID
}

// SendUserData sends one message on an open stream, spec.md §4.4
// "send_user_data". The PPID is chosen from isString and whether payload
// is empty.
func (a *Association) SendUserData(streamID uint16, payload []byte, isString bool) error {
	if a.closed {
		return ErrConnectionClosed
	}
	if len(payload) > a.cfg.MaxMessageSize {
		return ErrOutboundPacketTooLarge
	}
	s, ok := a.streams[streamID]
	if !ok || s.State != StreamOpen {
		return ErrStreamNotOpen
	}
	ppid := uint32(ppidBinary)
	if isString {
		ppid = ppidString
	}
	if len(payload) == 0 {
		if isString {
			ppid = ppidStringEmpty
		} else {
			ppid = ppidBinaryEmpty
		}
	}
	a.sendData(streamID, ppid, payload, s.Reliability)
	s.MessagesSent++
	s.BytesSent += uint64(len(payload))
	return nil
}

// CloseStream marks a stream closing locally; spec.md §4.4 "an
// individual stream closure is local."
func (a *Association) CloseStream(streamID uint16) error {
	s, ok := a.streams[streamID]
	if !ok {
		return ErrStreamNotOpen
	}
	s.State = StreamClosed
	a.pushEvent(Event{Kind: EventStreamClosed, StreamID: streamID})
	return nil
}

func (a *Association) sendData(streamID uint16, ppid uint32, payload []byte, rel Reliability) {
	s := a.streams[streamID]
	tsn := a.nextTSN
	a.nextTSN++
	seq := uint16(0)
	if s != nil {
		if rel.Ordered {
			seq = uint16(s.outSeq)
			s.outSeq++
		}
	}
	value := encodeDataValue(dataChunkValue{TSN: tsn, StreamID: streamID, StreamSeq: seq, PPID: ppid, Payload: payload})
	a.pushWrite(encodePacket(chunk{Type: chunkData, Value: value}))
	a.outstanding = append(a.outstanding, outstandingData{
		tsn: tsn, streamID: streamID, payload: payload, ppid: ppid, rel: rel,
	})
}

func (a *Association) pushWrite(payload []byte) {
	if a.closed {
		return
	}
	a.outbox = append(a.outbox, enginecontract.Transmit{Payload: payload})
}

func (a *Association) pushEvent(e Event) {
	if a.closed {
		return
	}
	a.events = append(a.events, e)
}

// PollWrite pops the next outbound SCTP packet.
func (a *Association) PollWrite() (enginecontract.Transmit, bool) {
	if len(a.outbox) == 0 {
		return enginecontract.Transmit{}, false
	}
	tx := a.outbox[0]
	a.outbox = a.outbox[1:]
	return tx, true
}

// PollEvent pops the next emitted event.
func (a *Association) PollEvent() (Event, bool) {
	if len(a.events) == 0 {
		return Event{}, false
	}
	e := a.events[0]
	a.events = a.events[1:]
	return e, true
}

// State returns the association's current lifecycle state.
func (a *Association) State() State { return a.state }

// Close is idempotent.
func (a *Association) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	a.outbox = nil
	a.events = nil
	a.state = StateClosed
	return nil
}
