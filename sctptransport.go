package webrtc

import (
	"math"
	"time"

	"github.com/sansio/rtc/enginecontract"
	"github.com/sansio/rtc/sctpengine"
)

const sctpMaxChannels = uint16(65535)

// SCTPTransport provides details about the SCTP transport. It wraps a
// sctpengine.Association rather than dialing a net.Conn directly: the
// association's packets are routed through the coordinator's DTLS
// demultiplex/poll loop instead of a real socket.
type SCTPTransport struct {
	engine *sctpengine.Association

	dtlsTransport *DTLSTransport

	state SCTPTransportState

	// MaxMessageSize represents the maximum size of data that can be passed to
	// DataChannel's send() method.
	MaxMessageSize float64

	// MaxChannels represents the maximum amount of DataChannel's that can
	// be used simultaneously.
	MaxChannels *uint16

	onDataChannelHandler func(*DataChannel)
	onStateChangeHdlr    func(SCTPTransportState)

	dataChannels map[uint16]*DataChannel

	api *API
}

// NewSCTPTransport creates a new SCTPTransport.
// This constructor is part of the ORTC API. It is not
// meant to be used together with the basic WebRTC API.
func (api *API) NewSCTPTransport(dtls *DTLSTransport) *SCTPTransport {
	res := &SCTPTransport{
		dtlsTransport: dtls,
		state:         SCTPTransportStateConnecting,
		api:           api,
		dataChannels:  make(map[uint16]*DataChannel),
	}

	res.updateMessageSize()
	res.updateMaxChannels()

	return res
}

// Transport returns the DTLSTransport instance the SCTPTransport is sending over.
func (r *SCTPTransport) Transport() *DTLSTransport {
	return r.dtlsTransport
}

// GetCapabilities returns the SCTPCapabilities of the SCTPTransport.
func (r *SCTPTransport) GetCapabilities() SCTPCapabilities {
	return SCTPCapabilities{
		MaxMessageSize: 0,
	}
}

// Start creates the underlying association and starts its handshake: with
// the client role it sends INIT, with the server role it waits for the
// peer's INIT.
func (r *SCTPTransport) Start(role sctpengine.Role, remoteCaps SCTPCapabilities) error {
	if r.dtlsTransport == nil {
		return wrapInvalidState(ErrNoRemoteDescription)
	}

	r.engine = sctpengine.NewAssociation(sctpengine.Config{}, role, nil)
	r.engine.StartHandshake()

	return nil
}

// Stop stops the SCTPTransport
func (r *SCTPTransport) Stop() error {
	if r.engine == nil {
		return nil
	}
	err := r.engine.Close()
	r.setState(SCTPTransportStateClosed)

	return err
}

// OnDataChannel sets an event handler which is invoked when the remote
// peer opens a new data channel.
func (r *SCTPTransport) OnDataChannel(f func(*DataChannel)) {
	r.onDataChannelHandler = f
}

// OnStateChange sets a handler fired whenever the association's lifecycle
// state changes.
func (r *SCTPTransport) OnStateChange(f func(SCTPTransportState)) {
	r.onStateChangeHdlr = f
}

func (r *SCTPTransport) setState(s SCTPTransportState) {
	r.state = s
	if r.onStateChangeHdlr != nil {
		r.onStateChangeHdlr(s)
	}
}

// State returns the current lifecycle state of the transport.
func (r *SCTPTransport) State() SCTPTransportState { return r.state }

// HandleRead feeds one inbound SCTP packet, already DTLS-decrypted by the
// coordinator, into the association.
func (r *SCTPTransport) HandleRead(tx enginecontract.Transmit) error {
	if r.engine == nil {
		return ErrConnectionClosed
	}
	return r.engine.HandleRead(tx)
}

// PollWrite drains pending outbound SCTP packets, destined for the DTLS
// transport's application-data channel.
func (r *SCTPTransport) PollWrite() (enginecontract.Transmit, bool) {
	if r.engine == nil {
		return enginecontract.Transmit{}, false
	}
	return r.engine.PollWrite()
}

// PollEvent drains association and stream lifecycle events, creating or
// updating DataChannel objects and firing handlers as appropriate.
func (r *SCTPTransport) PollEvent() (sctpengine.Event, bool) {
	if r.engine == nil {
		return sctpengine.Event{}, false
	}
	e, ok := r.engine.PollEvent()
	if !ok {
		return e, false
	}

	switch e.Kind {
	case sctpengine.EventAssociationEstablished:
		r.setState(SCTPTransportStateConnected)
	case sctpengine.EventAssociationAborted:
		r.setState(SCTPTransportStateClosed)
	case sctpengine.EventStreamOpen:
		r.handleStreamOpen(e)
	case sctpengine.EventStreamMessage:
		if dc, ok := r.dataChannels[e.StreamID]; ok {
			dc.onMessage(DataChannelMessage{Data: e.Data, IsString: e.IsString})
		}
	case sctpengine.EventStreamClosed:
		if dc, ok := r.dataChannels[e.StreamID]; ok {
			dc.setReadyState(DataChannelStateClosed)
			dc.onClose()
		}
	}
	return e, true
}

func (r *SCTPTransport) handleStreamOpen(e sctpengine.Event) {
	if dc, exists := r.dataChannels[e.StreamID]; exists {
		dc.setReadyState(DataChannelStateOpen)
		dc.onOpen()
		return
	}

	id := e.StreamID
	dc := &DataChannel{
		id:                &id,
		label:             e.Label,
		protocol:          e.Protocol,
		ordered:           e.Reliability.Ordered,
		maxRetransmits:    e.Reliability.MaxRetransmits,
		maxPacketLifeTime: e.Reliability.MaxPacketLifetime,
		readyState:        DataChannelStateOpen,
		sctpTransport:     r,
		api:               r.api,
	}
	r.dataChannels[id] = dc

	if r.onDataChannelHandler != nil {
		r.onDataChannelHandler(dc)
	}
	dc.onOpen()
}

// HandleTimeout drives SACK emission and retransmission.
func (r *SCTPTransport) HandleTimeout(now time.Time) {
	if r.engine != nil {
		r.engine.HandleTimeout(now)
	}
}

// PollTimeout reports when HandleTimeout should next run.
func (r *SCTPTransport) PollTimeout() time.Time {
	if r.engine == nil {
		return time.Time{}
	}
	return r.engine.PollTimeout()
}

func (r *SCTPTransport) openStream(label, protocol string, reliability sctpengine.Reliability) (*sctpengine.Stream, error) {
	if r.engine == nil {
		return nil, wrapInvalidState(ErrConnectionClosed)
	}
	return r.engine.OpenStream(label, protocol, reliability)
}

func (r *SCTPTransport) registerDataChannel(dc *DataChannel) {
	if dc.id != nil {
		r.dataChannels[*dc.id] = dc
	}
}

func (r *SCTPTransport) updateMessageSize() {
	var remoteMaxMessageSize float64 = 65536 // fixed; the remote a=max-message-size is not read
	var canSendSize float64 = 65536

	r.MaxMessageSize = r.calcMessageSize(remoteMaxMessageSize, canSendSize)
}

func (r *SCTPTransport) calcMessageSize(remoteMaxMessageSize, canSendSize float64) float64 {
	switch {
	case remoteMaxMessageSize == 0 &&
		canSendSize == 0:
		return math.Inf(1)

	case remoteMaxMessageSize == 0:
		return canSendSize

	case canSendSize == 0:
		return remoteMaxMessageSize

	case canSendSize > remoteMaxMessageSize:
		return remoteMaxMessageSize

	default:
		return canSendSize
	}
}

func (r *SCTPTransport) updateMaxChannels() {
	val := sctpMaxChannels
	r.MaxChannels = &val
}
