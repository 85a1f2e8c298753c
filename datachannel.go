package webrtc

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sansio/rtc/sctpengine"
)

// DataChannel represents a WebRTC DataChannel
// The DataChannel interface represents a network channel
// which can be used for bidirectional peer-to-peer transfers of arbitrary data.
// Unlike the original implementation this does not block on a read loop:
// inbound messages arrive via the SCTPTransport's poll loop, which calls
// onMessage synchronously.
type DataChannel struct {
	mu sync.RWMutex

	label                      string
	ordered                    bool
	maxPacketLifeTime          *uint16
	maxRetransmits             *uint16
	protocol                   string
	negotiated                 bool
	id                         *uint16
	readyState                 DataChannelState
	bufferedAmountLowThreshold uint64

	onMessageHandler func(DataChannelMessage)
	onOpenHandler    func()
	onCloseHandler   func()

	sctpTransport *SCTPTransport

	// A reference to the associated api object used by this datachannel
	api *API

	// messagesSent/bytesSent/messagesReceived/bytesReceived feed
	// DataChannelStats; accessed without the lock above since Send and
	// onMessage already run without holding d.mu when they touch these.
	messagesSent     uint32
	bytesSent        uint64
	messagesReceived uint32
	bytesReceived    uint64
}

// NewDataChannel creates a new DataChannel.
// This constructor is part of the ORTC API. It is not
// meant to be used together with the basic WebRTC API.
func (api *API) NewDataChannel(transport *SCTPTransport, params *DataChannelParameters) (*DataChannel, error) {
	d, err := api.newDataChannel(params)
	if err != nil {
		return nil, err
	}

	if err := d.open(transport); err != nil {
		return nil, err
	}

	return d, nil
}

// newDataChannel is an internal constructor for the data channel used to
// create the DataChannel object before the networking is set up.
func (api *API) newDataChannel(params *DataChannelParameters) (*DataChannel, error) {
	// https://w3c.github.io/webrtc-pc/#peer-to-peer-data-api (Step #5)
	if len(params.Label) > 65535 {
		return nil, wrapInvalidState(ErrStringSizeLimit)
	}

	id := params.ID
	return &DataChannel{
		label:             params.Label,
		id:                &id,
		ordered:           params.Ordered,
		maxPacketLifeTime: params.MaxPacketLifeTime,
		maxRetransmits:    params.MaxRetransmits,
		readyState:        DataChannelStateConnecting,
		api:               api,
	}, nil
}

// open opens the datachannel over the sctp transport, sending a DCEP
// OPEN and transitioning to Open once the remote side ACKs it (delivered
// through PollEvent, not here, since the engine never blocks).
func (d *DataChannel) open(sctpTransport *SCTPTransport) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.sctpTransport = sctpTransport

	if sctpTransport == nil || sctpTransport.engine == nil {
		return wrapInvalidState(ErrConnectionClosed)
	}

	stream, err := sctpTransport.openStream(d.label, d.protocol, sctpengine.Reliability{
		Ordered:           d.ordered,
		MaxRetransmits:    d.maxRetransmits,
		MaxPacketLifetime: d.maxPacketLifeTime,
	})
	if err != nil {
		return err
	}

	d.id = &stream.ID
	sctpTransport.registerDataChannel(d)
	return nil
}

// Transport returns the SCTPTransport instance the DataChannel is sending over.
func (d *DataChannel) Transport() *SCTPTransport {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.sctpTransport
}

// OnOpen sets an event handler which is invoked when
// the underlying data transport has been established (or re-established).
func (d *DataChannel) OnOpen(f func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onOpenHandler = f
}

func (d *DataChannel) onOpen() {
	d.mu.RLock()
	hdlr := d.onOpenHandler
	d.mu.RUnlock()

	if hdlr != nil {
		hdlr()
	}
}

// OnClose sets an event handler which is invoked when
// the underlying data transport has been closed.
func (d *DataChannel) OnClose(f func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onCloseHandler = f
}

func (d *DataChannel) onClose() {
	d.mu.RLock()
	hdlr := d.onCloseHandler
	d.mu.RUnlock()

	if hdlr != nil {
		hdlr()
	}
}

// OnMessage sets an event handler which is invoked when a message
// arrives over the sctp transport from a remote peer.
func (d *DataChannel) OnMessage(f func(msg DataChannelMessage)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onMessageHandler = f
}

func (d *DataChannel) onMessage(msg DataChannelMessage) {
	atomic.AddUint32(&d.messagesReceived, 1)
	atomic.AddUint64(&d.bytesReceived, uint64(len(msg.Data)))

	d.mu.RLock()
	hdlr := d.onMessageHandler
	d.mu.RUnlock()

	if hdlr == nil {
		return
	}
	hdlr(msg)
}

func (d *DataChannel) setReadyState(s DataChannelState) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.readyState = s
}

// Send sends the binary message to the DataChannel peer
func (d *DataChannel) Send(data []byte) error {
	return d.send(data, false)
}

// SendText sends the text message to the DataChannel peer
func (d *DataChannel) SendText(s string) error {
	return d.send([]byte(s), true)
}

func (d *DataChannel) send(data []byte, isString bool) error {
	d.mu.RLock()
	transport := d.sctpTransport
	id := d.id
	state := d.readyState
	d.mu.RUnlock()

	if state != DataChannelStateOpen {
		return wrapInvalidState(ErrDataChannelNotOpen)
	}
	if transport == nil || transport.engine == nil || id == nil {
		return wrapInvalidState(ErrConnectionClosed)
	}

	if len(data) == 0 {
		data = []byte{0}
	}

	if err := transport.engine.SendUserData(*id, data, isString); err != nil {
		return err
	}
	atomic.AddUint32(&d.messagesSent, 1)
	atomic.AddUint64(&d.bytesSent, uint64(len(data)))
	return nil
}

// Close Closes the DataChannel. It may be called regardless of whether
// the DataChannel object was created by this peer or the remote peer.
func (d *DataChannel) Close() error {
	d.mu.Lock()
	if d.readyState == DataChannelStateClosing || d.readyState == DataChannelStateClosed {
		d.mu.Unlock()
		return nil
	}
	d.readyState = DataChannelStateClosing
	transport := d.sctpTransport
	id := d.id
	d.mu.Unlock()

	if transport == nil || transport.engine == nil || id == nil {
		return nil
	}
	return transport.engine.CloseStream(*id)
}

// Label represents a label that can be used to distinguish this
// DataChannel object from other DataChannel objects. Scripts are
// allowed to create multiple DataChannel objects with the same label.
func (d *DataChannel) Label() string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.label
}

// Ordered represents if the DataChannel is ordered, and false if
// out-of-order delivery is allowed.
func (d *DataChannel) Ordered() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.ordered
}

// MaxPacketLifeTime represents the length of the time window (msec) during
// which transmissions and retransmissions may occur in unreliable mode.
func (d *DataChannel) MaxPacketLifeTime() *uint16 {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.maxPacketLifeTime
}

// MaxRetransmits represents the maximum number of retransmissions that are
// attempted in unreliable mode.
func (d *DataChannel) MaxRetransmits() *uint16 {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.maxRetransmits
}

// Protocol represents the name of the sub-protocol used with this
// DataChannel.
func (d *DataChannel) Protocol() string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.protocol
}

// Negotiated represents whether this DataChannel was negotiated by the
// application (true), or not (false).
func (d *DataChannel) Negotiated() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.negotiated
}

// ID represents the ID for this DataChannel. The value is initially
// null, which is what will be returned if the ID was not provided at
// channel creation time, and the DTLS role of the SCTP transport has not
// yet been negotiated. Otherwise, it will return the ID that was either
// selected by the script or generated. After the ID is set to a non-null
// value, it will not change.
func (d *DataChannel) ID() *uint16 {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.id
}

// ReadyState represents the state of the DataChannel object.
func (d *DataChannel) ReadyState() DataChannelState {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.readyState
}

// BufferedAmount always returns 0: this DataChannel does not track how
// many bytes queued through send() are still waiting in the SCTP
// association.
func (d *DataChannel) BufferedAmount() uint64 {
	return 0
}

// BufferedAmountLowThreshold returns the stored threshold at which the
// bufferedAmount is considered to be low. It is initially zero on each new
// DataChannel and may be changed at any time. The value is only stored;
// no bufferedamountlow event is fired.
func (d *DataChannel) BufferedAmountLowThreshold() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.bufferedAmountLowThreshold
}

// SetBufferedAmountLowThreshold stores the threshold at which the
// bufferedAmount is considered to be low. The value is only stored; no
// bufferedamountlow event is fired.
func (d *DataChannel) SetBufferedAmountLowThreshold(th uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.bufferedAmountLowThreshold = th
}

// getStatsID returns the key this DataChannel's stats are collected under.
func (d *DataChannel) getStatsID() string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.id != nil {
		return fmt.Sprintf("DataChannel-%d", *d.id)
	}
	return "DataChannel-" + d.label
}

// collectStats adds this DataChannel's RTCDataChannelStats entry, keyed
// RTCDataChannel_<label> per SPEC_FULL.md's stats-snapshot naming.
func (d *DataChannel) collectStats(collector *statsReportCollector) {
	d.mu.RLock()
	label, protocol, state := d.label, d.protocol, d.readyState
	var dcID int32
	if d.id != nil {
		dcID = int32(*d.id)
	}
	d.mu.RUnlock()

	stats := DataChannelStats{
		Timestamp:             statsTimestampFrom(time.Now()),
		Type:                  StatsTypeDataChannel,
		ID:                    "RTCDataChannel_" + label,
		Label:                 label,
		Protocol:              protocol,
		DataChannelIdentifier: dcID,
		State:                 state,
		MessagesSent:          atomic.LoadUint32(&d.messagesSent),
		BytesSent:             atomic.LoadUint64(&d.bytesSent),
		MessagesReceived:      atomic.LoadUint32(&d.messagesReceived),
		BytesReceived:         atomic.LoadUint64(&d.bytesReceived),
	}
	collector.Collect(stats.ID, stats)
}
