package sctpengine

import (
	"github.com/sansio/rtc/enginecontract"
)

// HandleRead accepts one inbound SCTP packet (already DTLS-decrypted),
// per spec.md §4.4.
func (a *Association) HandleRead(tx enginecontract.Transmit) error {
	if a.closed {
		return ErrConnectionClosed
	}
	for _, c := range decodePacket(tx.Payload) {
		a.handleChunk(c, tx)
	}
	return nil
}

func (a *Association) handleChunk(c chunk, tx enginecontract.Transmit) {
	switch c.Type {
	case chunkInit:
		a.handleInit(c)
	case chunkInitAck:
		a.handleInitAck(c)
	case chunkCookieEcho:
		a.pushWrite(encodePacket(chunk{Type: chunkCookieAck}))
		a.establish()
	case chunkCookieAck:
		a.establish()
	case chunkData:
		a.handleData(c, tx)
	case chunkSack:
		a.handleSack(c)
	case chunkAbort:
		a.state = StateClosed
		a.pushEvent(Event{Kind: EventAssociationAborted})
	default:
		a.log.Tracef("sctp: dropping unsupported chunk type %d", c.Type)
	}
}

func (a *Association) handleInit(c chunk) {
	tag, _, ok := decodeInitValue(c.Value)
	if !ok {
		return
	}
	a.peerTag = tag
	a.pushWrite(encodePacket(chunk{Type: chunkInitAck, Value: encodeInitValue(a.myTag, a.myInitialTSN)}))
}

func (a *Association) handleInitAck(c chunk) {
	tag, _, ok := decodeInitValue(c.Value)
	if !ok {
		return
	}
	a.peerTag = tag
	a.pushWrite(encodePacket(chunk{Type: chunkCookieEcho}))
}

func (a *Association) establish() {
	if a.state == StateEstablished {
		return
	}
	a.state = StateEstablished
	a.pushEvent(Event{Kind: EventAssociationEstablished})
}

func (a *Association) handleData(c chunk, tx enginecontract.Transmit) {
	d, ok := decodeDataValue(c.Value)
	if !ok {
		return
	}
	if d.TSN == a.cumulativeAckedTSN {
		a.cumulativeAckedTSN++
	} else if d.TSN > a.cumulativeAckedTSN {
		a.cumulativeAckedTSN = d.TSN + 1
	}
	a.sackDue = true

	switch d.PPID {
	case ppidDCEP:
		a.handleDCEP(d)
	case ppidString, ppidBinary, ppidStringEmpty, ppidBinaryEmpty:
		a.handleUserData(d)
	default:
		a.log.Tracef("sctp: dropping DATA chunk with unknown ppid %d", d.PPID)
	}
}

func (a *Association) handleDCEP(d dataChunkValue) {
	if isDCEPAck(d.Payload) {
		if s, ok := a.streams[d.StreamID]; ok {
			s.State = StreamOpen
			a.pushEvent(Event{Kind: EventStreamOpen, StreamID: s.ID, Label: s.Label, Protocol: s.Protocol, Reliability: s.Reliability})
		}
		return
	}
	open, ok := decodeDCEPOpen(d.Payload)
	if !ok {
		return
	}
	rel := channelTypeToReliability(open.ChannelType, uint16(open.Param))
	s, exists := a.streams[d.StreamID]
	if !exists {
		s = &Stream{ID: d.StreamID, Label: open.Label, Protocol: open.Protocol, Reliability: rel}
		a.streams[d.StreamID] = s
	}
	s.State = StreamOpen
	a.sendData(d.StreamID, ppidDCEP, encodeDCEPAck(), Reliability{Ordered: true})
	a.pushEvent(Event{Kind: EventStreamOpen, StreamID: s.ID, Label: s.Label, Protocol: s.Protocol, Reliability: s.Reliability})
}

func (a *Association) handleUserData(d dataChunkValue) {
	s, ok := a.streams[d.StreamID]
	if !ok || s.State != StreamOpen {
		return
	}
	s.MessagesReceived++
	s.BytesReceived += uint64(len(d.Payload))
	isString := d.PPID == ppidString || d.PPID == ppidStringEmpty
	a.pushEvent(Event{Kind: EventStreamMessage, StreamID: d.StreamID, Data: d.Payload, IsString: isString})
}

func (a *Association) handleSack(c chunk) {
	cum, ok := decodeSackValue(c.Value)
	if !ok {
		return
	}
	filtered := a.outstanding[:0]
	for _, o := range a.outstanding {
		if o.tsn < cum {
			continue // acknowledged, drop from retransmission bookkeeping
		}
		filtered = append(filtered, o)
	}
	a.outstanding = filtered
}
