package sctpengine

import "encoding/binary"

// Payload Protocol Identifiers, RFC 8832/8831, spec.md §4.4.
const (
	ppidDCEP         = 50
	ppidString       = 51
	ppidBinary       = 53
	ppidStringEmpty  = 56
	ppidBinaryEmpty  = 57
)

// DCEP message types, RFC 8832 §5.
const (
	dcepOpen = 0x03
	dcepAck  = 0x02
)

// DCEP channel types, RFC 8832 §5.1, encoding the Reliability policy.
const (
	channelReliable             = 0x00
	channelReliableUnordered    = 0x80
	channelPartialRetrans        = 0x01
	channelPartialRetransUnord   = 0x81
	channelPartialLifetime       = 0x02
	channelPartialLifetimeUnord  = 0x82
)

func reliabilityToChannelType(r Reliability) byte {
	switch {
	case r.MaxRetransmits != nil && r.Ordered:
		return channelPartialRetrans
	case r.MaxRetransmits != nil && !r.Ordered:
		return channelPartialRetransUnord
	case r.MaxPacketLifetime != nil && r.Ordered:
		return channelPartialLifetime
	case r.MaxPacketLifetime != nil && !r.Ordered:
		return channelPartialLifetimeUnord
	case r.Ordered:
		return channelReliable
	default:
		return channelReliableUnordered
	}
}

func channelTypeToReliability(ct byte, param uint16) Reliability {
	r := Reliability{}
	switch ct {
	case channelReliable:
		r.Ordered = true
	case channelReliableUnordered:
		r.Ordered = false
	case channelPartialRetrans:
		r.Ordered = true
		p := param
		r.MaxRetransmits = &p
	case channelPartialRetransUnord:
		p := param
		r.MaxRetransmits = &p
	case channelPartialLifetime:
		r.Ordered = true
		p := param
		r.MaxPacketLifetime = &p
	case channelPartialLifetimeUnord:
		p := param
		r.MaxPacketLifetime = &p
	}
	return r
}

// encodeDCEPOpen builds a DATA_CHANNEL_OPEN message, RFC 8832 §5.1.
func encodeDCEPOpen(label, protocol string, r Reliability, priority uint16) []byte {
	ct := reliabilityToChannelType(r)
	var param uint16
	if r.MaxRetransmits != nil {
		param = *r.MaxRetransmits
	} else if r.MaxPacketLifetime != nil {
		param = *r.MaxPacketLifetime
	}
	buf := make([]byte, 12+len(label)+len(protocol))
	buf[0] = dcepOpen
	buf[1] = ct
	binary.BigEndian.PutUint16(buf[2:4], priority)
	binary.BigEndian.PutUint32(buf[4:8], uint32(param))
	binary.BigEndian.PutUint16(buf[8:10], uint16(len(label)))
	binary.BigEndian.PutUint16(buf[10:12], uint16(len(protocol)))
	copy(buf[12:], label)
	copy(buf[12+len(label):], protocol)
	return buf
}

type dcepOpenMsg struct {
	ChannelType byte
	Priority    uint16
	Param       uint32
	Label       string
	Protocol    string
}

func decodeDCEPOpen(b []byte) (dcepOpenMsg, bool) {
	if len(b) < 12 || b[0] != dcepOpen {
		return dcepOpenMsg{}, false
	}
	labelLen := int(binary.BigEndian.Uint16(b[8:10]))
	protoLen := int(binary.BigEndian.Uint16(b[10:12]))
	if len(b) < 12+labelLen+protoLen {
		return dcepOpenMsg{}, false
	}
	return dcepOpenMsg{
		ChannelType: b[1],
		Priority:    binary.BigEndian.Uint16(b[2:4]),
		Param:       binary.BigEndian.Uint32(b[4:8]),
		Label:       string(b[12 : 12+labelLen]),
		Protocol:    string(b[12+labelLen : 12+labelLen+protoLen]),
	}, true
}

func encodeDCEPAck() []byte { return []byte{dcepAck} }

func isDCEPAck(b []byte) bool { return len(b) == 1 && b[0] == dcepAck }
