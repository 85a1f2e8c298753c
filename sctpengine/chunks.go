package sctpengine

import "encoding/binary"

// Chunk types, RFC 4960 §3.2 (the subset this glue layer drives).
const (
	chunkData        = 0
	chunkInit        = 1
	chunkInitAck     = 2
	chunkSack        = 3
	chunkAbort       = 6
	chunkCookieEcho  = 10
	chunkCookieAck   = 11
)

type chunk struct {
	Type  byte
	Flags byte
	Value []byte
}

func encodeChunk(c chunk) []byte {
	buf := make([]byte, 4+len(c.Value))
	buf[0] = c.Type
	buf[1] = c.Flags
	binary.BigEndian.PutUint16(buf[2:4], uint16(4+len(c.Value)))
	copy(buf[4:], c.Value)
	return buf
}

func encodePacket(chunks ...chunk) []byte {
	var out []byte
	for _, c := range chunks {
		out = append(out, encodeChunk(c)...)
	}
	return out
}

func decodePacket(b []byte) []chunk {
	var out []chunk
	for len(b) >= 4 {
		length := int(binary.BigEndian.Uint16(b[2:4]))
		if length < 4 || length > len(b) {
			return out
		}
		out = append(out, chunk{Type: b[0], Flags: b[1], Value: append([]byte(nil), b[4:length]...)})
		// chunks are 4-byte aligned in RFC 4960; this glue layer packs
		// one chunk per packet so alignment padding never matters.
		b = b[length:]
	}
	return out
}

// dataChunkValue is the per-message value layout this engine uses: TSN(4)
// StreamID(2) StreamSeq(2) PPID(4) payload. Simplified relative to RFC
// 4960's bit-packed flags byte (U/B/E fragmentation bits) since this
// engine never fragments a message across chunks -- spec.md's
// max_message_size check (OutboundPacketTooLarge) exists precisely so
// a message always fits one chunk.
type dataChunkValue struct {
	TSN      uint32
	StreamID uint16
	StreamSeq uint16
	PPID     uint32
	Payload  []byte
}

func encodeDataValue(d dataChunkValue) []byte {
	buf := make([]byte, 12+len(d.Payload))
	binary.BigEndian.PutUint32(buf[0:4], d.TSN)
	binary.BigEndian.PutUint16(buf[4:6], d.StreamID)
	binary.BigEndian.PutUint16(buf[6:8], d.StreamSeq)
	binary.BigEndian.PutUint32(buf[8:12], d.PPID)
	copy(buf[12:], d.Payload)
	return buf
}

func decodeDataValue(b []byte) (dataChunkValue, bool) {
	if len(b) < 12 {
		return dataChunkValue{}, false
	}
	return dataChunkValue{
		TSN:       binary.BigEndian.Uint32(b[0:4]),
		StreamID:  binary.BigEndian.Uint16(b[4:6]),
		StreamSeq: binary.BigEndian.Uint16(b[6:8]),
		PPID:      binary.BigEndian.Uint32(b[8:12]),
		Payload:   append([]byte(nil), b[12:]...),
	}, true
}

func encodeSackValue(cumulativeTSN uint32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, cumulativeTSN)
	return buf
}

func decodeSackValue(b []byte) (uint32, bool) {
	if len(b) < 4 {
		return 0, false
	}
	return binary.BigEndian.Uint32(b[:4]), true
}

func encodeInitValue(initiateTag, initialTSN uint32) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint32(buf[0:4], initiateTag)
	binary.BigEndian.PutUint32(buf[4:8], initialTSN)
	return buf
}

func decodeInitValue(b []byte) (tag, tsn uint32, ok bool) {
	if len(b) < 8 {
		return 0, 0, false
	}
	return binary.BigEndian.Uint32(b[0:4]), binary.BigEndian.Uint32(b[4:8]), true
}
