// Package media provides the Sample type tracks use to accept encoded
// media without the caller needing to packetize it into RTP directly.
package media

import "time"

// Sample contains encoded media and enough metadata for a track to turn
// it into one or more RTP packets.
type Sample struct {
	Data               []byte
	Timestamp          time.Time
	Duration           time.Duration
	PacketTimestamp    uint32
	PrevDroppedPackets uint16
	Metadata           interface{}
}
