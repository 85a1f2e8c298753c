package sctpengine

import "errors"

// Errors an Association method can return directly, per spec.md §7.
var (
	ErrConnectionClosed            = errors.New("sctpengine: association closed")
	ErrMaxDataChannelID             = errors.New("sctpengine: no stream ids remain below max_channels")
	ErrRetransmitsOrPacketLifeTime = errors.New("sctpengine: max_retransmits and max_packet_lifetime are mutually exclusive")
	ErrOutboundPacketTooLarge      = errors.New("sctpengine: message exceeds max_message_size")
	ErrStreamNotOpen               = errors.New("sctpengine: stream is not open")
	ErrOutboundQueueFull           = errors.New("sctpengine: outbound queue full, retry")
)
