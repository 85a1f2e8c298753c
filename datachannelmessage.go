package webrtc

// DataChannelMessage represents a message received over a DataChannel.
type DataChannelMessage struct {
	IsString bool
	Data     []byte
}
