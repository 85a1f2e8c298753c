// +build !js

package webrtc

import (
	"errors"
	"strings"
	"sync"

	"github.com/pion/rtp"

	"github.com/sansio/rtc/pkg/media"
)

// TrackLocalStaticRTP is a TrackLocal that has a pre-set codec and accepts
// RTP packets directly. If you wish to send a media.Sample use
// TrackLocalStaticSample instead.
type TrackLocalStaticRTP struct {
	mu           sync.RWMutex
	bindings     []trackBinding
	codec        RTPCodecCapability
	id, streamID string
}

// NewTrackLocalStaticRTP returns a TrackLocalStaticRTP.
func NewTrackLocalStaticRTP(c RTPCodecCapability, id, streamID string) (*TrackLocalStaticRTP, error) {
	return &TrackLocalStaticRTP{
		codec:    c,
		bindings: []trackBinding{},
		id:       id,
		streamID: streamID,
	}, nil
}

// Bind is called by the RTPSender after negotiation is complete. This
// asserts that the codec requested is supported by the remote peer and, if
// so, records the SSRC/payload type/write stream to use for this binding.
func (s *TrackLocalStaticRTP) Bind(t TrackLocalContext) (RTPCodecParameters, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	parameters := RTPCodecParameters{RTPCodecCapability: s.codec}
	codec, err := codecParametersFuzzySearch(parameters, t.CodecParameters())
	if err != nil {
		return RTPCodecParameters{}, ErrUnsupportedCodec
	}

	s.bindings = append(s.bindings, trackBinding{
		ssrc:        t.SSRC(),
		payloadType: codec.PayloadType,
		writeStream: t.WriteStream(),
		id:          t.ID(),
	})
	return codec, nil
}

// Unbind implements the teardown logic for when the track is no longer
// sent over a given RTPSender, e.g. because the sender stopped.
func (s *TrackLocalStaticRTP) Unbind(t TrackLocalContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.bindings {
		if s.bindings[i].id == t.ID() {
			s.bindings[i] = s.bindings[len(s.bindings)-1]
			s.bindings = s.bindings[:len(s.bindings)-1]
			return nil
		}
	}

	return ErrUnbindFailed
}

// ID is the unique identifier for this track. Doesn't need to be globally
// unique, only unique within the StreamID.
func (s *TrackLocalStaticRTP) ID() string { return s.id }

// StreamID is the group this track belongs to. Tracks from the same
// camera/source should share a StreamID.
func (s *TrackLocalStaticRTP) StreamID() string { return s.streamID }

// Kind controls if this TrackLocal is audio or video.
func (s *TrackLocalStaticRTP) Kind() RTPCodecType {
	switch {
	case strings.HasPrefix(s.codec.MimeType, "audio/"):
		return RTPCodecTypeAudio
	case strings.HasPrefix(s.codec.MimeType, "video/"):
		return RTPCodecTypeVideo
	default:
		return RTPCodecType(0)
	}
}

// Codec gets the configured codec of the track.
func (s *TrackLocalStaticRTP) Codec() RTPCodecCapability { return s.codec }

// rtpPacketPool is reused across WriteRTP/Write calls to avoid an
// allocation per outbound packet.
var rtpPacketPool = sync.Pool{ //nolint:gochecknoglobals
	New: func() interface{} { return &rtp.Packet{} },
}

// WriteRTP writes an RTP packet to every bound RTPSender. If a write to
// one sender fails the others still receive the packet; the returned
// error aggregates every failure.
func (s *TrackLocalStaticRTP) WriteRTP(p *rtp.Packet) error {
	ipacket := rtpPacketPool.Get()
	packet, _ := ipacket.(*rtp.Packet)
	defer func() {
		*packet = rtp.Packet{}
		rtpPacketPool.Put(ipacket)
	}()
	*packet = *p
	return s.writeRTP(packet)
}

// writeRTP is like WriteRTP except it may mutate p in place.
func (s *TrackLocalStaticRTP) writeRTP(p *rtp.Packet) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var writeErrs []error
	for _, b := range s.bindings {
		p.Header.SSRC = uint32(b.ssrc)
		p.Header.PayloadType = uint8(b.payloadType)
		if _, err := b.writeStream.WriteRTP(&p.Header, p.Payload); err != nil {
			writeErrs = append(writeErrs, err)
		}
	}

	return errors.Join(writeErrs...)
}

// Write writes an already-marshaled RTP packet to every bound RTPSender.
func (s *TrackLocalStaticRTP) Write(b []byte) (n int, err error) {
	ipacket := rtpPacketPool.Get()
	packet, _ := ipacket.(*rtp.Packet)
	defer func() {
		*packet = rtp.Packet{}
		rtpPacketPool.Put(ipacket)
	}()

	if err = packet.Unmarshal(b); err != nil {
		return 0, err
	}

	return len(b), s.writeRTP(packet)
}

// TrackLocalStaticSample is a TrackLocal that accepts whole encoded
// samples and packetizes them itself. If you already have RTP packets,
// use TrackLocalStaticRTP instead.
type TrackLocalStaticSample struct {
	packetizer rtp.Packetizer
	sequencer  rtp.Sequencer
	rtpTrack   *TrackLocalStaticRTP
	clockRate  float64
}

// NewTrackLocalStaticSample returns a TrackLocalStaticSample.
func NewTrackLocalStaticSample(c RTPCodecCapability, id, streamID string) (*TrackLocalStaticSample, error) {
	rtpTrack, err := NewTrackLocalStaticRTP(c, id, streamID)
	if err != nil {
		return nil, err
	}

	return &TrackLocalStaticSample{rtpTrack: rtpTrack}, nil
}

// ID is the unique identifier for this track.
func (s *TrackLocalStaticSample) ID() string { return s.rtpTrack.ID() }

// StreamID is the group this track belongs to.
func (s *TrackLocalStaticSample) StreamID() string { return s.rtpTrack.StreamID() }

// Kind controls if this TrackLocal is audio or video.
func (s *TrackLocalStaticSample) Kind() RTPCodecType { return s.rtpTrack.Kind() }

// Codec gets the configured codec of the track.
func (s *TrackLocalStaticSample) Codec() RTPCodecCapability { return s.rtpTrack.Codec() }

// Bind asserts the requested codec is supported and, the first time it's
// called, builds the packetizer for this track's codec.
func (s *TrackLocalStaticSample) Bind(t TrackLocalContext) (RTPCodecParameters, error) {
	codec, err := s.rtpTrack.Bind(t)
	if err != nil {
		return codec, err
	}

	s.rtpTrack.mu.Lock()
	defer s.rtpTrack.mu.Unlock()

	if s.packetizer != nil {
		return codec, nil
	}

	payloader, err := payloaderForCodec(codec.RTPCodecCapability)
	if err != nil {
		return codec, err
	}

	s.sequencer = rtp.NewRandomSequencer()
	s.packetizer = rtp.NewPacketizer(
		rtpOutboundMTU,
		0, // payload type is overwritten per-binding at write time
		0, // ssrc is overwritten per-binding at write time
		payloader,
		s.sequencer,
		codec.ClockRate,
	)
	s.clockRate = float64(codec.RTPCodecCapability.ClockRate)
	return codec, nil
}

// Unbind implements the teardown logic for when the track is no longer
// sent over a given RTPSender.
func (s *TrackLocalStaticSample) Unbind(t TrackLocalContext) error {
	return s.rtpTrack.Unbind(t)
}

// WriteSample packetizes and writes a media.Sample to every bound
// RTPSender.
func (s *TrackLocalStaticSample) WriteSample(sample media.Sample) error {
	s.rtpTrack.mu.RLock()
	p := s.packetizer
	clockRate := s.clockRate
	s.rtpTrack.mu.RUnlock()

	if p == nil {
		return nil
	}

	for i := uint16(0); i < sample.PrevDroppedPackets; i++ {
		s.sequencer.NextSequenceNumber()
	}

	samples := uint32(sample.Duration.Seconds() * clockRate)
	if sample.PrevDroppedPackets > 0 {
		p.SkipSamples(samples * uint32(sample.PrevDroppedPackets))
	}
	packets := p.Packetize(sample.Data, samples)

	var writeErrs []error
	for _, pkt := range packets {
		if err := s.rtpTrack.WriteRTP(pkt); err != nil {
			writeErrs = append(writeErrs, err)
		}
	}

	return errors.Join(writeErrs...)
}
