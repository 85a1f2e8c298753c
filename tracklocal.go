package webrtc

import (
	"context"
	"sync"

	"github.com/pion/interceptor"
	"github.com/pion/rtp"
)

// TrackLocalWriter is the interface that a track uses to write packets or
// raw RTP bytes to one bound RTPSender. It abstracts over the sender's
// SRTP encryption path so a track never has to know about DTLS keying.
type TrackLocalWriter interface {
	WriteRTP(header *rtp.Header, payload []byte) (int, error)
	Write(b []byte) (int, error)
}

// TrackLocalContext is the Binding context supplied to a TrackLocal when an
// RTPSender binds it: the negotiated SSRC, codec parameters, and the
// writer the track should use to emit packets.
type TrackLocalContext struct {
	id          string
	params      RTPParameters
	ssrc        SSRC
	writeStream TrackLocalWriter
}

// CodecParameters returns the codecs available to this track, as
// negotiated for the track's media kind.
func (t *TrackLocalContext) CodecParameters() []RTPCodecParameters { return t.params.Codecs }

// HeaderExtensions returns the header extensions negotiated for this
// track's media kind.
func (t *TrackLocalContext) HeaderExtensions() []RTPHeaderExtensionParameters {
	return t.params.HeaderExtensions
}

// SSRC returns the negotiated SSRC of this track.
func (t *TrackLocalContext) SSRC() SSRC { return t.ssrc }

// WriteStream returns the WriteStream for this TrackLocalContext. Provided
// so a track doesn't need to hold onto its own copy of the interceptor
// pipeline.
func (t *TrackLocalContext) WriteStream() TrackLocalWriter { return t.writeStream }

// ID is a unique identifier assigned by Pion at the time the context was
// bound, distinct from the track's own ID() or StreamID().
func (t *TrackLocalContext) ID() string { return t.id }

// TrackLocal is an interface that controls how the media source is
// configured when an RTPSender sends it over the wire.
type TrackLocal interface {
	// Bind should implement the way how the media data flows from the
	// Track to the PeerConnection. This will be called internally after
	// signaling is complete and the track is added to the PeerConnection.
	Bind(ctx TrackLocalContext) (RTPCodecParameters, error)

	// Unbind should implement the teardown logic when the track is
	// removed from the PeerConnection.
	Unbind(ctx TrackLocalContext) error

	// ID is a unique identifier for this track.
	ID() string

	// StreamID is a group identifier. Tracks that originate from the
	// same source, for example video and audio from the same camera,
	// should share a StreamID.
	StreamID() string

	// Kind controls if this TrackLocal is of type Audio or Video.
	Kind() RTPCodecType
}

// interceptorTrackLocalWriter wraps a TrackLocalWriter so it can be used
// to terminate the interceptor.RTPWriter chain that Send builds; the
// underlying writer is swapped in once BindLocalStream returns.
type interceptorTrackLocalWriter struct {
	TrackLocalWriter

	mu     sync.Mutex
	writer interceptor.RTPWriter
}

func (i *interceptorTrackLocalWriter) setRTPWriter(writer interceptor.RTPWriter) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.writer = writer
}

func (i *interceptorTrackLocalWriter) WriteRTP(header *rtp.Header, payload []byte) (int, error) {
	i.mu.Lock()
	writer := i.writer
	i.mu.Unlock()

	if writer == nil {
		return i.TrackLocalWriter.WriteRTP(header, payload)
	}
	return writer.Write(header, payload, interceptor.Attributes{})
}

// trackBinding bookkeeps one RTPSender bound against a TrackLocalStaticRTP.
type trackBinding struct {
	id          string
	ssrc        SSRC
	payloadType PayloadType
	writeStream TrackLocalWriter
	ctx         context.Context
	cancel      context.CancelFunc
}
