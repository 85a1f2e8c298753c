// +build !js

package webrtc

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/pion/rtcp"
)

// rtpQueueDepth bounds the per-SSRC inbound RTP/RTCP buffer the
// coordinator's demux feeds; a non-blocking producer (poll loop) paired
// with a blocking consumer (the application's own Read goroutine) lets
// Read block without any goroutine running inside the sans-I/O core.
const rtpQueueDepth = 64

// receiverStream is the demultiplexed delivery queue for one SSRC/RID a
// RTPReceiver is responsible for; populated by the coordinator's inbound
// datagram classification (spec.md §6), not by a socket read of its own.
type receiverStream struct {
	track *TrackRemote
	rtp   chan []byte

	packetsReceived uint32
	bytesReceived   uint64
}

// RTPReceiver allows an application to inspect the receipt of a Track.
type RTPReceiver struct {
	kind      RTPCodecType
	transport *DTLSTransport

	streams []receiverStream
	rtcp    chan []byte

	closed, received chan struct{}
	mu                sync.RWMutex

	// A reference to the associated api object
	api *API
}

// NewRTPReceiver constructs a new RTPReceiver.
func (api *API) NewRTPReceiver(kind RTPCodecType, transport *DTLSTransport) (*RTPReceiver, error) {
	if transport == nil {
		return nil, fmt.Errorf("webrtc: DTLSTransport must not be nil")
	}

	return &RTPReceiver{
		kind:      kind,
		transport: transport,
		api:       api,
		closed:    make(chan struct{}),
		received:  make(chan struct{}),
		rtcp:      make(chan []byte, rtpQueueDepth),
	}, nil
}

// Transport returns the currently-configured *DTLSTransport or nil
// if one has not yet been configured.
func (r *RTPReceiver) Transport() *DTLSTransport {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.transport
}

// Track returns the RTPTransceiver track.
func (r *RTPReceiver) Track() *TrackRemote {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.streams) != 1 {
		return nil
	}
	return r.streams[0].track
}

// Tracks returns the RTPTransceiver tracks. A RTPReceiver supporting
// simulcast may have multiple tracks.
func (r *RTPReceiver) Tracks() []*TrackRemote {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tracks := make([]*TrackRemote, 0, len(r.streams))
	for i := range r.streams {
		tracks = append(tracks, r.streams[i].track)
	}
	return tracks
}

// Receive initializes the track(s) this receiver is responsible for and
// opens their demultiplex queues. Unlike the teacher's srtp-session
// version this never touches a socket: the queues start draining as soon
// as the coordinator begins classifying inbound datagrams to this SSRC.
func (r *RTPReceiver) Receive(parameters RTPReceiveParameters) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	select {
	case <-r.received:
		return fmt.Errorf("webrtc: Receive has already been called")
	default:
	}
	defer close(r.received)

	if len(parameters.Encodings) == 1 && parameters.Encodings[0].SSRC != 0 {
		ssrc := parameters.Encodings[0].SSRC
		track := newTrackRemote(r.kind, ssrc, "", r)
		r.streams = append(r.streams, receiverStream{track: track, rtp: make(chan []byte, rtpQueueDepth)})
		return nil
	}

	for _, encoding := range parameters.Encodings {
		track := newTrackRemote(r.kind, encoding.SSRC, encoding.RID, r)
		r.streams = append(r.streams, receiverStream{track: track, rtp: make(chan []byte, rtpQueueDepth)})
	}

	return nil
}

// Read reads one incoming RTCP datagram's wire bytes for this RTPReceiver.
func (r *RTPReceiver) Read(b []byte) (n int, err error) {
	select {
	case <-r.received:
	case <-r.closed:
		return 0, io.ErrClosedPipe
	}

	select {
	case pkt := <-r.rtcp:
		return copy(b, pkt), nil
	case <-r.closed:
		return 0, io.ErrClosedPipe
	}
}

// ReadRTCP is a convenience method that wraps Read and unmarshals for you.
func (r *RTPReceiver) ReadRTCP() ([]rtcp.Packet, error) {
	b := make([]byte, receiveMTU)
	i, err := r.Read(b)
	if err != nil {
		return nil, err
	}

	return rtcp.Unmarshal(b[:i])
}

func (r *RTPReceiver) haveReceived() bool {
	select {
	case <-r.received:
		return true
	default:
		return false
	}
}

// Stop irreversibly stops the RTPReceiver.
func (r *RTPReceiver) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	select {
	case <-r.closed:
		return nil
	default:
	}

	close(r.closed)
	return nil
}

func (r *RTPReceiver) streamForTrack(t *TrackRemote) *receiverStream {
	for i := range r.streams {
		if r.streams[i].track == t {
			return &r.streams[i]
		}
	}
	return nil
}

func (r *RTPReceiver) streamForSSRC(ssrc SSRC) *receiverStream {
	for i := range r.streams {
		if r.streams[i].track.SSRC() == ssrc {
			return &r.streams[i]
		}
	}
	return nil
}

// readRTP should only be called by a track; it exists so receiver state
// lives in one place. It blocks on the track's demux queue, which is fine:
// this runs on the application's own goroutine, not inside the core.
func (r *RTPReceiver) readRTP(b []byte, reader *TrackRemote) (n int, err error) {
	<-r.received

	r.mu.RLock()
	s := r.streamForTrack(reader)
	r.mu.RUnlock()
	if s == nil {
		return 0, fmt.Errorf("webrtc: unable to find stream for Track with SSRC(%d)", reader.SSRC())
	}

	select {
	case pkt := <-s.rtp:
		return copy(b, pkt), nil
	case <-r.closed:
		return 0, io.ErrClosedPipe
	}
}

// receiveForRid is the sibling of Receive for RIDs instead of SSRCs; it
// populates internal state for the given RID once the RTP stream ID has
// been resolved from an sdes header extension.
func (r *RTPReceiver) receiveForRid(rid string, codec RTPCodecParameters, ssrc SSRC) (*TrackRemote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.streams {
		if r.streams[i].track.RID() == rid {
			r.streams[i].track.mu.Lock()
			r.streams[i].track.codec = codec
			r.streams[i].track.ssrc = ssrc
			r.streams[i].track.mu.Unlock()
			r.streams[i].rtp = make(chan []byte, rtpQueueDepth)
			return r.streams[i].track, nil
		}
	}

	return nil, fmt.Errorf("webrtc: no track found for rid %q", rid)
}

// dispatchRTP is called by the coordinator's demux step with one decrypted
// (replay-checked) RTP datagram; it is a non-blocking producer so the core
// never stalls even if the application hasn't started reading yet.
func (r *RTPReceiver) dispatchRTP(ssrc SSRC, b []byte) bool {
	r.mu.RLock()
	s := r.streamForSSRC(ssrc)
	r.mu.RUnlock()
	if s == nil {
		return false
	}

	cp := make([]byte, len(b))
	copy(cp, b)
	select {
	case s.rtp <- cp:
		atomic.AddUint32(&s.packetsReceived, 1)
		atomic.AddUint64(&s.bytesReceived, uint64(len(b)))
		return true
	default:
		return false
	}
}

// stats reports the running packet/byte counters for the stream carrying
// ssrc, fed into the RTCInboundRTPStreamStats snapshot. ok is false if no
// stream has been established for that SSRC yet.
func (r *RTPReceiver) stats(ssrc SSRC) (packetsReceived uint32, bytesReceived uint64, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := r.streamForSSRC(ssrc)
	if s == nil {
		return 0, 0, false
	}
	return atomic.LoadUint32(&s.packetsReceived), atomic.LoadUint64(&s.bytesReceived), true
}

// dispatchRTCP is called by the coordinator's demux step with one
// decrypted (replay-checked) RTCP datagram; the coordinator hands every
// inbound RTCP datagram to every receiver, whatever SSRC it names.
func (r *RTPReceiver) dispatchRTCP(b []byte) bool {
	cp := make([]byte, len(b))
	copy(cp, b)
	select {
	case r.rtcp <- cp:
		return true
	default:
		return false
	}
}
