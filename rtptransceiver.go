// +build !js

package webrtc

import (
	"fmt"
	"sync"
	"time"
)

// RTPTransceiver represents a combination of an RTPSender and an
// RTPReceiver that share a common mid.
type RTPTransceiver struct {
	mu sync.RWMutex

	mid       string
	sender    *RTPSender
	receiver  *RTPReceiver
	direction RTPTransceiverDirection

	currentDirection RTPTransceiverDirection
	fired            bool

	kind    RTPCodecType
	stopped bool
}

func newRTPTransceiver(sender *RTPSender, receiver *RTPReceiver, direction RTPTransceiverDirection, kind RTPCodecType) *RTPTransceiver {
	return &RTPTransceiver{
		sender:    sender,
		receiver:  receiver,
		direction: direction,
		kind:      kind,
	}
}

// Mid gets the Transceiver's mid value. When not yet set, this returns "".
func (t *RTPTransceiver) Mid() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.mid
}

// SetMid sets the Transceiver's mid value. It is an error to change a
// transceiver's mid once set.
func (t *RTPTransceiver) SetMid(mid string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.mid != "" {
		return fmt.Errorf("webrtc: transceiver mid already set to %q", t.mid)
	}
	t.mid = mid
	return nil
}

// Kind returns the RTPCodecType of this transceiver.
func (t *RTPTransceiver) Kind() RTPCodecType {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.kind
}

// Sender returns the RTPTransceiver's RTPSender, if any.
func (t *RTPTransceiver) Sender() *RTPSender {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.sender
}

// SetSender installs s as the RTPTransceiver's sender and hands it track
// through s.ReplaceTrack; the previous sender is neither stopped nor
// unbound.
func (t *RTPTransceiver) SetSender(s *RTPSender, track TrackLocal) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sender = s
	if s != nil {
		return s.ReplaceTrack(track)
	}
	return nil
}

// Receiver returns the RTPTransceiver's RTPReceiver, if any.
func (t *RTPTransceiver) Receiver() *RTPReceiver {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.receiver
}

// SetReceiver replaces the RTPTransceiver's receiver.
func (t *RTPTransceiver) SetReceiver(r *RTPReceiver) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.receiver = r
}

// collectStats adds this transceiver's RTCInboundRTPStreamStats and
// RTCOutboundRTPStreamStats entries, per SPEC_FULL.md §6's stats
// snapshot requirement that RTP streams appear alongside transport,
// candidate-pair and data-channel entries.
func (t *RTPTransceiver) collectStats(collector *statsReportCollector) {
	t.mu.RLock()
	sender, receiver, kind := t.sender, t.receiver, t.kind
	t.mu.RUnlock()

	now := statsTimestampFrom(time.Now())

	if sender != nil {
		ssrc := sender.ssrc
		track := sender.Track()
		trackID := ""
		if track != nil {
			trackID = track.ID()
		}
		packetsSent, bytesSent := sender.stats()
		collector.Collect(fmt.Sprintf("RTCOutboundRTPStream_%d", ssrc), OutboundRTPStreamStats{
			Timestamp:   now,
			Type:        StatsTypeOutboundRTP,
			ID:          fmt.Sprintf("RTCOutboundRTPStream_%d", ssrc),
			SSRC:        ssrc,
			Kind:        kind.String(),
			TrackID:     trackID,
			PacketsSent: packetsSent,
			BytesSent:   bytesSent,
		})
	}

	if receiver != nil {
		for _, track := range receiver.Tracks() {
			ssrc := track.SSRC()
			packetsReceived, bytesReceived, ok := receiver.stats(ssrc)
			if !ok {
				continue
			}
			collector.Collect(fmt.Sprintf("RTCInboundRTPStream_%d", ssrc), InboundRTPStreamStats{
				Timestamp:       now,
				Type:            StatsTypeInboundRTP,
				ID:              fmt.Sprintf("RTCInboundRTPStream_%d", ssrc),
				SSRC:            ssrc,
				Kind:            kind.String(),
				TrackID:         track.ID(),
				PacketsReceived: packetsReceived,
				BytesReceived:   bytesReceived,
			})
		}
	}
}

// Direction returns the RTPTransceiver's current direction as set via
// SetDirection; this is the value the local application offers.
func (t *RTPTransceiver) Direction() RTPTransceiverDirection {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.direction
}

// SetDirection sets the preferred direction of this RTPTransceiver, which
// will be used in the next createOffer/createAnswer round.
func (t *RTPTransceiver) SetDirection(d RTPTransceiverDirection) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.direction = d
}

// CurrentDirection returns the RTPTransceiver's current direction as
// negotiated by the last completed offer/answer exchange.
func (t *RTPTransceiver) CurrentDirection() RTPTransceiverDirection {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.currentDirection
}

func (t *RTPTransceiver) setCurrentDirection(d RTPTransceiverDirection) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.currentDirection = d
	t.fired = true
}

// Stopped reports whether Stop has been called.
func (t *RTPTransceiver) Stopped() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.stopped
}

// setSendingTrack attaches track to this transceiver's sender and widens
// the negotiated direction to include sending.
func (t *RTPTransceiver) setSendingTrack(track TrackLocal) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.sender == nil {
		return fmt.Errorf("webrtc: transceiver has no sender")
	}
	t.sender.track = track

	switch t.direction {
	case RTPTransceiverDirectionRecvonly:
		t.direction = RTPTransceiverDirectionSendrecv
	case RTPTransceiverDirectionInactive:
		t.direction = RTPTransceiverDirectionSendonly
	default:
		return fmt.Errorf("webrtc: invalid direction change in RTPTransceiver.setSendingTrack")
	}
	return nil
}

// Stop irreversibly stops the RTPTransceiver.
func (t *RTPTransceiver) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return nil
	}
	t.stopped = true

	if t.sender != nil {
		if err := t.sender.Stop(); err != nil {
			return err
		}
	}
	if t.receiver != nil {
		if err := t.receiver.Stop(); err != nil {
			return err
		}
	}
	return nil
}
