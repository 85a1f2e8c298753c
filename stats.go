// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package webrtc

import "time"

// StatsTimestamp is a timestamp represented by the number of milliseconds
// since 1970-01-01T00:00:00Z, matching the WebRTC getStats() convention.
type StatsTimestamp float64

// Time returns the time.Time this StatsTimestamp represents.
func (s StatsTimestamp) Time() time.Time {
	millis := float64(s)
	return time.Unix(0, int64(millis*float64(time.Millisecond))).UTC()
}

// statsTimestampFrom converts a time.Time into a StatsTimestamp.
func statsTimestampFrom(t time.Time) StatsTimestamp {
	return StatsTimestamp(t.UnixNano() / int64(time.Millisecond))
}

// StatsType indicates the type of the object a Stats struct describes.
type StatsType string

const (
	StatsTypeCodec                        StatsType = "codec"
	StatsTypeInboundRTP                   StatsType = "inbound-rtp"
	StatsTypeOutboundRTP                  StatsType = "outbound-rtp"
	StatsTypeRemoteInboundRTP              StatsType = "remote-inbound-rtp"
	StatsTypeRemoteOutboundRTP             StatsType = "remote-outbound-rtp"
	StatsTypeCSRC                         StatsType = "csrc"
	StatsTypeMediaStream                  StatsType = "stream"
	StatsTypeTrack                        StatsType = "track"
	StatsTypeSender                       StatsType = "sender"
	StatsTypeReceiver                     StatsType = "receiver"
	StatsTypeTransport                    StatsType = "transport"
	StatsTypeCandidatePair                StatsType = "candidate-pair"
	StatsTypeLocalCandidate               StatsType = "local-candidate"
	StatsTypeRemoteCandidate               StatsType = "remote-candidate"
	StatsTypeCertificate                  StatsType = "certificate"
	StatsTypeDataChannel                  StatsType = "data-channel"
	StatsTypePeerConnection               StatsType = "peer-connection"
)

// Stats is the interface implemented by every concrete stats struct;
// only used as a marker so StatsReport can hold a heterogeneous map.
type Stats interface {
	statsMarker()
}

// StatsReport collects Stats objects indexed by their statsID.
type StatsReport map[string]Stats

// statsReportCollector accumulates Stats from the various subsystems that
// own a piece of connection state (media engine, ICE transport, DTLS
// transport, data channels). It holds no lock, so Collect calls must not
// run concurrently.
type statsReportCollector struct {
	collection map[string]Stats
	done       chan struct{}
}

func newStatsReportCollector() *statsReportCollector {
	return &statsReportCollector{collection: map[string]Stats{}, done: make(chan struct{})}
}

// Collecting does nothing; it is kept for callers that announce a write.
func (sc *statsReportCollector) Collecting() {}

// Collect records the stats under id.
func (sc *statsReportCollector) Collect(id string, stats Stats) {
	sc.collection[id] = stats
}

// Ready returns the accumulated report.
func (sc *statsReportCollector) Ready() StatsReport {
	return StatsReport(sc.collection)
}

// PeerConnectionStats contains statistics related to the PeerConnection
// object.
type PeerConnectionStats struct {
	Timestamp             StatsTimestamp `json:"timestamp"`
	Type                  StatsType      `json:"type"`
	ID                    string         `json:"id"`
	DataChannelsAccepted  uint32         `json:"dataChannelsAccepted"`
	DataChannelsOpened    uint32         `json:"dataChannelsOpened"`
	DataChannelsRequested uint32         `json:"dataChannelsRequested"`
	DataChannelsClosed    uint32         `json:"dataChannelsClosed"`
}

func (PeerConnectionStats) statsMarker() {}

// DataChannelStats contains statistics related to a DataChannel.
type DataChannelStats struct {
	Timestamp StatsTimestamp `json:"timestamp"`
	Type      StatsType      `json:"type"`
	ID        string         `json:"id"`

	Label          string            `json:"label"`
	Protocol       string            `json:"protocol"`
	DataChannelIdentifier int32      `json:"dataChannelIdentifier"`
	State          DataChannelState `json:"state"`
	MessagesSent   uint32           `json:"messagesSent"`
	BytesSent      uint64           `json:"bytesSent"`
	MessagesReceived uint32         `json:"messagesReceived"`
	BytesReceived  uint64           `json:"bytesReceived"`
}

func (DataChannelStats) statsMarker() {}

// CodecStats contains statistics for a codec used by RTP streams.
type CodecStats struct {
	Timestamp   StatsTimestamp `json:"timestamp"`
	Type        StatsType      `json:"type"`
	ID          string         `json:"id"`
	PayloadType PayloadType    `json:"payloadType"`
	MimeType    string         `json:"mimeType"`
	ClockRate   uint32         `json:"clockRate"`
	Channels    uint8          `json:"channels"`
	SDPFmtpLine string         `json:"sdpFmtpLine"`
}

func (CodecStats) statsMarker() {}

// ICECandidateStats contains ICE candidate statistics related to the
// ICECandidatePairStats object.
type ICECandidateStats struct {
	Timestamp     StatsTimestamp `json:"timestamp"`
	Type          StatsType      `json:"type"`
	ID            string         `json:"id"`
	TransportID   string         `json:"transportId"`
	NetworkType   NetworkType    `json:"networkType"`
	IP            string         `json:"ip"`
	Port          int            `json:"port"`
	Protocol      string         `json:"protocol"`
	CandidateType ICECandidateType `json:"candidateType"`
	Priority      uint32         `json:"priority"`
	URL           string         `json:"url"`
	Deleted       bool           `json:"deleted"`
}

func (ICECandidateStats) statsMarker() {}

// ICECandidatePairStats contains ICE candidate pair statistics related
// to the ICETransport objects.
type ICECandidatePairStats struct {
	Timestamp                    StatsTimestamp `json:"timestamp"`
	Type                         StatsType      `json:"type"`
	ID                           string         `json:"id"`
	TransportID                  string         `json:"transportId"`
	LocalCandidateID             string         `json:"localCandidateId"`
	RemoteCandidateID            string         `json:"remoteCandidateId"`
	State                        string         `json:"state"`
	Nominated                    bool           `json:"nominated"`
	PacketsSent                  uint32         `json:"packetsSent"`
	PacketsReceived              uint32         `json:"packetsReceived"`
	BytesSent                    uint64         `json:"bytesSent"`
	BytesReceived                uint64         `json:"bytesReceived"`
	CurrentRoundTripTime         float64        `json:"currentRoundTripTime"`
	AvailableOutgoingBitrate     float64        `json:"availableOutgoingBitrate"`
	AvailableIncomingBitrate     float64        `json:"availableIncomingBitrate"`
	RequestsReceived             uint64         `json:"requestsReceived"`
	RequestsSent                 uint64         `json:"requestsSent"`
	ResponsesReceived            uint64         `json:"responsesReceived"`
	ResponsesSent                uint64         `json:"responsesSent"`
}

func (ICECandidatePairStats) statsMarker() {}

// CertificateStats contains information about a certificate used by an
// ICETransport's DTLSTransport.
type CertificateStats struct {
	Timestamp            StatsTimestamp `json:"timestamp"`
	Type                 StatsType      `json:"type"`
	ID                   string         `json:"id"`
	Fingerprint          string         `json:"fingerprint"`
	FingerprintAlgorithm string         `json:"fingerprintAlgorithm"`
	Base64Certificate    string         `json:"base64Certificate"`
	IssuerCertificateID  string         `json:"issuerCertificateId"`
}

func (CertificateStats) statsMarker() {}

// TransportStats contains information related to the DTLSTransport.
type TransportStats struct {
	Timestamp   StatsTimestamp      `json:"timestamp"`
	Type        StatsType           `json:"type"`
	ID          string              `json:"id"`
	BytesSent   uint64              `json:"bytesSent"`
	BytesReceived uint64            `json:"bytesReceived"`
	DTLSState   DTLSTransportState  `json:"dtlsState"`
	ICEState    ICETransportState   `json:"iceState"`
}

func (TransportStats) statsMarker() {}

// MediaStreamStats contains statistics related to a specific MediaStream.
type MediaStreamStats struct {
	Timestamp      StatsTimestamp `json:"timestamp"`
	Type           StatsType      `json:"type"`
	ID             string         `json:"id"`
	StreamIdentifier string       `json:"streamIdentifier"`
	TrackIDs       []string       `json:"trackIds"`
}

func (MediaStreamStats) statsMarker() {}

// InboundRTPStreamStats contains statistics for an inbound RTP stream
// that is currently received with the RTPReceiver.
type InboundRTPStreamStats struct {
	Timestamp       StatsTimestamp `json:"timestamp"`
	Type            StatsType      `json:"type"`
	ID              string         `json:"id"`
	SSRC            SSRC           `json:"ssrc"`
	Kind            string         `json:"kind"`
	TrackID         string         `json:"trackId"`
	PacketsReceived uint32         `json:"packetsReceived"`
	PacketsLost     int32          `json:"packetsLost"`
	Jitter          float64        `json:"jitter"`
	BytesReceived   uint64         `json:"bytesReceived"`
	NACKCount       uint32         `json:"nackCount"`
}

func (InboundRTPStreamStats) statsMarker() {}

// OutboundRTPStreamStats contains statistics for an outbound RTP stream
// that is currently sent with the RTPSender.
type OutboundRTPStreamStats struct {
	Timestamp    StatsTimestamp `json:"timestamp"`
	Type         StatsType      `json:"type"`
	ID           string         `json:"id"`
	SSRC         SSRC           `json:"ssrc"`
	Kind         string         `json:"kind"`
	TrackID      string         `json:"trackId"`
	PacketsSent  uint32         `json:"packetsSent"`
	BytesSent    uint64         `json:"bytesSent"`
	NACKCount    uint32         `json:"nackCount"`
}

func (OutboundRTPStreamStats) statsMarker() {}

// RemoteInboundRTPStreamStats contains statistics about the remote
// endpoint's inbound RTP stream, learned from RTCP receiver reports.
type RemoteInboundRTPStreamStats struct {
	Timestamp            StatsTimestamp `json:"timestamp"`
	Type                 StatsType      `json:"type"`
	ID                   string         `json:"id"`
	SSRC                 SSRC           `json:"ssrc"`
	PacketsLost          int32          `json:"packetsLost"`
	Jitter               float64        `json:"jitter"`
	RoundTripTime        float64        `json:"roundTripTime"`
	FractionLost         float64        `json:"fractionLost"`
}

func (RemoteInboundRTPStreamStats) statsMarker() {}

// RemoteOutboundRTPStreamStats contains statistics about the remote
// endpoint's outbound RTP stream, learned from RTCP sender reports.
type RemoteOutboundRTPStreamStats struct {
	Timestamp   StatsTimestamp `json:"timestamp"`
	Type        StatsType      `json:"type"`
	ID          string         `json:"id"`
	SSRC        SSRC           `json:"ssrc"`
	PacketsSent uint32         `json:"packetsSent"`
	BytesSent   uint64         `json:"bytesSent"`
	RemoteTimestamp StatsTimestamp `json:"remoteTimestamp"`
}

func (RemoteOutboundRTPStreamStats) statsMarker() {}

// RTPContributingSourceStats contains statistics for a contributing
// source (CSRC) that contributed to an inbound RTP stream.
type RTPContributingSourceStats struct {
	Timestamp            StatsTimestamp `json:"timestamp"`
	Type                 StatsType      `json:"type"`
	ID                   string         `json:"id"`
	ContributorSSRC      SSRC           `json:"contributorSsrc"`
	InboundRTPStreamID   string         `json:"inboundRtpStreamId"`
}

func (RTPContributingSourceStats) statsMarker() {}

// AudioReceiverStats contains audio-specific RTPReceiver statistics.
type AudioReceiverStats struct {
	AudioLevel        float64 `json:"audioLevel"`
	TotalAudioEnergy  float64 `json:"totalAudioEnergy"`
	TotalSamplesDuration float64 `json:"totalSamplesDuration"`
}

func (AudioReceiverStats) statsMarker() {}

// AudioSenderStats contains audio-specific RTPSender statistics.
type AudioSenderStats struct {
	AudioLevel       float64 `json:"audioLevel"`
	TotalAudioEnergy float64 `json:"totalAudioEnergy"`
}

func (AudioSenderStats) statsMarker() {}

// VideoReceiverStats contains video-specific RTPReceiver statistics.
type VideoReceiverStats struct {
	FramesReceived int32 `json:"framesReceived"`
	FramesDecoded  int32 `json:"framesDecoded"`
	FramesDropped  int32 `json:"framesDropped"`
	FrameWidth     int32 `json:"frameWidth"`
	FrameHeight    int32 `json:"frameHeight"`
}

func (VideoReceiverStats) statsMarker() {}

// VideoSenderStats contains video-specific RTPSender statistics.
type VideoSenderStats struct {
	FramesSent   int32 `json:"framesSent"`
	FrameWidth   int32 `json:"frameWidth"`
	FrameHeight  int32 `json:"frameHeight"`
}

func (VideoSenderStats) statsMarker() {}

// SenderAudioTrackAttachmentStats contains statistics about the
// attachment of an audio MediaStreamTrack to an RTPSender.
type SenderAudioTrackAttachmentStats struct {
	AudioSenderStats
}

func (SenderAudioTrackAttachmentStats) statsMarker() {}

// SenderVideoTrackAttachmentStats contains statistics about the
// attachment of a video MediaStreamTrack to an RTPSender.
type SenderVideoTrackAttachmentStats struct {
	VideoSenderStats
}

func (SenderVideoTrackAttachmentStats) statsMarker() {}
