// +build !js

// Package webrtc implements a sans-I/O WebRTC PeerConnection: ICE, DTLS and
// SCTP are driven purely by HandleRead/PollWrite/HandleTimeout/PollTimeout,
// with no socket or goroutine owned by this package.
package webrtc

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pion/rtcp"
	"github.com/pion/sdp/v3"
	"github.com/pion/transport/v4/mux"

	"github.com/sansio/rtc/enginecontract"
	"github.com/sansio/rtc/iceengine"
	"github.com/sansio/rtc/sctpengine"
)

// contentTypeSCTP marks an outbound/inbound DTLS-application-data record
// that carries an SCTP packet rather than user data destined elsewhere.
// spec.md §6 dedicates the 20..=63 demux range to DTLS records; once the
// DTLS transport is connected, everything in that range is either a new
// DTLS record (first byte 22) or an SCTP packet wrapped behind this one
// marker byte so the two engines can share a single UDP 5-tuple.
const contentTypeSCTP = 23

// recordContentTypeHandshake mirrors dtlsengine's own marker for a DTLS
// handshake/alert/app-data record, so HandleRead can tell a real DTLS
// record apart from a wrapped SCTP packet without asking the transport.
const recordContentTypeHandshake = 22

// PeerConnection represents a WebRTC connection that establishes a
// peer-to-peer communication with another PeerConnection instance,
// coordinating one ICETransport, one DTLSTransport and one SCTPTransport
// per spec.md §4.5. Nothing here spawns a goroutine or owns a socket: the
// caller drives the connection via HandleRead/PollWrite/HandleTimeout/
// PollTimeout exactly as it drives each sub-transport.
type PeerConnection struct {
	mu sync.RWMutex

	configuration Configuration

	currentLocalDescription  *SessionDescription
	pendingLocalDescription  *SessionDescription
	currentRemoteDescription *SessionDescription
	pendingRemoteDescription *SessionDescription
	signalingState           SignalingState
	iceGatheringState        ICEGatheringState
	connectionState          PeerConnectionState

	isClosed          *atomicBool
	negotiationNeeded *atomicBool

	remoteDTLSFingerprint string
	localDTLSRole         DTLSRole

	lastOffer  string
	lastAnswer string

	rtpTransceivers []*RTPTransceiver

	iceGatherer   *ICEGatherer
	iceTransport  *ICETransport
	dtlsTransport *DTLSTransport
	sctpTransport *SCTPTransport

	ops *operations

	gatherCompleteHooks []chan struct{}

	statsID string

	dataChannelsRequested, dataChannelsOpened, dataChannelsAccepted, dataChannelsClosed uint32

	// bytesSent/bytesReceived/packetsSent/packetsReceived total every
	// datagram this coordinator has handed to or taken from the wire,
	// across ICE, DTLS, SRTP/SRTCP and SCTP alike -- this module runs one
	// DTLSTransport/candidate-pair per connection, so the transport's and
	// the selected pair's throughput are the same number, fed into both
	// TransportStats and ICECandidatePairStats.
	bytesSent, bytesReceived         uint64
	packetsSent, packetsReceived     uint32

	onSignalingStateChangeHandler     func(SignalingState)
	onICEConnectionStateChangeHandler func(ICEConnectionState)
	onConnectionStateChangeHandler    func(PeerConnectionState)
	onICEGatheringStateChangeHandler  func(ICEGatheringState)
	onICECandidateHandler             func(*ICECandidate)
	onTrackHandler                    func(*TrackRemote, *RTPReceiver)
	onDataChannelHandler              func(*DataChannel)
	onNegotiationNeededHandler        func()

	api *API
}

// NewPeerConnection creates a PeerConnection with the default codec set
// registered, mirroring the package-level convenience constructor every
// pion-webrtc example calls before touching the lower-level API surface.
func NewPeerConnection(configuration Configuration) (*PeerConnection, error) {
	m := MediaEngine{}
	if err := m.RegisterDefaultCodecs(); err != nil {
		return nil, err
	}

	api := NewAPI(WithMediaEngine(m))
	return api.NewPeerConnection(configuration)
}

// NewPeerConnection creates a new PeerConnection with this API's
// MediaEngine, SettingEngine and interceptor chain.
func (api *API) NewPeerConnection(configuration Configuration) (*PeerConnection, error) {
	configuration, err := initConfiguration(configuration)
	if err != nil {
		return nil, err
	}

	pc := &PeerConnection{
		configuration:     configuration,
		signalingState:    SignalingStateStable,
		iceGatheringState: ICEGatheringStateNew,
		connectionState:   PeerConnectionStateNew,
		isClosed:          &atomicBool{},
		negotiationNeeded: &atomicBool{},
		api:               api,
	}
	pc.statsID = fmt.Sprintf("PeerConnection-%d", time.Now().UnixNano())
	pc.ops = newOperations(&atomicBool{}, pc.onNegotiationNeeded)

	gatherer, err := api.NewICEGatherer(ICEGatherOptions{
		ICEServers:           configuration.ICEServers,
		ICEGatherPolicy:      configuration.ICETransportPolicy,
		ICECandidatePoolSize: configuration.ICECandidatePoolSize,
	})
	if err != nil {
		return nil, err
	}
	pc.iceGatherer = gatherer
	gatherer.OnLocalCandidate(pc.onICEGathererLocalCandidate)

	// Share one iceengine.Agent between the gatherer and the transport so
	// the ufrag/pwd advertised in SDP match the ones connectivity checks
	// actually authenticate against.
	pc.iceTransport = newICETransportFromAgent(gatherer.agentRef())
	pc.iceTransport.OnConnectionStateChange(pc.onICETransportStateChange)

	dtlsTransport, err := NewDTLSTransport(configuration.Certificates)
	if err != nil {
		return nil, err
	}
	pc.dtlsTransport = dtlsTransport
	pc.dtlsTransport.OnStateChange(pc.onDTLSTransportStateChange)
	pc.dtlsTransport.iceTransport = pc.iceTransport

	pc.sctpTransport = api.NewSCTPTransport(pc.dtlsTransport)
	pc.sctpTransport.OnDataChannel(pc.onSCTPDataChannel)
	pc.sctpTransport.OnStateChange(pc.onSCTPTransportStateChange)

	return pc, nil
}

func initConfiguration(configuration Configuration) (Configuration, error) {
	if configuration.ICETransportPolicy == 0 {
		configuration.ICETransportPolicy = ICETransportPolicyAll
	}
	if configuration.BundlePolicy == 0 {
		configuration.BundlePolicy = BundlePolicyBalanced
	}
	if configuration.RTCPMuxPolicy == 0 {
		configuration.RTCPMuxPolicy = RTCPMuxPolicyRequire
	}
	if configuration.ICEServers == nil {
		configuration.ICEServers = []ICEServer{}
	}
	for _, server := range configuration.ICEServers {
		if _, err := server.urls(); err != nil {
			return configuration, err
		}
	}
	return configuration, nil
}

// ---------------------------------------------------------------------
// Event plumbing: sub-transport callbacks -> PeerConnection state
// ---------------------------------------------------------------------

func (pc *PeerConnection) onICEGathererLocalCandidate(c *ICECandidate) {
	pc.mu.Lock()
	if c == nil {
		pc.iceGatheringState = ICEGatheringStateComplete
		hooks := pc.gatherCompleteHooks
		pc.gatherCompleteHooks = nil
		pc.mu.Unlock()
		for _, hook := range hooks {
			close(hook)
		}
		if handler := pc.onICEGatheringStateChangeHandler; handler != nil {
			handler(ICEGatheringStateComplete)
		}
	} else {
		pc.mu.Unlock()
	}
	if handler := pc.onICECandidateHandler; handler != nil {
		handler(c)
	}
}

func (pc *PeerConnection) onICETransportStateChange(state ICETransportState) {
	pc.mu.Lock()
	newState := newPeerConnectionState(state, pc.dtlsTransport.State(), pc.isClosed.get())
	changed := newState != pc.connectionState
	pc.connectionState = newState
	shouldStartDTLS := state == ICETransportStateConnected && pc.dtlsTransport.State() == DTLSTransportStateNew &&
		pc.remoteDTLSFingerprint != "" && pc.localDTLSRole != 0
	fingerprint := pc.remoteDTLSFingerprint
	role := pc.localDTLSRole
	pc.mu.Unlock()

	if handler := pc.onICEConnectionStateChangeHandler; handler != nil {
		handler(iceConnectionStateFromICETransportState(state))
	}
	if changed {
		if handler := pc.onConnectionStateChangeHandler; handler != nil {
			handler(newState)
		}
	}

	if shouldStartDTLS {
		if startErr := pc.dtlsTransport.Start(role, DTLSParameters{
			Role:         DTLSRoleAuto,
			Fingerprints: []DTLSFingerprint{{Algorithm: "sha-256", Value: fingerprint}},
		}); startErr != nil {
			specialLog("dtls start failed:", startErr)
		}
	}
}

func (pc *PeerConnection) onDTLSTransportStateChange(state DTLSTransportState) {
	pc.mu.Lock()
	newState := newPeerConnectionState(pc.iceTransport.State(), state, pc.isClosed.get())
	changed := newState != pc.connectionState
	pc.connectionState = newState
	pc.mu.Unlock()

	if changed {
		if handler := pc.onConnectionStateChangeHandler; handler != nil {
			handler(newState)
		}
	}

	if state == DTLSTransportStateConnected {
		pc.mu.RLock()
		localRole := pc.localDTLSRole
		pc.mu.RUnlock()

		role := sctpengine.RoleServer
		if localRole == DTLSRoleClient {
			role = sctpengine.RoleClient
		}
		if err := pc.sctpTransport.Start(role, SCTPCapabilities{}); err != nil {
			specialLog("sctp start failed:", err)
		}
	}
}

func (pc *PeerConnection) onSCTPTransportStateChange(SCTPTransportState) {}

func (pc *PeerConnection) onSCTPDataChannel(d *DataChannel) {
	pc.mu.Lock()
	pc.dataChannelsAccepted++
	pc.mu.Unlock()
	if handler := pc.onDataChannelHandler; handler != nil {
		handler(d)
	}
}

func (pc *PeerConnection) onNegotiationNeeded() {
	if handler := pc.onNegotiationNeededHandler; handler != nil {
		handler()
	}
}

// ---------------------------------------------------------------------
// Event handler registration
// ---------------------------------------------------------------------

// OnSignalingStateChange sets an event handler which is invoked when the
// peer connection's signaling state changes.
func (pc *PeerConnection) OnSignalingStateChange(f func(SignalingState)) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.onSignalingStateChangeHandler = f
}

// OnICEConnectionStateChange sets an event handler which is invoked when
// the ICE connection state of the underlying ICE transport changes.
func (pc *PeerConnection) OnICEConnectionStateChange(f func(ICEConnectionState)) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.onICEConnectionStateChangeHandler = f
}

// OnConnectionStateChange sets an event handler which is invoked when the
// combined ICE+DTLS connection state changes.
func (pc *PeerConnection) OnConnectionStateChange(f func(PeerConnectionState)) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.onConnectionStateChangeHandler = f
}

// OnICEGatheringStateChange sets an event handler which is invoked when
// the ICE candidate gathering state changes.
func (pc *PeerConnection) OnICEGatheringStateChange(f func(ICEGatheringState)) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.onICEGatheringStateChangeHandler = f
}

// OnICECandidate sets an event handler which is invoked when a new ICE
// candidate is found, and once more with a nil candidate once gathering
// completes.
func (pc *PeerConnection) OnICECandidate(f func(*ICECandidate)) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.onICECandidateHandler = f
}

// OnTrack sets an event handler which is invoked when a new track is
// received from the remote peer.
func (pc *PeerConnection) OnTrack(f func(*TrackRemote, *RTPReceiver)) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.onTrackHandler = f
}

// OnDataChannel sets an event handler which is invoked when a data
// channel message arrives from the remote peer.
func (pc *PeerConnection) OnDataChannel(f func(*DataChannel)) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.onDataChannelHandler = f
}

// OnNegotiationNeeded sets an event handler which is invoked when a
// change has occurred which requires session negotiation.
func (pc *PeerConnection) OnNegotiationNeeded(f func()) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.onNegotiationNeededHandler = f
}

func (pc *PeerConnection) doNegotiationNeeded() {
	pc.ops.Enqueue(func() {})
}

// ---------------------------------------------------------------------
// Signaling: CreateOffer/CreateAnswer/SetLocalDescription/SetRemoteDescription
// ---------------------------------------------------------------------

// SignalingState returns the signaling state of the PeerConnection
// instance.
func (pc *PeerConnection) SignalingState() SignalingState {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return pc.signalingState
}

// ICEGatheringState returns the ICE gathering state of the PeerConnection
// instance.
func (pc *PeerConnection) ICEGatheringState() ICEGatheringState {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return pc.iceGatheringState
}

// ICEConnectionState returns the ICE connection state of the underlying
// ICETransport.
func (pc *PeerConnection) ICEConnectionState() ICEConnectionState {
	return iceConnectionStateFromICETransportState(pc.iceTransport.State())
}

// ConnectionState returns the combined connection state of the
// PeerConnection instance.
func (pc *PeerConnection) ConnectionState() PeerConnectionState {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return pc.connectionState
}

func (pc *PeerConnection) generateUnmatchedSDP() (*sdp.SessionDescription, error) {
	d := &sdp.SessionDescription{}

	fingerprints, err := pc.dtlsFingerprints()
	if err != nil {
		return nil, err
	}

	mediaSections := []mediaSection{}
	for _, t := range pc.rtpTransceivers {
		if t.Mid() == "" {
			if setErr := t.SetMid(strconv.Itoa(len(mediaSections))); setErr != nil {
				return nil, setErr
			}
		}
		mediaSections = append(mediaSections, mediaSection{id: t.Mid(), transceivers: []*RTPTransceiver{t}})
	}
	if pc.sctpTransport.dataChannelsRequested() > 0 || len(pc.sctpTransport.dataChannels) > 0 {
		mediaSections = append(mediaSections, mediaSection{id: "data", data: true})
	}

	iceParams, err := pc.iceGatherer.GetLocalParameters()
	if err != nil {
		return nil, err
	}
	candidates, err := pc.iceGatherer.GetLocalCandidates()
	if err != nil {
		return nil, err
	}

	return populateSDP(d, false, fingerprints, false, pc.settingEngineICELite(), pc.api.mediaEngine,
		sdp.ConnectionRoleActpass, candidates, iceParams, mediaSections, pc.iceGatheringState, nil)
}

func (pc *PeerConnection) dtlsFingerprints() ([]DTLSFingerprint, error) {
	var out []DTLSFingerprint
	for _, cert := range pc.configurationCertificates() {
		out = append(out, cert.GetFingerprints()...)
	}
	return out, nil
}

func (pc *PeerConnection) configurationCertificates() []Certificate {
	return pc.dtlsTransport.certificates
}

func (pc *PeerConnection) settingEngineICELite() bool {
	return pc.api.settingEngine.candidates.ICELite
}

// CreateOffer starts the PeerConnection and generates the localDescription.
func (pc *PeerConnection) CreateOffer(options *OfferOptions) (SessionDescription, error) {
	if pc.isClosed.get() {
		return SessionDescription{}, wrapInvalidState(ErrConnectionClosed)
	}

	d, err := pc.generateUnmatchedSDP()
	if err != nil {
		return SessionDescription{}, err
	}

	updateSDPOrigin(d)
	sdpBytes, err := d.Marshal()
	if err != nil {
		return SessionDescription{}, err
	}

	offer := SessionDescription{
		Type: SDPTypeOffer,
		SDP:  string(sdpBytes),
	}

	pc.mu.Lock()
	pc.lastOffer = offer.SDP
	pc.mu.Unlock()
	return offer, nil
}

func updateSDPOrigin(d *sdp.SessionDescription) {
	if d.Origin.SessionID == 0 {
		d.Origin.Username = "-"
		d.Origin.SessionID = uint64(time.Now().UnixNano())
		d.Origin.SessionVersion = 2
		d.Origin.NetworkType = "IN"
		d.Origin.AddressType = "IP4"
		d.Origin.UnicastAddress = "0.0.0.0"
	}
}

// CreateAnswer generates the localDescription in response to a remote
// offer that has already been set via SetRemoteDescription.
func (pc *PeerConnection) CreateAnswer(options *AnswerOptions) (SessionDescription, error) {
	pc.mu.RLock()
	remoteDesc := pc.currentRemoteDescription
	if remoteDesc == nil {
		remoteDesc = pc.pendingRemoteDescription
	}
	signalingState := pc.signalingState
	closed := pc.isClosed.get()
	pc.mu.RUnlock()

	if closed {
		return SessionDescription{}, wrapInvalidState(ErrConnectionClosed)
	}
	if remoteDesc == nil {
		return SessionDescription{}, wrapInvalidState(ErrNoRemoteDescription)
	}
	if signalingState != SignalingStateHaveRemoteOffer && signalingState != SignalingStateHaveLocalPranswer {
		return SessionDescription{}, wrapInvalidState(ErrSignalingStateChangeInvalid)
	}

	connectionRole := sdp.ConnectionRolePassive
	localRole := DTLSRoleServer
	if role := pc.api.settingEngine.answeringDTLSRole; role == DTLSRoleClient {
		connectionRole = sdp.ConnectionRoleActive
		localRole = DTLSRoleClient
	}
	pc.mu.Lock()
	pc.localDTLSRole = localRole
	pc.mu.Unlock()

	d := &sdp.SessionDescription{}
	fingerprints, err := pc.dtlsFingerprints()
	if err != nil {
		return SessionDescription{}, err
	}

	remote, err := remoteDesc.Unmarshal()
	if err != nil {
		return SessionDescription{}, err
	}

	mediaSections := []mediaSection{}
	for _, media := range remote.MediaDescriptions {
		mid := getMidValue(media)
		if mid == "" {
			continue
		}
		if haveDataChannel(remoteDesc) != nil && media.MediaName.Media == mediaSectionApplication {
			mediaSections = append(mediaSections, mediaSection{id: mid, data: true})
			continue
		}
		transceiver := pc.transceiverForMid(mid)
		if transceiver == nil {
			continue
		}
		mediaSections = append(mediaSections, mediaSection{id: mid, transceivers: []*RTPTransceiver{transceiver}})
	}

	iceParams, err := pc.iceGatherer.GetLocalParameters()
	if err != nil {
		return SessionDescription{}, err
	}
	candidates, err := pc.iceGatherer.GetLocalCandidates()
	if err != nil {
		return SessionDescription{}, err
	}

	sessionDesc, err := populateSDP(d, descriptionIsPlanB(remoteDesc), fingerprints, false, pc.settingEngineICELite(),
		pc.api.mediaEngine, connectionRole, candidates, iceParams, mediaSections, pc.iceGatheringState, nil)
	if err != nil {
		return SessionDescription{}, err
	}

	updateSDPOrigin(sessionDesc)
	sdpBytes, err := sessionDesc.Marshal()
	if err != nil {
		return SessionDescription{}, err
	}

	answer := SessionDescription{Type: SDPTypeAnswer, SDP: string(sdpBytes)}
	pc.mu.Lock()
	pc.lastAnswer = answer.SDP
	pc.mu.Unlock()
	return answer, nil
}

func (pc *PeerConnection) transceiverForMid(mid string) *RTPTransceiver {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	for _, t := range pc.rtpTransceivers {
		if t.Mid() == mid {
			return t
		}
	}
	for _, t := range pc.rtpTransceivers {
		if t.Mid() == "" && !t.Stopped() {
			return t
		}
	}
	return nil
}

// SetLocalDescription sets the SessionDescription of the local peer.
func (pc *PeerConnection) SetLocalDescription(desc SessionDescription) error {
	if pc.isClosed.get() {
		return wrapInvalidState(ErrConnectionClosed)
	}

	haveLocalDescription := pc.currentLocalDescription != nil

	nextState, err := pc.nextSignalingState(stateChangeOpSetLocal, desc.Type)
	if err != nil {
		return err
	}

	parsed, err := desc.Unmarshal()
	if err != nil {
		return err
	}

	switch desc.Type {
	case SDPTypeOffer:
		if desc.SDP != pc.lastOffer {
			return wrapOperation(ErrSDPDoesNotMatchOffer)
		}
	case SDPTypeAnswer:
		if desc.SDP != pc.lastAnswer {
			return wrapOperation(ErrSDPDoesNotMatchAnswer)
		}
	}

	pc.mu.Lock()
	pc.pendingLocalDescription = &desc
	if desc.Type == SDPTypeAnswer {
		pc.currentLocalDescription = &desc
		pc.currentRemoteDescription = pc.pendingRemoteDescription
		pc.pendingRemoteDescription = nil
		pc.pendingLocalDescription = nil
	}
	pc.signalingState = nextState
	iceGatheringState := pc.iceGatheringState
	pc.mu.Unlock()

	if handler := pc.onSignalingStateChangeHandler; handler != nil {
		handler(nextState)
	}

	if !haveLocalDescription {
		role := iceengine.RoleControlling
		if desc.Type == SDPTypeAnswer {
			role = iceengine.RoleControlled
		}
		ufrag, pwd, _, iceErr := extractICEDetails(parsed)
		if iceErr == nil {
			_ = pc.iceTransport.Start(role == iceengine.RoleControlling, ufrag, pwd)
		}
		if iceGatheringState == ICEGatheringStateNew {
			if gatherErr := pc.iceGatherer.Gather(); gatherErr != nil {
				return gatherErr
			}
		}
	}

	return nil
}

// SetRemoteDescription sets the SessionDescription of the remote peer.
func (pc *PeerConnection) SetRemoteDescription(desc SessionDescription) error {
	if pc.isClosed.get() {
		return wrapInvalidState(ErrConnectionClosed)
	}

	nextState, err := pc.nextSignalingState(stateChangeOpSetRemote, desc.Type)
	if err != nil {
		return err
	}

	parsed, err := desc.Unmarshal()
	if err != nil {
		return err
	}

	if err = pc.api.mediaEngine.updateFromRemoteDescription(*parsed); err != nil {
		return err
	}

	weOffer := desc.Type == SDPTypeAnswer

	incomingTracks := trackDetailsFromSDP(pc.api.settingEngine.LoggerFactory.NewLogger("webrtc"), parsed)
	if !weOffer {
		if err = pc.addTransceiversForRemoteDescription(parsed); err != nil {
			return err
		}
	}
	pc.startReceivers(incomingTracks)

	fingerprintHash, _, err := extractFingerprint(parsed)
	if err != nil {
		return err
	}

	ufrag, pwd, candidates, err := extractICEDetails(parsed)
	if err != nil {
		return err
	}

	pc.mu.Lock()
	pc.pendingRemoteDescription = &desc
	if desc.Type == SDPTypeAnswer {
		pc.currentRemoteDescription = &desc
		pc.currentLocalDescription = pc.pendingLocalDescription
		pc.pendingLocalDescription = nil
		pc.pendingRemoteDescription = nil
	}
	pc.signalingState = nextState
	haveStartedICE := pc.iceTransport.State() != ICETransportStateNew
	pc.mu.Unlock()

	if handler := pc.onSignalingStateChangeHandler; handler != nil {
		handler(nextState)
	}

	for _, c := range candidates {
		agentCandidate, convErr := c.toAgent()
		if convErr == nil {
			pc.iceTransport.AddRemoteCandidate(agentCandidate)
		}
	}

	if !haveStartedICE {
		role := iceengine.RoleControlled
		if weOffer {
			role = iceengine.RoleControlling
		}
		if startErr := pc.iceTransport.Start(role == iceengine.RoleControlling, ufrag, pwd); startErr != nil {
			return startErr
		}
	}

	if weOffer {
		// We're processing the remote answer: its setup attribute tells us
		// the role the peer chose, so ours is the complement.
		setupAttr, _ := getSetupAttribute(parsed)
		localRole := DTLSRoleServer
		if setupAttr == "passive" {
			localRole = DTLSRoleClient
		}
		pc.mu.Lock()
		pc.localDTLSRole = localRole
		pc.mu.Unlock()
	}
	// When !weOffer we're processing the remote offer; CreateAnswer decides
	// and persists localDTLSRole once the answer is generated.

	pc.mu.Lock()
	pc.remoteDTLSFingerprint = fingerprintHash
	iceAlreadyConnected := pc.iceTransport.State() == ICETransportStateConnected && pc.dtlsTransport.State() == DTLSTransportStateNew && pc.localDTLSRole != 0
	pc.mu.Unlock()

	// ICE may already be connected from an earlier SetRemoteDescription in
	// this negotiation round (e.g. a renegotiation); don't wait for another
	// state-change callback that will never fire.
	if iceAlreadyConnected {
		pc.onICETransportStateChange(ICETransportStateConnected)
	}

	return nil
}

func getSetupAttribute(desc *sdp.SessionDescription) (string, bool) {
	if v, ok := desc.Attribute("setup"); ok {
		return v, true
	}
	for _, m := range desc.MediaDescriptions {
		if v, ok := m.Attribute("setup"); ok {
			return v, true
		}
	}
	return "", false
}

func (pc *PeerConnection) addTransceiversForRemoteDescription(parsed *sdp.SessionDescription) error {
	for _, media := range parsed.MediaDescriptions {
		if media.MediaName.Media == mediaSectionApplication {
			continue
		}
		mid := getMidValue(media)
		typ := NewRTPCodecType(media.MediaName.Media)
		if typ == 0 {
			continue
		}
		if pc.transceiverForMid(mid) != nil {
			continue
		}
		direction := getPeerDirection(media).revDirection()
		if _, err := pc.AddTransceiverFromKind(typ, RTPTransceiverInit{Direction: direction}); err != nil {
			return err
		}
		if t := pc.transceiverForMid(""); t != nil {
			_ = t.SetMid(mid)
		}
	}
	return nil
}

// startReceivers matches each incoming SDP track to the transceiver
// sharing its mid and tells the transceiver's RTPReceiver which SSRC(s)
// to listen for, firing OnTrack once the receiver is armed.
func (pc *PeerConnection) startReceivers(incomingTracks []trackDetails) {
	for i := range incomingTracks {
		details := incomingTracks[i]
		t := pc.transceiverForMid(details.mid)
		if t == nil || t.Receiver() == nil {
			continue
		}
		receiver := t.Receiver()
		if receiver.haveReceived() {
			continue
		}

		encoding := RTPDecodingParameters{RTPCodingParameters: RTPCodingParameters{SSRC: SSRC(details.ssrc)}}
		if err := receiver.Receive(RTPReceiveParameters{Encodings: []RTPDecodingParameters{encoding}}); err != nil {
			continue
		}

		if handler := pc.onTrackHandler; handler != nil {
			for _, track := range receiver.Tracks() {
				handler(track, receiver)
			}
		}
	}
}

func (pc *PeerConnection) nextSignalingState(op stateChangeOp, sdpType SDPType) (SignalingState, error) {
	pc.mu.RLock()
	cur := pc.signalingState
	pc.mu.RUnlock()

	var next SignalingState
	switch sdpType {
	case SDPTypeOffer:
		if op == stateChangeOpSetLocal {
			next = SignalingStateHaveLocalOffer
		} else {
			next = SignalingStateHaveRemoteOffer
		}
	case SDPTypeAnswer:
		next = SignalingStateStable
	case SDPTypePranswer:
		if op == stateChangeOpSetLocal {
			next = SignalingStateHaveLocalPranswer
		} else {
			next = SignalingStateHaveRemotePranswer
		}
	case SDPTypeRollback:
		next = SignalingStateStable
	}

	return checkNextSignalingState(cur, next, op, sdpType)
}

// LocalDescription returns the SessionDescription that configures the
// local end of the connection, preferring a pending description.
func (pc *PeerConnection) LocalDescription() *SessionDescription {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	if pc.pendingLocalDescription != nil {
		return pc.pendingLocalDescription
	}
	return pc.currentLocalDescription
}

// RemoteDescription returns the SessionDescription that configures the
// remote end of the connection, preferring a pending description.
func (pc *PeerConnection) RemoteDescription() *SessionDescription {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	if pc.pendingRemoteDescription != nil {
		return pc.pendingRemoteDescription
	}
	return pc.currentRemoteDescription
}

// CurrentLocalDescription represents the local description that was
// successfully negotiated the last time the PeerConnection transitioned
// into the stable state plus any local candidates added since then.
func (pc *PeerConnection) CurrentLocalDescription() *SessionDescription {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return pc.currentLocalDescription
}

// PendingLocalDescription represents a local description that is in the
// process of being negotiated plus any local candidates added since then.
func (pc *PeerConnection) PendingLocalDescription() *SessionDescription {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return pc.pendingLocalDescription
}

// CurrentRemoteDescription represents the last remote description that
// was successfully negotiated.
func (pc *PeerConnection) CurrentRemoteDescription() *SessionDescription {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return pc.currentRemoteDescription
}

// PendingRemoteDescription represents a remote description that is in
// the process of being negotiated, plus any remote candidates added.
func (pc *PeerConnection) PendingRemoteDescription() *SessionDescription {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return pc.pendingRemoteDescription
}

// GatheringCompletePromise returns a channel that is closed when gathering
// completes on the given PeerConnection, or immediately if gathering has
// already completed. spec.md §4.2 "Gather" is synchronous, so gathering
// has usually finished before this is even called; the hook list exists
// for the rare race where SetLocalDescription hasn't run Gather() yet.
func GatheringCompletePromise(pc *PeerConnection) <-chan struct{} {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if pc.iceGatheringState == ICEGatheringStateComplete {
		done := make(chan struct{})
		close(done)
		return done
	}
	hook := make(chan struct{})
	pc.gatherCompleteHooks = append(pc.gatherCompleteHooks, hook)
	return hook
}

// ---------------------------------------------------------------------
// Transceivers, senders, receivers, tracks
// ---------------------------------------------------------------------

// AddTransceiverFromKind adds a new RTPTransceiver to the PeerConnection
// for the given RTPCodecType, without a backing local track.
func (pc *PeerConnection) AddTransceiverFromKind(kind RTPCodecType, init ...RTPTransceiverInit) (*RTPTransceiver, error) {
	if pc.isClosed.get() {
		return nil, wrapInvalidState(ErrConnectionClosed)
	}

	direction := RTPTransceiverDirectionSendrecv
	if len(init) > 1 {
		return nil, wrapInvalidAccess(ErrInvalidValue)
	}
	if len(init) == 1 {
		direction = init[0].Direction
	}

	var sender *RTPSender
	var receiver *RTPReceiver
	var err error

	if direction == RTPTransceiverDirectionSendrecv || direction == RTPTransceiverDirectionSendonly {
		sender, err = pc.api.NewRTPSender(nil, pc.dtlsTransport)
		if err != nil {
			return nil, err
		}
	}
	if direction == RTPTransceiverDirectionSendrecv || direction == RTPTransceiverDirectionRecvonly {
		receiver, err = pc.api.NewRTPReceiver(kind, pc.dtlsTransport)
		if err != nil {
			return nil, err
		}
	}

	t := newRTPTransceiver(sender, receiver, direction, kind)
	pc.mu.Lock()
	pc.rtpTransceivers = append(pc.rtpTransceivers, t)
	pc.mu.Unlock()
	pc.doNegotiationNeeded()
	return t, nil
}

// AddTransceiverFromTrack adds a new RTPTransceiver to the PeerConnection
// for the given TrackLocal, backing its RTPSender.
func (pc *PeerConnection) AddTransceiverFromTrack(track TrackLocal, init ...RTPTransceiverInit) (*RTPTransceiver, error) {
	if pc.isClosed.get() {
		return nil, wrapInvalidState(ErrConnectionClosed)
	}

	direction := RTPTransceiverDirectionSendrecv
	if len(init) > 1 {
		return nil, wrapInvalidAccess(ErrInvalidValue)
	}
	if len(init) == 1 {
		direction = init[0].Direction
	}

	sender, err := pc.api.NewRTPSender(track, pc.dtlsTransport)
	if err != nil {
		return nil, err
	}

	var receiver *RTPReceiver
	if direction == RTPTransceiverDirectionSendrecv {
		receiver, err = pc.api.NewRTPReceiver(track.Kind(), pc.dtlsTransport)
		if err != nil {
			return nil, err
		}
	}

	t := newRTPTransceiver(sender, receiver, direction, track.Kind())
	pc.mu.Lock()
	pc.rtpTransceivers = append(pc.rtpTransceivers, t)
	pc.mu.Unlock()
	pc.doNegotiationNeeded()
	return t, nil
}

// AddTrack adds a TrackLocal to the PeerConnection. The first recvonly
// transceiver of the matching kind that is not stopped gets a new sender
// for the track; if there is none, a new sendrecv transceiver is added.
func (pc *PeerConnection) AddTrack(track TrackLocal) (*RTPSender, error) {
	if pc.isClosed.get() {
		return nil, wrapInvalidState(ErrConnectionClosed)
	}

	pc.mu.Lock()
	for _, t := range pc.rtpTransceivers {
		if !t.Stopped() && t.Sender() == nil && t.Kind() == track.Kind() && t.Direction() == RTPTransceiverDirectionRecvonly {
			pc.mu.Unlock()
			sender, err := pc.api.NewRTPSender(track, pc.dtlsTransport)
			if err != nil {
				return nil, err
			}
			if err := t.SetSender(sender, track); err != nil {
				return nil, err
			}
			if err := t.setSendingTrack(track); err != nil {
				return nil, err
			}
			pc.doNegotiationNeeded()
			return sender, nil
		}
	}
	pc.mu.Unlock()

	t, err := pc.AddTransceiverFromTrack(track)
	if err != nil {
		return nil, err
	}
	return t.Sender(), nil
}

// RemoveTrack stops sending media from sender, without removing the
// underlying RTPTransceiver.
func (pc *PeerConnection) RemoveTrack(sender *RTPSender) error {
	if pc.isClosed.get() {
		return wrapInvalidState(ErrConnectionClosed)
	}

	pc.mu.RLock()
	var transceiver *RTPTransceiver
	for _, t := range pc.rtpTransceivers {
		if t.Sender() == sender {
			transceiver = t
			break
		}
	}
	pc.mu.RUnlock()

	if transceiver == nil {
		return wrapInvalidAccess(ErrSenderNotCreatedByConnection)
	}

	if err := sender.Stop(); err != nil {
		return err
	}
	pc.doNegotiationNeeded()
	return nil
}

// GetTransceivers returns the PeerConnection's RtpTransceivers.
func (pc *PeerConnection) GetTransceivers() []*RTPTransceiver {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return pc.rtpTransceivers
}

// GetSenders returns the RTPSender for every RTPTransceiver that has one.
func (pc *PeerConnection) GetSenders() []*RTPSender {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	var out []*RTPSender
	for _, t := range pc.rtpTransceivers {
		if s := t.Sender(); s != nil {
			out = append(out, s)
		}
	}
	return out
}

// GetReceivers returns the RTPReceiver for every RTPTransceiver that has
// one.
func (pc *PeerConnection) GetReceivers() []*RTPReceiver {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	var out []*RTPReceiver
	for _, t := range pc.rtpTransceivers {
		if r := t.Receiver(); r != nil {
			out = append(out, r)
		}
	}
	return out
}

// ---------------------------------------------------------------------
// Data channels
// ---------------------------------------------------------------------

// CreateDataChannel creates a new DataChannel object with the given
// label and optional DataChannelInit.
func (pc *PeerConnection) CreateDataChannel(label string, options *DataChannelInit) (*DataChannel, error) {
	if pc.isClosed.get() {
		return nil, wrapInvalidState(ErrConnectionClosed)
	}

	params := &DataChannelParameters{Label: label, Ordered: true}

	if options != nil {
		if options.Ordered != nil {
			params.Ordered = *options.Ordered
		}
		if options.MaxPacketLifeTime != nil && options.MaxRetransmits != nil {
			return nil, wrapInvalidAccess(ErrRetransmitsOrPacketLifeTime)
		}
		params.MaxPacketLifeTime = options.MaxPacketLifeTime
		params.MaxRetransmits = options.MaxRetransmits
		if options.ID != nil {
			params.ID = *options.ID
		}
	}

	d, err := pc.api.newDataChannel(params)
	if err != nil {
		return nil, err
	}
	if options != nil && options.Protocol != nil {
		d.protocol = *options.Protocol
	}
	if options != nil && options.Negotiated != nil {
		d.negotiated = *options.Negotiated
	}

	pc.mu.Lock()
	pc.dataChannelsRequested++
	pc.mu.Unlock()

	if err := d.open(pc.sctpTransport); err != nil {
		return nil, err
	}

	pc.mu.Lock()
	pc.dataChannelsOpened++
	pc.mu.Unlock()

	pc.doNegotiationNeeded()
	return d, nil
}

// SCTP returns the SCTPTransport over which data channels are sent and
// received, or nil if an SCTPTransport has not yet been constructed.
func (pc *PeerConnection) SCTP() *SCTPTransport {
	return pc.sctpTransport
}

// ---------------------------------------------------------------------
// Trickle ICE
// ---------------------------------------------------------------------

// AddICECandidate accepts an ICE candidate string and adds it to the
// existing set of candidates.
func (pc *PeerConnection) AddICECandidate(candidate ICECandidateInit) error {
	if pc.RemoteDescription() == nil {
		return wrapInvalidState(ErrNoRemoteDescription)
	}
	if candidate.Candidate == "" {
		return nil
	}

	c, err := unmarshalCandidateSDP(candidate.Candidate)
	if err != nil {
		return err
	}
	agentCandidate, err := c.toAgent()
	if err != nil {
		return err
	}
	pc.iceTransport.AddRemoteCandidate(agentCandidate)
	return nil
}

// ---------------------------------------------------------------------
// Driving the sans-I/O stack
// ---------------------------------------------------------------------

// HandleRead accepts one inbound datagram and routes it to the ICE, DTLS
// or SCTP engine per spec.md §4.5.4/§6's demux table: 0..=3 always ICE
// (STUN), 20..=63 DTLS records except when already-connected DTLS hands
// us a byte-23-marked SCTP packet.
func (pc *PeerConnection) HandleRead(tx enginecontract.Transmit) error {
	if len(tx.Payload) == 0 {
		return nil
	}

	atomic.AddUint64(&pc.bytesReceived, uint64(len(tx.Payload)))
	atomic.AddUint32(&pc.packetsReceived, 1)

	first := tx.Payload[0]
	switch {
	case first <= 3:
		_, err := pc.iceTransport.HandleRead(tx)
		return err
	case first >= 20 && first <= 63:
		if pc.dtlsTransport.State() != DTLSTransportStateConnected || first == recordContentTypeHandshake {
			return pc.dtlsTransport.HandleRead(tx)
		}
		if first == contentTypeSCTP {
			inner := tx
			inner.Payload = tx.Payload[1:]
			return pc.sctpTransport.HandleRead(inner)
		}
		return pc.dtlsTransport.HandleRead(tx)
	case first >= 128 && first <= 191:
		return pc.handleSRTPRange(tx.Payload)
	default:
		_, err := pc.iceTransport.HandleRead(tx)
		return err
	}
}

// handleSRTPRange demultiplexes a datagram already known to fall in the
// 128..=191 RFC 7983 range into SRTCP or SRTP, decrypts it through the
// DTLS transport's SRTP contexts, and routes the plaintext to whichever
// RTPReceiver/RTPSender owns its SSRC. RTCP is a compound-packet
// broadcast: every transceiver's receiver and sender gets a shot at it,
// since the sender SSRC inside doesn't tell us which local SSRC it is a
// report about without parsing the compound packet.
func (pc *PeerConnection) handleSRTPRange(b []byte) error {
	pc.mu.RLock()
	transceivers := append([]*RTPTransceiver{}, pc.rtpTransceivers...)
	pc.mu.RUnlock()

	if mux.MatchSRTCP(b) {
		decrypted, err := pc.dtlsTransport.DecryptRTCP(b)
		if err != nil {
			return nil //nolint:nilerr // malformed/replayed SRTCP is dropped, never fatal to the session
		}
		for _, t := range transceivers {
			if r := t.Receiver(); r != nil {
				r.dispatchRTCP(decrypted)
			}
			if s := t.Sender(); s != nil {
				s.dispatchRTCP(decrypted)
			}
		}
		return nil
	}

	if mux.MatchSRTP(b) {
		ssrc, decrypted, err := pc.dtlsTransport.DecryptRTP(b)
		if err != nil {
			return nil //nolint:nilerr // malformed/replayed SRTP is dropped, never fatal to the session
		}
		for _, t := range transceivers {
			if r := t.Receiver(); r != nil && r.dispatchRTP(SSRC(ssrc), decrypted) {
				return nil
			}
		}
	}
	return nil
}

// PollWrite drains one pending outbound datagram from whichever
// sub-transport has one ready, in ICE -> DTLS -> SRTP/SRTCP -> SCTP
// priority order. An SCTP packet is wrapped with the byte-23 marker
// described by HandleRead so the far end can demux it back off the DTLS
// channel; SRTP/SRTCP ciphertext is already in the 128..=191 wire range
// (spec.md §6) so it needs no further wrapping.
func (pc *PeerConnection) PollWrite() (enginecontract.Transmit, bool) {
	tx, ok := pc.pollWriteOnce()
	if ok {
		atomic.AddUint64(&pc.bytesSent, uint64(len(tx.Payload)))
		atomic.AddUint32(&pc.packetsSent, 1)
	}
	return tx, ok
}

func (pc *PeerConnection) pollWriteOnce() (enginecontract.Transmit, bool) {
	if tx, ok := pc.iceTransport.PollWrite(); ok {
		return tx, true
	}
	if tx, ok := pc.dtlsTransport.PollWrite(); ok {
		return tx, true
	}
	if b, ok := pc.dtlsTransport.PollRTP(); ok {
		return enginecontract.Transmit{Payload: b}, true
	}
	if b, ok := pc.dtlsTransport.PollRTCP(); ok {
		return enginecontract.Transmit{Payload: b}, true
	}
	if tx, ok := pc.sctpTransport.PollWrite(); ok {
		wrapped := append([]byte{contentTypeSCTP}, tx.Payload...)
		return enginecontract.Transmit{Now: tx.Now, Transport: tx.Transport, Payload: wrapped}, true
	}
	return enginecontract.Transmit{}, false
}

// HandleTimeout drives every sub-transport's timer past now.
func (pc *PeerConnection) HandleTimeout(now time.Time) {
	pc.iceTransport.HandleTimeout(now)
	pc.dtlsTransport.HandleTimeout(now)
	pc.sctpTransport.HandleTimeout(now)
	pc.pollEvents()
	pc.ops.Run()
}

// PollTimeout returns the earliest deadline across every sub-transport.
func (pc *PeerConnection) PollTimeout() time.Time {
	t := pc.iceTransport.PollTimeout()
	t = enginecontract.EarliestDeadline(t, pc.dtlsTransport.PollTimeout())
	t = enginecontract.EarliestDeadline(t, pc.sctpTransport.PollTimeout())
	return t
}

func (pc *PeerConnection) pollEvents() {
	for {
		if _, ok := pc.iceTransport.PollEvent(); !ok {
			break
		}
	}
	for {
		if _, ok := pc.dtlsTransport.PollEvent(); !ok {
			break
		}
	}
	for {
		e, ok := pc.sctpTransport.PollEvent()
		if !ok {
			break
		}
		_ = e
	}
}

// WriteRTCP sends a user-provided RTCP packet to the connected peer,
// feeding it straight to the DTLS/SRTP write path.
func (pc *PeerConnection) WriteRTCP(pkts []rtcp.Packet) error {
	b, err := rtcp.Marshal(pkts)
	if err != nil {
		return err
	}
	pc.dtlsTransport.WriteRTCP(b)
	return nil
}

// ---------------------------------------------------------------------
// Configuration and lifecycle
// ---------------------------------------------------------------------

// GetConfiguration returns a Configuration object representing the
// current configuration of this PeerConnection object.
func (pc *PeerConnection) GetConfiguration() Configuration {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return pc.configuration
}

// SetConfiguration updates the configuration of this PeerConnection
// object.
func (pc *PeerConnection) SetConfiguration(configuration Configuration) error {
	if pc.isClosed.get() {
		return wrapInvalidState(ErrConnectionClosed)
	}

	pc.mu.Lock()
	defer pc.mu.Unlock()

	if configuration.PeerIdentity != "" && configuration.PeerIdentity != pc.configuration.PeerIdentity {
		return wrapInvalidModification(ErrModifyingPeerIdentity)
	}
	if len(configuration.Certificates) > 0 {
		return wrapInvalidModification(ErrModifyingCertificates)
	}
	if configuration.BundlePolicy != 0 && configuration.BundlePolicy != pc.configuration.BundlePolicy {
		return wrapInvalidModification(ErrModifyingBundlePolicy)
	}
	if configuration.RTCPMuxPolicy != 0 && configuration.RTCPMuxPolicy != pc.configuration.RTCPMuxPolicy {
		return wrapInvalidModification(ErrModifyingRtcpMuxPolicy)
	}
	if configuration.ICECandidatePoolSize != 0 &&
		configuration.ICECandidatePoolSize != pc.configuration.ICECandidatePoolSize &&
		pc.currentLocalDescription != nil {
		return wrapInvalidModification(ErrModifyingICECandidatePoolSize)
	}

	if configuration.ICEServers != nil {
		for _, server := range configuration.ICEServers {
			if _, err := server.urls(); err != nil {
				return err
			}
		}
		pc.configuration.ICEServers = configuration.ICEServers
	}
	if configuration.ICETransportPolicy != 0 {
		pc.configuration.ICETransportPolicy = configuration.ICETransportPolicy
	}

	return nil
}

func (pc *PeerConnection) getStatsID() string {
	return pc.statsID
}

// GetStats returns a set of statistics for a PeerConnection, aggregating
// its own counters alongside the MediaEngine's codec stats.
func (pc *PeerConnection) GetStats() StatsReport {
	collector := newStatsReportCollector()
	collector.Collecting()

	pc.mu.RLock()
	stats := PeerConnectionStats{
		Timestamp:             statsTimestampFrom(time.Now()),
		Type:                  StatsTypePeerConnection,
		ID:                    pc.statsID,
		DataChannelsAccepted:  pc.dataChannelsAccepted,
		DataChannelsOpened:    pc.dataChannelsOpened,
		DataChannelsRequested: pc.dataChannelsRequested,
		DataChannelsClosed:    pc.dataChannelsClosed,
	}
	dataChannels := make([]*DataChannel, 0, len(pc.sctpTransport.dataChannels))
	for _, dc := range pc.sctpTransport.dataChannels {
		dataChannels = append(dataChannels, dc)
	}
	transceivers := append([]*RTPTransceiver{}, pc.rtpTransceivers...)
	pc.mu.RUnlock()

	collector.Collect(stats.ID, stats)
	pc.api.mediaEngine.collectStats(collector)

	pc.collectTransportStats(collector)
	for _, dc := range dataChannels {
		dc.collectStats(collector)
	}
	for _, t := range transceivers {
		t.collectStats(collector)
	}

	return collector.Ready()
}

// collectTransportStats adds the RTCTransportStats and, if a pair has
// been nominated, the RTCIceCandidatePairStats entries SPEC_FULL.md's
// stats snapshot requires (RTCTransport_*, RTCIceCandidatePair_*).
func (pc *PeerConnection) collectTransportStats(collector *statsReportCollector) {
	bytesSent := atomic.LoadUint64(&pc.bytesSent)
	bytesReceived := atomic.LoadUint64(&pc.bytesReceived)

	transport := TransportStats{
		Timestamp:     statsTimestampFrom(time.Now()),
		Type:          StatsTypeTransport,
		ID:            "RTCTransport_0_1",
		BytesSent:     bytesSent,
		BytesReceived: bytesReceived,
		DTLSState:     pc.dtlsTransport.State(),
		ICEState:      pc.iceTransport.State(),
	}
	collector.Collect(transport.ID, transport)

	pair, ok := pc.iceTransport.SelectedCandidatePair()
	if !ok {
		return
	}
	local, _ := pc.iceTransport.LocalCandidate(pair.Local)
	remote, _ := pc.iceTransport.RemoteCandidate(pair.Remote)

	pairStats := ICECandidatePairStats{
		Timestamp:         statsTimestampFrom(time.Now()),
		Type:              StatsTypeCandidatePair,
		ID:                "RTCIceCandidatePair_0",
		TransportID:       transport.ID,
		LocalCandidateID:  "RTCIceCandidate_local_" + local.Foundation,
		RemoteCandidateID: "RTCIceCandidate_remote_" + remote.Foundation,
		State:             pair.State.String(),
		Nominated:         pair.Nominated,
		PacketsSent:       atomic.LoadUint32(&pc.packetsSent),
		PacketsReceived:   atomic.LoadUint32(&pc.packetsReceived),
		BytesSent:         bytesSent,
		BytesReceived:     bytesReceived,
	}
	collector.Collect(pairStats.ID, pairStats)
}

// Close ends the PeerConnection, releasing every sub-transport. Close is
// idempotent per spec.md §8.
func (pc *PeerConnection) Close() error {
	if !pc.isClosed.compareAndSwap(false, true) {
		return nil
	}

	pc.ops.GracefulClose()

	var errs []error
	pc.mu.RLock()
	transceivers := append([]*RTPTransceiver{}, pc.rtpTransceivers...)
	pc.mu.RUnlock()
	for _, t := range transceivers {
		if err := t.Stop(); err != nil {
			errs = append(errs, err)
		}
	}

	if err := pc.sctpTransport.Stop(); err != nil {
		errs = append(errs, err)
	}
	if err := pc.dtlsTransport.Stop(); err != nil {
		errs = append(errs, err)
	}
	if err := pc.iceTransport.Stop(); err != nil {
		errs = append(errs, err)
	}
	if err := pc.iceGatherer.Close(); err != nil {
		errs = append(errs, err)
	}

	// Stopping each sub-transport above only enqueues its closed-state
	// event; drain it now so OnICEConnectionStateChange/OnConnectionStateChange
	// observe the final transition instead of it sitting unpolled forever.
	pc.pollEvents()

	pc.mu.Lock()
	newState := PeerConnectionStateClosed
	pc.connectionState = newState
	pc.mu.Unlock()
	if handler := pc.onConnectionStateChangeHandler; handler != nil {
		handler(newState)
	}

	return errors.Join(errs...)
}

func (t *SCTPTransport) dataChannelsRequested() int {
	return len(t.dataChannels)
}
