package webrtc

import (
	"time"

	"github.com/sansio/rtc/enginecontract"
	"github.com/sansio/rtc/iceengine"
)

// ICETransport exposes the coordinator's ICE agent through the same
// sans-I/O surface as the other per-protocol transports, wrapping
// iceengine.Agent instead of owning a socket directly.
type ICETransport struct {
	agent *iceengine.Agent
	state ICETransportState

	onConnectionStateChangeHdlr func(ICETransportState)
}

// NewICETransport constructs a transport around a fresh ICE agent.
func NewICETransport(cfg iceengine.Config) *ICETransport {
	return &ICETransport{
		agent: iceengine.NewAgent(cfg),
		state: ICETransportStateNew,
	}
}

// newICETransportFromAgent wraps an already-constructed agent instead of
// creating a new one, so a PeerConnection's ICETransport and ICEGatherer
// share one set of local ufrag/pwd credentials and one candidate set.
func newICETransportFromAgent(a *iceengine.Agent) *ICETransport {
	return &ICETransport{agent: a, state: ICETransportStateNew}
}

// OnConnectionStateChange registers the state-change callback; invoked
// synchronously from PollEvent, which the PeerConnection drains from
// HandleTimeout and Close, never from a background goroutine.
func (t *ICETransport) OnConnectionStateChange(f func(ICETransportState)) {
	t.onConnectionStateChangeHdlr = f
}

// AddLocalCandidate records a locally gathered candidate.
func (t *ICETransport) AddLocalCandidate(c iceengine.Candidate) {
	t.agent.AddLocalCandidate(c)
}

// AddRemoteCandidate adds a candidate learned from the remote SDP or a
// trickled AddICECandidate call.
func (t *ICETransport) AddRemoteCandidate(c iceengine.Candidate) {
	t.agent.AddRemoteCandidate(c)
}

// Start begins connectivity checks once remote credentials are known.
func (t *ICETransport) Start(controlling bool, remoteUfrag, remotePwd string) error {
	return t.agent.StartConnectivityChecks(controlling, remoteUfrag, remotePwd)
}

// LocalCredentials returns this transport's ufrag/pwd for SDP generation.
func (t *ICETransport) LocalCredentials() (ufrag, pwd string) {
	return t.agent.GetLocalUserCredentials()
}

// HandleRead feeds one inbound datagram already classified as STUN.
// handled reports whether the payload was STUN traffic the agent consumed.
func (t *ICETransport) HandleRead(tx enginecontract.Transmit) (handled bool, err error) {
	return t.agent.HandleRead(tx)
}

// PollWrite drains pending outbound STUN datagrams.
func (t *ICETransport) PollWrite() (enginecontract.Transmit, bool) {
	return t.agent.PollWrite()
}

// PollEvent drains pending ICE events and updates transport state.
func (t *ICETransport) PollEvent() (iceengine.Event, bool) {
	e, ok := t.agent.PollEvent()
	if ok && e.Kind == iceengine.EventStateChange {
		t.state = iceTransportStateFromAgent(e.State)
		if t.onConnectionStateChangeHdlr != nil {
			t.onConnectionStateChangeHdlr(t.state)
		}
	}
	return e, ok
}

// HandleTimeout drives connectivity checks, keepalives, and liveness decay.
func (t *ICETransport) HandleTimeout(now time.Time) { t.agent.HandleTimeout(now) }

// PollTimeout reports when HandleTimeout should next run.
func (t *ICETransport) PollTimeout() time.Time { return t.agent.PollTimeout() }

// Restart generates fresh credentials through the agent, which drops its
// pairs, its selected pair and its remote candidates; the connection state
// is left as it is until Start runs connectivity checks again. The third
// argument is passed to the agent as keepLocalCandidates.
func (t *ICETransport) Restart(ufrag, pwd string, forceNew bool) (string, string, error) {
	return t.agent.Restart(ufrag, pwd, forceNew)
}

// State returns the current ICE transport state.
func (t *ICETransport) State() ICETransportState { return t.state }

// SelectedCandidatePair returns the agent's current nominated pair, if
// any, for use by GetStats' RTCIceCandidatePairStats entry.
func (t *ICETransport) SelectedCandidatePair() (iceengine.Pair, bool) {
	return t.agent.GetSelectedCandidatePair()
}

// LocalCandidate returns the local half of a Pair returned by
// SelectedCandidatePair.
func (t *ICETransport) LocalCandidate(idx int) (iceengine.Candidate, bool) {
	return t.agent.LocalCandidate(idx)
}

// RemoteCandidate returns the remote half of a Pair returned by
// SelectedCandidatePair.
func (t *ICETransport) RemoteCandidate(idx int) (iceengine.Candidate, bool) {
	return t.agent.RemoteCandidate(idx)
}

// Stop closes the underlying agent.
func (t *ICETransport) Stop() error { return t.agent.Close() }

func iceTransportStateFromAgent(s iceengine.ConnectionState) ICETransportState {
	switch s {
	case iceengine.StateNew:
		return ICETransportStateNew
	case iceengine.StateChecking:
		return ICETransportStateChecking
	case iceengine.StateConnected:
		return ICETransportStateConnected
	case iceengine.StateDisconnected:
		return ICETransportStateDisconnected
	case iceengine.StateFailed:
		return ICETransportStateFailed
	case iceengine.StateClosed:
		return ICETransportStateClosed
	default:
		return ICETransportStateNew
	}
}
