// +build !js

package webrtc

import (
	"sync"

	"github.com/sansio/rtc/iceengine"
)

// ICEGathererState describes the state of an ICEGatherer.
type ICEGathererState int

const (
	// ICEGathererStateUnknown is the zero-value of the enum.
	ICEGathererStateUnknown ICEGathererState = iota
	// ICEGathererStateNew indicates object has been created but
	// Gather has not been called.
	ICEGathererStateNew
	// ICEGathererStateGathering indicates Gather has been called and
	// candidates are being surfaced.
	ICEGathererStateGathering
	// ICEGathererStateComplete indicates all candidates have been
	// surfaced.
	ICEGathererStateComplete
	// ICEGathererStateClosed indicates Close has been called.
	ICEGathererStateClosed
)

func (s ICEGathererState) String() string {
	switch s {
	case ICEGathererStateNew:
		return "new"
	case ICEGathererStateGathering:
		return "gathering"
	case ICEGathererStateComplete:
		return "complete"
	case ICEGathererStateClosed:
		return "closed"
	default:
		return ErrUnknownType.Error()
	}
}

// ICEGatherer gathers local host/srflx/relay candidates and reports them
// to the PeerConnection. Because this module is sans-I/O, it never binds
// a socket or probes network interfaces itself: host candidates are the
// ones the application supplied via SettingEngine (e.g. a NAT 1:1
// mapping) or passed explicitly, and server-reflexive/relay candidates
// arrive the same way any other local candidate does -- by the caller
// invoking AddLocalCandidate once their own STUN/TURN client resolves
// one. Gather() simply replays whatever is configured and flips state.
type ICEGatherer struct {
	mu sync.RWMutex

	settingEngine *SettingEngine
	agent         *iceengine.Agent

	state ICEGathererState

	staticCandidates []ICECandidate
	onLocalCandidate func(*ICECandidate)
}

// NewICEGatherer creates a new ICEGatherer, wiring it to a fresh
// iceengine.Agent so GetLocalParameters can report the negotiated
// ufrag/pwd before connectivity checks start.
func (api *API) NewICEGatherer(opts ICEGatherOptions) (*ICEGatherer, error) {
	for _, server := range opts.ICEServers {
		if err := server.validate(); err != nil {
			return nil, err
		}
	}

	g := &ICEGatherer{
		settingEngine: api.settingEngine,
		state:         ICEGathererStateNew,
	}
	g.agent = iceengine.NewAgent(iceengine.Config{})
	return g, nil
}

// State returns the current state of the ICE gatherer.
func (g *ICEGatherer) State() ICEGathererState {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

// OnLocalCandidate sets an event handler which fires once per local
// candidate, and finally with a nil candidate once gathering completes.
func (g *ICEGatherer) OnLocalCandidate(f func(*ICECandidate)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onLocalCandidate = f
}

// addStaticCandidate registers a pre-resolved candidate (e.g. from
// SettingEngine's NAT 1:1 mapping) that Gather will surface.
func (g *ICEGatherer) addStaticCandidate(c ICECandidate) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.staticCandidates = append(g.staticCandidates, c)
}

// Gather surfaces every configured candidate to the OnLocalCandidate
// handler and transitions New -> Gathering -> Complete synchronously;
// there is no asynchronous network probe to wait on.
func (g *ICEGatherer) Gather() error {
	g.mu.Lock()
	g.state = ICEGathererStateGathering
	candidates := append([]ICECandidate(nil), g.staticCandidates...)
	handler := g.onLocalCandidate
	g.mu.Unlock()

	for i := range candidates {
		c := candidates[i]
		if cand, err := c.toAgent(); err == nil {
			g.agent.AddLocalCandidate(cand)
		}
		if handler != nil {
			handler(&c)
		}
	}

	g.mu.Lock()
	g.state = ICEGathererStateComplete
	g.mu.Unlock()

	if handler != nil {
		handler(nil)
	}
	return nil
}

// GetLocalParameters returns the ICE parameters of the ICEGatherer.
func (g *ICEGatherer) GetLocalParameters() (ICEParameters, error) {
	ufrag, pwd := g.agent.GetLocalUserCredentials()
	return ICEParameters{UsernameFragment: ufrag, Password: pwd}, nil
}

// GetLocalCandidates returns the candidates currently gathered.
func (g *ICEGatherer) GetLocalCandidates() ([]ICECandidate, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]ICECandidate(nil), g.staticCandidates...), nil
}

// agentRef exposes the gatherer's underlying agent so the PeerConnection
// can build its ICETransport around the same agent instead of a second,
// differently-credentialed one.
func (g *ICEGatherer) agentRef() *iceengine.Agent {
	return g.agent
}

// Close marks the gatherer closed and closes the underlying agent; the
// configured candidates are kept and GetLocalCandidates still returns them.
func (g *ICEGatherer) Close() error {
	g.mu.Lock()
	g.state = ICEGathererStateClosed
	g.mu.Unlock()
	return g.agent.Close()
}
