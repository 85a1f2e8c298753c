package iceengine

import (
	"net"
	"time"

	"github.com/pion/logging"
	"github.com/pion/stun/v3"

	"github.com/sansio/rtc/enginecontract"
)

// Config configures an Agent's timers and dependencies. Zero values
// fall back to the RFC 8445 defaults spec.md §4.2 names.
type Config struct {
	CheckInterval       time.Duration // default 200ms
	KeepaliveInterval   time.Duration // default 2s
	DisconnectedTimeout time.Duration // default 5s
	FailedTimeout       time.Duration // default 25s (after disconnected)
	MaxBindingRequests  int           // default 7
	HaltTransactionAge  time.Duration // default 7.9s, RFC 8445 HTO

	RNG            RNG
	LoggerFactory  logging.LoggerFactory
}

func (c *Config) withDefaults() {
	if c.CheckInterval <= 0 {
		c.CheckInterval = 200 * time.Millisecond
	}
	if c.KeepaliveInterval <= 0 {
		c.KeepaliveInterval = 2 * time.Second
	}
	if c.DisconnectedTimeout <= 0 {
		c.DisconnectedTimeout = 5 * time.Second
	}
	if c.FailedTimeout <= 0 {
		c.FailedTimeout = 25 * time.Second
	}
	if c.MaxBindingRequests <= 0 {
		c.MaxBindingRequests = 7
	}
	if c.HaltTransactionAge <= 0 {
		c.HaltTransactionAge = 7900 * time.Millisecond
	}
	if c.RNG == nil {
		c.RNG = NewMathRNG(0)
	}
	if c.LoggerFactory == nil {
		c.LoggerFactory = logging.NewDefaultLoggerFactory()
	}
}

type pendingCheck struct {
	pairIdx int
	dest    net.Addr
	sentAt  time.Time
}

// Agent is a sans-I/O ICE agent implementing spec.md §4.2. One owning
// goroutine drives it via HandleRead/PollWrite/PollEvent/HandleTimeout/
// PollTimeout/Close; it holds no mutex and spawns nothing.
type Agent struct {
	cfg Config
	log logging.LeveledLogger

	localUfrag, localPwd   string
	remoteUfrag, remotePwd string
	tieBreaker             uint64
	role                   Role

	state ConnectionState

	localCandidates  []Candidate
	remoteCandidates []Candidate
	pairs            []Pair
	selectedPair     int // -1 if none

	pending map[[stun.TransactionIDSize]byte]pendingCheck

	checksStarted bool
	nextCheckAt   time.Time

	lastSelectedTraffic time.Time
	disconnectedSince   time.Time

	outbox []enginecontract.Transmit
	events []Event

	closed bool
}

// NewAgent constructs an Agent with freshly generated local credentials.
func NewAgent(cfg Config) *Agent {
	cfg.withDefaults()
	a := &Agent{
		cfg:          cfg,
		log:          cfg.LoggerFactory.NewLogger("ice"),
		localUfrag:   randomUfrag(cfg.RNG),
		localPwd:     randomPwd(cfg.RNG),
		tieBreaker:   cfg.RNG.RandomUint64(),
		state:        StateNew,
		selectedPair: -1,
		pending:      make(map[[stun.TransactionIDSize]byte]pendingCheck),
	}
	return a
}

// GetLocalUserCredentials returns the agent's local ufrag/pwd.
func (a *Agent) GetLocalUserCredentials() (ufrag, pwd string) {
	return a.localUfrag, a.localPwd
}

// AddLocalCandidate adds a local candidate and forms pairs against every
// known remote candidate. Re-adding an equal candidate is a no-op per
// spec.md §8 "Idempotence".
func (a *Agent) AddLocalCandidate(c Candidate) {
	if a.closed {
		return
	}
	for _, existing := range a.localCandidates {
		if existing.Equal(c) {
			return
		}
	}
	c.Priority = computePriority(c.Type, uint32(len(a.localCandidates)))
	a.localCandidates = append(a.localCandidates, c)
	localIdx := len(a.localCandidates) - 1
	for ri := range a.remoteCandidates {
		a.formPair(localIdx, ri)
	}
	a.pushEvent(Event{Kind: EventLocalCandidate, NewCandidate: c})
}

// AddRemoteCandidate adds a remote candidate and forms pairs against
// every known local candidate.
func (a *Agent) AddRemoteCandidate(c Candidate) {
	if a.closed {
		return
	}
	for _, existing := range a.remoteCandidates {
		if existing.Equal(c) {
			return
		}
	}
	if c.Priority == 0 {
		c.Priority = computePriority(c.Type, uint32(len(a.remoteCandidates)))
	}
	a.remoteCandidates = append(a.remoteCandidates, c)
	remoteIdx := len(a.remoteCandidates) - 1
	for li := range a.localCandidates {
		a.formPair(li, remoteIdx)
	}
}

func (a *Agent) formPair(localIdx, remoteIdx int) {
	for _, p := range a.pairs {
		if p.Local == localIdx && p.Remote == remoteIdx {
			return
		}
	}
	local, remote := a.localCandidates[localIdx], a.remoteCandidates[remoteIdx]
	isControlling := a.role == RoleControlling
	p := Pair{
		Local:    localIdx,
		Remote:   remoteIdx,
		Priority: pairPriority(local.Priority, remote.Priority, isControlling),
		State:    PairWaiting,
	}
	a.pairs = append(a.pairs, p)
}

// SetRemoteCredentials sets the remote ufrag/pwd without starting
// checks; used when credentials arrive before StartConnectivityChecks.
func (a *Agent) SetRemoteCredentials(ufrag, pwd string) {
	a.remoteUfrag, a.remotePwd = ufrag, pwd
}

// StartConnectivityChecks begins the checking state machine: new ->
// checking, per spec.md §4.2 "State transitions".
func (a *Agent) StartConnectivityChecks(isControlling bool, remoteUfrag, remotePwd string) error {
	if a.closed {
		return ErrConnectionClosed
	}
	a.remoteUfrag, a.remotePwd = remoteUfrag, remotePwd
	if a.remoteUfrag == "" || a.remotePwd == "" {
		return ErrNoRemoteCreds
	}
	if isControlling {
		a.role = RoleControlling
	} else {
		a.role = RoleControlled
	}
	// Recompute pair priorities now that role is known.
	for i := range a.pairs {
		local := a.localCandidates[a.pairs[i].Local]
		remote := a.remoteCandidates[a.pairs[i].Remote]
		a.pairs[i].Priority = pairPriority(local.Priority, remote.Priority, isControlling)
	}
	a.checksStarted = true
	a.nextCheckAt = time.Time{} // fire on next HandleTimeout
	a.setState(StateChecking)
	return nil
}

// Restart regenerates credentials (unless explicitly supplied, subject
// to the entropy floor), clears pairs/pending checks, and optionally
// clears local candidates, per spec.md §4.2 "Restart".
func (a *Agent) Restart(ufrag, pwd string, keepLocalCandidates bool) (newUfrag, newPwd string, err error) {
	if a.closed {
		return "", "", ErrConnectionClosed
	}
	if ufrag == "" {
		ufrag = randomUfrag(a.cfg.RNG)
	} else if len(ufrag) < minUfragLength {
		return "", "", ErrUfragInsufficient
	}
	if pwd == "" {
		pwd = randomPwd(a.cfg.RNG)
	} else if len(pwd) < minPwdLength {
		return "", "", ErrPwdInsufficient
	}
	a.localUfrag, a.localPwd = ufrag, pwd
	a.pairs = nil
	a.pending = make(map[[stun.TransactionIDSize]byte]pendingCheck)
	a.selectedPair = -1
	a.remoteUfrag, a.remotePwd = "", ""
	a.checksStarted = false
	if !keepLocalCandidates {
		a.localCandidates = nil
	}
	a.remoteCandidates = nil
	// Connection state is left at its current value (connected stays
	// connected) until StartConnectivityChecks redrives the machine, per
	// spec.md §4.2.
	a.pushEvent(Event{Kind: EventSelectedPairChange, SelectedPair: -1})
	return ufrag, pwd, nil
}

// GetSelectedCandidatePair returns the currently selected pair, if any.
func (a *Agent) GetSelectedCandidatePair() (Pair, bool) {
	if a.selectedPair < 0 || a.selectedPair >= len(a.pairs) {
		return Pair{}, false
	}
	return a.pairs[a.selectedPair], true
}

// LocalCandidate returns the local candidate a Pair's Local index refers
// to, for callers (GetStats) that only hold the Pair value.
func (a *Agent) LocalCandidate(idx int) (Candidate, bool) {
	if idx < 0 || idx >= len(a.localCandidates) {
		return Candidate{}, false
	}
	return a.localCandidates[idx], true
}

// RemoteCandidate returns the remote candidate a Pair's Remote index
// refers to, for callers (GetStats) that only hold the Pair value.
func (a *Agent) RemoteCandidate(idx int) (Candidate, bool) {
	if idx < 0 || idx >= len(a.remoteCandidates) {
		return Candidate{}, false
	}
	return a.remoteCandidates[idx], true
}

// Close is idempotent; after Close, HandleRead/HandleTimeout are no-ops
// and queued writes/events are dropped, per the Protocol contract.
func (a *Agent) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	a.outbox = nil
	a.events = nil
	a.pairs = nil
	a.pending = nil
	a.setState(StateClosed)
	return nil
}

func (a *Agent) setState(s ConnectionState) {
	if a.state == s {
		return
	}
	a.state = s
	a.pushEvent(Event{Kind: EventStateChange, State: s})
}

func (a *Agent) pushEvent(e Event) {
	if a.closed && e.Kind != EventStateChange {
		return
	}
	a.events = append(a.events, e)
}

func (a *Agent) pushWrite(payload []byte, dest net.Addr) {
	if a.closed {
		return
	}
	a.outbox = append(a.outbox, enginecontract.Transmit{
		Transport: enginecontract.Context{PeerAddr: dest, Protocol: enginecontract.TransportUDP},
		Payload:   payload,
	})
}

// PollWrite pops the next outbound datagram the agent wants to send.
func (a *Agent) PollWrite() (enginecontract.Transmit, bool) {
	if len(a.outbox) == 0 {
		return enginecontract.Transmit{}, false
	}
	tx := a.outbox[0]
	a.outbox = a.outbox[1:]
	return tx, true
}

// PollEvent pops the next emitted event.
func (a *Agent) PollEvent() (Event, bool) {
	if len(a.events) == 0 {
		return Event{}, false
	}
	e := a.events[0]
	a.events = a.events[1:]
	return e, true
}

func (a *Agent) remoteCandidateFor(addr net.Addr) (int, bool) {
	host, port := splitHostPort(addr)
	for i, c := range a.remoteCandidates {
		if c.Address == host && c.Port == port {
			return i, true
		}
	}
	return -1, false
}

func splitHostPort(addr net.Addr) (string, int) {
	switch v := addr.(type) {
	case *net.UDPAddr:
		return v.IP.String(), v.Port
	default:
		host, portStr, err := net.SplitHostPort(addr.String())
		if err != nil {
			return addr.String(), 0
		}
		var port int
		for _, c := range portStr {
			if c < '0' || c > '9' {
				return host, 0
			}
			port = port*10 + int(c-'0')
		}
		return host, port
	}
}
