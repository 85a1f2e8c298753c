// Package iceengine implements the ICE agent described in spec.md §4.2:
// candidate pairing, STUN connectivity checks, nomination, keepalives and
// restart, as a sans-I/O engine that implements enginecontract.Timers
// alongside its own HandleRead/PollWrite/PollEvent. It never opens a
// socket and never reads the wall clock; every
// time-sensitive decision is driven by the `now` argument threaded
// through HandleRead/HandleTimeout.
package iceengine

import (
	"fmt"
	"time"
)

// CandidateType is the tagged-enum discriminant for Candidate, per the
// Design Notes in spec.md §9: a tagged enum rather than an interface
// hierarchy, so candidate equality is structural.
type CandidateType uint8

// Candidate types, in RFC 8445 preference order.
const (
	CandidateHost CandidateType = iota
	CandidateServerReflexive
	CandidatePeerReflexive
	CandidateRelay
)

func (t CandidateType) String() string {
	switch t {
	case CandidateHost:
		return "host"
	case CandidateServerReflexive:
		return "srflx"
	case CandidatePeerReflexive:
		return "prflx"
	case CandidateRelay:
		return "relay"
	default:
		return "unknown"
	}
}

func (t CandidateType) preference() uint32 {
	switch t {
	case CandidateHost:
		return 126
	case CandidatePeerReflexive:
		return 110
	case CandidateServerReflexive:
		return 100
	case CandidateRelay:
		return 0
	default:
		return 0
	}
}

// NetworkTransport is the candidate's wire transport. Component is
// always 1 in this module: RTP-muxed WebRTC never negotiates a second
// RTCP component, per spec.md §3.
type NetworkTransport uint8

const (
	NetworkUDP NetworkTransport = iota
	NetworkTCP
)

func (n NetworkTransport) String() string {
	if n == NetworkTCP {
		return "tcp"
	}
	return "udp"
}

// Candidate is one typed network endpoint, per spec.md §3. Fields beyond
// the common set are populated only for the variants that use them
// (RelatedAddress/RelatedPort for srflx/prflx/relay).
type Candidate struct {
	Type            CandidateType
	Address         string
	Port            int
	Transport       NetworkTransport
	Component       int
	Foundation      string
	Priority        uint32
	RelatedAddress  string
	RelatedPort     int

	// LastSent/LastReceived drive keepalive and liveness checks.
	LastSent     time.Time
	LastReceived time.Time
}

// Equal implements the idempotence rule from spec.md §8: candidates are
// equal by {address, port, transport, type, component}, ignoring
// priority/foundation/related fields which are derived.
func (c Candidate) Equal(o Candidate) bool {
	return c.Address == o.Address && c.Port == o.Port &&
		c.Transport == o.Transport && c.Type == o.Type && c.Component == o.Component
}

func (c Candidate) key() string {
	return fmt.Sprintf("%s|%s|%d|%d|%d", c.Type, c.Address, c.Port, c.Transport, c.Component)
}

// computePriority implements RFC 8445 §5.1.2.1: priority = 2^24*type-pref
// + 2^8*local-pref + (256-component). The component term is fixed at 255
// (component 1). Local preference is whatever the caller passes; the
// agent passes the number of candidates it already holds on that side,
// so a candidate added later gets a higher priority than an earlier one
// of the same type.
func computePriority(typ CandidateType, localPref uint32) uint32 {
	return (typ.preference() << 24) | (localPref << 8) | uint32(256-1)
}

// PairState is the candidate pair's connectivity-check lifecycle state.
type PairState uint8

const (
	PairFrozen PairState = iota
	PairWaiting
	PairInProgress
	PairSucceeded
	PairFailed
)

func (s PairState) String() string {
	switch s {
	case PairFrozen:
		return "frozen"
	case PairWaiting:
		return "waiting"
	case PairInProgress:
		return "in-progress"
	case PairSucceeded:
		return "succeeded"
	case PairFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Pair is an unordered reference to a (local, remote) candidate by index
// into the agent's candidate slices, per spec.md §3. Pairs never hold
// pointers to candidates directly so there are no back-references to
// break when candidates are replaced.
type Pair struct {
	Local, Remote int
	Priority      uint64
	State         PairState
	Nominated     bool

	outstandingRequests int
	lastCheckSent       time.Time
	lastCheckTxID       [12]byte
	hasOutstandingTxID  bool
	rtt                 time.Duration
}

// pairPriority implements RFC 8445 §6.1.2.3: 2^32*MIN(G,D) + 2*MAX(G,D)
// + (G>D ? 1 : 0), where G is the controlling side's candidate priority
// and D the controlled side's. Callers pass the local priority first and
// the remote one second; isControlling says whether the local side is G.
func pairPriority(controllingPriority, controlledPriority uint32, isControlling bool) uint64 {
	g, d := controllingPriority, controlledPriority
	if !isControlling {
		g, d = d, g
	}
	min, max := uint64(g), uint64(d)
	if g > d {
		min, max = uint64(d), uint64(g)
	}
	extra := uint64(0)
	if g > d {
		extra = 1
	}
	return (min << 32) + (max << 1) + extra
}

// ConnectionState is the agent's overall connectivity state machine, per
// spec.md §4.2 "State transitions".
type ConnectionState uint8

const (
	StateNew ConnectionState = iota
	StateChecking
	StateConnected
	StateDisconnected
	StateFailed
	StateClosed
)

func (s ConnectionState) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateChecking:
		return "checking"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Role is the agent's ICE controlling/controlled assignment.
type Role uint8

const (
	RoleControlling Role = iota
	RoleControlled
)
