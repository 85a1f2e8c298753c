package iceengine

// EventKind discriminates the events the agent emits via PollEvent.
type EventKind uint8

const (
	// EventStateChange fires whenever ConnectionState changes.
	EventStateChange EventKind = iota
	// EventSelectedPairChange fires when the selected pair changes
	// (including clearing to none, index -1).
	EventSelectedPairChange
	// EventLocalCandidate fires when a local candidate is newly added
	// (including peer-reflexive candidates synthesized from inbound
	// checks), so the collaborator can forward it to signaling.
	EventLocalCandidate
)

// Event is one ICE-agent-emitted event, FIFO within the agent per
// spec.md §5 "Ordering guarantees".
type Event struct {
	Kind          EventKind
	State         ConnectionState
	SelectedPair  int // index into the agent's pair list, -1 if none
	NewCandidate  Candidate
}
