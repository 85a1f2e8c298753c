package iceengine

import (
	"net"
	"time"

	"github.com/pion/stun/v3"

	"github.com/sansio/rtc/enginecontract"
)

// HandleRead accepts one inbound datagram. Returns handled=true if the
// agent consumed it as STUN; handled=false means it is application data
// per spec.md §4.2 "Handling inbound" -- the caller routes it onward
// (DTLS) but the agent still stamps LastReceived on a matching
// candidate for liveness if the source is known.
func (a *Agent) HandleRead(tx enginecontract.Transmit) (handled bool, err error) {
	if a.closed {
		return false, ErrConnectionClosed
	}
	if len(tx.Payload) == 0 {
		return false, nil
	}
	if !looksLikeSTUN(tx.Payload) {
		a.markLiveness(tx.Transport.PeerAddr, tx.Now)
		return false, nil
	}

	msg := new(stun.Message)
	msg.Raw = append([]byte(nil), tx.Payload...)
	if err := msg.Decode(); err != nil {
		a.log.Tracef("ice: dropping malformed STUN packet: %v", err)
		return true, nil
	}

	switch {
	case msg.Type.Class == stun.ClassRequest && msg.Type.Method == stun.MethodBinding:
		a.handleBindingRequest(msg, tx)
	case msg.Type.Class == stun.ClassSuccessResponse && msg.Type.Method == stun.MethodBinding:
		a.handleBindingSuccess(msg, tx)
	default:
		a.log.Tracef("ice: dropping unsupported STUN message class/method")
	}
	return true, nil
}

func looksLikeSTUN(b []byte) bool {
	return len(b) >= 1 && b[0] <= 3
}

// markLiveness stamps LastReceived on the remote candidate matching addr,
// if any is known yet. Unknown sources are silently dropped per
// spec.md §4.2.
func (a *Agent) markLiveness(addr net.Addr, now time.Time) {
	idx, ok := a.remoteCandidateFor(addr)
	if !ok {
		return
	}
	a.remoteCandidates[idx].LastReceived = now
	for i := range a.pairs {
		if a.pairs[i].Remote == idx && a.selectedPair == i {
			a.lastSelectedTraffic = now
			a.disconnectedSince = time.Time{}
			if a.state == StateDisconnected {
				a.setState(StateConnected)
			}
		}
	}
}

func (a *Agent) handleBindingRequest(msg *stun.Message, tx enginecontract.Transmit) {
	if !verifyIntegrity(msg, a.localPwd) {
		a.log.Debug("ice: binding request failed MESSAGE-INTEGRITY/FINGERPRINT check")
		return
	}
	username, ok := usernameOf(msg)
	if !ok {
		return
	}
	// USERNAME is "localUfrag:remoteUfrag" from our perspective (the
	// peer prefixes with *our* ufrag).
	if len(username) < len(a.localUfrag)+1 || username[:len(a.localUfrag)] != a.localUfrag || username[len(a.localUfrag)] != ':' {
		a.log.Debug("ice: binding request USERNAME does not match local ufrag")
		return
	}

	remoteIdx, known := a.remoteCandidateFor(tx.Transport.PeerAddr)
	if !known {
		host, port := splitHostPort(tx.Transport.PeerAddr)
		priority, _ := getUint32Attr(msg, attrTypePriority)
		prflx := Candidate{
			Type:      CandidatePeerReflexive,
			Address:   host,
			Port:      port,
			Transport: NetworkUDP,
			Component: 1,
			Priority:  priority,
		}
		a.remoteCandidates = append(a.remoteCandidates, prflx)
		remoteIdx = len(a.remoteCandidates) - 1
		for li := range a.localCandidates {
			a.formPair(li, remoteIdx)
		}
	}

	// Role collision, spec.md §4.2 "Role collision".
	if peerTB, isControlling := getUint64Attr(msg, attrTypeICEControlling); isControlling {
		if a.role == RoleControlling && peerTB > a.tieBreaker {
			a.role = RoleControlled
		}
	} else if peerTB, isControlled := getUint64Attr(msg, attrTypeICEControlled); isControlled {
		if a.role == RoleControlled && peerTB < a.tieBreaker {
			a.role = RoleControlling
		}
	}

	host, port := splitHostPort(tx.Transport.PeerAddr)
	resp, err := a.buildBindingSuccess(msg.TransactionID, net.ParseIP(host), port, a.localPwd)
	if err != nil {
		a.log.Warnf("ice: failed to build binding success response: %v", err)
		return
	}
	a.pushWrite(resp.Raw, tx.Transport.PeerAddr)

	if remoteIdx >= 0 {
		a.remoteCandidates[remoteIdx].LastReceived = tx.Now
	}

	if hasAttr(msg, attrTypeUseCandidate) && a.role == RoleControlled {
		for i := range a.pairs {
			if a.pairs[i].Remote == remoteIdx {
				a.nominate(i)
				break
			}
		}
	}
}

func (a *Agent) handleBindingSuccess(msg *stun.Message, tx enginecontract.Transmit) {
	pc, ok := a.pending[msg.TransactionID]
	if !ok {
		return
	}
	delete(a.pending, msg.TransactionID)
	if pc.pairIdx < 0 || pc.pairIdx >= len(a.pairs) {
		return
	}
	p := &a.pairs[pc.pairIdx]
	p.State = PairSucceeded
	p.rtt = tx.Now.Sub(pc.sentAt)
	p.outstandingRequests = 0
	a.lastSelectedTraffic = tx.Now
	a.disconnectedSince = time.Time{}
	if a.state == StateDisconnected && pc.pairIdx == a.selectedPair {
		a.setState(StateConnected)
	}

	if a.role == RoleControlling {
		best := a.bestSucceededPair()
		if best >= 0 && !a.pairs[best].Nominated {
			a.sendUseCandidate(best, tx.Now)
		}
	}
}

// bestSucceededPair returns the highest-priority pair currently
// succeeded, or -1.
func (a *Agent) bestSucceededPair() int {
	best := -1
	for i, p := range a.pairs {
		if p.State != PairSucceeded {
			continue
		}
		if best == -1 || p.Priority > a.pairs[best].Priority {
			best = i
		}
	}
	return best
}

func (a *Agent) sendUseCandidate(pairIdx int, now time.Time) {
	local := a.localCandidates[a.pairs[pairIdx].Local]
	remote := a.remoteCandidates[a.pairs[pairIdx].Remote]
	txID := a.newTransactionID()
	req, err := a.buildBindingRequest(txID, a.remoteUfrag, a.localUfrag, a.remotePwd, local.Priority, true)
	if err != nil {
		a.log.Warnf("ice: failed to build USE-CANDIDATE request: %v", err)
		return
	}
	dest := udpAddr(remote.Address, remote.Port)
	a.pushWrite(req.Raw, dest)
	a.pending[txID] = pendingCheck{pairIdx: pairIdx, dest: dest, sentAt: now}
	a.pairs[pairIdx].lastCheckSent = now
	a.pairs[pairIdx].Nominated = true
	a.selectPair(pairIdx)
}

func (a *Agent) nominate(pairIdx int) {
	for i := range a.pairs {
		a.pairs[i].Nominated = false
	}
	a.pairs[pairIdx].Nominated = true
	a.pairs[pairIdx].State = PairSucceeded
	a.selectPair(pairIdx)
}

func (a *Agent) selectPair(pairIdx int) {
	if a.selectedPair == pairIdx {
		return
	}
	a.selectedPair = pairIdx
	a.setState(StateConnected)
	a.pushEvent(Event{Kind: EventSelectedPairChange, SelectedPair: pairIdx})
}

func udpAddr(host string, port int) net.Addr {
	return &net.UDPAddr{IP: net.ParseIP(host), Port: port}
}
