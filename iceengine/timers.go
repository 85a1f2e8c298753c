package iceengine

import (
	"time"

	"github.com/pion/stun/v3"
)

func (a *Agent) newTransactionID() [stun.TransactionIDSize]byte {
	var id [stun.TransactionIDSize]byte
	raw := a.cfg.RNG.RandomString(stun.TransactionIDSize, iceChars)
	copy(id[:], raw)
	return id
}

// HandleTimeout advances every timer to now: ages out stale pending
// binding-request transactions, drives the periodic connectivity-check
// schedule, sends keepalives on the selected pair, and decays the
// connection state on silence, per spec.md §4.2.
func (a *Agent) HandleTimeout(now time.Time) {
	if a.closed {
		return
	}
	a.ageOutPending(now)
	if a.checksStarted {
		a.tickConnectivityChecks(now)
	}
	a.tickKeepalive(now)
	a.tickLiveness(now)
}

// PollTimeout returns the earliest instant the agent needs service next.
func (a *Agent) PollTimeout() time.Time {
	if a.closed {
		return time.Time{}
	}
	var deadline time.Time
	if a.checksStarted && a.hasWaitingPairs() {
		deadline = a.nextCheckAt
	}
	if a.selectedPair >= 0 {
		selected := &a.pairs[a.selectedPair]
		due := selected.lastCheckSent.Add(a.cfg.KeepaliveInterval)
		if deadline.IsZero() || due.Before(deadline) {
			deadline = due
		}
	}
	for _, pc := range a.pending {
		due := pc.sentAt.Add(a.cfg.HaltTransactionAge)
		if deadline.IsZero() || due.Before(deadline) {
			deadline = due
		}
	}
	if a.state == StateConnected || a.state == StateDisconnected {
		if a.selectedPair >= 0 {
			var due time.Time
			if a.state == StateConnected {
				due = a.lastSelectedTraffic.Add(a.cfg.DisconnectedTimeout)
			} else {
				due = a.disconnectedSince.Add(a.cfg.FailedTimeout)
			}
			if deadline.IsZero() || due.Before(deadline) {
				deadline = due
			}
		}
	}
	return deadline
}

func (a *Agent) hasWaitingPairs() bool {
	for _, p := range a.pairs {
		if p.State == PairWaiting {
			return true
		}
	}
	return false
}

func (a *Agent) ageOutPending(now time.Time) {
	for id, pc := range a.pending {
		if now.Sub(pc.sentAt) < a.cfg.HaltTransactionAge {
			continue
		}
		delete(a.pending, id)
		if pc.pairIdx < 0 || pc.pairIdx >= len(a.pairs) {
			continue
		}
		p := &a.pairs[pc.pairIdx]
		p.outstandingRequests++
		if p.outstandingRequests >= a.cfg.MaxBindingRequests {
			p.State = PairFailed
		} else {
			p.State = PairWaiting
		}
	}
}

// tickConnectivityChecks selects the next waiting pair in order and
// fires a STUN binding request, per spec.md §4.2 "Connectivity checks".
func (a *Agent) tickConnectivityChecks(now time.Time) {
	if !a.nextCheckAt.IsZero() && now.Before(a.nextCheckAt) {
		return
	}
	for i := range a.pairs {
		if a.pairs[i].State != PairWaiting {
			continue
		}
		a.sendCheck(i, now)
		a.nextCheckAt = now.Add(a.cfg.CheckInterval)
		return
	}
	a.nextCheckAt = now.Add(a.cfg.CheckInterval)
}

func (a *Agent) sendCheck(pairIdx int, now time.Time) {
	p := &a.pairs[pairIdx]
	p.State = PairInProgress
	local := a.localCandidates[p.Local]
	remote := a.remoteCandidates[p.Remote]
	useCandidate := a.role == RoleControlling && p.Nominated
	txID := a.newTransactionID()
	req, err := a.buildBindingRequest(txID, a.remoteUfrag, a.localUfrag, a.remotePwd, local.Priority, useCandidate)
	if err != nil {
		a.log.Warnf("ice: failed to build connectivity check: %v", err)
		return
	}
	dest := udpAddr(remote.Address, remote.Port)
	a.pushWrite(req.Raw, dest)
	a.pending[txID] = pendingCheck{pairIdx: pairIdx, dest: dest, sentAt: now}
	p.lastCheckSent = now
	local.LastSent = now
	a.localCandidates[p.Local] = local
}

// tickKeepalive sends a STUN binding request on the selected pair once
// keepaliveInterval has elapsed since the last send/receive, per
// spec.md §4.2 "Keepalive".
func (a *Agent) tickKeepalive(now time.Time) {
	if a.selectedPair < 0 {
		return
	}
	p := &a.pairs[a.selectedPair]
	since := p.lastCheckSent
	if remote := a.remoteCandidates[p.Remote]; remote.LastReceived.After(since) {
		since = remote.LastReceived
	}
	if !since.IsZero() && now.Sub(since) < a.cfg.KeepaliveInterval {
		return
	}
	local := a.localCandidates[p.Local]
	remote := a.remoteCandidates[p.Remote]
	txID := a.newTransactionID()
	req, err := a.buildBindingRequest(txID, a.remoteUfrag, a.localUfrag, a.remotePwd, local.Priority, false)
	if err != nil {
		return
	}
	dest := udpAddr(remote.Address, remote.Port)
	a.pushWrite(req.Raw, dest)
	a.pending[txID] = pendingCheck{pairIdx: a.selectedPair, dest: dest, sentAt: now}
	p.lastCheckSent = now
}

// tickLiveness decays StateConnected -> StateDisconnected -> StateFailed
// on prolonged silence on the selected pair, per spec.md §4.2 "State
// transitions". Disconnected is transient: any successful check (traffic
// received) returns it to connected via markLiveness/handleBindingSuccess.
func (a *Agent) tickLiveness(now time.Time) {
	if a.selectedPair < 0 {
		return
	}
	switch a.state {
	case StateConnected:
		if a.lastSelectedTraffic.IsZero() {
			a.lastSelectedTraffic = now
			return
		}
		if now.Sub(a.lastSelectedTraffic) >= a.cfg.DisconnectedTimeout {
			a.disconnectedSince = now
			a.setState(StateDisconnected)
		}
	case StateDisconnected:
		if now.Sub(a.disconnectedSince) >= a.cfg.FailedTimeout {
			a.setState(StateFailed)
		}
	}
}
