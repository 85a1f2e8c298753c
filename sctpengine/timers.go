package sctpengine

import "time"

// HandleTimeout drives SACK emission and retransmission, spec.md §4.4
// "SACK-driven retransmission" and §3 partial reliability.
func (a *Association) HandleTimeout(now time.Time) {
	if a.closed || a.state == StateClosed {
		return
	}

	if a.sackDue && now.Sub(a.lastSACKAt) >= a.cfg.SACKInterval {
		a.pushWrite(encodePacket(chunk{Type: chunkSack, Value: encodeSackValue(a.cumulativeAckedTSN)}))
		a.lastSACKAt = now
		a.sackDue = false
	}

	a.retransmit(now)
}

// PollTimeout reports the next moment HandleTimeout must run, folding
// the SACK deadline and every outstanding chunk's RTO deadline.
func (a *Association) PollTimeout() time.Time {
	if a.closed || a.state == StateClosed {
		return time.Time{}
	}
	var next time.Time
	if a.sackDue {
		due := a.lastSACKAt.Add(a.cfg.SACKInterval)
		next = due
	}
	for _, o := range a.outstanding {
		due := o.sentAt.Add(a.cfg.RTOInitial)
		if next.IsZero() || due.Before(next) {
			next = due
		}
	}
	return next
}

// retransmit resends chunks whose RTO has elapsed, honoring RFC 3758
// partial reliability: an entry past its max_retransmits or
// max_packet_lifetime is dropped instead of resent.
func (a *Association) retransmit(now time.Time) {
	if len(a.outstanding) == 0 {
		return
	}
	kept := a.outstanding[:0]
	for _, o := range a.outstanding {
		if o.sentAt.IsZero() {
			o.sentAt = now
			o.sentAtFirst = now
			kept = append(kept, o)
			continue
		}
		if now.Sub(o.sentAt) < a.cfg.RTOInitial {
			kept = append(kept, o)
			continue
		}
		if o.rel.MaxRetransmits != nil && uint16(o.attempts) >= *o.rel.MaxRetransmits {
			continue // given up, partial reliability
		}
		if o.rel.MaxPacketLifetime != nil {
			lifetime := time.Duration(*o.rel.MaxPacketLifetime) * time.Millisecond
			if now.Sub(o.sentAtFirst) >= lifetime {
				continue // given up, partial reliability
			}
		}
		value := encodeDataValue(dataChunkValue{TSN: o.tsn, StreamID: o.streamID, PPID: o.ppid, Payload: o.payload})
		a.pushWrite(encodePacket(chunk{Type: chunkData, Value: value}))
		o.attempts++
		o.sentAt = now
		kept = append(kept, o)
	}
	a.outstanding = kept
}
