package iceengine

import (
	"net"

	"github.com/pion/stun/v3"
)

// buildBindingRequest encodes a STUN connectivity-check binding request
// per spec.md §4.2: USERNAME "remoteUfrag:localUfrag", ICE-CONTROLLING
// or ICE-CONTROLLED (tie-breaker), PRIORITY (as if peer-reflexive),
// optional USE-CANDIDATE, MESSAGE-INTEGRITY (remote pwd), FINGERPRINT.
func (a *Agent) buildBindingRequest(txID [stun.TransactionIDSize]byte, remoteUfrag, localUfrag, remotePwd string, priority uint32, useCandidate bool) (*stun.Message, error) {
	setters := []stun.Setter{
		stun.NewType(stun.MethodBinding, stun.ClassRequest),
		stun.NewUsername(remoteUfrag + ":" + localUfrag),
		attrPriority(CandidatePeerReflexive.preference()<<24 | priority&0x00FFFFFF),
	}
	if a.role == RoleControlling {
		setters = append(setters, attrControlling(a.tieBreaker))
		if useCandidate {
			setters = append(setters, attrUseCandidate{})
		}
	} else {
		setters = append(setters, attrControlled(a.tieBreaker))
	}
	setters = append(setters, stun.NewShortTermIntegrity(remotePwd), stun.Fingerprint)

	msg := new(stun.Message)
	msg.TransactionID = txID
	if err := msg.Build(setters...); err != nil {
		return nil, err
	}
	return msg, nil
}

// buildBindingSuccess encodes a STUN binding-success response per
// spec.md §4.2 "Handling inbound" / STUN request branch.
func (a *Agent) buildBindingSuccess(txID [stun.TransactionIDSize]byte, mappedAddr net.IP, mappedPort int, localPwd string) (*stun.Message, error) {
	msg := new(stun.Message)
	msg.TransactionID = txID
	err := msg.Build(
		stun.NewType(stun.MethodBinding, stun.ClassSuccessResponse),
		&stun.XORMappedAddress{IP: mappedAddr, Port: mappedPort},
		stun.NewShortTermIntegrity(localPwd),
		stun.Fingerprint,
	)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// verifyIntegrity checks MESSAGE-INTEGRITY against pwd and, if present,
// FINGERPRINT. Malformed/unauthenticated messages are simply rejected;
// per spec.md §7 this is the one class of failure that can surface.
func verifyIntegrity(msg *stun.Message, pwd string) bool {
	integrity := stun.NewShortTermIntegrity(pwd)
	if err := integrity.Check(msg); err != nil {
		return false
	}
	if fp, err := msg.Get(stun.AttrFingerprint); err == nil && len(fp) > 0 {
		if err := stun.Fingerprint.Check(msg); err != nil {
			return false
		}
	}
	return true
}

// usernameOf extracts the USERNAME attribute, expected to be
// "ufragA:ufragB".
func usernameOf(msg *stun.Message) (string, bool) {
	var u stun.Username
	if err := u.GetFrom(msg); err != nil {
		return "", false
	}
	return string(u), true
}

// --- small ICE-specific STUN attributes pion/stun does not define ---

type uint64Attr struct {
	attrType stun.AttrType
	value    uint64
}

func (a uint64Attr) AddTo(m *stun.Message) error {
	var b [8]byte
	for i := 0; i < 8; i++ {
		b[7-i] = byte(a.value >> (8 * i))
	}
	m.Add(a.attrType, b[:])
	return nil
}

const (
	attrTypeICEControlling stun.AttrType = 0x8029
	attrTypeICEControlled  stun.AttrType = 0x8028
	attrTypePriority       stun.AttrType = 0x0024
	attrTypeUseCandidate   stun.AttrType = 0x0025
)

func attrControlling(tieBreaker uint64) stun.Setter {
	return uint64Attr{attrType: attrTypeICEControlling, value: tieBreaker}
}

func attrControlled(tieBreaker uint64) stun.Setter {
	return uint64Attr{attrType: attrTypeICEControlled, value: tieBreaker}
}

func attrPriority(p uint32) stun.Setter {
	return priorityAttr(p)
}

type priorityAttr uint32

func (p priorityAttr) AddTo(m *stun.Message) error {
	var b [4]byte
	b[0] = byte(p >> 24)
	b[1] = byte(p >> 16)
	b[2] = byte(p >> 8)
	b[3] = byte(p)
	m.Add(attrTypePriority, b[:])
	return nil
}

type attrUseCandidate struct{}

func (attrUseCandidate) AddTo(m *stun.Message) error {
	m.Add(attrTypeUseCandidate, nil)
	return nil
}

func hasAttr(m *stun.Message, t stun.AttrType) bool {
	_, err := m.Get(t)
	return err == nil
}

func getUint64Attr(m *stun.Message, t stun.AttrType) (uint64, bool) {
	v, err := m.Get(t)
	if err != nil || len(v) != 8 {
		return 0, false
	}
	var out uint64
	for i := 0; i < 8; i++ {
		out = out<<8 | uint64(v[i])
	}
	return out, true
}

func getUint32Attr(m *stun.Message, t stun.AttrType) (uint32, bool) {
	v, err := m.Get(t)
	if err != nil || len(v) != 4 {
		return 0, false
	}
	return uint32(v[0])<<24 | uint32(v[1])<<16 | uint32(v[2])<<8 | uint32(v[3]), true
}
