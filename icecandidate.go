package webrtc

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sansio/rtc/iceengine"
)

// ICECandidate represents a ice candidate.
type ICECandidate struct {
	Foundation     string           `json:"foundation"`
	Priority       uint32           `json:"priority"`
	Address        string           `json:"address"`
	Protocol       ICEProtocol      `json:"protocol"`
	Port           uint16           `json:"port"`
	Typ            ICECandidateType `json:"type"`
	Component      uint16           `json:"component"`
	RelatedAddress string           `json:"relatedAddress"`
	RelatedPort    uint16           `json:"relatedPort"`
	SDPMid         string           `json:"sdpMid"`
	SDPMLineIndex  uint16           `json:"sdpMLineIndex"`
}

// newICECandidatesFromAgent converts the agent's internal candidate
// representation to the wire-facing shape carried in SDP/trickle messages.
func newICECandidatesFromAgent(candidates []iceengine.Candidate, sdpMid string, sdpMLineIndex uint16) ([]ICECandidate, error) {
	out := make([]ICECandidate, 0, len(candidates))
	for _, c := range candidates {
		ic, err := newICECandidateFromAgent(c, sdpMid, sdpMLineIndex)
		if err != nil {
			return nil, err
		}
		out = append(out, ic)
	}
	return out, nil
}

func newICECandidateFromAgent(c iceengine.Candidate, sdpMid string, sdpMLineIndex uint16) (ICECandidate, error) {
	typ, err := convertTypeFromAgent(c.Type)
	if err != nil {
		return ICECandidate{}, err
	}
	protocol, err := NewICEProtocol(c.Transport.String())
	if err != nil {
		return ICECandidate{}, err
	}

	return ICECandidate{
		Foundation:     c.Foundation,
		Priority:       c.Priority,
		Address:        c.Address,
		Protocol:       protocol,
		Port:           uint16(c.Port), //nolint:gosec // G115
		Component:      uint16(c.Component),
		Typ:            typ,
		RelatedAddress: c.RelatedAddress,
		RelatedPort:    uint16(c.RelatedPort), //nolint:gosec // G115
		SDPMid:         sdpMid,
		SDPMLineIndex:  sdpMLineIndex,
	}, nil
}

// toAgent converts a wire candidate back to the agent's representation, for
// AddRemoteCandidate / AddLocalCandidate.
func (c ICECandidate) toAgent() (iceengine.Candidate, error) {
	typ, err := convertTypeToAgent(c.Typ)
	if err != nil {
		return iceengine.Candidate{}, err
	}
	transport, err := convertTransportToAgent(c.Protocol)
	if err != nil {
		return iceengine.Candidate{}, err
	}
	return iceengine.Candidate{
		Type:           typ,
		Address:        c.Address,
		Port:           int(c.Port),
		Transport:      transport,
		Component:      int(c.Component),
		Foundation:     c.Foundation,
		Priority:       c.Priority,
		RelatedAddress: c.RelatedAddress,
		RelatedPort:    int(c.RelatedPort),
	}, nil
}

func convertTypeFromAgent(t iceengine.CandidateType) (ICECandidateType, error) {
	switch t {
	case iceengine.CandidateHost:
		return ICECandidateTypeHost, nil
	case iceengine.CandidateServerReflexive:
		return ICECandidateTypeSrflx, nil
	case iceengine.CandidatePeerReflexive:
		return ICECandidateTypePrflx, nil
	case iceengine.CandidateRelay:
		return ICECandidateTypeRelay, nil
	default:
		return ICECandidateType(0), fmt.Errorf("%w: %d", errICECandidateTypeUnknown, t)
	}
}

func convertTypeToAgent(t ICECandidateType) (iceengine.CandidateType, error) {
	switch t {
	case ICECandidateTypeHost:
		return iceengine.CandidateHost, nil
	case ICECandidateTypeSrflx:
		return iceengine.CandidateServerReflexive, nil
	case ICECandidateTypePrflx:
		return iceengine.CandidatePeerReflexive, nil
	case ICECandidateTypeRelay:
		return iceengine.CandidateRelay, nil
	default:
		return 0, fmt.Errorf("%w: %s", errICECandidateTypeUnknown, t)
	}
}

func convertTransportToAgent(p ICEProtocol) (iceengine.NetworkTransport, error) {
	switch p {
	case ICEProtocolUDP:
		return iceengine.NetworkUDP, nil
	case ICEProtocolTCP:
		return iceengine.NetworkTCP, nil
	default:
		return 0, fmt.Errorf("%w: %s", errICEProtocolUnknown, p)
	}
}

func (c ICECandidate) String() string {
	return fmt.Sprintf("%s:%d/%s/%s/%d", c.Address, c.Port, c.Protocol, c.Typ, c.Component)
}

// marshalCandidateSDP renders the a=candidate line for this candidate as
// seen from the given component (1 = RTP, 2 = RTCP), per RFC 5245 §15.1.
func (c ICECandidate) marshalCandidateSDP(component uint16) string {
	s := fmt.Sprintf("%s %d %s %d %s %d typ %s",
		c.Foundation, component, c.Protocol, c.Priority, c.Address, c.Port, c.Typ)
	if c.RelatedAddress != "" {
		s += fmt.Sprintf(" raddr %s rport %d", c.RelatedAddress, c.RelatedPort)
	}
	return s
}

// unmarshalCandidateSDP parses the value of an a=candidate attribute (the
// text following "candidate:") into an ICECandidate.
func unmarshalCandidateSDP(value string) (ICECandidate, error) {
	fields := strings.Fields(value)
	if len(fields) < 8 {
		return ICECandidate{}, fmt.Errorf("%w: %s", errICECandidateParse, value)
	}

	priority, err := strconv.ParseUint(fields[3], 10, 32)
	if err != nil {
		return ICECandidate{}, fmt.Errorf("%w: %s", errICECandidateParse, value)
	}
	component, err := strconv.ParseUint(fields[1], 10, 16)
	if err != nil {
		return ICECandidate{}, fmt.Errorf("%w: %s", errICECandidateParse, value)
	}
	port, err := strconv.ParseUint(fields[5], 10, 16)
	if err != nil {
		return ICECandidate{}, fmt.Errorf("%w: %s", errICECandidateParse, value)
	}
	protocol, err := NewICEProtocol(fields[2])
	if err != nil {
		return ICECandidate{}, err
	}
	typ, err := NewICECandidateType(fields[7])
	if err != nil {
		return ICECandidate{}, err
	}

	c := ICECandidate{
		Foundation: fields[0],
		Component:  uint16(component),
		Protocol:   protocol,
		Priority:   uint32(priority),
		Address:    fields[4],
		Port:       uint16(port),
		Typ:        typ,
	}

	for i := 8; i+1 < len(fields); i += 2 {
		switch fields[i] {
		case "raddr":
			c.RelatedAddress = fields[i+1]
		case "rport":
			if v, perr := strconv.ParseUint(fields[i+1], 10, 16); perr == nil {
				c.RelatedPort = uint16(v)
			}
		}
	}

	return c, nil
}

// ToJSON returns an ICECandidateInit as indicated by
// https://w3c.github.io/webrtc-pc/#dom-rtcicecandidate-tojson
func (c ICECandidate) ToJSON() ICECandidateInit {
	candidateStr := fmt.Sprintf(
		"candidate:%s %d %s %d %s %d typ %s",
		c.Foundation, c.Component, c.Protocol, c.Priority, c.Address, c.Port, c.Typ,
	)
	return ICECandidateInit{
		Candidate:     candidateStr,
		SDPMid:        &c.SDPMid,
		SDPMLineIndex: &c.SDPMLineIndex,
	}
}
