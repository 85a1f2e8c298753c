package webrtc

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// ICESchemeType indicates the scheme of an ICEServer URL, RFC 7064/7065.
type ICESchemeType int

const (
	ICESchemeTypeSTUN ICESchemeType = iota + 1
	ICESchemeTypeSTUNS
	ICESchemeTypeTURN
	ICESchemeTypeTURNS
)

func (t ICESchemeType) String() string {
	switch t {
	case ICESchemeTypeSTUN:
		return "stun"
	case ICESchemeTypeSTUNS:
		return "stuns"
	case ICESchemeTypeTURN:
		return "turn"
	case ICESchemeTypeTURNS:
		return "turns"
	default:
		return unknownStr
	}
}

// ICEURL is a parsed STUN/TURN server URL, grounded on RFC 7064 §3.1 /
// RFC 7065 §3.1's <scheme>:<host>:<port> shape.
type ICEURL struct {
	Scheme   ICESchemeType
	Host     string
	Port     int
	Username string
	Password string
}

func (u *ICEURL) String() string {
	return fmt.Sprintf("%s:%s:%d", u.Scheme, u.Host, u.Port)
}

// parseICEURL parses a "stun:", "stuns:", "turn:", or "turns:" URL,
// tolerating the erroneous "?transport=" queries some STUN servers
// publish despite RFC 7064 disallowing them on "stun(s):" schemes.
func parseICEURL(raw string) (*ICEURL, error) {
	scheme, rest, ok := strings.Cut(raw, ":")
	if !ok {
		return nil, fmt.Errorf("%w: %s", errICEURLMalformed, raw)
	}

	var u ICEURL
	switch strings.ToLower(scheme) {
	case "stun":
		u.Scheme = ICESchemeTypeSTUN
		rest, _, _ = strings.Cut(rest, "?")
	case "stuns":
		u.Scheme = ICESchemeTypeSTUNS
		rest, _, _ = strings.Cut(rest, "?")
	case "turn":
		u.Scheme = ICESchemeTypeTURN
	case "turns":
		u.Scheme = ICESchemeTypeTURNS
	default:
		return nil, fmt.Errorf("%w: unknown scheme %s", errICEURLMalformed, scheme)
	}

	host, portStr, err := net.SplitHostPort(rest)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errICEURLMalformed, raw)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errICEURLMalformed, raw)
	}
	u.Host, u.Port = host, port
	return &u, nil
}
