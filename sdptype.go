package webrtc

// SDPType describes the type of an SDP block, per RFC 8866 and the
// signaling state transition table in the coordinator design.
type SDPType int

const (
	// SDPTypeUnknown indicates an unparsable SDP type.
	SDPTypeUnknown SDPType = iota
	// SDPTypeOffer indicates an SDP describing a request to start an
	// offer/answer exchange.
	SDPTypeOffer
	// SDPTypePranswer indicates an SDP describing a provisional answer;
	// one or more of these may precede the final answer.
	SDPTypePranswer
	// SDPTypeAnswer indicates an SDP that is the definitive choice in an
	// offer/answer exchange.
	SDPTypeAnswer
	// SDPTypeRollback indicates the rollback of the local or remote
	// offer/answer exchange; its SDP body must be empty.
	SDPTypeRollback
)

// NewSDPType parses an SDP type's string form, used by wire-level
// session descriptions.
func NewSDPType(raw string) SDPType {
	switch raw {
	case "offer":
		return SDPTypeOffer
	case "pranswer":
		return SDPTypePranswer
	case "answer":
		return SDPTypeAnswer
	case "rollback":
		return SDPTypeRollback
	default:
		return SDPTypeUnknown
	}
}

func (t SDPType) String() string {
	switch t {
	case SDPTypeOffer:
		return "offer"
	case SDPTypePranswer:
		return "pranswer"
	case SDPTypeAnswer:
		return "answer"
	case SDPTypeRollback:
		return "rollback"
	default:
		return ErrUnknownType.Error()
	}
}
