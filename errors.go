package webrtc

import (
	"errors"

	"github.com/sansio/rtc/pkg/rtcerr"
)

// Sentinel errors returned by the peer-connection coordinator.
var (
	ErrConnectionClosed = errors.New("webrtc: connection closed")
	ErrNoConfig         = errors.New("webrtc: no configuration provided")
	ErrCertificateExpired = errors.New("webrtc: certificate expired")
	ErrExistingTrack    = errors.New("webrtc: track already exists")

	ErrModifyingPeerIdentity         = errors.New("webrtc: peerIdentity cannot be modified")
	ErrModifyingCertificates         = errors.New("webrtc: certificates cannot be modified")
	ErrModifyingBundlePolicy         = errors.New("webrtc: bundle policy cannot be modified")
	ErrModifyingRtcpMuxPolicy        = errors.New("webrtc: rtcp mux policy cannot be modified")
	ErrModifyingICECandidatePoolSize = errors.New("webrtc: ice candidate pool size cannot be modified")

	ErrInvalidValue    = errors.New("webrtc: invalid value")
	ErrMaxDataChannels = errors.New("webrtc: maximum number of data channels reached")

	// ErrSignalingStateChangeInvalid is returned when a (setLocal/setRemote,
	// sdp-type) pair has no entry in the signaling transition table.
	ErrSignalingStateChangeInvalid = errors.New("webrtc: invalid signaling state transition")

	// ErrSDPDoesNotMatchOffer is returned when setLocal(offer) is called a
	// second time with an SDP differing from the offer already set.
	ErrSDPDoesNotMatchOffer = errors.New("webrtc: sdp does not match pending offer")
	// ErrSDPDoesNotMatchAnswer is the analogous case for answers.
	ErrSDPDoesNotMatchAnswer = errors.New("webrtc: sdp does not match pending answer")

	// ErrNonZeroRollbackSDP is returned when a rollback SetLocalDescription
	// or SetRemoteDescription carries a non-empty SDP body.
	ErrNonZeroRollbackSDP = errors.New("webrtc: rollback description must have an empty body")

	ErrNoRemoteDescription          = errors.New("webrtc: no remote description set")
	ErrSenderNotCreatedByConnection = errors.New("webrtc: sender was not created by this connection")

	ErrUnknownType      = errors.New("unknown")
	ErrSDPUnmarshalling = errors.New("webrtc: failed to unmarshal SDP")

	ErrPrivateKeyType = errors.New("webrtc: private key type not supported")

	errICECandidateTypeUnknown = errors.New("webrtc: unknown ice candidate type")
	errICECandidateParse       = errors.New("webrtc: failed to parse ice candidate")
	errICEProtocolUnknown      = errors.New("webrtc: unknown ice protocol")
	errICEURLMalformed         = errors.New("webrtc: malformed ice server url")

	ErrNoTurnCredentials = errors.New("webrtc: turn server requires username and credential")
	ErrTurnCredentials   = errors.New("webrtc: turn credential does not match credential type")

	ErrStringSizeLimit    = errors.New("webrtc: data channel label exceeds 65535 bytes")
	ErrDataChannelNotOpen = errors.New("webrtc: data channel is not open")

	ErrRetransmitsOrPacketLifeTime = errors.New("webrtc: maxPacketLifeTime and maxRetransmits are mutually exclusive")

	ErrUnsupportedCodec = errors.New("webrtc: unsupported codec")
	ErrCodecNotFound    = errors.New("webrtc: codec not found")
	ErrNoPayloaderForCodec = errors.New("webrtc: no payloader for codec")
	ErrUnbindFailed     = errors.New("webrtc: track unbind failed")

	errRTPSenderTrackNil          = errors.New("webrtc: track is nil")
	errRTPSenderDTLSTransportNil  = errors.New("webrtc: dtls transport is nil")
	errRTPSenderSendAlreadyCalled = errors.New("webrtc: Send has already been called")

	ErrSessionDescriptionNoFingerprint             = errors.New("webrtc: session description has no fingerprint")
	ErrSessionDescriptionInvalidFingerprint         = errors.New("webrtc: session description has invalid fingerprint")
	ErrSessionDescriptionConflictingFingerprints    = errors.New("webrtc: session description has conflicting fingerprints")
	ErrSessionDescriptionMissingIceUfrag            = errors.New("webrtc: session description is missing ice-ufrag")
	ErrSessionDescriptionMissingIcePwd              = errors.New("webrtc: session description is missing ice-pwd")
	ErrSessionDescriptionConflictingIceUfrag        = errors.New("webrtc: session description has conflicting ice-ufrag values")
	ErrSessionDescriptionConflictingIcePwd          = errors.New("webrtc: session description has conflicting ice-pwd values")

	ErrNoICECandidates = errors.New("webrtc: no ice candidates gathered")

	ErrSRTPNotReady  = errors.New("webrtc: srtp keys not yet established")
	ErrSRTPReplayed  = errors.New("webrtc: srtp packet rejected as a replay")
	ErrSRTCPReplayed = errors.New("webrtc: srtcp packet rejected as a replay")

	errSDPZeroTransceivers                  = errors.New("webrtc: sdp has zero transceivers")
	errSDPMediaSectionMediaDataChanInvalid  = errors.New("webrtc: media section is configured for both media and data")
	errSDPMediaSectionMultipleTrackInvalid  = errors.New("webrtc: media section has multiple tracks in non-Plan-B mode")
	errSDPParseExtMap                       = errors.New("webrtc: failed to parse extmap")
	errSDPRemoteDescriptionChangedExtMap    = errors.New("webrtc: remote description changed extmap for mid")
)

// wrapInvalidState and friends wrap an error in one of four of the error
// types pkg/rtcerr defines, matching the teacher's exposed error shape.
func wrapInvalidState(err error) error    { return &rtcerr.InvalidStateError{Err: err} }
func wrapInvalidAccess(err error) error   { return &rtcerr.InvalidAccessError{Err: err} }
func wrapOperation(err error) error       { return &rtcerr.OperationError{Err: err} }
func wrapInvalidModification(err error) error { return &rtcerr.InvalidModificationError{Err: err} }
