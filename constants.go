// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package webrtc

import "github.com/sansio/rtc/dtlsengine"

const (
	// Equal to UDP MTU
	receiveMTU = 1460

	// simulcastProbeCount and simulcastMaxProbeRoutines are not read
	// anywhere: RTP for an SSRC that no receiver has declared is dropped
	// by the coordinator's demux, without probing its mid and rid values.
	simulcastProbeCount = 10

	simulcastMaxProbeRoutines = 25

	mediaSectionApplication = "application"

	sdpAttributeRid = "rid"

	rtpOutboundMTU = 1200

	rtpPayloadTypeBitmask = 0x7F

	incomingUnhandledRTPSsrc = "Incoming unhandled RTP ssrc(%d), OnTrack will not be fired. %v"

	generatedCertificateOrigin = "WebRTC"

	sdesRepairRTPStreamIDURI = "urn:ietf:params:rtp-hdrext:sdes:repaired-rtp-stream-id"

	// Attributes returned when Read() returns an RTX packet from a separate RTX stream (distinct SSRC)
	attributeRtxPayloadType    = "rtx_payload_type"
	attributeRtxSsrc           = "rtx_ssrc"
	attributeRtxSequenceNumber = "rtx_sequence_number"
)

func defaultSrtpProtectionProfiles() []dtlsengine.SRTPProtectionProfile {
	return []dtlsengine.SRTPProtectionProfile{dtlsengine.ProfileAES128GCM, dtlsengine.ProfileAES128CMSHA1_80}
}
