// +build !js

package webrtc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPeerConnection_Close(t *testing.T) {
	pcOffer, pcAnswer, err := newPair()
	if err != nil {
		t.Fatal(err)
	}

	awaitSetup := make(chan struct{})
	pcAnswer.OnDataChannel(func(d *DataChannel) {
		// Make sure this is the data channel we were looking for. (Not the one
		// created in signalPair).
		if d.Label() != "data" {
			return
		}
		close(awaitSetup)
	})

	awaitICEClosed := make(chan struct{})
	pcAnswer.OnICEConnectionStateChange(func(i ICEConnectionState) {
		if i == ICEConnectionStateClosed {
			close(awaitICEClosed)
		}
	})

	_, err = pcOffer.CreateDataChannel("data", nil)
	if err != nil {
		t.Fatal(err)
	}

	err = signalPair(pcOffer, pcAnswer)
	if err != nil {
		t.Fatal(err)
	}
	stopPump := pumpLoopback(pcOffer, pcAnswer)

	<-awaitSetup

	// Stop driving the sans-I/O stack from the pump goroutine before Close
	// touches the same engines from this one; neither engine is safe for
	// concurrent access.
	stopPump()

	assert.NoError(t, pcOffer.Close())
	assert.NoError(t, pcAnswer.Close())

	<-awaitICEClosed
}

// Assert that a PeerConnection that is shutdown before ICE starts doesn't leak
func TestPeerConnection_Close_PreICE(t *testing.T) {
	pcOffer, pcAnswer, err := newPair()
	if err != nil {
		t.Fatal(err)
	}

	answer, err := pcOffer.CreateOffer(nil)
	if err != nil {
		t.Fatal(err)
	}

	assert.NoError(t, pcOffer.Close())

	if err = pcAnswer.SetRemoteDescription(answer); err != nil {
		t.Fatal(err)
	}

	for {
		pcAnswer.HandleTimeout(time.Now())
		if pcAnswer.iceTransport.State() == ICETransportStateChecking {
			break
		}
		time.Sleep(time.Millisecond)
	}

	assert.NoError(t, pcAnswer.Close())
	assert.Equal(t, ICETransportStateClosed, pcAnswer.iceTransport.State())
}
