package sctpengine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sansio/rtc/enginecontract"
)

func drive(t *testing.T, client, server *Association, now time.Time, rounds int) time.Time {
	t.Helper()
	for i := 0; i < rounds; i++ {
		now = now.Add(50 * time.Millisecond)
		client.HandleTimeout(now)
		for {
			tx, ok := client.PollWrite()
			if !ok {
				break
			}
			tx.Now = now
			require.NoError(t, server.HandleRead(tx))
		}
		server.HandleTimeout(now)
		for {
			tx, ok := server.PollWrite()
			if !ok {
				break
			}
			tx.Now = now
			require.NoError(t, client.HandleRead(tx))
		}
	}
	return now
}

func newPair() (*Association, *Association) {
	client := NewAssociation(Config{}, RoleClient, nil)
	server := NewAssociation(Config{}, RoleServer, nil)
	return client, server
}

func TestHandshakeReachesEstablished(t *testing.T) {
	client, server := newPair()
	client.StartHandshake()

	now := drive(t, client, server, time.Now(), 4)
	_ = now

	assert.Equal(t, StateEstablished, client.State())
	assert.Equal(t, StateEstablished, server.State())
}

func TestDataChannelOpenAndMessageDelivery(t *testing.T) {
	client, server := newPair()
	client.StartHandshake()
	now := drive(t, client, server, time.Now(), 4)

	s, err := client.OpenStream("chat", "", Reliability{Ordered: true})
	require.NoError(t, err)
	assert.Equal(t, uint16(0), s.ID)

	now = drive(t, client, server, now, 4)

	var opened bool
	for {
		e, ok := server.PollEvent()
		if !ok {
			break
		}
		if e.Kind == EventStreamOpen {
			opened = true
			assert.Equal(t, "chat", e.Label)
		}
	}
	require.True(t, opened, "server should see the remote-opened stream")

	for {
		e, ok := client.PollEvent()
		if !ok {
			break
		}
		if e.Kind == EventStreamOpen {
			s.State = StreamOpen
		}
	}
	require.Equal(t, StreamOpen, s.State)

	require.NoError(t, client.SendUserData(s.ID, []byte("hello"), true))
	_ = drive(t, client, server, now, 2)

	var gotMessage bool
	for {
		e, ok := server.PollEvent()
		if !ok {
			break
		}
		if e.Kind == EventStreamMessage {
			gotMessage = true
			assert.Equal(t, []byte("hello"), e.Data)
			assert.True(t, e.IsString)
		}
	}
	require.True(t, gotMessage)
}

func TestOutboundPacketTooLarge(t *testing.T) {
	client, server := newPair()
	client.StartHandshake()
	_ = drive(t, client, server, time.Now(), 4)

	s, err := client.OpenStream("d", "", Reliability{Ordered: true})
	require.NoError(t, err)
	s.State = StreamOpen

	cfg := Config{}
	cfg.withDefaults()
	big := make([]byte, cfg.MaxMessageSize+1)
	assert.ErrorIs(t, client.SendUserData(s.ID, big, false), ErrOutboundPacketTooLarge)
}

func TestMaxDataChannelID(t *testing.T) {
	client := NewAssociation(Config{MaxChannels: 1}, RoleClient, nil)
	_, err := client.OpenStream("a", "", Reliability{Ordered: true})
	require.NoError(t, err)
	_, err = client.OpenStream("b", "", Reliability{Ordered: true})
	assert.ErrorIs(t, err, ErrMaxDataChannelID)
}

func TestReliabilityMutualExclusion(t *testing.T) {
	maxRetrans := uint16(3)
	maxLifetime := uint16(100)
	r := Reliability{MaxRetransmits: &maxRetrans, MaxPacketLifetime: &maxLifetime}
	assert.ErrorIs(t, r.validate(), ErrRetransmitsOrPacketLifeTime)

	client := NewAssociation(Config{}, RoleClient, nil)
	_, err := client.OpenStream("bad", "", r)
	assert.ErrorIs(t, err, ErrRetransmitsOrPacketLifeTime)
}

func TestCloseIsIdempotent(t *testing.T) {
	client := NewAssociation(Config{}, RoleClient, nil)
	require.NoError(t, client.Close())
	require.NoError(t, client.Close())
	assert.ErrorIs(t, client.HandleRead(enginecontract.Transmit{Payload: []byte{0, 1, 2}}), ErrConnectionClosed)
}
