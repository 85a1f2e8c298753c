package iceengine

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sansio/rtc/enginecontract"
)

func testAgent(t *testing.T) *Agent {
	t.Helper()
	return NewAgent(Config{RNG: NewMathRNG(1)})
}

func TestAddLocalCandidateIsIdempotent(t *testing.T) {
	a := testAgent(t)
	c := Candidate{Type: CandidateHost, Address: "10.0.0.1", Port: 5000, Component: 1}
	a.AddLocalCandidate(c)
	a.AddLocalCandidate(c)
	require.Len(t, a.localCandidates, 1)
}

func TestAddRemoteCandidateFormsPairs(t *testing.T) {
	a := testAgent(t)
	a.AddLocalCandidate(Candidate{Type: CandidateHost, Address: "10.0.0.1", Port: 5000, Component: 1})
	a.AddRemoteCandidate(Candidate{Type: CandidateHost, Address: "10.0.0.2", Port: 5001, Component: 1})
	require.Len(t, a.pairs, 1)
	assert.Equal(t, PairWaiting, a.pairs[0].State)
}

func TestRestartEntropyFloor(t *testing.T) {
	a := testAgent(t)
	_, _, err := a.Restart("x", "y", false)
	assert.ErrorIs(t, err, ErrUfragInsufficient)
}

func TestRestartGeneratesFreshCredentials(t *testing.T) {
	a := testAgent(t)
	origUfrag, origPwd := a.GetLocalUserCredentials()
	newUfrag, newPwd, err := a.Restart("", "", true)
	require.NoError(t, err)
	assert.NotEqual(t, origUfrag, newUfrag)
	assert.NotEqual(t, origPwd, newPwd)
	assert.GreaterOrEqual(t, len(newUfrag), minUfragLength)
	assert.GreaterOrEqual(t, len(newPwd), minPwdLength)
}

func TestConnectivityCheckEstablishesSelectedPair(t *testing.T) {
	controlling := NewAgent(Config{RNG: NewMathRNG(1)})
	controlled := NewAgent(Config{RNG: NewMathRNG(2)})

	controlling.AddLocalCandidate(Candidate{Type: CandidateHost, Address: "127.0.0.1", Port: 10000, Component: 1})
	controlled.AddLocalCandidate(Candidate{Type: CandidateHost, Address: "127.0.0.1", Port: 20000, Component: 1})

	cUfrag, cPwd := controlling.GetLocalUserCredentials()
	dUfrag, dPwd := controlled.GetLocalUserCredentials()

	controlling.AddRemoteCandidate(Candidate{Type: CandidateHost, Address: "127.0.0.1", Port: 20000, Component: 1})
	controlled.AddRemoteCandidate(Candidate{Type: CandidateHost, Address: "127.0.0.1", Port: 10000, Component: 1})

	require.NoError(t, controlling.StartConnectivityChecks(true, dUfrag, dPwd))
	require.NoError(t, controlled.StartConnectivityChecks(false, cUfrag, cPwd))

	now := time.Now()
	// Drive a handful of rounds: controlling sends a check, controlled
	// answers, controlling sends USE-CANDIDATE, controlled answers that.
	for i := 0; i < 8; i++ {
		now = now.Add(250 * time.Millisecond)
		controlling.HandleTimeout(now)
		for {
			tx, ok := controlling.PollWrite()
			if !ok {
				break
			}
			tx.Now = now
			tx.Transport.PeerAddr = &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 10000}
			_, _ = controlled.HandleRead(tx)
		}
		controlled.HandleTimeout(now)
		for {
			tx, ok := controlled.PollWrite()
			if !ok {
				break
			}
			tx.Now = now
			tx.Transport.PeerAddr = &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 20000}
			_, _ = controlling.HandleRead(tx)
		}
	}

	_, ok := controlling.GetSelectedCandidatePair()
	assert.True(t, ok, "controlling agent should have selected a pair")
	_, ok = controlled.GetSelectedCandidatePair()
	assert.True(t, ok, "controlled agent should have selected a pair")
}

func TestCloseIsIdempotent(t *testing.T) {
	a := testAgent(t)
	require.NoError(t, a.Close())
	require.NoError(t, a.Close())
	_, err := a.HandleRead(enginecontract.Transmit{Payload: []byte{0, 1, 2}})
	assert.ErrorIs(t, err, ErrConnectionClosed)
}
