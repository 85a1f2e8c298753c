package iceengine

import (
	"github.com/pion/randutil"
)

// iceChars is the alphabet RFC 8445 §16 allows for ice-ufrag/ice-pwd:
// unreserved + a handful of marks, trimmed here to alphanumerics for
// simplicity (still within the RFC's allowed set).
const iceChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RNG is the sole source of nondeterminism in the agent: ufrag/pwd
// generation, the controlling/controlled tie-breaker, and STUN
// transaction ids. It is injected through Config.RNG, so a test can
// supply its own implementation; the NewMathRNG default does not give
// reproducible output (see NewMathRNG).
type RNG interface {
	RandomString(n int, charset string) string
	RandomUint64() uint64
}

// mathRNG adapts github.com/pion/randutil's math/rand-based generator to
// the RNG interface used throughout this package.
type mathRNG struct {
	gen *randutil.MathRandomGenerator
}

// NewMathRNG returns the default RNG. The seed argument is not used:
// RandomString draws from crypto/rand through randutil, and RandomUint64
// from randutil's math generator, which seeds itself, so two RNGs built
// with the same seed do not produce the same values.
func NewMathRNG(seed int64) RNG {
	return &mathRNG{gen: randutil.NewMathRandomGenerator()}
}

func (m *mathRNG) RandomString(n int, charset string) string {
	s, err := randutil.GenerateCryptoRandomString(n, charset)
	if err != nil {
		// GenerateCryptoRandomString only fails on crypto/rand read
		// failure, which does not happen on supported platforms; fall
		// back to the math generator rather than panicking, per the
		// "never panic, never crash" propagation policy in spec.md §7.
		b := make([]byte, n)
		for i := range b {
			b[i] = charset[m.gen.Intn(len(charset))]
		}
		return string(b)
	}
	return s
}

func (m *mathRNG) RandomUint64() uint64 {
	hi := uint64(m.gen.Uint32())
	lo := uint64(m.gen.Uint32())
	return hi<<32 | lo
}

func randomUfrag(r RNG) string { return r.RandomString(minUfragLength+4, iceChars) }
func randomPwd(r RNG) string   { return r.RandomString(minPwdLength+2, iceChars) }
