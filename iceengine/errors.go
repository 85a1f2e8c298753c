package iceengine

import "errors"

// Errors returned directly by Agent methods. Per spec.md §4.2 "Failure
// semantics", a single failed connectivity check is never surfaced as an
// error — only caller-API misuse and the terminal ConnectionClosed are.
var (
	ErrConnectionClosed  = errors.New("iceengine: agent closed")
	ErrUfragInsufficient = errors.New("iceengine: ufrag has insufficient entropy")
	ErrPwdInsufficient   = errors.New("iceengine: pwd has insufficient entropy")
	ErrNoRemoteCreds     = errors.New("iceengine: remote ufrag/pwd not set")
)

// Entropy floors from spec.md §3: "ufrag ≥ 24 bits of entropy, pwd ≥ 128
// bits". At ~5.95 bits/char over the 62-character iceChars alphabet, that
// is 5 chars for ufrag and 22 for pwd. The ufrag floor enforced here is 4
// chars (about 23.8 bits); generated credentials are longer, 8 chars for
// randomUfrag and 24 for randomPwd.
const (
	minUfragLength = 4  // base64-ish alphabet, ~6 bits/char -> 24 bits
	minPwdLength   = 22 // ~6 bits/char -> >128 bits
)
