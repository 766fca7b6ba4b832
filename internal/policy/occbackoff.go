package policy

import (
	"math"
	"math/rand"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// maxOCCRetries bounds the OCC loop at 5 attempts.
const maxOCCRetries = 5

// occBaseDelay is the base of the exponential backoff.
const occBaseDelay = 100 * time.Millisecond

// occJitterMax is the upper bound of the uniform jitter added on top of the
// exponential term.
const occJitterMax = 50 * time.Millisecond

// occBackoff reproduces the exact retry schedule —
// BASE_DELAY * 2^attempt + jitter[0, 0.05] — as a backoff.BackOff so the OCC
// loop can be driven by backoff.Retry like a synchronous server-mode retry
// loop, while staying fully deterministic and testable up to the jitter
// term.
type occBackoff struct {
	attempt int
	rng     *rand.Rand
}

// newOCCBackoff constructs a fresh occBackoff. Each evaluation gets its own
// instance so attempt counters never leak across calls.
func newOCCBackoff(rng *rand.Rand) *occBackoff {
	return &occBackoff{rng: rng}
}

// NextBackOff implements backoff.BackOff. It returns backoff.Stop once
// maxOCCRetries attempts have been consumed — the bounded-retry contract
// that surfaces as "OCC retries exhausted" once exceeded.
func (b *occBackoff) NextBackOff() time.Duration {
	if b.attempt >= maxOCCRetries-1 {
		return backoff.Stop
	}
	delay := time.Duration(float64(occBaseDelay) * math.Pow(2, float64(b.attempt)))
	jitter := time.Duration(b.rng.Int63n(int64(occJitterMax) + 1))
	b.attempt++
	return delay + jitter
}

// Reset implements backoff.BackOff.
func (b *occBackoff) Reset() {
	b.attempt = 0
}

var _ backoff.BackOff = (*occBackoff)(nil)
