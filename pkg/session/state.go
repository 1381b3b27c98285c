package session

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	stateOnce    sync.Once
	stateEntropy *stateGenerator
)

// stateGenerator safely generates login state nonces concurrently using a
// monotonic crypto/rand entropy source.
type stateGenerator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func (g *stateGenerator) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now().UTC()), g.entropy).String()
}

// newLoginState returns a fresh single-use state nonce correlating an
// outgoing browser redirect with the eventual incoming callback.
func newLoginState() string {
	stateOnce.Do(func() {
		stateEntropy = &stateGenerator{entropy: ulid.Monotonic(rand.Reader, 0)}
	})
	return stateEntropy.New()
}
