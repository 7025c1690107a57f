package marketplace

import (
	"math/rand"
	"net/http"
	"sync"
	"time"
)

// Identity is one set of client identity headers sent in direct mode
type Identity struct {
	UserAgent      string
	AcceptLanguage string
	AcceptEncoding string
}

// DefaultIdentities is the built-in pool of desktop browser identities
var DefaultIdentities = []Identity{
	{
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		AcceptLanguage: "en-US,en;q=0.9",
		AcceptEncoding: "gzip, deflate",
	},
	{
		UserAgent:      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.3 Safari/605.1.15",
		AcceptLanguage: "en-GB,en;q=0.8",
		AcceptEncoding: "gzip, deflate",
	},
	{
		UserAgent:      "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
		AcceptLanguage: "en-IN,en;q=0.9,hi;q=0.7",
		AcceptEncoding: "gzip, deflate",
	},
	{
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
		AcceptLanguage: "en-US,en;q=0.5",
		AcceptEncoding: "gzip, deflate",
	},
}

// IdentityPool hands out identities at random. The random source is injected
// so tests can pin the sequence.
type IdentityPool struct {
	identities []Identity
	mu         sync.Mutex
	rng        *rand.Rand
}

// NewIdentityPool creates a pool over identities. An empty list falls back to
// DefaultIdentities; a nil source is seeded from the clock.
func NewIdentityPool(identities []Identity, src rand.Source) *IdentityPool {
	if len(identities) == 0 {
		identities = DefaultIdentities
	}
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}

	return &IdentityPool{
		identities: append([]Identity(nil), identities...),
		rng:        rand.New(src),
	}
}

// Pick returns one identity from the pool
func (p *IdentityPool) Pick() Identity {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.identities[p.rng.Intn(len(p.identities))]
}

// Size returns the number of identities in the pool
func (p *IdentityPool) Size() int {
	return len(p.identities)
}

func (id Identity) apply(h http.Header) {
	h.Set("User-Agent", id.UserAgent)
	h.Set("Accept-Language", id.AcceptLanguage)
	if id.AcceptEncoding != "" {
		h.Set("Accept-Encoding", id.AcceptEncoding)
	}
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
}
