package platform

import (
	"sync"

	"ccdump-go/errcode"
)

// Registry hands out exclusive pin claims. A debug session claims its three
// lines for its whole lifetime; a concurrent session cannot share them.
type Registry struct {
	mu     sync.Mutex
	pins   PinFactory
	owners map[int]string
}

func NewRegistry(f PinFactory) *Registry {
	return &Registry{pins: f, owners: make(map[int]string)}
}

// Claim reserves pin n for owner. Re-claiming by the same owner is allowed.
func (r *Registry) Claim(owner string, n int) (Pin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, taken := r.owners[n]; taken && cur != owner {
		return nil, &errcode.E{C: errcode.PinInUse, Op: "claim", Msg: "held by " + cur}
	}
	p, ok := r.pins.ByNumber(n)
	if !ok {
		return nil, errcode.UnknownPin
	}
	r.owners[n] = owner
	return p, nil
}

// Release drops owner's claim on pin n. Releasing a pin held by someone
// else is a no-op.
func (r *Registry) Release(owner string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.owners[n] == owner {
		delete(r.owners, n)
	}
}

// Owner reports who holds pin n, if anyone.
func (r *Registry) Owner(n int) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.owners[n]
	return o, ok
}
