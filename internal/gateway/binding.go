package gateway

import (
	"sync"

	"github.com/mcoot/partycoord/internal/model"
)

// Ref identifies the party membership a connection is bound to
type Ref struct {
	PartyID  model.PartyID
	PlayerID model.PlayerID
}

// Bindings maps each live connection to at most one party membership
type Bindings struct {
	mu   sync.Mutex
	refs map[string]Ref
}

// NewBindings creates an empty binding table
func NewBindings() *Bindings {
	return &Bindings{refs: make(map[string]Ref)}
}

// Bind associates connID with ref. Rebinding to the same ref is a no-op;
// binding an already bound connection to a different ref fails.
func (b *Bindings) Bind(connID string, ref Ref) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if existing, ok := b.refs[connID]; ok {
		if existing == ref {
			return nil
		}
		return model.ErrAlreadyInParty
	}
	b.refs[connID] = ref
	return nil
}

// Lookup returns the membership bound to connID
func (b *Bindings) Lookup(connID string) (Ref, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ref, ok := b.refs[connID]
	return ref, ok
}

// Release removes the binding for connID. Only the first call for a binding returns ok.
func (b *Bindings) Release(connID string) (Ref, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ref, ok := b.refs[connID]
	if ok {
		delete(b.refs, connID)
	}
	return ref, ok
}

// Count returns the number of bound connections
func (b *Bindings) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.refs)
}
