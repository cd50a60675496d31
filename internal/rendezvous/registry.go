// Package rendezvous implements the rendezvous-and-relay server: the
// routing table, address mapping, session lifecycle, relay fan-out,
// sweeper, and failure-notification hook that sit behind the wire
// protocol decoded by package wire.
package rendezvous

import (
	"sync"

	"github.com/ocx/gossiprouter/internal/wire"
)

// NameRegistry binds a LogicalAddress to a short human-readable name. It
// is process-wide but never a singleton: callers construct one and pass
// it to every Session explicitly, so tests can instantiate a fresh
// registry per case.
type NameRegistry struct {
	mu    sync.RWMutex
	names map[wire.LogicalAddress]string
}

// NewNameRegistry returns an empty registry.
func NewNameRegistry() *NameRegistry {
	return &NameRegistry{names: make(map[wire.LogicalAddress]string)}
}

// Bind associates name with addr, overwriting any prior binding.
func (r *NameRegistry) Bind(addr wire.LogicalAddress, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names[addr] = name
}

// Lookup returns the name bound to addr, if any.
func (r *NameRegistry) Lookup(addr wire.LogicalAddress) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.names[addr]
	return name, ok
}

// Unbind removes addr's binding. It is a no-op if addr has none.
func (r *NameRegistry) Unbind(addr wire.LogicalAddress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.names, addr)
}

// Clear removes every binding.
func (r *NameRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = make(map[wire.LogicalAddress]string)
}

// AddressMapping is the concurrent logical-address to physical-address
// index. Removal is best-effort and deliberately a no-op when nothing
// matches: a session that never completed a CONNECT has no entry to
// remove, and close() unconditionally calls Remove for every logical
// address it ever held.
type AddressMapping struct {
	mu   sync.RWMutex
	byID map[wire.LogicalAddress]*wire.PhysicalAddress
}

// NewAddressMapping returns an empty mapping.
func NewAddressMapping() *AddressMapping {
	return &AddressMapping{byID: make(map[wire.LogicalAddress]*wire.PhysicalAddress)}
}

// Set records or overwrites the physical address for addr.
func (m *AddressMapping) Set(addr wire.LogicalAddress, physical *wire.PhysicalAddress) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[addr] = physical
}

// Get returns the physical address bound to addr, if any.
func (m *AddressMapping) Get(addr wire.LogicalAddress) (*wire.PhysicalAddress, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.byID[addr]
	return p, ok
}

// Has reports whether addr currently has a physical address on file.
func (m *AddressMapping) Has(addr wire.LogicalAddress) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.byID[addr]
	return ok
}

// Remove deletes addr's entry. It is always safe to call, including when
// addr has no entry.
func (m *AddressMapping) Remove(addr wire.LogicalAddress) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, addr)
}

// Clear empties the mapping.
func (m *AddressMapping) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID = make(map[wire.LogicalAddress]*wire.PhysicalAddress)
}
