package rendezvous

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ocx/gossiprouter/internal/wire"
)

func TestNameRegistryBindLookupUnbind(t *testing.T) {
	r := NewNameRegistry()
	addr := wire.NewLogicalAddress()

	_, ok := r.Lookup(addr)
	assert.False(t, ok)

	r.Bind(addr, "peer-one")
	name, ok := r.Lookup(addr)
	assert.True(t, ok)
	assert.Equal(t, "peer-one", name)

	r.Bind(addr, "peer-one-renamed")
	name, ok = r.Lookup(addr)
	assert.True(t, ok)
	assert.Equal(t, "peer-one-renamed", name)

	r.Unbind(addr)
	_, ok = r.Lookup(addr)
	assert.False(t, ok)
}

func TestNameRegistryUnbindUnknownIsNoop(t *testing.T) {
	r := NewNameRegistry()
	assert.NotPanics(t, func() { r.Unbind(wire.NewLogicalAddress()) })
}

func TestNameRegistryClear(t *testing.T) {
	r := NewNameRegistry()
	addr := wire.NewLogicalAddress()
	r.Bind(addr, "peer-one")
	r.Clear()
	_, ok := r.Lookup(addr)
	assert.False(t, ok)
}

func TestAddressMappingSetGetHasRemove(t *testing.T) {
	m := NewAddressMapping()
	addr := wire.NewLogicalAddress()
	assert.False(t, m.Has(addr))

	phys := &wire.PhysicalAddress{Data: []byte("10.0.0.1:9000")}
	m.Set(addr, phys)

	assert.True(t, m.Has(addr))
	got, ok := m.Get(addr)
	assert.True(t, ok)
	assert.Equal(t, phys, got)

	m.Remove(addr)
	assert.False(t, m.Has(addr))
}

func TestAddressMappingRemoveUnknownIsNoop(t *testing.T) {
	m := NewAddressMapping()
	assert.NotPanics(t, func() { m.Remove(wire.NewLogicalAddress()) })
}

func TestAddressMappingClear(t *testing.T) {
	m := NewAddressMapping()
	addr := wire.NewLogicalAddress()
	m.Set(addr, &wire.PhysicalAddress{Data: []byte("x")})
	m.Clear()
	assert.False(t, m.Has(addr))
}
