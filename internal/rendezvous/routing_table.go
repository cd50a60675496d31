package rendezvous

import (
	"sync"

	"github.com/ocx/gossiprouter/internal/wire"
)

// groupEntry is the inner map for one group: LogicalAddress -> *Session.
// Its own mutex lets reads, fan-outs, and entry removal on one group
// proceed without contending with structural changes (group creation or
// deletion) happening to a different group.
type groupEntry struct {
	mu      sync.RWMutex
	members map[wire.LogicalAddress]*Session
}

// RoutingTable is the concurrent two-level index group -> (logical
// address -> session). A group key exists iff its inner map is
// non-empty; Add and Remove cooperate to preserve that invariant without
// ever observing a torn state.
type RoutingTable struct {
	mu     sync.Mutex
	groups map[string]*groupEntry
}

// NewRoutingTable returns an empty routing table.
func NewRoutingTable() *RoutingTable {
	return &RoutingTable{groups: make(map[string]*groupEntry)}
}

// Add inserts (addr -> session) into group, creating the group's inner
// map if this is its first member. The routing table's monitor is held
// for the whole operation so a concurrent Remove can never observe the
// group as transiently empty between creation and insertion.
func (rt *RoutingTable) Add(group string, addr wire.LogicalAddress, s *Session) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	ge, ok := rt.groups[group]
	if !ok {
		ge = &groupEntry{members: make(map[wire.LogicalAddress]*Session)}
		rt.groups[group] = ge
	}
	ge.mu.Lock()
	ge.members[addr] = s
	ge.mu.Unlock()
}

// Remove deletes addr from group. If group is empty, addr is removed
// from every group. Any group whose inner map becomes empty as a result
// is deleted from the outer map, re-checked under the routing table's
// monitor to avoid racing a concurrent Add to the same group.
func (rt *RoutingTable) Remove(group string, addr wire.LogicalAddress) {
	if group != "" {
		rt.removeFromGroup(group, addr)
		return
	}
	rt.mu.Lock()
	groups := make([]string, 0, len(rt.groups))
	for g := range rt.groups {
		groups = append(groups, g)
	}
	rt.mu.Unlock()
	for _, g := range groups {
		rt.removeFromGroup(g, addr)
	}
}

func (rt *RoutingTable) removeFromGroup(group string, addr wire.LogicalAddress) {
	rt.mu.Lock()
	ge, ok := rt.groups[group]
	rt.mu.Unlock()
	if !ok {
		return
	}

	ge.mu.Lock()
	delete(ge.members, addr)
	empty := len(ge.members) == 0
	ge.mu.Unlock()
	if !empty {
		return
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()
	ge2, ok := rt.groups[group]
	if !ok || ge2 != ge {
		return
	}
	ge2.mu.Lock()
	stillEmpty := len(ge2.members) == 0
	ge2.mu.Unlock()
	if stillEmpty {
		delete(rt.groups, group)
	}
}

// Find looks up the session registered for (group, addr).
func (rt *RoutingTable) Find(group string, addr wire.LogicalAddress) (*Session, bool) {
	rt.mu.Lock()
	ge, ok := rt.groups[group]
	rt.mu.Unlock()
	if !ok {
		return nil, false
	}
	ge.mu.RLock()
	defer ge.mu.RUnlock()
	s, ok := ge.members[addr]
	return s, ok
}

// SnapshotMembers returns the addresses currently in group. The result
// is a weak-consistency snapshot: it is safe to call concurrently with
// mutation, but may miss or include entries that change during the call.
func (rt *RoutingTable) SnapshotMembers(group string) []wire.LogicalAddress {
	rt.mu.Lock()
	ge, ok := rt.groups[group]
	rt.mu.Unlock()
	if !ok {
		return nil
	}
	ge.mu.RLock()
	defer ge.mu.RUnlock()
	out := make([]wire.LogicalAddress, 0, len(ge.members))
	for a := range ge.members {
		out = append(out, a)
	}
	return out
}

// ForEachSessionInGroup invokes fn for every (addr, session) currently in
// group, holding the group's monitor for the duration so the snapshot
// cannot interleave with another fan-out on the same group.
func (rt *RoutingTable) ForEachSessionInGroup(group string, fn func(wire.LogicalAddress, *Session)) {
	rt.mu.Lock()
	ge, ok := rt.groups[group]
	rt.mu.Unlock()
	if !ok {
		return
	}
	ge.mu.Lock()
	defer ge.mu.Unlock()
	for a, s := range ge.members {
		fn(a, s)
	}
}

// Groups returns the current group names. Used by the sweeper to walk
// every session reachable via the routing table.
func (rt *RoutingTable) Groups() []string {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	out := make([]string, 0, len(rt.groups))
	for g := range rt.groups {
		out = append(out, g)
	}
	return out
}

// Clear empties the routing table.
func (rt *RoutingTable) Clear() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.groups = make(map[string]*groupEntry)
}
