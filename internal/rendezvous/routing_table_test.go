package rendezvous

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ocx/gossiprouter/internal/wire"
)

func TestRoutingTableAddFind(t *testing.T) {
	rt := NewRoutingTable()
	addr := wire.NewLogicalAddress()
	sess := &Session{}

	rt.Add("room-a", addr, sess)

	found, ok := rt.Find("room-a", addr)
	require.True(t, ok)
	assert.Same(t, sess, found)

	_, ok = rt.Find("room-b", addr)
	assert.False(t, ok)
}

func TestRoutingTableRemoveFromSpecificGroup(t *testing.T) {
	rt := NewRoutingTable()
	addr := wire.NewLogicalAddress()
	sess := &Session{}
	rt.Add("room-a", addr, sess)
	rt.Add("room-b", addr, sess)

	rt.Remove("room-a", addr)

	_, ok := rt.Find("room-a", addr)
	assert.False(t, ok)
	_, ok = rt.Find("room-b", addr)
	assert.True(t, ok)
}

func TestRoutingTableRemoveAllGroupsWhenGroupEmpty(t *testing.T) {
	rt := NewRoutingTable()
	addr := wire.NewLogicalAddress()
	sess := &Session{}
	rt.Add("room-a", addr, sess)
	rt.Add("room-b", addr, sess)

	rt.Remove("", addr)

	_, ok := rt.Find("room-a", addr)
	assert.False(t, ok)
	_, ok = rt.Find("room-b", addr)
	assert.False(t, ok)
}

func TestRoutingTableGroupKeyDeletedWhenEmpty(t *testing.T) {
	rt := NewRoutingTable()
	addr := wire.NewLogicalAddress()
	sess := &Session{}
	rt.Add("room-a", addr, sess)

	rt.Remove("room-a", addr)

	assert.Empty(t, rt.Groups())
}

func TestRoutingTableRemoveUnknownGroupIsNoop(t *testing.T) {
	rt := NewRoutingTable()
	addr := wire.NewLogicalAddress()
	assert.NotPanics(t, func() { rt.Remove("nowhere", addr) })
}

func TestRoutingTableSnapshotMembersAndForEach(t *testing.T) {
	rt := NewRoutingTable()
	a1, a2 := wire.NewLogicalAddress(), wire.NewLogicalAddress()
	s1, s2 := &Session{}, &Session{}
	rt.Add("room-a", a1, s1)
	rt.Add("room-a", a2, s2)

	members := rt.SnapshotMembers("room-a")
	assert.ElementsMatch(t, []wire.LogicalAddress{a1, a2}, members)

	visited := map[wire.LogicalAddress]*Session{}
	rt.ForEachSessionInGroup("room-a", func(a wire.LogicalAddress, s *Session) {
		visited[a] = s
	})
	assert.Equal(t, s1, visited[a1])
	assert.Equal(t, s2, visited[a2])
}

func TestRoutingTableClear(t *testing.T) {
	rt := NewRoutingTable()
	addr := wire.NewLogicalAddress()
	rt.Add("room-a", addr, &Session{})

	rt.Clear()

	assert.Empty(t, rt.Groups())
	_, ok := rt.Find("room-a", addr)
	assert.False(t, ok)
}

// TestRoutingTableConcurrentAddRemoveNeverLosesEntries exercises the
// two-level locking discipline: concurrent Add/Remove across many groups
// must never leave a group key pointing at an empty map, nor silently
// drop an entry a concurrent Remove did not target.
func TestRoutingTableConcurrentAddRemoveNeverLosesEntries(t *testing.T) {
	rt := NewRoutingTable()
	const n = 200
	addrs := make([]wire.LogicalAddress, n)
	for i := range addrs {
		addrs[i] = wire.NewLogicalAddress()
	}

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rt.Add("shared", addrs[i], &Session{})
		}(i)
	}
	wg.Wait()

	assert.Len(t, rt.SnapshotMembers("shared"), n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rt.Remove("shared", addrs[i])
		}(i)
	}
	wg.Wait()

	assert.Empty(t, rt.SnapshotMembers("shared"))
	assert.Empty(t, rt.Groups())
}
