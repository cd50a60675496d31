package rendezvous

import "github.com/ocx/gossiprouter/internal/wire"

// relay delivers payload within group, either to one destination
// (dest != nil, unicast) or to every other session currently in the
// group (dest == nil, multicast; the sender never receives its own
// broadcast). A missing unicast destination or a unicast write failure
// is dropped silently from the sender's point of view; a write failure
// also removes the destination's entry and closes the destination
// session. Multicast write failures are counted per-destination in the
// relay metric but never abort the fan-out for other members.
func relay(rt *RoutingTable, m sessionMetrics, group string, dest *wire.LogicalAddress, payload []byte, sender *Session) {
	if dest != nil {
		relayUnicast(rt, m, group, *dest, payload)
		return
	}
	relayMulticast(rt, m, group, payload, sender)
}

func relayUnicast(rt *RoutingTable, m sessionMetrics, group string, dest wire.LogicalAddress, payload []byte) {
	target, ok := rt.Find(group, dest)
	if !ok {
		m.RecordRelay("unicast", "dropped")
		return
	}
	rec := &wire.GossipRecord{Command: wire.CmdMessage, Addr: &dest, Payload: payload}
	if err := target.WriteRecord(rec); err != nil {
		rt.Remove(group, dest)
		target.close(err)
		m.RecordRelay("unicast", "failed")
		return
	}
	m.RecordRelay("unicast", "delivered")
}

func relayMulticast(rt *RoutingTable, m sessionMetrics, group string, payload []byte, sender *Session) {
	rt.ForEachSessionInGroup(group, func(addr wire.LogicalAddress, s *Session) {
		if s == sender {
			return
		}
		rec := &wire.GossipRecord{Command: wire.CmdMessage, Addr: &addr, Payload: payload}
		if err := s.WriteRecord(rec); err != nil {
			m.RecordRelay("multicast", "failed")
			return
		}
		m.RecordRelay("multicast", "delivered")
	})
}
