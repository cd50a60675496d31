package rendezvous

import (
	"log/slog"
	"sync"

	"github.com/ocx/gossiprouter/internal/wire"
)

// FailureListener is invoked whenever a Session terminates abnormally
// (cause != nil). Implementations must not block for long: they run
// synchronously on whichever goroutine closes the session (its own read
// loop, the sweeper, Server.Stop, or another session's handler).
type FailureListener interface {
	OnSessionTerminated(s *Session, cause error)
}

// FailureListenerFunc adapts a function to a FailureListener.
type FailureListenerFunc func(s *Session, cause error)

func (f FailureListenerFunc) OnSessionTerminated(s *Session, cause error) {
	f(s, cause)
}

// FailureHookList is the copy-on-write list of registered
// FailureListeners. Registration order is iteration order.
type FailureHookList struct {
	mu        sync.Mutex
	listeners []FailureListener
}

// NewFailureHookList returns an empty list.
func NewFailureHookList() *FailureHookList {
	return &FailureHookList{}
}

// Register appends a listener.
func (l *FailureHookList) Register(listener FailureListener) {
	l.mu.Lock()
	defer l.mu.Unlock()
	next := make([]FailureListener, len(l.listeners)+1)
	copy(next, l.listeners)
	next[len(l.listeners)] = listener
	l.listeners = next
}

func (l *FailureHookList) snapshot() []FailureListener {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.listeners
}

// notify invokes every registered listener. Errors during notification
// are the listener's own concern to swallow; this method has no error
// return because the destination sessions a listener writes to may
// already be dead.
func (l *FailureHookList) notify(s *Session, cause error) {
	for _, listener := range l.snapshot() {
		listener.OnSessionTerminated(s, cause)
	}
}

// SuspectHook is the default failure listener: it walks every group the
// torn session had touched and writes a SUSPECT record naming each of
// the session's logical addresses to every other session still
// registered there.
type SuspectHook struct {
	routingTable *RoutingTable
	metrics      sessionMetrics
	log          *slog.Logger
}

// NewSuspectHook constructs the default SUSPECT fan-out listener.
func NewSuspectHook(rt *RoutingTable, m sessionMetrics, log *slog.Logger) *SuspectHook {
	return &SuspectHook{routingTable: rt, metrics: m, log: log}
}

func (h *SuspectHook) OnSessionTerminated(dead *Session, cause error) {
	addrs := dead.LogicalAddresses()
	if len(addrs) == 0 {
		return
	}
	for _, group := range dead.KnownGroups() {
		h.routingTable.ForEachSessionInGroup(group, func(_ wire.LogicalAddress, peer *Session) {
			if peer == dead {
				return
			}
			for _, addr := range addrs {
				suspect := addr
				rec := &wire.GossipRecord{Command: wire.CmdSuspect, Group: &group, Addr: &suspect}
				if err := peer.WriteRecord(rec); err != nil {
					h.log.Debug("suspect notification failed", "group", group, "error", err)
					continue
				}
				h.metrics.RecordSuspectSent()
			}
		})
	}
}
