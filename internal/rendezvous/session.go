package rendezvous

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ocx/gossiprouter/internal/wire"
)

// Session is one accepted socket. It owns the socket and its two framed
// streams, runs a read loop, dispatches each received record, and tracks
// the logical addresses and groups it has touched.
type Session struct {
	conn    net.Conn
	reader  *wire.Reader
	writeMu sync.Mutex
	writer  *wire.Writer

	active    atomic.Bool
	timestamp atomic.Int64 // unix millis, last record received

	mu               sync.Mutex
	logicalAddresses []wire.LogicalAddress
	knownGroups      map[string]struct{}

	// rearmReadDeadline, if set, is called before every decode attempt
	// so a configured read timeout applies to each read rather than
	// only the first. A read timeout must never terminate the session.
	rearmReadDeadline func()

	deps sessionDeps
	log  *slog.Logger
}

// sessionDeps are the collaborators a Session needs to dispatch records.
// They are explicit fields passed in at construction, never a singleton,
// so tests can wire a fresh set per case.
type sessionDeps struct {
	routingTable   *RoutingTable
	addressMapping *AddressMapping
	names          *NameRegistry
	onTerminate    func(s *Session, cause error)
	metrics        sessionMetrics
	observer       ConnectObserver
}

// ConnectObserver is notified of successful CONNECT/DISCONNECT
// completions. It exists so an optional, non-authoritative mirror (see
// package mirror) can shadow registrations without the routing table or
// address mapping ever consulting it back.
type ConnectObserver interface {
	RecordConnect(group string, addr wire.LogicalAddress, name *string)
	RecordDisconnect(addr wire.LogicalAddress)
}

// sessionMetrics is the subset of metrics.Collector a Session needs.
// Defined locally so this package does not import internal/metrics for
// its exported API; Server supplies the concrete collector.
type sessionMetrics interface {
	RecordConnect(result string)
	RecordDisconnect(result string)
	RecordRelay(kind, result string)
	RecordSessionClosed(cause string)
	RecordSuspectSent()
	RecordSweeperEviction()
}

func newSession(conn net.Conn, deps sessionDeps, log *slog.Logger) *Session {
	s := &Session{
		conn:        conn,
		reader:      wire.NewReader(conn),
		writer:      wire.NewWriter(conn),
		knownGroups: make(map[string]struct{}),
		deps:        deps,
		log:         log,
	}
	s.active.Store(true)
	s.touch()
	return s
}

func (s *Session) touch() {
	s.timestamp.Store(time.Now().UnixMilli())
}

// AgeMillis returns the time in milliseconds since the last record was
// received from this session.
func (s *Session) AgeMillis(now time.Time) int64 {
	return now.UnixMilli() - s.timestamp.Load()
}

// LogicalAddresses returns a snapshot of the logical addresses this
// session has registered.
func (s *Session) LogicalAddresses() []wire.LogicalAddress {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]wire.LogicalAddress, len(s.logicalAddresses))
	copy(out, s.logicalAddresses)
	return out
}

// KnownGroups returns a snapshot of the groups this session has touched.
func (s *Session) KnownGroups() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.knownGroups))
	for g := range s.knownGroups {
		out = append(out, g)
	}
	return out
}

func (s *Session) addLogicalAddress(addr wire.LogicalAddress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logicalAddresses = append(s.logicalAddresses, addr)
}

func (s *Session) recordGroup(group string) {
	if group == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.knownGroups[group] = struct{}{}
}

// WriteRecord serializes rec onto this session's output stream under its
// write monitor, so it cannot interleave with any other concurrent write
// (a relayed message, a SUSPECT notification, a reply) to this same
// session.
func (s *Session) WriteRecord(rec *wire.GossipRecord) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := rec.Encode(s.writer); err != nil {
		return err
	}
	return s.writer.Flush()
}

func (s *Session) writeSingleByteReply(cmd wire.Command) error {
	return s.WriteRecord(&wire.GossipRecord{Command: cmd})
}

// readLoop decodes records until EOF, a framing error, or an explicit
// CLOSE. It never returns while the socket remains readable after a
// timeout; a read timeout is retried, not treated as termination.
func (s *Session) readLoop() {
	var terminationCause error
	for {
		if s.rearmReadDeadline != nil {
			s.rearmReadDeadline()
		}
		rec, err := wire.DecodeGossipRecord(s.reader)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			if errors.Is(err, io.EOF) {
				terminationCause = io.EOF
			} else {
				terminationCause = fmt.Errorf("framing error: %w", err)
			}
			break
		}

		s.touch()
		s.recordGroup(groupOf(rec))

		if stop := s.dispatch(rec); stop {
			terminationCause = nil
			break
		}
	}
	s.close(terminationCause)
}

func groupOf(rec *wire.GossipRecord) string {
	if rec.Group == nil {
		return ""
	}
	return *rec.Group
}

// dispatch handles one decoded record. It returns true when the session
// should terminate (an explicit CLOSE).
func (s *Session) dispatch(rec *wire.GossipRecord) bool {
	switch rec.Command {
	case wire.CmdConnect:
		s.handleConnect(rec)
	case wire.CmdDisconnect:
		s.handleDisconnect(rec)
	case wire.CmdMessage:
		s.handleMessage(rec)
	case wire.CmdGossipGet:
		s.handleGossipGet(rec)
	case wire.CmdPing:
		// no-op; touch() above already refreshed the timestamp.
	case wire.CmdClose:
		return true
	default:
		s.log.Warn("ignoring unrecognized command", "command", rec.Command)
	}
	return false
}

// handleConnect runs the CONNECT handshake in §4.4.1 order: the
// existing-connection check and name binding happen first, and
// logical_addresses is only appended once every fallible step before it
// has already succeeded, so a later failure never needs to unwind an
// address this session never actually held.
func (s *Session) handleConnect(rec *wire.GossipRecord) {
	group := groupOf(rec)
	if rec.Addr == nil {
		s.replyOpFail("connect: addr is required")
		s.deps.metrics.RecordConnect("fail")
		return
	}
	addr := *rec.Addr

	if s.deps.addressMapping.Has(addr) {
		candidateGroups := []string{group}
		if rec.Group == nil {
			candidateGroups = s.deps.routingTable.Groups()
		}
		for _, g := range candidateGroups {
			if prior, ok := s.deps.routingTable.Find(g, addr); ok {
				prior.close(fmt.Errorf("superseded by new CONNECT for %s", addr))
			}
		}
	}

	if rec.LogicalName != nil {
		s.deps.names.Bind(addr, *rec.LogicalName)
	}

	s.addLogicalAddress(addr)
	s.deps.routingTable.Add(group, addr, s)
	if rec.Physical != nil {
		s.deps.addressMapping.Set(addr, rec.Physical)
	}

	if err := s.writeSingleByteReply(wire.CmdConnectOK); err != nil {
		s.deps.routingTable.Remove(group, addr)
		s.deps.metrics.RecordConnect("fail")
		return
	}
	s.deps.metrics.RecordConnect("ok")
	if s.deps.observer != nil {
		s.deps.observer.RecordConnect(group, addr, rec.LogicalName)
	}
}

func (s *Session) handleDisconnect(rec *wire.GossipRecord) {
	if rec.Addr == nil {
		s.replyOpFail("disconnect: addr is required")
		s.deps.metrics.RecordDisconnect("fail")
		return
	}
	group := groupOf(rec)
	s.deps.routingTable.Remove(group, *rec.Addr)
	s.deps.addressMapping.Remove(*rec.Addr)
	s.deps.names.Unbind(*rec.Addr)
	if err := s.writeSingleByteReply(wire.CmdDisconnectOK); err != nil {
		s.deps.metrics.RecordDisconnect("fail")
		return
	}
	s.deps.metrics.RecordDisconnect("ok")
	if s.deps.observer != nil {
		s.deps.observer.RecordDisconnect(*rec.Addr)
	}
}

func (s *Session) handleMessage(rec *wire.GossipRecord) {
	if len(rec.Payload) == 0 {
		s.log.Debug("dropping message with empty payload")
		return
	}
	group := groupOf(rec)
	relay(s.deps.routingTable, s.deps.metrics, group, rec.Addr, rec.Payload, s)
}

func (s *Session) handleGossipGet(rec *wire.GossipRecord) {
	group := groupOf(rec)
	members := s.deps.routingTable.SnapshotMembers(group)
	replies := make([]wire.PingData, 0, len(members))
	for _, addr := range members {
		physical, _ := s.deps.addressMapping.Get(addr)
		var name *string
		if n, ok := s.deps.names.Lookup(addr); ok {
			name = &n
		}
		replies = append(replies, wire.PingData{
			LogicalAddr: addr,
			IsServer:    true,
			LogicalName: name,
			Physical:    physical,
		})
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := wire.WriteGossipGetReply(s.writer, replies); err != nil {
		return
	}
	_ = s.writer.Flush()
}

func (s *Session) replyOpFail(reason string) {
	s.log.Warn("operation failed", "reason", reason)
	_ = s.writeSingleByteReply(wire.CmdOpFail)
}

// close tears the session down exactly once, guarded by a compare-and-set
// on active. It closes the socket and removes every routing-table,
// address-mapping, and name-registry entry this session contributed,
// then invokes the failure-notification hook if cause is non-nil.
func (s *Session) close(cause error) {
	if !s.active.CompareAndSwap(true, false) {
		return
	}

	_ = s.conn.Close()

	addrs := s.LogicalAddresses()
	for _, a := range addrs {
		s.deps.routingTable.Remove("", a)
		s.deps.addressMapping.Remove(a)
		s.deps.names.Unbind(a)
	}

	s.deps.metrics.RecordSessionClosed(classifyClose(cause))

	if cause != nil && s.deps.onTerminate != nil {
		s.deps.onTerminate(s, cause)
	}
}

func classifyClose(cause error) string {
	switch {
	case cause == nil:
		return "client_close"
	case errors.Is(cause, io.EOF):
		return "eof"
	default:
		return "io_error"
	}
}

// forceClose is used by the sweeper; it defaults a nil cause to a
// generic error so the failure hook always fires for it.
func (s *Session) forceClose(cause error) {
	if cause == nil {
		cause = errors.New("closed by server")
	}
	s.close(cause)
}
