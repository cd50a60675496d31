package rendezvous

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// Config bounds the server's lifecycle and per-connection socket options.
type Config struct {
	// BindAddr and Port form the listen address, e.g. "" and 12001.
	BindAddr string
	Port     uint16

	// Backlog is the TCP listen backlog hint.
	Backlog int

	// ExpiryMillis is the sweeper's idle-session TTL. <= 0 disables sweeping.
	ExpiryMillis int64

	// LingerMillis, if > 0, sets SO_LINGER (in whole seconds, minimum 1)
	// on each accepted socket.
	LingerMillis int64

	// ReadTimeoutMillis, if > 0, sets a read deadline re-armed before
	// every decode; 0 disables the read timeout.
	ReadTimeoutMillis int64

	// MaxConcurrentSessions bounds the acceptor's worker pool. A
	// connection accepted beyond this bound is rejected and its socket
	// closed immediately rather than queued.
	MaxConcurrentSessions int64
}

// Server owns the listener, routing table, address mapping, name
// registry, sweeper, and failure-notification hooks that together make
// up one rendezvous instance.
type Server struct {
	cfg Config
	log *slog.Logger

	routingTable   *RoutingTable
	addressMapping *AddressMapping
	names          *NameRegistry
	failureHooks   *FailureHookList
	metrics        sessionMetrics
	sweeper        *Sweeper
	observer       ConnectObserver

	running  atomic.Bool
	listener net.Listener
	sem      *semaphore.Weighted

	sessionsMu sync.Mutex
	sessions   map[*Session]struct{}

	wg sync.WaitGroup
}

// NewServer constructs a Server. Pass nil for m to run without
// Prometheus metrics.
func NewServer(cfg Config, m sessionMetrics, log *slog.Logger) *Server {
	if m == nil {
		m = noopMetrics{}
	}
	if log == nil {
		log = slog.Default()
	}
	if cfg.MaxConcurrentSessions <= 0 {
		cfg.MaxConcurrentSessions = 10000
	}

	rt := NewRoutingTable()
	s := &Server{
		cfg:            cfg,
		log:            log,
		routingTable:   rt,
		addressMapping: NewAddressMapping(),
		names:          NewNameRegistry(),
		failureHooks:   NewFailureHookList(),
		metrics:        m,
		sem:            semaphore.NewWeighted(cfg.MaxConcurrentSessions),
		sessions:       make(map[*Session]struct{}),
	}
	s.sweeper = NewSweeper(rt, time.Duration(cfg.ExpiryMillis)*time.Millisecond, m, log)
	s.failureHooks.Register(NewSuspectHook(rt, m, log))
	return s
}

// RegisterFailureListener adds an additional failure-notification
// listener, invoked after the default SUSPECT hook in registration order.
func (s *Server) RegisterFailureListener(l FailureListener) {
	s.failureHooks.Register(l)
}

// SetConnectObserver installs an observer notified of every successful
// CONNECT and DISCONNECT. Intended for the optional, non-authoritative
// Redis mirror; the routing table and address mapping never consult it.
func (s *Server) SetConnectObserver(o ConnectObserver) {
	s.observer = o
}

// RoutingTable exposes the server's routing table for diagnostics and
// the optional mirror.
func (s *Server) RoutingTable() *RoutingTable { return s.routingTable }

// AddressMapping exposes the server's address mapping for diagnostics
// and the optional mirror.
func (s *Server) AddressMapping() *AddressMapping { return s.addressMapping }

// Addr returns the listener's bound address. Only meaningful after a
// successful Start; useful for tests that bind to port 0.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Start binds the listener and launches the acceptor and sweeper
// goroutines. Starting an already-started server fails loudly.
func (s *Server) Start() error {
	if !s.running.CompareAndSwap(false, true) {
		return errors.New("rendezvous: server already started")
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.BindAddr, s.cfg.Port)
	lc := net.ListenConfig{}
	ln, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		s.running.Store(false)
		return fmt.Errorf("rendezvous: listen on %s: %w", addr, err)
	}
	s.listener = ln
	// Go's net package does not expose the kernel listen() backlog as a
	// tunable; cfg.Backlog is carried through for parity with the CLI
	// surface and logged, but the OS default backlog applies.
	if s.cfg.Backlog > 0 {
		s.log.Debug("configured backlog is advisory only on this runtime", "backlog", s.cfg.Backlog)
	}

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.sweeper.Run()
	}()
	go func() {
		defer s.wg.Done()
		s.acceptLoop()
	}()

	s.log.Info("rendezvous server started", "addr", addr)
	return nil
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if !s.running.Load() {
				return
			}
			s.log.Warn("accept failed", "error", err)
			continue
		}
		s.applySocketOptions(conn)

		// Bound the worker pool against accept storms by rejecting and
		// closing the socket outright rather than queueing unboundedly.
		if !s.sem.TryAcquire(1) {
			s.log.Warn("worker pool exhausted, rejecting connection", "remote", conn.RemoteAddr())
			_ = conn.Close()
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.sem.Release(1)
			s.serve(conn)
		}()
	}
}

func (s *Server) applySocketOptions(conn net.Conn) {
	tc, ok := conn.(*net.TCPConn)
	if !ok {
		return
	}
	if s.cfg.LingerMillis > 0 {
		seconds := int(s.cfg.LingerMillis / 1000)
		if seconds < 1 {
			seconds = 1
		}
		if err := tc.SetLinger(seconds); err != nil {
			s.log.Warn("failed to set SO_LINGER", "error", err)
		}
	}
	if s.cfg.ReadTimeoutMillis > 0 {
		deadline := time.Now().Add(time.Duration(s.cfg.ReadTimeoutMillis) * time.Millisecond)
		if err := tc.SetReadDeadline(deadline); err != nil {
			s.log.Warn("failed to set read deadline", "error", err)
		}
	}
}

func (s *Server) serve(conn net.Conn) {
	deps := sessionDeps{
		routingTable:   s.routingTable,
		addressMapping: s.addressMapping,
		names:          s.names,
		onTerminate:    s.onSessionTerminated,
		metrics:        s.metrics,
		observer:       s.observer,
	}
	sess := newSession(conn, deps, s.log)
	if s.cfg.ReadTimeoutMillis > 0 {
		sess.rearmReadDeadline = func() {
			_ = conn.SetReadDeadline(time.Now().Add(time.Duration(s.cfg.ReadTimeoutMillis) * time.Millisecond))
		}
	}
	s.trackSession(sess)
	defer s.untrackSession(sess)
	sess.readLoop()
}

func (s *Server) onSessionTerminated(sess *Session, cause error) {
	s.failureHooks.notify(sess, cause)
}

func (s *Server) trackSession(sess *Session) {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	s.sessions[sess] = struct{}{}
}

func (s *Server) untrackSession(sess *Session) {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	delete(s.sessions, sess)
}

// Stop tears the server down in the order: close the listener (which
// unblocks the acceptor with an error), cancel the sweeper, force-close
// every live session (which unblocks its read loop with an I/O error),
// then wait for every in-flight session goroutine to exit. Stopping an
// already-stopped (or never-started) server is a no-op.
func (s *Server) Stop() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.sweeper.Stop()

	s.sessionsMu.Lock()
	live := make([]*Session, 0, len(s.sessions))
	for sess := range s.sessions {
		live = append(live, sess)
	}
	s.sessionsMu.Unlock()
	for _, sess := range live {
		sess.forceClose(errors.New("server stopping"))
	}

	s.wg.Wait()
}

// Clear empties the routing table, address mapping, and name registry.
// It does not affect listener or session state; callers typically pair
// it with Stop for a full reset between test cases.
func (s *Server) Clear() {
	s.routingTable.Clear()
	s.addressMapping.Clear()
	s.names.Clear()
}
