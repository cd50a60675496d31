// Package mirror provides an optional, strictly non-authoritative Redis
// mirror of connect/disconnect activity. Nothing in the rendezvous
// server ever reads from it: find, snapshot_members, and the CONNECT
// existing-connection check are served exclusively from in-process
// memory. The mirror exists only so an external dashboard or a
// best-effort cross-process view can observe registrations; the server
// remains fully correct with the mirror absent or unreachable, which
// honors the invariant that all authoritative state dies with the
// process.
package mirror

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/ocx/gossiprouter/internal/wire"
)

// Client is a minimal interface any Redis driver can satisfy. The
// rendezvous server never imports a specific driver; cmd/gossiprouter
// constructs the concrete client and injects it here.
type Client interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// Mirror publishes a best-effort, TTL'd snapshot of each registration to
// Redis. Writes are fire-and-forget from the caller's perspective:
// failures are logged and otherwise ignored.
type Mirror struct {
	client    Client
	keyPrefix string
	entryTTL  time.Duration
	log       *slog.Logger
}

// New constructs a Mirror. keyPrefix namespaces keys (e.g.
// "gossiprouter:member:"); entryTTL bounds how long a stale mirror entry
// can outlive a session that never explicitly disconnected.
func New(client Client, keyPrefix string, entryTTL time.Duration, log *slog.Logger) *Mirror {
	if keyPrefix == "" {
		keyPrefix = "gossiprouter:member:"
	}
	if entryTTL <= 0 {
		entryTTL = 5 * time.Minute
	}
	if log == nil {
		log = slog.Default()
	}
	return &Mirror{client: client, keyPrefix: keyPrefix, entryTTL: entryTTL, log: log}
}

type memberRecord struct {
	Group       string `json:"group"`
	LogicalAddr string `json:"logical_addr"`
	LogicalName string `json:"logical_name,omitempty"`
	ConnectedAt int64  `json:"connected_at_unix_ms"`
}

// RecordTermination best-effort deletes every mirrored entry for a torn
// session's logical addresses. Wire this into
// rendezvous.Server.RegisterFailureListener via a
// rendezvous.FailureListenerFunc so the mirror package never needs to
// import package rendezvous. A clean DISCONNECT is handled by
// RecordDisconnect instead, since it never reaches the failure hook.
func (m *Mirror) RecordTermination(addrs []wire.LogicalAddress) {
	if len(addrs) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	keys := make([]string, len(addrs))
	for i, a := range addrs {
		keys[i] = m.keyPrefix + a.String()
	}
	if err := m.client.Del(ctx, keys...); err != nil {
		m.log.Debug("mirror: delete on termination failed", "error", err)
	}
}

// RecordConnect mirrors a successful CONNECT. Errors are logged, never
// returned: a mirror failure must never affect the CONNECT_OK reply
// already sent to the peer.
func (m *Mirror) RecordConnect(group string, addr wire.LogicalAddress, name *string) {
	rec := memberRecord{Group: group, LogicalAddr: addr.String(), ConnectedAt: time.Now().UnixMilli()}
	if name != nil {
		rec.LogicalName = *name
	}
	data, err := json.Marshal(rec)
	if err != nil {
		m.log.Debug("mirror: marshal failed", "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	key := m.keyPrefix + addr.String()
	if err := m.client.Set(ctx, key, data, m.entryTTL); err != nil {
		m.log.Debug("mirror: set failed", "key", key, "error", err)
	}
}

// RecordDisconnect removes the mirrored entry for addr, if any.
func (m *Mirror) RecordDisconnect(addr wire.LogicalAddress) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	key := m.keyPrefix + addr.String()
	if err := m.client.Del(ctx, key); err != nil {
		m.log.Debug("mirror: delete failed", "key", key, "error", err)
	}
}
