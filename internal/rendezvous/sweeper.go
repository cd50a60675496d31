package rendezvous

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ocx/gossiprouter/internal/wire"
)

// Sweeper periodically closes sessions whose freshness timestamp is
// older than a configured TTL. It treats a session as a whole: closing a
// victim runs the session's normal teardown, which removes every
// routing-table and address-mapping entry that session contributed.
type Sweeper struct {
	routingTable *RoutingTable
	expiry       time.Duration
	metrics      sessionMetrics
	log          *slog.Logger

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewSweeper constructs a Sweeper. expiry <= 0 disables sweeping
// entirely; Run returns immediately in that case.
func NewSweeper(rt *RoutingTable, expiry time.Duration, m sessionMetrics, log *slog.Logger) *Sweeper {
	return &Sweeper{
		routingTable: rt,
		expiry:       expiry,
		metrics:      m,
		log:          log,
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// Run blocks, firing one sweep every expiry until Stop is called. Call
// it in its own goroutine.
func (sw *Sweeper) Run() {
	defer close(sw.done)
	if sw.expiry <= 0 {
		return
	}
	ticker := time.NewTicker(sw.expiry)
	defer ticker.Stop()
	for {
		select {
		case <-sw.stop:
			return
		case <-ticker.C:
			sw.sweepOnce()
		}
	}
}

func (sw *Sweeper) sweepOnce() {
	now := time.Now()
	seen := make(map[*Session]struct{})
	var victims []*Session
	for _, group := range sw.routingTable.Groups() {
		sw.routingTable.ForEachSessionInGroup(group, func(_ wire.LogicalAddress, s *Session) {
			if _, already := seen[s]; already {
				return
			}
			seen[s] = struct{}{}
			if s.AgeMillis(now) > sw.expiry.Milliseconds() {
				victims = append(victims, s)
			}
		})
	}
	for _, v := range victims {
		v.forceClose(fmt.Errorf("idle expiry exceeded %s", sw.expiry))
		sw.metrics.RecordSweeperEviction()
	}
}

// Stop halts the sweeper and waits for Run to return. Safe to call
// before the goroutine running Run has been scheduled, and safe to call
// more than once; if Run is never called at all, Stop blocks.
func (sw *Sweeper) Stop() {
	sw.stopOnce.Do(func() { close(sw.stop) })
	<-sw.done
}
