package rendezvous

// noopMetrics satisfies sessionMetrics for callers (tests, or a server
// started without a metrics.Collector) that don't want Prometheus
// registration side effects.
type noopMetrics struct{}

func (noopMetrics) RecordConnect(string)       {}
func (noopMetrics) RecordDisconnect(string)    {}
func (noopMetrics) RecordRelay(string, string) {}
func (noopMetrics) RecordSessionClosed(string) {}
func (noopMetrics) RecordSuspectSent()         {}
func (noopMetrics) RecordSweeperEviction()     {}
