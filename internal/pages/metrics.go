package pages

// Metrics receives cache and decode signals.
// NoopMetrics is used when none is configured.
type Metrics interface {
	Hit()
	Miss()
	Evict()
	Size(entries int)
	Decoded(ok bool)
	Prefetched()
}

// NoopMetrics is a Metrics implementation that does nothing.
type NoopMetrics struct{}

func (NoopMetrics) Hit()         {}
func (NoopMetrics) Miss()        {}
func (NoopMetrics) Evict()       {}
func (NoopMetrics) Size(int)     {}
func (NoopMetrics) Decoded(bool) {}
func (NoopMetrics) Prefetched()  {}

var _ Metrics = NoopMetrics{}
