package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"gamechain/core/events"
)

type ContractMetrics struct {
	eventsEmitted *prometheus.CounterVec
	authRejected  *prometheus.CounterVec
	swapVolume    *prometheus.GaugeVec
}

var (
	contractsOnce     sync.Once
	contractsRegistry *ContractMetrics
)

func Contracts() *ContractMetrics {
	contractsOnce.Do(func() {
		contractsRegistry = &ContractMetrics{
			eventsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "contract_events_total",
				Help: "Count of contract events emitted by type.",
			}, []string{"type"}),
			authRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "contract_auth_rejections_total",
				Help: "Count of rejected authorisations by module and reason.",
			}, []string{"module", "reason"}),
			swapVolume: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "contract_bridge_swap_volume",
				Help: "Last recorded bridge swap amount per side.",
			}, []string{"side"}),
		}
		prometheus.MustRegister(
			contractsRegistry.eventsEmitted,
			contractsRegistry.authRejected,
			contractsRegistry.swapVolume,
		)
	})
	return contractsRegistry
}

func (m *ContractMetrics) ObserveEvent(eventType string) {
	if m == nil {
		return
	}
	if eventType == "" {
		eventType = "unknown"
	}
	m.eventsEmitted.WithLabelValues(eventType).Inc()
}

func (m *ContractMetrics) ObserveAuthRejected(module, reason string) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	if reason == "" {
		reason = "unknown"
	}
	m.authRejected.WithLabelValues(module, reason).Inc()
}

func (m *ContractMetrics) ObserveSwapVolume(side string, amount float64) {
	if m == nil {
		return
	}
	if side == "" {
		side = "unknown"
	}
	m.swapVolume.WithLabelValues(side).Set(amount)
}

// Emitter counts every contract event before handing it to the wrapped
// emitter. Hosts wrap their real sink with it to get per-event-type counters
// for free.
type Emitter struct {
	next    events.Emitter
	metrics *ContractMetrics
}

// NewEmitter wraps next with event counting. A nil next drops events after
// counting them.
func NewEmitter(next events.Emitter) *Emitter {
	return &Emitter{next: next, metrics: Contracts()}
}

func (e *Emitter) Emit(event events.Event) {
	if e == nil || event == nil {
		return
	}
	e.metrics.ObserveEvent(event.EventType())
	if e.next != nil {
		e.next.Emit(event)
	}
}
