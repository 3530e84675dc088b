package inventory

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "warehouse"

// Metrics exports warehouse activity to prometheus. A nil *Metrics records nothing.
type Metrics struct {
	admissions *prometheus.CounterVec
	evictions  prometheus.Counter
	spills     prometheus.Counter
	purchases  *prometheus.CounterVec
	sectorSize *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		admissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "admissions_total",
			Help:      "Products admitted, by the kind of sector that received them.",
		}, []string{"placement"}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "evictions_total",
			Help:      "Products evicted from a full sector to make room.",
		}),
		spills: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "spills_total",
			Help:      "Products placed in a sibling sector because their own was full.",
		}),
		purchases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "purchases_total",
			Help:      "Purchase orders, by result.",
		}, []string{"result"}),
		sectorSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "sector_size",
			Help:      "Occupied slots per sector.",
		}, []string{"sector"}),
	}
	for _, c := range []prometheus.Collector{m.admissions, m.evictions, m.spills, m.purchases, m.sectorSize} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) admitted(placement string) {
	if m == nil {
		return
	}
	m.admissions.WithLabelValues(placement).Inc()
}

func (m *Metrics) evicted() {
	if m == nil {
		return
	}
	m.evictions.Inc()
}

func (m *Metrics) spilled() {
	if m == nil {
		return
	}
	m.spills.Inc()
}

func (m *Metrics) purchased(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "rejected"
	}
	m.purchases.WithLabelValues(result).Inc()
}

func (m *Metrics) observeSector(index, size int) {
	if m == nil {
		return
	}
	m.sectorSize.WithLabelValues(strconv.Itoa(index)).Set(float64(size))
}
